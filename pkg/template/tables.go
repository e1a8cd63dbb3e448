package template

import (
	"regexp"
	"strings"
)

var tablePattern = regexp.MustCompile(`\|(.+)\|`)

const tableOpen = `<table style="border-collapse: collapse; width: 100%;"><tr>`

// ApplyTables converts each |a|b|…| line into a one-row table. Lines are the
// <br>-separated segments left by ConvertLineBreaks.
func ApplyTables(content string) string {
	segments := strings.Split(content, "<br>")
	for i, seg := range segments {
		segments[i] = tablePattern.ReplaceAllStringFunc(seg, func(match string) string {
			inner := match[1 : len(match)-1]
			var b strings.Builder
			b.WriteString(tableOpen)
			for _, cell := range strings.Split(inner, "|") {
				b.WriteString("<td>")
				b.WriteString(strings.TrimSpace(cell))
				b.WriteString("</td>")
			}
			b.WriteString("</tr></table>")
			return b.String()
		})
	}
	return strings.Join(segments, "<br>")
}
