package template

import (
	"regexp"
	"strings"
)

var (
	numberedLine = regexp.MustCompile(`^\d+\.\s`)
	bulletLine   = regexp.MustCompile(`^[-*]\s(.+)$`)
)

type listPart struct {
	text string
	item bool
}

// ProcessLists wraps numbered ("1. ") or bulleted ("- ", "* ") lines in list
// markup. Content whose first non-blank line is numbered becomes an ordered
// list; otherwise bullet lines become items of an unordered list. Lines that
// are not items stay as they are, and no wrapper is emitted without items.
func ProcessLists(content string) string {
	if numberedLine.MatchString(strings.TrimSpace(content)) {
		var parts []listPart
		hasItem := false
		for _, line := range strings.Split(content, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if numberedLine.MatchString(trimmed) {
				parts = append(parts, listPart{text: numberedLine.ReplaceAllString(trimmed, ""), item: true})
				hasItem = true
				continue
			}
			parts = append(parts, listPart{text: line})
		}
		if hasItem {
			return `<div class="article-list"><ol>` + joinParts(parts) + `</ol></div>`
		}
	}

	lines := strings.Split(content, "\n")
	parts := make([]listPart, 0, len(lines))
	hasItem := false
	for _, line := range lines {
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			parts = append(parts, listPart{text: m[1], item: true})
			hasItem = true
			continue
		}
		parts = append(parts, listPart{text: line})
	}
	if !hasItem {
		return content
	}
	return `<div class="article-list"><ul>` + joinParts(parts) + `</ul></div>`
}

// joinParts keeps newlines only between two plain lines so no <br> lands next to an <li>.
func joinParts(parts []listPart) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 && !p.item && !parts[i-1].item {
			b.WriteString("\n")
		}
		if p.item {
			b.WriteString("<li>")
			b.WriteString(p.text)
			b.WriteString("</li>")
		} else {
			b.WriteString(p.text)
		}
	}
	return b.String()
}
