package template

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/number"

	"github.com/contractgen/backend/pkg/utils"
)

var variablePattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-1-2",
	"2006/1/2",
}

// braceEscaper keeps filled values from being read as template syntax
// by the conditional, calculation and table passes.
var braceEscaper = strings.NewReplacer("{", "&#123;", "}", "&#125;")

// Substitute replaces every {{key}} whose key is declared in variables.
// Filled keys render their formatted value, the rest render {{label}} as a
// placeholder. Undeclared keys are left untouched. Matching is a single pass,
// so inserted values are never substituted again.
func (e *Engine) Substitute(content string, variables map[string]string, data map[string]any, mode Mode) string {
	if len(variables) == 0 {
		return content
	}
	return variablePattern.ReplaceAllStringFunc(content, func(match string) string {
		key := match[2 : len(match)-2]
		label, declared := variables[key]
		if !declared {
			return match
		}
		value, ok := data[key]
		if ok && utils.IsTruthy(value) {
			return filledMarkup(mode, e.FormatValue(key, value))
		}
		return placeholderMarkup(fmt.Sprintf("{{%s}}", label))
	})
}

func filledMarkup(mode Mode, text string) string {
	escaped := braceEscaper.Replace(html.EscapeString(text))
	if mode == ModeExport {
		return `<span class="highlight">` + escaped + `</span>`
	}
	return `<strong class="variable-value">` + escaped + `</strong>`
}

func placeholderMarkup(text string) string {
	return `<span class="variable-placeholder">` + html.EscapeString(text) + `</span>`
}

// FormatValue applies the key-name heuristic: keys containing "date" become
// long dates, keys containing fee/salary/amount/rent become grouped numbers.
func (e *Engine) FormatValue(key string, value any) string {
	text := utils.ToString(value)
	lower := strings.ToLower(key)
	switch {
	case strings.Contains(lower, "date"):
		return e.FormatDate(text)
	case strings.Contains(lower, "fee"),
		strings.Contains(lower, "salary"),
		strings.Contains(lower, "amount"),
		strings.Contains(lower, "rent"):
		return e.FormatNumber(text)
	}
	return text
}

// FormatDate renders an ISO-like date as a long localized date.
// Input that does not parse is returned unchanged.
func (e *Engine) FormatDate(value string) string {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		return e.longDate(t)
	}
	return value
}

func (e *Engine) longDate(t time.Time) string {
	base, _ := e.tag.Base()
	switch base.String() {
	case "en":
		return t.Format("January 2, 2006")
	default:
		return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
	}
}

// FormatNumber strips grouping commas, parses the leading numeric prefix and
// re-groups it for the engine locale. Non-numeric input is returned unchanged.
func (e *Engine) FormatNumber(value string) string {
	f, ok := utils.ParseLeadingFloat(strings.ReplaceAll(value, ",", ""))
	if !ok {
		return value
	}
	return e.formatFloat(f)
}

func (e *Engine) formatFloat(f float64) string {
	return e.printer.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}
