// Package template renders clause text: variable substitution, conditional
// blocks, list markup, line breaks and, on the export path, {{calc:}} markers
// and pipe tables. Every function here is pure with respect to its inputs.
package template

import (
	"html"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Mode selects the rendering path
type Mode int

const (
	// ModePreview renders the live preview fragment. Calc and table markers stay literal.
	ModePreview Mode = iota
	// ModeExport renders the standalone document and runs every processor.
	ModeExport
)

func (m Mode) String() string {
	if m == ModeExport {
		return "export"
	}
	return "preview"
}

// ParseMode maps "preview" / "export" to a Mode
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "preview":
		return ModePreview, true
	case "export", "html":
		return ModeExport, true
	}
	return ModePreview, false
}

// Engine holds the locale-dependent formatters used while rendering clauses
type Engine struct {
	logger  *zap.Logger
	tag     language.Tag
	printer *message.Printer
}

// NewEngine creates an engine for the given BCP 47 locale ("ja", "en", ...).
// Unknown locales fall back to Japanese.
func NewEngine(logger *zap.Logger, locale string) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Japanese
	}
	return &Engine{
		logger:  logger,
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

// Locale returns the engine's language tag
func (e *Engine) Locale() language.Tag {
	return e.tag
}

// Render runs the full clause pipeline for one clause body
func (e *Engine) Render(content string, variables map[string]string, data map[string]any, mode Mode) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	out := e.Substitute(html.EscapeString(content), variables, data, mode)
	out = ApplyConditionals(out, data)
	out = ProcessLists(out)
	out = ConvertLineBreaks(out)
	if mode == ModeExport {
		out = e.ApplyCalculations(out)
		out = ApplyTables(out)
	}
	return out
}

// ConvertLineBreaks turns remaining newlines into <br>
func ConvertLineBreaks(content string) string {
	return strings.ReplaceAll(content, "\n", "<br>")
}
