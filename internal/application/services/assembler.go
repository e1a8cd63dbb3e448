package services

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	htmltemplate "html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/domain/models"
	"github.com/contractgen/backend/pkg/constants"
	"github.com/contractgen/backend/pkg/template"
	"github.com/contractgen/backend/pkg/utils"
)

//go:embed templates/*.tmpl
var documentTemplates embed.FS

// GeneratedAtLayout is the layout of the export meta line
const GeneratedAtLayout = "2006/1/2 15:04:05"

// clauseView is one rendered clause handed to the document template
type clauseView struct {
	ID      string
	Title   string
	Content htmltemplate.HTML
}

// documentView is the template data of both the preview fragment and the export document
type documentView struct {
	Lang        string
	Title       string
	GeneratedAt string
	PartyA      string
	PartyB      string
	Clauses     []clauseView
	SignDate    string
	SignatureA  htmltemplate.HTML
	SignatureB  htmltemplate.HTML
}

// Assembler builds complete contract documents from a type, contract data and clauses
type Assembler struct {
	engine *template.Engine
	tmpl   *htmltemplate.Template
	logger *zap.Logger
	now    func() time.Time
}

// NewAssembler parses the embedded document templates
func NewAssembler(engine *template.Engine, logger *zap.Logger) (*Assembler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := htmltemplate.ParseFS(documentTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse document templates: %w", err)
	}
	return &Assembler{
		engine: engine,
		tmpl:   tmpl,
		logger: logger,
		now:    time.Now,
	}, nil
}

// SetClock replaces the time source of the generation timestamp
func (a *Assembler) SetClock(now func() time.Time) {
	a.now = now
}

// Engine returns the clause rendering engine
func (a *Assembler) Engine() *template.Engine {
	return a.engine
}

// Preview renders the live preview fragment
func (a *Assembler) Preview(ct models.ContractType, data models.ContractData, clauses []models.Clause) (string, error) {
	return a.Assemble(ct, data, clauses, template.ModePreview)
}

// Export renders the standalone printable HTML document
func (a *Assembler) Export(ct models.ContractType, data models.ContractData, clauses []models.Clause) (string, error) {
	return a.Assemble(ct, data, clauses, template.ModeExport)
}

// Assemble renders the document for mode. Clauses are rendered in slice order.
func (a *Assembler) Assemble(ct models.ContractType, data models.ContractData, clauses []models.Clause, mode template.Mode) (string, error) {
	view := documentView{
		Lang:       a.engine.Locale().String(),
		Title:      DocumentTitle(ct, data),
		PartyA:     firstFilled(data, constants.PartyANameFields(), constants.DefaultPartyA),
		PartyB:     firstFilled(data, constants.PartyBNameFields(), constants.DefaultPartyB),
		Clauses:    a.renderClauses(clauses, data, mode),
		SignDate:   a.signDate(data),
		SignatureA: signatureHTML(firstFilled(data, constants.PartyASignatureFields(), constants.DefaultSignatureA)),
		SignatureB: signatureHTML(firstFilled(data, constants.PartyBSignatureFields(), constants.DefaultSignatureB)),
	}

	name := "preview"
	if mode == template.ModeExport {
		name = "document"
		view.GeneratedAt = a.now().Format(GeneratedAtLayout)
	}

	var buf bytes.Buffer
	if err := a.tmpl.ExecuteTemplate(&buf, name, view); err != nil {
		a.logger.Error("document render failed", zap.String("mode", mode.String()), zap.Error(err))
		return "", fmt.Errorf("render %s document: %w", mode, err)
	}
	return buf.String(), nil
}

// renderClauses runs every clause body through the engine
func (a *Assembler) renderClauses(clauses []models.Clause, data models.ContractData, mode template.Mode) []clauseView {
	views := make([]clauseView, 0, len(clauses))
	for _, c := range clauses {
		views = append(views, clauseView{
			ID:    c.ID,
			Title: c.Title,
			// The engine escapes clause text before inserting its own markup.
			Content: htmltemplate.HTML(a.engine.Render(c.Content, c.Variables, data, mode)),
		})
	}
	return views
}

func (a *Assembler) signDate(data models.ContractData) string {
	if v, ok := data[constants.FieldContractSignDate]; ok && utils.IsTruthy(v) {
		return a.engine.FormatDate(utils.ToString(v))
	}
	return constants.DefaultSignDate
}

// DocumentTitle is the contract title field, or the type name when it is empty
func DocumentTitle(ct models.ContractType, data models.ContractData) string {
	if v, ok := data[constants.FieldContractTitle]; ok && utils.IsTruthy(v) {
		return utils.ToString(v)
	}
	return ct.Name
}

func firstFilled(data models.ContractData, fields []string, fallback string) string {
	for _, f := range fields {
		if v, ok := data[f]; ok && utils.IsTruthy(v) {
			return utils.ToString(v)
		}
	}
	return fallback
}

func signatureHTML(text string) htmltemplate.HTML {
	escaped := html.EscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	return htmltemplate.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}
