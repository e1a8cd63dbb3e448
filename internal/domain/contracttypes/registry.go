// Package contracttypes holds the contract field schema registry: the built-in
// contract templates embedded in the binary plus custom types added at runtime.
package contracttypes

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/contractgen/backend/internal/domain/models"
	apperrors "github.com/contractgen/backend/pkg/errors"
	"github.com/contractgen/backend/pkg/expression"
	"github.com/contractgen/backend/pkg/fieldtypes"
)

//go:embed contractTypes.json
var contractTypesFS embed.FS

// CustomTypeID is the built-in free-form template
const CustomTypeID = "custom"

// Registry maps contract type ids to their schema. Built-ins are immutable;
// custom types may be appended but never replace an existing id.
type Registry struct {
	mu    sync.RWMutex
	types map[string]models.ContractType
	order []string
	rules *expression.Engine
}

// NewRegistry loads the embedded built-in contract types
func NewRegistry(rules *expression.Engine) (*Registry, error) {
	if rules == nil {
		rules = expression.NewEngine()
	}
	r := &Registry{
		types: make(map[string]models.ContractType),
		rules: rules,
	}

	data, err := contractTypesFS.ReadFile("contractTypes.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded contract types: %w", err)
	}
	var builtins []models.ContractType
	if err := json.Unmarshal(data, &builtins); err != nil {
		return nil, fmt.Errorf("parse embedded contract types: %w", err)
	}
	for _, t := range builtins {
		if err := r.insert(t, false); err != nil {
			return nil, fmt.Errorf("built-in contract type %q: %w", t.ID, err)
		}
	}
	return r, nil
}

// Get returns a copy of the contract type
func (r *Registry) Get(id string) (models.ContractType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	if !ok {
		return models.ContractType{}, false
	}
	return t.Clone(), true
}

// Has reports whether id is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[id]
	return ok
}

// List returns summaries in registration order
func (r *Registry) List() []models.ContractTypeSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ContractTypeSummary, 0, len(r.order))
	for _, id := range r.order {
		t := r.types[id]
		out = append(out, models.ContractTypeSummary{ID: t.ID, Name: t.Name, Description: t.Description, Custom: t.Custom})
	}
	return out
}

// Custom returns copies of every runtime-added type, in registration order
func (r *Registry) Custom() []models.ContractType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.ContractType
	for _, id := range r.order {
		if t := r.types[id]; t.Custom {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Add registers a custom contract type
func (r *Registry) Add(t models.ContractType) error {
	return r.insert(t, true)
}

func (r *Registry) insert(t models.ContractType, custom bool) error {
	t = t.Clone()
	t.ID = strings.TrimSpace(t.ID)
	t.Custom = custom
	if err := r.validate(&t); err != nil {
		return err
	}
	for i := range t.DefaultClauses {
		t.DefaultClauses[i].Order = i
		if t.DefaultClauses[i].Variables == nil {
			t.DefaultClauses[i].Variables = map[string]string{}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.ID]; exists {
		return apperrors.NewConflictError("contract type", "id", t.ID)
	}
	r.types[t.ID] = t
	r.order = append(r.order, t.ID)
	return nil
}

func (r *Registry) validate(t *models.ContractType) error {
	if t.ID == "" {
		return apperrors.NewValidationError("id", "タイプ名を入力してください")
	}
	if strings.TrimSpace(t.Name) == "" {
		t.Name = t.ID
	}

	names := make(map[string]struct{}, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			return apperrors.NewValidationError("fields", "field name is required")
		}
		if _, dup := names[f.Name]; dup {
			return apperrors.NewValidationError("fields", fmt.Sprintf("duplicate field %q", f.Name))
		}
		names[f.Name] = struct{}{}
		if !fieldtypes.IsKnown(f.Type) {
			return apperrors.NewValidationError(f.Name, fmt.Sprintf("unknown field type %q", f.Type))
		}
		if fieldtypes.GetRegistry().HasOptions(f.Type) && len(f.Options) == 0 {
			return apperrors.NewValidationError(f.Name, "options are required for this field type")
		}
	}

	titles := make(map[string]struct{}, len(t.DefaultClauses))
	for _, c := range t.DefaultClauses {
		if strings.TrimSpace(c.Title) == "" {
			return apperrors.NewValidationError("defaultClauses", "条項タイトルは必須です")
		}
		if _, dup := titles[c.Title]; dup {
			return apperrors.NewValidationError("defaultClauses", "同じタイトルの条項が既に存在します")
		}
		titles[c.Title] = struct{}{}
	}

	for _, rule := range t.Rules {
		if err := r.rules.Validate(rule.Expression); err != nil {
			return apperrors.NewValidationError("rules", fmt.Sprintf("invalid rule %q: %v", rule.Expression, err))
		}
		if strings.TrimSpace(rule.Message) == "" {
			return apperrors.NewValidationError("rules", "rule message is required")
		}
	}
	return nil
}

// NewCustomType builds the minimal template offered when a user creates a
// new contract type: two party names, a title and one purpose clause.
func NewCustomType(id, description string) models.ContractType {
	id = strings.TrimSpace(id)
	return models.ContractType{
		ID:          id,
		Name:        id,
		Description: strings.TrimSpace(description),
		Fields: []models.Field{
			{Name: "partyAName", Label: "甲", Type: "text", Required: true, Placeholder: "当事者A"},
			{Name: "partyBName", Label: "乙", Type: "text", Required: true, Placeholder: "当事者B"},
			{Name: "contractTitle", Label: "契約書タイトル", Type: "text", Required: true, Placeholder: id},
		},
		DefaultClauses: []models.Clause{
			{
				ID:        "custom_purpose",
				Title:     "第1条（目的）",
				Content:   "この契約の目的を記載してください。",
				Variables: map[string]string{},
			},
		},
	}
}
