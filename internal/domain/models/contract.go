package models

// ContractData maps field names to scalar values (string, bool, number or nil)
type ContractData map[string]any

// Clone returns a shallow copy; values are scalars
func (d ContractData) Clone() ContractData {
	out := make(ContractData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Field declares one entry of user-supplied contract data
type Field struct {
	Name        string   `json:"name" yaml:"name"`
	Label       string   `json:"label" yaml:"label"`
	Type        string   `json:"type" yaml:"type"`
	Required    bool     `json:"required" yaml:"required"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
	Min         *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern     string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Rule is a boolean expression over contract data checked before generation
type Rule struct {
	Expression string `json:"expression" yaml:"expression"`
	Message    string `json:"message" yaml:"message"`
}

// ContractType bundles the field list and default clause set of one template
type ContractType struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Fields         []Field  `json:"fields" yaml:"fields"`
	DefaultClauses []Clause `json:"defaultClauses" yaml:"defaultClauses"`
	Rules          []Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
	Custom         bool     `json:"custom,omitempty" yaml:"-"`
}

// Field looks up a field by name
func (t *ContractType) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasRequiredClause reports whether any default clause is required
func (t *ContractType) HasRequiredClause() bool {
	for _, c := range t.DefaultClauses {
		if c.Required {
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (t ContractType) Clone() ContractType {
	out := t
	out.Fields = append([]Field(nil), t.Fields...)
	for i := range out.Fields {
		out.Fields[i].Options = append([]string(nil), t.Fields[i].Options...)
	}
	out.DefaultClauses = CloneClauses(t.DefaultClauses)
	out.Rules = append([]Rule(nil), t.Rules...)
	return out
}

// ContractTypeSummary is the list view of a contract type
type ContractTypeSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Custom      bool   `json:"custom,omitempty"`
}
