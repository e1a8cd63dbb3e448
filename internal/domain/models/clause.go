package models

import (
	"encoding/json"
	"time"
)

// Clause is one numbered provision of a contract.
// Content may hold {{key}}, {{if:field}}…{{/if}} and {{calc:expr}} markers;
// Variables maps each placeholder key to its human label.
type Clause struct {
	ID        string            `json:"id" yaml:"id"`
	Title     string            `json:"title" yaml:"title"`
	Content   string            `json:"content" yaml:"content"`
	Required  bool              `json:"required" yaml:"required"`
	Variables map[string]string `json:"variables" yaml:"variables"`
	Order     int               `json:"order" yaml:"order"`
	CreatedAt time.Time         `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt" yaml:"updatedAt"`
}

// Clone returns a deep copy
func (c Clause) Clone() Clause {
	out := c
	out.Variables = make(map[string]string, len(c.Variables))
	for k, v := range c.Variables {
		out.Variables[k] = v
	}
	return out
}

// CloneClauses deep-copies a clause list
func CloneClauses(in []Clause) []Clause {
	if in == nil {
		return nil
	}
	out := make([]Clause, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// ClausePatch carries the fields of a partial update. Nil means unchanged.
type ClausePatch struct {
	Title     *string           `json:"title,omitempty"`
	Content   *string           `json:"content,omitempty"`
	Required  *bool             `json:"required,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

// ClauseDraft is what the clause editor submits. Variables may be a JSON
// object or a string holding JSON object text.
type ClauseDraft struct {
	ID        string          `json:"id,omitempty"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Required  bool            `json:"required"`
	Variables json.RawMessage `json:"variables,omitempty"`
}

// ClauseFilter selects clauses by requiredness
type ClauseFilter string

const (
	ClauseFilterAll      ClauseFilter = "all"
	ClauseFilterRequired ClauseFilter = "required"
	ClauseFilterOptional ClauseFilter = "optional"
)

// ClauseStatistics summarizes the current clause list
type ClauseStatistics struct {
	Total                int `json:"total"`
	Required             int `json:"required"`
	Optional             int `json:"optional"`
	WithVariables        int `json:"withVariables"`
	AverageContentLength int `json:"averageContentLength"`
}
