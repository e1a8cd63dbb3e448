package events

import "github.com/contractgen/backend/internal/domain/models"

// EventType defines the type of event in the system
type EventType string

const (
	// Clause Events
	ClauseAdded      EventType = "clause.added"
	ClauseUpdated    EventType = "clause.updated"
	ClauseDeleted    EventType = "clause.deleted"
	ClauseMoved      EventType = "clause.moved"
	ClauseDuplicated EventType = "clause.duplicated"
	ClausesLoaded    EventType = "clause.loaded"

	// Contract Events
	FieldChanged     EventType = "contract.field_changed"
	TypeChanged      EventType = "contract.type_changed"
	StateLoaded      EventType = "contract.state_loaded"
	CustomTypeAdded  EventType = "contract.custom_type_added"
	DocumentRendered EventType = "contract.document_generated"

	// Preview Events
	PreviewRendered EventType = "preview.rendered"

	// Storage Events
	StateSaved    EventType = "storage.saved"
	BackupCreated EventType = "storage.backup_created"
	StateImported EventType = "storage.imported"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// ClauseChange is the payload of every clause.* event
type ClauseChange struct {
	Action   EventType       `json:"action"`
	Clause   *models.Clause  `json:"clause,omitempty"`
	Previous *models.Clause  `json:"previous,omitempty"`
	Index    int             `json:"index"`
	From     int             `json:"from,omitempty"`
	To       int             `json:"to,omitempty"`
	Clauses  []models.Clause `json:"clauses"`
}

// FieldChange is the payload of contract.field_changed
type FieldChange struct {
	Name     string              `json:"name"`
	Value    any                 `json:"value"`
	Previous any                 `json:"previous"`
	Data     models.ContractData `json:"data"`
}

// TypeChange is the payload of contract.type_changed
type TypeChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PreviewResult is the payload of preview.rendered
type PreviewResult struct {
	HTML       string `json:"html"`
	Sequence   uint64 `json:"sequence"`
	Discarded  int    `json:"discarded"`
	RenderedAt int64  `json:"renderedAt"`
}
