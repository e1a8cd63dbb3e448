package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/domain/events"
	"github.com/contractgen/backend/internal/domain/models"
	"github.com/contractgen/backend/internal/domain/ports"
	apperrors "github.com/contractgen/backend/pkg/errors"
	"github.com/contractgen/backend/pkg/utils"
)

// User-facing clause validation messages
const (
	MsgClauseTitleRequired   = "条項タイトルは必須です"
	MsgClauseContentRequired = "条項内容は必須です"
	MsgClauseVariablesObject = "変数定義はオブジェクト形式で入力してください"
	MsgClauseTitleDuplicate  = "同じタイトルの条項が既に存在します"

	DuplicateTitleSuffix = " (copy)"
)

// ClauseStore is the ordered clause list of one contract.
// After every successful mutation Order equals the list position, and
// required clauses can never be deleted. Failed operations leave the list untouched.
type ClauseStore struct {
	mu        sync.RWMutex
	clauses   []models.Clause
	publisher ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewClauseStore creates an empty store. publisher may be nil.
func NewClauseStore(publisher ports.EventPublisher, logger *zap.Logger) *ClauseStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClauseStore{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     utils.GenerateID,
	}
}

// SetClock replaces the time source used for timestamps
func (s *ClauseStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Len returns the number of clauses
func (s *ClauseStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clauses)
}

// Clauses returns a deep copy of the list
func (s *ClauseStore) Clauses() []models.Clause {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := models.CloneClauses(s.clauses)
	if out == nil {
		out = []models.Clause{}
	}
	return out
}

// At returns a copy of the clause at index
func (s *ClauseStore) At(index int) (models.Clause, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkIndex(index); err != nil {
		return models.Clause{}, err
	}
	return s.clauses[index].Clone(), nil
}

// Load replaces the whole list with a deep copy of clauses. Missing ids,
// variable maps and timestamps are filled in.
func (s *ClauseStore) Load(ctx context.Context, clauses []models.Clause) {
	s.mu.Lock()
	now := s.now()
	loaded := models.CloneClauses(clauses)
	for i := range loaded {
		if loaded[i].ID == "" {
			loaded[i].ID = s.newID()
		}
		if loaded[i].Variables == nil {
			loaded[i].Variables = map[string]string{}
		}
		if loaded[i].CreatedAt.IsZero() {
			loaded[i].CreatedAt = now
		}
		if loaded[i].UpdatedAt.IsZero() {
			loaded[i].UpdatedAt = now
		}
	}
	s.clauses = loaded
	s.normalize()
	snapshot := models.CloneClauses(s.clauses)
	s.mu.Unlock()

	s.publish(ctx, events.ClauseChange{Action: events.ClausesLoaded, Clauses: snapshot})
}

// Reset empties the list
func (s *ClauseStore) Reset(ctx context.Context) {
	s.Load(ctx, nil)
}

// Add inserts clause at index (clamped to [0, len]) or appends when index is nil.
// An id is assigned when absent and both timestamps are set to now.
func (s *ClauseStore) Add(ctx context.Context, clause models.Clause, index *int) models.Clause {
	s.mu.Lock()
	c := clause.Clone()
	if c.ID == "" {
		c.ID = s.newID()
	}
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = now

	pos := len(s.clauses)
	if index != nil {
		pos = min(max(*index, 0), len(s.clauses))
	}
	s.clauses = insertAt(s.clauses, pos, c)
	s.normalize()
	stored := s.clauses[pos].Clone()
	snapshot := models.CloneClauses(s.clauses)
	s.mu.Unlock()

	s.publish(ctx, events.ClauseChange{Action: events.ClauseAdded, Clause: &stored, Index: pos, Clauses: snapshot})
	return stored
}

// Update merges patch into the clause at index. id, createdAt and order are preserved.
func (s *ClauseStore) Update(ctx context.Context, index int, patch models.ClausePatch) (models.Clause, error) {
	s.mu.Lock()
	if err := s.checkIndex(index); err != nil {
		s.mu.Unlock()
		return models.Clause{}, err
	}
	previous := s.clauses[index].Clone()
	c := s.clauses[index].Clone()
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Content != nil {
		c.Content = *patch.Content
	}
	if patch.Required != nil {
		c.Required = *patch.Required
	}
	if patch.Variables != nil {
		c.Variables = make(map[string]string, len(patch.Variables))
		for k, v := range patch.Variables {
			c.Variables[k] = v
		}
	}
	c.UpdatedAt = s.now()
	s.clauses[index] = c
	stored := c.Clone()
	snapshot := models.CloneClauses(s.clauses)
	s.mu.Unlock()

	s.publish(ctx, events.ClauseChange{Action: events.ClauseUpdated, Clause: &stored, Previous: &previous, Index: index, Clauses: snapshot})
	return stored, nil
}

// Delete removes the clause at index unless it is required
func (s *ClauseStore) Delete(ctx context.Context, index int) (models.Clause, error) {
	s.mu.Lock()
	if err := s.checkIndex(index); err != nil {
		s.mu.Unlock()
		return models.Clause{}, err
	}
	target := s.clauses[index]
	if target.Required {
		s.mu.Unlock()
		return models.Clause{}, apperrors.NewProtectedClauseError(target.Title)
	}
	removed := target.Clone()
	s.clauses = append(s.clauses[:index:index], s.clauses[index+1:]...)
	s.normalize()
	snapshot := models.CloneClauses(s.clauses)
	s.mu.Unlock()

	s.publish(ctx, events.ClauseChange{Action: events.ClauseDeleted, Clause: &removed, Index: index, Clauses: snapshot})
	return removed, nil
}

// Move removes the clause at from and reinserts it at to.
// Equal indexes are a no-op regardless of bounds.
func (s *ClauseStore) Move(ctx context.Context, from, to int) error {
	if from == to {
		return nil
	}
	s.mu.Lock()
	if err := s.checkIndex(from); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.checkIndex(to); err != nil {
		s.mu.Unlock()
		return err
	}
	moved := s.clauses[from]
	moved.UpdatedAt = s.now()
	rest := append(s.clauses[:from:from], s.clauses[from+1:]...)
	s.clauses = insertAt(rest, to, moved)
	s.normalize()
	stored := s.clauses[to].Clone()
	snapshot := models.CloneClauses(s.clauses)
	s.mu.Unlock()

	s.publish(ctx, events.ClauseChange{Action: events.ClauseMoved, Clause: &stored, Index: to, From: from, To: to, Clauses: snapshot})
	return nil
}

// MoveUp swaps the clause with its predecessor; a no-op for the first clause
func (s *ClauseStore) MoveUp(ctx context.Context, index int) error {
	if err := s.validIndex(index); err != nil {
		return err
	}
	if index == 0 {
		return nil
	}
	return s.Move(ctx, index, index-1)
}

// MoveDown swaps the clause with its successor; a no-op for the last clause
func (s *ClauseStore) MoveDown(ctx context.Context, index int) error {
	if err := s.validIndex(index); err != nil {
		return err
	}
	if index == s.Len()-1 {
		return nil
	}
	return s.Move(ctx, index, index+1)
}

// Duplicate inserts an optional copy of the clause right after it
func (s *ClauseStore) Duplicate(ctx context.Context, index int) (models.Clause, error) {
	s.mu.Lock()
	if err := s.checkIndex(index); err != nil {
		s.mu.Unlock()
		return models.Clause{}, err
	}
	c := s.clauses[index].Clone()
	c.ID = s.newID()
	c.Title += DuplicateTitleSuffix
	c.Required = false
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.clauses = insertAt(s.clauses, index+1, c)
	s.normalize()
	stored := s.clauses[index+1].Clone()
	snapshot := models.CloneClauses(s.clauses)
	s.mu.Unlock()

	s.publish(ctx, events.ClauseChange{Action: events.ClauseDuplicated, Clause: &stored, Index: index + 1, From: index, Clauses: snapshot})
	return stored, nil
}

// ValidateDraft checks an editor submission and returns the clause it describes.
// editing is the index of the clause being edited, nil for a new clause.
func (s *ClauseStore) ValidateDraft(draft models.ClauseDraft, editing *int) (models.Clause, error) {
	title := strings.TrimSpace(draft.Title)
	content := strings.TrimSpace(draft.Content)
	if title == "" {
		return models.Clause{}, apperrors.NewValidationError("title", MsgClauseTitleRequired)
	}
	if content == "" {
		return models.Clause{}, apperrors.NewValidationError("content", MsgClauseContentRequired)
	}
	variables, err := ParseVariables(draft.Variables)
	if err != nil {
		return models.Clause{}, err
	}
	if err := s.checkTitleUnique(title, editing); err != nil {
		return models.Clause{}, err
	}
	return models.Clause{
		ID:        draft.ID,
		Title:     title,
		Content:   content,
		Required:  draft.Required,
		Variables: variables,
	}, nil
}

// ValidatePatch applies the editor rules to the fields a partial update changes
func (s *ClauseStore) ValidatePatch(index int, patch models.ClausePatch) error {
	if err := s.validIndex(index); err != nil {
		return err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return apperrors.NewValidationError("title", MsgClauseTitleRequired)
		}
		if err := s.checkTitleUnique(title, &index); err != nil {
			return err
		}
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return apperrors.NewValidationError("content", MsgClauseContentRequired)
	}
	return nil
}

func (s *ClauseStore) checkTitleUnique(title string, editing *int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, c := range s.clauses {
		if editing != nil && i == *editing {
			continue
		}
		if c.Title == title {
			return apperrors.NewValidationError("title", MsgClauseTitleDuplicate)
		}
	}
	return nil
}

// NextTitle is the title pre-filled for a new clause
func (s *ClauseStore) NextTitle() string {
	return fmt.Sprintf("第%d条（）", s.Len()+1)
}

// Search returns clauses whose title or content contains query, case-insensitively
func (s *ClauseStore) Search(query string) []models.Clause {
	if query == "" {
		return s.Clauses()
	}
	q := strings.ToLower(query)
	return s.where(func(c models.Clause) bool {
		return strings.Contains(strings.ToLower(c.Title), q) || strings.Contains(strings.ToLower(c.Content), q)
	})
}

// Filter returns required, optional or all clauses
func (s *ClauseStore) Filter(filter models.ClauseFilter) []models.Clause {
	switch filter {
	case models.ClauseFilterRequired:
		return s.where(func(c models.Clause) bool { return c.Required })
	case models.ClauseFilterOptional:
		return s.where(func(c models.Clause) bool { return !c.Required })
	default:
		return s.Clauses()
	}
}

// Statistics summarizes the list
func (s *ClauseStore) Statistics() models.ClauseStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.ClauseStatistics{Total: len(s.clauses)}
	totalLen := 0
	for _, c := range s.clauses {
		if c.Required {
			stats.Required++
		}
		if len(c.Variables) > 0 {
			stats.WithVariables++
		}
		totalLen += utf8.RuneCountInString(c.Content)
	}
	stats.Optional = stats.Total - stats.Required
	if stats.Total > 0 {
		stats.AverageContentLength = int(math.Round(float64(totalLen) / float64(stats.Total)))
	}
	return stats
}

func (s *ClauseStore) where(keep func(models.Clause) bool) []models.Clause {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Clause{}
	for _, c := range s.clauses {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (s *ClauseStore) validIndex(index int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkIndex(index)
}

// checkIndex must be called with the lock held
func (s *ClauseStore) checkIndex(index int) error {
	if index < 0 || index >= len(s.clauses) {
		s.logger.Warn("clause index out of range", zap.Int("index", index), zap.Int("length", len(s.clauses)))
		return apperrors.NewIndexError(index, len(s.clauses))
	}
	return nil
}

// normalize must be called with the lock held
func (s *ClauseStore) normalize() {
	for i := range s.clauses {
		s.clauses[i].Order = i
	}
}

func (s *ClauseStore) publish(ctx context.Context, change events.ClauseChange) {
	if s.publisher == nil {
		return
	}
	// Listener failures are logged by the bus and never undo the mutation.
	_ = s.publisher.Publish(ctx, change.Action, change)
}

func insertAt(list []models.Clause, pos int, c models.Clause) []models.Clause {
	list = append(list, models.Clause{})
	copy(list[pos+1:], list[pos:])
	list[pos] = c
	return list
}

// ParseVariables decodes an editor variables value: a JSON object, a string
// holding JSON object text, or empty. Non-string labels are stringified.
func ParseVariables(raw json.RawMessage) (map[string]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return map[string]string{}, nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, apperrors.NewValidationError("variables", MsgClauseVariablesObject)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return map[string]string{}, nil
		}
		trimmed = []byte(text)
	}

	var generic any
	if err := json.Unmarshal(trimmed, &generic); err != nil {
		return nil, apperrors.NewValidationError("variables", MsgClauseVariablesObject)
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		return nil, apperrors.NewValidationError("variables", MsgClauseVariablesObject)
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		out[k] = utils.ToString(v)
	}
	return out, nil
}
