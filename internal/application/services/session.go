package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/domain/contracttypes"
	"github.com/contractgen/backend/internal/domain/events"
	"github.com/contractgen/backend/internal/domain/models"
	"github.com/contractgen/backend/internal/domain/ports"
	"github.com/contractgen/backend/pkg/constants"
	apperrors "github.com/contractgen/backend/pkg/errors"
	"github.com/contractgen/backend/pkg/fieldtypes"
	"github.com/contractgen/backend/pkg/utils"
	"github.com/contractgen/backend/pkg/validator"
)

// Generate-time validation messages
const (
	MsgInvalidContractType   = "無効な契約書タイプです"
	MsgNoClauses             = "条項が設定されていません"
	MsgMissingRequiredClause = "必須条項が不足しています"
	MsgFieldRequiredFormat   = "%sは必須入力です"
)

// SignDateLayout is how the default signing date is stored in contract data
const SignDateLayout = "2006-01-02"

// SessionDeps are the collaborators a Session coordinates
type SessionDeps struct {
	Types      *contracttypes.Registry
	Clauses    *ClauseStore
	Assembler  *Assembler
	Preview    *PreviewService
	Storage    *StorageService
	Rules      ports.RuleEvaluator
	Publisher  ports.EventPublisher
	Validators *validator.Registry
	Logger     *zap.Logger
}

// Session is the editing state of one contract: the selected type, the
// entered data and the clause list. All methods are safe for concurrent use
// and run one at a time.
type Session struct {
	mu sync.Mutex

	types      *contracttypes.Registry
	clauses    *ClauseStore
	assembler  *Assembler
	preview    *PreviewService
	storage    *StorageService
	rules      ports.RuleEvaluator
	publisher  ports.EventPublisher
	validators *validator.Registry
	logger     *zap.Logger
	now        func() time.Time

	contractType string
	data         models.ContractData
	lastDocument string
}

// NewSession creates a session with no contract type selected
func NewSession(deps SessionDeps) *Session {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validators == nil {
		deps.Validators = validator.GetRegistry()
	}
	return &Session{
		types:      deps.Types,
		clauses:    deps.Clauses,
		assembler:  deps.Assembler,
		preview:    deps.Preview,
		storage:    deps.Storage,
		rules:      deps.Rules,
		publisher:  deps.Publisher,
		validators: deps.Validators,
		logger:     deps.Logger,
		now:        time.Now,
		data:       models.ContractData{},
	}
}

// SetClock replaces the time source used for the default signing date
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Clauses exposes the clause store for read-only queries
func (s *Session) Clauses() *ClauseStore {
	return s.clauses
}

// ContractType returns the selected contract type
func (s *Session) ContractType() (models.ContractType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentType()
}

func (s *Session) currentType() (models.ContractType, bool) {
	if s.contractType == "" {
		return models.ContractType{}, false
	}
	return s.types.Get(s.contractType)
}

// Data returns a copy of the entered contract data
func (s *Session) Data() models.ContractData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// SelectType switches to another contract type, resetting the data to the
// type's defaults and the clause list to its default clauses
func (s *Session) SelectType(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, ok := s.types.Get(id)
	if !ok {
		return apperrors.NewNotFoundError("contract type", id)
	}

	previous := s.contractType
	s.contractType = ct.ID
	s.data = s.defaultData(ct)
	s.lastDocument = ""
	s.clauses.Load(ctx, ct.DefaultClauses)

	s.logger.Info("contract type selected", zap.String("from", previous), zap.String("to", ct.ID))
	s.publish(ctx, events.TypeChanged, events.TypeChange{From: previous, To: ct.ID})
	s.afterChange(ctx)
	return nil
}

func (s *Session) defaultData(ct models.ContractType) models.ContractData {
	data := models.ContractData{
		constants.FieldContractSignDate: s.now().Format(SignDateLayout),
	}
	for _, f := range ct.Fields {
		if f.Default != nil {
			data[f.Name] = f.Default
		}
	}
	return data
}

// SetField stores one value after checking it against the field's type validators.
// A rejected value leaves the data unchanged.
func (s *Session) SetField(ctx context.Context, name string, value any) error {
	return s.SetFields(ctx, map[string]any{name: value})
}

// SetFields stores several values at once. Either every value is accepted or none is.
func (s *Session) SetFields(ctx context.Context, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, _ := s.currentType()
	names := make([]string, 0, len(values))
	for name := range values {
		if strings.TrimSpace(name) == "" {
			return apperrors.NewValidationError("name", "field name is required")
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if field, ok := ct.Field(name); ok {
			if err := s.checkField(field, values[name]); err != nil {
				return err
			}
		}
	}

	changes := make([]events.FieldChange, 0, len(names))
	for _, name := range names {
		previous := s.data[name]
		s.data[name] = values[name]
		changes = append(changes, events.FieldChange{Name: name, Value: values[name], Previous: previous})
	}
	for _, change := range changes {
		change.Data = s.data.Clone()
		s.publish(ctx, events.FieldChanged, change)
	}
	s.schedulePreview()
	return nil
}

func (s *Session) checkField(field models.Field, value any) error {
	config := fieldConfig(field)
	for _, name := range fieldtypes.GetValidators(field.Type) {
		if err := s.validators.Validate(name, value, config); err != nil {
			return apperrors.NewValidationError(field.Name, err.Error())
		}
	}
	return nil
}

func fieldConfig(field models.Field) map[string]any {
	config := map[string]any{"label": field.Label}
	if len(field.Options) > 0 {
		config["options"] = field.Options
	}
	if field.Min != nil {
		config["min"] = *field.Min
	}
	if field.Max != nil {
		config["max"] = *field.Max
	}
	if field.MaxLength > 0 {
		config["maxLength"] = field.MaxLength
	}
	if field.Pattern != "" {
		config["pattern"] = field.Pattern
	}
	return config
}

// SaveClause validates an editor submission and adds it, or updates the
// clause at editing when editing is set
func (s *Session) SaveClause(ctx context.Context, draft models.ClauseDraft, editing *int) (models.Clause, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clause, err := s.clauses.ValidateDraft(draft, editing)
	if err != nil {
		return models.Clause{}, err
	}
	if editing == nil {
		added := s.clauses.Add(ctx, clause, nil)
		s.schedulePreview()
		return added, nil
	}

	updated, err := s.clauses.Update(ctx, *editing, models.ClausePatch{
		Title:     &clause.Title,
		Content:   &clause.Content,
		Required:  &clause.Required,
		Variables: clause.Variables,
	})
	if err != nil {
		return models.Clause{}, err
	}
	s.schedulePreview()
	return updated, nil
}

// InsertClause validates draft like SaveClause and inserts it at index.
// Out-of-range positions are clamped to the list bounds.
func (s *Session) InsertClause(ctx context.Context, draft models.ClauseDraft, index int) (models.Clause, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clause, err := s.clauses.ValidateDraft(draft, nil)
	if err != nil {
		return models.Clause{}, err
	}
	added := s.clauses.Add(ctx, clause, &index)
	s.schedulePreview()
	return added, nil
}

// UpdateClause applies a partial update to the clause at index
func (s *Session) UpdateClause(ctx context.Context, index int, patch models.ClausePatch) (models.Clause, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.clauses.ValidatePatch(index, patch); err != nil {
		return models.Clause{}, err
	}
	updated, err := s.clauses.Update(ctx, index, patch)
	if err != nil {
		return models.Clause{}, err
	}
	s.schedulePreview()
	return updated, nil
}

// DeleteClause removes the clause at index. Required clauses are refused.
func (s *Session) DeleteClause(ctx context.Context, index int) (models.Clause, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed, err := s.clauses.Delete(ctx, index)
	if err != nil {
		return models.Clause{}, err
	}
	s.schedulePreview()
	return removed, nil
}

// MoveClause moves the clause at from to position to
func (s *Session) MoveClause(ctx context.Context, from, to int) error {
	return s.mutate(func() error { return s.clauses.Move(ctx, from, to) })
}

// MoveUp swaps the clause at index with its predecessor
func (s *Session) MoveUp(ctx context.Context, index int) error {
	return s.mutate(func() error { return s.clauses.MoveUp(ctx, index) })
}

// MoveDown swaps the clause at index with its successor
func (s *Session) MoveDown(ctx context.Context, index int) error {
	return s.mutate(func() error { return s.clauses.MoveDown(ctx, index) })
}

// DuplicateClause inserts an optional copy right after the clause at index
func (s *Session) DuplicateClause(ctx context.Context, index int) (models.Clause, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup, err := s.clauses.Duplicate(ctx, index)
	if err != nil {
		return models.Clause{}, err
	}
	s.schedulePreview()
	return dup, nil
}

func (s *Session) mutate(op func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := op(); err != nil {
		return err
	}
	s.schedulePreview()
	return nil
}

// Snapshot returns a deep copy of the current state without timestamp or version
func (s *Session) Snapshot() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() models.State {
	return models.State{
		ContractType:     s.contractType,
		ContractData:     s.data.Clone(),
		ContractArticles: s.clauses.Clauses(),
	}
}

// LoadState replaces the session with a saved or imported state
func (s *Session) LoadState(ctx context.Context, state models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.types.Has(state.ContractType) {
		return apperrors.NewNotFoundError("contract type", state.ContractType)
	}
	previous := s.contractType
	s.contractType = state.ContractType
	s.data = state.ContractData.Clone()
	if s.data == nil {
		s.data = models.ContractData{}
	}
	s.lastDocument = ""
	s.clauses.Load(ctx, state.ContractArticles)

	if previous != state.ContractType {
		s.publish(ctx, events.TypeChanged, events.TypeChange{From: previous, To: state.ContractType})
	}
	s.publish(ctx, events.StateLoaded, s.snapshot())
	s.schedulePreview()
	return nil
}

// Restore loads the last saved state, if any. It reports whether one was found.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	saved, err := s.storage.Load(ctx)
	if err != nil {
		return false, err
	}
	if saved == nil {
		return false, nil
	}
	if err := s.LoadState(ctx, *saved); err != nil {
		return false, err
	}
	return true, nil
}

// Save persists the current state
func (s *Session) Save(ctx context.Context) (models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.Save(ctx, s.snapshot())
}

// HasUnsavedChanges reports whether the state differs from the last save
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.HasChanged(s.snapshot())
}

// Autosave saves the state only when it changed since the last save
func (s *Session) Autosave(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contractType == "" {
		return false, nil
	}
	return s.autosave(ctx)
}

func (s *Session) autosave(ctx context.Context) (bool, error) {
	if s.storage == nil {
		return false, nil
	}
	state := s.snapshot()
	if !s.storage.HasChanged(state) {
		return false, nil
	}
	if _, err := s.storage.Save(ctx, state); err != nil {
		return false, err
	}
	return true, nil
}

// Validate runs the checks that gate document generation
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validate()
}

func (s *Session) validate() error {
	ct, ok := s.currentType()
	if !ok {
		return apperrors.NewValidationError("contractType", MsgInvalidContractType)
	}
	for _, f := range ct.Fields {
		if f.Required && utils.IsBlank(s.data[f.Name]) {
			return apperrors.NewValidationError(f.Name, fmt.Sprintf(MsgFieldRequiredFormat, f.Label))
		}
	}

	clauses := s.clauses.Clauses()
	if len(clauses) == 0 {
		return apperrors.NewValidationError("contractArticles", MsgNoClauses)
	}
	hasRequired := false
	for _, c := range clauses {
		if c.Required {
			hasRequired = true
			break
		}
	}
	if !hasRequired && ct.HasRequiredClause() {
		return apperrors.NewValidationError("contractArticles", MsgMissingRequiredClause)
	}

	return s.checkRules(ct)
}

func (s *Session) checkRules(ct models.ContractType) error {
	if s.rules == nil || len(ct.Rules) == 0 {
		return nil
	}
	env := make(map[string]any, len(ct.Fields)+len(s.data))
	for _, f := range ct.Fields {
		env[f.Name] = ""
	}
	for k, v := range s.data {
		env[k] = v
	}
	for _, rule := range ct.Rules {
		ok, err := s.rules.EvaluateBool(rule.Expression, env)
		if err != nil {
			s.logger.Warn("contract rule failed to evaluate",
				zap.String("type", ct.ID),
				zap.String("expression", rule.Expression),
				zap.Error(err))
			return apperrors.NewValidationError("rules", rule.Message)
		}
		if !ok {
			return apperrors.NewValidationError("rules", rule.Message)
		}
	}
	return nil
}

// Generate validates the contract and renders the standalone document
func (s *Session) Generate(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(); err != nil {
		return "", err
	}
	ct, _ := s.currentType()
	html, err := s.assembler.Export(ct, s.data.Clone(), s.clauses.Clauses())
	if err != nil {
		return "", apperrors.NewInternalError("failed to generate contract", err)
	}
	s.lastDocument = html

	s.logger.Info("contract generated",
		zap.String("type", ct.ID),
		zap.Int("clauses", s.clauses.Len()),
		zap.Int("bytes", len(html)))
	s.publish(ctx, events.DocumentRendered, DocumentTitle(ct, s.data))
	return html, nil
}

// LastDocument returns the most recently generated document
func (s *Session) LastDocument() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDocument, s.lastDocument != ""
}

// Preview returns the latest rendered preview
func (s *Session) Preview() (events.PreviewResult, bool) {
	return s.preview.Latest()
}

// RefreshPreview renders the current state immediately, dropping queued previews
func (s *Session) RefreshPreview(ctx context.Context) (events.PreviewResult, error) {
	s.mu.Lock()
	snapshot, ok := s.previewSnapshot()
	s.mu.Unlock()
	if !ok {
		return events.PreviewResult{}, apperrors.NewValidationError("contractType", MsgInvalidContractType)
	}
	return s.preview.ForceRefresh(ctx, snapshot)
}

// RegisterCustomType adds a user-defined contract type and persists the custom set
func (s *Session) RegisterCustomType(ctx context.Context, id, description string) (models.ContractType, error) {
	id = strings.TrimSpace(id)
	if s.types.Has(id) {
		return models.ContractType{}, apperrors.NewConflictError("contract type", "id", id)
	}
	return s.AddCustomType(ctx, contracttypes.NewCustomType(id, description))
}

// AddCustomType registers a full contract type definition and persists the custom set
func (s *Session) AddCustomType(ctx context.Context, ct models.ContractType) (models.ContractType, error) {
	if err := s.types.Add(ct); err != nil {
		return models.ContractType{}, err
	}
	added, _ := s.types.Get(strings.TrimSpace(ct.ID))
	if s.storage != nil {
		if err := s.storage.SaveCustomTypes(ctx, s.types.Custom()); err != nil {
			s.logger.Warn("failed to persist custom contract types", zap.Error(err))
		}
	}
	s.publish(ctx, events.CustomTypeAdded, added)
	return added, nil
}

// Statistics reports how complete the contract is
func (s *Session) Statistics() models.CompletionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.CompletionStats{}
	for _, v := range s.data {
		if utils.IsTruthy(v) {
			stats.FilledFields++
		}
	}
	clauses := s.clauses.Clauses()
	stats.TotalArticles = len(clauses)
	for _, c := range clauses {
		stats.TotalVariables += len(c.Variables)
		for key := range c.Variables {
			if utils.IsTruthy(s.data[key]) {
				stats.FilledVariables++
			}
		}
	}
	stats.CompletionPercentage = 100
	if stats.TotalVariables > 0 {
		stats.CompletionPercentage = int(math.Round(float64(stats.FilledVariables) / float64(stats.TotalVariables) * 100))
	}
	return stats
}

func (s *Session) previewSnapshot() (PreviewSnapshot, bool) {
	ct, ok := s.currentType()
	if !ok {
		return PreviewSnapshot{}, false
	}
	return PreviewSnapshot{
		ContractType: ct,
		Data:         s.data.Clone(),
		Clauses:      s.clauses.Clauses(),
	}, true
}

func (s *Session) schedulePreview() {
	if s.preview == nil {
		return
	}
	if snapshot, ok := s.previewSnapshot(); ok {
		s.preview.Enqueue(snapshot)
	}
}

// afterChange queues a preview and autosaves a type switch
func (s *Session) afterChange(ctx context.Context) {
	s.schedulePreview()
	if _, err := s.autosave(ctx); err != nil {
		s.logger.Warn("autosave failed", zap.Error(err))
	}
}

func (s *Session) publish(ctx context.Context, eventType events.EventType, payload any) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, eventType, payload)
}
