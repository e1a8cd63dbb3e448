package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/domain/contracttypes"
	"github.com/contractgen/backend/internal/domain/events"
	"github.com/contractgen/backend/internal/domain/models"
	"github.com/contractgen/backend/internal/domain/ports"
	"github.com/contractgen/backend/pkg/constants"
	apperrors "github.com/contractgen/backend/pkg/errors"
	"github.com/contractgen/backend/pkg/utils"
)

// Import rejection reasons shown to the user
const (
	MsgImportNotJSON     = "JSONファイルを選択してください"
	MsgImportInvalidData = "無効なデータ形式です"
	MsgImportUnreadable  = "ファイルの読み込みに失敗しました"
)

// ExportTimestampLayout is the timestamp suffix of exported file names
const ExportTimestampLayout = "2006-01-02-15-04-05"

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
var filenameSpaces = regexp.MustCompile(`\s+`)

// StorageService persists contract state, exports and backups through a blob store
type StorageService struct {
	store         ports.BlobStore
	types         *contracttypes.Registry
	publisher     ports.EventPublisher
	logger        *zap.Logger
	retentionDays int

	mu        sync.Mutex
	lastSaved *models.State
	now       func() time.Time
}

// NewStorageService creates a storage service. publisher may be nil.
func NewStorageService(store ports.BlobStore, types *contracttypes.Registry, publisher ports.EventPublisher, logger *zap.Logger, retentionDays int) *StorageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retentionDays <= 0 {
		retentionDays = constants.DefaultBackupRetentionDays
	}
	return &StorageService{
		store:         store,
		types:         types,
		publisher:     publisher,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// SetClock replaces the time source
func (s *StorageService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *StorageService) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// Save stamps state with the current time and format version and stores it
// as the saved record. The stamped copy is returned.
func (s *StorageService) Save(ctx context.Context, state models.State) (models.State, error) {
	saved := state.Clone()
	saved.Timestamp = s.clock().UTC()
	saved.Version = constants.StateVersion

	payload, err := json.Marshal(saved)
	if err != nil {
		return models.State{}, fmt.Errorf("encode state: %w", err)
	}
	if err := s.store.Put(ctx, constants.StorageKey, payload); err != nil {
		s.logger.Error("failed to save contract state", zap.Error(err))
		return models.State{}, fmt.Errorf("save state: %w", err)
	}

	s.remember(saved)
	s.logger.Debug("contract state saved",
		zap.String("contractType", saved.ContractType),
		zap.Int("clauses", len(saved.ContractArticles)))
	s.publish(ctx, events.StateSaved, saved)
	return saved, nil
}

// Load returns the saved record, or nil when nothing has been saved
func (s *StorageService) Load(ctx context.Context) (*models.State, error) {
	state, err := s.read(ctx, constants.StorageKey)
	if err != nil || state == nil {
		return nil, err
	}
	s.remember(*state)
	return state, nil
}

func (s *StorageService) read(ctx context.Context, key string) (*models.State, error) {
	payload, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if payload == nil {
		return nil, nil
	}
	var state models.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &state, nil
}

func (s *StorageService) remember(state models.State) {
	c := state.Clone()
	s.mu.Lock()
	s.lastSaved = &c
	s.mu.Unlock()
}

// HasChanged reports whether state differs from the last saved or loaded
// record. Timestamps and the format version are ignored.
func (s *StorageService) HasChanged(state models.State) bool {
	s.mu.Lock()
	last := s.lastSaved
	s.mu.Unlock()
	if last == nil {
		return true
	}
	return !cmp.Equal(normalizeForCompare(*last), normalizeForCompare(state),
		cmpopts.IgnoreFields(models.State{}, "Timestamp", "Version"),
		cmpopts.EquateEmpty())
}

// normalizeForCompare round-trips state through JSON so numbers decoded from
// storage compare equal to numbers set in memory
func normalizeForCompare(state models.State) models.State {
	payload, err := json.Marshal(state)
	if err != nil {
		return state
	}
	var out models.State
	if err := json.Unmarshal(payload, &out); err != nil {
		return state
	}
	return out
}

// ExportFile renders state as the downloadable JSON document and suggests a file name
func (s *StorageService) ExportFile(state models.State) ([]byte, string, error) {
	now := s.clock()
	file := models.ExportFile{
		State:      state.Clone(),
		ExportedAt: now.UTC(),
		Generator:  constants.GeneratorName,
	}
	file.Version = constants.StateVersion
	if file.Timestamp.IsZero() {
		file.Timestamp = now.UTC()
	}

	payload, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode export: %w", err)
	}
	return payload, s.ExportFilename(state, now), nil
}

// ExportFilename builds <title>-<type>-<timestamp>.json
func (s *StorageService) ExportFilename(state models.State, at time.Time) string {
	contractType := state.ContractType
	if contractType == "" {
		contractType = contracttypes.CustomTypeID
	}
	name := ""
	if v, ok := state.ContractData[constants.FieldContractTitle]; ok && utils.IsTruthy(v) {
		name = utils.ToString(v)
	} else if ct, ok := s.types.Get(contractType); ok {
		name = ct.Name
	} else {
		name = "契約書"
	}
	return fmt.Sprintf("%s-%s-%s.json", SanitizeFilename(name), contractType, at.UTC().Format(ExportTimestampLayout))
}

// SanitizeFilename replaces path and shell metacharacters and whitespace with '-'
// and lowercases the result
func SanitizeFilename(name string) string {
	if name == "" {
		return "untitled"
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "-")
	name = filenameSpaces.ReplaceAllString(name, "-")
	return strings.ToLower(name)
}

// ImportFile validates an uploaded state file and decodes it. Nothing is
// stored; the caller loads the returned state into its session.
func (s *StorageService) ImportFile(ctx context.Context, name string, payload []byte) (models.State, error) {
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		return models.State{}, apperrors.NewImportFormatError(MsgImportNotJSON, nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return models.State{}, apperrors.NewImportFormatError(MsgImportUnreadable, err)
	}
	for _, required := range []string{"contractType", "contractData"} {
		raw, ok := fields[required]
		if !ok || strings.TrimSpace(string(raw)) == "null" {
			s.logger.Warn("import rejected: missing field", zap.String("field", required))
			return models.State{}, apperrors.NewImportFormatError(MsgImportInvalidData, fmt.Errorf("missing %s", required))
		}
	}
	if raw, ok := fields["contractArticles"]; ok {
		trimmed := strings.TrimSpace(string(raw))
		if trimmed != "null" && !strings.HasPrefix(trimmed, "[") {
			return models.State{}, apperrors.NewImportFormatError(MsgImportInvalidData, errors.New("contractArticles must be an array"))
		}
	}

	var state models.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return models.State{}, apperrors.NewImportFormatError(MsgImportInvalidData, err)
	}
	if !s.types.Has(state.ContractType) {
		s.logger.Warn("import rejected: unknown contract type", zap.String("contractType", state.ContractType))
		return models.State{}, apperrors.NewImportFormatError(MsgImportInvalidData, fmt.Errorf("unknown contract type %q", state.ContractType))
	}
	if state.ContractArticles == nil {
		state.ContractArticles = []models.Clause{}
	}

	s.publish(ctx, events.StateImported, state.Clone())
	return state, nil
}

// CreateBackup copies the saved record to today's backup key and prunes old backups.
// It returns apperrors.ErrNoSavedState when nothing has been saved yet.
func (s *StorageService) CreateBackup(ctx context.Context) (string, error) {
	payload, err := s.store.Get(ctx, constants.StorageKey)
	if err != nil {
		return "", fmt.Errorf("read saved state: %w", err)
	}
	if payload == nil {
		return "", apperrors.ErrNoSavedState
	}

	key := constants.BackupKey(s.clock().UTC())
	if err := s.store.Put(ctx, key, payload); err != nil {
		return "", fmt.Errorf("write backup %s: %w", key, err)
	}
	s.logger.Info("backup created", zap.String("key", key))

	if _, err := s.CleanupOldBackups(ctx); err != nil {
		s.logger.Warn("backup cleanup failed", zap.Error(err))
	}
	s.publish(ctx, events.BackupCreated, key)
	return key, nil
}

// CleanupOldBackups deletes backups dated before the retention window
func (s *StorageService) CleanupOldBackups(ctx context.Context) (int, error) {
	keys, err := s.store.List(ctx, constants.BackupKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("list backups: %w", err)
	}
	cutoff := s.clock().UTC().AddDate(0, 0, -s.retentionDays).Format(constants.BackupDateLayout)

	removed := 0
	for _, key := range keys {
		date := strings.TrimPrefix(key, constants.BackupKeyPrefix)
		if date >= cutoff {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("delete backup %s: %w", key, err)
		}
		s.logger.Info("old backup removed", zap.String("key", key))
		removed++
	}
	return removed, nil
}

// ListBackups returns every backup, newest first
func (s *StorageService) ListBackups(ctx context.Context) ([]models.BackupInfo, error) {
	keys, err := s.store.List(ctx, constants.BackupKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	backups := make([]models.BackupInfo, 0, len(keys))
	for _, key := range keys {
		date, ok := constants.BackupDate(key)
		if !ok {
			continue
		}
		payload, err := s.store.Get(ctx, key)
		if err != nil || payload == nil {
			s.logger.Warn("unreadable backup skipped", zap.String("key", key), zap.Error(err))
			continue
		}
		var head struct {
			ContractType string `json:"contractType"`
		}
		_ = json.Unmarshal(payload, &head)
		backups = append(backups, models.BackupInfo{
			Key:          key,
			Date:         date,
			ContractType: head.ContractType,
			Size:         len(payload),
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Date.After(backups[j].Date) })
	return backups, nil
}

// RestoreBackup decodes the backup stored under key
func (s *StorageService) RestoreBackup(ctx context.Context, key string) (models.State, error) {
	if !constants.IsBackupKey(key) {
		return models.State{}, apperrors.NewNotFoundError("backup", key)
	}
	state, err := s.read(ctx, key)
	if err != nil {
		return models.State{}, err
	}
	if state == nil {
		return models.State{}, apperrors.NewNotFoundError("backup", key)
	}
	return *state, nil
}

// Usage reports how many application keys and bytes the store holds
func (s *StorageService) Usage(ctx context.Context) (models.StorageUsage, error) {
	var usage models.StorageUsage
	for _, prefix := range []string{constants.StorageKey, constants.CustomTypesKey} {
		keys, err := s.store.List(ctx, prefix)
		if err != nil {
			return models.StorageUsage{}, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, key := range keys {
			payload, err := s.store.Get(ctx, key)
			if err != nil {
				return models.StorageUsage{}, fmt.Errorf("read %s: %w", key, err)
			}
			usage.Keys++
			usage.Bytes += len(key) + len(payload)
			if constants.IsBackupKey(key) {
				usage.Backups++
			}
		}
	}
	return usage, nil
}

// ClearAll deletes the saved record and every backup
func (s *StorageService) ClearAll(ctx context.Context) error {
	keys, err := s.store.List(ctx, constants.StorageKey)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	s.mu.Lock()
	s.lastSaved = nil
	s.mu.Unlock()
	s.logger.Info("all contract data cleared", zap.Int("keys", len(keys)))
	return nil
}

// SaveCustomTypes stores the runtime-added contract types
func (s *StorageService) SaveCustomTypes(ctx context.Context, types []models.ContractType) error {
	if types == nil {
		types = []models.ContractType{}
	}
	payload, err := json.Marshal(types)
	if err != nil {
		return fmt.Errorf("encode custom types: %w", err)
	}
	if err := s.store.Put(ctx, constants.CustomTypesKey, payload); err != nil {
		return fmt.Errorf("save custom types: %w", err)
	}
	return nil
}

// RestoreCustomTypes registers the stored custom types that are not yet known
// and returns how many were added
func (s *StorageService) RestoreCustomTypes(ctx context.Context) (int, error) {
	payload, err := s.store.Get(ctx, constants.CustomTypesKey)
	if err != nil {
		return 0, fmt.Errorf("read custom types: %w", err)
	}
	if payload == nil {
		return 0, nil
	}
	var stored []models.ContractType
	if err := json.Unmarshal(payload, &stored); err != nil {
		return 0, fmt.Errorf("decode custom types: %w", err)
	}

	added := 0
	for _, t := range stored {
		if s.types.Has(t.ID) {
			continue
		}
		if err := s.types.Add(t); err != nil {
			s.logger.Warn("stored custom type skipped", zap.String("id", t.ID), zap.Error(err))
			continue
		}
		added++
	}
	return added, nil
}

func (s *StorageService) publish(ctx context.Context, eventType events.EventType, payload any) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, eventType, payload)
}
