package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractgen/backend/internal/domain/events"
	"github.com/contractgen/backend/internal/domain/models"
	"github.com/contractgen/backend/internal/infrastructure/persistence"
	apperrors "github.com/contractgen/backend/pkg/errors"
	"github.com/contractgen/backend/pkg/expression"
)

type sessionFixture struct {
	session *Session
	bus     *EventBus
	storage *StorageService
	preview *PreviewService
	store   *persistence.MemoryBlobStore
}

func newTestSession(t *testing.T) *sessionFixture {
	t.Helper()
	bus := NewEventBus(nil)
	registry := newTestRegistry(t)
	store := persistence.NewMemoryBlobStore()
	storage := NewStorageService(store, registry, bus, nil, 7)
	storage.SetClock(fixedClock)
	assembler := newTestAssembler(t)
	preview := NewPreviewService(assembler, bus, nil, time.Millisecond)

	session := NewSession(SessionDeps{
		Types:     registry,
		Clauses:   newTestClauseStore(bus),
		Assembler: assembler,
		Preview:   preview,
		Storage:   storage,
		Rules:     expression.NewEngine(),
		Publisher: bus,
	})
	session.SetClock(fixedClock)
	return &sessionFixture{session: session, bus: bus, storage: storage, preview: preview, store: store}
}

func fillConsulting(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.SetFields(context.Background(), map[string]any{
		"contractorName": "株式会社A",
		"clientName":     "株式会社B",
		"monthlyFee":     "500000",
	}))
}

func TestSession_SelectType(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)
	rec := &recorder{}
	f.bus.Subscribe(events.TypeChanged, rec.handler(events.TypeChanged))

	err := f.session.SelectType(ctx, "unknown")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, rec.seen())

	require.NoError(t, f.session.SelectType(ctx, "consulting"))
	data := f.session.Data()
	assert.Equal(t, "2024-04-01", data["contractSignDate"])
	assert.Equal(t, "20日", data["paymentDate"])
	assert.Len(t, data, 2)

	clauses := f.session.Clauses().Clauses()
	require.Len(t, clauses, 13)
	assert.Equal(t, "第1条（委託業務）", clauses[0].Title)
	requireDenseOrder(t, clauses)

	assert.Equal(t, []events.EventType{events.TypeChanged}, rec.seen())
	assert.Equal(t, 1, f.preview.Pending())
	assert.False(t, f.session.HasUnsavedChanges(), "type switch autosaves")
}

func TestSession_SelectTypeCopiesDefaults(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)
	require.NoError(t, f.session.SelectType(ctx, "consulting"))

	_, err := f.session.UpdateClause(ctx, 0, models.ClausePatch{Content: strPtr("changed")})
	require.NoError(t, err)

	ct, ok := f.session.ContractType()
	require.True(t, ok)
	assert.NotEqual(t, "changed", ct.DefaultClauses[0].Content)

	require.NoError(t, f.session.SelectType(ctx, "consulting"))
	first, err := f.session.Clauses().At(0)
	require.NoError(t, err)
	assert.NotEqual(t, "changed", first.Content)
}

func TestSession_SetField(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)
	require.NoError(t, f.session.SelectType(ctx, "consulting"))

	var changes []events.FieldChange
	f.bus.Subscribe(events.FieldChanged, func(ctx context.Context, payload any) error {
		changes = append(changes, payload.(events.FieldChange))
		return nil
	})

	require.NoError(t, f.session.SetField(ctx, "monthlyFee", "500000"))
	require.Len(t, changes, 1)
	assert.Equal(t, "monthlyFee", changes[0].Name)
	assert.Equal(t, "500000", changes[0].Value)
	assert.Nil(t, changes[0].Previous)
	assert.Equal(t, "500000", changes[0].Data["monthlyFee"])

	err := f.session.SetField(ctx, "contractStartDate", "2024-13-45")
	require.Error(t, err)
	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "contractStartDate", vErr.Field)
	assert.Equal(t, "正しい日付形式で入力してください", vErr.Message)
	_, present := f.session.Data()["contractStartDate"]
	assert.False(t, present, "rejected value is not stored")
	assert.Len(t, changes, 1)

	// all-or-nothing batch
	err = f.session.SetFields(ctx, map[string]any{
		"court":           "東京地方裁判所",
		"contractEndDate": "not a date",
	})
	require.Error(t, err)
	_, present = f.session.Data()["court"]
	assert.False(t, present)

	// fields the type does not declare are stored unchecked
	require.NoError(t, f.session.SetField(ctx, "customNote", "メモ"))
	assert.Equal(t, "メモ", f.session.Data()["customNote"])
}

func TestSession_Validate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(t *testing.T, s *Session)
		wantMsg string
	}{
		{
			name:    "no type selected",
			prepare: func(t *testing.T, s *Session) {},
			wantMsg: MsgInvalidContractType,
		},
		{
			name: "required field blank",
			prepare: func(t *testing.T, s *Session) {
				require.NoError(t, s.SelectType(ctx, "consulting"))
				require.NoError(t, s.SetField(ctx, "contractorName", "株式会社A"))
			},
			wantMsg: "委託者名（乙）は必須入力です",
		},
		{
			name: "whitespace counts as blank",
			prepare: func(t *testing.T, s *Session) {
				require.NoError(t, s.SelectType(ctx, "consulting"))
				fillConsulting(t, s)
				require.NoError(t, s.SetField(ctx, "monthlyFee", "   "))
			},
			wantMsg: "月額委託料（円）は必須入力です",
		},
		{
			name: "rule violated",
			prepare: func(t *testing.T, s *Session) {
				require.NoError(t, s.SelectType(ctx, "consulting"))
				fillConsulting(t, s)
				require.NoError(t, s.SetFields(ctx, map[string]any{
					"contractStartDate": "2024-05-01",
					"contractEndDate":   "2024-04-01",
				}))
			},
			wantMsg: "契約終了日は契約開始日以降の日付を指定してください",
		},
		{
			name: "valid",
			prepare: func(t *testing.T, s *Session) {
				require.NoError(t, s.SelectType(ctx, "consulting"))
				fillConsulting(t, s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestSession(t)
			tt.prepare(t, f.session)

			err := f.session.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantMsg, vErr.Message)
		})
	}
}

func TestSession_ValidateClauseChecks(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)
	require.NoError(t, f.session.SelectType(ctx, "consulting"))
	fillConsulting(t, f.session)

	f.session.clauses.Load(ctx, nil)
	var vErr *apperrors.ValidationError
	require.ErrorAs(t, f.session.Validate(), &vErr)
	assert.Equal(t, MsgNoClauses, vErr.Message)

	_, err := f.session.InsertClause(ctx, models.ClauseDraft{Title: "第1条（任意）", Content: "任意の内容"}, 0)
	require.NoError(t, err)
	require.ErrorAs(t, f.session.Validate(), &vErr)
	assert.Equal(t, MsgMissingRequiredClause, vErr.Message)

	// custom has no required defaults, so an optional-only list passes
	require.NoError(t, f.session.SelectType(ctx, "custom"))
	require.NoError(t, f.session.SetFields(ctx, map[string]any{
		"partyAName":    "甲社",
		"partyBName":    "乙社",
		"contractTitle": "覚書",
	}))
	assert.NoError(t, f.session.Validate())
}

func TestSession_Generate(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)
	require.NoError(t, f.session.SelectType(ctx, "consulting"))

	_, err := f.session.Generate(ctx)
	assert.True(t, apperrors.IsValidation(err))
	_, ok := f.session.LastDocument()
	assert.False(t, ok)

	fillConsulting(t, f.session)
	html, err := f.session.Generate(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, `<span class="highlight">500,000</span>`)
	assert.Contains(t, html, "2024年4月1日")

	last, ok := f.session.LastDocument()
	require.True(t, ok)
	assert.Equal(t, html, last)
}

func TestSession_ClauseOperations(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)
	require.NoError(t, f.session.SelectType(ctx, "nda"))
	require.Equal(t, 4, f.session.Clauses().Len())

	added, err := f.session.SaveClause(ctx, models.ClauseDraft{
		Title:     "第5条（準拠法）",
		Content:   "日本法に準拠する。",
		Variables: json.RawMessage(`"{\"court\":\"裁判所\"}"`),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, added.Order)
	assert.Equal(t, map[string]string{"court": "裁判所"}, added.Variables)

	_, err = f.session.SaveClause(ctx, models.ClauseDraft{Title: "第5条（準拠法）", Content: "x"}, nil)
	assert.True(t, apperrors.IsValidation(err), "duplicate title")

	updated, err := f.session.SaveClause(ctx, models.ClauseDraft{Title: "第5条（準拠法）", Content: "東京地裁とする。"}, intPtr(4))
	require.NoError(t, err)
	assert.Equal(t, "東京地裁とする。", updated.Content)
	assert.Equal(t, added.ID, updated.ID)

	_, err = f.session.DeleteClause(ctx, 0)
	assert.True(t, apperrors.IsProtected(err))

	require.NoError(t, f.session.MoveClause(ctx, 4, 0))
	require.NoError(t, f.session.MoveDown(ctx, 0))
	require.NoError(t, f.session.MoveUp(ctx, 1))
	dup, err := f.session.DuplicateClause(ctx, 0)
	require.NoError(t, err)
	assert.False(t, dup.Required)

	_, err = f.session.UpdateClause(ctx, 99, models.ClausePatch{Title: strPtr("x")})
	assert.True(t, apperrors.IsIndex(err))

	inserted, err := f.session.InsertClause(ctx, models.ClauseDraft{Title: "第0条（目的）", Content: "目的を定める。"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted.Order)
	_, err = f.session.InsertClause(ctx, models.ClauseDraft{Title: "第0条（目的）", Content: "x"}, 0)
	assert.True(t, apperrors.IsValidation(err), "duplicate title")
	_, err = f.session.UpdateClause(ctx, 1, models.ClausePatch{Content: strPtr("  ")})
	assert.True(t, apperrors.IsValidation(err), "blank content")
	patched, err := f.session.UpdateClause(ctx, 1, models.ClausePatch{Content: strPtr("目的を改める。")})
	require.NoError(t, err)
	assert.Equal(t, "第0条（目的）", patched.Title)
	assert.Equal(t, "目的を改める。", patched.Content)
	_, err = f.session.DeleteClause(ctx, 1)
	require.NoError(t, err)

	clauses := f.session.Clauses().Clauses()
	assert.Len(t, clauses, 6)
	assert.Equal(t, "第5条（準拠法）", clauses[0].Title)
	assert.Equal(t, "第5条（準拠法） (copy)", clauses[1].Title)
	requireDenseOrder(t, clauses)
}

func TestSession_SaveAndRestore(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)
	require.NoError(t, f.session.SelectType(ctx, "consulting"))
	fillConsulting(t, f.session)
	assert.True(t, f.session.HasUnsavedChanges())

	saved, err := f.session.Save(ctx)
	require.NoError(t, err)
	assert.False(t, f.session.HasUnsavedChanges())

	changed, err := f.session.Autosave(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "nothing to autosave")

	restored := NewSession(SessionDeps{
		Types:     newTestRegistry(t),
		Clauses:   newTestClauseStore(nil),
		Assembler: newTestAssembler(t),
		Storage:   NewStorageService(f.store, newTestRegistry(t), nil, nil, 7),
	})
	found, err := restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, saved.ContractData, restored.Data())
	assert.Equal(t, titles(saved.ContractArticles), titles(restored.Clauses().Clauses()))
	assert.False(t, restored.HasUnsavedChanges())
}

func TestSession_LoadStateRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)
	require.NoError(t, f.session.SelectType(ctx, "nda"))

	err := f.session.LoadState(ctx, models.State{ContractType: "lease"})
	assert.True(t, apperrors.IsNotFound(err))
	ct, _ := f.session.ContractType()
	assert.Equal(t, "nda", ct.ID)
	assert.Equal(t, 4, f.session.Clauses().Len())
}

func TestSession_RegisterCustomType(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)

	ct, err := f.session.RegisterCustomType(ctx, "  業務提携契約書 ", "提携用")
	require.NoError(t, err)
	assert.Equal(t, "業務提携契約書", ct.ID)
	assert.True(t, ct.Custom)
	require.Len(t, ct.DefaultClauses, 1)

	_, err = f.session.RegisterCustomType(ctx, "業務提携契約書", "")
	assert.True(t, apperrors.IsConflict(err))
	_, err = f.session.RegisterCustomType(ctx, "consulting", "")
	assert.True(t, apperrors.IsConflict(err))

	reloaded := newTestRegistry(t)
	n, err := NewStorageService(f.store, reloaded, nil, nil, 7).RestoreCustomTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, reloaded.Has("業務提携契約書"))

	require.NoError(t, f.session.SelectType(ctx, "業務提携契約書"))
	assert.Equal(t, 1, f.session.Clauses().Len())
}

func TestSession_Statistics(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)

	empty := f.session.Statistics()
	assert.Equal(t, 100, empty.CompletionPercentage, "no variables means complete")

	require.NoError(t, f.session.SelectType(ctx, "consulting"))
	stats := f.session.Statistics()
	assert.Equal(t, models.CompletionStats{
		FilledFields:         2,
		TotalArticles:        13,
		TotalVariables:       7,
		FilledVariables:      1,
		CompletionPercentage: 14,
	}, stats)

	require.NoError(t, f.session.SetFields(ctx, map[string]any{"monthlyFee": "500000", "bankInfo": "普通 1234567"}))
	stats = f.session.Statistics()
	assert.Equal(t, 3, stats.FilledVariables)
	assert.Equal(t, 43, stats.CompletionPercentage)
}

func TestSession_RefreshPreview(t *testing.T) {
	ctx := context.Background()
	f := newTestSession(t)

	_, err := f.session.RefreshPreview(ctx)
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, f.session.SelectType(ctx, "consulting"))
	require.NoError(t, f.session.SetField(ctx, "monthlyFee", "500000"))
	assert.Equal(t, 2, f.preview.Pending())

	result, err := f.session.RefreshPreview(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "500,000")
	assert.Contains(t, result.HTML, "{{銀行口座情報}}")
	assert.Equal(t, 0, f.preview.Pending())

	latest, ok := f.session.Preview()
	require.True(t, ok)
	assert.Equal(t, result.Sequence, latest.Sequence)
}
