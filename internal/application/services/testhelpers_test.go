package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/domain/contracttypes"
	"github.com/contractgen/backend/internal/domain/events"
	"github.com/contractgen/backend/internal/domain/models"
)

var testNow = time.Date(2024, 4, 1, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// sequentialIDs returns an id generator yielding id-1, id-2, ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestClauseStore(bus *EventBus) *ClauseStore {
	var s *ClauseStore
	if bus == nil {
		s = NewClauseStore(nil, zap.NewNop())
	} else {
		s = NewClauseStore(bus, zap.NewNop())
	}
	s.SetClock(fixedClock)
	s.newID = sequentialIDs()
	return s
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func clause(title string, required bool) models.Clause {
	return models.Clause{Title: title, Content: title + " の内容", Required: required, Variables: map[string]string{}}
}

func seedStore(t *testing.T, s *ClauseStore, titles ...string) {
	t.Helper()
	for _, title := range titles {
		s.Add(context.Background(), clause(title, false), nil)
	}
	require.Equal(t, len(titles), s.Len())
}

func titles(clauses []models.Clause) []string {
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = c.Title
	}
	return out
}

func requireDenseOrder(t *testing.T, clauses []models.Clause) {
	t.Helper()
	for i, c := range clauses {
		require.Equal(t, i, c.Order, "clause %q at position %d", c.Title, i)
	}
}

func newTestRegistry(t *testing.T) *contracttypes.Registry {
	t.Helper()
	r, err := contracttypes.NewRegistry(nil)
	require.NoError(t, err)
	return r
}

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []events.EventType
}

func (r *recorder) handler(eventType events.EventType) EventHandler {
	return func(ctx context.Context, payload any) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, eventType)
		return nil
	}
}

func (r *recorder) seen() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.EventType(nil), r.events...)
}
