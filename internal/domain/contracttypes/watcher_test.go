package contracttypes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestWatcher_RegistersNewFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newTestRegistry(t)
	dir := t.TempDir()

	added := make(chan string, 1)
	w, err := NewWatcher(dir, r, zap.NewNop(), func(id string) { added <- id })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	doc := "name: 委任契約書\nfields:\n  - name: partyAName\n    label: 甲\n    type: text\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mandate.yaml"), []byte(doc), 0o644))

	select {
	case id := <-added:
		assert.Equal(t, "mandate", id)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not register the new template")
	}
	assert.True(t, r.Has("mandate"))
}
