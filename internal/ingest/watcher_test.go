package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_EmitsDebouncedBatch(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, err := Watch(ctx, WatchConfig{Root: root, SkipHidden: true, Debounce: 100 * time.Millisecond}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("Steckdose 45"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.csv"), []byte("Kabel;3"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.docx"), []byte("skip"), 0o644))

	select {
	case docs := <-batches:
		require.Len(t, docs, 2)
		assert.Equal(t, "a.csv", docs[0].Filename)
		assert.Equal(t, "b.txt", docs[1].Filename)
		assert.Equal(t, "Steckdose 45", string(docs[1].Data))
	case <-time.After(5 * time.Second):
		t.Fatal("no batch emitted")
	}

	cancel()
	select {
	case _, ok := <-batches:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatch_RequiresRoot(t *testing.T) {
	_, err := Watch(context.Background(), WatchConfig{}, nil)
	require.Error(t, err)
}
