package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcompanion/internal/embedder"
	"ragcompanion/internal/siyuanapi"
	"ragcompanion/internal/vectorstore"
)

type fakeNotes struct {
	blocks  []siyuanapi.Block
	sinces  []string
	failing bool
}

func (f *fakeNotes) BlocksUpdatedAfter(_ context.Context, since string) ([]siyuanapi.Block, error) {
	f.sinces = append(f.sinces, since)
	if f.failing {
		return nil, assert.AnError
	}
	return f.blocks, nil
}

func newIndexer(t *testing.T, notes NotesClient) (*Indexer, vectorstore.Store, string) {
	t.Helper()
	dir := t.TempDir()
	cursorPath := filepath.Join(dir, "last_update")
	vec := vectorstore.NewMemory()
	require.NoError(t, vec.EnsureCollection(context.Background(), "blocks", 384, vectorstore.MetricCosine))
	ix := New(notes, embedder.NewDeterministic(384), vec, cursorPath, 0, zerolog.Nop())
	return ix, vec, cursorPath
}

func TestSweep_UpsertsBlocksAndAdvancesCursor(t *testing.T) {
	notes := &fakeNotes{blocks: []siyuanapi.Block{
		{ID: "b1", RootID: "doc-1", Content: "hello"},
	}}
	ix, vec, cursorPath := newIndexer(t, notes)

	require.NoError(t, ix.Sweep(context.Background()))

	_, err := os.Stat(cursorPath)
	require.NoError(t, err)

	hits, err := vec.Query(context.Background(), make([]float32, 384), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b1", hits[0].Payload["block_id"])
}

func TestSweep_NoCursorTreatedAsZero(t *testing.T) {
	notes := &fakeNotes{blocks: nil}
	ix, _, _ := newIndexer(t, notes)

	require.NoError(t, ix.Sweep(context.Background()))
	require.Len(t, notes.sinces, 1)
	assert.Equal(t, time.Unix(0, 0).Local().Format(upstreamTimeLayout), notes.sinces[0])
}

func TestSweep_FailureLeavesCursorUnchanged(t *testing.T) {
	notes := &fakeNotes{failing: true}
	ix, _, cursorPath := newIndexer(t, notes)

	err := ix.Sweep(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(cursorPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSweep_ManyUniqueBlocksProduceDistinctPoints(t *testing.T) {
	blocks := make([]siyuanapi.Block, 50)
	for i := range blocks {
		blocks[i] = siyuanapi.Block{ID: uuid.NewString(), RootID: uuid.NewString(), Content: "content " + strconv.Itoa(i)}
	}
	notes := &fakeNotes{blocks: blocks}
	ix, vec, _ := newIndexer(t, notes)

	require.NoError(t, ix.Sweep(context.Background()))

	hits, err := vec.Query(context.Background(), make([]float32, 384), len(blocks)+1)
	require.NoError(t, err)
	require.Len(t, hits, len(blocks))

	seen := make(map[uint64]bool, len(hits))
	for _, h := range hits {
		assert.False(t, seen[h.ID], "point id collided across distinct uuid-based block ids")
		seen[h.ID] = true
	}
}

func TestReset_ClearsVectorStoreAndCursor(t *testing.T) {
	notes := &fakeNotes{blocks: []siyuanapi.Block{{ID: "b1", RootID: "doc-1", Content: "hello"}}}
	ix, vec, cursorPath := newIndexer(t, notes)

	require.NoError(t, ix.Sweep(context.Background()))
	require.NoError(t, ix.Reset(context.Background()))

	_, statErr := os.Stat(cursorPath)
	assert.True(t, os.IsNotExist(statErr))

	hits, err := vec.Query(context.Background(), make([]float32, 384), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
