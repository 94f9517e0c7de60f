package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
	"docrag/internal/port"
)

func TestBoltPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := NewBolt(path, 2, DistanceCosine)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, []port.Record{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]string{"text": "alpha"}},
		{ID: "b", Vector: []float32{0, 1}, Metadata: map[string]string{"text": "beta"}},
	}))
	require.NoError(t, idx.Close())

	reopened, err := NewBolt(path, 2, DistanceCosine)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	matches, err := reopened.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "alpha", matches[0].Metadata["text"])
}

func TestBoltUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := NewBolt(path, 2, DistanceCosine)
	require.NoError(t, err)
	defer idx.Close()

	records := []port.Record{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]string{"v": "1"}},
	}
	require.NoError(t, idx.Upsert(ctx, records))
	require.NoError(t, idx.Upsert(ctx, records))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBoltDimensionMismatchRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := NewBolt(path, 2, DistanceCosine)
	require.NoError(t, err)
	defer idx.Close()

	err = idx.Upsert(ctx, []port.Record{
		{ID: "good", Vector: []float32{1, 0}},
		{ID: "bad", Vector: []float32{1, 0, 0}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	// The transaction rolled back; nothing from the batch landed.
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestBoltQueryOrdering(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := NewBolt(path, 3, DistanceEuclidean)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Upsert(ctx, []port.Record{
		{ID: "near", Vector: []float32{1, 0, 0}},
		{ID: "mid", Vector: []float32{0.5, 0.5, 0}},
		{ID: "far", Vector: []float32{0, 0, 1}},
	}))

	matches, err := idx.Query(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "near", matches[0].ID)
	assert.Equal(t, "mid", matches[1].ID)
	assert.Equal(t, "far", matches[2].ID)
}
