package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(VectorStoreConfig{Dimensions: 3})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHNSWStore(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects zero dimensions", func(t *testing.T) {
		_, err := NewHNSWStore(VectorStoreConfig{})
		assert.Error(t, err)
	})

	t.Run("nearest neighbor ordering", func(t *testing.T) {
		s := newTestStore(t)
		err := s.Add(ctx, []string{"a", "b", "c"}, [][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		})
		require.NoError(t, err)

		results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].ID)
		assert.Equal(t, "c", results[1].ID)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("dimension mismatch rejected", func(t *testing.T) {
		s := newTestStore(t)
		err := s.Add(ctx, []string{"a"}, [][]float32{{1, 0}})
		assert.ErrorAs(t, err, &ErrDimensionMismatch{})
	})

	t.Run("empty store searches clean", func(t *testing.T) {
		s := newTestStore(t)
		results, err := s.Search(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("re-adding an id replaces its vector", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}))
		require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{0, 1, 0}}))
		assert.Equal(t, 1, s.Count())

		results, err := s.Search(ctx, []float32{0, 1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a", results[0].ID)
		assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Add(ctx, []string{"a", "b"}, [][]float32{
			{1, 0, 0},
			{0, 0, 1},
		}))

		path := filepath.Join(t.TempDir(), "vectors.hnsw")
		require.NoError(t, s.Save(path))

		loaded, err := LoadHNSWStore(path)
		require.NoError(t, err)
		defer loaded.Close()

		assert.Equal(t, 2, loaded.Count())
		results, err := loaded.Search(ctx, []float32{0, 0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "b", results[0].ID)
	})

	t.Run("closed store refuses operations", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Close())
		assert.Error(t, s.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}))
		_, err := s.Search(ctx, []float32{1, 0, 0}, 1)
		assert.Error(t, err)
	})
}
