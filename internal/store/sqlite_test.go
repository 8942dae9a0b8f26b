package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCorpus(t *testing.T) *CorpusStore {
	t.Helper()
	s, err := OpenCorpusStore(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCorpusStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and load round trip", func(t *testing.T) {
		s := openTestCorpus(t)
		docs := []Document{
			NewDocument("AuthService,ERROR,TokenExpired,msg,AuthModule,cause"),
			NewDocument("user clicked the checkout button"),
		}
		require.NoError(t, s.SaveDocuments(ctx, docs))

		loaded, err := s.LoadDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		assert.Equal(t, docs[0].ID, loaded[0].ID)
		assert.Equal(t, "ERROR", loaded[0].Metadata.Level)
		assert.Equal(t, 0.8, loaded[0].Metadata.SeverityScore)
		assert.Equal(t, 0.3, loaded[1].Metadata.SeverityScore)
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		s := openTestCorpus(t)
		doc := NewDocument("PayService,WARN,Slow,msg,PayModule,cause")
		require.NoError(t, s.SaveDocuments(ctx, []Document{doc}))
		require.NoError(t, s.SaveDocuments(ctx, []Document{doc}))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("level counts", func(t *testing.T) {
		s := openTestCorpus(t)
		require.NoError(t, s.SaveDocuments(ctx, []Document{
			NewDocument("A,ERROR,X,msg,M,c"),
			NewDocument("B,ERROR,Y,msg,M,c"),
			NewDocument("C,INFO,Z,msg,M,c"),
		}))

		counts, err := s.LevelCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts["ERROR"])
		assert.Equal(t, 1, counts["INFO"])
	})

	t.Run("state round trip", func(t *testing.T) {
		s := openTestCorpus(t)

		v, err := s.GetState(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, v)

		require.NoError(t, s.SetState(ctx, "embedder", "static-256"))
		require.NoError(t, s.SetState(ctx, "embedder", "openai"))

		v, err = s.GetState(ctx, "embedder")
		require.NoError(t, err)
		assert.Equal(t, "openai", v)
	})
}
