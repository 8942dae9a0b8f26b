package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logscout/logscout/internal/errors"
)

func TestDefaultValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 0.5, cfg.Search.Alpha)
	assert.Equal(t, "static", cfg.Embedding.Provider)
	assert.Equal(t, "rule", cfg.Search.Reranker)
	require.NotNil(t, cfg.Search.BoostSeverity)
	assert.True(t, *cfg.Search.BoostSeverity)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Search.TopK)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logscout.yaml")
	body := `
data_dir: /var/lib/logscout
search:
  alpha: 0.7
  reranker: diversity
  boost_severity: false
embedding:
  provider: openai
  api_key: sk-test
  dimensions: 1536
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/logscout", cfg.DataDir)
	assert.Equal(t, 0.7, cfg.Search.Alpha)
	assert.Equal(t, "diversity", cfg.Search.Reranker)
	assert.False(t, *cfg.Search.BoostSeverity)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	// Untouched fields keep defaults.
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logscout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  alpha: 0.2\n"), 0o644))

	t.Setenv("LOGSCOUT_ALPHA", "0.9")
	t.Setenv("LOGSCOUT_DATA_DIR", "/tmp/scout")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Search.Alpha)
	assert.Equal(t, "/tmp/scout", cfg.DataDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"alpha":    "search:\n  alpha: 1.5\n",
		"topk":     "search:\n  top_k: 0\n",
		"provider": "embedding:\n  provider: cohere\n",
		"reranker": "search:\n  reranker: neural\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"
	assert.Equal(t, filepath.Join("/data", "corpus.db"), cfg.CorpusPath())
	assert.Equal(t, filepath.Join("/data", "vectors.hnsw"), cfg.VectorPath())
	assert.Equal(t, filepath.Join("/data", "logs"), cfg.LogDir())
}
