// Package config loads logscout configuration from YAML with
// environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/logscout/logscout/internal/errors"
)

// Config is the root configuration.
type Config struct {
	// DataDir holds the corpus database, vector index, and logs.
	DataDir string `yaml:"data_dir"`

	Logging   LoggingConfig   `yaml:"logging"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	// Provider is "static" or "openai".
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// LLMConfig configures the generation oracle. Optional: without an API
// key, answer generation and LLM reranking are disabled and everything
// else still works.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// SearchConfig tunes retrieval.
type SearchConfig struct {
	// Alpha weights dense retrieval against BM25.
	Alpha float64 `yaml:"alpha"`
	// TopK is the default result count.
	TopK int `yaml:"top_k"`
	// Reranker is one of rule, cross, hybrid, diversity, none.
	Reranker string `yaml:"reranker"`
	// RuleWeight is the rule share in the hybrid reranker.
	RuleWeight float64 `yaml:"rule_weight"`
	// DiversityWeight is the MMR lambda for the diversity reranker.
	DiversityWeight float64 `yaml:"diversity_weight"`
	// BoostSeverity toggles severity boosting during fusion.
	BoostSeverity *bool `yaml:"boost_severity"`
}

// Default returns the standard configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	boost := true
	return &Config{
		DataDir: filepath.Join(home, ".logscout"),
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Embedding: EmbeddingConfig{
			Provider:  "static",
			CacheSize: 4096,
		},
		LLM: LLMConfig{
			MaxTokens:   1024,
			Temperature: 0.1,
		},
		Search: SearchConfig{
			Alpha:           0.5,
			TopK:            10,
			Reranker:        "rule",
			RuleWeight:      0.5,
			DiversityWeight: 0.3,
			BoostSeverity:   &boost,
		},
	}
}

// Load reads the config file at path, layered over defaults and under
// environment overrides. A missing file is not an error; defaults
// apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to defaults.
		case err != nil:
			return nil, errors.Wrapf(err, errors.ErrCodeConfigNotFound, "read config %s", path)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, errors.ErrCodeConfigInvalid, "parse config %s", path)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOGSCOUT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOGSCOUT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOGSCOUT_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("LOGSCOUT_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("LOGSCOUT_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("LOGSCOUT_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LOGSCOUT_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LOGSCOUT_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LOGSCOUT_ALPHA"); v != "" {
		if alpha, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.Alpha = alpha
		}
	}
}

func (c *Config) validate() error {
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "search.alpha must be in [0, 1], got %g", c.Search.Alpha)
	}
	if c.Search.TopK <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "search.top_k must be positive, got %d", c.Search.TopK)
	}
	switch c.Embedding.Provider {
	case "static", "openai":
	default:
		return errors.Newf(errors.ErrCodeConfigInvalid, "unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Search.Reranker {
	case "rule", "cross", "hybrid", "diversity", "none":
	default:
		return errors.Newf(errors.ErrCodeConfigInvalid, "unknown reranker %q", c.Search.Reranker)
	}
	return nil
}

// CorpusPath returns the SQLite corpus path under DataDir.
func (c *Config) CorpusPath() string {
	return filepath.Join(c.DataDir, "corpus.db")
}

// VectorPath returns the HNSW index path under DataDir.
func (c *Config) VectorPath() string {
	return filepath.Join(c.DataDir, "vectors.hnsw")
}

// LogDir returns the log directory under DataDir.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}
