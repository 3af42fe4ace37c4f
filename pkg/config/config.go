package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all semcache configuration.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	Models    []string        `yaml:"models"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Adapter   AdapterConfig   `yaml:"adapter"`
	Cache     CacheConfig     `yaml:"cache"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
}

// EmbeddingConfig defines the embedding provider and vector shape.
// URL points at an OpenAI-compatible /v1/embeddings endpoint; when it is
// empty only the deterministic local generator is used.
type EmbeddingConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxChars   int           `yaml:"max_chars"`
	CacheSize  int           `yaml:"cache_size"`
}

// AdapterConfig defines the rewrite model used to adapt cached answers.
// Disabled or empty URL means the heuristic fallback handles every hit.
type AdapterConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig controls matching policy. RecallFloor is the loose similarity
// floor applied by the store's nearest-neighbor search; AcceptThreshold is
// the strict floor the matcher requires before declaring a hit. The two are
// independent tuning values.
type CacheConfig struct {
	RecallFloor     float64 `yaml:"recall_floor"`
	AcceptThreshold float64 `yaml:"accept_threshold"`
}

// LifecycleConfig controls the maintenance sweep.
type LifecycleConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	BatchSize     int           `yaml:"batch_size"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath: "semcache.db",
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-ada-002",
			Dimensions: 256,
			Timeout:    10 * time.Second,
			MaxChars:   8000,
			CacheSize:  2048,
		},
		Adapter: AdapterConfig{
			Enabled: true,
			Model:   "gpt-3.5-turbo",
			Timeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			RecallFloor:     0.70,
			AcceptThreshold: 0.85,
		},
		Lifecycle: LifecycleConfig{
			SweepInterval: time.Hour,
			BatchSize:     200,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
