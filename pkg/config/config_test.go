package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Cache.RecallFloor != 0.70 {
		t.Errorf("expected 0.70 recall floor, got %v", cfg.Cache.RecallFloor)
	}
	if cfg.Cache.AcceptThreshold != 0.85 {
		t.Errorf("expected 0.85 accept threshold, got %v", cfg.Cache.AcceptThreshold)
	}
	if cfg.Embedding.Dimensions != 256 {
		t.Errorf("expected 256 dimensions, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Lifecycle.SweepInterval != time.Hour {
		t.Errorf("expected 1h sweep interval, got %v", cfg.Lifecycle.SweepInterval)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-123")

	content := `
db_path: "test.db"
models:
  - gpt-4
embedding:
  url: https://api.openai.com
  api_key: ${TEST_API_KEY}
  dimensions: 1536
  timeout: 5s
cache:
  recall_floor: 0.65
  accept_threshold: 0.9
lifecycle:
  sweep_interval: 30m
  batch_size: 50
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DBPath != "test.db" {
		t.Errorf("expected test.db, got %s", cfg.DBPath)
	}
	if cfg.Embedding.APIKey != "sk-test-123" {
		t.Errorf("env var not expanded: got %s", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected 1536 dimensions, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Cache.AcceptThreshold != 0.9 {
		t.Errorf("expected 0.9 accept threshold, got %v", cfg.Cache.AcceptThreshold)
	}
	if cfg.Lifecycle.SweepInterval != 30*time.Minute {
		t.Errorf("expected 30m sweep interval, got %v", cfg.Lifecycle.SweepInterval)
	}
	if cfg.Lifecycle.BatchSize != 50 {
		t.Errorf("expected batch size 50, got %d", cfg.Lifecycle.BatchSize)
	}
	// Unset fields keep defaults.
	if cfg.Embedding.MaxChars != 8000 {
		t.Errorf("expected default max_chars 8000, got %d", cfg.Embedding.MaxChars)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}
