package testsupport

import (
	"path/filepath"
	"testing"

	"bitharbor/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The embedding dimension is shrunk so index tests stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.PoolDir = filepath.Join(base, "pool")
	cfg.Paths.IndexDir = filepath.Join(base, "index")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Catalog.DownloadDir = filepath.Join(base, "downloads")
	cfg.Embedding.Dimension = 8
	cfg.TMDB.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithDimension overrides the embedding dimension on the test config.
func WithDimension(dims int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Embedding.Dimension = dims
	}
}
