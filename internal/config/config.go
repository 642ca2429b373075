package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the library substrates.
type Paths struct {
	PoolDir    string `toml:"pool_dir"`
	IndexDir   string `toml:"index_dir"`
	LogDir     string `toml:"log_dir"`
	StagingDir string `toml:"staging_dir"`
}

// Embedding contains configuration for the external embedding service.
type Embedding struct {
	Endpoint       string `toml:"endpoint"`
	Dimension      int    `toml:"dimension"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ANN contains tuning parameters for the approximate nearest neighbor index.
type ANN struct {
	M                int `toml:"m"`
	EFConstruction   int `toml:"ef_construction"`
	EFSearch         int `toml:"ef_search"`
	RefineCandidates int `toml:"refine_candidates"`
}

// Ingest contains configuration for source file validation.
type Ingest struct {
	VideoExtensions []string `toml:"video_extensions"`
	AudioExtensions []string `toml:"audio_extensions"`
	ImageExtensions []string `toml:"image_extensions"`
}

// TMDB contains configuration for The Movie Database enrichment provider.
type TMDB struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Catalog contains configuration for external catalog search and the
// match cache.
type Catalog struct {
	BaseURL         string `toml:"base_url"`
	SearchRows      int    `toml:"search_rows"`
	MatchTTLSeconds int    `toml:"match_ttl_seconds"`
	DownloadDir     string `toml:"download_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for BitHarbor.
//
// Configuration sections by subsystem:
//   - Paths: content pool, ANN index, staging, and log directories
//   - Embedding: embedding sidecar endpoint and vector dimension
//   - ANN: HNSW graph tuning and refinement depth
//   - Ingest: accepted file extensions per modality
//   - TMDB: descriptive metadata enrichment
//   - Catalog: Internet Archive search and match cache
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Embedding Embedding `toml:"embedding"`
	ANN       ANN       `toml:"ann"`
	Ingest    Ingest    `toml:"ingest"`
	TMDB      TMDB      `toml:"tmdb"`
	Catalog   Catalog   `toml:"catalog"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bitharbor/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bitharbor.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the library needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.PoolDir, c.Paths.IndexDir, c.Paths.LogDir, c.Paths.StagingDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the relational store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.IndexDir, "bitharbor.db")
}

// VectorsPath returns the location of the flat vector file.
func (c *Config) VectorsPath() string {
	return filepath.Join(c.Paths.IndexDir, "vectors.f32")
}

// GraphPath returns the location of the persisted ANN graph snapshot.
func (c *Config) GraphPath() string {
	return filepath.Join(c.Paths.IndexDir, "graph.gob")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
