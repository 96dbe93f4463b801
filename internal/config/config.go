// Package config loads the per-project settings of the index.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the optional configuration file at the project root.
const FileName = "phpsymbols.toml"

// DefaultExclude lists the directories and files skipped when none are
// configured.
var DefaultExclude = []string{
	"node_modules",
	"var",
	"vendor-bin",
	"bin",
	"cache",
	".git",
	".github",
	".gitlab",
	".run",
	".idea",
	".vscode",
	"tests",
	"public",
	"*.phar.php",
}

type Config struct {
	// CacheDir holds the SQLite cache. Defaults to the per-user project folder.
	CacheDir string `toml:"cache_dir"`
	// Exclude holds glob patterns matched against project-relative paths and
	// against every path segment.
	Exclude []string `toml:"exclude"`
	// DebounceMS delays the reparse of an edited document.
	DebounceMS int `toml:"debounce_ms"`
	// FetchConcurrency bounds concurrent cache reads and writes.
	FetchConcurrency int `toml:"fetch_concurrency"`
	// LoadBatchSize is the number of symbol tables restored at once on cold start.
	LoadBatchSize int `toml:"load_batch_size"`
	// Workers is the number of parsers used by a full project scan.
	Workers int `toml:"workers"`
	// MetricsAddr enables the Prometheus endpoint when set.
	MetricsAddr string `toml:"metrics_addr"`
}

// Load reads FileName from projectRoot if present and fills in defaults.
func Load(projectRoot string) (*Config, error) {
	var cfg Config

	path := filepath.Join(projectRoot, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := applyDefaults(&cfg, projectRoot); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config, projectRoot string) error {
	if strings.TrimSpace(cfg.CacheDir) == "" {
		dir, err := ProjectCacheFolder(projectRoot)
		if err != nil {
			return err
		}
		cfg.CacheDir = dir
	} else if !filepath.IsAbs(cfg.CacheDir) {
		cfg.CacheDir = filepath.Join(projectRoot, cfg.CacheDir)
	}

	if cfg.Exclude == nil {
		cfg.Exclude = DefaultExclude
	}
	if cfg.DebounceMS == 0 {
		cfg.DebounceMS = 250
	}
	if cfg.FetchConcurrency == 0 {
		cfg.FetchConcurrency = 4
	}
	if cfg.LoadBatchSize == 0 {
		cfg.LoadBatchSize = 4
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers()
	}

	return nil
}

// DefaultWorkers returns the number of CPUs plus two, capped at 16.
func DefaultWorkers() int {
	return min(runtime.NumCPU()+2, 16)
}

func validate(cfg *Config) error {
	if cfg.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", cfg.DebounceMS)
	}
	if cfg.FetchConcurrency < 0 {
		return fmt.Errorf("fetch_concurrency must be positive, got %d", cfg.FetchConcurrency)
	}
	if cfg.LoadBatchSize < 0 {
		return fmt.Errorf("load_batch_size must be positive, got %d", cfg.LoadBatchSize)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if _, err := NewMatcher(cfg.Exclude); err != nil {
		return err
	}

	return nil
}

// Debounce returns the edit debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}
