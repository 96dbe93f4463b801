package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, DefaultExclude, cfg.Exclude)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.Equal(t, 4, cfg.LoadBatchSize)
	assert.Equal(t, DefaultWorkers(), cfg.Workers)
	assert.Empty(t, cfg.MetricsAddr)

	assert.Equal(t, ProjectSlug(root), filepath.Base(cfg.CacheDir))
	info, err := os.Stat(cfg.CacheDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
cache_dir = ".cache/phpsymbols"
exclude = ["vendor/**", "*.tpl.php"]
debounce_ms = 100
fetch_concurrency = 8
load_batch_size = 16
workers = 3
metrics_addr = "127.0.0.1:9100"
`)

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ".cache/phpsymbols"), cfg.CacheDir)
	assert.Equal(t, []string{"vendor/**", "*.tpl.php"}, cfg.Exclude)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 8, cfg.FetchConcurrency)
	assert.Equal(t, 16, cfg.LoadBatchSize)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid toml", content: `debounce_ms = `},
		{name: "negative debounce", content: `debounce_ms = -1`},
		{name: "negative workers", content: `workers = -2`},
		{name: "negative batch size", content: `load_batch_size = -4`},
		{name: "invalid glob", content: `exclude = ["src/[broken"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, "cache_dir = \"cache\"\n"+tt.content)

			_, err := Load(root)
			assert.Error(t, err)
		})
	}
}

func TestProjectSlug(t *testing.T) {
	assert.Equal(t, "_home_user_project", ProjectSlug("/home/user/project"))
	assert.Equal(t, "C__code_project", ProjectSlug("C:\\code\\project"))
}

func TestMatcher(t *testing.T) {
	matcher, err := NewMatcher([]string{"node_modules", "tests", "*.phar.php", "src/Legacy/**"})
	require.NoError(t, err)

	tests := []struct {
		path     string
		excluded bool
	}{
		{path: "src/Foo.php", excluded: false},
		{path: "node_modules/pkg/index.php", excluded: true},
		{path: "nested/node_modules/file.php", excluded: true},
		{path: "tests/FooTest.php", excluded: true},
		{path: "src/tests/FooTest.php", excluded: true},
		{path: "box.phar.php", excluded: true},
		{path: "src/Legacy/Old.php", excluded: true},
		{path: "src/LegacyBridge.php", excluded: false},
		{path: "", excluded: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.excluded, matcher.Match(tt.path))
		})
	}

	var empty *Matcher
	assert.False(t, empty.Match("node_modules/x.php"))
}
