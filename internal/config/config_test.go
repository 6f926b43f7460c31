package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procvcr/procvcr/filter"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "disable", cfg.Mode)
	assert.Equal(t, filepath.Join("testdata", "cassettes"), cfg.CassetteDir)
	require.Len(t, cfg.Filters, 2)
	assert.Equal(t, "path", cfg.Filters[0].Name)
	assert.Equal(t, "interpreter", cfg.Filters[1].Name)
}

func TestLoadFromMissingFileIsDefault(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `mode: replay
cassette_dir: /var/cassettes
filters:
  - name: path
  - name: rewrite
    pattern: 'build-[0-9]+'
    replace: 'build-<N>'
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "replay", cfg.Mode)
	assert.Equal(t, "/var/cassettes", cfg.CassetteDir)
	require.Len(t, cfg.Filters, 2)
	assert.Equal(t, "rewrite", cfg.Filters[1].Name)

	pipeline, err := cfg.CompileFilters()
	require.NoError(t, err)
	argv, _ := pipeline.Apply([]string{"make", "build-17"}, "")
	assert.Equal(t, []string{"make", "build-<N>"}, argv)
}

func TestLoadFromBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: [oops\n"), 0o644))

	_, err := LoadFrom(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadFromExpandsTilde(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cassette_dir: ~/cassettes\n"), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cassettes"), cfg.CassetteDir)
}

func TestCompileFiltersUnknownName(t *testing.T) {
	cfg := &Config{Filters: []filter.Config{{Name: "scrub"}}}
	_, err := cfg.CompileFilters()
	assert.Error(t, err)
}
