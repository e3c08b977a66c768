package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("data", "plain"), cfg.StoreDir(columnar.LayoutPlain))
	assert.Equal(t, "floor_area_sqm", cfg.Columns.Area)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.Store.DataDir = "" }},
		{"bad layout", func(c *Config) { c.Store.Layout = "rows" }},
		{"chunk not multiple of 8", func(c *Config) { c.Store.ChunkSize = 100 }},
		{"zero chunk", func(c *Config) { c.Store.ChunkSize = 0 }},
		{"negative workers", func(c *Config) { c.Store.Workers = -1 }},
		{"bad strategy", func(c *Config) { c.Query.Strategy = "random" }},
		{"negative threshold", func(c *Config) { c.Query.AreaThreshold = -1 }},
		{"missing column", func(c *Config) { c.Columns.Price = "" }},
		{"sample rate", func(c *Config) { c.Observability.TracingSampleRate = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.yaml")
	cfg := Default()
	cfg.Store.ChunkSize = 1600
	cfg.Store.KeepPlain = true
	cfg.Query.CacheArtifacts = true
	cfg.Columns.Town = "district"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("store: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("store:\n  chunk_size: 7\n"), 0o644))
	_, err = Load(invalid)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("STRATA_TEST_DIR", "/tmp/x")
	t.Setenv("STRATA_TEST_EMPTY", "")

	tests := []struct{ in, want string }{
		{"dir: ${STRATA_TEST_DIR}", "dir: /tmp/x"},
		{"dir: ${STRATA_TEST_EMPTY:-fallback}", "dir: fallback"},
		{"dir: ${STRATA_TEST_UNSET}", "dir: "},
		{"a: ${STRATA_TEST_DIR}, b: ${STRATA_TEST_DIR}", "a: /tmp/x, b: /tmp/x"},
		{"unterminated: ${STRATA_TEST_DIR", "unterminated: ${STRATA_TEST_DIR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, substituteEnvVars(tt.in), tt.in)
	}
}
