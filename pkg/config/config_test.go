package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseConfigIsValid(t *testing.T) {
	cfg := NewBaseConfig("profile")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, LayoutUnion, cfg.Reduction.LayoutPolicy)
	assert.Equal(t, BackendMemory, cfg.Sampling.Backend)
	assert.Equal(t, -1, cfg.Reduction.RenderLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BaseConfig)
		errMsg string
	}{
		{name: "missing name", mutate: func(c *BaseConfig) { c.Name = "" }, errMsg: "name is required"},
		{name: "zero partitions", mutate: func(c *BaseConfig) { c.Performance.Partitions = 0 }, errMsg: "partitions must be positive"},
		{name: "bad backend", mutate: func(c *BaseConfig) { c.Sampling.Backend = "redis" }, errMsg: "unknown sampling backend"},
		{name: "bad layout", mutate: func(c *BaseConfig) { c.Reduction.LayoutPolicy = "loose" }, errMsg: "unknown layout policy"},
		{name: "bad sample rate", mutate: func(c *BaseConfig) { c.Observability.TracingSampleRate = 2 }, errMsg: "tracing_sample_rate"},
		{name: "negative sample cap", mutate: func(c *BaseConfig) { c.Sampling.MaxSampleRows = -1 }, errMsg: "max_sample_rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewBaseConfig("profile")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("PROFILE_PARTITIONS", "4")
	t.Setenv("PROFILE_EMPTY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
name: nightly
performance:
  partitions: ${PROFILE_PARTITIONS}
sampling:
  backend: ${PROFILE_BACKEND:-badger}
  badger_path: ${PROFILE_EMPTY:-/tmp/samples}
reduction:
  layout_policy: strict
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := NewBaseConfig("default")
	require.NoError(t, Load(path, cfg))

	assert.Equal(t, "nightly", cfg.Name)
	assert.Equal(t, 4, cfg.Performance.Partitions)
	assert.Equal(t, BackendBadger, cfg.Sampling.Backend)
	assert.Equal(t, "/tmp/samples", cfg.Sampling.BadgerPath)
	assert.True(t, cfg.Sampling.IsPersistent())
	assert.Equal(t, LayoutStrict, cfg.Reduction.LayoutPolicy)
	// untouched sections keep their defaults
	assert.Equal(t, 20, cfg.Sampling.MaxSampleRows)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := NewBaseConfig("saved")
	cfg.Performance.Partitions = 3

	require.NoError(t, Save(path, cfg))

	var loaded BaseConfig
	require.NoError(t, Load(path, &loaded))
	assert.Equal(t, cfg.Performance.Partitions, loaded.Performance.Partitions)
	assert.Equal(t, cfg.Sampling, loaded.Sampling)
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), NewBaseConfig("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("SUBST_A", "alpha")

	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "${SUBST_A}", want: "alpha"},
		{in: "x-${SUBST_A}-${SUBST_A}-y", want: "x-alpha-alpha-y"},
		{in: "${SUBST_UNSET_VAR}", want: ""},
		{in: "${SUBST_UNSET_VAR:-fallback}", want: "fallback"},
		{in: "unterminated ${SUBST_A", want: "unterminated ${SUBST_A"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.in))
		})
	}
}
