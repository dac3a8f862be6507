package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/macroconf/internal/application/search"
	"github.com/turtacn/macroconf/pkg/errors"
)

func TestApplyDefaults_FillsEverySection(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	def := search.DefaultOptions()
	assert.Equal(t, def.TargetCount, cfg.Search.TargetCount)
	assert.Equal(t, def.RMSDThreshold, cfg.Search.RMSDThreshold)
	assert.Equal(t, search.StereoPolicyFixed, cfg.Generator.StereoPolicy)
	assert.Equal(t, 114.0, cfg.Embed.RingBondAngleDeg)
	assert.Equal(t, 600, cfg.Forcefield.MaxSteps)
	assert.Equal(t, DefaultOutputPath, cfg.Output.Path)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultMetricsNamespace, cfg.Metrics.Namespace)

	require.NoError(t, cfg.Validate())
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Search.TargetCount = 3
	cfg.Output.Path = "custom.pdb"
	ApplyDefaults(cfg)

	assert.Equal(t, 3, cfg.Search.TargetCount)
	assert.Equal(t, "custom.pdb", cfg.Output.Path)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macroconf.yaml")
	body := `
search:
  target_count: 12
  energy_window: 8.5
  seed: 7
generator:
  stereo_policy: randomize
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Search.TargetCount)
	assert.Equal(t, 8.5, cfg.Search.EnergyWindow)
	assert.Equal(t, int64(7), cfg.Search.Seed)
	assert.Equal(t, search.StereoPolicyRandomize, cfg.Generator.StereoPolicy)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset sections still get defaults.
	assert.Equal(t, 0.5, cfg.Search.RMSDThreshold)
}

func TestLoad_RotateDefaultsTrueButFileWins(t *testing.T) {
	dir := t.TempDir()

	// Unset anywhere: rotation is on.
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Output.Rotate)

	// An explicit "rotate: false" in the file must survive defaulting.
	path := filepath.Join(dir, "macroconf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  rotate: false\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Output.Rotate)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeIO))
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator:\n  stereo_policy: maybe\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestLoadFromEnv_Override(t *testing.T) {
	t.Setenv("MACROCONF_SEARCH_TARGET_COUNT", "9")
	t.Setenv("MACROCONF_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Search.TargetCount)
	assert.Equal(t, "warn", cfg.Log.Level)
}
