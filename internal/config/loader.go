package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/macroconf/pkg/errors"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "MACROCONF"

// newViper builds a pre-configured viper instance: YAML files, MACROCONF_
// env prefix, and a key replacer so "search.target_count" resolves to
// MACROCONF_SEARCH_TARGET_COUNT.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// registerDefaults seeds viper with every known key.  Unmarshal only reads
// keys viper has seen, so without this environment-only overrides would be
// dropped.
func registerDefaults(v *viper.Viper) {
	def := &Config{}
	ApplyDefaults(def)

	v.SetDefault("search.target_count", def.Search.TargetCount)
	v.SetDefault("search.energy_window", def.Search.EnergyWindow)
	v.SetDefault("search.rmsd_threshold", def.Search.RMSDThreshold)
	v.SetDefault("search.candidates_per_round", def.Search.CandidatesPerRound)
	v.SetDefault("search.max_rounds", def.Search.MaxRounds)
	v.SetDefault("search.stagnation_limit", def.Search.StagnationLimit)
	v.SetDefault("search.seed", def.Search.Seed)
	v.SetDefault("search.workers", def.Search.Workers)
	v.SetDefault("search.scratch_dir", def.Search.ScratchDir)

	v.SetDefault("generator.stereo_policy", def.Generator.StereoPolicy)
	v.SetDefault("generator.draw_factor", def.Generator.DrawFactor)

	v.SetDefault("relax.bond_tolerance", def.Relax.BondTolerance)
	v.SetDefault("relax.min_ring_angle_deg", def.Relax.MinRingAngleDeg)

	v.SetDefault("embed.ring_bond_angle_deg", def.Embed.RingBondAngleDeg)
	v.SetDefault("embed.closure_tolerance", def.Embed.ClosureTolerance)
	v.SetDefault("embed.max_closure_iters", def.Embed.MaxClosureIters)
	v.SetDefault("embed.min_atom_separation", def.Embed.MinAtomSeparation)

	v.SetDefault("forcefield.max_steps", def.Forcefield.MaxSteps)
	v.SetDefault("forcefield.energy_tolerance", def.Forcefield.EnergyTolerance)
	v.SetDefault("forcefield.grad_tolerance", def.Forcefield.GradTolerance)
	v.SetDefault("forcefield.initial_step", def.Forcefield.InitialStep)

	v.SetDefault("output.path", def.Output.Path)
	v.SetDefault("output.rotate", DefaultOutputRotate)

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.output_paths", def.Log.OutputPaths)

	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.listen", def.Metrics.Listen)
	v.SetDefault("metrics.namespace", def.Metrics.Namespace)
}

// Load reads the YAML file at path, merges environment overrides, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "reading config file "+path)
	}
	return finalize(v)
}

// LoadFromEnv builds a Config from MACROCONF_* environment variables and
// defaults alone, with no config file.
func LoadFromEnv() (*Config, error) {
	return finalize(newViper())
}

func finalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "unmarshalling configuration")
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch monitors path and invokes onChange with each new valid Config.  It
// is meant for hot-reloading the safe subset of settings, log level in
// particular; changes that fail to parse or validate are dropped.  Watch is
// non-blocking.
func Watch(path string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(path)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := finalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
