package config

import (
	"github.com/turtacn/macroconf/internal/application/search"
	"github.com/turtacn/macroconf/internal/infrastructure/embed"
	"github.com/turtacn/macroconf/internal/infrastructure/forcefield"
)

const (
	DefaultOutputPath = "conformers.pdb"

	// DefaultOutputRotate is registered as a viper default rather than in
	// ApplyDefaults: a bool's zero value cannot be told apart from an
	// explicit false, so only the loader can default it without clobbering
	// a configured "rotate: false".
	DefaultOutputRotate = true

	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	DefaultMetricsListen    = ":9464"
	DefaultMetricsNamespace = "macroconf"
)

// ApplyDefaults fills zero-value fields with production defaults.  Explicit
// configuration always wins: only unset fields are touched.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	def := search.DefaultOptions()
	if cfg.Search.TargetCount == 0 {
		cfg.Search.TargetCount = def.TargetCount
	}
	if cfg.Search.EnergyWindow == 0 {
		cfg.Search.EnergyWindow = def.EnergyWindow
	}
	if cfg.Search.RMSDThreshold == 0 {
		cfg.Search.RMSDThreshold = def.RMSDThreshold
	}
	if cfg.Search.CandidatesPerRound == 0 {
		cfg.Search.CandidatesPerRound = def.CandidatesPerRound
	}
	if cfg.Search.MaxRounds == 0 {
		cfg.Search.MaxRounds = def.MaxRounds
	}
	if cfg.Search.StagnationLimit == 0 {
		cfg.Search.StagnationLimit = def.StagnationLimit
	}
	if cfg.Search.Seed == 0 {
		cfg.Search.Seed = def.Seed
	}
	if cfg.Search.Workers == 0 {
		cfg.Search.Workers = def.Workers
	}

	genDef := search.DefaultGeneratorConfig()
	if cfg.Generator.StereoPolicy == "" {
		cfg.Generator.StereoPolicy = genDef.StereoPolicy
	}
	if cfg.Generator.DrawFactor == 0 {
		cfg.Generator.DrawFactor = genDef.DrawFactor
	}

	relaxDef := search.DefaultRelaxConfig()
	if cfg.Relax.BondTolerance == 0 {
		cfg.Relax.BondTolerance = relaxDef.BondTolerance
	}
	if cfg.Relax.MinRingAngleDeg == 0 {
		cfg.Relax.MinRingAngleDeg = relaxDef.MinRingAngleDeg
	}

	embDef := embed.DefaultConfig()
	if cfg.Embed.RingBondAngleDeg == 0 {
		cfg.Embed.RingBondAngleDeg = embDef.RingBondAngleDeg
	}
	if cfg.Embed.ClosureTolerance == 0 {
		cfg.Embed.ClosureTolerance = embDef.ClosureTolerance
	}
	if cfg.Embed.MaxClosureIters == 0 {
		cfg.Embed.MaxClosureIters = embDef.MaxClosureIters
	}
	if cfg.Embed.MinAtomSeparation == 0 {
		cfg.Embed.MinAtomSeparation = embDef.MinAtomSeparation
	}

	ffDef := forcefield.DefaultConfig()
	if cfg.Forcefield.MaxSteps == 0 {
		cfg.Forcefield.MaxSteps = ffDef.MaxSteps
	}
	if cfg.Forcefield.EnergyTolerance == 0 {
		cfg.Forcefield.EnergyTolerance = ffDef.EnergyTolerance
	}
	if cfg.Forcefield.GradTolerance == 0 {
		cfg.Forcefield.GradTolerance = ffDef.GradTolerance
	}
	if cfg.Forcefield.InitialStep == 0 {
		cfg.Forcefield.InitialStep = ffDef.InitialStep
	}

	if cfg.Output.Path == "" {
		cfg.Output.Path = DefaultOutputPath
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stderr"}
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}
