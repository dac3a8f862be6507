// Package config provides configuration loading, defaults, and validation
// for macroconf.  The surface is one YAML file (or MACROCONF_* environment
// variables) covering the search parameters, the geometry and energy service
// tunables, output handling, logging, and metrics.
package config

import (
	"github.com/turtacn/macroconf/internal/application/search"
	"github.com/turtacn/macroconf/internal/infrastructure/embed"
	"github.com/turtacn/macroconf/internal/infrastructure/forcefield"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/macroconf/pkg/errors"
)

// Config is the root configuration.
type Config struct {
	Search     search.Options         `mapstructure:"search"`
	Generator  search.GeneratorConfig `mapstructure:"generator"`
	Relax      search.RelaxConfig     `mapstructure:"relax"`
	Embed      embed.Config           `mapstructure:"embed"`
	Forcefield forcefield.Config      `mapstructure:"forcefield"`
	Output     OutputConfig           `mapstructure:"output"`
	Log        logging.Config         `mapstructure:"log"`
	Metrics    MetricsConfig          `mapstructure:"metrics"`
}

// OutputConfig controls where results land.
type OutputConfig struct {
	// Path is the PDB output file; the run-statistics report goes next to it
	// with a .txt extension.
	Path string `mapstructure:"path"`

	// Rotate, when true, never overwrites existing output: files are written
	// as base_0.pdb, base_1.pdb and so on.
	Rotate bool `mapstructure:"rotate"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Listen    string `mapstructure:"listen"`
	Namespace string `mapstructure:"namespace"`
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	if c.Relax.BondTolerance <= 0 {
		return errors.Validation("relax bond tolerance must be positive")
	}
	if c.Embed.ClosureTolerance <= 0 {
		return errors.Validation("embed closure tolerance must be positive")
	}
	if c.Embed.MaxClosureIters < 1 {
		return errors.Validation("embed max closure iterations must be at least 1")
	}
	if c.Forcefield.MaxSteps < 1 {
		return errors.Validation("forcefield max steps must be at least 1")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.Validation("metrics listener enabled without a listen address")
	}
	return nil
}
