package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/macroconf/internal/application/search"
	"github.com/turtacn/macroconf/internal/config"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/internal/infrastructure/chemio"
	"github.com/turtacn/macroconf/internal/infrastructure/embed"
	"github.com/turtacn/macroconf/internal/infrastructure/forcefield"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/macroconf/pkg/errors"
)

// generateOptions holds the generate command's flags.
type generateOptions struct {
	sdfPath string
	outPath string

	target        int
	energyWindow  float64
	rmsdThreshold float64
	maxRounds     int
	stagnation    int
	seed          int64
	workers       int
	stereoPolicy  string
	rotate        bool
}

func newGenerateCommand(app *appContext) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a conformer ensemble for each macrocycle in an SDF file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyFlagOverrides(cmd, opts, app.cfg)
			return runGenerate(cmd.Context(), app, opts)
		},
	}

	def := search.DefaultOptions()
	cmd.Flags().StringVar(&opts.sdfPath, "sdf", "", "input SDF (V2000) file, one record per molecule")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "output PDB file (run statistics land next to it as .txt)")
	cmd.Flags().IntVarP(&opts.target, "target", "n", def.TargetCount, "target number of unique conformers")
	cmd.Flags().Float64Var(&opts.energyWindow, "energy-window", def.EnergyWindow, "energy window above the minimum, kcal/mol")
	cmd.Flags().Float64Var(&opts.rmsdThreshold, "rmsd-threshold", def.RMSDThreshold, "ring RMSD below which conformers are duplicates, Å")
	cmd.Flags().IntVar(&opts.maxRounds, "max-rounds", def.MaxRounds, "maximum search rounds")
	cmd.Flags().IntVar(&opts.stagnation, "stagnation", def.StagnationLimit, "stop after this many rounds without a new conformer")
	cmd.Flags().Int64Var(&opts.seed, "seed", def.Seed, "random seed; identical seeds reproduce identical ensembles")
	cmd.Flags().IntVar(&opts.workers, "workers", def.Workers, "concurrent relaxations")
	cmd.Flags().StringVar(&opts.stereoPolicy, "stereo", "", "stereo policy for untagged ring double bonds: fixed or randomize")
	cmd.Flags().BoolVar(&opts.rotate, "rotate", true, "never overwrite output files; write base_0.pdb, base_1.pdb, …")

	_ = cmd.MarkFlagRequired("sdf")
	return cmd
}

// applyFlagOverrides copies changed flags over the loaded configuration, so
// precedence is flags > config file > environment > defaults.
func applyFlagOverrides(cmd *cobra.Command, opts *generateOptions, cfg *config.Config) {
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("target", func() { cfg.Search.TargetCount = opts.target })
	set("energy-window", func() { cfg.Search.EnergyWindow = opts.energyWindow })
	set("rmsd-threshold", func() { cfg.Search.RMSDThreshold = opts.rmsdThreshold })
	set("max-rounds", func() { cfg.Search.MaxRounds = opts.maxRounds })
	set("stagnation", func() { cfg.Search.StagnationLimit = opts.stagnation })
	set("seed", func() { cfg.Search.Seed = opts.seed })
	set("workers", func() { cfg.Search.Workers = opts.workers })
	set("stereo", func() { cfg.Generator.StereoPolicy = opts.stereoPolicy })
	set("rotate", func() { cfg.Output.Rotate = opts.rotate })
	if opts.outPath != "" {
		cfg.Output.Path = opts.outPath
	}
}

func runGenerate(ctx context.Context, app *appContext, opts *generateOptions) error {
	cfg, log := app.cfg, app.log
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := startMetrics(cfg, log)

	mols, err := chemio.ReadSDFFile(opts.sdfPath)
	if err != nil {
		return err
	}
	log.Info("input parsed", logging.String("file", opts.sdfPath), logging.Int("molecules", len(mols)))

	embedder := embed.NewCCDEmbedder(cfg.Embed, log)
	field := forcefield.New(cfg.Forcefield, log)
	gen := search.NewGenerator(cfg.Generator, embedder, log)
	relaxer := search.NewRelaxer(cfg.Relax, field, log)

	failures := 0
	for _, g := range mols {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodeSearchAborted, "run cancelled")
		}
		if err := generateOne(ctx, cfg, log, metrics, gen, relaxer, g, len(mols) > 1); err != nil {
			// One molecule failing must not sink the batch.
			log.Error("molecule skipped", logging.String("molecule", g.Name()), logging.Err(err))
			failures++
		}
	}
	if failures == len(mols) {
		return errors.Newf(errors.ErrCodeInternal, "all %d molecules failed", len(mols))
	}
	return nil
}

func generateOne(ctx context.Context, cfg *config.Config, log logging.Logger, metrics *prometheus.SearchMetrics, gen *search.Generator, relaxer *search.Relaxer, g *molecule.MolecularGraph, multi bool) error {
	orch := search.NewOrchestrator(cfg.Search, gen, relaxer, log, metrics)

	started := time.Now()
	res, err := orch.Run(ctx, g)
	if err != nil {
		return err
	}

	pdbPath, statsPath := outputPaths(cfg.Output, g.Name(), multi)
	if err := chemio.WritePDBFile(pdbPath, g, res.Conformers); err != nil {
		return err
	}

	stats := chemio.CollectStats(g, res.Conformers, time.Since(started), searchParams(cfg, res))
	if err := chemio.WriteStatsFile(statsPath, stats); err != nil {
		return err
	}

	log.Info("ensemble written",
		logging.String("molecule", g.Name()),
		logging.String("status", res.Status.String()),
		logging.Int("conformers", len(res.Conformers)),
		logging.String("pdb", pdbPath))
	return nil
}

// outputPaths derives the PDB and statistics paths for one molecule,
// suffixing the molecule name in multi-record runs and applying rotation.
func outputPaths(out config.OutputConfig, name string, multi bool) (string, string) {
	pdb := out.Path
	if multi {
		ext := filepath.Ext(pdb)
		pdb = strings.TrimSuffix(pdb, ext) + "_" + sanitizeName(name) + ext
	}
	txt := strings.TrimSuffix(pdb, filepath.Ext(pdb)) + ".txt"
	if out.Rotate {
		pdb = chemio.RotatePath(pdb)
		txt = chemio.RotatePath(txt)
	}
	return pdb, txt
}

func sanitizeName(name string) string {
	if name == "" {
		return "mol"
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return clean
}

// searchParams dumps the effective parameters into the statistics report.
func searchParams(cfg *config.Config, res *search.Result) map[string]string {
	return map[string]string{
		"target_count":         fmt.Sprintf("%d", cfg.Search.TargetCount),
		"energy_window":        fmt.Sprintf("%g", cfg.Search.EnergyWindow),
		"rmsd_threshold":       fmt.Sprintf("%g", cfg.Search.RMSDThreshold),
		"candidates_per_round": fmt.Sprintf("%d", cfg.Search.CandidatesPerRound),
		"max_rounds":           fmt.Sprintf("%d", cfg.Search.MaxRounds),
		"stagnation_limit":     fmt.Sprintf("%d", cfg.Search.StagnationLimit),
		"seed":                 fmt.Sprintf("%d", cfg.Search.Seed),
		"workers":              fmt.Sprintf("%d", cfg.Search.Workers),
		"stereo_policy":        cfg.Generator.StereoPolicy,
		"status":               res.Status.String(),
		"rounds":               fmt.Sprintf("%d", res.State.Round),
	}
}

// startMetrics brings up the optional Prometheus listener.
func startMetrics(cfg *config.Config, log logging.Logger) *prometheus.SearchMetrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	collector, err := prometheus.NewCollector(prometheus.CollectorConfig{Namespace: cfg.Metrics.Namespace})
	if err != nil {
		log.Warn("metrics disabled", logging.Err(err))
		return nil
	}
	metrics := prometheus.NewSearchMetrics(collector)

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	go func() {
		if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
			log.Warn("metrics listener stopped", logging.Err(err))
		}
	}()
	log.Info("metrics listening", logging.String("addr", cfg.Metrics.Listen))
	return metrics
}
