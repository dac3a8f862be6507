package search

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/macroconf/pkg/errors"
)

// Options is the orchestrator's configuration surface.
type Options struct {
	// TargetCount terminates the search once this many unique conformers sit
	// inside the energy window.
	TargetCount int `mapstructure:"target_count"`

	// EnergyWindow is the kcal/mol cutoff above the pool minimum.
	EnergyWindow float64 `mapstructure:"energy_window"`

	// RMSDThreshold is the ring-atom best-fit RMSD below which two
	// conformers count as duplicates.
	RMSDThreshold float64 `mapstructure:"rmsd_threshold"`

	// CandidatesPerRound is how many embedded candidates each round targets.
	CandidatesPerRound int `mapstructure:"candidates_per_round"`

	// MaxRounds bounds the total number of rounds.
	MaxRounds int `mapstructure:"max_rounds"`

	// StagnationLimit terminates after this many consecutive rounds with
	// zero new pool insertions.
	StagnationLimit int `mapstructure:"stagnation_limit"`

	// Seed initializes the pseudo-random source; identical seeds reproduce
	// identical searches.
	Seed int64 `mapstructure:"seed"`

	// Workers bounds concurrent relaxations. Zero or negative means one.
	Workers int `mapstructure:"workers"`

	// ScratchDir, when set, receives a per-round working directory holding
	// the round manifest while the round runs.  The whole tree is removed on
	// every exit path.
	ScratchDir string `mapstructure:"scratch_dir"`
}

// DefaultOptions returns the production search parameters.
func DefaultOptions() Options {
	return Options{
		TargetCount:        20,
		EnergyWindow:       15.0,
		RMSDThreshold:      0.5,
		CandidatesPerRound: 30,
		MaxRounds:          50,
		StagnationLimit:    5,
		Seed:               1,
		Workers:            4,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.TargetCount < 1 {
		return errors.Validation("target count must be at least 1")
	}
	if o.EnergyWindow < 0 {
		return errors.Validation("energy window must be non-negative")
	}
	if o.RMSDThreshold <= 0 {
		return errors.Validation("rmsd threshold must be positive")
	}
	if o.CandidatesPerRound < 1 {
		return errors.Validation("candidates per round must be at least 1")
	}
	if o.MaxRounds < 1 {
		return errors.Validation("max rounds must be at least 1")
	}
	if o.StagnationLimit < 1 {
		return errors.Validation("stagnation limit must be at least 1")
	}
	return nil
}

// Result is what a finished search hands back.
type Result struct {
	// Status is CONVERGED, EXHAUSTED, or FAILED.
	Status Status

	// Conformers is the energy-window filtered pool, ascending by energy.
	// Empty on FAILED.
	Conformers []*conformer.Candidate

	// PoolSize is the total unique conformer count, window included or not.
	PoolSize int

	// State is a copy of the final round counters.
	State SearchState

	// Reason carries the failure code on FAILED, or a diagnostic on an
	// empty EXHAUSTED result.  Nil otherwise.
	Reason error

	// Elapsed is the search wall time.
	Elapsed time.Duration
}

// Orchestrator drives the search state machine.
type Orchestrator struct {
	opts    Options
	gen     *Generator
	relaxer *Relaxer
	log     logging.Logger
	metrics *prometheus.SearchMetrics
}

// NewOrchestrator wires the search pipeline.  Metrics may be nil; a nil
// logger falls back to the no-op logger.
func NewOrchestrator(opts Options, gen *Generator, relaxer *Relaxer, log logging.Logger, metrics *prometheus.SearchMetrics) *Orchestrator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Orchestrator{
		opts:    opts,
		gen:     gen,
		relaxer: relaxer,
		log:     log.Named("orchestrator"),
		metrics: metrics,
	}
}

// Run executes the search to a terminal state.  A fatal precondition returns
// a FAILED result together with the reason error; CONVERGED and EXHAUSTED
// return a nil error.  Context cancellation is honored at round boundaries
// and aborts with ErrCodeSearchAborted.
func (o *Orchestrator) Run(ctx context.Context, graph *molecule.MolecularGraph) (*Result, error) {
	started := time.Now()

	// INITIALIZING: structural preconditions.
	if err := o.opts.Validate(); err != nil {
		return o.failed(started, SearchState{}, err), err
	}
	if !graph.HasMacrocycle(molecule.MinMacroRingSize) {
		err := errors.Newf(errors.ErrCodeNoMacrocycle,
			"molecule %q has no macrocyclic ring of at least %d atoms", graph.Name(), molecule.MinMacroRingSize)
		return o.failed(started, SearchState{}, err), err
	}

	scratch, err := o.makeScratch()
	if err != nil {
		return o.failed(started, SearchState{}, err), err
	}
	if scratch != "" {
		defer os.RemoveAll(scratch)
	}

	rng := rand.New(rand.NewSource(o.opts.Seed))
	pool := conformer.NewPool(o.opts.RMSDThreshold, graph.Macrocycle())
	var state SearchState

	o.log.Info("search starting",
		logging.String("molecule", graph.Name()),
		logging.Int("ring_size", graph.RingSize()),
		logging.Int("target", o.opts.TargetCount))

	// SEARCHING.
	for state.Round < o.opts.MaxRounds {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSearchAborted,
				fmt.Sprintf("search cancelled after %d rounds", state.Round))
		}

		roundStart := time.Now()
		accepted, err := o.runRound(ctx, graph, rng, pool, &state, scratch)
		if err != nil {
			return o.failed(started, state, err), err
		}
		state.Round++
		o.metrics.ObserveRound(time.Since(roundStart), pool.Len())

		if accepted == 0 {
			state.StagnantRounds++
		} else {
			state.StagnantRounds = 0
		}

		windowed := conformer.Window(pool.Members(), o.opts.EnergyWindow)
		o.log.Info("round finished",
			logging.Int("round", state.Round),
			logging.Int("accepted", accepted),
			logging.Int("pool", pool.Len()),
			logging.Int("in_window", len(windowed)),
			logging.Duration("took", time.Since(roundStart)))

		if len(windowed) >= o.opts.TargetCount {
			return o.terminal(StatusConverged, started, state, pool, windowed, nil), nil
		}
		if state.StagnantRounds >= o.opts.StagnationLimit {
			break
		}
	}

	// EXHAUSTED — unless embedding never worked at all, which is a
	// structural precondition failure dressed up as bad luck.
	if state.Embedded == 0 {
		err := errors.Newf(errors.ErrCodeEmbeddingNeverWorked,
			"no constraint set embedded in %d rounds (%d draws)", state.Round, state.Draws)
		return o.failed(started, state, err), err
	}

	windowed := conformer.Window(pool.Members(), o.opts.EnergyWindow)
	var reason error
	if pool.Len() == 0 {
		reason = errors.Newf(errors.ErrCodeAllNonConvergent,
			"%d candidates embedded, none survived relaxation", state.Embedded)
	}
	return o.terminal(StatusExhausted, started, state, pool, windowed, reason), nil
}

// runRound executes one generate → relax → dedupe round and returns the
// number of new pool insertions.
func (o *Orchestrator) runRound(ctx context.Context, graph *molecule.MolecularGraph, rng *rand.Rand, pool *conformer.Pool, state *SearchState, scratch string) (int, error) {
	cands, stats, err := o.gen.Generate(ctx, graph, o.opts.CandidatesPerRound, rng)
	if err != nil {
		return 0, err
	}
	state.Draws += stats.Draws
	state.EmbedRejected += stats.EmbedRejected
	state.Embedded += len(cands)
	o.metrics.AddAttempted(stats.Draws - stats.DuplicateDraws)
	o.metrics.AddRejected(prometheus.ReasonEmbedding, stats.EmbedRejected)

	o.writeRoundManifest(scratch, state.Round+1, len(cands))

	// Relax in parallel; outcomes land by index so the sequential dedupe
	// pass below always sees candidates in generation order.
	outcomes := make([]error, len(cands))
	grp, grpCtx := errgroup.WithContext(ctx)
	workers := o.opts.Workers
	if workers < 1 {
		workers = 1
	}
	grp.SetLimit(workers)
	for i, cand := range cands {
		i, cand := i, cand
		grp.Go(func() error {
			err := o.relaxer.Relax(grpCtx, graph, cand)
			if err != nil && !errors.IsRejection(err) {
				return err
			}
			outcomes[i] = err
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return 0, err
	}

	accepted := 0
	for i, cand := range cands {
		switch {
		case outcomes[i] == nil:
			switch pool.Insert(cand) {
			case conformer.Inserted:
				accepted++
				state.Accepted++
				o.metrics.AddAccepted(1)
			default:
				state.Duplicates++
				o.metrics.AddRejected(prometheus.ReasonDuplicate, 1)
			}
		case errors.IsCode(outcomes[i], errors.ErrCodeRingIntegrity):
			state.IntegrityRejected++
			o.metrics.AddRejected(prometheus.ReasonRingIntegrity, 1)
		default:
			state.NonConvergent++
			o.metrics.AddRejected(prometheus.ReasonNonConvergent, 1)
		}
	}
	return accepted, nil
}

func (o *Orchestrator) terminal(status Status, started time.Time, state SearchState, pool *conformer.Pool, windowed []*conformer.Candidate, reason error) *Result {
	res := &Result{
		Status:     status,
		Conformers: windowed,
		PoolSize:   pool.Len(),
		State:      state,
		Reason:     reason,
		Elapsed:    time.Since(started),
	}
	o.log.Info("search finished",
		logging.String("status", status.String()),
		logging.Int("conformers", len(windowed)),
		logging.Int("pool", res.PoolSize),
		logging.Int("rounds", state.Round),
		logging.Duration("took", res.Elapsed))
	return res
}

func (o *Orchestrator) failed(started time.Time, state SearchState, reason error) *Result {
	o.log.Error("search failed", logging.Err(reason), logging.Int("rounds", state.Round))
	return &Result{
		Status:  StatusFailed,
		State:   state,
		Reason:  reason,
		Elapsed: time.Since(started),
	}
}

// makeScratch creates the run's scratch directory when configured.
func (o *Orchestrator) makeScratch() (string, error) {
	if o.opts.ScratchDir == "" {
		return "", nil
	}
	dir, err := os.MkdirTemp(o.opts.ScratchDir, "macroconf-run-")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeIO, "creating scratch directory")
	}
	return dir, nil
}

// writeRoundManifest drops a small progress file into the scratch directory.
// It exists so a hung or killed run leaves evidence of how far it got; write
// failures are logged and otherwise ignored.
func (o *Orchestrator) writeRoundManifest(scratch string, round, embedded int) {
	if scratch == "" {
		return
	}
	path := filepath.Join(scratch, fmt.Sprintf("round_%03d.txt", round))
	body := fmt.Sprintf("round=%d embedded=%d time=%s\n", round, embedded, time.Now().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		o.log.Warn("round manifest write failed", logging.Err(err))
	}
}
