// Package search orchestrates the conformational search: it draws randomized
// constraint sets, embeds them through the geometry service, relaxes the
// resulting candidates in parallel through the energy service, and folds the
// survivors into a deduplicated, energy-sorted conformer pool until a target
// count, a stagnation limit, or a round budget terminates the run.
package search

import (
	"context"
	"math"
	"math/rand"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/macroconf/pkg/errors"
)

// Stereo exploration policies for ring double bonds that carry no stereo tag
// on the input graph.  Tagged bonds are always honored as given.
const (
	StereoPolicyFixed     = "fixed"
	StereoPolicyRandomize = "randomize"
)

// torsionGridSteps divides the dihedral circle for seed draws.  Drawing from
// a discrete grid keeps exact-equality duplicate detection meaningful across
// constraint sets.
const torsionGridSteps = 12

// GeneratorConfig tunes candidate generation.
type GeneratorConfig struct {
	// StereoPolicy selects how untagged ring double bonds are assigned:
	// StereoPolicyFixed pins them trans, StereoPolicyRandomize draws E or Z
	// independently per candidate.
	StereoPolicy string `mapstructure:"stereo_policy"`

	// DrawFactor bounds constraint draws per requested candidate; generation
	// for one round gives up after count*DrawFactor draws even if fewer
	// candidates embedded.
	DrawFactor int `mapstructure:"draw_factor"`
}

// DefaultGeneratorConfig returns the production generation tunables.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		StereoPolicy: StereoPolicyFixed,
		DrawFactor:   10,
	}
}

// Validate checks the configuration.
func (c GeneratorConfig) Validate() error {
	if c.StereoPolicy != StereoPolicyFixed && c.StereoPolicy != StereoPolicyRandomize {
		return errors.Newf(errors.ErrCodeValidation, "unknown stereo policy %q", c.StereoPolicy)
	}
	if c.DrawFactor < 1 {
		return errors.Validation("draw factor must be at least 1")
	}
	return nil
}

// Generator draws constraint sets and turns them into embedded candidates.
type Generator struct {
	cfg      GeneratorConfig
	embedder conformer.Embedder
	log      logging.Logger
}

// NewGenerator constructs a candidate generator.  A nil logger falls back to
// the no-op logger.
func NewGenerator(cfg GeneratorConfig, embedder conformer.Embedder, log logging.Logger) *Generator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Generator{cfg: cfg, embedder: embedder, log: log.Named("generator")}
}

// GenerateStats reports what one Generate call consumed and discarded.
type GenerateStats struct {
	// Draws counts constraint sets drawn, including duplicates.
	Draws int
	// DuplicateDraws counts draws discarded for repeating an earlier
	// constraint set within the same call.
	DuplicateDraws int
	// EmbedRejected counts draws whose embedding was rejected.
	EmbedRejected int
}

// Generate draws up to count distinct constraint sets, embeds each, and
// returns the candidates that embedded successfully, in draw order.
// Embedding rejections are dropped silently and tallied as unproductive
// attempts; any other embedder error aborts generation.  All randomness flows
// through rng, so a fixed source reproduces the exact candidate sequence.
func (g *Generator) Generate(ctx context.Context, graph *molecule.MolecularGraph, count int, rng *rand.Rand) ([]*conformer.Candidate, GenerateStats, error) {
	var stats GenerateStats
	if count <= 0 {
		return nil, stats, nil
	}
	ring := graph.Macrocycle()
	if len(ring) == 0 {
		return nil, stats, errors.New(errors.ErrCodeNoMacrocycle, "cannot generate candidates without a macrocycle")
	}

	var cands []*conformer.Candidate
	seen := make(map[string]struct{})
	maxDraws := count * g.cfg.DrawFactor

	for len(cands) < count && stats.Draws < maxDraws {
		if err := ctx.Err(); err != nil {
			return nil, stats, errors.Wrap(err, errors.ErrCodeSearchAborted, "candidate generation cancelled")
		}
		stats.Draws++

		cs := g.drawConstraints(graph, ring, rng)
		key := cs.Key()
		if _, dup := seen[key]; dup {
			stats.DuplicateDraws++
			continue
		}
		seen[key] = struct{}{}

		coords, err := g.embedder.Embed(ctx, graph, cs)
		if err != nil {
			if errors.IsRejection(err) {
				stats.EmbedRejected++
				g.log.Debug("embedding rejected", logging.Err(err))
				continue
			}
			return nil, stats, err
		}
		cands = append(cands, conformer.NewCandidate(cs, coords))
	}
	return cands, stats, nil
}

// drawConstraints produces one randomized constraint set.  Single-bond ring
// torsions come from the discrete dihedral grid; double-bond torsions are
// pinned to the planar value matching their stereo assignment so the
// embedding preserves configuration.
func (g *Generator) drawConstraints(graph *molecule.MolecularGraph, ring []int, rng *rand.Rand) conformer.ConstraintSet {
	n := len(ring)
	seeds := make([]float64, n)
	var stereo []molecule.BondStereo

	for k := 0; k < n; k++ {
		bond, ok := graph.BondBetween(ring[k], ring[(k+1)%n])
		if ok && bond.Order == molecule.BondDouble {
			assigned := bond.Stereo
			if assigned == molecule.StereoNone {
				assigned = molecule.StereoE
				if g.cfg.StereoPolicy == StereoPolicyRandomize && rng.Intn(2) == 1 {
					assigned = molecule.StereoZ
				}
			}
			stereo = append(stereo, assigned)
			seeds[k] = planarTorsion(assigned)
			continue
		}
		seeds[k] = gridTorsion(rng.Intn(torsionGridSteps))
	}
	return conformer.ConstraintSet{TorsionSeeds: seeds, StereoAssignments: stereo}
}

// gridTorsion maps a grid index to a dihedral in (-π, π].
func gridTorsion(k int) float64 {
	return float64(k-torsionGridSteps/2+1) * (2 * math.Pi / torsionGridSteps)
}

// planarTorsion returns the ring dihedral matching a double-bond
// configuration: cis for Z, trans for E.
func planarTorsion(s molecule.BondStereo) float64 {
	if s == molecule.StereoZ {
		return 0
	}
	return math.Pi
}
