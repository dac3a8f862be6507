// Package forcefield implements the energy service consumed by the
// conformational search: a compact molecular-mechanics force field (harmonic
// stretches and bends, periodic torsions, soft nonbonded repulsion) and a
// bounded steepest-descent local minimizer with backtracking line search.
//
// The force field is intentionally general-purpose rather than
// parameterized per atom type; the search only needs a smooth potential
// whose local minima correspond to strain-free ring geometries, and the
// Minimizer interface lets a finer-grained field replace this one without
// touching the search.
package forcefield

import (
	"context"
	"math"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/macroconf/pkg/errors"
)

// Force constants, kcal/mol based.
const (
	stretchK    = 300.0 // kcal/mol/Å²
	bendK       = 60.0  // kcal/mol/rad²
	torsionV3   = 1.4   // kcal/mol, 3-fold barrier for single bonds
	torsionV2   = 10.0  // kcal/mol, 2-fold barrier for double bonds
	repulsionEps   = 0.1 // kcal/mol
	repulsionSigma = 2.9 // Å
)

// Config carries the minimizer's tunables.
type Config struct {
	// MaxSteps bounds the number of descent steps per minimization.
	MaxSteps int `mapstructure:"max_steps"`

	// EnergyTolerance declares convergence when the per-step energy change
	// falls below this value (kcal/mol), together with GradTolerance.
	EnergyTolerance float64 `mapstructure:"energy_tolerance"`

	// GradTolerance is the gradient-norm convergence threshold
	// (kcal/mol/Å).
	GradTolerance float64 `mapstructure:"grad_tolerance"`

	// InitialStep is the first line-search step length in ångströms.
	InitialStep float64 `mapstructure:"initial_step"`
}

// DefaultConfig returns the tunables used in production runs.
func DefaultConfig() Config {
	return Config{
		MaxSteps:        600,
		EnergyTolerance: 1e-4,
		GradTolerance:   0.25,
		InitialStep:     5e-3,
	}
}

// Field implements conformer.Minimizer.
type Field struct {
	cfg Config
	log logging.Logger
}

// New constructs the force-field minimizer.  A nil logger falls back to the
// no-op logger.
func New(cfg Config, log logging.Logger) *Field {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.MaxSteps <= 0 {
		cfg = DefaultConfig()
	}
	return &Field{cfg: cfg, log: log.Named("forcefield")}
}

var _ conformer.Minimizer = (*Field)(nil)

// Energy evaluates the force-field energy of coords in kcal/mol.
func (f *Field) Energy(g *molecule.MolecularGraph, coords []geometry.Vec3) float64 {
	return evaluate(buildTopology(g), coords)
}

// Minimize relaxes coords by steepest descent with backtracking line search.
// Convergence requires both the energy change and the gradient norm to fall
// under the configured tolerances; the step budget is a hard bound.  The
// input slice is not mutated.
func (f *Field) Minimize(ctx context.Context, g *molecule.MolecularGraph, coords []geometry.Vec3) (conformer.MinimizeResult, error) {
	if len(coords) != g.NumAtoms() {
		return conformer.MinimizeResult{}, errors.Newf(errors.ErrCodeValidation,
			"coordinate count %d does not match atom count %d", len(coords), g.NumAtoms())
	}

	topo := buildTopology(g)
	cur := append([]geometry.Vec3(nil), coords...)
	energy := evaluate(topo, cur)
	step := f.cfg.InitialStep

	for n := 0; n < f.cfg.MaxSteps; n++ {
		if n%64 == 0 {
			if err := ctx.Err(); err != nil {
				return conformer.MinimizeResult{Coords: cur, Energy: energy, Steps: n},
					errors.Wrap(err, errors.ErrCodeSearchAborted, "minimization cancelled")
			}
		}

		grad := numericalGradient(topo, cur)
		gnorm := gradNorm(grad)

		// Backtracking line search along -grad.
		var (
			trial  []geometry.Vec3
			trialE float64
			ok     bool
		)
		for shrink := 0; shrink < 12; shrink++ {
			trial = descend(cur, grad, step)
			trialE = evaluate(topo, trial)
			if trialE < energy {
				ok = true
				break
			}
			step *= 0.5
		}
		if !ok {
			// No descent direction at any step length: treat the current
			// point as the local minimum and test the gradient criterion.
			converged := gnorm <= f.cfg.GradTolerance
			return conformer.MinimizeResult{Coords: cur, Energy: energy, Converged: converged, Steps: n}, nil
		}

		delta := energy - trialE
		cur, energy = trial, trialE
		step *= 1.25 // speculative growth, cut back by the next line search

		if delta <= f.cfg.EnergyTolerance && gnorm <= f.cfg.GradTolerance {
			return conformer.MinimizeResult{Coords: cur, Energy: energy, Converged: true, Steps: n + 1}, nil
		}
	}

	return conformer.MinimizeResult{Coords: cur, Energy: energy, Converged: false, Steps: f.cfg.MaxSteps}, nil
}

// evaluate sums all force-field terms for the given coordinates.
func evaluate(t *topology, coords []geometry.Vec3) float64 {
	var e float64

	for _, s := range t.stretches {
		d := geometry.Distance(coords[s.a], coords[s.b]) - s.d0
		e += stretchK * d * d
	}

	for _, b := range t.bends {
		d := geometry.Angle(coords[b.i], coords[b.j], coords[b.k]) - b.theta0
		e += bendK * d * d
	}

	for _, tor := range t.torsions {
		phi := geometry.Dihedral(coords[tor.a], coords[tor.b], coords[tor.c], coords[tor.d])
		if tor.order == molecule.BondDouble {
			// 2-fold term keeps both planar configurations as minima and a
			// high barrier between them, preserving E/Z assignments.
			e += torsionV2 / 2 * (1 - math.Cos(2*phi))
		} else {
			e += torsionV3 / 2 * (1 + math.Cos(3*phi))
		}
	}

	for _, p := range t.pairs {
		r := geometry.Distance(coords[p.a], coords[p.b])
		if r >= repulsionSigma || r == 0 {
			continue
		}
		q := repulsionSigma / r
		q3 := q * q * q
		e += repulsionEps * q3 * q3 * q3 * q3 // (σ/r)^12, purely repulsive
	}

	return e
}

// numericalGradient computes the central-difference gradient of the energy.
// The force field's terms are cheap enough that the 6N evaluations stay well
// under the cost of one geometry embedding.
func numericalGradient(t *topology, coords []geometry.Vec3) []geometry.Vec3 {
	const h = 1e-5
	grad := make([]geometry.Vec3, len(coords))
	work := append([]geometry.Vec3(nil), coords...)

	for i := range coords {
		for axis := 0; axis < 3; axis++ {
			orig := axisGet(&work[i], axis)
			axisSet(&work[i], axis, orig+h)
			plus := evaluate(t, work)
			axisSet(&work[i], axis, orig-h)
			minus := evaluate(t, work)
			axisSet(&work[i], axis, orig)
			axisSet(&grad[i], axis, (plus-minus)/(2*h))
		}
	}
	return grad
}

func axisGet(v *geometry.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func axisSet(v *geometry.Vec3, axis int, val float64) {
	switch axis {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	default:
		v.Z = val
	}
}

func gradNorm(grad []geometry.Vec3) float64 {
	var sum float64
	for _, g := range grad {
		sum += g.Dot(g)
	}
	return math.Sqrt(sum)
}

func descend(coords, grad []geometry.Vec3, step float64) []geometry.Vec3 {
	out := make([]geometry.Vec3, len(coords))
	for i := range coords {
		out[i] = coords[i].Sub(grad[i].Scale(step))
	}
	return out
}
