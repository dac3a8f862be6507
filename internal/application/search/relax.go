package search

import (
	"context"
	"math"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/macroconf/pkg/errors"
)

// RelaxConfig tunes the post-minimization structural sanity check.
type RelaxConfig struct {
	// BondTolerance is the maximum allowed deviation in ångströms of any ring
	// bond length from its ideal covalent value after minimization.
	BondTolerance float64 `mapstructure:"bond_tolerance"`

	// MinRingAngleDeg rejects geometries where any ring bond angle collapses
	// below this value, which indicates the minimizer relieved strain by
	// folding the ring onto itself.
	MinRingAngleDeg float64 `mapstructure:"min_ring_angle_deg"`
}

// DefaultRelaxConfig returns the production relaxation tunables.
func DefaultRelaxConfig() RelaxConfig {
	return RelaxConfig{
		BondTolerance:   0.35,
		MinRingAngleDeg: 70.0,
	}
}

// Relaxer runs candidates through the energy service's local minimizer and
// guards ring integrity afterwards.
type Relaxer struct {
	cfg RelaxConfig
	min conformer.Minimizer
	log logging.Logger
}

// NewRelaxer constructs a relaxation stage.  A nil logger falls back to the
// no-op logger.
func NewRelaxer(cfg RelaxConfig, min conformer.Minimizer, log logging.Logger) *Relaxer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Relaxer{cfg: cfg, min: min, log: log.Named("relax")}
}

// Relax minimizes the candidate's geometry in place and records its energy
// and convergence status.  A rejection error (non-convergence or a ring
// integrity violation) is an expected per-attempt outcome; the candidate is
// marked relaxed either way, and any other error is fatal to the round.
func (r *Relaxer) Relax(ctx context.Context, graph *molecule.MolecularGraph, cand *conformer.Candidate) error {
	res, err := r.min.Minimize(ctx, graph, cand.Coords)
	if err != nil {
		return err
	}
	cand.SetRelaxed(res.Coords, res.Energy, res.Converged)

	if !res.Converged {
		return errors.Newf(errors.ErrCodeNotConverged,
			"minimizer spent %d steps without reaching tolerances", res.Steps)
	}
	if err := r.checkRingIntegrity(graph, res.Coords); err != nil {
		cand.Converged = false
		return err
	}
	return nil
}

// checkRingIntegrity verifies the minimized ring still has covalent-range
// bond lengths and open bond angles.
func (r *Relaxer) checkRingIntegrity(graph *molecule.MolecularGraph, coords []geometry.Vec3) error {
	ring := graph.Macrocycle()
	n := len(ring)
	minAngle := r.cfg.MinRingAngleDeg * math.Pi / 180

	for k := 0; k < n; k++ {
		a, b := ring[k], ring[(k+1)%n]
		order := molecule.BondSingle
		if bond, ok := graph.BondBetween(a, b); ok {
			order = bond.Order
		}
		ideal := molecule.IdealBondLength(graph.Atom(a).Element, graph.Atom(b).Element, order)
		d := geometry.Distance(coords[a], coords[b])
		if math.Abs(d-ideal) > r.cfg.BondTolerance {
			return errors.Newf(errors.ErrCodeRingIntegrity,
				"ring bond %d-%d length %.3f strayed from ideal %.3f", a, b, d, ideal)
		}

		prev := ring[(k-1+n)%n]
		angle := geometry.Angle(coords[prev], coords[a], coords[b])
		if angle < minAngle {
			return errors.Newf(errors.ErrCodeRingIntegrity,
				"ring angle at atom %d collapsed to %.1f°", a, angle*180/math.Pi)
		}
	}
	return nil
}
