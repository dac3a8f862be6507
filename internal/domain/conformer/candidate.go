// Package conformer provides the candidate and pool domain model for the
// conformational search: constraint sets that drive embedding attempts,
// candidates carrying 3D geometries through relaxation, similarity-based
// deduplication over ring atoms, and energy-window filtering.
package conformer

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
)

// ConstraintSet is the randomized assignment that drives a single embedding
// attempt: one torsion seed per ring bond plus a stereo configuration per
// ring double bond.  A ConstraintSet is a value; it is never mutated after
// creation.
type ConstraintSet struct {
	// TorsionSeeds holds one target dihedral in radians per ring torsion,
	// in ring-walk order.
	TorsionSeeds []float64

	// StereoAssignments holds the chosen configuration per ring double bond,
	// in ring-walk order.  Empty when the ring has no double bonds.
	StereoAssignments []molecule.BondStereo
}

// Equal reports whether two constraint sets would drive identical embedding
// attempts.  Torsion seeds are compared exactly: the generator draws them
// from a discrete grid, so equality over float64 values is well-defined.
func (cs ConstraintSet) Equal(other ConstraintSet) bool {
	if len(cs.TorsionSeeds) != len(other.TorsionSeeds) ||
		len(cs.StereoAssignments) != len(other.StereoAssignments) {
		return false
	}
	for i, s := range cs.TorsionSeeds {
		if s != other.TorsionSeeds[i] {
			return false
		}
	}
	for i, s := range cs.StereoAssignments {
		if s != other.StereoAssignments[i] {
			return false
		}
	}
	return true
}

// Key returns a stable string form of the constraint set, used by the
// generator to reject duplicate draws within one call.
func (cs ConstraintSet) Key() string {
	var sb strings.Builder
	for _, s := range cs.TorsionSeeds {
		fmt.Fprintf(&sb, "%.6f;", s)
	}
	sb.WriteByte('|')
	for _, s := range cs.StereoAssignments {
		fmt.Fprintf(&sb, "%d;", s)
	}
	return sb.String()
}

// Candidate is one conformer candidate moving through the pipeline.  It is
// created by the candidate generator with coordinates from the geometry
// service, mutated in place only by the relaxation stage (minimized
// coordinates, energy, convergence), and immutable afterwards.
type Candidate struct {
	ID          uuid.UUID
	Constraints ConstraintSet
	Coords      []geometry.Vec3

	// Energy is the minimized potential energy in kcal/mol; valid only when
	// Relaxed is true.
	Energy float64

	// Relaxed marks that the relaxation stage has run on this candidate.
	Relaxed bool

	// Converged marks that the minimizer reached its tolerances within the
	// step budget.  Non-converged candidates are terminal and discarded.
	Converged bool
}

// NewCandidate wraps an embedded coordinate set with the constraint set that
// produced it.
func NewCandidate(cs ConstraintSet, coords []geometry.Vec3) *Candidate {
	return &Candidate{
		ID:          uuid.New(),
		Constraints: cs,
		Coords:      coords,
		Energy:      math.NaN(),
	}
}

// SetRelaxed records the outcome of the relaxation stage: the minimized
// coordinates, the final energy, and whether the minimizer converged.
func (c *Candidate) SetRelaxed(coords []geometry.Vec3, energy float64, converged bool) {
	c.Coords = coords
	c.Energy = energy
	c.Relaxed = true
	c.Converged = converged
}

// RingCoords returns the candidate's coordinates restricted to the given ring
// atom indices, in ring-walk order.
func (c *Candidate) RingCoords(ring []int) []geometry.Vec3 {
	return geometry.Select(c.Coords, ring)
}

func (c *Candidate) String() string {
	return fmt.Sprintf("Candidate{id=%s, energy=%.3f, relaxed=%t, converged=%t}",
		c.ID, c.Energy, c.Relaxed, c.Converged)
}
