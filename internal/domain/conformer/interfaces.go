package conformer

import (
	"context"

	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
)

// Embedder is the geometry service contract: produce one candidate 3D
// coordinate set for the graph under the given ring-torsion and stereo
// constraints.
//
// An attempt that finds no geometrically consistent ring closure returns an
// error carrying errors.ErrCodeEmbeddingRejected; callers treat that as an
// expected per-attempt outcome, not a fault.  Any other error is fatal
// (service misconfigured, graph unsupported).
type Embedder interface {
	Embed(ctx context.Context, g *molecule.MolecularGraph, cs ConstraintSet) ([]geometry.Vec3, error)
}

// MinimizeResult is the outcome of one local minimization.
type MinimizeResult struct {
	// Coords is the minimized geometry (always returned, even when not
	// converged, so callers can inspect how far the run got).
	Coords []geometry.Vec3

	// Energy is the potential energy of Coords in kcal/mol.
	Energy float64

	// Converged reports whether the energy change and gradient norm both fell
	// under the minimizer's tolerances within its step budget.
	Converged bool

	// Steps is the number of minimization steps taken.
	Steps int
}

// Minimizer is the energy service contract: relax a coordinate set to a
// local minimum of a molecular-mechanics force field.  Minimization is
// bounded by an internal step budget and never blocks indefinitely.
type Minimizer interface {
	Minimize(ctx context.Context, g *molecule.MolecularGraph, coords []geometry.Vec3) (MinimizeResult, error)

	// Energy evaluates the force-field energy of coords without minimizing.
	Energy(g *molecule.MolecularGraph, coords []geometry.Vec3) float64
}
