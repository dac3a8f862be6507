package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/internal/testutil"
	"github.com/turtacn/macroconf/pkg/errors"
)

func newCandidate(n int) *conformer.Candidate {
	return conformer.NewCandidate(conformer.ConstraintSet{TorsionSeeds: make([]float64, n)}, decagonCoords(n, 1))
}

func TestRelax_Success(t *testing.T) {
	g := ringGraph(t, 10)
	min := &testutil.FakeMinimizer{
		MinimizeFn: func(_ context.Context, _ *molecule.MolecularGraph, coords []geometry.Vec3) (conformer.MinimizeResult, error) {
			return conformer.MinimizeResult{Coords: coords, Energy: -4.2, Converged: true, Steps: 17}, nil
		},
	}
	r := NewRelaxer(DefaultRelaxConfig(), min, nil)

	cand := newCandidate(10)
	require.NoError(t, r.Relax(context.Background(), g, cand))
	assert.True(t, cand.Relaxed)
	assert.True(t, cand.Converged)
	assert.Equal(t, -4.2, cand.Energy)
}

func TestRelax_NonConvergenceIsRejection(t *testing.T) {
	g := ringGraph(t, 10)
	min := &testutil.FakeMinimizer{
		MinimizeFn: func(_ context.Context, _ *molecule.MolecularGraph, coords []geometry.Vec3) (conformer.MinimizeResult, error) {
			return conformer.MinimizeResult{Coords: coords, Energy: 99, Converged: false, Steps: 600}, nil
		},
	}
	r := NewRelaxer(DefaultRelaxConfig(), min, nil)

	cand := newCandidate(10)
	err := r.Relax(context.Background(), g, cand)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotConverged))
	assert.True(t, errors.IsRejection(err))
	assert.True(t, cand.Relaxed)
	assert.False(t, cand.Converged)
}

func TestRelax_BrokenRingIsRejection(t *testing.T) {
	g := ringGraph(t, 10)
	// Minimizer "converges" into a uniformly stretched ring, the signature
	// of strain relief through a broken bond term.
	min := &testutil.FakeMinimizer{
		MinimizeFn: func(_ context.Context, _ *molecule.MolecularGraph, _ []geometry.Vec3) (conformer.MinimizeResult, error) {
			return conformer.MinimizeResult{Coords: decagonCoords(10, 1.5), Energy: -1, Converged: true, Steps: 30}, nil
		},
	}
	r := NewRelaxer(DefaultRelaxConfig(), min, nil)

	cand := newCandidate(10)
	err := r.Relax(context.Background(), g, cand)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRingIntegrity))
	assert.True(t, errors.IsRejection(err))
	assert.False(t, cand.Converged, "integrity failures terminate the candidate")
}

func TestRelax_FatalMinimizerErrorPropagates(t *testing.T) {
	g := ringGraph(t, 10)
	min := &testutil.FakeMinimizer{
		MinimizeFn: func(_ context.Context, _ *molecule.MolecularGraph, _ []geometry.Vec3) (conformer.MinimizeResult, error) {
			return conformer.MinimizeResult{}, errors.Internal("force field blew up")
		},
	}
	r := NewRelaxer(DefaultRelaxConfig(), min, nil)

	err := r.Relax(context.Background(), g, newCandidate(10))
	require.Error(t, err)
	assert.False(t, errors.IsRejection(err))
}
