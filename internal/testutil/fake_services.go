package testutil

import (
	"context"
	"sync"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
)

// FakeEmbedder implements conformer.Embedder through a caller-supplied
// function.  Calls counts invocations; safe for concurrent use.
type FakeEmbedder struct {
	EmbedFn func(ctx context.Context, g *molecule.MolecularGraph, cs conformer.ConstraintSet) ([]geometry.Vec3, error)

	mu    sync.Mutex
	calls int
}

var _ conformer.Embedder = (*FakeEmbedder)(nil)

func (f *FakeEmbedder) Embed(ctx context.Context, g *molecule.MolecularGraph, cs conformer.ConstraintSet) ([]geometry.Vec3, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.EmbedFn(ctx, g, cs)
}

// Calls returns how many times Embed ran.
func (f *FakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeMinimizer implements conformer.Minimizer through caller-supplied
// functions.  EnergyFn may be nil when only Minimize is exercised.
type FakeMinimizer struct {
	MinimizeFn func(ctx context.Context, g *molecule.MolecularGraph, coords []geometry.Vec3) (conformer.MinimizeResult, error)
	EnergyFn   func(g *molecule.MolecularGraph, coords []geometry.Vec3) float64

	mu    sync.Mutex
	calls int
}

var _ conformer.Minimizer = (*FakeMinimizer)(nil)

func (f *FakeMinimizer) Minimize(ctx context.Context, g *molecule.MolecularGraph, coords []geometry.Vec3) (conformer.MinimizeResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.MinimizeFn(ctx, g, coords)
}

func (f *FakeMinimizer) Energy(g *molecule.MolecularGraph, coords []geometry.Vec3) float64 {
	if f.EnergyFn == nil {
		return 0
	}
	return f.EnergyFn(g, coords)
}

// Calls returns how many times Minimize ran.
func (f *FakeMinimizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
