package forcefield

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/pkg/errors"
)

func diatomic(t *testing.T) *molecule.MolecularGraph {
	t.Helper()
	g, err := molecule.NewGraph("cc",
		[]molecule.Atom{{Element: "C"}, {Element: "C"}},
		[]molecule.Bond{{A: 0, B: 1, Order: molecule.BondSingle}},
	)
	require.NoError(t, err)
	return g
}

func carbonRing(t *testing.T, n int) *molecule.MolecularGraph {
	t.Helper()
	atoms := make([]molecule.Atom, n)
	for i := range atoms {
		atoms[i] = molecule.Atom{Element: "C"}
	}
	bonds := make([]molecule.Bond, n)
	for i := 0; i < n; i++ {
		bonds[i] = molecule.Bond{A: i, B: (i + 1) % n, Order: molecule.BondSingle}
	}
	g, err := molecule.NewGraph("ring", atoms, bonds)
	require.NoError(t, err)
	return g
}

func ringCoords(g *molecule.MolecularGraph, radius float64) []geometry.Vec3 {
	n := g.NumAtoms()
	out := make([]geometry.Vec3, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = geometry.Vec3{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	return out
}

func TestEnergy_AtIdealBondLengthIsZeroStretch(t *testing.T) {
	g := diatomic(t)
	f := New(DefaultConfig(), nil)

	d0 := molecule.IdealBondLength("C", "C", molecule.BondSingle)
	ideal := []geometry.Vec3{{}, {X: d0}}
	assert.InDelta(t, 0.0, f.Energy(g, ideal), 1e-9)

	stretched := []geometry.Vec3{{}, {X: d0 + 0.2}}
	assert.InDelta(t, stretchK*0.04, f.Energy(g, stretched), 1e-9)
}

func TestMinimize_DiatomicConverges(t *testing.T) {
	g := diatomic(t)
	f := New(DefaultConfig(), nil)

	d0 := molecule.IdealBondLength("C", "C", molecule.BondSingle)
	start := []geometry.Vec3{{}, {X: d0 + 0.3}}

	res, err := f.Minimize(context.Background(), g, start)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, d0, geometry.Distance(res.Coords[0], res.Coords[1]), 0.02)
	assert.Less(t, res.Energy, f.Energy(g, start))

	// Input must not be mutated.
	assert.Equal(t, d0+0.3, start[1].X)
}

func TestMinimize_ReducesRingStrain(t *testing.T) {
	g := carbonRing(t, 10)
	cfg := DefaultConfig()
	cfg.MaxSteps = 150 // enough to descend, short enough for a unit test
	f := New(cfg, nil)

	// Regular decagon with slightly stretched bonds.
	d0 := molecule.IdealBondLength("C", "C", molecule.BondSingle)
	radius := (d0 * 1.1) / (2 * math.Sin(math.Pi/10))
	start := ringCoords(g, radius)
	startE := f.Energy(g, start)

	res, err := f.Minimize(context.Background(), g, start)
	require.NoError(t, err)
	assert.Less(t, res.Energy, startE)
	assert.LessOrEqual(t, res.Steps, cfg.MaxSteps)
	assert.Len(t, res.Coords, 10)
}

func TestMinimize_StepBudgetIsHardBound(t *testing.T) {
	g := carbonRing(t, 10)
	cfg := DefaultConfig()
	cfg.MaxSteps = 3
	cfg.EnergyTolerance = 0 // unreachable together with a tiny budget
	cfg.GradTolerance = 0
	f := New(cfg, nil)

	res, err := f.Minimize(context.Background(), g, ringCoords(g, 3.0))
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.LessOrEqual(t, res.Steps, 3)
}

func TestMinimize_Cancellation(t *testing.T) {
	g := carbonRing(t, 10)
	f := New(DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Minimize(ctx, g, ringCoords(g, 3.0))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSearchAborted))
}

func TestMinimize_CoordCountMismatch(t *testing.T) {
	g := diatomic(t)
	f := New(DefaultConfig(), nil)
	_, err := f.Minimize(context.Background(), g, []geometry.Vec3{{}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestBuildTopology_TermCounts(t *testing.T) {
	g := carbonRing(t, 10)
	topo := buildTopology(g)

	assert.Len(t, topo.stretches, 10)
	// One angle per ring atom (two neighbors each).
	assert.Len(t, topo.bends, 10)
	// One torsion per bond.
	assert.Len(t, topo.torsions, 10)
	// 45 pairs total, minus 10 bonded, minus 10 at separation 2.
	assert.Len(t, topo.pairs, 25)
}

func TestDoubleBondTorsionBarrier(t *testing.T) {
	// A 4-atom chain with a central double bond: planar trans and cis are
	// near-degenerate minima; the perpendicular arrangement is penalized.
	g, err := molecule.NewGraph("ene",
		[]molecule.Atom{{Element: "C"}, {Element: "C"}, {Element: "C"}, {Element: "C"}},
		[]molecule.Bond{
			{A: 0, B: 1, Order: molecule.BondSingle},
			{A: 1, B: 2, Order: molecule.BondDouble},
			{A: 2, B: 3, Order: molecule.BondSingle},
		},
	)
	require.NoError(t, err)
	f := New(DefaultConfig(), nil)

	place := func(dihedral float64) []geometry.Vec3 {
		// Fixed lengths/angles, varying only the central dihedral.
		a := geometry.Vec3{X: -1.5}
		b := geometry.Vec3{}
		c := geometry.Vec3{X: 0.67, Y: 1.16}
		axis := c.Sub(b)
		d0 := c.Add(geometry.Vec3{X: 1.5, Y: 0})
		d := geometry.RotateAboutAxis(d0, c, axis, dihedral)
		return []geometry.Vec3{a, b, c, d}
	}

	eTrans := f.Energy(g, place(0))
	ePerp := f.Energy(g, place(math.Pi/2))
	assert.Greater(t, ePerp, eTrans)
}
