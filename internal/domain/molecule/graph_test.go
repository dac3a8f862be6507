package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/macroconf/pkg/errors"
)

// ringGraph builds an all-carbon ring of n atoms with single bonds.
func ringGraph(t *testing.T, n int) *MolecularGraph {
	t.Helper()
	atoms := make([]Atom, n)
	for i := range atoms {
		atoms[i] = Atom{Element: "C"}
	}
	bonds := make([]Bond, n)
	for i := 0; i < n; i++ {
		bonds[i] = Bond{A: i, B: (i + 1) % n, Order: BondSingle}
	}
	g, err := NewGraph("ring", atoms, bonds)
	require.NoError(t, err)
	return g
}

func TestNewGraph_Validation(t *testing.T) {
	tests := []struct {
		name  string
		atoms []Atom
		bonds []Bond
		code  errors.ErrorCode
	}{
		{
			name: "no_atoms",
			code: errors.ErrCodeMoleculeInvalid,
		},
		{
			name:  "bond_out_of_range",
			atoms: []Atom{{Element: "C"}, {Element: "C"}},
			bonds: []Bond{{A: 0, B: 5, Order: BondSingle}},
			code:  errors.ErrCodeAtomIndexInvalid,
		},
		{
			name:  "self_loop",
			atoms: []Atom{{Element: "C"}},
			bonds: []Bond{{A: 0, B: 0, Order: BondSingle}},
			code:  errors.ErrCodeMoleculeInvalid,
		},
		{
			name:  "duplicate_bond",
			atoms: []Atom{{Element: "C"}, {Element: "C"}},
			bonds: []Bond{{A: 0, B: 1, Order: BondSingle}, {A: 1, B: 0, Order: BondSingle}},
			code:  errors.ErrCodeMoleculeInvalid,
		},
		{
			name:  "stereo_on_single_bond",
			atoms: []Atom{{Element: "C"}, {Element: "C"}},
			bonds: []Bond{{A: 0, B: 1, Order: BondSingle, Stereo: StereoE}},
			code:  errors.ErrCodeMoleculeInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.name, tt.atoms, tt.bonds)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestMacrocycleDetection(t *testing.T) {
	g := ringGraph(t, 12)
	assert.True(t, g.HasMacrocycle(MinMacroRingSize))
	assert.Equal(t, 12, g.RingSize())
	assert.Len(t, g.Macrocycle(), 12)

	// Every ring bond is marked.
	marked := 0
	for _, b := range g.Bonds() {
		if b.InRing {
			marked++
		}
	}
	assert.Equal(t, 12, marked)
}

func TestMacrocycleDetection_SmallRingRejected(t *testing.T) {
	g := ringGraph(t, 6)
	assert.False(t, g.HasMacrocycle(MinMacroRingSize))
	assert.Nil(t, g.Macrocycle())
	assert.Empty(t, g.RingTorsions())
}

func TestMacrocycleDetection_AcyclicChain(t *testing.T) {
	atoms := make([]Atom, 8)
	for i := range atoms {
		atoms[i] = Atom{Element: "C"}
	}
	bonds := make([]Bond, 7)
	for i := range bonds {
		bonds[i] = Bond{A: i, B: i + 1, Order: BondSingle}
	}
	g, err := NewGraph("chain", atoms, bonds)
	require.NoError(t, err)
	assert.False(t, g.HasMacrocycle(MinMacroRingSize))
}

func TestFindLargestRing_BridgeSplitsLargestSimpleRing(t *testing.T) {
	// Theta graph: hubs 0 and 2 joined by a two-bond bridge through atom 1
	// and by two six-bond arcs (atoms 3-7 and 8-12).  The largest simple
	// ring is the 12-atom cycle through both arcs, but every DFS
	// fundamental cycle pairs an arc with the bridge, so the heuristic
	// recovers an 8-atom ring instead.
	edges := [][2]int{
		{0, 1}, {1, 2},
		{2, 3}, {3, 4}, {4, 5}, {5, 6}, {6, 7}, {7, 0},
		{2, 8}, {8, 9}, {9, 10}, {10, 11}, {11, 12}, {12, 0},
	}
	adj := make([][]int, 13)
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}

	ring := findLargestRing(adj, 3)
	assert.Len(t, ring, 8)
}

func TestMacrocycleWithExocyclicSubstituents(t *testing.T) {
	// 10-ring with two pendant atoms hanging off atoms 0 and 5.
	atoms := make([]Atom, 12)
	for i := range atoms {
		atoms[i] = Atom{Element: "C"}
	}
	atoms[10] = Atom{Element: "O"}
	atoms[11] = Atom{Element: "N"}
	var bonds []Bond
	for i := 0; i < 10; i++ {
		bonds = append(bonds, Bond{A: i, B: (i + 1) % 10, Order: BondSingle})
	}
	bonds = append(bonds,
		Bond{A: 0, B: 10, Order: BondSingle},
		Bond{A: 5, B: 11, Order: BondSingle},
	)
	g, err := NewGraph("substituted", atoms, bonds)
	require.NoError(t, err)

	assert.Equal(t, 10, g.RingSize())
	assert.Equal(t, []int{10, 11}, g.Substituents())
}

func TestRingTorsions(t *testing.T) {
	g := ringGraph(t, 10)
	torsions := g.RingTorsions()
	require.Len(t, torsions, 10)

	ring := g.Macrocycle()
	// First torsion follows the ring walk.
	assert.Equal(t, [4]int{ring[0], ring[1], ring[2], ring[3]}, torsions[0])
}

func TestRingDoubleBonds(t *testing.T) {
	atoms := make([]Atom, 12)
	for i := range atoms {
		atoms[i] = Atom{Element: "C"}
	}
	bonds := make([]Bond, 12)
	for i := 0; i < 12; i++ {
		order := BondSingle
		if i == 2 || i == 7 {
			order = BondDouble
		}
		bonds[i] = Bond{A: i, B: (i + 1) % 12, Order: order}
	}
	bonds[7].Stereo = StereoZ

	g, err := NewGraph("diene", atoms, bonds)
	require.NoError(t, err)

	dbs := g.RingDoubleBonds()
	require.Len(t, dbs, 2)

	var fixed, free int
	for _, b := range dbs {
		if b.Stereo == StereoNone {
			free++
		} else {
			fixed++
		}
	}
	assert.Equal(t, 1, fixed)
	assert.Equal(t, 1, free)
}

func TestBondBetween(t *testing.T) {
	g := ringGraph(t, 10)
	b, ok := g.BondBetween(3, 4)
	require.True(t, ok)
	assert.Equal(t, BondSingle, b.Order)

	_, ok = g.BondBetween(0, 5)
	assert.False(t, ok)

	// Symmetric lookup.
	_, ok = g.BondBetween(4, 3)
	assert.True(t, ok)
}

func TestIdealBondLength(t *testing.T) {
	cc := IdealBondLength("C", "C", BondSingle)
	assert.InDelta(t, 1.52, cc, 0.01)

	ccDouble := IdealBondLength("C", "C", BondDouble)
	assert.Less(t, ccDouble, cc)

	// Unknown element falls back to a carbon-like radius.
	assert.Greater(t, IdealBondLength("Xx", "C", BondSingle), 1.0)
}
