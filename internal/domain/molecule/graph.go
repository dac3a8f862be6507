// Package molecule provides the molecular-graph domain model for macroconf.
// A MolecularGraph is the immutable connectivity description shared read-only
// by every stage of the conformational search: atoms, bonds, double-bond
// stereochemistry tags, and the detected macrocyclic ring.
package molecule

import (
	"fmt"

	"github.com/turtacn/macroconf/pkg/errors"
)

// MinMacroRingSize is the smallest ring the engine treats as a macrocycle.
const MinMacroRingSize = 10

// BondOrder is the formal bond order.
type BondOrder int

const (
	BondSingle BondOrder = 1
	BondDouble BondOrder = 2
	BondTriple BondOrder = 3
)

// BondStereo tags the configuration of a double bond.
type BondStereo int

const (
	// StereoNone marks a bond with no stereochemistry (single bonds, or
	// double bonds whose configuration is left free for the generator to
	// randomize).
	StereoNone BondStereo = iota
	// StereoE fixes the trans (entgegen) configuration.
	StereoE
	// StereoZ fixes the cis (zusammen) configuration.
	StereoZ
)

func (s BondStereo) String() string {
	switch s {
	case StereoE:
		return "E"
	case StereoZ:
		return "Z"
	default:
		return "none"
	}
}

// Atom is a heavy atom in the molecular graph.
type Atom struct {
	Element      string
	FormalCharge int
}

// Bond connects atoms A and B (indices into the graph's atom list).
type Bond struct {
	A, B   int
	Order  BondOrder
	InRing bool
	Stereo BondStereo
}

// Other returns the bond endpoint that is not atom i.
func (b Bond) Other(i int) int {
	if b.A == i {
		return b.B
	}
	return b.A
}

// MolecularGraph is the immutable connectivity model of one molecule.
// Construct with NewGraph; all accessors return copies or read-only views.
type MolecularGraph struct {
	name  string
	atoms []Atom
	bonds []Bond

	adj       [][]int // adj[i] = neighbor atom indices of atom i
	bondIndex map[[2]int]int

	// macrocycle is the largest detected simple ring as an ordered atom-index
	// walk, or nil when the graph has no ring of MinMacroRingSize or more.
	macrocycle []int
}

// NewGraph validates atoms and bonds, builds adjacency, detects the
// macrocyclic ring, and marks ring membership on its bonds.  The returned
// graph is immutable.
func NewGraph(name string, atoms []Atom, bonds []Bond) (*MolecularGraph, error) {
	if len(atoms) == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalid, "graph has no atoms")
	}

	g := &MolecularGraph{
		name:      name,
		atoms:     append([]Atom(nil), atoms...),
		bonds:     append([]Bond(nil), bonds...),
		adj:       make([][]int, len(atoms)),
		bondIndex: make(map[[2]int]int, len(bonds)),
	}

	for i, b := range g.bonds {
		if b.A < 0 || b.A >= len(atoms) || b.B < 0 || b.B >= len(atoms) {
			return nil, errors.Newf(errors.ErrCodeAtomIndexInvalid,
				"bond %d references atom out of range (%d-%d, %d atoms)", i, b.A, b.B, len(atoms))
		}
		if b.A == b.B {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalid, "bond %d is a self loop on atom %d", i, b.A)
		}
		key := bondKey(b.A, b.B)
		if _, dup := g.bondIndex[key]; dup {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalid, "duplicate bond %d-%d", b.A, b.B)
		}
		if b.Order < BondSingle || b.Order > BondTriple {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalid, "bond %d-%d has invalid order %d", b.A, b.B, b.Order)
		}
		if b.Stereo != StereoNone && b.Order != BondDouble {
			return nil, errors.Newf(errors.ErrCodeMoleculeInvalid,
				"bond %d-%d carries a stereo tag but is not a double bond", b.A, b.B)
		}
		g.bondIndex[key] = i
		g.adj[b.A] = append(g.adj[b.A], b.B)
		g.adj[b.B] = append(g.adj[b.B], b.A)
	}

	g.macrocycle = findLargestRing(g.adj, MinMacroRingSize)
	g.orientMacrocycle()
	g.markRingBonds()

	return g, nil
}

// orientMacrocycle rotates the ring walk so that, when possible, the first
// and the last two ring bonds are single bonds.  Those positions anchor the
// embedding frame and absorb the ring-closure slack, so keeping double bonds
// out of them lets every stereo-tagged bond hold a controlled torsion.
func (g *MolecularGraph) orientMacrocycle() {
	n := len(g.macrocycle)
	if n == 0 {
		return
	}
	isDouble := func(pos int) bool {
		a := g.macrocycle[pos%n]
		b := g.macrocycle[(pos+1)%n]
		if bi, ok := g.bondIndex[bondKey(a, b)]; ok {
			return g.bonds[bi].Order == BondDouble
		}
		return false
	}
	for offset := 0; offset < n; offset++ {
		if !isDouble(offset) && !isDouble(offset+n-2) && !isDouble(offset+n-1) {
			if offset > 0 {
				rotated := make([]int, n)
				for i := range rotated {
					rotated[i] = g.macrocycle[(i+offset)%n]
				}
				g.macrocycle = rotated
			}
			return
		}
	}
	// Every rotation places a double bond on a frame position; leave as is.
}

func bondKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// markRingBonds sets InRing on every bond that lies along the macrocycle walk.
func (g *MolecularGraph) markRingBonds() {
	if len(g.macrocycle) == 0 {
		return
	}
	n := len(g.macrocycle)
	for i := 0; i < n; i++ {
		a := g.macrocycle[i]
		b := g.macrocycle[(i+1)%n]
		if bi, ok := g.bondIndex[bondKey(a, b)]; ok {
			g.bonds[bi].InRing = true
		}
	}
}

// Name returns the molecule's name (may be empty).
func (g *MolecularGraph) Name() string { return g.name }

// NumAtoms returns the number of atoms.
func (g *MolecularGraph) NumAtoms() int { return len(g.atoms) }

// Atom returns the atom at index i.
func (g *MolecularGraph) Atom(i int) Atom { return g.atoms[i] }

// Bonds returns a copy of the bond list.
func (g *MolecularGraph) Bonds() []Bond { return append([]Bond(nil), g.bonds...) }

// NumBonds returns the number of bonds.
func (g *MolecularGraph) NumBonds() int { return len(g.bonds) }

// Neighbors returns the neighbor atom indices of atom i.  The returned slice
// must not be modified.
func (g *MolecularGraph) Neighbors(i int) []int { return g.adj[i] }

// BondBetween returns the bond joining atoms a and b, or ok=false.
func (g *MolecularGraph) BondBetween(a, b int) (Bond, bool) {
	if bi, ok := g.bondIndex[bondKey(a, b)]; ok {
		return g.bonds[bi], true
	}
	return Bond{}, false
}

// HasMacrocycle reports whether the graph contains a ring of at least minSize
// atoms.
func (g *MolecularGraph) HasMacrocycle(minSize int) bool {
	return len(g.macrocycle) >= minSize
}

// Macrocycle returns a copy of the macrocyclic ring as an ordered atom-index
// walk, or nil when no qualifying ring exists.
func (g *MolecularGraph) Macrocycle() []int {
	if g.macrocycle == nil {
		return nil
	}
	return append([]int(nil), g.macrocycle...)
}

// RingSize returns the number of atoms in the macrocyclic ring (0 if none).
func (g *MolecularGraph) RingSize() int { return len(g.macrocycle) }

// RingTorsions returns the quadruples of consecutive ring atoms (a,b,c,d)
// that define the ring's torsional degrees of freedom, one per ring bond b-c.
func (g *MolecularGraph) RingTorsions() [][4]int {
	n := len(g.macrocycle)
	if n < 4 {
		return nil
	}
	out := make([][4]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, [4]int{
			g.macrocycle[i],
			g.macrocycle[(i+1)%n],
			g.macrocycle[(i+2)%n],
			g.macrocycle[(i+3)%n],
		})
	}
	return out
}

// RingDoubleBonds returns the double bonds that lie on the macrocyclic ring,
// in ring-walk order.
func (g *MolecularGraph) RingDoubleBonds() []Bond {
	n := len(g.macrocycle)
	var out []Bond
	for i := 0; i < n; i++ {
		a := g.macrocycle[i]
		b := g.macrocycle[(i+1)%n]
		if bond, ok := g.BondBetween(a, b); ok && bond.Order == BondDouble {
			out = append(out, bond)
		}
	}
	return out
}

// Substituents returns the atom indices that are not part of the macrocyclic
// ring, in ascending order.
func (g *MolecularGraph) Substituents() []int {
	inRing := make(map[int]bool, len(g.macrocycle))
	for _, i := range g.macrocycle {
		inRing[i] = true
	}
	var out []int
	for i := range g.atoms {
		if !inRing[i] {
			out = append(out, i)
		}
	}
	return out
}

// String implements fmt.Stringer for log output.
func (g *MolecularGraph) String() string {
	return fmt.Sprintf("MolecularGraph{name=%s, atoms=%d, bonds=%d, ring=%d}",
		g.name, len(g.atoms), len(g.bonds), len(g.macrocycle))
}
