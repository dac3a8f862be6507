package forcefield

import (
	"math"

	"github.com/turtacn/macroconf/internal/domain/molecule"
)

// stretch is one harmonic bond term.
type stretch struct {
	a, b int
	d0   float64
}

// bend is one harmonic angle term i-j-k with vertex j.
type bend struct {
	i, j, k int
	theta0  float64
}

// torsion is one dihedral term a-b-c-d about bond b-c.
type torsion struct {
	a, b, c, d int
	order      molecule.BondOrder
}

// pair is one nonbonded repulsion term.
type pair struct {
	a, b int
}

// topology is the per-graph list of force-field terms.  It depends only on
// connectivity, so it is built once per minimization and reused across every
// energy evaluation.
type topology struct {
	stretches []stretch
	bends     []bend
	torsions  []torsion
	pairs     []pair
}

const (
	tetrahedralAngle = 109.47 * math.Pi / 180
	trigonalAngle    = 120.0 * math.Pi / 180
)

// buildTopology enumerates bonded terms from the graph and the nonbonded
// pairs separated by three or more bonds (1-2 and 1-3 interactions are
// handled by the stretch and bend terms).
func buildTopology(g *molecule.MolecularGraph) *topology {
	t := &topology{}
	n := g.NumAtoms()

	hasDouble := make([]bool, n)
	for _, b := range g.Bonds() {
		if b.Order == molecule.BondDouble {
			hasDouble[b.A] = true
			hasDouble[b.B] = true
		}
		t.stretches = append(t.stretches, stretch{
			a:  b.A,
			b:  b.B,
			d0: molecule.IdealBondLength(g.Atom(b.A).Element, g.Atom(b.B).Element, b.Order),
		})
	}

	for j := 0; j < n; j++ {
		nbs := g.Neighbors(j)
		theta0 := tetrahedralAngle
		if hasDouble[j] {
			theta0 = trigonalAngle
		}
		for x := 0; x < len(nbs); x++ {
			for y := x + 1; y < len(nbs); y++ {
				t.bends = append(t.bends, bend{i: nbs[x], j: j, k: nbs[y], theta0: theta0})
			}
		}
	}

	for _, b := range g.Bonds() {
		// One torsion per central bond, using the lowest-index flanking
		// neighbors for a deterministic term list.
		a := firstNeighborExcept(g, b.A, b.B)
		d := firstNeighborExcept(g, b.B, b.A)
		if a < 0 || d < 0 {
			continue
		}
		t.torsions = append(t.torsions, torsion{a: a, b: b.A, c: b.B, d: d, order: b.Order})
	}

	sep := bondSeparations(g, 3)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			// 1-2 and 1-3 interactions are covered by stretches and bends;
			// everything from 1-4 outward is a nonbonded pair.
			if sep[a][b] == 0 || sep[a][b] == 3 {
				t.pairs = append(t.pairs, pair{a: a, b: b})
			}
		}
	}
	return t
}

func firstNeighborExcept(g *molecule.MolecularGraph, atom, except int) int {
	best := -1
	for _, nb := range g.Neighbors(atom) {
		if nb == except {
			continue
		}
		if best == -1 || nb < best {
			best = nb
		}
	}
	return best
}

// bondSeparations returns sep[a][b] = number of bonds between a and b when it
// is ≤ horizon, else 0.  sep[a][a] is set to a sentinel so self pairs are
// never treated as nonbonded.
func bondSeparations(g *molecule.MolecularGraph, horizon int) [][]int {
	n := g.NumAtoms()
	sep := make([][]int, n)
	for a := 0; a < n; a++ {
		sep[a] = make([]int, n)
		sep[a][a] = -1

		// BFS out to the horizon.
		dist := map[int]int{a: 0}
		queue := []int{a}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			if dist[u] >= horizon {
				continue
			}
			for _, v := range g.Neighbors(u) {
				if _, seen := dist[v]; seen {
					continue
				}
				dist[v] = dist[u] + 1
				sep[a][v] = dist[v]
				queue = append(queue, v)
			}
		}
	}
	return sep
}
