// Package embed implements the geometry service consumed by the
// conformational search.  A candidate embedding is produced in three phases:
// the macrocyclic ring is grown as an open chain from internal coordinates
// (ideal bond lengths, a fixed ring bond angle, and the constraint set's
// torsion seeds), the chain is closed kinematically with bounded cyclic
// coordinate descent over the rotatable ring torsions, and exocyclic
// substituents are placed outward from the closed ring.
//
// Ring closure is not guaranteed: torsion seeds that leave the chain ends
// geometrically unreachable within the iteration budget are rejected with
// errors.ErrCodeEmbeddingRejected, which the search counts as an expected
// unproductive attempt.
package embed

import (
	"context"
	"math"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/macroconf/pkg/errors"
)

// Config carries the embedder's numeric tunables.
type Config struct {
	// RingBondAngleDeg is the target ring bond angle used when growing the
	// chain.  Macrocycle backbones sit slightly wider than tetrahedral.
	RingBondAngleDeg float64 `mapstructure:"ring_bond_angle_deg"`

	// ClosureTolerance is the maximum allowed gap in ångströms between the
	// achieved and ideal closing bond length.
	ClosureTolerance float64 `mapstructure:"closure_tolerance"`

	// MaxClosureIters bounds the number of CCD sweeps over the ring torsions.
	MaxClosureIters int `mapstructure:"max_closure_iters"`

	// MinAtomSeparation rejects embeddings with any nonbonded atom pair
	// closer than this distance.
	MinAtomSeparation float64 `mapstructure:"min_atom_separation"`
}

// DefaultConfig returns the tunables used in production runs.
func DefaultConfig() Config {
	return Config{
		RingBondAngleDeg:  114.0,
		ClosureTolerance:  0.25,
		MaxClosureIters:   150,
		MinAtomSeparation: 0.7,
	}
}

// CCDEmbedder implements conformer.Embedder with kinematic loop closure.
type CCDEmbedder struct {
	cfg Config
	log logging.Logger
}

// NewCCDEmbedder constructs an embedder.  A nil logger falls back to the
// no-op logger.
func NewCCDEmbedder(cfg Config, log logging.Logger) *CCDEmbedder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.MaxClosureIters <= 0 {
		cfg = DefaultConfig()
	}
	return &CCDEmbedder{cfg: cfg, log: log.Named("embed")}
}

var _ conformer.Embedder = (*CCDEmbedder)(nil)

// Embed produces one coordinate set for the graph under cs, or an
// ErrCodeEmbeddingRejected error when no consistent ring closure is reached.
func (e *CCDEmbedder) Embed(ctx context.Context, g *molecule.MolecularGraph, cs conformer.ConstraintSet) ([]geometry.Vec3, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchAborted, "embedding cancelled")
	}
	ring := g.Macrocycle()
	n := len(ring)
	if n == 0 {
		return nil, errors.New(errors.ErrCodeNoMacrocycle, "graph has no macrocyclic ring to embed")
	}
	if len(cs.TorsionSeeds) != n {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"constraint set has %d torsion seeds for a %d-bond ring", len(cs.TorsionSeeds), n)
	}

	ringPos := e.growChain(g, ring, cs.TorsionSeeds)

	if err := e.closeRing(g, ring, ringPos, cs.TorsionSeeds); err != nil {
		return nil, err
	}

	coords := make([]geometry.Vec3, g.NumAtoms())
	for i, atom := range ring {
		coords[atom] = ringPos[i]
	}
	e.placeSubstituents(g, ring, coords)

	if clash, a, b := e.findClash(g, coords); clash {
		return nil, errors.Newf(errors.ErrCodeEmbeddingRejected,
			"atoms %d and %d collide after embedding", a, b)
	}
	return coords, nil
}

// growChain places the ring atoms as an open chain using natural-extension
// internal coordinates: ideal bond lengths, the configured ring angle, and
// one torsion seed per ring bond.
func (e *CCDEmbedder) growChain(g *molecule.MolecularGraph, ring []int, seeds []float64) []geometry.Vec3 {
	n := len(ring)
	theta := e.cfg.RingBondAngleDeg * math.Pi / 180
	pos := make([]geometry.Vec3, n)

	length := func(i, j int) float64 {
		a, b := ring[i%n], ring[j%n]
		order := molecule.BondSingle
		if bond, ok := g.BondBetween(a, b); ok {
			order = bond.Order
		}
		return molecule.IdealBondLength(g.Atom(a).Element, g.Atom(b).Element, order)
	}

	pos[0] = geometry.Vec3{}
	pos[1] = geometry.Vec3{X: length(0, 1)}
	l2 := length(1, 2)
	pos[2] = pos[1].Add(geometry.Vec3{
		X: -l2 * math.Cos(theta),
		Y: l2 * math.Sin(theta),
	})

	for i := 3; i < n; i++ {
		// Dihedral about ring bond (i-2, i-1) comes from that bond's seed.
		pos[i] = placeAtom(pos[i-3], pos[i-2], pos[i-1], length(i-1, i), theta, seeds[i-2])
	}
	return pos
}

// placeAtom computes the position of a new atom D from the three preceding
// atoms A, B, C, the bond length C-D, the angle B-C-D, and the dihedral
// A-B-C-D (natural extension reference frame).
func placeAtom(a, b, c geometry.Vec3, bondLen, angle, dihedral float64) geometry.Vec3 {
	bc := c.Sub(b).Normalize()
	nrm := b.Sub(a).Cross(bc).Normalize()
	m := nrm.Cross(bc)

	d := bc.Scale(-bondLen * math.Cos(angle)).
		Add(m.Scale(bondLen * math.Sin(angle) * math.Cos(dihedral))).
		Add(nrm.Scale(bondLen * math.Sin(angle) * math.Sin(dihedral)))
	return c.Add(d)
}

// closeRing runs cyclic coordinate descent: each sweep rotates the chain
// segment downstream of every rotatable ring bond about that bond's axis,
// choosing the analytic rotation angle that brings the closing bond length
// onto its ideal value.  Torsions of ring double bonds are frozen so the
// stereo assignment baked into the seeds survives closure.
func (e *CCDEmbedder) closeRing(g *molecule.MolecularGraph, ring []int, pos []geometry.Vec3, seeds []float64) error {
	n := len(ring)
	closeLen := molecule.IdealBondLength(
		g.Atom(ring[n-1]).Element, g.Atom(ring[0]).Element, ringBondOrder(g, ring[n-1], ring[0]))

	frozen := make([]bool, n)
	for k := 0; k < n; k++ {
		if bond, ok := g.BondBetween(ring[k], ring[(k+1)%n]); ok && bond.Order == molecule.BondDouble {
			frozen[k] = true
		}
	}

	gap := func() float64 {
		return math.Abs(geometry.Distance(pos[n-1], pos[0]) - closeLen)
	}

	for iter := 0; iter < e.cfg.MaxClosureIters; iter++ {
		if gap() <= e.cfg.ClosureTolerance {
			return nil
		}
		// Sweep bonds 1..n-3; bond 0 anchors the frame and the last two
		// bonds have no downstream atoms to rotate.
		for j := 1; j <= n-3; j++ {
			if frozen[j] {
				continue
			}
			phi, ok := closureAngle(pos[j], pos[j+1], pos[n-1], pos[0], closeLen)
			if !ok || phi == 0 {
				continue
			}
			axis := pos[j+1].Sub(pos[j])
			for i := j + 2; i < n; i++ {
				pos[i] = geometry.RotateAboutAxis(pos[i], pos[j], axis, phi)
			}
		}
	}

	if gap() <= e.cfg.ClosureTolerance {
		return nil
	}
	return errors.Newf(errors.ErrCodeEmbeddingRejected,
		"ring closure gap %.3f above tolerance %.3f after %d sweeps",
		gap(), e.cfg.ClosureTolerance, e.cfg.MaxClosureIters)
}

func ringBondOrder(g *molecule.MolecularGraph, a, b int) molecule.BondOrder {
	if bond, ok := g.BondBetween(a, b); ok {
		return bond.Order
	}
	return molecule.BondSingle
}

// closureAngle returns the rotation angle about the axis through o with
// direction (p - o) that moves the chain end onto the sphere of radius
// closeLen around the anchor.  Rotating end about the axis traces a circle;
// the squared distance to anchor along that circle is sinusoidal in the
// rotation angle, which gives a closed-form solution.  When the target
// radius is unreachable the angle of closest approach is returned.  The
// smaller-magnitude solution is chosen so the result is deterministic.
func closureAngle(o, p, end, anchor geometry.Vec3, closeLen float64) (float64, bool) {
	k := p.Sub(o).Normalize()
	if k.Norm() == 0 {
		return 0, false
	}
	r := end.Sub(o)
	axial := k.Scale(k.Dot(r))
	radial := r.Sub(axial)
	if radial.Norm() < 1e-9 {
		return 0, false // end lies on the axis; rotation moves nothing
	}
	w := o.Add(axial).Sub(anchor)

	a := w.Dot(w) + radial.Dot(radial)
	b := 2 * w.Dot(radial)
	c := 2 * w.Dot(k.Cross(radial))

	amp := math.Hypot(b, c)
	if amp < 1e-12 {
		return 0, false
	}
	psi := math.Atan2(c, b)
	target := closeLen * closeLen

	u := (target - a) / amp
	var phi float64
	switch {
	case u > 1:
		phi = psi // closest approach from above
	case u < -1:
		phi = normalizeAngle(psi + math.Pi)
	default:
		d := math.Acos(u)
		p1 := normalizeAngle(psi + d)
		p2 := normalizeAngle(psi - d)
		if math.Abs(p1) <= math.Abs(p2) {
			phi = p1
		} else {
			phi = p2
		}
	}
	return phi, true
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// placeSubstituents positions every non-ring atom by breadth-first growth
// outward from its ring attachment point.  Directions point away from the
// ring centroid, fanned deterministically when one parent carries several
// substituents.
func (e *CCDEmbedder) placeSubstituents(g *molecule.MolecularGraph, ring []int, coords []geometry.Vec3) {
	placed := make([]bool, g.NumAtoms())
	for _, i := range ring {
		placed[i] = true
	}
	centroid := geometry.Centroid(geometry.Select(coords, ring))

	queue := append([]int(nil), ring...)
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		fan := 0
		for _, nb := range g.Neighbors(parent) {
			if placed[nb] {
				continue
			}
			dir := coords[parent].Sub(centroid).Normalize()
			if dir.Norm() == 0 {
				dir = geometry.Vec3{Z: 1}
			}
			// Fan siblings apart about the outward direction so they do not
			// stack on one another.
			if fan > 0 {
				perp := dir.Cross(geometry.Vec3{Z: 1})
				if perp.Norm() < 1e-9 {
					perp = dir.Cross(geometry.Vec3{X: 1})
				}
				dir = geometry.RotateAboutAxis(dir, geometry.Vec3{}, perp, float64(fan)*0.9)
			}
			fan++

			order := molecule.BondSingle
			if bond, ok := g.BondBetween(parent, nb); ok {
				order = bond.Order
			}
			l := molecule.IdealBondLength(g.Atom(parent).Element, g.Atom(nb).Element, order)
			coords[nb] = coords[parent].Add(dir.Scale(l))
			placed[nb] = true
			queue = append(queue, nb)
		}
	}
}

// findClash reports the first nonbonded atom pair closer than the minimum
// separation.
func (e *CCDEmbedder) findClash(g *molecule.MolecularGraph, coords []geometry.Vec3) (bool, int, int) {
	for a := 0; a < g.NumAtoms(); a++ {
		for b := a + 1; b < g.NumAtoms(); b++ {
			if _, bonded := g.BondBetween(a, b); bonded {
				continue
			}
			if geometry.Distance(coords[a], coords[b]) < e.cfg.MinAtomSeparation {
				return true, a, b
			}
		}
	}
	return false, 0, 0
}
