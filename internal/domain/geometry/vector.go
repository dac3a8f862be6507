// Package geometry provides the small 3D vector and best-fit alignment
// primitives used by the conformer engine: bond/angle/torsion measurement
// on coordinate sets and Kabsch superposition for RMSD computation.
package geometry

import "math"

// Vec3 is a point or displacement in 3D Cartesian space.  Coordinates are in
// ångströms throughout the engine.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Cross returns the cross product of v and w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length.  The zero vector is returned
// unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Distance returns the Euclidean distance between points v and w.
func Distance(v, w Vec3) float64 { return v.Sub(w).Norm() }

// Angle returns the angle a-b-c in radians, where b is the vertex.
func Angle(a, b, c Vec3) float64 {
	u := a.Sub(b).Normalize()
	w := c.Sub(b).Normalize()
	d := u.Dot(w)
	// Clamp against rounding outside [-1, 1].
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}

// Dihedral returns the signed torsion angle a-b-c-d in radians, in (-π, π].
func Dihedral(a, b, c, d Vec3) float64 {
	b1 := b.Sub(a)
	b2 := c.Sub(b)
	b3 := d.Sub(c)

	n1 := b1.Cross(b2)
	n2 := b2.Cross(b3)
	m := n1.Cross(b2.Normalize())

	x := n1.Dot(n2)
	y := m.Dot(n2)
	return math.Atan2(y, x)
}

// Centroid returns the arithmetic mean of the given points.  An empty slice
// yields the origin.
func Centroid(points []Vec3) Vec3 {
	if len(points) == 0 {
		return Vec3{}
	}
	var c Vec3
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(points)))
}

// Select returns the subset of coords at the given indices, in index order.
func Select(coords []Vec3, indices []int) []Vec3 {
	out := make([]Vec3, len(indices))
	for i, idx := range indices {
		out[i] = coords[idx]
	}
	return out
}

// RotateAboutAxis rotates point p about the axis through origin with unit
// direction axis by angle radians (right-hand rule, Rodrigues formula).
func RotateAboutAxis(p, origin, axis Vec3, angle float64) Vec3 {
	k := axis.Normalize()
	v := p.Sub(origin)
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	rotated := v.Scale(cos).
		Add(k.Cross(v).Scale(sin)).
		Add(k.Scale(k.Dot(v) * (1 - cos)))
	return origin.Add(rotated)
}
