package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// RMSD returns the root-mean-square deviation between two coordinate sets of
// equal length without any alignment.  Panics only via the length guard in
// BestFitRMSD callers; an empty input returns 0.
func RMSD(p, q []Vec3) float64 {
	if len(p) == 0 || len(p) != len(q) {
		return 0
	}
	var sum float64
	for i := range p {
		d := p[i].Sub(q[i])
		sum += d.Dot(d)
	}
	return math.Sqrt(sum / float64(len(p)))
}

// BestFitRMSD computes the minimum RMSD between two equal-length coordinate
// sets over all rigid-body superpositions (translation + proper rotation),
// using the Kabsch algorithm.  The alignment is computed fresh on every call;
// neither input is mutated.
//
// Point correspondence is positional: p[i] is matched to q[i].  Callers that
// compare ring conformations pass ring atoms in the same ring-walk order for
// both structures.
func BestFitRMSD(p, q []Vec3) float64 {
	if len(p) == 0 || len(p) != len(q) {
		return 0
	}

	pc := Centroid(p)
	qc := Centroid(q)

	// Cross-covariance H = Σ (p_i - pc)ᵀ (q_i - qc), 3×3.
	h := mat.NewDense(3, 3, nil)
	for i := range p {
		a := p[i].Sub(pc)
		b := q[i].Sub(qc)
		h.Set(0, 0, h.At(0, 0)+a.X*b.X)
		h.Set(0, 1, h.At(0, 1)+a.X*b.Y)
		h.Set(0, 2, h.At(0, 2)+a.X*b.Z)
		h.Set(1, 0, h.At(1, 0)+a.Y*b.X)
		h.Set(1, 1, h.At(1, 1)+a.Y*b.Y)
		h.Set(1, 2, h.At(1, 2)+a.Y*b.Z)
		h.Set(2, 0, h.At(2, 0)+a.Z*b.X)
		h.Set(2, 1, h.At(2, 1)+a.Z*b.Y)
		h.Set(2, 2, h.At(2, 2)+a.Z*b.Z)
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		// Degenerate covariance (e.g. all points coincident); fall back to
		// the translation-only deviation.
		return rmsdCentered(p, pc, q, qc)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// R = V D Uᵀ with D = diag(1, 1, sign(det(V Uᵀ))) to exclude reflections.
	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := sign(mat.Det(&vut))

	var dm mat.Dense
	dm.CloneFrom(mat.NewDiagDense(3, []float64{1, 1, d}))

	var r mat.Dense
	r.Mul(&v, &dm)
	r.Mul(&r, u.T())

	var sum float64
	for i := range p {
		a := p[i].Sub(pc)
		b := q[i].Sub(qc)
		rot := Vec3{
			X: r.At(0, 0)*a.X + r.At(0, 1)*a.Y + r.At(0, 2)*a.Z,
			Y: r.At(1, 0)*a.X + r.At(1, 1)*a.Y + r.At(1, 2)*a.Z,
			Z: r.At(2, 0)*a.X + r.At(2, 1)*a.Y + r.At(2, 2)*a.Z,
		}
		diff := rot.Sub(b)
		sum += diff.Dot(diff)
	}
	return math.Sqrt(sum / float64(len(p)))
}

func rmsdCentered(p []Vec3, pc Vec3, q []Vec3, qc Vec3) float64 {
	var sum float64
	for i := range p {
		d := p[i].Sub(pc).Sub(q[i].Sub(qc))
		sum += d.Dot(d)
	}
	return math.Sqrt(sum / float64(len(p)))
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
