// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "math"

// M3 is a column-major 3x3 matrix of float32.
type M3 [3]V3

// I makes m an identity matrix.
func (m *M3) I() { *m = M3{{1}, {0, 1}, {0, 0, 1}} }

// Mul sets m to contain l ⋅ r.
func (m *M3) Mul(l, r *M3) {
	*m = M3{}
	for i := range m {
		for j := range m {
			for k := range m {
				m[i][j] += l[k][j] * r[i][k]
			}
		}
	}
}

// Transpose sets m to contain the transpose of n.
func (m *M3) Transpose(n *M3) {
	for i := range m {
		m[i][i] = n[i][i]
		for j := i + 1; j < len(m); j++ {
			m[i][j], m[j][i] = n[j][i], n[i][j]
		}
	}
}

// Invert sets m to contain the inverse of n.
func (m *M3) Invert(n *M3) {
	s0 := n[1][1]*n[2][2] - n[1][2]*n[2][1]
	s1 := n[1][0]*n[2][2] - n[1][2]*n[2][0]
	s2 := n[1][0]*n[2][1] - n[1][1]*n[2][0]
	idet := 1 / (n[0][0]*s0 - n[0][1]*s1 + n[0][2]*s2)
	m[0][0] = s0 * idet
	m[0][1] = -(n[0][1]*n[2][2] - n[0][2]*n[2][1]) * idet
	m[0][2] = (n[0][1]*n[1][2] - n[0][2]*n[1][1]) * idet
	m[1][0] = -s1 * idet
	m[1][1] = (n[0][0]*n[2][2] - n[0][2]*n[2][0]) * idet
	m[1][2] = -(n[0][0]*n[1][2] - n[0][2]*n[1][0]) * idet
	m[2][0] = s2 * idet
	m[2][1] = -(n[0][0]*n[2][1] - n[0][1]*n[2][0]) * idet
	m[2][2] = (n[0][0]*n[1][1] - n[0][1]*n[1][0]) * idet
}

// Mat is an affine 4x3 transform: a linear 3x3 part plus a translation,
// stored column-major as four V3 columns (the fourth being the
// translation). It is the working representation for mesh and
// primitive transforms.
type Mat struct {
	Lin   M3
	Trans V3
}

// I makes m an identity transform.
func (m *Mat) I() {
	m.Lin.I()
	m.Trans = V3{}
}

// IsIdentity reports whether m is (bit-for-bit) the identity transform.
func (m *Mat) IsIdentity() bool {
	var id Mat
	id.I()
	return *m == id
}

// MulPos sets v to contain m applied to the point p (linear part plus
// translation).
func (m *Mat) MulPos(v, p *V3) {
	var t V3
	t.Mul(&m.Lin, p)
	v.Add(&t, &m.Trans)
}

// MulDir sets v to contain m's linear part applied to the direction d
// (translation is not applied).
func (m *Mat) MulDir(v, d *V3) { v.Mul(&m.Lin, d) }

// MulDirTranspose sets v to contain the transpose of m's linear part
// applied to d. Used to transform normals by the inverse-transpose.
func (m *Mat) MulDirTranspose(v, d *V3) {
	var t M3
	t.Transpose(&m.Lin)
	v.Mul(&t, d)
}

// MulDirAbs sets v to contain the component-wise absolute value of m's
// linear part applied to d, used to transform an AABB half-extent.
// Any NaN produced by ±Inf * 0 (a degenerate, zero-scale axis against
// an unbounded extent) is flushed to 0, matching the reference
// kernel's handling of unbounded primitive bounds under a singular
// transform.
func (m *Mat) MulDirAbs(v, d *V3) {
	var a M3
	for i := range a {
		a[i].Abs(&m.Lin[i])
	}
	var out V3
	for i := range out {
		for j := range out {
			p := a[j][i] * d[j]
			if math.IsNaN(float64(p)) {
				p = 0
			}
			out[i] += p
		}
	}
	*v = out
}

// MulLeft sets m to contain outer ⋅ m (left-multiplication in place),
// used to compose an externally supplied transform onto a primitive
// constructor's canonical one.
func (m *Mat) MulLeft(outer *Mat) {
	var lin M3
	lin.Mul(&outer.Lin, &m.Lin)
	var trans, t V3
	trans.Mul(&outer.Lin, &m.Trans)
	t.Add(&trans, &outer.Trans)
	m.Lin = lin
	m.Trans = t
}

// Invert sets m to contain the inverse of the affine transform n.
func (m *Mat) Invert(n *Mat) {
	m.Lin.Invert(&n.Lin)
	var t V3
	t.Mul(&m.Lin, &n.Trans)
	m.Trans.Scale(-1, &t)
}
