// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package linear implements the vector, matrix and bounds math used by
// the rtk ray-tracing kernel.
package linear

import (
	"math"
)

// V2 is a 2-component vector of float32.
type V2 [2]float32

// Add sets v to contain l + r.
func (v *V2) Add(l, r *V2) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to contain l - r.
func (v *V2) Sub(l, r *V2) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to contain s ⋅ w.
func (v *V2) Scale(s float32, w *V2) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// V3 is a 3-component vector of float32.
type V3 [3]float32

// Add sets v to contain l + r.
func (v *V3) Add(l, r *V3) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to contain l - r.
func (v *V3) Sub(l, r *V3) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to contain s ⋅ w.
func (v *V3) Scale(s float32, w *V3) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// Mad sets v to contain w ⋅ s + u (multiply-add).
func (v *V3) Mad(w *V3, s float32, u *V3) {
	for i := range v {
		v[i] = w[i]*s + u[i]
	}
}

// MulComp sets v to contain the component-wise product l ⊙ r.
func (v *V3) MulComp(l, r *V3) {
	for i := range v {
		v[i] = l[i] * r[i]
	}
}

// Dot returns v ⋅ w.
func (v *V3) Dot(w *V3) (d float32) {
	for i := range v {
		d += v[i] * w[i]
	}
	return
}

// Len returns the length of v.
func (v *V3) Len() float32 { return float32(math.Sqrt(float64(v.Dot(v)))) }

// Norm sets v to contain w normalized.
func (v *V3) Norm(w *V3) { v.Scale(1/w.Len(), w) }

// Mul sets v to contain m ⋅ w.
func (v *V3) Mul(m *M3, w *V3) {
	*v = V3{}
	for i := range v {
		for j := range v {
			v[i] += m[j][i] * w[j]
		}
	}
}

// Cross sets v to contain l × r.
func (v *V3) Cross(l, r *V3) {
	x := l[1]*r[2] - l[2]*r[1]
	y := l[2]*r[0] - l[0]*r[2]
	z := l[0]*r[1] - l[1]*r[0]
	v[0], v[1], v[2] = x, y, z
}

// Min sets v to contain the component-wise minimum of l and r.
func (v *V3) Min(l, r *V3) {
	for i := range v {
		v[i] = min(l[i], r[i])
	}
}

// Max sets v to contain the component-wise maximum of l and r.
func (v *V3) Max(l, r *V3) {
	for i := range v {
		v[i] = max(l[i], r[i])
	}
}

// Abs sets v to contain the component-wise absolute value of w.
func (v *V3) Abs(w *V3) {
	for i := range v {
		v[i] = float32(math.Abs(float64(w[i])))
	}
}

// PosInf sets every component of v to +Inf.
func (v *V3) PosInf() { *v = V3{inf, inf, inf} }

// NegInf sets every component of v to -Inf.
func (v *V3) NegInf() { *v = V3{-inf, -inf, -inf} }

var inf = float32(math.Inf(1))
