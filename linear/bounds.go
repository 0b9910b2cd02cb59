// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "math"

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max V3
}

// Reset sets b to the empty bounds (so the first AddPoint/AddBounds call
// establishes it).
func (b *Bounds) Reset() {
	b.Min.PosInf()
	b.Max.NegInf()
}

// AddPoint grows b to also contain p.
func (b *Bounds) AddPoint(p *V3) {
	b.Min.Min(&b.Min, p)
	b.Max.Max(&b.Max, p)
}

// AddBounds grows b to also contain c.
func (b *Bounds) AddBounds(c *Bounds) {
	b.Min.Min(&b.Min, &c.Min)
	b.Max.Max(&b.Max, &c.Max)
}

// Area returns the surface area of b, used by the SAH cost estimate.
// The empty bounds has a non-positive area.
func (b *Bounds) Area() float32 {
	var ext V3
	ext.Sub(&b.Max, &b.Min)
	if ext[0] < 0 || ext[1] < 0 || ext[2] < 0 {
		return 0
	}
	return 2 * (ext[0]*ext[1] + ext[1]*ext[2] + ext[2]*ext[0])
}

// Center returns the midpoint of b.
func (b *Bounds) Center() (c V3) {
	var sum V3
	sum.Add(&b.Min, &b.Max)
	c.Scale(0.5, &sum)
	return
}

// Transform sets b to the bounds of c transformed by m, computed via the
// center/extent method: the new center is the transformed old center and
// the new half-extent is m's linear part applied (component-wise
// absolute value) to the old half-extent. An axis unbounded on both
// sides has no finite center; it is treated as centered at 0 with an
// infinite half-extent.
func (b *Bounds) Transform(m *Mat, c *Bounds) {
	center := c.Center()
	var halfExt V3
	halfExt.Sub(&c.Max, &center)
	for i := range center {
		if math.IsNaN(float64(center[i])) {
			center[i] = 0
			halfExt[i] = (c.Max[i] - c.Min[i]) * 0.5
		}
	}

	var newCenter, newHalfExt V3
	m.MulPos(&newCenter, &center)
	m.MulDirAbs(&newHalfExt, &halfExt)

	b.Min.Sub(&newCenter, &newHalfExt)
	b.Max.Add(&newCenter, &newHalfExt)
}
