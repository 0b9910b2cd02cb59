// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"math"
	"testing"
)

func TestV3(t *testing.T) {
	v := V3{1, 2, 4}
	w := V3{0, -1, 2}

	var u V3
	u.Add(&v, &w)
	if u != (V3{1, 1, 6}) {
		t.Fatalf("V3.Add\nhave %v\nwant [1 1 6]", u)
	}
	u.Sub(&v, &w)
	if u != (V3{1, 3, 2}) {
		t.Fatalf("V3.Sub\nhave %v\nwant [1 3 2]", u)
	}
	u.Scale(-1, &v)
	if u != (V3{-1, -2, -4}) {
		t.Fatalf("V3.Scale\nhave %v\nwant [-1 -2 -4]", u)
	}
	if d := v.Dot(&w); d != 6 {
		t.Fatalf("V3.Dot\nhave %v\nwant 6", d)
	}
	if d := v.Dot(&v); d != 21 {
		t.Fatalf("V3.Dot\nhave %v\nwant 21", d)
	}
	if l := v.Len(); l != float32(math.Sqrt(21)) {
		t.Fatalf("V3.Len\nhave %v\nwant %v", l, math.Sqrt(21))
	}

	n := V3{0, 0, -2}
	var nn V3
	nn.Norm(&n)
	if nn != (V3{0, 0, -1}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 0 -1]", nn)
	}

	a := V3{0, 0, -1}
	b := V3{0, 1, 0}
	var c V3
	c.Cross(&a, &b)
	if c != (V3{1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [1 0 0]", c)
	}
}

func TestMat(t *testing.T) {
	var m Mat
	m.I()
	if !m.IsIdentity() {
		t.Fatal("Mat.IsIdentity: identity matrix reported as non-identity")
	}

	m.Trans = V3{1, 2, 3}
	p := V3{1, 0, 0}
	var q V3
	m.MulPos(&q, &p)
	if q != (V3{2, 2, 3}) {
		t.Fatalf("Mat.MulPos\nhave %v\nwant [2 2 3]", q)
	}

	var d V3
	m.MulDir(&d, &p)
	if d != p {
		t.Fatalf("Mat.MulDir\nhave %v\nwant %v (translation must not apply)", d, p)
	}

	var inv Mat
	inv.Invert(&m)
	var back V3
	inv.MulPos(&back, &q)
	if back != p {
		t.Fatalf("Mat.Invert\nhave %v\nwant %v", back, p)
	}
}

func TestMatMulDirAbsFlushesNaN(t *testing.T) {
	var m Mat
	m.I()
	m.Lin[0][0] = 0

	inf := V3{float32(math.Inf(1)), 0, 0}
	var out V3
	m.MulDirAbs(&out, &inf)
	if out[0] != 0 {
		t.Fatalf("Mat.MulDirAbs\nhave %v\nwant 0 component (NaN must be flushed)", out[0])
	}
}

func TestBounds(t *testing.T) {
	var b Bounds
	b.Reset()
	p := V3{1, 2, 3}
	q := V3{-1, 5, 0}
	b.AddPoint(&p)
	b.AddPoint(&q)
	if b.Min != (V3{-1, 2, 0}) || b.Max != (V3{1, 5, 3}) {
		t.Fatalf("Bounds.AddPoint\nhave min=%v max=%v\nwant min=[-1 2 0] max=[1 5 3]", b.Min, b.Max)
	}
	if a := b.Area(); a <= 0 {
		t.Fatalf("Bounds.Area\nhave %v\nwant > 0", a)
	}
}
