// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "testing"

func BenchmarkDot(b *testing.B) {
	v := V3{1, 2, 3}
	w := V3{-3, 2, 1}
	b.ReportAllocs()
	b.ResetTimer()
	var d float32
	for i := 0; i < b.N; i++ {
		d = v.Dot(&w)
	}
	_ = d
}

func BenchmarkCross(b *testing.B) {
	v := V3{1, 2, 3}
	w := V3{-3, 2, 1}
	b.ReportAllocs()
	b.ResetTimer()
	var c V3
	for i := 0; i < b.N; i++ {
		c.Cross(&v, &w)
	}
}

func BenchmarkMulV3(b *testing.B) {
	var m M3
	m.I()
	v := V3{1, 2, 3}
	b.ReportAllocs()
	b.ResetTimer()
	var u V3
	for i := 0; i < b.N; i++ {
		u.Mul(&m, &v)
	}
}

func BenchmarkInvertMat(b *testing.B) {
	var m Mat
	m.I()
	m.Trans = V3{1, 2, 3}
	b.ReportAllocs()
	b.ResetTimer()
	var inv Mat
	for i := 0; i < b.N; i++ {
		inv.Invert(&m)
	}
}

func BenchmarkTransformBounds(b *testing.B) {
	var m Mat
	m.I()
	m.Trans = V3{1, 2, 3}
	bd := Bounds{Min: V3{-1, -1, -1}, Max: V3{1, 1, 1}}
	b.ReportAllocs()
	b.ResetTimer()
	var out Bounds
	for i := 0; i < b.N; i++ {
		out.Transform(&m, &bd)
	}
}
