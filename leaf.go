// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

import (
	"math"

	"github.com/gviegas/rtk/linear"
)

// shearSetup is a ray's precomputed watertight shear-space parameters
// (Woop, Benthin & Wald), computed once per ray and reused by every
// triangle test the traversal performs against it.
type shearSetup struct {
	kx, ky, kz int
	sx, sy, sz float32
}

// computeShear derives the axis permutation and shear coefficients for
// dir. kz is the axis along which dir has its largest magnitude
// component; kx, ky are swapped when dir[kz] is negative so that the
// permutation preserves winding.
func computeShear(dir *linear.V3) shearSetup {
	kz := 0
	ax, ay, az := abs32(dir[0]), abs32(dir[1]), abs32(dir[2])
	if ay > ax {
		kz = 1
	}
	if kz == 0 && az > ax {
		kz = 2
	} else if kz == 1 && az > ay {
		kz = 2
	}

	kx := (kz + 1) % 3
	ky := (kx + 1) % 3
	if dir[kz] < 0 {
		kx, ky = ky, kx
	}

	return shearSetup{
		kx: kx, ky: ky, kz: kz,
		sx: dir[kx] / dir[kz],
		sy: dir[ky] / dir[kz],
		sz: 1 / dir[kz],
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// intersectLeaf tests ray against every triangle and primitive held by
// lf, updating hit (and scratch) on each strict improvement. Triangles
// are walked in batches of 4 — a plain scalar loop over the batch, since
// rtk carries a single portable lane path rather than separate SIMD and
// scalar ones (see DESIGN.md).
func (s *Scene) intersectLeaf(lf *leaf, ray *Ray, shear *shearSetup, hit *Hit, scratch *hitScratch) bool {
	improved := false

	if lf.NumTriangles > 0 {
		group := s.vgroups[lf.GroupIdx]
		for base := 0; base < len(lf.Triangles); base += 4 {
			for lane := 0; lane < 4; lane++ {
				tri := &lf.Triangles[base+lane]
				if s.testTriangle(tri, group, lf.TriObjects, ray, shear, hit) {
					improved = true
					scratch.isTriangle = true
					scratch.meshIx = group[tri.VertIdx[0]].SrcMesh
				}
			}
		}
	}

	for i := range lf.Primitives {
		if s.testPrimitive(&lf.Primitives[i], ray, hit) {
			improved = true
			scratch.isTriangle = false
		}
	}

	return improved
}

// testTriangle runs the watertight ray/triangle test against tri's three
// vertex-group corners. On a strict improvement it fills hit's geometric
// surface, vertex data and object tag, and reports true.
func (s *Scene) testTriangle(tri *leafTriangle, group []vertexGroupEntry, triObjects []int32, ray *Ray, shear *shearSetup, hit *Hit) bool {
	p0 := &group[tri.VertIdx[0]].Pos
	p1 := &group[tri.VertIdx[1]].Pos
	p2 := &group[tri.VertIdx[2]].Pos

	kx, ky, kz := shear.kx, shear.ky, shear.kz

	// Translate relative to the ray origin, then permute to the
	// dominant-axis frame.
	ax := p0[kx] - ray.Origin[kx]
	ay := p0[ky] - ray.Origin[ky]
	az := p0[kz] - ray.Origin[kz]
	bx := p1[kx] - ray.Origin[kx]
	by := p1[ky] - ray.Origin[ky]
	bz := p1[kz] - ray.Origin[kz]
	cx := p2[kx] - ray.Origin[kx]
	cy := p2[ky] - ray.Origin[ky]
	cz := p2[kz] - ray.Origin[kz]

	// Shear x and y by z; z is sheared only at the very end (it only
	// ever contributes to the hit distance, not the edge functions).
	ax -= shear.sx * az
	ay -= shear.sy * az
	bx -= shear.sx * bz
	by -= shear.sy * bz
	cx -= shear.sx * cz
	cy -= shear.sy * cz

	u := bx*cy - by*cx
	v := cx*ay - cy*ax
	w := ax*by - ay*bx

	if u == 0 || v == 0 || w == 0 {
		// Recompute the degenerate edge functions in double precision;
		// a float32 exact zero is not trustworthy evidence of the ray
		// grazing an edge.
		du := float64(bx)*float64(cy) - float64(by)*float64(cx)
		dv := float64(cx)*float64(ay) - float64(cy)*float64(ax)
		dw := float64(ax)*float64(by) - float64(ay)*float64(bx)
		u, v, w = float32(du), float32(dv), float32(dw)
	}

	if (u < 0 || v < 0 || w < 0) && (u > 0 || v > 0 || w > 0) {
		return false
	}

	det := u + v + w
	if det == 0 {
		return false
	}

	az *= shear.sz
	bz *= shear.sz
	cz *= shear.sz
	tScaled := u*az + v*bz + w*cz

	rcpDet := 1 / det
	t := tScaled * rcpDet
	// Positive form so a NaN t (degenerate ray) never passes.
	if !(t > ray.MinT && t < hit.T) {
		return false
	}

	bu := u * rcpDet // barycentric weight of vertex 0
	bv := v * rcpDet // barycentric weight of vertex 1

	// The flat normal stays unnormalized here; post-hit interpolation
	// normalizes it once the winning hit is known.
	var e1, e2, n linear.V3
	e1.Sub(p1, p0)
	e2.Sub(p2, p0)
	n.Cross(&e1, &e2)

	hit.T = t
	hit.Geom = Surface{U: bu, V: bv, Normal: n, DpDu: e1, DpDv: e2}
	hit.Interp = hit.Geom
	hit.VertexIndex = [3]uint32{
		group[tri.VertIdx[0]].SrcVertex,
		group[tri.VertIdx[1]].SrcVertex,
		group[tri.VertIdx[2]].SrcVertex,
	}
	hit.VertexPos = [3]linear.V3{*p0, *p1, *p2}
	hit.GeometryKind = HitTriangle
	hit.Object = s.meshes[triObjects[tri.ObjIx]].Object
	hit.User = hit.Object.User
	hit.NumParents = 0

	return true
}

// testPrimitive transforms ray into lp's local space, rejects quickly
// against its local AABB, then defers to the user callback. Because the
// transformed direction is never renormalized, the resulting local-space
// t is numerically identical to the corresponding world-space t, so
// hit.T stays directly comparable across primitives and leaves without
// any rescaling.
func (s *Scene) testPrimitive(lp *leafPrimitive, ray *Ray, hit *Hit) bool {
	var local Ray
	lp.InvMat.MulPos(&local.Origin, &ray.Origin)
	lp.InvMat.MulDir(&local.Direction, &ray.Direction)
	local.MinT = ray.MinT

	if !intersectAABB(&lp.Prim.Bounds, &local) {
		return false
	}

	saved := *hit
	if !lp.Prim.Intersect(&lp.Prim, &local, hit) {
		return false
	}
	if !(hit.T < saved.T) {
		// The callback accepted without strictly improving t; discard
		// its write entirely.
		*hit = saved
		return false
	}
	if hit.GeometryKind != HitTriangle {
		// Only triangle hits (including those found inside a sub-scene)
		// carry per-corner vertex data.
		hit.VertexIndex = [3]uint32{}
		hit.VertexPos = [3]linear.V3{}
	}

	if !lp.Prim.Transform.IsIdentity() {
		var nt linear.M3
		nt.Transpose(&lp.InvMat.Lin)

		for _, surf := range [...]*Surface{&hit.Geom, &hit.Interp} {
			var n, dpdu, dpdv linear.V3
			n.Mul(&nt, &surf.Normal)
			n.Norm(&n)
			lp.Prim.Transform.MulDir(&dpdu, &surf.DpDu)
			lp.Prim.Transform.MulDir(&dpdv, &surf.DpDv)
			surf.Normal, surf.DpDu, surf.DpDv = n, dpdu, dpdv
		}
	}

	return true
}

// intersectAABB is a scalar slab test used to quickly reject a
// primitive's local AABB before paying for its intersection callback.
func intersectAABB(b *linear.Bounds, ray *Ray) bool {
	tmin := ray.MinT
	tmax := float32(math.Inf(1))
	for axis := 0; axis < 3; axis++ {
		d := ray.Direction[axis]
		if d == 0 {
			if ray.Origin[axis] < b.Min[axis] || ray.Origin[axis] > b.Max[axis] {
				return false
			}
			continue
		}
		rcp := 1 / d
		t0 := (b.Min[axis] - ray.Origin[axis]) * rcp
		t1 := (b.Max[axis] - ray.Origin[axis]) * rcp
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
		if tmin > tmax {
			return false
		}
	}
	return true
}
