// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

import "github.com/gviegas/rtk/linear"

// Raytrace finds the closest intersection of ray with s, no farther than
// maxT, and reports whether one was found. On a hit, Geom carries the
// flat per-triangle (or primitive-native) surface and Interp carries the
// vertex-attribute-interpolated one; for a sphere or plane hit, or a
// triangle whose mesh carries neither normals nor UVs, Interp equals Geom.
//
// Mesh normal interpolation is computed in the mesh's own local space
// when the mesh's Transform is not identity — callers applying a
// non-identity mesh transform and relying on Interp.Normal should be
// aware the blended normal is not itself re-transformed to scene space.
// This mirrors a known limitation of the reference kernel this package
// is modeled on, carried over rather than silently fixed.
func Raytrace(s *Scene, ray *Ray, maxT float32) (Hit, bool) {
	var hit Hit
	hit.T = maxT

	shear := computeShear(&ray.Direction)
	var scratch hitScratch
	if !s.intersect(ray, &shear, &hit, &scratch) {
		return Hit{}, false
	}

	if scratch.isTriangle {
		interpolateTriangle(s, &hit, scratch.meshIx)
	} else {
		hit.Interp.Normal.Norm(&hit.Interp.Normal)
	}

	return hit, true
}

// RaytraceMany runs Raytrace for every ray in rays, writing the
// per-ray results into hits and found (both must be at least
// len(rays) long). Rays are traced strictly one at a time: rtk's Scene
// has no internal ray queue or wide-packet path, so there is nothing to
// gain from attempting to interleave them.
func RaytraceMany(s *Scene, rays []Ray, maxT float32, hits []Hit, found []bool) {
	for i := range rays {
		hits[i], found[i] = Raytrace(s, &rays[i], maxT)
	}
}

// interpolateTriangle fills hit.Interp with the vertex-attribute-blended
// surface for a triangle hit belonging to mesh meshIx, falling back to
// the already-copied geometric surface wherever the mesh lacks the
// corresponding attribute (or, for UVs, wherever the UV parameterization
// is degenerate at this triangle).
func interpolateTriangle(s *Scene, hit *Hit, meshIx int32) {
	hit.Geom.Normal.Norm(&hit.Geom.Normal)

	mesh := &s.meshes[meshIx]
	u, v := hit.Geom.U, hit.Geom.V
	w := 1 - u - v

	if mesh.Normals != nil {
		n0 := mesh.Normals[hit.VertexIndex[0]]
		n1 := mesh.Normals[hit.VertexIndex[1]]
		n2 := mesh.Normals[hit.VertexIndex[2]]
		var blended linear.V3
		for i := range blended {
			blended[i] = u*n0[i] + v*n1[i] + w*n2[i]
		}
		blended.Norm(&blended)
		hit.Interp.Normal = blended
	} else {
		// Interp carried the unnormalized flat normal until now.
		hit.Interp.Normal = hit.Geom.Normal
	}

	if mesh.UVs != nil {
		uv0 := mesh.UVs[hit.VertexIndex[0]]
		uv1 := mesh.UVs[hit.VertexIndex[1]]
		uv2 := mesh.UVs[hit.VertexIndex[2]]
		var duv1, duv2 linear.V2
		duv1.Sub(&uv1, &uv0)
		duv2.Sub(&uv2, &uv0)

		det := duv1[0]*duv2[1] - duv1[1]*duv2[0]
		rcpDet := 1 / det
		if r := abs32(rcpDet); r > 1e-18 && r < inf {
			var uvBlend linear.V2
			for i := range uvBlend {
				uvBlend[i] = u*uv0[i] + v*uv1[i] + w*uv2[i]
			}
			hit.Interp.U, hit.Interp.V = uvBlend[0], uvBlend[1]

			var t1, t2, dpdu, dpdv linear.V3
			t1.Scale(duv2[1], &hit.Geom.DpDu)
			t2.Scale(duv1[1], &hit.Geom.DpDv)
			dpdu.Sub(&t1, &t2)
			dpdu.Scale(rcpDet, &dpdu)

			t1.Scale(duv1[0], &hit.Geom.DpDv)
			t2.Scale(duv2[0], &hit.Geom.DpDu)
			dpdv.Sub(&t1, &t2)
			dpdv.Scale(rcpDet, &dpdv)

			hit.Interp.DpDu, hit.Interp.DpDv = dpdu, dpdv
		}
	}
}
