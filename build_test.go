// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gviegas/rtk/linear"
)

// randomTriangleDesc returns n random small triangles inside the unit
// cube, declared as standalone triangles.
func randomTriangleDesc(n int, seed int64) *SceneDesc {
	rng := rand.New(rand.NewSource(seed))
	desc := &SceneDesc{Triangles: make([]TriangleDesc, n)}
	for i := range desc.Triangles {
		var c linear.V3
		for a := range c {
			c[a] = rng.Float32()
		}
		tri := &desc.Triangles[i]
		for v := range tri.V {
			for a := range tri.V[v] {
				tri.V[v][a] = c[a] + (rng.Float32()-0.5)*0.1
			}
		}
		tri.Object = Object{Index: i}
	}
	return desc
}

// randomRays returns n rays whose origins are drawn from [-3,3) on each
// axis and whose directions point at a random point of the unit cube.
func randomRays(n int, seed int64) []Ray {
	rng := rand.New(rand.NewSource(seed))
	rays := make([]Ray, n)
	for i := range rays {
		var o, at linear.V3
		for a := range o {
			o[a] = rng.Float32()*6 - 3
			at[a] = rng.Float32()
		}
		var d linear.V3
		d.Sub(&at, &o)
		rays[i] = Ray{Origin: o, Direction: d}
	}
	return rays
}

// checkSceneInvariants walks a built scene and verifies the structural
// invariants every scene must satisfy.
func checkSceneInvariants(t *testing.T, s *Scene) {
	t.Helper()

	if len(s.leaves) == 0 || s.leaves[0].NumTriangles != 0 || len(s.leaves[0].Primitives) != 0 {
		t.Fatal("leaves[0] is not the empty sentinel")
	}

	for ni := range s.nodes {
		n := &s.nodes[ni]
		for lane := 0; lane < 4; lane++ {
			ref := n.child[lane]
			slot := linear.Bounds{
				Min: linear.V3{n.boundsX[0][lane], n.boundsY[0][lane], n.boundsZ[0][lane]},
				Max: linear.V3{n.boundsX[1][lane], n.boundsY[1][lane], n.boundsZ[1][lane]},
			}
			switch ref.kind {
			case childNode:
				if int(ref.idx) >= len(s.nodes) {
					t.Fatalf("node %d lane %d: node ref %d out of range", ni, lane, ref.idx)
				}
				// The child's own slots must stay inside the bounds the
				// parent recorded for it.
				c := &s.nodes[ref.idx]
				for cl := 0; cl < 4; cl++ {
					if c.child[cl].kind == childLeaf && c.child[cl].idx == 0 {
						continue
					}
					cb := linear.Bounds{
						Min: linear.V3{c.boundsX[0][cl], c.boundsY[0][cl], c.boundsZ[0][cl]},
						Max: linear.V3{c.boundsX[1][cl], c.boundsY[1][cl], c.boundsZ[1][cl]},
					}
					for a := 0; a < 3; a++ {
						if cb.Min[a] < slot.Min[a]-1e-5 || cb.Max[a] > slot.Max[a]+1e-5 {
							t.Fatalf("node %d lane %d: child bounds %v escape slot bounds %v", ni, lane, cb, slot)
						}
					}
				}
			case childLeaf:
				if int(ref.idx) >= len(s.leaves) {
					t.Fatalf("node %d lane %d: leaf ref %d out of range", ni, lane, ref.idx)
				}
			}
		}
	}

	for li := range s.leaves {
		lf := &s.leaves[li]
		if lf.NumTriangles > bvhLeafMaxItems {
			t.Fatalf("leaf %d: %d triangles > %d", li, lf.NumTriangles, bvhLeafMaxItems)
		}
		if len(lf.Primitives) > bvhLeafMaxItems {
			t.Fatalf("leaf %d: %d primitives > %d", li, len(lf.Primitives), bvhLeafMaxItems)
		}
		if lf.NumTriangles == 0 {
			continue
		}
		if len(lf.Triangles)%4 != 0 || len(lf.Triangles) < lf.NumTriangles {
			t.Fatalf("leaf %d: triangle run length %d not padded from %d", li, len(lf.Triangles), lf.NumTriangles)
		}
		for i := lf.NumTriangles; i < len(lf.Triangles); i++ {
			if lf.Triangles[i] != lf.Triangles[0] {
				t.Fatalf("leaf %d: padding record %d is not a copy of record 0", li, i)
			}
		}
		group := s.vgroups[lf.GroupIdx]
		if len(group) > bvhGroupMaxVerts {
			t.Fatalf("leaf %d: vertex group has %d entries > %d", li, len(group), bvhGroupMaxVerts)
		}
		for i := 0; i < lf.NumTriangles; i++ {
			tri := &lf.Triangles[i]
			for c := 0; c < 3; c++ {
				if int(tri.VertIdx[c]) >= len(group) {
					t.Fatalf("leaf %d tri %d: vertex index %d >= group size %d", li, i, tri.VertIdx[c], len(group))
				}
			}
			if int(tri.ObjIx) >= len(lf.TriObjects) {
				t.Fatalf("leaf %d tri %d: obj index %d >= %d", li, i, tri.ObjIx, len(lf.TriObjects))
			}
		}
		for _, meshIx := range lf.TriObjects {
			if int(meshIx) >= len(s.meshes) {
				t.Fatalf("leaf %d: mesh index %d out of range", li, meshIx)
			}
		}
	}
}

func TestBuildInvariants(t *testing.T) {
	desc := randomTriangleDesc(3000, 11)
	s := Build(desc)
	checkSceneInvariants(t, s)

	// Scene bounds must equal the union of the per-item bounds.
	var want linear.Bounds
	want.Reset()
	for i := range desc.Triangles {
		for v := range desc.Triangles[i].V {
			want.AddPoint(&desc.Triangles[i].V[v])
		}
	}
	b := s.Bounds()
	if !nearV3(b.Min, want.Min, 1e-6) || !nearV3(b.Max, want.Max, 1e-6) {
		t.Fatalf("Scene.Bounds:\nhave %v\nwant %v", b, want)
	}

	if s.UsedMemory() == 0 {
		t.Fatal("Scene.UsedMemory: zero for a non-empty scene")
	}
}

func TestBuildEmpty(t *testing.T) {
	s := Build(&SceneDesc{})
	checkSceneInvariants(t, s)

	ray := Ray{Origin: linear.V3{0, 0, -5}, Direction: linear.V3{0, 0, 1}}
	if _, ok := Raytrace(s, &ray, float32(math.Inf(1))); ok {
		t.Fatal("Raytrace: hit in an empty scene")
	}

	root := s.GetBVH(0)
	for lane := 0; lane < 4; lane++ {
		if !root.Empty[lane] {
			t.Fatalf("empty scene: root lane %d not empty", lane)
		}
	}
}

// TestBuildCoincident packs many triangles with one shared centroid,
// where no SAH axis is scorable; the leaf limit must still hold.
func TestBuildCoincident(t *testing.T) {
	desc := &SceneDesc{Triangles: make([]TriangleDesc, 300)}
	for i := range desc.Triangles {
		desc.Triangles[i].V = [3]linear.V3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	}
	s := Build(desc)
	checkSceneInvariants(t, s)

	ray := Ray{Origin: linear.V3{0.25, 0.25, -1}, Direction: linear.V3{0, 0, 1}}
	if _, ok := Raytrace(s, &ray, float32(math.Inf(1))); !ok {
		t.Fatal("Raytrace: missed coincident triangles")
	}
}

// TestVertexGroups builds a mesh large enough that no single 256-entry
// group can hold it, forcing closure to commit multiple groups.
func TestVertexGroups(t *testing.T) {
	const n = 40 // (n+1)² = 1681 vertices
	var m MeshDesc
	for z := 0; z <= n; z++ {
		for x := 0; x <= n; x++ {
			m.Vertices = append(m.Vertices, linear.V3{float32(x), 0, float32(z)})
		}
	}
	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			i := uint32(z*(n+1) + x)
			m.Indices = append(m.Indices, i, i+1, i+n+1, i+1, i+n+2, i+n+1)
		}
	}
	m.Transform.I()
	s := Build(&SceneDesc{Meshes: []MeshDesc{m}})
	checkSceneInvariants(t, s)

	if len(s.vgroups) < 2 {
		t.Fatalf("vertex groups:\nhave %d\nwant >= 2 (closure must have split)", len(s.vgroups))
	}

	// Every grid cell center must be hittable from above.
	for z := 0; z < n; z += 7 {
		for x := 0; x < n; x += 7 {
			ray := Ray{
				Origin:    linear.V3{float32(x) + 0.5, 5, float32(z) + 0.5},
				Direction: linear.V3{0, -1, 0},
			}
			hit, ok := Raytrace(s, &ray, float32(math.Inf(1)))
			if !ok {
				t.Fatalf("Raytrace: missed grid cell (%d, %d)", x, z)
			}
			if !near(hit.T, 5, 1e-4) {
				t.Fatalf("grid cell (%d, %d): hit.T\nhave %v\nwant 5", x, z, hit.T)
			}
		}
	}
}

// TestMixedScene exercises meshes, standalone triangles and primitives
// in one build.
func TestMixedScene(t *testing.T) {
	m := cubeMesh()
	m.Transform.Trans = linear.V3{-5, 0, 0}

	desc := &SceneDesc{
		Meshes: []MeshDesc{m},
		Triangles: []TriangleDesc{
			{V: [3]linear.V3{{4, -1, -1}, {6, -1, -1}, {5, 1, -1}}, Object: Object{Index: 2}},
		},
		Primitives: []Primitive{
			NewSphere(linear.V3{0, 5, 0}, 1, nil, Object{Index: 3}),
		},
	}
	s := Build(desc)
	checkSceneInvariants(t, s)

	inf := float32(math.Inf(1))
	for _, tc := range [...]struct {
		ray  Ray
		kind GeometryKind
	}{
		{Ray{Origin: linear.V3{-5, 0, -9}, Direction: linear.V3{0, 0, 1}}, HitTriangle},
		{Ray{Origin: linear.V3{5, 0, -9}, Direction: linear.V3{0, 0, 1}}, HitTriangle},
		{Ray{Origin: linear.V3{0, 5, -9}, Direction: linear.V3{0, 0, 1}}, HitSphere},
	} {
		hit, ok := Raytrace(s, &tc.ray, inf)
		if !ok {
			t.Fatalf("Raytrace from %v: miss", tc.ray.Origin)
		}
		if hit.GeometryKind != tc.kind {
			t.Fatalf("Raytrace from %v: kind\nhave %d\nwant %d", tc.ray.Origin, hit.GeometryKind, tc.kind)
		}
	}
}

// TestAttributeDedup builds two meshes sharing one attribute buffer:
// the scene must copy the buffer exactly once and must not retain the
// caller's storage.
func TestAttributeDedup(t *testing.T) {
	uvs := []linear.V2{{0, 0}, {1, 0}, {0, 1}}
	var a, b MeshDesc
	a.Vertices = []linear.V3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	a.Indices = []uint32{0, 1, 2}
	a.UVs = uvs
	a.Transform.I()
	b = a
	b.Transform.Trans = linear.V3{5, 0, 0}

	s := Build(&SceneDesc{Meshes: []MeshDesc{a, b}})

	if &s.meshes[0].UVs[0] != &s.meshes[1].UVs[0] {
		t.Fatal("shared source buffer was copied twice")
	}
	if &s.meshes[0].UVs[0] == &uvs[0] {
		t.Fatal("scene retained the caller's attribute buffer")
	}

	// Clobbering the caller's buffer after Build must not leak in.
	uvs[1] = linear.V2{9, 9}
	ray := Ray{Origin: linear.V3{0.5, 0.25, -1}, Direction: linear.V3{0, 0, 1}}
	hit, ok := Raytrace(s, &ray, float32(math.Inf(1)))
	if !ok {
		t.Fatal("Raytrace: miss")
	}
	if hit.Interp.U > 1 || hit.Interp.V > 1 {
		t.Fatalf("interpolated UV read from the caller's mutated buffer: %v %v", hit.Interp.U, hit.Interp.V)
	}
}

func TestInspect(t *testing.T) {
	s := Build(randomTriangleDesc(200, 5))

	seen := 0
	var walk func(idx int)
	walk = func(idx int) {
		n := s.GetBVH(idx)
		for lane := 0; lane < 4; lane++ {
			if n.Empty[lane] {
				continue
			}
			if n.IsLeaf[lane] {
				view := s.GetLeaf(n.Child[lane])
				seen += len(view.Triangles)
				for i := range view.Triangles {
					tri := &view.Triangles[i]
					for c := 0; c < 3; c++ {
						for a := 0; a < 3; a++ {
							if tri.VertexPos[c][a] < n.Bounds[lane].Min[a]-1e-5 ||
								tri.VertexPos[c][a] > n.Bounds[lane].Max[a]+1e-5 {
								t.Fatalf("leaf %d: vertex %v outside leaf bounds %v", n.Child[lane], tri.VertexPos[c], n.Bounds[lane])
							}
						}
					}
				}
			} else {
				walk(n.Child[lane])
			}
		}
	}
	walk(0)

	if seen != 200 {
		t.Fatalf("leaf enumeration:\nhave %d triangles\nwant 200", seen)
	}
}
