// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

import "github.com/gviegas/rtk/linear"

// BVHNode is a read-only view of one wide BVH node's four child slots,
// for diagnostics and visualization. GetBVH(0) is always the root.
type BVHNode struct {
	Bounds [4]linear.Bounds
	IsLeaf [4]bool
	// Empty marks a slot that holds no geometry (a sentinel used to pad
	// a node with fewer than 4 real children).
	Empty [4]bool
	// Child is the node or leaf index of each slot, meaningful per
	// IsLeaf; pass it to GetBVH or GetLeaf respectively. Empty slots
	// always resolve to the empty leaf (index 0, zero triangles and
	// primitives).
	Child [4]int
}

// NumNodes returns the number of wide BVH nodes held by s.
func (s *Scene) NumNodes() int { return len(s.nodes) }

// GetBVH returns a view of the wide node at index (0 <= index <
// NumNodes()).
func (s *Scene) GetBVH(index int) BVHNode {
	n := &s.nodes[index]
	var out BVHNode
	for lane := 0; lane < 4; lane++ {
		out.Bounds[lane] = linear.Bounds{
			Min: linear.V3{n.boundsX[0][lane], n.boundsY[0][lane], n.boundsZ[0][lane]},
			Max: linear.V3{n.boundsX[1][lane], n.boundsY[1][lane], n.boundsZ[1][lane]},
		}
		out.IsLeaf[lane] = n.child[lane].kind == childLeaf
		out.Empty[lane] = out.IsLeaf[lane] && n.child[lane].idx == 0
		out.Child[lane] = int(n.child[lane].idx)
	}
	return out
}

// LeafTriangle is a read-only view of one triangle record held by a
// leaf, with its vertex-group indirection already resolved.
type LeafTriangle struct {
	VertexIndex [3]uint32
	VertexPos   [3]linear.V3
	Object      Object
}

// LeafView is a read-only view of one BVH leaf's contents.
type LeafView struct {
	Triangles  []LeafTriangle
	Primitives []Primitive
}

// NumLeaves returns the number of BVH leaves held by s, including the
// reserved empty sentinel at index 0.
func (s *Scene) NumLeaves() int { return len(s.leaves) }

// GetLeaf returns a view of the leaf at index (0 <= index <
// NumLeaves()).
func (s *Scene) GetLeaf(index int) LeafView {
	lf := &s.leaves[index]
	var out LeafView

	if lf.NumTriangles > 0 {
		group := s.vgroups[lf.GroupIdx]
		out.Triangles = make([]LeafTriangle, lf.NumTriangles)
		for i := 0; i < lf.NumTriangles; i++ {
			tri := &lf.Triangles[i]
			g0, g1, g2 := &group[tri.VertIdx[0]], &group[tri.VertIdx[1]], &group[tri.VertIdx[2]]
			out.Triangles[i] = LeafTriangle{
				VertexIndex: [3]uint32{g0.SrcVertex, g1.SrcVertex, g2.SrcVertex},
				VertexPos:   [3]linear.V3{g0.Pos, g1.Pos, g2.Pos},
				Object:      s.meshes[lf.TriObjects[tri.ObjIx]].Object,
			}
		}
	}

	if len(lf.Primitives) > 0 {
		out.Primitives = make([]Primitive, len(lf.Primitives))
		for i := range lf.Primitives {
			out.Primitives[i] = lf.Primitives[i].Prim
		}
	}

	return out
}
