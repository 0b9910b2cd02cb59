// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

import "github.com/gviegas/rtk/linear"

// childKind discriminates a wide-node child slot.
type childKind uint8

const (
	childLeaf childKind = iota
	childNode
)

// childRef is a tagged reference to either a node or a leaf, replacing
// the reference kernel's low-bit-tagged pointer. A zero value refers to
// leaves[0], which Build always reserves as the empty sentinel leaf.
type childRef struct {
	kind childKind
	idx  int32
}

// bvhNode is one wide (4-child) BVH node. Bounds are stored two rows per
// axis — row 0 holds each child's minimum, row 1 each child's maximum —
// so that traversal can pick the near/far row by the ray's sign without
// branching. An empty child slot carries a degenerate (inverted) bounds
// and a childLeaf ref to the empty sentinel leaf.
type bvhNode struct {
	boundsX [2][4]float32
	boundsY [2][4]float32
	boundsZ [2][4]float32
	child   [4]childRef
}

// vertexGroupEntry is one entry of a leaf's compact, ≤256-entry vertex
// group: a world-space position plus the originating mesh-local vertex
// index (used to reach UV/normal attribute arrays at shading time).
type vertexGroupEntry struct {
	Pos       linear.V3
	SrcVertex uint32
	// SrcMesh indexes into Scene.meshes; it is carried per-entry rather
	// than per-leaf because a single leaf's vertex group may span
	// triangles from more than one mesh.
	SrcMesh int32
}

// leafTriangle is one triangle record: three 8-bit indices into the
// owning leaf's vertex group and one 8-bit index into that leaf's
// triangle-object table.
type leafTriangle struct {
	VertIdx [3]uint8
	ObjIx   uint8
}

// leafPrimitive pairs a primitive with its cached local-to-scene inverse,
// computed once at build time.
type leafPrimitive struct {
	Prim   Primitive
	InvMat linear.Mat
}

// leaf is a BVH leaf: a vertex group, a padded triangle-record run (the
// run length is always a multiple of 4 — padding records duplicate
// record 0 so a 4-wide batch test never reads past NumTriangles without
// touching valid data), a primitive run, and a table mapping each
// triangle's ObjIx to a meshes[] index.
type leaf struct {
	// GroupIdx indexes Scene.vgroups. Several leaves may share the same
	// group when vertex-group closure merged their subtrees before
	// committing (see vertexgroup.go).
	GroupIdx     int32
	Triangles    []leafTriangle // len(Triangles) == align4(NumTriangles)
	NumTriangles int
	TriObjects   []int32 // ObjIx -> meshes[] index
	Primitives   []leafPrimitive
}

// meshRecord is the post-hit attribute-lookup entry for one mesh, or for
// one standalone triangle (which is modeled as a one-triangle mesh with
// no attributes). meshes[i] for i < len(original meshes) corresponds
// directly to SceneDesc.Meshes[i]; subsequent entries, one per
// SceneDesc.Triangles element, exist purely so that triangle hits can
// always resolve their owning object through the same meshIx indirection
// regardless of whether they came from a mesh or were standalone.
type meshRecord struct {
	Object  Object
	UVs     []linear.V2
	Normals []linear.V3
}

// Scene is an immutable, built acceleration structure. It is safe for
// concurrent use by any number of readers: Raytrace, RaytraceMany and the
// inspection accessors never mutate it.
type Scene struct {
	nodes  []bvhNode
	leaves []leaf
	vgroups [][]vertexGroupEntry
	meshes []meshRecord
	bounds linear.Bounds

	// usedMemory approximates the reference kernel's single-allocation
	// byte count, for UsedMemory's sake; rtk itself does not allocate as
	// one block (see DESIGN.md).
	usedMemory uintptr
}

// Bounds returns the AABB enclosing the entire scene.
func (s *Scene) Bounds() linear.Bounds { return s.bounds }

// UsedMemory returns an estimate, in bytes, of the memory retained by s.
func (s *Scene) UsedMemory() uintptr { return s.usedMemory }

func align4(n int) int { return (n + 3) &^ 3 }
