// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

import (
	"math"

	"github.com/gviegas/rtk/linear"
)

var inf = float32(math.Inf(1))

var emptyBounds = linear.Bounds{Min: linear.V3{inf, inf, inf}, Max: linear.V3{-inf, -inf, -inf}}

// linearizer carries the state needed to turn a buildContext's transient
// binary tree into a Scene's wide-node / leaf arrays.
type linearizer struct {
	b        *buildContext
	nodes    []bvhNode
	leaves   []leaf
	leafMemo map[int32]int32 // build leaf-node idx -> Scene leaf idx
}

// linearize converts b's finished build tree, plus the vertex-group
// closure results already recorded on it, into an immutable Scene.
func (b *buildContext) linearize() *Scene {
	lz := &linearizer{b: b, leafMemo: make(map[int32]int32)}

	// leaves[0] is the reserved empty sentinel, referenced by every
	// unused wide-node child slot.
	lz.leaves = append(lz.leaves, leaf{GroupIdx: -1})

	root := b.nodes[0]
	var rootIdx int32
	if root.isLeaf {
		idx := int32(len(lz.nodes))
		lz.nodes = append(lz.nodes, bvhNode{})
		n := bvhNode{}
		setEmptyChild(&n, 0)
		setEmptyChild(&n, 1)
		setEmptyChild(&n, 2)
		setEmptyChild(&n, 3)
		// An empty scene keeps every root slot on the sentinel leaf.
		if root.num > 0 {
			li := lz.leafIndex(0)
			setChildBounds(&n, 0, &root.bounds)
			n.child[0] = childRef{kind: childLeaf, idx: li}
		}
		lz.nodes[idx] = n
		rootIdx = idx
	} else {
		rootIdx = lz.linearizeNode(0)
	}
	_ = rootIdx // root is always Scene.nodes[0] by construction order

	vgroups := make([][]vertexGroupEntry, len(b.closedGroups))
	for i, g := range b.closedGroups {
		vgroups[i] = g.entries
	}

	s := &Scene{
		nodes:   lz.nodes,
		leaves:  lz.leaves,
		vgroups: vgroups,
		meshes:  b.meshes,
		bounds:  root.bounds,
	}
	s.usedMemory = s.estimateMemory()
	return s
}

// linearizeNode flattens the binary internal node at build index src,
// together with its two children's own children, into one wide node.
func (lz *linearizer) linearizeNode(src int32) int32 {
	idx := int32(len(lz.nodes))
	lz.nodes = append(lz.nodes, bvhNode{})

	var n bvhNode
	srcNode := lz.b.nodes[src]

	for half := 0; half < 2; half++ {
		childIdx := srcNode.children[half]
		child := lz.b.nodes[childIdx]

		if child.isLeaf {
			slot := half * 2
			li := lz.leafIndex(childIdx)
			n.child[slot] = childRef{kind: childLeaf, idx: li}
			setChildBounds(&n, slot, &child.bounds)
			setEmptyChild(&n, slot+1)
			continue
		}

		for sub := 0; sub < 2; sub++ {
			slot := half*2 + sub
			gcIdx := child.children[sub]
			gc := lz.b.nodes[gcIdx]
			if gc.isLeaf {
				li := lz.leafIndex(gcIdx)
				n.child[slot] = childRef{kind: childLeaf, idx: li}
			} else {
				ni := lz.linearizeNode(gcIdx)
				n.child[slot] = childRef{kind: childNode, idx: ni}
			}
			setChildBounds(&n, slot, &gc.bounds)
		}
	}

	lz.nodes[idx] = n
	return idx
}

// leafIndex returns (creating if necessary) the Scene leaf index for the
// build-tree leaf at index buildIdx.
func (lz *linearizer) leafIndex(buildIdx int32) int32 {
	if li, ok := lz.leafMemo[buildIdx]; ok {
		return li
	}
	li := int32(len(lz.leaves))
	lz.leaves = append(lz.leaves, lz.b.makeLeaf(buildIdx))
	lz.leafMemo[buildIdx] = li
	return li
}

// makeLeaf builds the Scene leaf record for the build-tree leaf node at
// index idx.
func (b *buildContext) makeLeaf(idx int32) leaf {
	node := b.nodes[idx]

	var out leaf
	out.GroupIdx = node.vgGroupIx

	objOf := make(map[int32]int32) // meshIx -> ObjIx
	for i := node.begin; i < node.begin+node.num; i++ {
		it := &b.items[i]
		switch it.kind {
		case itemTriangle:
			objIx, ok := objOf[it.meshIx]
			if !ok {
				objIx = int32(len(out.TriObjects))
				out.TriObjects = append(out.TriObjects, it.meshIx)
				objOf[it.meshIx] = objIx
			}
			out.Triangles = append(out.Triangles, leafTriangle{
				VertIdx: [3]uint8{uint8(it.vgIdx[0]), uint8(it.vgIdx[1]), uint8(it.vgIdx[2])},
				ObjIx:   uint8(objIx),
			})
		case itemPrimitive:
			p := b.desc.Primitives[it.primIx]
			var inv linear.Mat
			inv.Invert(&p.Transform)
			out.Primitives = append(out.Primitives, leafPrimitive{Prim: p, InvMat: inv})
		}
	}

	out.NumTriangles = len(out.Triangles)
	for len(out.Triangles)%4 != 0 {
		out.Triangles = append(out.Triangles, out.Triangles[0])
	}

	return out
}

func setEmptyChild(n *bvhNode, slot int) {
	n.child[slot] = childRef{kind: childLeaf, idx: 0}
	setChildBounds(n, slot, &emptyBounds)
}

func setChildBounds(n *bvhNode, slot int, b *linear.Bounds) {
	n.boundsX[0][slot], n.boundsX[1][slot] = b.Min[0], b.Max[0]
	n.boundsY[0][slot], n.boundsY[1][slot] = b.Min[1], b.Max[1]
	n.boundsZ[0][slot], n.boundsZ[1][slot] = b.Min[2], b.Max[2]
}

// estimateMemory approximates the reference kernel's single-allocation
// byte accounting for diagnostic purposes (UsedMemory).
func (s *Scene) estimateMemory() uintptr {
	const (
		nodeSize = 3*2*4*4 + 4*4 // 3 axes * 2 rows * 4 lanes * 4 bytes, plus 4 child refs
		vgeSize  = 3*4 + 4 + 4
	)
	var total uintptr
	total += uintptr(len(s.nodes)) * nodeSize
	for _, g := range s.vgroups {
		total += uintptr(len(g)) * vgeSize
	}
	for _, l := range s.leaves {
		total += uintptr(len(l.Triangles)) * 16
		total += uintptr(len(l.Primitives)) * 96
		total += uintptr(len(l.TriObjects)) * 4
	}
	total += uintptr(len(s.meshes)) * 32
	return total
}
