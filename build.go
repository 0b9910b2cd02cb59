// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

import (
	"sort"

	"github.com/gviegas/rtk/linear"
)

// Tunables matching the reference kernel's configuration constants.
const (
	bvhMaxDepth       = 32
	bvhBuildSplits    = 32
	bvhLeafMinItems   = 4
	bvhLeafMaxItems   = 64
	bvhGroupMaxVerts  = 256
	sahBVHCost        = 1.0
	sahItemCost       = 1.0
)

// itemKind discriminates a buildItem's payload.
type itemKind uint8

const (
	itemTriangle itemKind = iota
	itemPrimitive
)

// buildItem is one leaf-assignable unit of scene geometry.
type buildItem struct {
	bounds linear.Bounds
	kind   itemKind

	// Valid when kind == itemTriangle. meshIx indexes b.meshes (which
	// holds one entry per SceneDesc mesh followed by one entry per
	// standalone triangle); vertex holds the three mesh-local vertex
	// indices (or, for a standalone triangle, the synthetic indices
	// 0, 1, 2).
	meshIx int32
	vertex [3]uint32

	// vgIdx is filled in by the vertex-group closure pass: the local
	// (0..255) position of each corner within its leaf's eventual
	// vertex group.
	vgIdx [3]int32

	// Valid when kind == itemPrimitive: index into desc.Primitives.
	primIx int32
}

// buildNode is a node of the transient binary tree the SAH partitioner
// produces. Once build completes every node is either a leaf (isLeaf,
// referencing a contiguous run of b.items) or internal (two children).
type buildNode struct {
	bounds     linear.Bounds
	begin, num int

	isLeaf   bool
	children [2]int32

	// Vertex-group closure state, see vertexgroup.go.
	vgOpen    bool
	vgSet     *vertexSet
	vgMembers []int32
	vgClosed  bool
	vgGroupIx int32
}

// buildContext holds all transient state for one Build call.
type buildContext struct {
	desc   *SceneDesc
	items  []buildItem
	nodes  []buildNode
	meshes []meshRecord

	closedGroups []closedGroup
}

// closedGroup is a committed, shareable vertex group: the leaves of
// every build-tree leaf node listed in members reference it.
type closedGroup struct {
	entries []vertexGroupEntry
	members []int32 // build-node indices (isLeaf == true)
}

// Build constructs an immutable Scene from desc. desc is only read during
// the call; the returned Scene does not retain any reference to it.
func Build(desc *SceneDesc) *Scene {
	b := &buildContext{desc: desc}
	b.extractItems()

	root := buildNode{begin: 0, num: len(b.items)}
	root.bounds.Reset()
	for i := range b.items {
		root.bounds.AddBounds(&b.items[i].bounds)
	}
	b.nodes = append(b.nodes, root)

	if len(b.items) == 0 {
		b.nodes[0].isLeaf = true
	} else {
		b.buildNodeRec(0, 0)
	}

	b.closeVertexGroups()

	return b.linearize()
}

// extractItems turns desc's meshes, triangles and primitives into a flat
// buildItem array plus the parallel meshes record array used later for
// post-hit attribute interpolation.
func (b *buildContext) extractItems() {
	desc := b.desc

	// The scene must not retain the caller's buffers. Each distinct
	// attribute array (keyed by its backing storage) is copied exactly
	// once; meshes sharing a source share the copy.
	uvSrc := make(map[*linear.V2][]linear.V2)
	nrmSrc := make(map[*linear.V3][]linear.V3)
	for mi := range desc.Meshes {
		m := &desc.Meshes[mi]
		if len(m.UVs) > 0 {
			k := &m.UVs[0]
			if len(uvSrc[k]) < len(m.UVs) {
				uvSrc[k] = append([]linear.V2(nil), m.UVs...)
			}
		}
		if len(m.Normals) > 0 {
			k := &m.Normals[0]
			if len(nrmSrc[k]) < len(m.Normals) {
				nrmSrc[k] = append([]linear.V3(nil), m.Normals...)
			}
		}
	}

	for mi := range desc.Meshes {
		m := &desc.Meshes[mi]
		rec := meshRecord{Object: m.Object}
		if len(m.UVs) > 0 {
			rec.UVs = uvSrc[&m.UVs[0]][:len(m.UVs)]
		}
		if len(m.Normals) > 0 {
			rec.Normals = nrmSrc[&m.Normals[0]][:len(m.Normals)]
		}
		b.meshes = append(b.meshes, rec)

		identity := m.Transform.IsIdentity()
		n := m.NumTriangles()
		for t := 0; t < n; t++ {
			v0, v1, v2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
			p0, p1, p2 := m.Vertices[v0], m.Vertices[v1], m.Vertices[v2]
			if !identity {
				m.Transform.MulPos(&p0, &p0)
				m.Transform.MulPos(&p1, &p1)
				m.Transform.MulPos(&p2, &p2)
			}
			it := buildItem{
				kind:   itemTriangle,
				meshIx: int32(mi),
				vertex: [3]uint32{v0, v1, v2},
				vgIdx:  [3]int32{-1, -1, -1},
			}
			it.bounds.Reset()
			it.bounds.AddPoint(&p0)
			it.bounds.AddPoint(&p1)
			it.bounds.AddPoint(&p2)
			b.items = append(b.items, it)
		}
	}

	for ti := range desc.Triangles {
		tri := &desc.Triangles[ti]
		meshIx := int32(len(b.meshes))
		b.meshes = append(b.meshes, meshRecord{Object: tri.Object})

		it := buildItem{
			kind:   itemTriangle,
			meshIx: meshIx,
			vertex: [3]uint32{0, 1, 2},
			vgIdx:  [3]int32{-1, -1, -1},
		}
		it.bounds.Reset()
		it.bounds.AddPoint(&tri.V[0])
		it.bounds.AddPoint(&tri.V[1])
		it.bounds.AddPoint(&tri.V[2])
		b.items = append(b.items, it)
		// Standalone triangle positions are needed again during vertex
		// group closure; the synthetic per-triangle mesh record keeps
		// the lookup uniform, and vertexPos resolves the positions
		// through b.desc.Triangles directly.
	}

	for pi := range desc.Primitives {
		p := &desc.Primitives[pi]
		it := buildItem{kind: itemPrimitive, primIx: int32(pi)}
		it.bounds.Transform(&p.Transform, &p.Bounds)
		b.items = append(b.items, it)
	}
}

// buildNodeRec recursively decides, and if necessary partitions, node
// idx at the given depth.
func (b *buildContext) buildNodeRec(idx int32, depth int) {
	node := b.nodes[idx]

	if depth >= bvhMaxDepth {
		b.buildNodeLeaf(idx)
		return
	}

	splitsLeft := bvhMaxDepth - depth - 1
	if splitsLeft < 0 {
		splitsLeft = 0
	} else if splitsLeft > 31 {
		splitsLeft = 31
	}
	splitItems := node.num >> uint(splitsLeft)

	switch {
	case splitItems > bvhLeafMaxItems:
		b.buildNodeEqual(idx, depth)
	case node.num <= bvhLeafMinItems:
		b.buildNodeLeaf(idx)
	default:
		b.buildNodeSAH(idx, depth)
	}
}

func (b *buildContext) buildNodeLeaf(idx int32) {
	b.nodes[idx].isLeaf = true
}

// centroid returns the center of item i's bounds.
func (b *buildContext) centroid(i int) linear.V3 {
	c := b.items[i].bounds.Center()
	return c
}

// partitionByPred reorders items in [begin,begin+num) so that every
// item satisfying pred comes first, returning the split point.
func partitionByPred(items []buildItem, begin, num int, pred func(*buildItem) bool) int {
	lo, hi := begin, begin+num-1
	for lo <= hi {
		for lo <= hi && pred(&items[lo]) {
			lo++
		}
		for lo <= hi && !pred(&items[hi]) {
			hi--
		}
		if lo < hi {
			items[lo], items[hi] = items[hi], items[lo]
			lo++
			hi--
		}
	}
	return lo
}

// buildNodeEqual forces an even median split by the node bounds' largest
// axis, used when the remaining depth budget cannot afford an SAH scan
// that might produce a very uneven split.
func (b *buildContext) buildNodeEqual(idx int32, depth int) {
	node := b.nodes[idx]
	axis := largestAxis(&node.bounds)

	items := b.items[node.begin : node.begin+node.num]
	sort.Slice(items, func(i, j int) bool {
		ci := b.items[node.begin+i].bounds.Center()
		cj := b.items[node.begin+j].bounds.Center()
		return ci[axis] < cj[axis]
	})

	mid := node.num / 2
	b.makeChildren(idx, node.begin, mid, node.num-mid, depth)
}

type sahBucket struct {
	bounds linear.Bounds
	num    int
}

// buildNodeSAH scans bvhBuildSplits buckets along each axis, picks the
// lowest-cost split (falling back to a leaf if splitting doesn't pay for
// itself), and partitions the item range accordingly.
func (b *buildContext) buildNodeSAH(idx int32, depth int) {
	node := b.nodes[idx]

	// The leaf side uses the plain item count; rounding to groups of 4
	// applies only to the split-side terms below.
	leafCost := sahItemCost * float32(node.num)

	bestCost := float32(1e30)
	bestAxis := -1
	bestBucket := -1

	var boundsMin, boundsMax linear.V3
	boundsMin = node.bounds.Min
	boundsMax = node.bounds.Max

	for axis := 0; axis < 3; axis++ {
		extent := boundsMax[axis] - boundsMin[axis]
		if extent <= 0 {
			continue
		}
		scale := float32(bvhBuildSplits) / extent

		var buckets [bvhBuildSplits]sahBucket
		for i := range buckets {
			buckets[i].bounds.Reset()
		}

		bucketOf := func(i int) int {
			c := b.centroid(i)
			bi := int((c[axis] - boundsMin[axis]) * scale)
			if bi < 0 {
				bi = 0
			} else if bi >= bvhBuildSplits {
				bi = bvhBuildSplits - 1
			}
			return bi
		}

		for i := node.begin; i < node.begin+node.num; i++ {
			bi := bucketOf(i)
			buckets[bi].num++
			buckets[bi].bounds.AddBounds(&b.items[i].bounds)
		}

		var rightBounds [bvhBuildSplits]linear.Bounds
		var rightNum [bvhBuildSplits]int
		var acc linear.Bounds
		acc.Reset()
		accNum := 0
		for i := bvhBuildSplits - 1; i >= 0; i-- {
			acc.AddBounds(&buckets[i].bounds)
			accNum += buckets[i].num
			rightBounds[i] = acc
			rightNum[i] = accNum
		}

		var left linear.Bounds
		left.Reset()
		leftNum := 0
		parentArea := node.bounds.Area()
		if parentArea <= 0 {
			continue
		}
		for split := 0; split < bvhBuildSplits-1; split++ {
			left.AddBounds(&buckets[split].bounds)
			leftNum += buckets[split].num
			rNum := rightNum[split+1]
			if leftNum == 0 || rNum == 0 {
				continue
			}
			cost := sahBVHCost + (left.Area()*float32(ceilDiv(leftNum, 4))+rightBounds[split+1].Area()*float32(ceilDiv(rNum, 4)))/parentArea
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestBucket = split
			}
		}
	}

	if bestAxis < 0 {
		// No scorable axis (all centroids coincide). An even split
		// still applies when the leaf limit demands one.
		if node.num > bvhLeafMaxItems {
			b.buildNodeEqual(idx, depth)
		} else {
			b.buildNodeLeaf(idx)
		}
		return
	}
	if bestCost >= leafCost && node.num <= bvhLeafMaxItems {
		b.buildNodeLeaf(idx)
		return
	}

	axis := bestAxis
	extent := boundsMax[axis] - boundsMin[axis]
	scale := float32(bvhBuildSplits) / extent
	splitBucket := bestBucket

	items := b.items
	mid := partitionByPred(items, node.begin, node.num, func(it *buildItem) bool {
		c := it.bounds.Center()
		bi := int((c[axis] - boundsMin[axis]) * scale)
		if bi < 0 {
			bi = 0
		} else if bi >= bvhBuildSplits {
			bi = bvhBuildSplits - 1
		}
		return bi <= splitBucket
	})

	numLeft := mid - node.begin
	numRight := node.num - numLeft
	if numLeft == 0 || numRight == 0 {
		// Degenerate (all centroids in one bucket): fall back to a
		// forced median split rather than looping forever.
		b.buildNodeEqual(idx, depth)
		return
	}

	b.makeChildren(idx, node.begin, numLeft, numRight, depth)
}

// makeChildren appends two child nodes covering [begin,begin+numLeft)
// and [begin+numLeft,begin+numLeft+numRight), wires them into node idx,
// and recurses into both.
func (b *buildContext) makeChildren(idx int32, begin, numLeft, numRight, depth int) {
	var left, right buildNode
	left.begin, left.num = begin, numLeft
	left.bounds.Reset()
	for i := left.begin; i < left.begin+left.num; i++ {
		left.bounds.AddBounds(&b.items[i].bounds)
	}
	right.begin, right.num = begin+numLeft, numRight
	right.bounds.Reset()
	for i := right.begin; i < right.begin+right.num; i++ {
		right.bounds.AddBounds(&b.items[i].bounds)
	}

	li := int32(len(b.nodes))
	b.nodes = append(b.nodes, left)
	ri := int32(len(b.nodes))
	b.nodes = append(b.nodes, right)

	node := b.nodes[idx]
	node.isLeaf = false
	node.children = [2]int32{li, ri}
	b.nodes[idx] = node

	b.buildNodeRec(li, depth+1)
	b.buildNodeRec(ri, depth+1)
}

func largestAxis(b *linear.Bounds) int {
	ext := [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
	axis := 0
	if ext[1] > ext[axis] {
		axis = 1
	}
	if ext[2] > ext[axis] {
		axis = 2
	}
	return axis
}

func ceilDiv(n, d int) int { return (n + d - 1) / d }
