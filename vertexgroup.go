// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

import (
	"sort"

	"github.com/gviegas/rtk/linear"
)

// vertexID packs a (mesh, vertex) pair so vertex sets can be kept as
// plain sorted slices.
type vertexID uint64

func packVID(meshIx int32, vert uint32) vertexID {
	return vertexID(uint32(meshIx))<<32 | vertexID(vert)
}

func unpackVID(id vertexID) (meshIx int32, vert uint32) {
	return int32(uint32(id >> 32)), uint32(id)
}

// vertexSet is a sorted, duplicate-free collection of vertex IDs bounded
// at bvhGroupMaxVerts entries — the open (not yet committed) state of a
// subtree during vertex-group closure.
type vertexSet struct {
	ids []vertexID
}

func (s *vertexSet) insertSorted(id vertexID) {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	if i < len(s.ids) && s.ids[i] == id {
		return
	}
	s.ids = append(s.ids, 0)
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = id
}

func (s *vertexSet) localIndex(id vertexID) int32 {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	if i < len(s.ids) && s.ids[i] == id {
		return int32(i)
	}
	return -1
}

// mergeSets returns the sorted union of a and b, or ok=false if it would
// exceed bvhGroupMaxVerts entries.
func mergeSets(a, b *vertexSet) (merged *vertexSet, ok bool) {
	out := make([]vertexID, 0, len(a.ids)+len(b.ids))
	i, j := 0, 0
	for i < len(a.ids) && j < len(b.ids) {
		if len(out) > bvhGroupMaxVerts {
			return nil, false
		}
		switch {
		case a.ids[i] < b.ids[j]:
			out = append(out, a.ids[i])
			i++
		case a.ids[i] > b.ids[j]:
			out = append(out, b.ids[j])
			j++
		default:
			out = append(out, a.ids[i])
			i++
			j++
		}
	}
	out = append(out, a.ids[i:]...)
	out = append(out, b.ids[j:]...)
	if len(out) > bvhGroupMaxVerts {
		return nil, false
	}
	return &vertexSet{ids: out}, true
}

// vertexPos resolves the world-space position of a build-item vertex ID.
// Mesh-sourced positions carry the mesh transform pre-applied (matching
// extractItems); standalone-triangle positions are their own scene-space
// values.
func (b *buildContext) vertexPos(meshIx int32, vert uint32) linear.V3 {
	nm := len(b.desc.Meshes)
	if int(meshIx) < nm {
		m := &b.desc.Meshes[meshIx]
		p := m.Vertices[vert]
		if !m.Transform.IsIdentity() {
			m.Transform.MulPos(&p, &p)
		}
		return p
	}
	tri := &b.desc.Triangles[int(meshIx)-nm]
	return tri.V[vert]
}

// closeVertexGroups runs the post-order closure walk over the whole
// build tree and commits whatever remains open at the root.
func (b *buildContext) closeVertexGroups() {
	if len(b.nodes) == 0 {
		return
	}
	b.visitVG(0)
	root := b.nodes[0]
	if root.vgOpen && !root.vgClosed {
		b.commitGroup(root.vgMembers, root.vgSet)
	}
}

// visitVG processes node idx post-order. On return, the node carries
// either a pending (open) set plus the list of leaf members it covers,
// or nothing (already resolved by a commit lower in the tree).
func (b *buildContext) visitVG(idx int32) {
	node := b.nodes[idx]

	if node.isLeaf {
		set := &vertexSet{}
		for i := node.begin; i < node.begin+node.num; i++ {
			it := &b.items[i]
			if it.kind != itemTriangle {
				continue
			}
			set.insertSorted(packVID(it.meshIx, it.vertex[0]))
			set.insertSorted(packVID(it.meshIx, it.vertex[1]))
			set.insertSorted(packVID(it.meshIx, it.vertex[2]))
		}
		node.vgOpen = true
		node.vgSet = set
		node.vgMembers = []int32{idx}
		b.nodes[idx] = node
		return
	}

	li, ri := node.children[0], node.children[1]
	b.visitVG(li)
	b.visitVG(ri)
	left := b.nodes[li]
	right := b.nodes[ri]

	switch {
	case left.vgOpen && right.vgOpen:
		if merged, ok := mergeSets(left.vgSet, right.vgSet); ok {
			node.vgOpen = true
			node.vgSet = merged
			node.vgMembers = append(append([]int32{}, left.vgMembers...), right.vgMembers...)
			b.nodes[idx] = node
			return
		}
		if len(left.vgSet.ids) >= len(right.vgSet.ids) {
			b.commitGroup(left.vgMembers, left.vgSet)
			node.vgOpen = true
			node.vgSet = right.vgSet
			node.vgMembers = right.vgMembers
		} else {
			b.commitGroup(right.vgMembers, right.vgSet)
			node.vgOpen = true
			node.vgSet = left.vgSet
			node.vgMembers = left.vgMembers
		}
	case left.vgOpen:
		node.vgOpen = true
		node.vgSet = left.vgSet
		node.vgMembers = left.vgMembers
	case right.vgOpen:
		node.vgOpen = true
		node.vgSet = right.vgSet
		node.vgMembers = right.vgMembers
	default:
		// Both children were already committed by a merge failure
		// further down; nothing remains pending at this node.
	}
	b.nodes[idx] = node
}

// commitGroup finalizes set as a new shared vertex group used by every
// leaf node index in members, rewriting each member leaf's triangle
// items to reference local positions within it.
func (b *buildContext) commitGroup(members []int32, set *vertexSet) {
	groupIx := int32(len(b.closedGroups))

	entries := make([]vertexGroupEntry, len(set.ids))
	for i, id := range set.ids {
		meshIx, vert := unpackVID(id)
		entries[i] = vertexGroupEntry{
			Pos:       b.vertexPos(meshIx, vert),
			SrcVertex: vert,
			SrcMesh:   meshIx,
		}
	}
	b.closedGroups = append(b.closedGroups, closedGroup{entries: entries, members: members})

	for _, leafIdx := range members {
		node := b.nodes[leafIdx]
		node.vgClosed = true
		node.vgGroupIx = groupIx
		node.vgOpen = false
		b.nodes[leafIdx] = node

		for i := node.begin; i < node.begin+node.num; i++ {
			it := &b.items[i]
			if it.kind != itemTriangle {
				continue
			}
			for c := 0; c < 3; c++ {
				id := packVID(it.meshIx, it.vertex[c])
				it.vgIdx[c] = set.localIndex(id)
			}
		}
	}
}
