// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

// bit4Tab maps a 4-bit "which lanes passed the slab test" mask to the
// number of set lanes and their bit positions in ascending order. This
// mirrors the reference kernel's lookup table, which exists there to
// avoid a scalar popcount/scan in the SIMD path; here it simply keeps
// the portable lane-processing loop branch-free over mask bits.
type bit4Entry struct {
	count int
	lanes [4]int
}

var bit4Tab [16]bit4Entry

func init() {
	for mask := 0; mask < 16; mask++ {
		var e bit4Entry
		for lane := 0; lane < 4; lane++ {
			if mask&(1<<lane) != 0 {
				e.lanes[e.count] = lane
				e.count++
			}
		}
		bit4Tab[mask] = e
	}
}

// hitScratch carries traversal-internal bookkeeping that Raytrace needs
// after the walk completes (to run post-hit attribute interpolation) but
// that has no place in the public Hit struct.
type hitScratch struct {
	isTriangle bool
	meshIx     int32
}

func max4(a, b, c, d float32) float32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	if d > m {
		m = d
	}
	return m
}

func min4(a, b, c, d float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	if d < m {
		m = d
	}
	return m
}

// sortLanesByT sorts the first n entries of lanes ascending by t[lane].
// n is always small (<= 4), so a plain insertion sort is both correct
// and cheap — the reference kernel's SSE sort-4 network exists only to
// avoid scalar branches, not for asymptotic reasons.
func sortLanesByT(lanes []int, t *[4]float32) {
	for i := 1; i < len(lanes); i++ {
		l := lanes[i]
		j := i - 1
		for j >= 0 && t[lanes[j]] > t[l] {
			lanes[j+1] = lanes[j]
			j--
		}
		lanes[j+1] = l
	}
}

// intersect walks the wide BVH looking for the closest intersection
// along ray closer than the current hit.T, updating hit in place.
// shear is the ray's precomputed watertight shear-space setup (see
// query.go). It returns whether hit was improved.
func (s *Scene) intersect(ray *Ray, shear *shearSetup, hit *Hit, scratch *hitScratch) bool {
	if len(s.nodes) == 0 {
		return false
	}

	var signX, signY, signZ int
	if ray.Direction[0] < 0 {
		signX = 1
	}
	if ray.Direction[1] < 0 {
		signY = 1
	}
	if ray.Direction[2] < 0 {
		signZ = 1
	}
	rcpX := 1 / ray.Direction[0]
	rcpY := 1 / ray.Direction[1]
	rcpZ := 1 / ray.Direction[2]

	// Each visited node pushes at most 3 frames and the wide tree is at
	// most bvhMaxDepth/2 levels deep, so 2*bvhMaxDepth frames suffice.
	var tStack [2 * bvhMaxDepth]float32
	var refStack [2 * bvhMaxDepth]childRef
	sp := 0

	topT := float32(0)
	topRef := childRef{kind: childNode, idx: 0}
	hitAny := false

	pop := func() bool {
		if sp == 0 {
			return false
		}
		sp--
		topT = tStack[sp]
		topRef = refStack[sp]
		return true
	}

	for {
		if topT >= hit.T {
			if !pop() {
				break
			}
			continue
		}

		if topRef.kind == childLeaf {
			if topRef.idx != 0 {
				if s.intersectLeaf(&s.leaves[topRef.idx], ray, shear, hit, scratch) {
					hitAny = true
				}
			}
			if !pop() {
				break
			}
			continue
		}

		node := &s.nodes[topRef.idx]
		var tmin, tmax [4]float32
		for lane := 0; lane < 4; lane++ {
			minX, maxX := node.boundsX[signX][lane], node.boundsX[1-signX][lane]
			minY, maxY := node.boundsY[signY][lane], node.boundsY[1-signY][lane]
			minZ, maxZ := node.boundsZ[signZ][lane], node.boundsZ[1-signZ][lane]
			tx0 := (minX - ray.Origin[0]) * rcpX
			tx1 := (maxX - ray.Origin[0]) * rcpX
			ty0 := (minY - ray.Origin[1]) * rcpY
			ty1 := (maxY - ray.Origin[1]) * rcpY
			tz0 := (minZ - ray.Origin[2]) * rcpZ
			tz1 := (maxZ - ray.Origin[2]) * rcpZ
			tmin[lane] = max4(tx0, ty0, tz0, ray.MinT)
			tmax[lane] = min4(tx1, ty1, tz1, hit.T)
		}

		mask := 0
		for lane := 0; lane < 4; lane++ {
			if tmin[lane] <= tmax[lane] {
				mask |= 1 << lane
			}
		}

		entry := &bit4Tab[mask]
		switch entry.count {
		case 0:
			if !pop() {
				return hitAny
			}
		case 1:
			l := entry.lanes[0]
			topT = tmin[l]
			topRef = node.child[l]
		default:
			var lanes [4]int
			copy(lanes[:entry.count], entry.lanes[:entry.count])
			sortLanesByT(lanes[:entry.count], &tmin)
			for i := entry.count - 1; i >= 1; i-- {
				l := lanes[i]
				tStack[sp] = tmin[l]
				refStack[sp] = node.child[l]
				sp++
			}
			topT = tmin[lanes[0]]
			topRef = node.child[lanes[0]]
		}
	}

	return hitAny
}
