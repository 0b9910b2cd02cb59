// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package rtk implements a compact acceleration-structure kernel for ray
// tracing: a top-down, surface-area-heuristic BVH builder that produces a
// cache-friendly wide (4-child) tree, and a traversal engine that walks it
// to resolve ray/scene intersections against triangle meshes and
// user-supplied primitives.
package rtk

import "github.com/gviegas/rtk/linear"

// HitMaxParents bounds the number of sub-scene objects recorded in a Hit
// when the ray passes through nested primitive scenes.
const HitMaxParents = 4

// GeometryKind identifies what kind of geometry a Hit struck.
type GeometryKind int32

// Geometry kinds. Triangle hits additionally carry the owning mesh's
// object tag; Sphere and Plane are produced by the builtin primitive
// constructors in primitives.go. A user-supplied primitive may report any
// non-negative value of its own choosing in Hit.GeometryKind and is otherwise
// unconstrained (rtk does not interpret it).
const (
	HitTriangle GeometryKind = -1
	HitSphere   GeometryKind = -2
	HitPlane    GeometryKind = -3
)

// Object tags a piece of scene geometry with caller-defined identity: an
// arbitrary User value plus an Index, both set by the caller when
// describing the scene and later reported back in Hit untouched.
type Object struct {
	User  any
	Index int
}

// Ray is a ray to intersect against a Scene.
type Ray struct {
	Origin, Direction linear.V3

	// MinT is the minimum distance along Direction to consider; hits
	// closer than this are ignored.
	MinT float32
}

// Surface carries the shading-relevant differential geometry at a point:
// parametric coordinates, a normal and the two partial derivatives of
// position with respect to the parametric coordinates.
type Surface struct {
	U, V               float32
	Normal, DpDu, DpDv linear.V3
}

// Hit describes the closest intersection of a Ray with a Scene.
type Hit struct {
	T float32

	// Geom is the geometric surface at the hit (flat per-triangle normal,
	// or the primitive's own differential geometry). Interp is the
	// shading surface after vertex-attribute interpolation (smooth
	// normals when the mesh carries a normal attribute; otherwise equal
	// to Geom).
	Geom, Interp Surface

	// User is a convenience pass-through for the struct referenced by
	// Object.User, pre-fetched by Raytrace to save a second lookup.
	User any

	Object Object

	// VertexIndex and VertexPos are the mesh-space vertex indices and
	// world-space positions of the hit triangle's three corners. Unset
	// (zero value) for primitive hits.
	VertexIndex [3]uint32
	VertexPos   [3]linear.V3

	// ParentObjects and NumParents record the chain of sub-scene
	// primitives a ray passed through to reach this hit, nearest-parent
	// first, capped at HitMaxParents.
	ParentObjects [HitMaxParents]Object
	NumParents    int

	GeometryKind GeometryKind
}

// MeshDesc describes one triangle mesh contributed to a scene.
type MeshDesc struct {
	// Vertices is the mesh's vertex positions in mesh-local space.
	Vertices []linear.V3

	// UVs and Normals are optional per-vertex attributes, indexed in
	// parallel with Vertices. Either may be nil.
	UVs     []linear.V2
	Normals []linear.V3

	// Indices is the triangle index stream, three entries per face,
	// indexing into Vertices/UVs/Normals.
	Indices []uint32

	// Transform maps mesh-local space to scene space.
	Transform linear.Mat

	Object Object
}

// NumTriangles returns the number of triangles described by m.
func (m *MeshDesc) NumTriangles() int { return len(m.Indices) / 3 }

// TriangleDesc describes one standalone triangle, given directly in
// scene-space coordinates (no mesh, no transform).
type TriangleDesc struct {
	V      [3]linear.V3
	Object Object
}

// IntersectFn is a user-supplied primitive intersection callback. It
// receives the ray already transformed into the primitive's local space.
// It must return true and fill in hit only on a strictly closer
// intersection than hit.T's incoming value; it must never advance hit.T
// unless it is also returning true, and must leave hit untouched when
// returning false.
type IntersectFn func(p *Primitive, ray *Ray, hit *Hit) bool

// Primitive describes one user-defined piece of geometry: a local-space
// bounding box, an intersection callback, and a local-to-scene transform.
// The builtin constructors NewSphere, NewPlane and NewSubScene populate
// Bounds, Intersect and User for common cases.
type Primitive struct {
	// Bounds is the primitive's AABB in its own local space.
	Bounds linear.Bounds

	Intersect IntersectFn
	User      any

	// Transform maps the primitive's local space to scene space.
	Transform linear.Mat

	Object Object
}

// SceneDesc is the flat, caller-owned description consumed by Build.
type SceneDesc struct {
	Meshes     []MeshDesc
	Triangles  []TriangleDesc
	Primitives []Primitive
}
