// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rtk

import (
	"math"

	"github.com/gviegas/rtk/linear"
)

// NewSphere returns a Primitive describing a sphere of the given radius
// centered at origin. The sphere is a unit sphere in its own local
// space; radius and origin are baked into the primitive's transform,
// onto which the optional outer transform is composed. object is
// reported back in Hit.Object on a hit.
func NewSphere(origin linear.V3, radius float32, transform *linear.Mat, object Object) Primitive {
	p := Primitive{
		Bounds:    linear.Bounds{Min: linear.V3{-1, -1, -1}, Max: linear.V3{1, 1, 1}},
		Object:    object,
		Intersect: intersectSphere,
	}
	p.Transform.Lin = linear.M3{{radius, 0, 0}, {0, radius, 0}, {0, 0, radius}}
	p.Transform.Trans = origin
	if transform != nil {
		p.Transform.MulLeft(transform)
	}
	return p
}

func intersectSphere(p *Primitive, ray *Ray, hit *Hit) bool {
	a := ray.Direction.Dot(&ray.Direction)
	b := 2 * ray.Origin.Dot(&ray.Direction)
	c := ray.Origin.Dot(&ray.Origin) - 1

	disc := b*b - 4*a*c
	if disc < 0 {
		return false
	}
	sq := float32(math.Sqrt(float64(disc)))
	denom := 0.5 / a
	t0 := (-b - sq) * denom
	t1 := (-b + sq) * denom
	t := t1
	if t0 > ray.MinT {
		t = t0
	}
	if !(t > ray.MinT && t < hit.T) {
		return false
	}

	var n linear.V3
	n.Mad(&ray.Direction, t, &ray.Origin)

	// Equirectangular parameterization with y as the polar axis and the
	// -z direction mapping to the center of the [0,1]² domain.
	phi := float32(math.Atan2(float64(n[0]), float64(-n[2])))
	theta := float32(math.Acos(float64(clamp32(n[1], -1, 1))))
	sinTheta := float32(math.Sqrt(float64(max32(0, 1-n[1]*n[1]))))

	const pi = math.Pi
	u := phi*(0.5/pi) + 0.5
	v := theta * (1 / pi)

	dpdu := linear.V3{-2 * pi * n[2], 0, 2 * pi * n[0]}
	var dpdv linear.V3
	if sinTheta > 0 {
		rcpSin := 1 / sinTheta
		dpdv = linear.V3{pi * n[1] * n[0] * rcpSin, -pi * sinTheta, -pi * n[1] * n[2] * rcpSin}
	} else {
		dpdv = linear.V3{pi * n[1], 0, 0}
	}

	hit.T = t
	hit.Geom = Surface{U: u, V: v, Normal: n, DpDu: dpdu, DpDv: dpdv}
	hit.Interp = hit.Geom
	hit.User = p.Object.User
	hit.Object = p.Object
	hit.NumParents = 0
	hit.GeometryKind = HitSphere
	return true
}

// NewPlane returns a Primitive describing the plane with the given
// normal at signed distance d from the origin. The plane is x == 0 in
// its own local space, with the local y and z axes reported as u and v;
// the constructor derives an orthonormal frame from normal and bakes it,
// together with d, into the primitive's transform.
func NewPlane(normal linear.V3, d float32, transform *linear.Mat, object Object) Primitive {
	inf := float32(math.Inf(1))
	p := Primitive{
		Bounds:    linear.Bounds{Min: linear.V3{0, -inf, -inf}, Max: linear.V3{0, inf, inf}},
		Object:    object,
		Intersect: intersectPlane,
	}

	normal.Norm(&normal)
	right := linear.V3{1, 0, 0}
	if abs32(normal[0]) >= 0.5 {
		right = linear.V3{0, 1, 0}
	}
	var up linear.V3
	up.Cross(&normal, &right)
	up.Norm(&up)
	right.Cross(&normal, &up)
	right.Norm(&right)

	p.Transform.Lin = linear.M3{normal, up, right}
	p.Transform.Trans.Scale(d, &normal)
	if transform != nil {
		p.Transform.MulLeft(transform)
	}
	return p
}

func intersectPlane(p *Primitive, ray *Ray, hit *Hit) bool {
	if ray.Direction[0] == 0 {
		return false
	}
	t := -ray.Origin[0] / ray.Direction[0]
	if !(t > ray.MinT && t < hit.T) {
		return false
	}

	hit.T = t
	hit.Geom = Surface{
		U:      ray.Origin[1] + ray.Direction[1]*t,
		V:      ray.Origin[2] + ray.Direction[2]*t,
		Normal: linear.V3{1, 0, 0},
		DpDu:   linear.V3{0, 1, 0},
		DpDv:   linear.V3{0, 0, 1},
	}
	hit.Interp = hit.Geom
	hit.User = p.Object.User
	hit.Object = p.Object
	hit.NumParents = 0
	hit.GeometryKind = HitPlane
	return true
}

// NewSubScene returns a Primitive that recurses Raytrace into sub
// whenever the outer walk reaches it, so that scenes can be nested.
// object is pushed onto Hit.ParentObjects (nearest parent first, capped
// at HitMaxParents) for every hit found inside sub.
func NewSubScene(sub *Scene, transform *linear.Mat, object Object) Primitive {
	p := Primitive{
		Bounds:    sub.Bounds(),
		Object:    object,
		User:      sub,
		Intersect: intersectSubScene,
	}
	p.Transform.I()
	if transform != nil {
		p.Transform = *transform
	}
	return p
}

func intersectSubScene(p *Primitive, ray *Ray, hit *Hit) bool {
	sub := p.User.(*Scene)

	shear := computeShear(&ray.Direction)
	var scratch hitScratch
	if !sub.intersect(ray, &shear, hit, &scratch) {
		return false
	}
	if scratch.isTriangle {
		interpolateTriangle(sub, hit, scratch.meshIx)
	} else {
		hit.Interp.Normal.Norm(&hit.Interp.Normal)
	}

	if hit.NumParents < HitMaxParents {
		hit.ParentObjects[hit.NumParents] = p.Object
		hit.NumParents++
	}
	return true
}

func clamp32(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
