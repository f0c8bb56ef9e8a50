package render

import (
	"github.com/taigrr/softrast/pkg/math3d"
)

// Plane represents a plane in 3D space using the equation: Ax + By + Cz + D = 0
// where (A, B, C) is the normal and D is the distance from origin.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

// PlaneFromPoints returns the plane through a, b and c with normal
// (b-a)×(c-a), normalized.
func PlaneFromPoints(a, b, c math3d.Vec3) Plane {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	return Plane{Normal: n, D: -n.Dot(a)}
}

// Normalize normalizes the plane equation so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1.0 / l)
	p.D /= l
}

// Flip reverses the side the plane faces.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Negate(), D: -p.D}
}

// DistanceToPoint returns the signed distance from the plane to a point.
// Positive = in front (same side as normal), negative = behind.
func (p Plane) DistanceToPoint(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum is the camera's viewing volume: its eight world-space corners and
// the six planes bounding them.
// Planes are ordered: Left, Right, Bottom, Top, Near, Far.
// Each plane's normal points inward (toward the center of the frustum).
type Frustum struct {
	// Corners holds the near corners then the far corners, each ordered
	// right-bottom, right-top, left-top, left-bottom.
	Corners [8]math3d.Vec3
	Planes  [6]Plane
}

// FrustumPlane indices for clarity.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// NewFrustumFromCorners builds the six planes from eight corners in the order
// Camera produces them. Each plane is oriented toward the centroid of the
// corners, so corner winding does not matter.
func NewFrustumFromCorners(corners [8]math3d.Vec3) Frustum {
	f := Frustum{Corners: corners}
	n0, n1, n2, n3 := corners[0], corners[1], corners[2], corners[3]
	f0, f1, f2, f3 := corners[4], corners[5], corners[6], corners[7]

	f.Planes[FrustumNear] = PlaneFromPoints(n0, n1, n2)
	f.Planes[FrustumFar] = PlaneFromPoints(f0, f1, f2)
	f.Planes[FrustumRight] = PlaneFromPoints(n0, n1, f1)
	f.Planes[FrustumLeft] = PlaneFromPoints(n2, n3, f3)
	f.Planes[FrustumTop] = PlaneFromPoints(n1, n2, f2)
	f.Planes[FrustumBottom] = PlaneFromPoints(n3, n0, f0)

	center := f.Center()
	for i := range f.Planes {
		if f.Planes[i].DistanceToPoint(center) < 0 {
			f.Planes[i] = f.Planes[i].Flip()
		}
	}
	return f
}

// Center returns the mean of the eight corners.
func (f Frustum) Center() math3d.Vec3 {
	var sum math3d.Vec3
	for _, c := range f.Corners {
		sum = sum.Add(c)
	}
	return sum.Scale(1.0 / 8)
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// NewAABB creates an AABB from min and max points.
func NewAABB(lo, hi math3d.Vec3) AABB {
	return AABB{Min: lo, Max: hi}
}

// IntersectAABB tests if the AABB intersects or is inside the frustum.
// Returns true if any part of the AABB may be visible.
// Uses the "positive vertex" optimization for faster rejection.
func (f Frustum) IntersectAABB(box AABB) bool {
	for i := range f.Planes {
		plane := f.Planes[i]

		// The corner furthest along the normal; if it is outside, the whole box is.
		pVertex := math3d.V3(
			selectComponent(plane.Normal.X >= 0, box.Max.X, box.Min.X),
			selectComponent(plane.Normal.Y >= 0, box.Max.Y, box.Min.Y),
			selectComponent(plane.Normal.Z >= 0, box.Max.Z, box.Min.Z),
		)
		if plane.DistanceToPoint(pVertex) < 0 {
			return false
		}
	}
	return true
}

// ContainsAABB tests if the AABB is completely inside the frustum.
func (f Frustum) ContainsAABB(box AABB) bool {
	for i := range f.Planes {
		plane := f.Planes[i]

		nVertex := math3d.V3(
			selectComponent(plane.Normal.X >= 0, box.Min.X, box.Max.X),
			selectComponent(plane.Normal.Y >= 0, box.Min.Y, box.Max.Y),
			selectComponent(plane.Normal.Z >= 0, box.Min.Z, box.Max.Z),
		)
		if plane.DistanceToPoint(nVertex) < 0 {
			return false
		}
	}
	return true
}

// ContainsPoint tests if a point is inside the frustum.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

func selectComponent(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
