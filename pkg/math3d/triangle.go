package math3d

import "math"

// degenerateArea is the doubled screen area below which a triangle has no
// usable barycentric frame.
const degenerateArea = 1e-12

// EdgeFunction returns the doubled signed area of the triangle (a, b, p).
// It is positive when p lies counter-clockwise of a→b in a y-up frame.
func EdgeFunction(a, b, p Vec2) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// TriangleArea2 returns twice the signed area of (v0, v1, v2).
func TriangleArea2(v0, v1, v2 Vec2) float64 {
	return EdgeFunction(v0, v1, v2)
}

// BarycentricWeights returns the weights of (x, y) relative to the 2D
// projection of v0, v1, v2; the Z components are ignored. ok is false for
// zero-area triangles, in which case the weights are zero.
//
// Weights are invariant to winding, so both orientations report the same
// values for the same point.
func BarycentricWeights(x, y float64, v0, v1, v2 Vec3) (w Vec3, ok bool) {
	a, b, c := v0.XY(), v1.XY(), v2.XY()
	area := TriangleArea2(a, b, c)
	if math.Abs(area) < degenerateArea {
		return Vec3{}, false
	}
	p := Vec2{x, y}
	inv := 1 / area
	return Vec3{
		X: EdgeFunction(b, c, p) * inv,
		Y: EdgeFunction(c, a, p) * inv,
		Z: EdgeFunction(a, b, p) * inv,
	}, true
}

// InsideTriangle reports whether (x, y) lies strictly inside the triangle.
// Points on an edge are outside, so shared edges are never shaded twice.
func InsideTriangle(x, y float64, v0, v1, v2 Vec3) bool {
	w, ok := BarycentricWeights(x, y, v0, v1, v2)
	return ok && w.X > 0 && w.Y > 0 && w.Z > 0
}

// InterpolateZ returns the barycentric blend of the vertex Z values at (x, y).
// Degenerate triangles yield +Inf so the result never wins a depth test.
func InterpolateZ(x, y float64, v0, v1, v2 Vec3) float64 {
	w, ok := BarycentricWeights(x, y, v0, v1, v2)
	if !ok {
		return math.Inf(1)
	}
	return w.X*v0.Z + w.Y*v1.Z + w.Z*v2.Z
}
