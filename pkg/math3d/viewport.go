package math3d

// ViewportToScreen maps NDC x,y in [-1, 1] to pixel coordinates with the
// origin at the top-left corner.
func ViewportToScreen(ndc Vec3, width, height int) Vec2 {
	return Vec2{
		X: (ndc.X + 1) * float64(width) / 2,
		Y: (1 - ndc.Y) * float64(height) / 2,
	}
}

// ScreenToNDC inverts ViewportToScreen.
func ScreenToNDC(x, y float64, width, height int) Vec2 {
	return Vec2{
		X: 2*x/float64(width) - 1,
		Y: 1 - 2*y/float64(height),
	}
}
