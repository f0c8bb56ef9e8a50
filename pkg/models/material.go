package models

import (
	"image/color"
	"math"
)

// Color is a linear RGBA color with components in the 0-1 range.
type Color struct {
	R, G, B, A float64
}

// RGB creates an opaque color.
func RGB(r, g, b float64) Color {
	return Color{r, g, b, 1}
}

// Scale multiplies the color channels by s. Alpha is unchanged.
func (c Color) Scale(s float64) Color {
	return Color{c.R * s, c.G * s, c.B * s, c.A}
}

// Blend3 mixes three colors with barycentric weights w0, w1, w2.
func Blend3(c0, c1, c2 Color, w0, w1, w2 float64) Color {
	return Color{
		R: c0.R*w0 + c1.R*w1 + c2.R*w2,
		G: c0.G*w0 + c1.G*w1 + c2.G*w2,
		B: c0.B*w0 + c1.B*w1 + c2.B*w2,
		A: c0.A*w0 + c1.A*w1 + c2.A*w2,
	}
}

// Lerp interpolates between c and d by t.
func (c Color) Lerp(d Color, t float64) Color {
	return Blend3(c, d, Color{}, 1-t, t, 0)
}

// ToRGBA clamps the color and converts it to 8-bit channels.
func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{
		R: toByte(c.R),
		G: toByte(c.G),
		B: toByte(c.B),
		A: toByte(c.A),
	}
}

// FromRGBA converts an 8-bit color into the 0-1 range.
func FromRGBA(c color.RGBA) Color {
	return Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

func toByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}

// Material holds the Wavefront MTL surface parameters.
// Only Diffuse takes part in shading; the rest are carried for completeness.
type Material struct {
	Name             string
	Ambient          Color   // Ka
	Diffuse          Color   // Kd
	Specular         Color   // Ks
	Emissive         Color   // Ke
	SpecularExponent float64 // Ns
	OpticalDensity   float64 // Ni
	Dissolve         float64 // d
	Illum            int     // illum
}

// NoMaterial marks a face without a material.
const NoMaterial = -1

// DefaultMaterial is used for faces whose material index is NoMaterial.
func DefaultMaterial() Material {
	return Material{
		Name:           "default",
		Ambient:        RGB(0, 0, 0),
		Diffuse:        RGB(0.8, 0.8, 0.8),
		Specular:       RGB(0, 0, 0),
		Emissive:       RGB(0, 0, 0),
		OpticalDensity: 1,
		Dissolve:       1,
	}
}
