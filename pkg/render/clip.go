package render

import (
	"github.com/taigrr/softrast/pkg/math3d"
	"github.com/taigrr/softrast/pkg/models"
)

// clipVertex is a view-space corner with its shaded color.
type clipVertex struct {
	pos   math3d.Vec3
	color models.Color
}

func (a clipVertex) lerp(b clipVertex, t float64) clipVertex {
	return clipVertex{pos: a.pos.Lerp(b.pos, t), color: a.color.Lerp(b.color, t)}
}

// clipNear clips a convex view-space polygon against the plane z = -near,
// keeping the part in front of the camera (z <= -near). It appends the
// result to out and reports whether any vertex was cut away.
//
// A triangle yields 0, 3 or 4 vertices.
func clipNear(in []clipVertex, near float64, out []clipVertex) ([]clipVertex, bool) {
	out = out[:0]
	if len(in) == 0 {
		return out, false
	}
	plane := -near
	inside := func(v clipVertex) bool { return v.pos.Z <= plane }

	cut := false
	prev := in[len(in)-1]
	prevIn := inside(prev)
	for _, cur := range in {
		curIn := inside(cur)
		if curIn != prevIn {
			t := (plane - prev.pos.Z) / (cur.pos.Z - prev.pos.Z)
			out = append(out, prev.lerp(cur, t))
		}
		if curIn {
			out = append(out, cur)
		} else {
			cut = true
		}
		prev, prevIn = cur, curIn
	}
	return out, cut
}

// clipSegmentNear trims the segment a-b to the part in front of z = -near.
// ok is false when nothing remains.
func clipSegmentNear(a, b math3d.Vec3, near float64) (math3d.Vec3, math3d.Vec3, bool) {
	plane := -near
	aIn, bIn := a.Z <= plane, b.Z <= plane
	switch {
	case aIn && bIn:
		return a, b, true
	case !aIn && !bIn:
		return a, b, false
	}
	t := (plane - a.Z) / (b.Z - a.Z)
	p := a.Lerp(b, t)
	if aIn {
		return a, p, true
	}
	return p, b, true
}
