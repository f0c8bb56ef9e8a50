package render

import (
	"image/color"
	"math"

	"github.com/taigrr/softrast/pkg/math3d"
	"github.com/taigrr/softrast/pkg/models"
)

// Wireframe draws line overlays without depth testing.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a wireframe renderer for cam drawing into fb.
func NewWireframe(cam *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{camera: cam, fb: fb}
}

// DrawLine3D draws a world-space segment. The part behind the near plane is
// cut away first.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, c color.RGBA) {
	view := w.camera.ViewMatrix()
	a, b, ok := clipSegmentNear(view.MulVec3(p1), view.MulVec3(p2), w.camera.NearPlane())
	if !ok {
		return
	}
	x1, y1, ok1 := w.project(a)
	x2, y2, ok2 := w.project(b)
	if !ok1 || !ok2 {
		return
	}
	w.fb.DrawLine(x1, y1, x2, y2, c)
}

// maxPixel bounds projected coordinates so far-off endpoints cannot make
// the line walk forever.
const maxPixel = 1 << 15

func (w *Wireframe) project(v math3d.Vec3) (int, int, bool) {
	ndc := w.camera.ProjectionMatrix().MulVec4(math3d.Point4(v)).PerspectiveDivide()
	s := math3d.ViewportToScreen(ndc, w.fb.Width, w.fb.Height)
	if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.Abs(s.X) > maxPixel || math.Abs(s.Y) > maxPixel {
		return 0, 0, false
	}
	return int(math.Floor(s.X)), int(math.Floor(s.Y)), true
}

// DrawMesh draws every face edge of mesh once.
func (w *Wireframe) DrawMesh(mesh *models.Mesh, c color.RGBA) {
	seen := make(map[[2]int]struct{}, len(mesh.Faces)*3/2)
	for _, f := range mesh.Faces {
		for k := range 3 {
			a, b := f.V[k], f.V[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			if _, ok := seen[[2]int{a, b}]; ok {
				continue
			}
			seen[[2]int{a, b}] = struct{}{}
			w.DrawLine3D(mesh.Vertices[a], mesh.Vertices[b], c)
		}
	}
}

// DrawBox draws the twelve edges of an axis-aligned box.
func (w *Wireframe) DrawBox(box AABB, c color.RGBA) {
	var v [8]math3d.Vec3
	for i := range v {
		v[i] = math3d.V3(
			selectComponent(i&1 != 0, box.Max.X, box.Min.X),
			selectComponent(i&2 != 0, box.Max.Y, box.Min.Y),
			selectComponent(i&4 != 0, box.Max.Z, box.Min.Z),
		)
	}
	for i := range v {
		for _, bit := range [3]int{1, 2, 4} {
			if i&bit == 0 {
				w.DrawLine3D(v[i], v[i|bit], c)
			}
		}
	}
}

// DrawAxes draws the X, Y and Z axes from origin in red, green and blue.
func (w *Wireframe) DrawAxes(origin math3d.Vec3, length float64) {
	w.DrawLine3D(origin, origin.Add(math3d.V3(length, 0, 0)), ColorRed)
	w.DrawLine3D(origin, origin.Add(math3d.V3(0, length, 0)), ColorGreen)
	w.DrawLine3D(origin, origin.Add(math3d.V3(0, 0, length)), ColorBlue)
}
