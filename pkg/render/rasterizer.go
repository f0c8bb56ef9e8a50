package render

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/taigrr/softrast/pkg/math3d"
	"github.com/taigrr/softrast/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ShadingMode selects how face colors are computed.
type ShadingMode int

const (
	// Flat lights each face once from the normal of its first corner.
	Flat ShadingMode = iota
	// Gouraud lights each corner from its averaged vertex normal and blends
	// the colors across the face.
	Gouraud
)

func (m ShadingMode) String() string {
	switch m {
	case Flat:
		return "flat"
	case Gouraud:
		return "gouraud"
	}
	return fmt.Sprintf("ShadingMode(%d)", int(m))
}

// ParseShadingMode parses "flat" or "gouraud", case-insensitively.
func ParseShadingMode(s string) (ShadingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat":
		return Flat, nil
	case "gouraud", "smooth":
		return Gouraud, nil
	}
	return 0, fmt.Errorf("unknown shading mode %q", s)
}

// FrameStats counts what happened to the faces of the last render call.
type FrameStats struct {
	Faces      int  // faces considered
	Drawn      int  // screen triangles sent to the pixel loop
	Clipped    int  // faces cut or dropped at the near plane
	Culled     int  // back faces skipped
	Degenerate int  // zero-area screen triangles skipped
	Pixels     int  // pixels that passed the depth test
	MeshCulled bool // whole mesh outside the frustum
	MeshInside bool // whole mesh inside the frustum, near plane checks skipped
}

// Rasterizer draws meshes into a framebuffer with a depth buffer.
//
// A Rasterizer is not safe for concurrent use; RenderParallel manages its own
// goroutines.
type Rasterizer struct {
	fb    *Framebuffer
	depth []float64 // linear view distance, row-major

	clipNear      bool
	cullBackfaces bool
	log           *zap.Logger

	stats FrameStats

	// reused between frames
	tris []screenTriangle
	poly []clipVertex
	cut  []clipVertex
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithLogger sets the logger used for per-frame debug output.
func WithLogger(log *zap.Logger) Option {
	return func(r *Rasterizer) {
		if log != nil {
			r.log = log
		}
	}
}

// WithNearClipping toggles clipping against the near plane. It is on by
// default; when off, faces with any corner at or behind the camera plane
// are dropped.
func WithNearClipping(on bool) Option {
	return func(r *Rasterizer) { r.clipNear = on }
}

// WithBackfaceCulling toggles skipping faces that are clockwise on screen.
// Front faces are counter-clockwise in world space. Off by default.
func WithBackfaceCulling(on bool) Option {
	return func(r *Rasterizer) { r.cullBackfaces = on }
}

// NewRasterizer creates a rasterizer drawing into fb.
func NewRasterizer(fb *Framebuffer, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		fb:       fb,
		clipNear: true,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Resize()
	return r
}

// Resize reallocates the depth buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	r.depth = make([]float64, r.fb.Width*r.fb.Height)
	r.ClearDepth()
}

// Framebuffer returns the target framebuffer.
func (r *Rasterizer) Framebuffer() *Framebuffer { return r.fb }

// Stats returns the counters of the last render call.
func (r *Rasterizer) Stats() FrameStats { return r.stats }

// Clear fills the framebuffer with bg and resets the depth buffer.
func (r *Rasterizer) Clear(bg models.Color) {
	r.fb.Clear(bg.ToRGBA())
	r.ClearDepth()
}

// ClearDepth sets every depth cell to the farthest representable value.
func (r *Rasterizer) ClearDepth() {
	n := len(r.depth)
	if n == 0 {
		return
	}
	r.depth[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.depth[i:], r.depth[:i])
	}
}

// Depth returns the stored depth at (x, y), or math.MaxFloat64 outside the
// framebuffer.
func (r *Rasterizer) Depth(x, y int) float64 {
	if x < 0 || x >= r.fb.Width || y < 0 || y >= r.fb.Height {
		return math.MaxFloat64
	}
	return r.depth[y*r.fb.Width+x]
}

// RenderFlat renders mesh with flat shading.
func (r *Rasterizer) RenderFlat(cam *Camera, mesh *models.Mesh, light math3d.Vec3) error {
	return r.Render(cam, mesh, light, Flat)
}

// RenderGouraud renders mesh with Gouraud shading.
func (r *Rasterizer) RenderGouraud(cam *Camera, mesh *models.Mesh, light math3d.Vec3) error {
	return r.Render(cam, mesh, light, Gouraud)
}

// Render draws mesh as seen by cam, lit by a directional light pointing
// toward the light source. It does not clear the buffers, so several meshes
// can share a frame. A stale camera is updated first.
func (r *Rasterizer) Render(cam *Camera, mesh *models.Mesh, light math3d.Vec3, mode ShadingMode) error {
	if err := r.prepare(cam, mesh, light, mode); err != nil {
		return err
	}
	r.stats.Pixels = r.fill(0, r.fb.Height)
	r.logFrame(mesh, mode, 1)
	return nil
}

// RenderParallel is Render with the pixel work split into horizontal bands,
// one goroutine per band. Triangles are set up once; each band draws them in
// mesh order, so the output matches Render exactly. workers <= 0 uses
// GOMAXPROCS.
func (r *Rasterizer) RenderParallel(ctx context.Context, cam *Camera, mesh *models.Mesh, light math3d.Vec3, mode ShadingMode, workers int) error {
	if err := r.prepare(cam, mesh, light, mode); err != nil {
		return err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	h := r.fb.Height
	workers = max(min(workers, h), 1)
	band := (h + workers - 1) / workers

	pixels := make([]int, workers)
	eg, ctx := errgroup.WithContext(ctx)
	for i := range workers {
		y0 := i * band
		y1 := min(y0+band, h)
		if y0 >= y1 {
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pixels[i] = r.fill(y0, y1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("render %s: %w", mesh.Name, err)
	}
	for _, n := range pixels {
		r.stats.Pixels += n
	}
	r.logFrame(mesh, mode, workers)
	return nil
}

func (r *Rasterizer) logFrame(mesh *models.Mesh, mode ShadingMode, workers int) {
	s := r.stats
	r.log.Debug("frame rendered",
		zap.String("mesh", mesh.Name),
		zap.Stringer("mode", mode),
		zap.Int("workers", workers),
		zap.Int("faces", s.Faces),
		zap.Int("drawn", s.Drawn),
		zap.Int("clipped", s.Clipped),
		zap.Int("culled", s.Culled),
		zap.Int("degenerate", s.Degenerate),
		zap.Int("pixels", s.Pixels),
		zap.Bool("mesh_culled", s.MeshCulled),
		zap.Bool("mesh_inside", s.MeshInside),
	)
}

// screenTriangle is a triangle ready for the pixel loop: X and Y in pixels,
// Z holding linear depth.
type screenTriangle struct {
	v          [3]math3d.Vec3
	c          [3]models.Color
	flat       bool
	minX, maxX int
	minY, maxY int
}

// prepare runs the per-face stage: lighting, view transform, near clipping,
// projection, viewport mapping and culling. It fills r.tris.
func (r *Rasterizer) prepare(cam *Camera, mesh *models.Mesh, light math3d.Vec3, mode ShadingMode) error {
	if cam.Stale() {
		if err := cam.UpdateViews(); err != nil {
			return fmt.Errorf("render %s: %w", mesh.Name, err)
		}
	}
	r.stats = FrameStats{Faces: len(mesh.Faces)}
	r.tris = r.tris[:0]
	if len(mesh.Faces) == 0 || len(r.depth) == 0 {
		return nil
	}

	box := NewAABB(mesh.Bounds())
	if !cam.Frustum().IntersectAABB(box) {
		r.stats.MeshCulled = true
		return nil
	}
	r.stats.MeshInside = cam.Frustum().ContainsAABB(box)

	l := light.Normalize()
	var smooth []math3d.Vec3
	if mode == Gouraud {
		smooth = mesh.SmoothNormals()
	}

	view := cam.ViewMatrix()
	for fi, f := range mesh.Faces {
		diffuse := mesh.FaceMaterial(fi).Diffuse

		r.poly = r.poly[:0]
		for c := range 3 {
			var col models.Color
			switch mode {
			case Gouraud:
				b := math.Min(math.Max(l.Dot(smooth[f.V[c]]), 0), 1)
				col = diffuse.Scale(b)
			default:
				if c == 0 {
					col = diffuse.Scale(math.Max(0, l.Dot(mesh.Normals[f.N[0]])))
				} else {
					col = r.poly[0].color
				}
			}
			r.poly = append(r.poly, clipVertex{pos: view.MulVec3(mesh.Vertices[f.V[c]]), color: col})
		}
		r.emit(cam, r.poly, mode == Flat, !r.stats.MeshInside)
	}
	return nil
}

// emit clips one view-space triangle, projects the pieces and queues them.
// With nearCheck unset the triangle is known to lie past the near plane.
func (r *Rasterizer) emit(cam *Camera, tri []clipVertex, flat, nearCheck bool) {
	poly := tri
	switch {
	case !nearCheck:
	case r.clipNear:
		var cut bool
		r.cut, cut = clipNear(tri, cam.NearPlane(), r.cut)
		if cut {
			r.stats.Clipped++
		}
		poly = r.cut
	case cam.Projection() == Perspective:
		for _, v := range tri {
			// Clip w is -z in view space.
			if v.pos.Z >= 0 {
				r.stats.Clipped++
				return
			}
		}
	}

	proj := cam.ProjectionMatrix()
	w, h := r.fb.Width, r.fb.Height
	for i := 1; i+1 < len(poly); i++ {
		var st screenTriangle
		st.flat = flat
		for k, v := range [3]clipVertex{poly[0], poly[i], poly[i+1]} {
			ndc := proj.MulVec4(math3d.Point4(v.pos)).PerspectiveDivide()
			s := math3d.ViewportToScreen(ndc, w, h)
			st.v[k] = math3d.V3(s.X, s.Y, -v.pos.Z)
			st.c[k] = v.color
		}

		area := math3d.TriangleArea2(st.v[0].XY(), st.v[1].XY(), st.v[2].XY())
		if math.Abs(area) < 1e-12 || math.IsNaN(area) {
			r.stats.Degenerate++
			continue
		}
		// Counter-clockwise in world space turns negative after the y flip.
		if r.cullBackfaces && area > 0 {
			r.stats.Culled++
			continue
		}

		minX := math.Floor(min(st.v[0].X, st.v[1].X, st.v[2].X))
		maxX := math.Ceil(max(st.v[0].X, st.v[1].X, st.v[2].X))
		minY := math.Floor(min(st.v[0].Y, st.v[1].Y, st.v[2].Y))
		maxY := math.Ceil(max(st.v[0].Y, st.v[1].Y, st.v[2].Y))
		if maxX < 0 || maxY < 0 || minX >= float64(w) || minY >= float64(h) {
			continue
		}
		st.minX = int(math.Max(minX, 0))
		st.maxX = int(math.Min(maxX, float64(w-1)))
		st.minY = int(math.Max(minY, 0))
		st.maxY = int(math.Min(maxY, float64(h-1)))

		r.tris = append(r.tris, st)
		r.stats.Drawn++
	}
}

// fill rasterizes every queued triangle restricted to rows [y0, y1) and
// returns the number of pixels written.
func (r *Rasterizer) fill(y0, y1 int) int {
	written := 0
	width := r.fb.Width
	for ti := range r.tris {
		t := &r.tris[ti]
		top, bottom := max(t.minY, y0), min(t.maxY, y1-1)
		for y := top; y <= bottom; y++ {
			py := float64(y) + 0.5
			row := y * width
			for x := t.minX; x <= t.maxX; x++ {
				bc, ok := math3d.BarycentricWeights(float64(x)+0.5, py, t.v[0], t.v[1], t.v[2])
				if !ok || bc.X <= 0 || bc.Y <= 0 || bc.Z <= 0 {
					continue
				}
				z := bc.X*t.v[0].Z + bc.Y*t.v[1].Z + bc.Z*t.v[2].Z
				idx := row + x
				if z >= r.depth[idx] {
					continue
				}
				col := t.c[0]
				if !t.flat {
					col = models.Blend3(t.c[0], t.c[1], t.c[2], bc.X, bc.Y, bc.Z)
				}
				r.depth[idx] = z
				r.fb.Pixels[idx] = col.ToRGBA()
				written++
			}
		}
	}
	return written
}
