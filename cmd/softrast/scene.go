package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/taigrr/softrast/internal/config"
	"github.com/taigrr/softrast/pkg/math3d"
	"github.com/taigrr/softrast/pkg/models"
	"github.com/taigrr/softrast/pkg/render"
	"go.uber.org/zap"
)

// loadModel picks a loader by file extension and logs what it found.
func loadModel(path, mtlPath string, log *zap.Logger) (*models.Mesh, error) {
	var (
		mesh   *models.Mesh
		report models.LoadReport
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		mesh, report, err = models.LoadOBJ(path, mtlPath)
	case ".glb", ".gltf":
		mesh, report, err = models.LoadGLB(path)
	default:
		return nil, fmt.Errorf("unsupported model format %q (use .obj or .glb)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	log.Info("model loaded",
		zap.String("path", path),
		zap.Int("vertices", report.Vertices),
		zap.Int("normals", report.Normals),
		zap.Int("faces", report.Faces),
		zap.Int("materials", report.Materials),
		zap.Int("generated_normals", report.GeneratedNormals),
	)
	if report.SkippedFaces > 0 {
		log.Warn("faces without a material were skipped", zap.Int("count", report.SkippedFaces))
	}
	if report.UnknownMaterials > 0 {
		log.Warn("usemtl referenced unknown materials", zap.Int("count", report.UnknownMaterials))
	}
	return mesh, nil
}

func vec(a [3]float64) math3d.Vec3 {
	return math3d.V3(a[0], a[1], a[2])
}

// newCamera builds the configured camera looking at camera.target.
func newCamera(cfg *config.Config, aspect float64) (*render.Camera, error) {
	c := cfg.Camera
	pos := vec(c.Position)
	cam, err := render.NewCamera(pos, vec(c.Target).Sub(pos), vec(c.Up), cfg.FOV(), aspect, c.Near, c.Far)
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	if kind, _ := cfg.ProjectionKind(); kind == render.Orthographic {
		cam.SetOrthographic(c.Ortho.Left, c.Ortho.Right, c.Ortho.Bottom, c.Ortho.Top)
		if err := cam.UpdateViews(); err != nil {
			return nil, fmt.Errorf("camera: %w", err)
		}
	}
	return cam, nil
}

// spinAxis is an angular velocity that a critically damped spring pulls
// back to zero.
type spinAxis struct {
	vel    float64
	accel  float64
	spring harmonica.Spring
}

func newSpinAxis(fps int) spinAxis {
	return spinAxis{spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0)}
}

// step returns this frame's velocity and decays it.
func (a *spinAxis) step() float64 {
	v := a.vel
	a.vel, a.accel = a.spring.Update(a.vel, a.accel, 0)
	return v
}

// spin combines the configured constant rotation with decaying impulses.
type spin struct {
	base   [3]float64
	axes   [3]spinAxis
	fps    int
	paused bool
}

func newSpin(base [3]float64, fps int) *spin {
	s := &spin{base: base, fps: fps}
	s.reset()
	return s
}

func (s *spin) impulse(x, y, z float64) {
	s.axes[0].vel += x
	s.axes[1].vel += y
	s.axes[2].vel += z
}

func (s *spin) random() {
	s.impulse((rand.Float64()-0.5)*0.3, (rand.Float64()-0.5)*0.3, (rand.Float64()-0.5)*0.3)
}

func (s *spin) reset() {
	for i := range s.axes {
		s.axes[i] = newSpinAxis(s.fps)
	}
}

// step returns the rotation for one frame in radians about X, Y and Z.
func (s *spin) step() (x, y, z float64) {
	var out [3]float64
	for i := range s.axes {
		out[i] = s.axes[i].step()
		if !s.paused {
			out[i] += s.base[i]
		}
	}
	return out[0], out[1], out[2]
}

// viewer owns everything one frame needs.
type viewer struct {
	cfg       *config.Config
	mesh      *models.Mesh
	cam       *render.Camera
	rast      *render.Rasterizer
	wire      *render.Wireframe
	spin      *spin
	mode      render.ShadingMode
	wireframe bool
	dragging  bool
	lastX     int
	lastY     int
	bg        models.Color
	light     math3d.Vec3
	log       *zap.Logger
}

func newViewer(cfg *config.Config, mesh *models.Mesh, width, height int, log *zap.Logger) (*viewer, error) {
	mode, err := render.ParseShadingMode(cfg.Render.Shading)
	if err != nil {
		return nil, err
	}
	cam, err := newCamera(cfg, float64(width)/float64(height))
	if err != nil {
		return nil, err
	}
	cam.LogFrustum(log.Named("camera"))

	bg := cfg.Render.Background
	v := &viewer{
		cfg:       cfg,
		mesh:      mesh,
		cam:       cam,
		spin:      newSpin(cfg.Scene.Spin, cfg.Render.FPS),
		mode:      mode,
		wireframe: cfg.Render.Wireframe,
		bg:        models.RGB(float64(bg[0])/255, float64(bg[1])/255, float64(bg[2])/255),
		light:     vec(cfg.Scene.Light),
		log:       log,
	}
	v.resize(width, height)
	return v, nil
}

// resize replaces the framebuffer and rasterizer for a new output size.
func (v *viewer) resize(width, height int) {
	fb := render.NewFramebuffer(width, height)
	v.rast = render.NewRasterizer(fb,
		render.WithLogger(v.log.Named("render")),
		render.WithNearClipping(v.cfg.Render.ClipNear),
		render.WithBackfaceCulling(v.cfg.Render.CullBackfaces),
	)
	v.wire = render.NewWireframe(v.cam, fb)
	if height > 0 {
		v.cam.SetAspectRatio(float64(width) / float64(height))
	}
}

// zoom moves the camera along its view direction.
func (v *viewer) zoom(d float64) {
	v.cam.SetPosition(v.cam.Position().Add(v.cam.Forward().Scale(d)))
}

// frame clears, animates the mesh about its centroid and renders it.
func (v *viewer) frame(ctx context.Context) error {
	v.rast.Clear(v.bg)

	x, y, z := v.spin.step()
	origin := v.mesh.Origin()
	v.mesh.RotateAroundPoint(x, y, z, origin)

	if v.cfg.Scene.Track {
		if err := v.cam.LookAt(origin); err != nil {
			v.log.Debug("camera kept its heading", zap.Error(err))
		}
	}

	var err error
	if v.cfg.Render.Workers == 1 {
		err = v.rast.Render(v.cam, v.mesh, v.light, v.mode)
	} else {
		err = v.rast.RenderParallel(ctx, v.cam, v.mesh, v.light, v.mode, v.cfg.Render.Workers)
	}
	if err != nil {
		return err
	}

	if v.wireframe {
		v.wire.DrawMesh(v.mesh, render.ColorWire)
		v.wire.DrawBox(render.NewAABB(v.mesh.Bounds()), render.ColorBlue)
		v.wire.DrawAxes(origin, 1)
	}
	return nil
}

func (v *viewer) toggleShading() {
	if v.mode == render.Flat {
		v.mode = render.Gouraud
	} else {
		v.mode = render.Flat
	}
}

// dragScale converts a mouse move in cells to a spin impulse.
const dragScale = 0.03

func (v *viewer) press(x, y int) {
	v.dragging = true
	v.lastX, v.lastY = x, y
}

func (v *viewer) release() {
	v.dragging = false
}

// drag turns horizontal motion into yaw and vertical motion into pitch.
func (v *viewer) drag(x, y int) {
	if !v.dragging {
		return
	}
	dx, dy := x-v.lastX, y-v.lastY
	v.spin.impulse(float64(dy)*dragScale, float64(dx)*dragScale, 0)
	v.lastX, v.lastY = x, y
}
