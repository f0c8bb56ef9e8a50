package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/softrast/pkg/math3d"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCamera reports unusable intrinsics (fov, aspect, clip planes, extents).
	ErrInvalidCamera = errors.New("invalid camera")
	// ErrDegenerateBasis reports a zero forward vector or one parallel to up.
	ErrDegenerateBasis = errors.New("degenerate camera basis")
)

// minBasisLen is the shortest forward×up accepted as non-parallel.
const minBasisLen = 1e-9

// Projection selects how the camera maps view space to clip space.
type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

func (p Projection) String() string {
	switch p {
	case Perspective:
		return "perspective"
	case Orthographic:
		return "orthographic"
	}
	return fmt.Sprintf("Projection(%d)", int(p))
}

// Camera is a right-handed camera looking down its forward axis.
//
// Setters only record the new pose or intrinsics. UpdateViews must run
// before the matrices or frustum are read again; Stale reports whether it is
// due. The rasterizer does this itself.
type Camera struct {
	position math3d.Vec3
	forward  math3d.Vec3
	up       math3d.Vec3
	right    math3d.Vec3

	fov    float64 // vertical, radians
	aspect float64 // width / height
	near   float64
	far    float64

	projection Projection

	left, rightX, bottom, top float64 // orthographic extents

	view     math3d.Mat4
	proj     math3d.Mat4
	viewProj math3d.Mat4
	frustum  Frustum
	stale    bool
}

// NewCamera creates a perspective camera at position looking along forward
// and derives its matrices. It fails if the basis or intrinsics are unusable.
func NewCamera(position, forward, up math3d.Vec3, fov, aspect, near, far float64) (*Camera, error) {
	c := &Camera{
		position: position,
		forward:  forward,
		up:       up,
		fov:      fov,
		aspect:   aspect,
		near:     near,
		far:      far,
	}
	if err := c.UpdateViews(); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultCamera sits on +Z at distance 5 looking at the origin with a 60°
// vertical field of view.
func DefaultCamera(aspect float64) *Camera {
	c, err := NewCamera(math3d.V3(0, 0, 5), math3d.Forward(), math3d.Up(), math.Pi/3, aspect, 0.1, 100)
	if err != nil {
		panic(err)
	}
	return c
}

// Position returns the camera position in world space.
func (c *Camera) Position() math3d.Vec3 { return c.position }

// Forward returns the unit view direction.
func (c *Camera) Forward() math3d.Vec3 { return c.forward }

// Up returns the unit up vector.
func (c *Camera) Up() math3d.Vec3 { return c.up }

// Right returns the unit right vector.
func (c *Camera) Right() math3d.Vec3 { return c.right }

// FOV returns the vertical field of view in radians.
func (c *Camera) FOV() float64 { return c.fov }

// AspectRatio returns width / height.
func (c *Camera) AspectRatio() float64 { return c.aspect }

// NearPlane returns the near clip distance.
func (c *Camera) NearPlane() float64 { return c.near }

// FarPlane returns the far clip distance.
func (c *Camera) FarPlane() float64 { return c.far }

// Projection returns the active projection kind.
func (c *Camera) Projection() Projection { return c.projection }

// Stale reports whether a setter ran since the last UpdateViews.
func (c *Camera) Stale() bool { return c.stale }

// SetPosition moves the camera.
func (c *Camera) SetPosition(p math3d.Vec3) {
	c.position = p
	c.stale = true
}

// SetForward sets the view direction. It need not be normalized.
func (c *Camera) SetForward(f math3d.Vec3) {
	c.forward = f
	c.stale = true
}

// SetUp sets the approximate up direction.
func (c *Camera) SetUp(u math3d.Vec3) {
	c.up = u
	c.stale = true
}

// SetRight sets the right direction by deriving up from it and the current
// forward vector.
func (c *Camera) SetRight(r math3d.Vec3) {
	c.up = r.Cross(c.forward)
	c.stale = true
}

// SetFOV sets the vertical field of view (in radians).
func (c *Camera) SetFOV(fov float64) {
	c.fov = fov
	c.stale = true
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.aspect = aspect
	c.stale = true
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.near = near
	c.far = far
	c.stale = true
}

// SetOrthographic switches to an orthographic projection with the given
// view-space extents. Near and far planes are kept.
func (c *Camera) SetOrthographic(left, right, bottom, top float64) {
	c.projection = Orthographic
	c.left, c.rightX, c.bottom, c.top = left, right, bottom, top
	c.stale = true
}

// SetPerspective switches back to the perspective projection.
func (c *Camera) SetPerspective() {
	c.projection = Perspective
	c.stale = true
}

// LookAt points the camera at target and updates all views. If target is the
// camera position, or the new forward is parallel to up, the camera is left
// unchanged and an error is returned.
func (c *Camera) LookAt(target math3d.Vec3) error {
	dir := target.Sub(c.position)
	if _, ok := dir.TryNormalize(); !ok {
		return fmt.Errorf("look at %v from the same point: %w", target, ErrDegenerateBasis)
	}
	saved := *c
	c.forward = dir
	if err := c.UpdateViews(); err != nil {
		*c = saved
		return err
	}
	return nil
}

// UpdateViews re-orthonormalizes the basis, then rebuilds the view matrix, the
// projection matrix and the frustum, in that order. On error the derived
// state is left as it was.
func (c *Camera) UpdateViews() error {
	if err := c.validate(); err != nil {
		return err
	}
	f, ok := c.forward.TryNormalize()
	if !ok {
		return fmt.Errorf("forward %v: %w", c.forward, ErrDegenerateBasis)
	}
	cr := f.Cross(c.up)
	if cr.Len() < minBasisLen {
		return fmt.Errorf("forward %v parallel to up %v: %w", c.forward, c.up, ErrDegenerateBasis)
	}
	r := cr.Normalize()
	u := r.Cross(f).Normalize()
	c.forward, c.right, c.up = f, r, u

	c.view = math3d.ViewFromBasis(c.position, r, u, f)
	switch c.projection {
	case Orthographic:
		c.proj = math3d.Orthographic(c.left, c.rightX, c.bottom, c.top, c.near, c.far)
	default:
		c.proj = math3d.Perspective(c.fov, c.aspect, c.near, c.far)
	}
	c.viewProj = c.proj.Mul(c.view)
	c.frustum = NewFrustumFromCorners(c.corners())
	c.stale = false
	return nil
}

func (c *Camera) validate() error {
	if !(c.near > 0) || !(c.far > c.near) || math.IsInf(c.far, 0) {
		return fmt.Errorf("%w: need 0 < near < far, got near=%v far=%v", ErrInvalidCamera, c.near, c.far)
	}
	switch c.projection {
	case Orthographic:
		if !(c.rightX > c.left) || !(c.top > c.bottom) {
			return fmt.Errorf("%w: empty orthographic extents [%v,%v]x[%v,%v]", ErrInvalidCamera, c.left, c.rightX, c.bottom, c.top)
		}
	default:
		if !(c.fov > 0) || !(c.fov < math.Pi) {
			return fmt.Errorf("%w: fov %v outside (0, π)", ErrInvalidCamera, c.fov)
		}
		if !(c.aspect > 0) || math.IsInf(c.aspect, 0) {
			return fmt.Errorf("%w: aspect ratio %v", ErrInvalidCamera, c.aspect)
		}
	}
	return nil
}

// corners returns the near corners then the far corners, each ordered
// right-bottom, right-top, left-top, left-bottom.
func (c *Camera) corners() [8]math3d.Vec3 {
	var out [8]math3d.Vec3
	for i, d := range [2]float64{c.near, c.far} {
		center := c.position.Add(c.forward.Scale(d))
		var l, r, b, t float64
		if c.projection == Orthographic {
			l, r, b, t = c.left, c.rightX, c.bottom, c.top
		} else {
			hh := math.Tan(c.fov/2) * d
			hw := hh * c.aspect
			l, r, b, t = -hw, hw, -hh, hh
		}
		at := func(x, y float64) math3d.Vec3 {
			return center.Add(c.right.Scale(x)).Add(c.up.Scale(y))
		}
		out[i*4+0] = at(r, b)
		out[i*4+1] = at(r, t)
		out[i*4+2] = at(l, t)
		out[i*4+3] = at(l, b)
	}
	return out
}

// ViewMatrix returns the world-to-camera matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 { return c.view }

// ProjectionMatrix returns the camera-to-clip matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 { return c.proj }

// ViewProjectionMatrix returns ProjectionMatrix * ViewMatrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 { return c.viewProj }

// Frustum returns the viewing volume derived by the last UpdateViews.
func (c *Camera) Frustum() Frustum { return c.frustum }

// IsPointInViewingVolume reports whether p lies inside all six frustum planes.
func (c *Camera) IsPointInViewingVolume(p math3d.Vec3) bool {
	return c.frustum.ContainsPoint(p)
}

// Depth returns the linear view distance of p along the forward axis.
func (c *Camera) Depth(p math3d.Vec3) float64 {
	return c.forward.Dot(p.Sub(c.position))
}

// WorldToScreen projects a world point to pixel coordinates.
// Returns (screenX, screenY, depth, visible); depth is linear view distance.
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	clipPos := c.viewProj.MulVec4(math3d.Point4(worldPos))
	if clipPos.W <= 0 {
		return 0, 0, 0, false
	}

	ndc := clipPos.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	s := math3d.ViewportToScreen(ndc, screenWidth, screenHeight)
	return s.X, s.Y, c.Depth(worldPos), true
}

// LogFrustum writes the eight frustum corners at debug level.
func (c *Camera) LogFrustum(log *zap.Logger) {
	names := [8]string{
		"near_right_bottom", "near_right_top", "near_left_top", "near_left_bottom",
		"far_right_bottom", "far_right_top", "far_left_top", "far_left_bottom",
	}
	fields := make([]zap.Field, 0, len(names)+1)
	fields = append(fields, zap.Stringer("projection", c.projection))
	for i, p := range c.frustum.Corners {
		fields = append(fields, zap.Float64s(names[i], []float64{p.X, p.Y, p.Z}))
	}
	log.Debug("frustum corners", fields...)
}
