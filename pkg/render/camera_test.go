package render

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/taigrr/softrast/pkg/math3d"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestCameraBasisOrthonormal(t *testing.T) {
	poses := []struct {
		name        string
		pos, fwd, up math3d.Vec3
	}{
		{"axis aligned", math3d.V3(0, 0, 5), math3d.V3(0, 0, -1), math3d.Up()},
		{"skewed up", math3d.V3(1, 2, 3), math3d.V3(-1, -2, -3), math3d.V3(0.3, 1, 0.1)},
		{"unnormalized forward", math3d.V3(-4, 0, 0), math3d.V3(10, 0.5, 0), math3d.Up()},
		{"looking down", math3d.V3(0, 10, 0), math3d.V3(0.01, -1, 0), math3d.V3(0, 0, -1)},
	}

	for _, p := range poses {
		t.Run(p.name, func(t *testing.T) {
			cam, err := NewCamera(p.pos, p.fwd, p.up, math.Pi/3, 1.5, 0.1, 100)
			if err != nil {
				t.Fatalf("NewCamera: %v", err)
			}
			f, u, r := cam.Forward(), cam.Up(), cam.Right()
			for name, v := range map[string]math3d.Vec3{"forward": f, "up": u, "right": r} {
				if math.Abs(v.Len()-1) > 1e-9 {
					t.Errorf("|%s| = %v, want 1", name, v.Len())
				}
			}
			if d := f.Dot(u); math.Abs(d) > 1e-9 {
				t.Errorf("forward·up = %v", d)
			}
			if d := f.Dot(r); math.Abs(d) > 1e-9 {
				t.Errorf("forward·right = %v", d)
			}
			if d := u.Dot(r); math.Abs(d) > 1e-9 {
				t.Errorf("up·right = %v", d)
			}
			// Right-handed: right × up = -forward.
			if got := r.Cross(u); !got.ApproxEqual(f.Negate(), 1e-9) {
				t.Errorf("right×up = %+v, want %+v", got, f.Negate())
			}
		})
	}
}

func TestCameraPositionMapsToOrigin(t *testing.T) {
	positions := []math3d.Vec3{
		math3d.V3(0, 0, 5),
		math3d.V3(-7, 3, 2),
		math3d.V3(100, -50, 25),
	}
	for _, p := range positions {
		cam, err := NewCamera(p, math3d.V3(0.2, -0.1, -1), math3d.Up(), 1, 1, 0.1, 100)
		if err != nil {
			t.Fatal(err)
		}
		if got := cam.ViewMatrix().MulVec3(p); !got.ApproxEqual(math3d.Zero3(), 1e-9) {
			t.Errorf("view * %+v = %+v, want origin", p, got)
		}
	}
}

func TestCameraMatchesLookAtMatrix(t *testing.T) {
	pos, target := math3d.V3(2, 3, 8), math3d.V3(0.5, 0, -1)
	cam := DefaultCamera(1)
	cam.SetPosition(pos)
	if err := cam.LookAt(target); err != nil {
		t.Fatal(err)
	}
	want := math3d.LookAt(pos, target, math3d.Up())
	if diff := cmp.Diff(want, cam.ViewMatrix(), approx); diff != "" {
		t.Errorf("view matrix (-LookAt +camera):\n%s", diff)
	}
}

func TestCameraUpdateViewsIdempotent(t *testing.T) {
	cam, err := NewCamera(math3d.V3(1, 2, 3), math3d.V3(-1, -1, -2), math3d.V3(0.1, 1, 0), 1.2, 1.3, 0.2, 50)
	if err != nil {
		t.Fatal(err)
	}
	view, proj, fr := cam.ViewMatrix(), cam.ProjectionMatrix(), cam.Frustum()

	if err := cam.UpdateViews(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(view, cam.ViewMatrix(), approx); diff != "" {
		t.Errorf("view changed:\n%s", diff)
	}
	if diff := cmp.Diff(proj, cam.ProjectionMatrix(), approx); diff != "" {
		t.Errorf("projection changed:\n%s", diff)
	}
	if diff := cmp.Diff(fr, cam.Frustum(), approx); diff != "" {
		t.Errorf("frustum changed:\n%s", diff)
	}
}

func TestCameraViewingVolume(t *testing.T) {
	cam := DefaultCamera(16.0 / 9.0)
	target := math3d.V3(0, 0, 0)
	if err := cam.LookAt(target); err != nil {
		t.Fatal(err)
	}

	if !cam.IsPointInViewingVolume(target) {
		t.Error("look-at target between near and far should be inside")
	}
	behind := cam.Position().Sub(cam.Forward().Scale(3))
	if cam.IsPointInViewingVolume(behind) {
		t.Error("point behind the camera should be outside")
	}
	tooFar := cam.Position().Add(cam.Forward().Scale(cam.FarPlane() + 1))
	if cam.IsPointInViewingVolume(tooFar) {
		t.Error("point past the far plane should be outside")
	}
}

func TestCameraLookAtSamePoint(t *testing.T) {
	cam := DefaultCamera(1)
	before := cam.ViewMatrix()
	fwd := cam.Forward()

	err := cam.LookAt(cam.Position())
	if !errors.Is(err, ErrDegenerateBasis) {
		t.Fatalf("LookAt(position) = %v, want ErrDegenerateBasis", err)
	}
	if cam.Forward() != fwd || cam.ViewMatrix() != before {
		t.Error("failed LookAt modified the camera")
	}
}

func TestCameraLookAtParallelToUp(t *testing.T) {
	cam := DefaultCamera(1)
	fwd := cam.Forward()

	err := cam.LookAt(cam.Position().Add(math3d.V3(0, 10, 0)))
	if !errors.Is(err, ErrDegenerateBasis) {
		t.Fatalf("LookAt straight up = %v, want ErrDegenerateBasis", err)
	}
	if cam.Forward() != fwd || cam.Stale() {
		t.Error("failed LookAt left the camera modified")
	}
}

func TestCameraValidation(t *testing.T) {
	tests := []struct {
		name                    string
		fov, aspect, near, far float64
	}{
		{"near equals far", 1, 1, 5, 5},
		{"near above far", 1, 1, 10, 5},
		{"zero near", 1, 1, 0, 5},
		{"zero fov", 0, 1, 0.1, 5},
		{"fov too wide", math.Pi, 1, 0.1, 5},
		{"negative aspect", 1, -1, 0.1, 5},
		{"NaN near", 1, 1, math.NaN(), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCamera(math3d.V3(0, 0, 5), math3d.Forward(), math3d.Up(), tt.fov, tt.aspect, tt.near, tt.far)
			if !errors.Is(err, ErrInvalidCamera) {
				t.Errorf("NewCamera = %v, want ErrInvalidCamera", err)
			}
		})
	}

	if _, err := NewCamera(math3d.Zero3(), math3d.Zero3(), math3d.Up(), 1, 1, 0.1, 5); !errors.Is(err, ErrDegenerateBasis) {
		t.Errorf("zero forward = %v, want ErrDegenerateBasis", err)
	}
}

func TestCameraSettersMarkStale(t *testing.T) {
	cam := DefaultCamera(1)
	if cam.Stale() {
		t.Fatal("fresh camera is stale")
	}

	cam.SetClipPlanes(1, 0.5)
	if !cam.Stale() {
		t.Fatal("SetClipPlanes did not mark stale")
	}
	if err := cam.UpdateViews(); !errors.Is(err, ErrInvalidCamera) {
		t.Errorf("UpdateViews = %v, want ErrInvalidCamera", err)
	}

	cam.SetClipPlanes(0.5, 20)
	cam.SetFOV(math.Pi / 2)
	cam.SetAspectRatio(2)
	if err := cam.UpdateViews(); err != nil {
		t.Fatalf("UpdateViews: %v", err)
	}
	want := math3d.Perspective(math.Pi/2, 2, 0.5, 20)
	if diff := cmp.Diff(want, cam.ProjectionMatrix(), approx); diff != "" {
		t.Errorf("projection (-want +got):\n%s", diff)
	}
}

func TestCameraSetRight(t *testing.T) {
	cam := DefaultCamera(1)
	// Roll 90°: right now points up the world Y axis.
	cam.SetRight(math3d.V3(0, 1, 0))
	if err := cam.UpdateViews(); err != nil {
		t.Fatal(err)
	}
	if !cam.Right().ApproxEqual(math3d.V3(0, 1, 0), 1e-9) {
		t.Errorf("right = %+v, want +Y", cam.Right())
	}
	if !cam.Up().ApproxEqual(math3d.V3(-1, 0, 0), 1e-9) {
		t.Errorf("up = %+v, want -X", cam.Up())
	}
}

func TestCameraOrthographic(t *testing.T) {
	cam := DefaultCamera(1)
	cam.SetOrthographic(-2, 2, -2, 2)
	if err := cam.UpdateViews(); err != nil {
		t.Fatal(err)
	}
	if cam.Projection() != Orthographic {
		t.Fatalf("projection = %v", cam.Projection())
	}

	// Parallel projection: depth does not change screen position.
	x1, y1, _, ok1 := cam.WorldToScreen(math3d.V3(1, 1, 0), 100, 100)
	x2, y2, _, ok2 := cam.WorldToScreen(math3d.V3(1, 1, -10), 100, 100)
	if !ok1 || !ok2 || math.Abs(x1-x2) > 1e-9 || math.Abs(y1-y2) > 1e-9 {
		t.Errorf("orthographic projection differs with depth: (%v,%v) vs (%v,%v)", x1, y1, x2, y2)
	}
	if math.Abs(x1-75) > 1e-9 || math.Abs(y1-25) > 1e-9 {
		t.Errorf("screen = (%v, %v), want (75, 25)", x1, y1)
	}

	cam.SetOrthographic(1, -1, -1, 1)
	if err := cam.UpdateViews(); !errors.Is(err, ErrInvalidCamera) {
		t.Errorf("inverted extents = %v, want ErrInvalidCamera", err)
	}

	cam.SetOrthographic(-1, 1, -1, 1)
	cam.SetPerspective()
	if err := cam.UpdateViews(); err != nil || cam.Projection() != Perspective {
		t.Errorf("back to perspective: %v, %v", err, cam.Projection())
	}
}

func TestWorldToScreen(t *testing.T) {
	cam := DefaultCamera(1)

	x, y, depth, ok := cam.WorldToScreen(math3d.V3(0, 0, 0), 200, 100)
	if !ok {
		t.Fatal("origin not visible")
	}
	if math.Abs(x-100) > 1e-9 || math.Abs(y-50) > 1e-9 {
		t.Errorf("screen = (%v, %v), want center", x, y)
	}
	if math.Abs(depth-5) > 1e-9 {
		t.Errorf("depth = %v, want 5", depth)
	}

	if _, _, _, ok := cam.WorldToScreen(math3d.V3(0, 0, 10), 200, 100); ok {
		t.Error("point behind camera reported visible")
	}
}

func TestLogFrustum(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	DefaultCamera(1).LogFrustum(zap.New(core))

	entries := logs.FilterMessage("frustum corners").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if _, ok := fields["far_left_bottom"]; !ok {
		t.Errorf("missing corner field: %v", fields)
	}
	if fields["projection"] != "perspective" {
		t.Errorf("projection field = %v", fields["projection"])
	}
}
