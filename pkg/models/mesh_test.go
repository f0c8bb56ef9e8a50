package models

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/taigrr/softrast/pkg/math3d"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// createTestQuad returns two triangles forming a unit square in the XY plane,
// facing +Z.
func createTestQuad() *Mesh {
	m := NewMesh("quad")
	m.Vertices = []math3d.Vec3{
		math3d.V3(0, 0, 0),
		math3d.V3(1, 0, 0),
		math3d.V3(1, 1, 0),
		math3d.V3(0, 1, 0),
	}
	m.Normals = []math3d.Vec3{math3d.V3(0, 0, 1)}
	m.Materials = []Material{{Name: "red", Diffuse: RGB(1, 0, 0)}}
	m.Faces = []Face{
		{V: [3]int{0, 1, 2}, T: [3]int{-1, -1, -1}, N: [3]int{0, 0, 0}, Material: 0},
		{V: [3]int{0, 2, 3}, T: [3]int{-1, -1, -1}, N: [3]int{0, 0, 0}, Material: NoMaterial},
	}
	return m
}

func TestRotateRoundTrip(t *testing.T) {
	const a, b, c = 0.4, -1.2, 2.5
	orig := createTestQuad()

	m := orig.Clone()
	m.Rotate(a, b, c)
	m.Rotate(0, 0, -c)
	m.Rotate(0, -b, 0)
	m.Rotate(-a, 0, 0)

	if diff := cmp.Diff(orig.Vertices, m.Vertices, approx); diff != "" {
		t.Errorf("axis-by-axis undo did not restore vertices (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(orig.Normals, m.Normals, approx); diff != "" {
		t.Errorf("axis-by-axis undo did not restore normals (-want +got):\n%s", diff)
	}
}

func TestRotateNaiveNegationDoesNotRoundTrip(t *testing.T) {
	orig := createTestQuad()
	m := orig.Clone()
	m.Rotate(0.4, -1.2, 2.5)
	m.Rotate(-0.4, 1.2, -2.5)

	// Compound Euler rotations do not commute, so this must drift.
	if cmp.Equal(orig.Vertices, m.Vertices, approx) {
		t.Error("negated Euler angles unexpectedly restored the mesh")
	}
}

func TestRotateMatchesPerAxisFormulas(t *testing.T) {
	x, y, z := 0.3, 0.7, -0.9
	p := math3d.V3(1, 2, 3)

	// X
	py := math.Cos(x)*p.Y - math.Sin(x)*p.Z
	pz := math.Sin(x)*p.Y + math.Cos(x)*p.Z
	p.Y, p.Z = py, pz
	// Y
	px := math.Cos(y)*p.X + math.Sin(y)*p.Z
	pz = -math.Sin(y)*p.X + math.Cos(y)*p.Z
	p.X, p.Z = px, pz
	// Z
	px = math.Cos(z)*p.X - math.Sin(z)*p.Y
	py = math.Sin(z)*p.X + math.Cos(z)*p.Y
	p.X, p.Y = px, py

	m := NewMesh("point")
	m.Vertices = []math3d.Vec3{math3d.V3(1, 2, 3)}
	m.Rotate(x, y, z)
	if diff := cmp.Diff(p, m.Vertices[0], approx); diff != "" {
		t.Errorf("Rotate (-formula +got):\n%s", diff)
	}
}

func TestRotateAroundPointKeepsPivot(t *testing.T) {
	m := createTestQuad()
	pivot := m.Origin()

	m.RotateAroundPoint(0.5, 1.0, 1.5, pivot)

	if got := m.Origin(); !got.ApproxEqual(pivot, 1e-9) {
		t.Errorf("centroid moved from %+v to %+v", pivot, got)
	}
	if n := m.Normals[0]; math.Abs(n.Len()-1) > 1e-9 {
		t.Errorf("normal length = %v after rotation", n.Len())
	}
}

func TestTranslateAndScaleUpdateOrigin(t *testing.T) {
	m := createTestQuad()
	if got := m.Origin(); !got.ApproxEqual(math3d.V3(0.5, 0.5, 0), 1e-12) {
		t.Fatalf("initial origin = %+v", got)
	}

	m.Translate(math3d.V3(1, 2, 3))
	if got := m.Origin(); !got.ApproxEqual(math3d.V3(1.5, 2.5, 3), 1e-12) {
		t.Errorf("origin after Translate = %+v", got)
	}

	m.Scale(2)
	if got := m.Origin(); !got.ApproxEqual(math3d.V3(3, 5, 6), 1e-12) {
		t.Errorf("origin after Scale = %+v", got)
	}

	lo, hi := m.Bounds()
	if !lo.ApproxEqual(math3d.V3(2, 4, 6), 1e-12) || !hi.ApproxEqual(math3d.V3(4, 6, 6), 1e-12) {
		t.Errorf("Bounds = %+v..%+v", lo, hi)
	}
}

func TestFindOriginEmptyMesh(t *testing.T) {
	m := NewMesh("empty")
	got := m.FindOrigin()
	if got != (math3d.Vec3{}) || math.IsNaN(got.X) {
		t.Errorf("empty FindOrigin = %+v, want zero", got)
	}

	m = createTestQuad()
	before := m.Origin()
	m.Vertices = nil
	m.Touch()
	if got := m.FindOrigin(); got != before {
		t.Errorf("emptied mesh origin = %+v, want previous %+v", got, before)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Mesh)
	}{
		{"vertex", func(m *Mesh) { m.Faces[0].V[2] = 4 }},
		{"negative vertex", func(m *Mesh) { m.Faces[0].V[0] = -1 }},
		{"normal", func(m *Mesh) { m.Faces[1].N[1] = 1 }},
		{"texcoord", func(m *Mesh) { m.Faces[0].T[0] = 0 }},
		{"material", func(m *Mesh) { m.Faces[1].Material = 1 }},
	}

	if err := createTestQuad().Validate(); err != nil {
		t.Fatalf("valid mesh: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := createTestQuad()
			tt.mutate(m)
			if err := m.Validate(); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("Validate = %v, want ErrIndexOutOfRange", err)
			}
		})
	}
}

func TestBuildAdjacency(t *testing.T) {
	m := createTestQuad()
	m.BuildAdjacency()

	want := [][]AdjacencyEntry{
		{{Face: 0, Normal: 0}, {Face: 1, Normal: 0}},
		{{Face: 0, Normal: 0}},
		{{Face: 0, Normal: 0}, {Face: 1, Normal: 0}},
		{{Face: 1, Normal: 0}},
	}
	if diff := cmp.Diff(want, m.Adjacency); diff != "" {
		t.Errorf("Adjacency (-want +got):\n%s", diff)
	}
}

func TestSmoothNormalsAveragesAdjacentFaces(t *testing.T) {
	// Two faces meeting at a right angle along the edge v0-v1.
	m := NewMesh("hinge")
	m.Vertices = []math3d.Vec3{
		math3d.V3(0, 0, 0), math3d.V3(1, 0, 0),
		math3d.V3(0, 1, 0), math3d.V3(0, 0, 1),
	}
	m.Normals = []math3d.Vec3{math3d.V3(0, 0, 1), math3d.V3(0, 1, 0)}
	m.Faces = []Face{
		{V: [3]int{0, 1, 2}, N: [3]int{0, 0, 0}, Material: NoMaterial},
		{V: [3]int{0, 3, 1}, N: [3]int{1, 1, 1}, Material: NoMaterial},
	}

	got := m.SmoothNormals()
	s := 1 / math.Sqrt2
	want := []math3d.Vec3{
		math3d.V3(0, s, s),
		math3d.V3(0, s, s),
		math3d.V3(0, 0, 1),
		math3d.V3(0, 1, 0),
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("SmoothNormals (-want +got):\n%s", diff)
	}
}

func TestGenerateNormals(t *testing.T) {
	m := createTestQuad()
	m.Normals = nil
	for i := range m.Faces {
		m.Faces[i].N = [3]int{-1, -1, -1}
	}

	if added := m.GenerateNormals(); added != 2 {
		t.Fatalf("GenerateNormals added %d, want 2", added)
	}
	for i, n := range m.Normals {
		if !n.ApproxEqual(math3d.V3(0, 0, 1), 1e-12) {
			t.Errorf("normal %d = %+v, want +Z", i, n)
		}
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate after GenerateNormals: %v", err)
	}
}

func TestFaceMaterialDefault(t *testing.T) {
	m := createTestQuad()
	if got := m.FaceMaterial(0).Name; got != "red" {
		t.Errorf("face 0 material = %q", got)
	}
	if got := m.FaceMaterial(1); got.Diffuse != RGB(0.8, 0.8, 0.8) {
		t.Errorf("face 1 default diffuse = %+v", got.Diffuse)
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := createTestQuad()
	m.BuildAdjacency()
	c := m.Clone()

	c.Translate(math3d.V3(10, 0, 0))
	c.Faces[0].Material = NoMaterial
	c.Adjacency[0][0].Face = 99

	if m.Vertices[0] != (math3d.Vec3{}) {
		t.Error("Clone shares vertices")
	}
	if m.Faces[0].Material != 0 {
		t.Error("Clone shares faces")
	}
	if m.Adjacency[0][0].Face != 0 {
		t.Error("Clone shares adjacency")
	}
}

func TestFitToUnit(t *testing.T) {
	m := createTestQuad()
	m.Scale(10)
	m.Translate(math3d.V3(5, -3, 2))
	m.FitToUnit(2)

	lo, hi := m.Bounds()
	if !lo.ApproxEqual(math3d.V3(-1, -1, 0), 1e-9) || !hi.ApproxEqual(math3d.V3(1, 1, 0), 1e-9) {
		t.Errorf("Bounds after FitToUnit = %+v..%+v", lo, hi)
	}
}

func BenchmarkRotate(b *testing.B) {
	m := NewMesh("bench")
	for i := range 1000 {
		f := float64(i)
		m.Vertices = append(m.Vertices, math3d.V3(f, f*0.5, -f))
		m.Normals = append(m.Normals, math3d.V3(0, 1, 0))
	}

	for b.Loop() {
		m.Rotate(0.01, 0.02, 0.03)
	}
}
