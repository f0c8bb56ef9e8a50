package models

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/taigrr/softrast/pkg/math3d"
)

const testMTL = `# two materials
newmtl red
Ka 0.1 0.0 0.0
Kd 1.0 0.0 0.0
Ks 0.5 0.5 0.5
Ke 0 0 0
Ns 96.0
Ni 1.45
d 1.0
illum 2

newmtl blue
Kd 0 0 1
Tr 0.25
`

const testOBJ = `o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 2
f 1/1/1 2/2/1 3/3/1 # before usemtl, skipped
usemtl red
f 1/1/1 2/2/1 3/3/1 4/4/1
usemtl missing
f -4//-1 -3//-1 -2//-1
usemtl blue
f 1 3 4
`

func TestParseMTL(t *testing.T) {
	mats, err := ParseMTL(strings.NewReader(testMTL))
	if err != nil {
		t.Fatalf("ParseMTL: %v", err)
	}
	if len(mats) != 2 {
		t.Fatalf("got %d materials, want 2", len(mats))
	}

	red := mats[0]
	want := Material{
		Name:             "red",
		Ambient:          RGB(0.1, 0, 0),
		Diffuse:          RGB(1, 0, 0),
		Specular:         RGB(0.5, 0.5, 0.5),
		Emissive:         RGB(0, 0, 0),
		SpecularExponent: 96,
		OpticalDensity:   1.45,
		Dissolve:         1,
		Illum:            2,
	}
	if diff := cmp.Diff(want, red); diff != "" {
		t.Errorf("red (-want +got):\n%s", diff)
	}
	if got := mats[1].Dissolve; got != 0.75 {
		t.Errorf("blue dissolve = %v, want 0.75", got)
	}
}

func TestParseOBJ(t *testing.T) {
	mats, err := ParseMTL(strings.NewReader(testMTL))
	if err != nil {
		t.Fatal(err)
	}
	m, report, err := ParseOBJ("quad", strings.NewReader(testOBJ), mats)
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}

	wantReport := LoadReport{
		Vertices:         4,
		Normals:          2,
		TexCoords:        4,
		Faces:            4,
		Materials:        2,
		SkippedFaces:     1,
		UnknownMaterials: 1,
		GeneratedNormals: 1,
	}
	if diff := cmp.Diff(wantReport, report); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}

	wantFaces := []Face{
		// Quad fanned around its first corner.
		{V: [3]int{0, 1, 2}, T: [3]int{0, 1, 2}, N: [3]int{0, 0, 0}, Material: 0},
		{V: [3]int{0, 2, 3}, T: [3]int{0, 2, 3}, N: [3]int{0, 0, 0}, Material: 0},
		// Relative indices; unknown usemtl keeps the current material.
		{V: [3]int{0, 1, 2}, T: [3]int{-1, -1, -1}, N: [3]int{0, 0, 0}, Material: 0},
		// Bare vertex indices get a generated normal.
		{V: [3]int{0, 2, 3}, T: [3]int{-1, -1, -1}, N: [3]int{1, 1, 1}, Material: 1},
	}
	if diff := cmp.Diff(wantFaces, m.Faces); diff != "" {
		t.Errorf("faces (-want +got):\n%s", diff)
	}

	if n := m.Normals[0]; !n.ApproxEqual(math3d.V3(0, 0, 1), 1e-12) {
		t.Errorf("vn not normalized: %+v", n)
	}
	if got := m.Origin(); !got.ApproxEqual(math3d.V3(0.5, 0.5, 0), 1e-12) {
		t.Errorf("origin = %+v", got)
	}
	if len(m.Adjacency) != 4 {
		t.Errorf("adjacency not built: %d entries", len(m.Adjacency))
	}
}

func TestParseOBJWithoutMaterialsKeepsFaces(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	m, report, err := ParseOBJ("tri", strings.NewReader(src), nil)
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}
	if report.SkippedFaces != 0 || len(m.Faces) != 1 {
		t.Fatalf("faces = %d skipped = %d", len(m.Faces), report.SkippedFaces)
	}
	if m.Faces[0].Material != NoMaterial {
		t.Errorf("material = %d, want NoMaterial", m.Faces[0].Material)
	}
}

func TestParseOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		is   error
	}{
		{"empty", "v 0 0 0\n", ErrEmptyMesh},
		{"out of range", "v 0 0 0\nf 1 2 3\n", ErrIndexOutOfRange},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n", ErrIndexOutOfRange},
		{"too few corners", "v 0 0 0\nv 1 0 0\nf 1 2\n", nil},
		{"bad float", "v 0 x 0\n", nil},
		{"vt without u", "vt\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseOBJ(tt.name, strings.NewReader(tt.src), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestParseOBJTexCoordArity(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
vt 0.25
vt 0.5 0.75
vt 1 1 0.5
f 1/1 2/2 3/3
`
	m, _, err := ParseOBJ("uv", strings.NewReader(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []math3d.Vec2{math3d.V2(0.25, 0), math3d.V2(0.5, 0.75), math3d.V2(1, 1)}
	if diff := cmp.Diff(want, m.TexCoords); diff != "" {
		t.Errorf("TexCoords (-want +got):\n%s", diff)
	}
}

func TestLoadOBJResolvesMtllib(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "scene.mtl"), []byte(testMTL), 0o644); err != nil {
		t.Fatal(err)
	}
	obj := "mtllib scene.mtl\n" + testOBJ
	objPath := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(objPath, []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}

	m, report, err := LoadOBJ(objPath, "")
	if err != nil {
		t.Fatalf("LoadOBJ: %v", err)
	}
	if report.Materials != 2 || m.Name != "scene.obj" {
		t.Errorf("materials = %d name = %q", report.Materials, m.Name)
	}

	// An explicit library path wins over mtllib.
	if _, _, err := LoadOBJ(objPath, filepath.Join(dir, "missing.mtl")); err == nil {
		t.Error("expected error for missing explicit mtl")
	}
}

func TestLoadOBJMissingFile(t *testing.T) {
	if _, _, err := LoadOBJ("/nonexistent/model.obj", ""); err == nil {
		t.Error("expected error for nonexistent file")
	}
}
