package models

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/softrast/pkg/math3d"
)

// LoadReport summarizes what a loader read and what it had to skip.
type LoadReport struct {
	Vertices  int
	Normals   int
	TexCoords int
	Faces     int
	Materials int

	SkippedFaces     int // faces before any usemtl while a library was loaded
	UnknownMaterials int // usemtl names not found in the library
	GeneratedNormals int // faces that received a computed normal
}

// LoadOBJ reads a Wavefront OBJ file. mtlPath may be empty, in which case the
// first mtllib statement is resolved relative to the OBJ file.
func LoadOBJ(objPath, mtlPath string) (*Mesh, LoadReport, error) {
	f, err := os.Open(objPath)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	p := newOBJParser(filepath.Base(objPath))
	if mtlPath != "" {
		if err := p.loadLibrary(mtlPath); err != nil {
			return nil, LoadReport{}, err
		}
	} else {
		dir := filepath.Dir(objPath)
		p.resolveLib = func(name string) error {
			return p.loadLibrary(filepath.Join(dir, name))
		}
	}
	return p.parse(f)
}

// ParseOBJ reads OBJ statements from r using an already parsed material
// library. mtllib statements are ignored.
func ParseOBJ(name string, r io.Reader, materials []Material) (*Mesh, LoadReport, error) {
	p := newOBJParser(name)
	p.addMaterials(materials)
	return p.parse(r)
}

// ParseMTL reads a Wavefront material library.
func ParseMTL(r io.Reader) ([]Material, error) {
	var (
		out []Material
		cur *Material
	)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(stripComment(sc.Text()))
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				return nil, fmt.Errorf("mtl line %d: newmtl without a name", line)
			}
			out = append(out, DefaultMaterial())
			cur = &out[len(out)-1]
			cur.Name = fields[1]
			continue
		}
		if cur == nil {
			continue
		}
		var err error
		switch fields[0] {
		case "Ka":
			cur.Ambient, err = parseColor(fields[1:])
		case "Kd":
			cur.Diffuse, err = parseColor(fields[1:])
		case "Ks":
			cur.Specular, err = parseColor(fields[1:])
		case "Ke":
			cur.Emissive, err = parseColor(fields[1:])
		case "Ns":
			cur.SpecularExponent, err = parseScalar(fields[1:])
		case "Ni":
			cur.OpticalDensity, err = parseScalar(fields[1:])
		case "d":
			cur.Dissolve, err = parseScalar(fields[1:])
		case "Tr":
			var tr float64
			tr, err = parseScalar(fields[1:])
			cur.Dissolve = 1 - tr
		case "illum":
			var v float64
			v, err = parseScalar(fields[1:])
			cur.Illum = int(v)
		}
		if err != nil {
			return nil, fmt.Errorf("mtl line %d: %s: %w", line, fields[0], err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read mtl: %w", err)
	}
	return out, nil
}

type objParser struct {
	mesh       *Mesh
	report     LoadReport
	byName     map[string]int
	current    int
	resolveLib func(name string) error
}

func newOBJParser(name string) *objParser {
	return &objParser{
		mesh:    NewMesh(name),
		byName:  make(map[string]int),
		current: NoMaterial,
	}
}

func (p *objParser) addMaterials(mats []Material) {
	for _, m := range mats {
		p.byName[m.Name] = len(p.mesh.Materials)
		p.mesh.Materials = append(p.mesh.Materials, m)
	}
}

func (p *objParser) loadLibrary(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mtl: %w", err)
	}
	defer f.Close()
	mats, err := ParseMTL(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	p.addMaterials(mats)
	return nil
}

func (p *objParser) parse(r io.Reader) (*Mesh, LoadReport, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(stripComment(sc.Text()))
		if len(fields) == 0 {
			continue
		}
		if err := p.statement(fields); err != nil {
			return nil, p.report, fmt.Errorf("obj line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, p.report, fmt.Errorf("read obj: %w", err)
	}
	return p.finish()
}

func (p *objParser) statement(fields []string) error {
	m := p.mesh
	switch fields[0] {
	case "v":
		v, err := parseVec3(fields[1:])
		if err != nil {
			return fmt.Errorf("v: %w", err)
		}
		m.Vertices = append(m.Vertices, v)
	case "vn":
		n, err := parseVec3(fields[1:])
		if err != nil {
			return fmt.Errorf("vn: %w", err)
		}
		m.Normals = append(m.Normals, n.Normalize())
	case "vt":
		// u [v [w]]; w is dropped.
		if len(fields) < 2 {
			return errors.New("vt: need at least u")
		}
		u, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("vt: %w", err)
		}
		var v float64
		if len(fields) > 2 {
			if v, err = strconv.ParseFloat(fields[2], 64); err != nil {
				return fmt.Errorf("vt: %w", err)
			}
		}
		m.TexCoords = append(m.TexCoords, math3d.V2(u, v))
	case "mtllib":
		if p.resolveLib != nil && len(fields) > 1 {
			resolve := p.resolveLib
			p.resolveLib = nil
			return resolve(fields[1])
		}
	case "usemtl":
		if len(fields) < 2 {
			return errors.New("usemtl without a name")
		}
		idx, ok := p.byName[fields[1]]
		if !ok {
			p.report.UnknownMaterials++
			return nil
		}
		p.current = idx
	case "f":
		return p.face(fields[1:])
	}
	return nil
}

type corner struct {
	v, t, n int
}

func (p *objParser) face(tokens []string) error {
	if len(tokens) < 3 {
		return fmt.Errorf("f: need at least 3 corners, got %d", len(tokens))
	}
	if p.current == NoMaterial && len(p.mesh.Materials) > 0 {
		p.report.SkippedFaces++
		return nil
	}
	corners := make([]corner, len(tokens))
	for i, tok := range tokens {
		c, err := p.parseCorner(tok)
		if err != nil {
			return fmt.Errorf("f corner %q: %w", tok, err)
		}
		corners[i] = c
	}
	// Fan around the first corner.
	for i := 2; i < len(corners); i++ {
		a, b, c := corners[0], corners[i-1], corners[i]
		p.mesh.Faces = append(p.mesh.Faces, Face{
			V:        [3]int{a.v, b.v, c.v},
			T:        [3]int{a.t, b.t, c.t},
			N:        [3]int{a.n, b.n, c.n},
			Material: p.current,
		})
	}
	return nil
}

// parseCorner handles v, v/t, v//n and v/t/n. OBJ indices are 1-based and may
// be negative, counting back from the end of the pool.
func (p *objParser) parseCorner(tok string) (corner, error) {
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return corner{}, errors.New("too many components")
	}
	c := corner{t: -1, n: -1}
	var err error
	if c.v, err = resolveIndex(parts[0], len(p.mesh.Vertices)); err != nil {
		return corner{}, fmt.Errorf("vertex: %w", err)
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.t, err = resolveIndex(parts[1], len(p.mesh.TexCoords)); err != nil {
			return corner{}, fmt.Errorf("texcoord: %w", err)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.n, err = resolveIndex(parts[2], len(p.mesh.Normals)); err != nil {
			return corner{}, fmt.Errorf("normal: %w", err)
		}
	}
	return c, nil
}

func resolveIndex(s string, poolLen int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += poolLen
	default:
		return 0, fmt.Errorf("index 0: %w", ErrIndexOutOfRange)
	}
	if i < 0 || i >= poolLen {
		return 0, fmt.Errorf("index %s of %d: %w", s, poolLen, ErrIndexOutOfRange)
	}
	return i, nil
}

func (p *objParser) finish() (*Mesh, LoadReport, error) {
	m := p.mesh
	if len(m.Faces) == 0 {
		return nil, p.report, ErrEmptyMesh
	}
	p.report.GeneratedNormals = m.GenerateNormals()
	if err := m.Validate(); err != nil {
		return nil, p.report, err
	}
	m.BuildAdjacency()
	m.FindOrigin()

	p.report.Vertices = len(m.Vertices)
	p.report.Normals = len(m.Normals)
	p.report.TexCoords = len(m.TexCoords)
	p.report.Faces = len(m.Faces)
	p.report.Materials = len(m.Materials)
	return m, p.report, nil
}

func stripComment(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i]
	}
	return s
}

func parseVec3(fields []string) (math3d.Vec3, error) {
	if len(fields) < 3 {
		return math3d.Vec3{}, fmt.Errorf("need 3 components, got %d", len(fields))
	}
	var xyz [3]float64
	for i := range 3 {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return math3d.Vec3{}, err
		}
		xyz[i] = f
	}
	return math3d.V3(xyz[0], xyz[1], xyz[2]), nil
}

func parseColor(fields []string) (Color, error) {
	v, err := parseVec3(fields)
	if err != nil {
		return Color{}, err
	}
	return RGB(v.X, v.Y, v.Z), nil
}

func parseScalar(fields []string) (float64, error) {
	if len(fields) < 1 {
		return 0, errors.New("missing value")
	}
	return strconv.ParseFloat(fields[0], 64)
}
