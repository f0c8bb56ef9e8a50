// Package models holds the triangle mesh and material model consumed by the
// renderer, plus loaders for Wavefront OBJ/MTL and binary glTF files.
package models

import (
	"errors"
	"fmt"

	"github.com/taigrr/softrast/pkg/math3d"
)

var (
	// ErrIndexOutOfRange is returned by Validate when a face points outside a pool.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrEmptyMesh is returned by loaders that produced no faces.
	ErrEmptyMesh = errors.New("mesh has no faces")
)

// Face is one triangle. Each corner holds 0-based indices into the vertex,
// texture-coordinate and normal pools; T entries may be -1 when absent.
type Face struct {
	V        [3]int
	T        [3]int
	N        [3]int
	Material int // Index into Mesh.Materials, or NoMaterial
}

// AdjacencyEntry records that a vertex is used by Face with normal Normal.
type AdjacencyEntry struct {
	Face   int
	Normal int
}

// Mesh is a triangle list over shared pools. All positions are in world space.
type Mesh struct {
	Name      string
	Vertices  []math3d.Vec3
	Normals   []math3d.Vec3
	TexCoords []math3d.Vec2
	Materials []Material
	Faces     []Face

	// Adjacency maps a vertex index to the faces touching it.
	// It is rebuilt by BuildAdjacency and must not be edited by hand.
	Adjacency [][]AdjacencyEntry

	origin      math3d.Vec3
	boundsMin   math3d.Vec3
	boundsMax   math3d.Vec3
	originValid bool
	boundsValid bool
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Touch marks derived values stale after the pools were edited directly.
func (m *Mesh) Touch() {
	m.originValid = false
	m.boundsValid = false
}

// Rotate rotates every vertex and normal about the world origin, around X
// first, then Y, then Z (radians).
//
// Euler rotations do not commute: undoing Rotate(a, b, c) takes
// Rotate(0, 0, -c), Rotate(0, -b, 0), Rotate(-a, 0, 0) in that order.
func (m *Mesh) Rotate(x, y, z float64) {
	m.Transform(math3d.EulerXYZ(x, y, z))
}

// RotateAroundPoint is Rotate with p as the pivot. Normals are only rotated.
func (m *Mesh) RotateAroundPoint(x, y, z float64, p math3d.Vec3) {
	mat := math3d.Translate(p).
		Mul(math3d.EulerXYZ(x, y, z)).
		Mul(math3d.Translate(p.Negate()))
	m.Transform(mat)
}

// Translate moves every vertex by offset.
func (m *Mesh) Translate(offset math3d.Vec3) {
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Add(offset)
	}
	m.Touch()
}

// Scale multiplies every vertex by s about the world origin.
func (m *Mesh) Scale(s float64) {
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Scale(s)
	}
	m.Touch()
}

// Transform applies mat to all vertices and its linear part to all normals.
// Normals are renormalized, which is exact for rotations and uniform scales.
func (m *Mesh) Transform(mat math3d.Mat4) {
	for i := range m.Vertices {
		m.Vertices[i] = mat.MulVec3(m.Vertices[i])
	}
	for i := range m.Normals {
		m.Normals[i] = mat.MulVec3Dir(m.Normals[i]).Normalize()
	}
	m.Touch()
}

// FindOrigin recomputes the centroid as the mean of all vertices.
// An empty mesh keeps its previous centroid.
func (m *Mesh) FindOrigin() math3d.Vec3 {
	m.originValid = true
	if len(m.Vertices) == 0 {
		return m.origin
	}
	var sum math3d.Vec3
	for _, v := range m.Vertices {
		sum = sum.Add(v)
	}
	m.origin = sum.Div(float64(len(m.Vertices)))
	return m.origin
}

// Origin returns the cached centroid, recomputing it if vertices moved.
func (m *Mesh) Origin() math3d.Vec3 {
	if !m.originValid {
		return m.FindOrigin()
	}
	return m.origin
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() (lo, hi math3d.Vec3) {
	if !m.boundsValid {
		m.calculateBounds()
	}
	return m.boundsMin, m.boundsMax
}

func (m *Mesh) calculateBounds() {
	m.boundsValid = true
	if len(m.Vertices) == 0 {
		m.boundsMin, m.boundsMax = math3d.Vec3{}, math3d.Vec3{}
		return
	}
	m.boundsMin = m.Vertices[0]
	m.boundsMax = m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		m.boundsMin = m.boundsMin.Min(v)
		m.boundsMax = m.boundsMax.Max(v)
	}
}

// Validate checks every face index against its pool.
func (m *Mesh) Validate() error {
	for i, f := range m.Faces {
		for c := range 3 {
			if f.V[c] < 0 || f.V[c] >= len(m.Vertices) {
				return fmt.Errorf("face %d corner %d: vertex %d of %d: %w", i, c, f.V[c], len(m.Vertices), ErrIndexOutOfRange)
			}
			if f.N[c] < 0 || f.N[c] >= len(m.Normals) {
				return fmt.Errorf("face %d corner %d: normal %d of %d: %w", i, c, f.N[c], len(m.Normals), ErrIndexOutOfRange)
			}
			if f.T[c] < -1 || f.T[c] >= len(m.TexCoords) {
				return fmt.Errorf("face %d corner %d: texcoord %d of %d: %w", i, c, f.T[c], len(m.TexCoords), ErrIndexOutOfRange)
			}
		}
		if f.Material < NoMaterial || f.Material >= len(m.Materials) {
			return fmt.Errorf("face %d: material %d of %d: %w", i, f.Material, len(m.Materials), ErrIndexOutOfRange)
		}
	}
	return nil
}

// BuildAdjacency rebuilds the vertex-to-face index. Faces are listed in
// ascending order for each vertex.
func (m *Mesh) BuildAdjacency() {
	m.Adjacency = make([][]AdjacencyEntry, len(m.Vertices))
	for fi, f := range m.Faces {
		for c := range 3 {
			v := f.V[c]
			m.Adjacency[v] = append(m.Adjacency[v], AdjacencyEntry{Face: fi, Normal: f.N[c]})
		}
	}
}

// SmoothNormals returns one unit normal per vertex: the average of the
// normals its adjacent faces use at that vertex. Vertices with no faces get
// the zero vector. Adjacency is built first if it is missing.
func (m *Mesh) SmoothNormals() []math3d.Vec3 {
	if len(m.Adjacency) != len(m.Vertices) {
		m.BuildAdjacency()
	}
	out := make([]math3d.Vec3, len(m.Vertices))
	for v, entries := range m.Adjacency {
		var sum math3d.Vec3
		for _, e := range entries {
			sum = sum.Add(m.Normals[e.Normal])
		}
		out[v] = sum.Normalize()
	}
	return out
}

// GenerateNormals fills in face normals for corners that have none (N < 0).
// Each such face gets its geometric normal appended to the normal pool,
// following counter-clockwise winding.
func (m *Mesh) GenerateNormals() int {
	added := 0
	for i := range m.Faces {
		f := &m.Faces[i]
		if f.N[0] >= 0 && f.N[1] >= 0 && f.N[2] >= 0 {
			continue
		}
		n := m.FaceNormal(i)
		idx := len(m.Normals)
		m.Normals = append(m.Normals, n)
		for c := range 3 {
			if f.N[c] < 0 {
				f.N[c] = idx
			}
		}
		added++
	}
	return added
}

// FaceNormal returns the geometric unit normal of face i.
func (m *Mesh) FaceNormal(i int) math3d.Vec3 {
	f := m.Faces[i]
	v0, v1, v2 := m.Vertices[f.V[0]], m.Vertices[f.V[1]], m.Vertices[f.V[2]]
	return v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
}

// FaceMaterial resolves the material of face i.
func (m *Mesh) FaceMaterial(i int) Material {
	idx := m.Faces[i].Material
	if idx < 0 || idx >= len(m.Materials) {
		return DefaultMaterial()
	}
	return m.Materials[idx]
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:        m.Name,
		Vertices:    append([]math3d.Vec3(nil), m.Vertices...),
		Normals:     append([]math3d.Vec3(nil), m.Normals...),
		TexCoords:   append([]math3d.Vec2(nil), m.TexCoords...),
		Materials:   append([]Material(nil), m.Materials...),
		Faces:       append([]Face(nil), m.Faces...),
		origin:      m.origin,
		boundsMin:   m.boundsMin,
		boundsMax:   m.boundsMax,
		originValid: m.originValid,
		boundsValid: m.boundsValid,
	}
	if m.Adjacency != nil {
		clone.Adjacency = make([][]AdjacencyEntry, len(m.Adjacency))
		for i, entries := range m.Adjacency {
			clone.Adjacency[i] = append([]AdjacencyEntry(nil), entries...)
		}
	}
	return clone
}

// FitToUnit centers the mesh on the world origin and scales it so its
// largest bounding-box side is size.
func (m *Mesh) FitToUnit(size float64) {
	lo, hi := m.Bounds()
	extent := hi.Sub(lo)
	largest := max(extent.X, extent.Y, extent.Z)
	m.Translate(lo.Add(hi).Scale(0.5).Negate())
	if largest > 0 {
		m.Scale(size / largest)
	}
}
