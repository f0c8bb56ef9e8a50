package models

import (
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/softrast/pkg/math3d"
)

// GLTFLoader loads glTF/GLB files into the same pools the OBJ loader fills.
type GLTFLoader struct {
	// SmoothNormals averages face normals per vertex when a primitive carries
	// no NORMAL attribute. Otherwise each face gets its own flat normal.
	SmoothNormals bool
}

// NewGLTFLoader creates a new glTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{SmoothNormals: true}
}

// LoadGLB loads a binary glTF (.glb) file with default options.
func LoadGLB(path string) (*Mesh, LoadReport, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a glTF or GLB file. Every triangle primitive of every mesh in
// the document is merged into one Mesh; node transforms are not applied.
func (l *GLTFLoader) Load(path string) (*Mesh, LoadReport, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("open gltf: %w", err)
	}

	mesh := NewMesh(filepath.Base(path))
	for i, mat := range doc.Materials {
		mesh.Materials = append(mesh.Materials, convertMaterial(i, mat))
	}

	var report LoadReport
	for _, m := range doc.Meshes {
		n, err := l.processMesh(doc, m, mesh)
		if err != nil {
			return nil, report, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
		report.GeneratedNormals += n
	}
	if len(mesh.Faces) == 0 {
		return nil, report, ErrEmptyMesh
	}
	if err := mesh.Validate(); err != nil {
		return nil, report, err
	}
	mesh.BuildAdjacency()
	mesh.FindOrigin()

	report.Vertices = len(mesh.Vertices)
	report.Normals = len(mesh.Normals)
	report.TexCoords = len(mesh.TexCoords)
	report.Faces = len(mesh.Faces)
	report.Materials = len(mesh.Materials)
	return mesh, report, nil
}

func convertMaterial(i int, mat *gltf.Material) Material {
	out := DefaultMaterial()
	out.Name = mat.Name
	if out.Name == "" {
		out.Name = fmt.Sprintf("material%d", i)
	}
	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		c := pbr.BaseColorFactorOrDefault()
		out.Diffuse = Color{c[0], c[1], c[2], c[3]}
		out.Dissolve = c[3]
	}
	ef := mat.EmissiveFactor
	out.Emissive = RGB(ef[0], ef[1], ef[2])
	return out
}

// processMesh appends the triangle primitives of m and returns how many faces
// needed generated normals.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) (int, error) {
	generated := 0
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return generated, fmt.Errorf("read positions: %w", err)
		}

		var normals [][3]float32
		if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
				return generated, fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs [][2]float32
		if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
				return generated, fmt.Errorf("read uvs: %w", err)
			}
		}

		var indices []uint32
		if prim.Indices != nil {
			if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
				return generated, fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		for _, idx := range indices {
			if int(idx) >= len(positions) {
				return generated, fmt.Errorf("primitive index %d of %d: %w", idx, len(positions), ErrIndexOutOfRange)
			}
		}

		material := NoMaterial
		if prim.Material != nil {
			material = *prim.Material
		}

		baseVertex := len(mesh.Vertices)
		baseNormal := len(mesh.Normals)
		baseUV := len(mesh.TexCoords)
		for _, p := range positions {
			mesh.Vertices = append(mesh.Vertices, math3d.V3(float64(p[0]), float64(p[1]), float64(p[2])))
		}
		hasNormals := len(normals) == len(positions)
		if hasNormals {
			for _, n := range normals {
				mesh.Normals = append(mesh.Normals, math3d.V3(float64(n[0]), float64(n[1]), float64(n[2])).Normalize())
			}
		}
		hasUVs := len(uvs) == len(positions)
		for _, uv := range uvs {
			// glTF puts V=0 at the top of the image.
			mesh.TexCoords = append(mesh.TexCoords, math3d.V2(float64(uv[0]), 1-float64(uv[1])))
		}

		firstFace := len(mesh.Faces)
		for i := 0; i+2 < len(indices); i += 3 {
			f := Face{T: [3]int{-1, -1, -1}, N: [3]int{-1, -1, -1}, Material: material}
			for c := range 3 {
				idx := int(indices[i+c])
				f.V[c] = baseVertex + idx
				if hasNormals {
					f.N[c] = baseNormal + idx
				}
				if hasUVs {
					f.T[c] = baseUV + idx
				}
			}
			mesh.Faces = append(mesh.Faces, f)
		}

		if !hasNormals {
			if l.SmoothNormals {
				smoothPrimitiveNormals(mesh, firstFace, baseVertex, len(positions))
			} else {
				generated += mesh.GenerateNormals()
			}
		}
	}
	return generated, nil
}

// smoothPrimitiveNormals gives every vertex of one primitive the normalized
// sum of the unnormalized normals of its faces, so larger faces weigh more.
func smoothPrimitiveNormals(mesh *Mesh, firstFace, baseVertex, count int) {
	acc := make([]math3d.Vec3, count)
	for i := firstFace; i < len(mesh.Faces); i++ {
		f := mesh.Faces[i]
		v0, v1, v2 := mesh.Vertices[f.V[0]], mesh.Vertices[f.V[1]], mesh.Vertices[f.V[2]]
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		for c := range 3 {
			acc[f.V[c]-baseVertex] = acc[f.V[c]-baseVertex].Add(n)
		}
	}
	baseNormal := len(mesh.Normals)
	for _, n := range acc {
		mesh.Normals = append(mesh.Normals, n.Normalize())
	}
	for i := firstFace; i < len(mesh.Faces); i++ {
		for c := range 3 {
			mesh.Faces[i].N[c] = baseNormal + mesh.Faces[i].V[c] - baseVertex
		}
	}
}
