package model

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/gfx"
	"github.com/Faultbox/meshview/internal/engine/texture"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
)

// Mesh errors.
var (
	ErrNotInitialized = errors.New("draw before initialize")
	ErrNotLoaded      = errors.New("initialize before load")
	ErrEmptyMesh      = errors.New("mesh has no geometry")
)

// Mesh is one drawable batch: a vertex buffer, an index buffer, its textures
// and material coefficients.
type Mesh struct {
	Name string

	vertices []Vertex
	indices  []uint32
	textures []TextureRef
	material Material
	bounds   Bounds

	dev gfx.Device
	va  gfx.VertexArray
}

// NewMesh copies src into a Mesh. Faces must already be triangles. Each
// texture slot of the mesh material contributes at most its first path;
// paths whose image cannot be decoded are skipped with a warning.
func NewMesh(src *scene.Mesh, s *scene.Scene, cache *texture.Cache) (*Mesh, error) {
	m := &Mesh{
		Name:     src.Name,
		vertices: make([]Vertex, len(src.Positions)),
		bounds:   emptyBounds(),
	}

	hasNormals := src.HasNormals()
	hasTangents := src.HasTangentSpace()
	hasUV := src.HasTexCoords(0)
	for i, p := range src.Positions {
		v := &m.vertices[i]
		v.Position = p
		if hasNormals {
			v.Normal = src.Normals[i]
		}
		if hasUV {
			v.TexCoord = src.TexCoords[0][i]
		}
		if hasTangents {
			v.Tangent = src.Tangents[i]
			v.Bitangent = src.Bitangents[i]
		}
		m.bounds = m.bounds.Extend(p)
	}

	m.indices = make([]uint32, 0, len(src.Faces)*3)
	for fi, f := range src.Faces {
		if len(f.Indices) != 3 {
			return nil, fmt.Errorf("mesh %q face %d: %d indices, want a triangle", src.Name, fi, len(f.Indices))
		}
		for _, idx := range f.Indices {
			if int(idx) >= len(m.vertices) {
				return nil, fmt.Errorf("mesh %q face %d: index %d out of range (%d vertices)", src.Name, fi, idx, len(m.vertices))
			}
		}
		m.indices = append(m.indices, f.Indices...)
	}

	mat := s.Material(src)
	if mat != nil {
		m.material = Material{
			Name:      mat.Name,
			Ambient:   mat.Ambient,
			Diffuse:   mat.Diffuse,
			Specular:  mat.Specular,
			Shininess: mat.Shininess,
		}
		for _, t := range scene.TextureTypes {
			path, ok := mat.Texture(t)
			if !ok {
				continue
			}
			if ref, ok := loadTexture(s, cache, t, path); ok {
				m.textures = append(m.textures, ref)
			}
		}
	}
	return m, nil
}

// loadTexture decodes a material texture through the cache.
func loadTexture(s *scene.Scene, cache *texture.Cache, t scene.TextureType, path string) (TextureRef, bool) {
	var (
		key string
		err error
	)
	if scene.IsEmbedded(path) {
		key = s.Source + path
		data, ok := s.Embedded[path]
		if !ok {
			err = fmt.Errorf("%w: embedded %s", texture.ErrNotFound, path)
		} else {
			_, err = cache.ImageData(key, data)
		}
	} else {
		key = texture.Resolve(s.Dir, path)
		_, err = cache.Image(key)
	}
	if err != nil {
		logger.Named("model").Warn("texture unavailable",
			zap.String("path", key), zap.Stringer("slot", t), zap.Error(err))
		return TextureRef{}, false
	}
	return TextureRef{Type: t, Path: key}, true
}

// Initialize uploads the mesh textures through cache and creates its vertex
// array on dev. Calling it again is a no-op.
func (m *Mesh) Initialize(dev gfx.Device, cache *texture.Cache) error {
	if m.dev != nil {
		return nil
	}
	if len(m.indices) == 0 {
		return fmt.Errorf("mesh %q: %w", m.Name, ErrEmptyMesh)
	}

	for i := range m.textures {
		h, err := cache.Handle(dev, m.textures[i].Path)
		if err != nil {
			return fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		m.textures[i].Handle = h
	}

	va, err := dev.CreateVertexArray(VertexLayout, vertexBytes(m.vertices), m.indices)
	if err != nil {
		return fmt.Errorf("mesh %q: %w", m.Name, err)
	}
	m.va = va
	m.dev = dev
	return nil
}

// Initialized reports whether the mesh has GPU resources.
func (m *Mesh) Initialized() bool {
	return m.dev != nil
}

// Draw binds the mesh textures to their semantic units, sets the material
// uniforms and issues one indexed draw. Units bound here are reset to zero
// before returning.
func (m *Mesh) Draw(u gfx.Uniforms) error {
	if m.dev == nil {
		return fmt.Errorf("mesh %q: %w", m.Name, ErrNotInitialized)
	}

	// Later textures of the same type override earlier ones.
	var units [gfx.NumTextureUnits]uint32
	for _, t := range m.textures {
		if unit := int(t.Type); unit >= 0 && unit < gfx.NumTextureUnits {
			units[unit] = t.Handle
		}
	}

	var mask int32
	for unit, h := range units {
		u.SetInt(gfx.SamplerUniforms[unit], int32(unit))
		if h != 0 {
			m.dev.BindTexture(unit, h)
			mask |= 1 << unit
		}
	}
	u.SetInt(gfx.UniformTextureMask, mask)

	u.SetVec3(gfx.UniformAmbient, m.material.Ambient)
	u.SetVec3(gfx.UniformDiffuse, m.material.Diffuse)
	u.SetVec3(gfx.UniformSpecular, m.material.Specular)
	u.SetFloat(gfx.UniformShininess, m.material.Shininess)

	m.dev.BindVertexArray(m.va.VAO)
	m.dev.DrawElements(int32(len(m.indices)))
	m.dev.BindVertexArray(0)

	for unit, h := range units {
		if h != 0 {
			m.dev.BindTexture(unit, 0)
		}
	}
	return nil
}

// Release deletes the vertex array. Textures belong to the cache and stay.
func (m *Mesh) Release() {
	if m.dev == nil {
		return
	}
	m.dev.DeleteVertexArray(m.va)
	m.va = gfx.VertexArray{}
	m.dev = nil
	for i := range m.textures {
		m.textures[i].Handle = 0
	}
}

// Vertices returns the vertex records. The slice must not be modified.
func (m *Mesh) Vertices() []Vertex { return m.vertices }

// Indices returns the triangle indices. The slice must not be modified.
func (m *Mesh) Indices() []uint32 { return m.indices }

// Textures returns a copy of the texture references.
func (m *Mesh) Textures() []TextureRef {
	return append([]TextureRef(nil), m.textures...)
}

// Material returns the material coefficients.
func (m *Mesh) Material() Material { return m.material }

// Bounds returns the bounding box of the vertex positions.
func (m *Mesh) Bounds() Bounds { return m.bounds }

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.vertices) }

// IndexCount returns the number of indices.
func (m *Mesh) IndexCount() int { return len(m.indices) }
