// Package model turns imported scenes into GPU meshes and draws them with a
// per-model transform.
//
// Loading is two-phase: LoadSceneFromFile extracts vertex, index, material
// and texture data on the CPU, and Initialize uploads it once a rendering
// context exists. Draw must not be called before Initialize.
package model

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/engine/gfx"
	"github.com/Faultbox/meshview/internal/scene"
)

// Vertex is the interleaved per-vertex record uploaded to the GPU.
type Vertex struct {
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	TexCoord  mgl32.Vec2
	Tangent   mgl32.Vec3
	Bitangent mgl32.Vec3
}

// VertexSize is the size of Vertex in bytes.
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// Attribute locations of the Vertex fields.
const (
	AttribPosition  = 0
	AttribNormal    = 1
	AttribTexCoord  = 2
	AttribTangent   = 3
	AttribBitangent = 4
)

// VertexLayout binds the Vertex fields to their attribute locations.
var VertexLayout = gfx.VertexLayout{
	Stride: int32(VertexSize),
	Attribs: []gfx.VertexAttrib{
		{Location: AttribPosition, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Position))},
		{Location: AttribNormal, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Normal))},
		{Location: AttribTexCoord, Components: 2, Offset: int(unsafe.Offsetof(Vertex{}.TexCoord))},
		{Location: AttribTangent, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Tangent))},
		{Location: AttribBitangent, Components: 3, Offset: int(unsafe.Offsetof(Vertex{}.Bitangent))},
	},
}

// vertexBytes views vertices as raw bytes for upload.
func vertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*VertexSize)
}

// TextureRef is one texture used by a mesh. Handle is zero until the mesh
// is initialized.
type TextureRef struct {
	Type   scene.TextureType
	Path   string
	Handle uint32
}

// Material holds the Phong coefficients copied from the imported material.
type Material struct {
	Name      string
	Ambient   mgl32.Vec3
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Shininess float32
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// emptyBounds is inverted so the first point sets both corners.
func emptyBounds() Bounds {
	return Bounds{
		Min: mgl32.Vec3{1e10, 1e10, 1e10},
		Max: mgl32.Vec3{-1e10, -1e10, -1e10},
	}
}

// Empty reports whether b contains no points.
func (b Bounds) Empty() bool {
	return b.Min[0] > b.Max[0]
}

// Extend grows b to contain p.
func (b Bounds) Extend(p mgl32.Vec3) Bounds {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Union returns the box containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	if o.Empty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Center returns the middle of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extent on each axis.
func (b Bounds) Size() mgl32.Vec3 {
	if b.Empty() {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}
