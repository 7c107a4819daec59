// Package gfx defines the GPU operations meshes and models need, so that the
// data side can be exercised without a live rendering context.
package gfx

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexAttrib describes one float attribute inside an interleaved vertex.
type VertexAttrib struct {
	Location   uint32
	Components int32
	Offset     int
}

// VertexLayout describes an interleaved vertex buffer.
type VertexLayout struct {
	Stride  int32
	Attribs []VertexAttrib
}

// VertexArray holds the GPU objects backing one mesh.
type VertexArray struct {
	VAO   uint32
	VBO   uint32
	EBO   uint32
	Count int32
}

// Valid reports whether va refers to created GPU objects.
func (va VertexArray) Valid() bool {
	return va.VAO != 0
}

// Device creates and binds GPU resources. Implementations are bound to the
// thread owning the rendering context.
type Device interface {
	// CreateVertexArray uploads vertexData and indices and configures the
	// attribute bindings described by layout.
	CreateVertexArray(layout VertexLayout, vertexData []byte, indices []uint32) (VertexArray, error)
	DeleteVertexArray(va VertexArray)

	// CreateTexture uploads img as a mipmapped 2D texture.
	CreateTexture(img *image.RGBA) (uint32, error)
	DeleteTexture(handle uint32)

	// BindTexture binds handle to a texture unit; 0 unbinds.
	BindTexture(unit int, handle uint32)
	BindVertexArray(vao uint32)
	// DrawElements draws count indices as triangles from the bound vertex array.
	DrawElements(count int32)
}

// Uniforms sets shader uniforms by name. Unknown names are ignored.
type Uniforms interface {
	SetMat4(name string, m mgl32.Mat4)
	SetVec3(name string, v mgl32.Vec3)
	SetFloat(name string, f float32)
	SetInt(name string, i int32)
}

// Uniform names shared by the model shaders.
const (
	UniformModel          = "model"
	UniformProjection     = "projection"
	UniformView           = "view"
	UniformCameraPosition = "camera_position"
	UniformLightPosition  = "light_position"
	UniformLightDirection = "light_direction"

	UniformAmbient   = "material.ambient"
	UniformDiffuse   = "material.diffuse"
	UniformSpecular  = "material.specular"
	UniformShininess = "material.shininess"

	// UniformTextureMask has bit n set when texture unit n is bound.
	UniformTextureMask = "material.texture_mask"
)

// Texture units, one per semantic slot.
const (
	UnitDiffuse  = 0
	UnitSpecular = 1
	UnitNormals  = 2
	UnitHeight   = 3

	NumTextureUnits = 4
)

// SamplerUniforms maps a texture unit to its sampler uniform name.
var SamplerUniforms = [NumTextureUnits]string{
	UnitDiffuse:  "texture_diffuse",
	UnitSpecular: "texture_specular",
	UnitNormals:  "texture_normal",
	UnitHeight:   "texture_height",
}
