// Package scene defines the importer-neutral scene graph handed from asset
// readers to the model builder.
//
// A Scene is a borrowed, read-only view: consumers copy what they need and
// keep no references once loading finishes.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// TextureType is the shading role of a texture map.
type TextureType int

const (
	TextureDiffuse  TextureType = 0
	TextureSpecular TextureType = 1
	TextureNormals  TextureType = 2
	TextureHeight   TextureType = 3
)

// TextureTypes lists every semantic slot in binding order.
var TextureTypes = [...]TextureType{TextureDiffuse, TextureSpecular, TextureNormals, TextureHeight}

// String returns a human-readable texture type name.
func (t TextureType) String() string {
	switch t {
	case TextureDiffuse:
		return "Diffuse"
	case TextureSpecular:
		return "Specular"
	case TextureNormals:
		return "Normals"
	case TextureHeight:
		return "Height"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// Material holds the shading coefficients and texture paths of a surface.
type Material struct {
	Name      string
	Ambient   mgl32.Vec3
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Shininess float32

	// Textures maps a slot to its texture paths, in declaration order.
	// Paths are relative to Scene.Dir unless absolute.
	Textures map[TextureType][]string
}

// NewMaterial returns a material with the given name and an empty texture table.
func NewMaterial(name string) *Material {
	return &Material{
		Name:     name,
		Textures: make(map[TextureType][]string),
	}
}

// Texture returns the first texture path bound to slot t.
func (m *Material) Texture(t TextureType) (string, bool) {
	if m == nil {
		return "", false
	}
	paths := m.Textures[t]
	if len(paths) == 0 {
		return "", false
	}
	return paths[0], true
}

// AddTexture appends a texture path to slot t.
func (m *Material) AddTexture(t TextureType, path string) {
	if m.Textures == nil {
		m.Textures = make(map[TextureType][]string)
	}
	m.Textures[t] = append(m.Textures[t], path)
}

// Face is one polygon. Readers may emit polygons of any arity; the
// Triangulate post-process step reduces them to triangles.
type Face struct {
	Indices []uint32
}

// Mesh is a single sub-mesh as produced by a reader. Per-vertex attribute
// slices are either empty or exactly len(Positions) long.
type Mesh struct {
	Name       string
	Positions  []mgl32.Vec3
	Normals    []mgl32.Vec3
	Tangents   []mgl32.Vec3
	Bitangents []mgl32.Vec3

	// TexCoords holds one slice per UV channel.
	TexCoords [][]mgl32.Vec2

	Faces []Face

	// MaterialIndex indexes Scene.Materials, or is negative when unset.
	MaterialIndex int
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// HasNormals reports whether every vertex has a normal.
func (m *Mesh) HasNormals() bool {
	return len(m.Positions) > 0 && len(m.Normals) == len(m.Positions)
}

// HasTangentSpace reports whether tangents and bitangents are present.
func (m *Mesh) HasTangentSpace() bool {
	return len(m.Positions) > 0 &&
		len(m.Tangents) == len(m.Positions) &&
		len(m.Bitangents) == len(m.Positions)
}

// HasTexCoords reports whether UV channel ch is present.
func (m *Mesh) HasTexCoords(ch int) bool {
	return ch >= 0 && ch < len(m.TexCoords) && len(m.TexCoords[ch]) == len(m.Positions) && len(m.Positions) > 0
}

// Node is a scene graph node. Children are owned by their parent.
type Node struct {
	Name      string
	Transform mgl32.Mat4
	Meshes    []int
	Children  []*Node
}

// NewNode returns a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: mgl32.Ident4()}
}

// AddChild appends child to n and returns it.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Scene is the complete output of a reader.
type Scene struct {
	Root      *Node
	Meshes    []*Mesh
	Materials []*Material

	// Dir is the directory relative texture paths resolve against.
	Dir string

	// Source is the file the scene was read from.
	Source string

	// Embedded holds texture images stored inside the asset file, keyed by
	// the "*N" pseudo-paths that materials reference them with.
	Embedded map[string][]byte

	// UVTopLeft is set by readers whose UV origin already matches the
	// uploaded image orientation. FlipUVs is skipped for such scenes.
	UVTopLeft bool
}

// Material returns the material referenced by mesh, or nil.
func (s *Scene) Material(mesh *Mesh) *Material {
	if mesh == nil || mesh.MaterialIndex < 0 || mesh.MaterialIndex >= len(s.Materials) {
		return nil
	}
	return s.Materials[mesh.MaterialIndex]
}

// EmbeddedKey returns the pseudo-path of the n-th embedded texture.
func EmbeddedKey(n int) string {
	return fmt.Sprintf("*%d", n)
}

// IsEmbedded reports whether a material texture path names an embedded image.
func IsEmbedded(path string) bool {
	return len(path) > 1 && path[0] == '*'
}

// Walk visits nodes in pre-order (node before its children). Returning a
// non-nil error from fn stops the walk.
func (s *Scene) Walk(fn func(n *Node, depth int) error) error {
	if s.Root == nil {
		return nil
	}
	return walk(s.Root, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) error) error {
	if err := fn(n, depth); err != nil {
		return err
	}
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if err := walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// MeshRefs returns the number of mesh references reachable from the root.
func (s *Scene) MeshRefs() int {
	count := 0
	_ = s.Walk(func(n *Node, _ int) error {
		count += len(n.Meshes)
		return nil
	})
	return count
}
