package importer

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/scene"
)

// triangleDoc builds a one-triangle document instanced by two nodes.
func triangleDoc() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Materials = []*gltf.Material{{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0, 0, 1},
			RoughnessFactor: gltf.Float(0.5),
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(0),
			Attributes: map[string]int{gltf.POSITION: pos, gltf.TEXCOORD_0: uv},
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "parent", Mesh: gltf.Index(0), Children: []int{1}, Translation: [3]float64{1, 2, 3}},
		{Name: "child", Mesh: gltf.Index(0), Scale: [3]float64{2, 2, 2}},
	}
	doc.Scenes[0].Nodes = []int{0}
	return doc
}

func TestConvertGLTF(t *testing.T) {
	s, err := convertGLTF(triangleDoc(), "assets", "tri.gltf")
	require.NoError(t, err)

	assert.True(t, s.UVTopLeft)
	assert.Equal(t, "assets", s.Dir)
	// The mesh is converted once and referenced by both nodes.
	require.Len(t, s.Meshes, 1)
	assert.Equal(t, 2, s.MeshRefs())

	m := s.Meshes[0]
	assert.Equal(t, 3, m.VertexCount())
	require.Len(t, m.Faces, 1)
	assert.Equal(t, []uint32{0, 1, 2}, m.Faces[0].Indices)
	assert.True(t, m.HasTexCoords(0))
	assert.False(t, m.HasNormals())

	require.Len(t, s.Materials, 1)
	mat := s.Materials[0]
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, mat.Diffuse)
	assert.Greater(t, mat.Shininess, float32(0))

	parent := s.Root.Children[0]
	assert.Equal(t, "parent", parent.Name)
	assert.True(t, parent.Transform.ApproxEqual(mgl32.Translate3D(1, 2, 3)))
	child := parent.Children[0]
	assert.True(t, child.Transform.ApproxEqual(mgl32.Scale3D(2, 2, 2)))
}

func TestConvertGLTFEmbeddedImage(t *testing.T) {
	doc := triangleDoc()
	doc.Images = []*gltf.Image{{URI: "data:image/png;base64,iVBORw0KGgo="}, {URI: "normal.png"}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}, {Source: gltf.Index(1)}}
	doc.Materials[0].PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: 0}
	doc.Materials[0].NormalTexture = &gltf.NormalTexture{Index: gltf.Index(1)}

	s, err := convertGLTF(doc, "", "tri.gltf")
	require.NoError(t, err)

	diffuse, ok := s.Materials[0].Texture(scene.TextureDiffuse)
	require.True(t, ok)
	assert.True(t, scene.IsEmbedded(diffuse))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, s.Embedded[diffuse])

	normal, ok := s.Materials[0].Texture(scene.TextureNormals)
	require.True(t, ok)
	assert.Equal(t, "normal.png", normal)
}

func TestConvertGLTFSkipsLines(t *testing.T) {
	doc := triangleDoc()
	doc.Meshes[0].Primitives[0].Mode = gltf.PrimitiveLines
	s, err := convertGLTF(doc, "", "lines.gltf")
	require.NoError(t, err)
	assert.Empty(t, s.Meshes)
}

func TestConvertGLTFStripAndFan(t *testing.T) {
	tests := []struct {
		mode gltf.PrimitiveMode
		want [][]uint32
	}{
		{gltf.PrimitiveTriangleStrip, [][]uint32{{0, 1, 2}, {1, 3, 2}}},
		{gltf.PrimitiveTriangleFan, [][]uint32{{0, 1, 2}, {0, 2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			doc := gltf.NewDocument()
			pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}})
			doc.Meshes = []*gltf.Mesh{{
				Name: "quad",
				Primitives: []*gltf.Primitive{{
					Mode:       tt.mode,
					Attributes: map[string]int{gltf.POSITION: pos},
				}},
			}}
			doc.Nodes = []*gltf.Node{{Name: "quad", Mesh: gltf.Index(0)}}
			doc.Scenes[0].Nodes = []int{0}

			s, err := convertGLTF(doc, "", "quad.gltf")
			require.NoError(t, err)
			require.Len(t, s.Meshes, 1)
			var got [][]uint32
			for _, f := range s.Meshes[0].Faces {
				got = append(got, f.Indices)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertGLTFAccessorOutOfRange(t *testing.T) {
	for _, attr := range []string{gltf.POSITION, gltf.NORMAL, gltf.TEXCOORD_0, "indices"} {
		t.Run(attr, func(t *testing.T) {
			doc := triangleDoc()
			prim := doc.Meshes[0].Primitives[0]
			if attr == "indices" {
				prim.Indices = gltf.Index(99)
			} else {
				prim.Attributes[attr] = 99
			}
			_, err := convertGLTF(doc, "", "bad.gltf")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "accessor 99 out of range")
		})
	}
}

func TestGLTFReadFileBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.glb")
	require.NoError(t, gltf.SaveBinary(triangleDoc(), path))

	s, err := ReadFile(path, DefaultPostProcess)
	require.NoError(t, err)
	require.Len(t, s.Meshes, 1)

	m := s.Meshes[0]
	assert.True(t, m.HasNormals())
	assert.True(t, m.HasTangentSpace())
	// glTF UVs are top-left already.
	assert.Equal(t, mgl32.Vec2{0, 1}, m.TexCoords[0][2])
	for _, n := range m.Normals {
		assert.True(t, n.ApproxEqual(mgl32.Vec3{0, 0, 1}), "normal %v", n)
	}
}

func TestShininessFromRoughness(t *testing.T) {
	assert.Equal(t, float32(256), shininessFromRoughness(0))
	assert.InDelta(t, 0, shininessFromRoughness(1), 1e-6)
	assert.Greater(t, shininessFromRoughness(0.3), shininessFromRoughness(0.6))
}
