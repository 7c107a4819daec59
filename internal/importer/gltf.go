package importer

import (
	"fmt"
	gomath "math"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
)

// GLTF reads glTF 2.0 assets in both the JSON (.gltf) and binary (.glb)
// containers. Each triangle primitive becomes one scene mesh.
type GLTF struct{}

// Name implements Importer.
func (GLTF) Name() string { return "gltf" }

// Extensions implements Importer.
func (GLTF) Extensions() []string { return []string{".gltf", ".glb"} }

// Read implements Importer.
func (GLTF) Read(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return convertGLTF(doc, filepath.Dir(path), filepath.Base(path))
}

type gltfConverter struct {
	doc *gltf.Document
	out *scene.Scene

	// meshRanges[i] lists the scene mesh indices built from doc.Meshes[i].
	meshRanges map[int][]int
	// images maps a glTF image index to its material texture path.
	images map[int]string
}

func convertGLTF(doc *gltf.Document, dir, name string) (*scene.Scene, error) {
	c := &gltfConverter{
		doc:        doc,
		meshRanges: make(map[int][]int),
		images:     make(map[int]string),
		out: &scene.Scene{
			Root:      scene.NewNode(name),
			Dir:       dir,
			UVTopLeft: true,
			Embedded:  make(map[string][]byte),
		},
	}

	for i, m := range doc.Materials {
		c.out.Materials = append(c.out.Materials, c.material(i, m))
	}

	roots, err := c.rootNodes()
	if err != nil {
		return nil, err
	}
	visited := make(map[int]bool)
	for _, idx := range roots {
		if err := c.node(c.out.Root, idx, visited); err != nil {
			return nil, err
		}
	}
	return c.out, nil
}

// rootNodes returns the node indices of the default scene, falling back to
// the first scene, then to every node without a parent.
func (c *gltfConverter) rootNodes() ([]int, error) {
	doc := c.doc
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil {
			idx = *doc.Scene
		}
		if idx < 0 || idx >= len(doc.Scenes) {
			return nil, fmt.Errorf("default scene %d out of range", idx)
		}
		return doc.Scenes[idx].Nodes, nil
	}

	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, ch := range n.Children {
			if ch >= 0 && ch < len(hasParent) {
				hasParent[ch] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

func (c *gltfConverter) node(parent *scene.Node, idx int, visited map[int]bool) error {
	if idx < 0 || idx >= len(c.doc.Nodes) {
		return fmt.Errorf("node %d out of range", idx)
	}
	// A node may appear only once in a valid hierarchy; guard against cycles.
	if visited[idx] {
		return nil
	}
	visited[idx] = true

	src := c.doc.Nodes[idx]
	n := parent.AddChild(scene.NewNode(src.Name))
	n.Transform = localTransform(src)

	if src.Mesh != nil {
		meshes, err := c.mesh(*src.Mesh)
		if err != nil {
			return err
		}
		n.Meshes = append(n.Meshes, meshes...)
	}
	for _, ch := range src.Children {
		if err := c.node(n, ch, visited); err != nil {
			return err
		}
	}
	return nil
}

// mesh converts doc.Meshes[idx] once, even when several nodes instance it.
func (c *gltfConverter) mesh(idx int) ([]int, error) {
	if r, ok := c.meshRanges[idx]; ok {
		return r, nil
	}
	if idx < 0 || idx >= len(c.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", idx)
	}
	src := c.doc.Meshes[idx]

	var out []int
	for pi, prim := range src.Primitives {
		if !isTriangleMode(prim.Mode) {
			logger.Named("importer").Debug("skipping non-triangle primitive",
				zap.String("mesh", src.Name), zap.Int("primitive", pi))
			continue
		}
		m, err := c.primitive(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", src.Name, pi, err)
		}
		m.Name = src.Name
		if len(src.Primitives) > 1 {
			m.Name = fmt.Sprintf("%s.%d", src.Name, pi)
		}
		out = append(out, len(c.out.Meshes))
		c.out.Meshes = append(c.out.Meshes, m)
	}
	c.meshRanges[idx] = out
	return out, nil
}

func (c *gltfConverter) primitive(prim *gltf.Primitive) (*scene.Mesh, error) {
	doc := c.doc
	m := &scene.Mesh{MaterialIndex: -1}
	if prim.Material != nil {
		m.MaterialIndex = *prim.Material
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	acc, err := c.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(doc, acc, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	m.Positions = vec3s(positions)

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		acc, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
		m.Normals = vec3s(normals)
	}

	for ch := 0; ; ch++ {
		idx, ok := prim.Attributes[fmt.Sprintf("TEXCOORD_%d", ch)]
		if !ok {
			break
		}
		acc, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("read texcoord %d: %w", ch, err)
		}
		channel := make([]mgl32.Vec2, len(uvs))
		for i, uv := range uvs {
			channel[i] = mgl32.Vec2{uv[0], uv[1]}
		}
		m.TexCoords = append(m.TexCoords, channel)
	}

	if idx, ok := prim.Attributes[gltf.TANGENT]; ok && len(m.Normals) == len(m.Positions) {
		acc, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		tangents, err := modeler.ReadTangent(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("read tangents: %w", err)
		}
		if len(tangents) == len(m.Positions) {
			m.Tangents = make([]mgl32.Vec3, len(tangents))
			m.Bitangents = make([]mgl32.Vec3, len(tangents))
			for i, t := range tangents {
				tv := mgl32.Vec3{t[0], t[1], t[2]}
				// w carries the handedness of the tangent frame.
				m.Tangents[i] = tv
				m.Bitangents[i] = m.Normals[i].Cross(tv).Mul(t[3])
			}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		acc, err := c.accessor(*prim.Indices)
		if err != nil {
			return nil, err
		}
		indices, err = modeler.ReadIndices(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(m.Positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	m.Faces = triangles(prim.Mode, indices)
	return m, nil
}

func (c *gltfConverter) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return c.doc.Accessors[idx], nil
}

func isTriangleMode(mode gltf.PrimitiveMode) bool {
	switch mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
		return true
	}
	return false
}

// triangles unrolls strips and fans into a triangle list. Odd strip
// triangles swap their last two corners to keep the winding.
func triangles(mode gltf.PrimitiveMode, indices []uint32) []scene.Face {
	var faces []scene.Face
	add := func(a, b, c uint32) {
		faces = append(faces, scene.Face{Indices: []uint32{a, b, c}})
	}
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			if i%2 == 0 {
				add(indices[i], indices[i+1], indices[i+2])
			} else {
				add(indices[i], indices[i+2], indices[i+1])
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(indices); i++ {
			add(indices[0], indices[i], indices[i+1])
		}
	default:
		for i := 0; i+2 < len(indices); i += 3 {
			add(indices[i], indices[i+1], indices[i+2])
		}
	}
	return faces
}

func (c *gltfConverter) material(idx int, src *gltf.Material) *scene.Material {
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("material%d", idx)
	}
	m := scene.NewMaterial(name)
	m.Diffuse = mgl32.Vec3{1, 1, 1}
	roughness := float32(1)

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			m.Diffuse = mgl32.Vec3{float32(f[0]), float32(f[1]), float32(f[2])}
		}
		if pbr.RoughnessFactor != nil {
			roughness = float32(*pbr.RoughnessFactor)
		}
		if t := pbr.BaseColorTexture; t != nil {
			c.addTexture(m, scene.TextureDiffuse, t.Index)
		}
	}
	if t := src.NormalTexture; t != nil && t.Index != nil {
		c.addTexture(m, scene.TextureNormals, *t.Index)
	}

	// Phong approximation of the metallic-roughness model.
	gloss := 1 - clamp01(roughness)
	m.Specular = mgl32.Vec3{gloss, gloss, gloss}.Mul(0.5)
	m.Ambient = m.Diffuse.Mul(0.1)
	m.Shininess = shininessFromRoughness(roughness)
	return m
}

func (c *gltfConverter) addTexture(m *scene.Material, slot scene.TextureType, texIdx int) {
	doc := c.doc
	if texIdx < 0 || texIdx >= len(doc.Textures) || doc.Textures[texIdx].Source == nil {
		return
	}
	imgIdx := *doc.Textures[texIdx].Source
	if path, ok := c.images[imgIdx]; ok {
		m.AddTexture(slot, path)
		return
	}
	if imgIdx < 0 || imgIdx >= len(doc.Images) {
		return
	}
	img := doc.Images[imgIdx]

	var path string
	switch {
	case img.BufferView != nil:
		if *img.BufferView < 0 || *img.BufferView >= len(doc.BufferViews) {
			logger.Named("importer").Warn("embedded image buffer view out of range", zap.Int("image", imgIdx))
			return
		}
		data, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		if err != nil {
			logger.Named("importer").Warn("embedded image unreadable", zap.Int("image", imgIdx), zap.Error(err))
			return
		}
		path = scene.EmbeddedKey(imgIdx)
		c.out.Embedded[path] = data
	case img.IsEmbeddedResource():
		data, err := img.MarshalData()
		if err != nil {
			logger.Named("importer").Warn("embedded image unreadable", zap.Int("image", imgIdx), zap.Error(err))
			return
		}
		path = scene.EmbeddedKey(imgIdx)
		c.out.Embedded[path] = data
	case img.URI != "":
		path = img.URI
	default:
		return
	}
	c.images[imgIdx] = path
	m.AddTexture(slot, path)
}

// localTransform returns the node's matrix, or T*R*S when no matrix is set.
func localTransform(n *gltf.Node) mgl32.Mat4 {
	var zero [16]float64
	if n.Matrix != zero && n.Matrix != gltf.DefaultMatrix {
		var m mgl32.Mat4
		for i, v := range n.Matrix {
			m[i] = float32(v)
		}
		return m
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func vec3s(in [][3]float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(in))
	for i, v := range in {
		out[i] = mgl32.Vec3{v[0], v[1], v[2]}
	}
	return out
}

func clamp01(v float32) float32 {
	return float32(gomath.Max(0, gomath.Min(1, float64(v))))
}

// shininessFromRoughness maps roughness to a Blinn-Phong exponent.
func shininessFromRoughness(r float32) float32 {
	r = clamp01(r)
	if r < 0.05 {
		r = 0.05
	}
	s := 2/(r*r*r*r) - 2
	if s > 256 {
		s = 256
	}
	return s
}
