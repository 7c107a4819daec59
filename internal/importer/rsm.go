package importer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/scene"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

// RSM reads Ragnarok Online resource models. Vertices are flattened into
// model space with the node hierarchy applied, one mesh per node and texture.
type RSM struct{}

// Name implements Importer.
func (RSM) Name() string { return "rsm" }

// Extensions implements Importer.
func (RSM) Extensions() []string { return []string{".rsm"} }

// Read implements Importer.
func (RSM) Read(path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	model, err := ParseRSM(data)
	if err != nil {
		return nil, err
	}
	return model.Scene(filepath.Dir(path), filepath.Base(path)), nil
}

// RSMVersion is the file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMFace is a triangle of an RSM node.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	TwoSide     int32
}

// RSMNode is one node of the model hierarchy.
type RSMNode struct {
	Name       string
	Parent     string
	TextureIDs []int32

	Matrix   [9]float32 // 3x3, column-major
	Offset   [3]float32
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords [][2]float32
	Faces     []RSMFace

	// RotKey is the first rotation keyframe (x, y, z, w), used as the static pose.
	RotKey *[4]float32
}

// RSMModel is a parsed RSM file.
type RSMModel struct {
	Version  RSMVersion
	Textures []string
	RootNode string
	Nodes    []RSMNode
}

// rsmReader reads little-endian values and remembers the first error.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (r *rsmReader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		r.err = ErrTruncatedRSMData
	}
}

func (r *rsmReader) i32() int32 {
	var v int32
	r.read(&v)
	return v
}

func (r *rsmReader) skip(n int64) {
	if r.err != nil {
		return
	}
	if n > int64(r.r.Len()) {
		r.err = ErrTruncatedRSMData
		return
	}
	if _, err := r.r.Seek(n, io.SeekCurrent); err != nil {
		r.err = ErrTruncatedRSMData
	}
}

// str reads a fixed-length NUL-padded string.
func (r *rsmReader) str(n int) string {
	buf := make([]byte, n)
	r.read(buf)
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return decodeName(buf)
}

// count reads an element count and rejects values outside [0, max).
func (r *rsmReader) count(what string, max int32) int {
	n := r.i32()
	if r.err == nil && (n < 0 || n >= max) {
		r.err = fmt.Errorf("%w: %s count %d", ErrTruncatedRSMData, what, n)
	}
	if r.err != nil {
		return 0
	}
	return int(n)
}

// ParseRSM parses RSM data from a byte slice.
func ParseRSM(data []byte) (*RSMModel, error) {
	if len(data) < 14 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	r := &rsmReader{r: bytes.NewReader(data[4:])}
	m := &RSMModel{}
	r.read(&m.Version.Major)
	r.read(&m.Version.Minor)
	if m.Version.Major < 1 || m.Version.Major > 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, m.Version)
	}

	r.i32() // animation length
	r.i32() // shading type
	if m.Version.AtLeast(1, 4) {
		var alpha uint8
		r.read(&alpha)
	}
	r.skip(16) // reserved

	m.Textures = make([]string, r.count("texture", 1000))
	for i := range m.Textures {
		m.Textures[i] = r.str(40)
	}
	m.RootNode = r.str(40)

	nodeCount := r.i32()
	if r.err != nil {
		return nil, r.err
	}
	if nodeCount < 0 || nodeCount > 10000 {
		return nil, ErrInvalidNodeCount
	}

	m.Nodes = make([]RSMNode, nodeCount)
	for i := range m.Nodes {
		parseRSMNode(r, m.Version, &m.Nodes[i])
		if r.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, r.err)
		}
	}
	return m, nil
}

func parseRSMNode(r *rsmReader, v RSMVersion, n *RSMNode) {
	n.Name = r.str(40)
	n.Parent = r.str(40)

	n.TextureIDs = make([]int32, r.count("node texture", 1000))
	for i := range n.TextureIDs {
		n.TextureIDs[i] = r.i32()
	}

	r.read(&n.Matrix)
	r.read(&n.Offset)
	r.read(&n.Position)
	r.read(&n.RotAngle)
	r.read(&n.RotAxis)
	r.read(&n.Scale)

	n.Vertices = make([][3]float32, r.count("vertex", 100000))
	for i := range n.Vertices {
		r.read(&n.Vertices[i])
	}

	n.TexCoords = make([][2]float32, r.count("texcoord", 100000))
	for i := range n.TexCoords {
		if v.AtLeast(1, 2) {
			r.skip(4) // vertex color
		}
		r.read(&n.TexCoords[i])
	}

	n.Faces = make([]RSMFace, r.count("face", 100000))
	for i := range n.Faces {
		f := &n.Faces[i]
		r.read(&f.VertexIDs)
		r.read(&f.TexCoordIDs)
		r.read(&f.TextureID)
		r.skip(2) // padding
		r.read(&f.TwoSide)
		if v.AtLeast(1, 2) {
			r.i32() // smoothing group
		}
	}

	if !v.AtLeast(1, 5) {
		for i, c := 0, r.count("position key", 10000); i < c; i++ {
			r.skip(4 + 12)
		}
	}
	for i, c := 0, r.count("rotation key", 10000); i < c; i++ {
		r.i32() // frame
		var q [4]float32
		r.read(&q)
		if i == 0 && r.err == nil {
			n.RotKey = &q
		}
	}
	if v.AtLeast(1, 5) {
		for i, c := 0, r.count("scale key", 10000); i < c; i++ {
			r.skip(4 + 12)
		}
	}
}

// Node returns a node by name, or nil.
func (m *RSMModel) Node(name string) *RSMNode {
	for i := range m.Nodes {
		if m.Nodes[i].Name == name {
			return &m.Nodes[i]
		}
	}
	return nil
}

// hierarchyMatrix is parent * Position * Rotation * Scale; children inherit it.
func (m *RSMModel) hierarchyMatrix(n *RSMNode, visited map[string]bool) mgl32.Mat4 {
	if visited[n.Name] {
		return mgl32.Ident4()
	}
	visited[n.Name] = true

	local := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	switch {
	case n.RotKey != nil:
		q := mgl32.Quat{W: n.RotKey[3], V: mgl32.Vec3{n.RotKey[0], n.RotKey[1], n.RotKey[2]}}
		local = local.Mul4(q.Normalize().Mat4())
	case n.RotAngle != 0:
		axis := mgl32.Vec3(n.RotAxis)
		if axis.Len() > 1e-6 {
			local = local.Mul4(mgl32.HomogRotate3D(n.RotAngle, axis.Normalize()))
		}
	}
	local = local.Mul4(mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2]))

	if n.Parent != "" && n.Parent != n.Name {
		if p := m.Node(n.Parent); p != nil {
			return m.hierarchyMatrix(p, visited).Mul4(local)
		}
	}
	return local
}

// VertexMatrix is the hierarchy matrix followed by the node-only offset and
// 3x3 transform, which children do not inherit.
func (m *RSMModel) VertexMatrix(n *RSMNode) mgl32.Mat4 {
	h := m.hierarchyMatrix(n, make(map[string]bool))
	return h.Mul4(mgl32.Translate3D(n.Offset[0], n.Offset[1], n.Offset[2])).
		Mul4(mgl32.Mat3(n.Matrix).Mat4())
}

// Scene converts the model into a scene graph. dir is used to resolve
// texture names against the conventional data/texture layout.
func (m *RSMModel) Scene(dir, name string) *scene.Scene {
	s := &scene.Scene{
		Root:      scene.NewNode(name),
		Dir:       dir,
		UVTopLeft: true,
	}
	for _, tex := range m.Textures {
		mat := scene.NewMaterial(tex)
		mat.Ambient = mgl32.Vec3{0.3, 0.3, 0.3}
		mat.Diffuse = mgl32.Vec3{1, 1, 1}
		mat.AddTexture(scene.TextureDiffuse, rsmTexturePath(dir, tex))
		s.Materials = append(s.Materials, mat)
	}

	nodes := make(map[string]*scene.Node, len(m.Nodes))
	for i := range m.Nodes {
		rn := &m.Nodes[i]
		sn := scene.NewNode(rn.Name)
		nodes[rn.Name] = sn
		sn.Meshes = m.nodeMeshes(s, rn)
	}

	// Attach children under their parents; orphans and the root hang off
	// the scene root.
	for i := range m.Nodes {
		rn := &m.Nodes[i]
		sn := nodes[rn.Name]
		parent, ok := nodes[rn.Parent]
		if !ok || rn.Parent == rn.Name || rn.Name == m.RootNode || createsCycle(m, rn) {
			s.Root.AddChild(sn)
			continue
		}
		parent.AddChild(sn)
	}
	return s
}

// createsCycle reports whether following parents from n returns to n.
func createsCycle(m *RSMModel, n *RSMNode) bool {
	seen := map[string]bool{n.Name: true}
	for p := m.Node(n.Parent); p != nil && p.Parent != "" && p.Parent != p.Name; p = m.Node(p.Parent) {
		if seen[p.Parent] {
			return true
		}
		seen[p.Parent] = true
	}
	return false
}

// nodeMeshes emits one mesh per texture used by n and returns their indices.
func (m *RSMModel) nodeMeshes(s *scene.Scene, n *RSMNode) []int {
	mat := m.VertexMatrix(n)

	type vkey struct{ v, t uint16 }
	type group struct {
		mesh  *scene.Mesh
		verts map[vkey]uint32
	}
	groups := make(map[int]*group)

	for _, f := range n.Faces {
		valid := true
		for _, vid := range f.VertexIDs {
			if int(vid) >= len(n.Vertices) {
				valid = false
			}
		}
		if !valid {
			continue
		}

		tex := 0
		if int(f.TextureID) < len(n.TextureIDs) {
			tex = int(n.TextureIDs[f.TextureID])
		}
		g, ok := groups[tex]
		if !ok {
			matIdx := -1
			if tex >= 0 && tex < len(s.Materials) {
				matIdx = tex
			}
			g = &group{
				mesh:  &scene.Mesh{Name: fmt.Sprintf("%s.%d", n.Name, tex), MaterialIndex: matIdx, TexCoords: [][]mgl32.Vec2{nil}},
				verts: make(map[vkey]uint32),
			}
			groups[tex] = g
		}

		face := scene.Face{Indices: make([]uint32, 3)}
		for j := 0; j < 3; j++ {
			// Flipping Y mirrors the model; reverse the winding to keep it front-facing.
			k := vkey{f.VertexIDs[2-j], f.TexCoordIDs[2-j]}
			idx, ok := g.verts[k]
			if !ok {
				idx = uint32(len(g.mesh.Positions))
				g.verts[k] = idx
				p := mat.Mul4x1(mgl32.Vec3(n.Vertices[k.v]).Vec4(1)).Vec3()
				p[1] = -p[1]
				g.mesh.Positions = append(g.mesh.Positions, p)

				var uv mgl32.Vec2
				if int(k.t) < len(n.TexCoords) {
					uv = mgl32.Vec2(n.TexCoords[k.t])
				}
				g.mesh.TexCoords[0] = append(g.mesh.TexCoords[0], uv)
			}
			face.Indices[j] = idx
		}
		g.mesh.Faces = append(g.mesh.Faces, face)
	}

	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var out []int
	for _, k := range keys {
		out = append(out, len(s.Meshes))
		s.Meshes = append(s.Meshes, groups[k].mesh)
	}
	return out
}

// rsmTexturePath resolves an RSM texture name. Names are relative to the
// client's data/texture directory and use backslashes.
func rsmTexturePath(dir, name string) string {
	rel := filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	lower := filepath.FromSlash(normalizeAssetPath(name))
	candidates := []string{
		rel,
		filepath.Join("texture", rel),
		filepath.Join("..", "texture", rel),
	}
	if lower != rel {
		candidates = append(candidates,
			lower,
			filepath.Join("texture", lower),
			filepath.Join("..", "texture", lower),
		)
	}
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(dir, c)); err == nil {
			return c
		}
	}
	return rel
}
