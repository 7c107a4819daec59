package importer

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
)

// OBJ reads Wavefront OBJ files and their MTL material libraries.
//
// Every object or group, and every material switch inside one, starts a new
// sub-mesh. Each sub-mesh becomes one child node of the root.
type OBJ struct{}

// Name implements Importer.
func (OBJ) Name() string { return "obj" }

// Extensions implements Importer.
func (OBJ) Extensions() []string { return []string{".obj"} }

// Read implements Importer.
func (OBJ) Read(path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// The material library is resolved against the OBJ directory below, so
	// the decoder gets an empty one.
	dec, err := obj.DecodeReader(bytes.NewReader(normalizeOBJ(data)), strings.NewReader(""))
	if err != nil {
		return nil, err
	}

	r := newOBJReader(dec, filepath.Dir(path))
	if dec.Matlib != "" {
		r.loadMTL(dec.Matlib)
	}
	if err := r.build(); err != nil {
		return nil, err
	}
	return r.scene(filepath.Base(path)), nil
}

// DefaultMaterial is assigned to OBJ faces declared before any usemtl.
func DefaultMaterial() *scene.Material {
	m := scene.NewMaterial("default")
	m.Diffuse = mgl32.Vec3{0.6, 0.6, 0.6}
	return m
}

// objNoIndex is the decoder's marker for a face corner without a texture
// coordinate or normal.
const objNoIndex = math.MaxUint32

// objKey identifies a unique position/texcoord/normal combination.
type objKey [3]int

type objReader struct {
	dec *obj.Decoder
	dir string

	materials  []*scene.Material
	matIndex   map[string]int
	defaultIdx int

	meshes []*scene.Mesh
}

func newOBJReader(dec *obj.Decoder, dir string) *objReader {
	return &objReader{
		dec:        dec,
		dir:        dir,
		matIndex:   make(map[string]int),
		defaultIdx: -1,
	}
}

// build turns every decoded object into one mesh per run of faces sharing a
// material.
func (r *objReader) build() error {
	for oi := range r.dec.Objects {
		ob := &r.dec.Objects[oi]
		runs := materialRuns(ob.Faces)
		for ri, run := range runs {
			name := ob.Name
			if len(runs) > 1 {
				name = fmt.Sprintf("%s_%d", ob.Name, ri)
			}
			mesh, err := r.mesh(name, run)
			if err != nil {
				return fmt.Errorf("object %s: %w", ob.Name, err)
			}
			r.meshes = append(r.meshes, mesh)
		}
	}
	return nil
}

// materialRuns splits faces wherever the material changes.
func materialRuns(faces []obj.Face) [][]obj.Face {
	var runs [][]obj.Face
	start := 0
	for i := 1; i <= len(faces); i++ {
		if i == len(faces) || faces[i].Material != faces[start].Material {
			runs = append(runs, faces[start:i])
			start = i
		}
	}
	return runs
}

func (r *objReader) mesh(name string, faces []obj.Face) (*scene.Mesh, error) {
	limits := [3]int{len(r.dec.Vertices) / 3, len(r.dec.Uvs) / 2, len(r.dec.Normals) / 3}

	mesh := &scene.Mesh{Name: name, MaterialIndex: r.material(faces[0].Material)}
	verts := make(map[objKey]uint32)
	var (
		uvs     []mgl32.Vec2
		normals []mgl32.Vec3
		anyUV   bool
		allNorm = true
	)

	for fi := range faces {
		f := &faces[fi]
		face := scene.Face{Indices: make([]uint32, 0, len(f.Vertices))}
		for i := range f.Vertices {
			key, err := faceCorner(f, i, limits)
			if err != nil {
				return nil, err
			}
			idx, ok := verts[key]
			if !ok {
				idx = uint32(len(mesh.Positions))
				verts[key] = idx
				mesh.Positions = append(mesh.Positions, vec3At(r.dec.Vertices, key[0]))

				var uv mgl32.Vec2
				if key[1] >= 0 {
					uv = mgl32.Vec2{r.dec.Uvs[2*key[1]], r.dec.Uvs[2*key[1]+1]}
					anyUV = true
				}
				uvs = append(uvs, uv)

				var n mgl32.Vec3
				if key[2] >= 0 {
					n = vec3At(r.dec.Normals, key[2])
				} else {
					allNorm = false
				}
				normals = append(normals, n)
			}
			face.Indices = append(face.Indices, idx)
		}
		mesh.Faces = append(mesh.Faces, face)
	}

	if anyUV {
		mesh.TexCoords = [][]mgl32.Vec2{uvs}
	}
	if allNorm {
		mesh.Normals = normals
	}
	return mesh, nil
}

// faceCorner validates corner i of f against the decoded element counts.
// Absent texcoords and normals come back as -1.
func faceCorner(f *obj.Face, i int, limits [3]int) (objKey, error) {
	key := objKey{-1, -1, -1}
	refs := [3][]int{f.Vertices, f.Uvs, f.Normals}
	for c, ref := range refs {
		if i >= len(ref) || (c > 0 && ref[i] == objNoIndex) {
			if c == 0 {
				return key, fmt.Errorf("face corner %d has no position", i)
			}
			continue
		}
		if n := ref[i]; n < 0 || n >= limits[c] {
			return key, fmt.Errorf("face corner %d references element %d of %d", i, n+1, limits[c])
		}
		key[c] = ref[i]
	}
	return key, nil
}

func vec3At(a []float32, i int) mgl32.Vec3 {
	return mgl32.Vec3{a[3*i], a[3*i+1], a[3*i+2]}
}

func (r *objReader) material(name string) int {
	if idx, ok := r.matIndex[name]; ok {
		return idx
	}
	if _, ok := r.dec.Materials[name]; !ok {
		// No usemtl before these faces.
		if r.defaultIdx < 0 {
			r.materials = append(r.materials, DefaultMaterial())
			r.defaultIdx = len(r.materials) - 1
		}
		return r.defaultIdx
	}
	// Referenced but never defined: keep the name so it shows in stats.
	m := DefaultMaterial()
	m.Name = name
	r.materials = append(r.materials, m)
	r.matIndex[name] = len(r.materials) - 1
	return len(r.materials) - 1
}

func (r *objReader) loadMTL(name string) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, name)
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Named("importer").Warn("material library unavailable",
			zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	mats, err := ParseMTL(f)
	if err != nil {
		logger.Named("importer").Warn("material library unreadable",
			zap.String("path", path), zap.Error(err))
		return
	}
	for _, m := range mats {
		r.materials = append(r.materials, m)
		r.matIndex[m.Name] = len(r.materials) - 1
	}
}

func (r *objReader) scene(name string) *scene.Scene {
	s := &scene.Scene{
		Root:      scene.NewNode(name),
		Materials: r.materials,
		Dir:       r.dir,
	}
	for _, m := range r.meshes {
		idx := len(s.Meshes)
		s.Meshes = append(s.Meshes, m)
		child := scene.NewNode(m.Name)
		child.Meshes = []int{idx}
		s.Root.AddChild(child)
	}
	return s
}

// normalizeOBJ rewrites valid statements the decoder rejects: numbered
// smoothing groups, one-component texture coordinates and unnamed groups.
func normalizeOBJ(data []byte) []byte {
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		fields := strings.Fields(string(line))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "s":
			if len(fields) > 1 && fields[1] != "0" && fields[1] != "off" && fields[1] != "1" && fields[1] != "on" {
				lines[i] = []byte("s 1")
			}
		case "vt":
			if len(fields) == 2 {
				lines[i] = []byte("vt " + fields[1] + " 0")
			}
		case "o", "g":
			if len(fields) == 1 {
				lines[i] = []byte(fields[0] + " default")
			}
		}
	}
	return bytes.Join(lines, []byte("\n"))
}
