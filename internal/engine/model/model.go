package model

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/gfx"
	"github.com/Faultbox/meshview/internal/engine/texture"
	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
)

// Model is a loaded asset instance: its meshes in scene pre-order plus a
// transform.
//
// Lifecycle: New (empty) -> LoadSceneFromFile -> Initialize -> Draw. A model
// is used from the rendering thread only. The zero Model reads through
// importer.Default and texture.Default with no post-processing.
type Model struct {
	Transform

	meshes []*Mesh
	source string

	registry *importer.Registry
	flags    importer.PostProcess
	cache    *texture.Cache

	dev gfx.Device
}

// Option configures a Model.
type Option func(*Model)

// WithTextureCache sets the cache textures are decoded and uploaded through.
func WithTextureCache(c *texture.Cache) Option {
	return func(m *Model) { m.cache = c }
}

// WithRegistry sets the importer registry used to read files.
func WithRegistry(r *importer.Registry) Option {
	return func(m *Model) { m.registry = r }
}

// WithPostProcess replaces the import post-processing policy.
func WithPostProcess(flags importer.PostProcess) Option {
	return func(m *Model) { m.flags = flags }
}

// New returns an empty model with an identity transform.
func New(opts ...Option) *Model {
	m := &Model{
		Transform: NewTransform(),
		registry:  importer.Default,
		flags:     importer.DefaultPostProcess,
		cache:     texture.Default,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadSceneFromFile imports path and replaces the model's meshes with one
// Mesh per mesh reference, in pre-order over the scene graph. On failure the
// current meshes are left untouched. A successful reload releases the GPU
// resources of the meshes it replaces.
func (m *Model) LoadSceneFromFile(path string) error {
	log := logger.Named("model")
	start := time.Now()

	reg := m.registry
	if reg == nil {
		reg = importer.Default
	}
	s, err := reg.ReadFile(path, m.flags)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	meshes, err := m.buildMeshes(s)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	if m.dev != nil {
		log.Debug("releasing previous meshes", zap.String("source", m.source), zap.Int("meshes", len(m.meshes)))
	}
	m.Release()
	m.meshes = meshes
	m.source = path

	log.Info("model loaded",
		zap.String("path", path),
		zap.Int("meshes", len(meshes)),
		zap.Int("vertices", m.VertexCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// buildMeshes walks s and constructs every referenced mesh.
func (m *Model) buildMeshes(s *scene.Scene) ([]*Mesh, error) {
	if len(s.Meshes) == 0 {
		return nil, importer.ErrNoMeshes
	}
	var meshes []*Mesh
	err := s.Walk(func(n *scene.Node, _ int) error {
		for _, idx := range n.Meshes {
			if idx < 0 || idx >= len(s.Meshes) || s.Meshes[idx] == nil {
				return fmt.Errorf("node %q references missing mesh %d", n.Name, idx)
			}
			mesh, err := NewMesh(s.Meshes[idx], s, m.textureCache())
			if err != nil {
				return err
			}
			meshes = append(meshes, mesh)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(meshes) == 0 {
		return nil, importer.ErrNoMeshes
	}
	return meshes, nil
}

func (m *Model) textureCache() *texture.Cache {
	if m.cache == nil {
		return texture.Default
	}
	return m.cache
}

// Initialize uploads every mesh to dev. Calling it again is a no-op. If any
// mesh fails, meshes uploaded so far are released.
func (m *Model) Initialize(dev gfx.Device) error {
	if m.dev != nil {
		return nil
	}
	if len(m.meshes) == 0 {
		return ErrNotLoaded
	}
	for i, mesh := range m.meshes {
		if err := mesh.Initialize(dev, m.textureCache()); err != nil {
			for _, done := range m.meshes[:i] {
				done.Release()
			}
			return fmt.Errorf("initialize %s: %w", m.source, err)
		}
	}
	m.dev = dev
	logger.Named("model").Debug("model initialized",
		zap.String("source", m.source), zap.Int("meshes", len(m.meshes)))
	return nil
}

// Initialized reports whether Initialize has succeeded since the last load.
func (m *Model) Initialized() bool {
	return m.dev != nil
}

// Draw sets the model matrix uniform and draws every mesh in order. Before
// Initialize it returns ErrNotInitialized without touching the GPU.
func (m *Model) Draw(u gfx.Uniforms) error {
	if m.dev == nil {
		logger.Named("model").Error("draw before initialize", zap.String("source", m.source))
		return ErrNotInitialized
	}
	u.SetMat4(gfx.UniformModel, m.ModelMatrix())
	for _, mesh := range m.meshes {
		if err := mesh.Draw(u); err != nil {
			return err
		}
	}
	return nil
}

// Release frees the vertex arrays of every mesh. The model can be
// initialized again afterwards.
func (m *Model) Release() {
	for _, mesh := range m.meshes {
		mesh.Release()
	}
	m.dev = nil
}

// Meshes returns the meshes in draw order.
func (m *Model) Meshes() []*Mesh {
	return append([]*Mesh(nil), m.meshes...)
}

// Source returns the path of the last successful load.
func (m *Model) Source() string { return m.source }

// Bounds returns the union of the mesh bounds, in model space.
func (m *Model) Bounds() Bounds {
	b := emptyBounds()
	for _, mesh := range m.meshes {
		b = b.Union(mesh.Bounds())
	}
	return b
}

// WorldBounds returns Bounds transformed by the model matrix.
func (m *Model) WorldBounds() Bounds {
	local := m.Bounds()
	if local.Empty() {
		return local
	}
	mat := m.ModelMatrix()
	b := emptyBounds()
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{local.Min[0], local.Min[1], local.Min[2]}
		if i&1 != 0 {
			corner[0] = local.Max[0]
		}
		if i&2 != 0 {
			corner[1] = local.Max[1]
		}
		if i&4 != 0 {
			corner[2] = local.Max[2]
		}
		b = b.Extend(mgl32.TransformCoordinate(corner, mat))
	}
	return b
}

// VertexCount returns the total number of vertices.
func (m *Model) VertexCount() int {
	n := 0
	for _, mesh := range m.meshes {
		n += mesh.VertexCount()
	}
	return n
}

// IndexCount returns the total number of indices.
func (m *Model) IndexCount() int {
	n := 0
	for _, mesh := range m.meshes {
		n += mesh.IndexCount()
	}
	return n
}
