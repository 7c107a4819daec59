package viewer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/gfx"
	"github.com/Faultbox/meshview/internal/engine/gfx/gfxtest"
	"github.com/Faultbox/meshview/internal/engine/model"
	"github.com/Faultbox/meshview/internal/engine/texture"
)

const triangleOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

func writeTriangle(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tri.obj")
	require.NoError(t, os.WriteFile(path, []byte(triangleOBJ), 0o644))
	return path
}

func TestFrameApply(t *testing.T) {
	cfg := config.Default()
	cam := camera.New(cfg.Camera)
	cam.SetViewport(1280, 720)

	rec := gfxtest.NewRecorder()
	f := NewFrame(cam, cfg.Light)
	f.Apply(rec)

	assert.Equal(t, cam.Projection(), rec.Mat4s[gfx.UniformProjection])
	assert.Equal(t, cam.View(), rec.Mat4s[gfx.UniformView])
	assert.Equal(t, mgl32.Vec3{0, 1, 5}, rec.Vec3s[gfx.UniformCameraPosition])
	assert.Equal(t, mgl32.Vec3{5, 10, 5}, rec.Vec3s[gfx.UniformLightPosition])
	assert.Equal(t, mgl32.Vec3{-0.5, -1, -0.5}, rec.Vec3s[gfx.UniformLightDirection])
}

func TestLoadModelsAppliesTransform(t *testing.T) {
	path := writeTriangle(t)
	entries := []config.ModelConfig{{
		Path:     path,
		Position: [3]float32{1, 2, 3},
		Rotation: config.RotationConfig{Yaw: 90},
		Scale:    2,
	}}

	models, err := LoadModels(entries, model.WithTextureCache(texture.NewCache()))
	require.NoError(t, err)
	require.Len(t, models, 1)

	m := models[0]
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, m.Position())
	assert.Equal(t, float32(90), m.Yaw())
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, m.Scale())
	assert.False(t, m.Initialized())
}

func TestLoadModelsStopsOnError(t *testing.T) {
	entries := []config.ModelConfig{{Path: writeTriangle(t)}, {Path: "/nonexistent/x.obj"}}
	_, err := LoadModels(entries, model.WithTextureCache(texture.NewCache()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/x.obj")
}

func TestRenderDrawsAfterFrameUniforms(t *testing.T) {
	path := writeTriangle(t)
	models, err := LoadModels([]config.ModelConfig{{Path: path}, {Path: path}},
		model.WithTextureCache(texture.NewCache()))
	require.NoError(t, err)

	rec := gfxtest.NewRecorder()
	for _, m := range models {
		require.NoError(t, m.Initialize(rec))
	}
	rec.Reset()

	cfg := config.Default()
	require.NoError(t, Render(rec, NewFrame(camera.New(cfg.Camera), cfg.Light), models))

	calls := rec.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "SetMat4", calls[0].Op)
	assert.Equal(t, gfx.UniformProjection, calls[0].Args[0])
	assert.Len(t, rec.CallsOf("DrawElements"), 2)
}

func TestRenderReportsUninitialized(t *testing.T) {
	models, err := LoadModels([]config.ModelConfig{{Path: writeTriangle(t)}},
		model.WithTextureCache(texture.NewCache()))
	require.NoError(t, err)

	rec := gfxtest.NewRecorder()
	cfg := config.Default()
	err = Render(rec, NewFrame(camera.New(cfg.Camera), cfg.Light), models)
	assert.ErrorIs(t, err, model.ErrNotInitialized)
	assert.Empty(t, rec.CallsOf("DrawElements"))
}

func TestWorldBounds(t *testing.T) {
	_, ok := WorldBounds(nil)
	assert.False(t, ok)

	path := writeTriangle(t)
	models, err := LoadModels([]config.ModelConfig{
		{Path: path},
		{Path: path, Position: [3]float32{10, 0, 0}},
	}, model.WithTextureCache(texture.NewCache()))
	require.NoError(t, err)

	b, ok := WorldBounds(models)
	require.True(t, ok)
	assert.InDelta(t, 0, b.Min.X(), 1e-5)
	assert.InDelta(t, 11, b.Max.X(), 1e-5)
	assert.InDelta(t, 1, b.Max.Y(), 1e-5)
}
