package importer

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/scene"
)

type stubImporter struct {
	s   *scene.Scene
	err error
}

func (stubImporter) Name() string                         { return "stub" }
func (stubImporter) Extensions() []string                 { return []string{".STUB"} }
func (s stubImporter) Read(string) (*scene.Scene, error) { return s.s, s.err }

func TestRegistryLookup(t *testing.T) {
	assert.True(t, Default.Supported("model.OBJ"))
	assert.True(t, Default.Supported("a/b/scene.glb"))
	assert.True(t, Default.Supported("prontera.rsm"))
	assert.False(t, Default.Supported("model.fbx"))
	assert.Equal(t, []string{".glb", ".gltf", ".obj", ".rsm"}, Default.Extensions())

	_, err := Default.ForPath("model.fbx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.obj"), DefaultPostProcess)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	r := NewRegistry()
	r.Register(stubImporter{})
	path := writeFile(t, dir, "empty.stub", "")
	_, err = r.ReadFile(path, 0)
	assert.ErrorIs(t, err, ErrNoScene)

	boom := errors.New("boom")
	r.Register(stubImporter{err: boom})
	_, err = r.ReadFile(path, 0)
	assert.ErrorIs(t, err, boom)
}

func TestReadFileFillsSource(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "one.stub", "")

	r := NewRegistry()
	r.Register(stubImporter{s: &scene.Scene{Root: scene.NewNode("root")}})
	s, err := r.ReadFile(path, DefaultPostProcess)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir)
	assert.Equal(t, path, s.Source)
}
