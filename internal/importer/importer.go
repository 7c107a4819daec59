// Package importer reads 3D asset files into an importer-neutral scene graph.
//
// Formats are chosen by file extension through a registry; the caller never
// names a format. ReadFile applies a post-processing policy after reading so
// every scene reaches the model builder triangulated and with a tangent frame.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
)

// Import errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	ErrNoScene           = errors.New("importer returned no scene")
	ErrNoMeshes          = errors.New("scene contains no meshes")
)

// Importer reads one family of asset formats.
type Importer interface {
	// Name identifies the format in logs.
	Name() string
	// Extensions lists lower-case file extensions including the dot.
	Extensions() []string
	// Read parses the file at path.
	Read(path string) (*scene.Scene, error)
}

// Registry maps file extensions to importers.
type Registry struct {
	mu        sync.RWMutex
	importers map[string]Importer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{importers: make(map[string]Importer)}
}

// Register adds imp for each of its extensions, replacing earlier entries.
func (r *Registry) Register(imp Importer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range imp.Extensions() {
		r.importers[strings.ToLower(ext)] = imp
	}
}

// ForPath returns the importer responsible for path.
func (r *Registry) ForPath(path string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	imp, ok := r.importers[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return imp, nil
}

// Supported reports whether some importer handles path.
func (r *Registry) Supported(path string) bool {
	_, err := r.ForPath(path)
	return err == nil
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.importers))
	for ext := range r.importers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ReadFile reads path with the matching importer and applies flags.
func (r *Registry) ReadFile(path string, flags PostProcess) (*scene.Scene, error) {
	log := logger.Named("importer")
	start := time.Now()

	imp, err := r.ForPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	s, err := imp.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%s import %s: %w", imp.Name(), path, err)
	}
	if s == nil || s.Root == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoScene)
	}
	if s.Dir == "" {
		s.Dir = filepath.Dir(path)
	}
	if s.Source == "" {
		s.Source = path
	}

	Apply(s, flags)

	log.Info("scene imported",
		zap.String("path", path),
		zap.String("format", imp.Name()),
		zap.Int("meshes", len(s.Meshes)),
		zap.Int("materials", len(s.Materials)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return s, nil
}

// Default holds the built-in OBJ, glTF and RSM importers.
var Default = func() *Registry {
	r := NewRegistry()
	r.Register(OBJ{})
	r.Register(GLTF{})
	r.Register(RSM{})
	return r
}()

// ReadFile reads path through the Default registry.
func ReadFile(path string, flags PostProcess) (*scene.Scene, error) {
	return Default.ReadFile(path, flags)
}
