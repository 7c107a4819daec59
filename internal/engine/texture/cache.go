package texture

import (
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/gfx"
	"github.com/Faultbox/meshview/internal/logger"
)

type entry struct {
	img    *image.RGBA
	err    error
	handle uint32
}

// Cache decodes and uploads each texture once per canonical key. It is safe
// for concurrent use; uploads still need the rendering thread.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Default is the process-wide texture cache.
var Default = NewCache()

// Resolve returns the canonical cache key of a texture path referenced from
// dir. Absolute paths are used as-is.
func Resolve(dir, path string) string {
	p := filepath.FromSlash(path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.Clean(p)
}

// Image returns the decoded image for key, decoding the file on first use.
// Failures are remembered so a missing file is only looked up once.
func (c *Cache) Image(key string) (*image.RGBA, error) {
	return c.load(key, func() (*image.RGBA, error) { return Decode(key) })
}

// ImageData is Image for textures stored inside an asset file; data is only
// decoded the first time key is seen.
func (c *Cache) ImageData(key string, data []byte) (*image.RGBA, error) {
	return c.load(key, func() (*image.RGBA, error) { return DecodeBytes(data, filepath.Ext(key)) })
}

func (c *Cache) load(key string, decode func() (*image.RGBA, error)) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.hits++
		return e.img, e.err
	}
	c.misses++
	img, err := decode()
	c.entries[key] = &entry{img: img, err: err}
	return img, err
}

// Handle returns the GPU handle for key, uploading the image through dev the
// first time. Every later call returns the same handle.
func (c *Cache) Handle(dev gfx.Device, key string) (uint32, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	if ok && e.handle != 0 {
		c.mu.RUnlock()
		return e.handle, nil
	}
	c.mu.RUnlock()

	img, err := c.Image(key)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e = c.entries[key]
	if e.handle != 0 {
		return e.handle, nil
	}
	h, err := dev.CreateTexture(img)
	if err != nil {
		return 0, fmt.Errorf("upload texture %s: %w", key, err)
	}
	e.handle = h
	logger.Named("texture").Debug("texture uploaded",
		zap.String("path", key), zap.Uint32("handle", h),
		zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	return h, nil
}

// Stats returns cache hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Len returns the number of cached keys, including failed ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Uploaded returns the number of textures with a GPU handle.
func (c *Cache) Uploaded() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if e.handle != 0 {
			n++
		}
	}
	return n
}
