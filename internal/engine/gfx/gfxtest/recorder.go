// Package gfxtest provides a recording gfx.Device and gfx.Uniforms for tests.
package gfxtest

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/engine/gfx"
)

// ErrInjected is returned by calls the Recorder was told to fail.
var ErrInjected = errors.New("gfxtest: injected failure")

// Call is one recorded device or uniform call.
type Call struct {
	Op   string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Op, c.Args)
}

// Recorder implements gfx.Device and gfx.Uniforms by recording calls and
// handing out increasing handles.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	next  uint32

	// FailVertexArrays and FailTextures make the matching Create calls fail.
	FailVertexArrays bool
	FailTextures     bool

	// Layouts and VertexData hold the arguments of every CreateVertexArray.
	Layouts    []gfx.VertexLayout
	VertexData [][]byte
	IndexData  [][]uint32

	live map[uint32]bool

	Mat4s  map[string]mgl32.Mat4
	Vec3s  map[string]mgl32.Vec3
	Floats map[string]float32
	Ints   map[string]int32
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		live:   make(map[uint32]bool),
		Mat4s:  make(map[string]mgl32.Mat4),
		Vec3s:  make(map[string]mgl32.Vec3),
		Floats: make(map[string]float32),
		Ints:   make(map[string]int32),
	}
}

func (r *Recorder) record(op string, args ...any) {
	r.calls = append(r.calls, Call{Op: op, Args: args})
}

func (r *Recorder) handle() uint32 {
	r.next++
	r.live[r.next] = true
	return r.next
}

// CreateVertexArray implements gfx.Device.
func (r *Recorder) CreateVertexArray(layout gfx.VertexLayout, vertexData []byte, indices []uint32) (gfx.VertexArray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailVertexArrays {
		return gfx.VertexArray{}, ErrInjected
	}
	va := gfx.VertexArray{VAO: r.handle(), VBO: r.handle(), EBO: r.handle(), Count: int32(len(indices))}
	r.Layouts = append(r.Layouts, layout)
	r.VertexData = append(r.VertexData, append([]byte(nil), vertexData...))
	r.IndexData = append(r.IndexData, append([]uint32(nil), indices...))
	r.record("CreateVertexArray", va.VAO, len(vertexData), len(indices))
	return va, nil
}

// DeleteVertexArray implements gfx.Device.
func (r *Recorder) DeleteVertexArray(va gfx.VertexArray) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, va.VAO)
	delete(r.live, va.VBO)
	delete(r.live, va.EBO)
	r.record("DeleteVertexArray", va.VAO)
}

// CreateTexture implements gfx.Device.
func (r *Recorder) CreateTexture(img *image.RGBA) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailTextures {
		return 0, ErrInjected
	}
	h := r.handle()
	r.record("CreateTexture", h, img.Bounds().Dx(), img.Bounds().Dy())
	return h, nil
}

// DeleteTexture implements gfx.Device.
func (r *Recorder) DeleteTexture(handle uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, handle)
	r.record("DeleteTexture", handle)
}

// BindTexture implements gfx.Device.
func (r *Recorder) BindTexture(unit int, handle uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindTexture", unit, handle)
}

// BindVertexArray implements gfx.Device.
func (r *Recorder) BindVertexArray(vao uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("BindVertexArray", vao)
}

// DrawElements implements gfx.Device.
func (r *Recorder) DrawElements(count int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("DrawElements", count)
}

// SetMat4 implements gfx.Uniforms.
func (r *Recorder) SetMat4(name string, m mgl32.Mat4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Mat4s[name] = m
	r.record("SetMat4", name, m)
}

// SetVec3 implements gfx.Uniforms.
func (r *Recorder) SetVec3(name string, v mgl32.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Vec3s[name] = v
	r.record("SetVec3", name, v)
}

// SetFloat implements gfx.Uniforms.
func (r *Recorder) SetFloat(name string, f float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Floats[name] = f
	r.record("SetFloat", name, f)
}

// SetInt implements gfx.Uniforms.
func (r *Recorder) SetInt(name string, i int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Ints[name] = i
	r.record("SetInt", name, i)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsOf returns the recorded calls with the given op.
func (r *Recorder) CallsOf(op string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps handles and live objects.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Live reports whether handle was created and not yet deleted.
func (r *Recorder) Live(handle uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[handle]
}

var (
	_ gfx.Device   = (*Recorder)(nil)
	_ gfx.Uniforms = (*Recorder)(nil)
)
