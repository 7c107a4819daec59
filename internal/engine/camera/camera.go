// Package camera provides view and projection matrices for the viewer.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/config"
)

// Camera is a perspective camera looking from Position at Target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	FOV    float32 // vertical, degrees
	Near   float32
	Far    float32
	Aspect float32
}

// New creates a camera from the viewer config. Aspect starts at 1 until the
// window size is known.
func New(c config.CameraConfig) *Camera {
	return &Camera{
		Position: mgl32.Vec3(c.Position),
		Target:   mgl32.Vec3(c.Target),
		Up:       mgl32.Vec3{0, 1, 0},
		FOV:      c.FOV,
		Near:     c.Near,
		Far:      c.Far,
		Aspect:   1,
	}
}

// SetViewport updates the aspect ratio. Degenerate sizes are ignored.
func (c *Camera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection returns the perspective projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Orbit rotates the camera around its target in spherical coordinates.
// Drag deltas are in pixels. Pitch stays clear of the poles so LookAt never
// sees a view direction parallel to Up.
type Orbit struct {
	cam *Camera

	distance float32
	pitch    float32 // radians
	yaw      float32 // radians

	MinDistance     float32
	MaxDistance     float32
	DragSensitivity float32
	ZoomSensitivity float32
	MoveSensitivity float32
}

const maxOrbitPitch = 1.55

// NewOrbit derives orbit state from the camera's current placement.
func NewOrbit(cam *Camera) *Orbit {
	o := &Orbit{
		cam:             cam,
		MinDistance:     0.01,
		MaxDistance:     1e5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		MoveSensitivity: 0.01,
	}
	off := cam.Position.Sub(cam.Target)
	o.distance = off.Len()
	if o.distance > 0 {
		o.pitch = float32(math.Asin(float64(off.Y() / o.distance)))
		o.yaw = float32(math.Atan2(float64(off.X()), float64(off.Z())))
	}
	if o.distance < o.MinDistance {
		o.distance = 5
	}
	o.apply()
	return o
}

// Distance returns the distance from the target.
func (o *Orbit) Distance() float32 { return o.distance }

// HandleDrag rotates the camera by a mouse drag delta.
func (o *Orbit) HandleDrag(deltaX, deltaY float32) {
	o.yaw -= deltaX * o.DragSensitivity
	o.pitch = mgl32.Clamp(o.pitch+deltaY*o.DragSensitivity, -maxOrbitPitch, maxOrbitPitch)
	o.apply()
}

// HandleZoom moves the camera toward (positive) or away from the target.
func (o *Orbit) HandleZoom(delta float32) {
	o.distance -= delta * o.distance * o.ZoomSensitivity
	o.distance = mgl32.Clamp(o.distance, o.MinDistance, o.MaxDistance)
	o.apply()
}

// HandleMovement pans the target along the ground plane relative to the
// view direction, and vertically. Speed scales with distance.
func (o *Orbit) HandleMovement(forward, right, up float32) {
	speed := o.distance * o.MoveSensitivity
	sy, cy := float32(math.Sin(float64(o.yaw))), float32(math.Cos(float64(o.yaw)))

	// The camera sits at +offset from the target, so forward is -offset.
	o.cam.Target = o.cam.Target.Add(mgl32.Vec3{
		(-sy*forward + cy*right) * speed,
		up * speed,
		(-cy*forward - sy*right) * speed,
	})
	o.apply()
}

// FitToBounds centres the target on the box and backs off far enough to see
// all of it with the camera's field of view.
func (o *Orbit) FitToBounds(min, max mgl32.Vec3) {
	o.cam.Target = min.Add(max).Mul(0.5)
	radius := max.Sub(min).Len() / 2
	if radius <= 0 {
		o.apply()
		return
	}
	half := mgl32.DegToRad(o.cam.FOV) / 2
	o.distance = radius / float32(math.Sin(float64(half)))
	if o.cam.Far < o.distance+radius {
		o.cam.Far = (o.distance + radius) * 2
	}
	o.apply()
}

func (o *Orbit) apply() {
	cp := float32(math.Cos(float64(o.pitch)))
	off := mgl32.Vec3{
		o.distance * cp * float32(math.Sin(float64(o.yaw))),
		o.distance * float32(math.Sin(float64(o.pitch))),
		o.distance * cp * float32(math.Cos(float64(o.yaw))),
	}
	o.cam.Position = o.cam.Target.Add(off)
}
