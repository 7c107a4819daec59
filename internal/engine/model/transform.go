package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places a model in the world. Angles are in degrees. The
// rotation is R = Rx(pitch) * Ry(yaw) * Rz(roll) and the model matrix is
// T * R * S; both are recomputed by every setter from the current values.
// The zero Transform is the identity.
type Transform struct {
	valid bool


	position mgl32.Vec3
	pitch    float32
	roll     float32
	yaw      float32
	scale    mgl32.Vec3

	rotation mgl32.Mat4
	matrix   mgl32.Mat4
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	var t Transform
	t.update()
	return t
}

func (t *Transform) init() {
	if !t.valid {
		t.scale = mgl32.Vec3{1, 1, 1}
		t.valid = true
	}
}

func (t *Transform) update() {
	t.init()
	t.rotation = mgl32.HomogRotate3DX(mgl32.DegToRad(t.pitch)).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(t.yaw))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(t.roll)))
	t.matrix = mgl32.Translate3D(t.position[0], t.position[1], t.position[2]).
		Mul4(t.rotation).
		Mul4(mgl32.Scale3D(t.scale[0], t.scale[1], t.scale[2]))
}

// SetPosition sets the translation.
func (t *Transform) SetPosition(p mgl32.Vec3) {
	t.init()
	t.position = p
	t.update()
}

// SetRotation sets pitch (X), roll (Z) and yaw (Y) in degrees.
func (t *Transform) SetRotation(pitch, roll, yaw float32) {
	t.init()
	t.pitch, t.roll, t.yaw = pitch, roll, yaw
	t.update()
}

// SetScale sets a uniform scale.
func (t *Transform) SetScale(s float32) {
	t.SetScaleXYZ(s, s, s)
}

// SetScaleXYZ sets a per-axis scale.
func (t *Transform) SetScaleXYZ(x, y, z float32) {
	t.init()
	t.scale = mgl32.Vec3{x, y, z}
	t.update()
}

func (t *Transform) Position() mgl32.Vec3 { return t.position }
func (t *Transform) Scale() mgl32.Vec3 {
	if !t.valid {
		return mgl32.Vec3{1, 1, 1}
	}
	return t.scale
}
func (t *Transform) Pitch() float32       { return t.pitch }
func (t *Transform) Roll() float32        { return t.roll }
func (t *Transform) Yaw() float32         { return t.yaw }

// RotationMatrix returns the rotation component of the model matrix.
func (t *Transform) RotationMatrix() mgl32.Mat4 {
	if !t.valid {
		return mgl32.Ident4()
	}
	return t.rotation
}

// ModelMatrix returns T * R * S.
func (t *Transform) ModelMatrix() mgl32.Mat4 {
	if !t.valid {
		return mgl32.Ident4()
	}
	return t.matrix
}
