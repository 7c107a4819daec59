// Package viewer runs the interactive render loop: it supplies per-frame
// camera and light uniforms, then asks each model to draw itself.
package viewer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/gfx"
	"github.com/Faultbox/meshview/internal/engine/model"
	"github.com/Faultbox/meshview/internal/logger"
)

// Frame holds the uniforms shared by every model in one frame.
type Frame struct {
	Projection     mgl32.Mat4
	View           mgl32.Mat4
	CameraPosition mgl32.Vec3
	LightPosition  mgl32.Vec3
	LightDirection mgl32.Vec3
}

// NewFrame captures the camera and light state.
func NewFrame(cam *camera.Camera, light config.LightConfig) Frame {
	return Frame{
		Projection:     cam.Projection(),
		View:           cam.View(),
		CameraPosition: cam.Position,
		LightPosition:  mgl32.Vec3(light.Position),
		LightDirection: mgl32.Vec3(light.Direction),
	}
}

// Apply uploads the frame uniforms to the active program.
func (f Frame) Apply(u gfx.Uniforms) {
	u.SetMat4(gfx.UniformProjection, f.Projection)
	u.SetMat4(gfx.UniformView, f.View)
	u.SetVec3(gfx.UniformCameraPosition, f.CameraPosition)
	u.SetVec3(gfx.UniformLightPosition, f.LightPosition)
	u.SetVec3(gfx.UniformLightDirection, f.LightDirection)
}

// Render applies the frame then draws every model in order. Drawing continues
// past a failing model; all failures are returned joined.
func Render(u gfx.Uniforms, f Frame, models []*model.Model) error {
	f.Apply(u)
	var errs []error
	for _, m := range models {
		if err := m.Draw(u); err != nil {
			errs = append(errs, fmt.Errorf("draw %s: %w", m.Source(), err))
		}
	}
	return errors.Join(errs...)
}

// LoadModels imports each configured model and applies its transform. Models
// are not initialized; that needs a device.
func LoadModels(entries []config.ModelConfig, opts ...model.Option) ([]*model.Model, error) {
	log := logger.Named("viewer")
	models := make([]*model.Model, 0, len(entries))
	for _, e := range entries {
		m := model.New(opts...)
		if err := m.LoadSceneFromFile(e.Path); err != nil {
			return nil, fmt.Errorf("load %s: %w", e.Path, err)
		}
		m.SetPosition(e.PositionVec())
		m.SetRotation(e.Rotation.Pitch, e.Rotation.Roll, e.Rotation.Yaw)
		m.SetScale(e.ScaleOrDefault())
		log.Info("model ready",
			zap.String("path", e.Path),
			zap.Int("meshes", len(m.Meshes())),
			zap.Int("vertices", m.VertexCount()),
		)
		models = append(models, m)
	}
	return models, nil
}

// WorldBounds returns the union of the models' world-space bounds. ok is
// false when no model has any geometry.
func WorldBounds(models []*model.Model) (b model.Bounds, ok bool) {
	for _, m := range models {
		wb := m.WorldBounds()
		if wb.Empty() {
			continue
		}
		if !ok {
			b, ok = wb, true
			continue
		}
		b = b.Union(wb)
	}
	return b, ok
}
