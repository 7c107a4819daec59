package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/input"
	"github.com/Faultbox/meshview/internal/engine/model"
	"github.com/Faultbox/meshview/internal/engine/opengl"
	"github.com/Faultbox/meshview/internal/engine/shader"
	"github.com/Faultbox/meshview/internal/engine/window"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/viewer/shaders"
)

// Viewer owns the window, GL device and shader, and draws a set of models.
type Viewer struct {
	cfg *config.Config

	window  *window.Window
	device  *opengl.Device
	program *shader.Program
	input   *input.Input

	camera *camera.Camera
	orbit  *camera.Orbit
	models []*model.Model

	running bool
}

// New opens the window, creates the GL device and compiles the shader.
// Models are uploaded to the GPU here, so they must already be loaded.
func New(cfg *config.Config, models []*model.Model) (*Viewer, error) {
	log := logger.Named("viewer")
	v := &Viewer{
		cfg:    cfg,
		input:  input.New(),
		camera: camera.New(cfg.Camera),
		models: models,
	}

	var err error
	v.window, err = window.New(window.FromConfig(cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The device needs the GL context the window just created
	v.device, err = opengl.New()
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	if cfg.Shaders.Vertex != "" {
		v.program, err = shader.Load(cfg.Shaders.Vertex, cfg.Shaders.Fragment)
	} else {
		v.program, err = shader.New(shaders.ModelVertexShader, shaders.ModelFragmentShader)
	}
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to build shader: %w", err)
	}

	for _, m := range models {
		if err := m.Initialize(v.device); err != nil {
			v.Close()
			return nil, fmt.Errorf("initialize %s: %w", m.Source(), err)
		}
	}

	v.orbit = camera.NewOrbit(v.camera)
	v.resize(v.window.DrawableSize())

	log.Info("viewer initialized", zap.Int("models", len(models)))
	return v, nil
}

// Run drives the frame loop until the window is closed or Escape is pressed.
func (v *Viewer) Run() error {
	log := logger.Named("viewer")
	v.running = true

	frameCount := 0
	fpsTimer := time.Now()

	log.Info("starting render loop")

	for v.running {
		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()
		v.handleMovement()

		v.device.Clear()
		v.program.Use()
		if err := Render(v.program, NewFrame(v.camera, v.cfg.Light), v.models); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		v.window.SwapBuffers()

		frameCount++
		if elapsed := time.Since(fpsTimer); elapsed >= time.Second {
			fps := float64(frameCount) / elapsed.Seconds()
			log.Debug("fps", zap.Float64("fps", fps))
			if v.cfg.Window.ShowFPS {
				v.window.SetTitle(fmt.Sprintf("%s - %.0f fps", v.cfg.Window.Title, fps))
			}
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.resize(v.window.DrawableSize())
		case input.EventMouseMove:
			if v.input.IsButtonDown(sdl.BUTTON_LEFT) {
				v.orbit.HandleDrag(float32(event.DeltaX), float32(event.DeltaY))
			}
		case input.EventMouseWheel:
			v.orbit.HandleZoom(float32(event.DeltaY))
		case input.EventKeyDown:
			if event.Key == sdl.SCANCODE_HOME {
				if b, ok := WorldBounds(v.models); ok {
					v.orbit.FitToBounds(b.Min, b.Max)
				}
			}
		}
	}
}

// Held keys pan the orbit target: W/S forward and back, A/D sideways, R/F up
// and down.
func (v *Viewer) handleMovement() {
	axis := func(pos, neg sdl.Scancode) float32 {
		var d float32
		if v.input.IsKeyDown(pos) {
			d++
		}
		if v.input.IsKeyDown(neg) {
			d--
		}
		return d
	}
	forward := axis(sdl.SCANCODE_W, sdl.SCANCODE_S)
	right := axis(sdl.SCANCODE_D, sdl.SCANCODE_A)
	up := axis(sdl.SCANCODE_R, sdl.SCANCODE_F)
	if forward != 0 || right != 0 || up != 0 {
		v.orbit.HandleMovement(forward, right, up)
	}
}

func (v *Viewer) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.device.Viewport(width, height)
	v.camera.SetViewport(width, height)
}

// Close releases GPU resources and the window.
func (v *Viewer) Close() {
	logger.Named("viewer").Info("closing viewer")

	for _, m := range v.models {
		m.Release()
	}
	if v.program != nil {
		v.program.Delete()
	}
	if v.window != nil {
		v.window.Close()
	}
}
