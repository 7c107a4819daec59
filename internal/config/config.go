// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Config holds all viewer settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Camera  CameraConfig  `yaml:"camera"`
	Light   LightConfig   `yaml:"light"`
	Models  []ModelConfig `yaml:"models"`
	Shaders ShaderConfig  `yaml:"shaders"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	ShowFPS    bool   `yaml:"show_fps"`
}

// CameraConfig places the viewer camera. FOV is vertical, in degrees.
type CameraConfig struct {
	Position [3]float32 `yaml:"position"`
	Target   [3]float32 `yaml:"target"`
	FOV      float32    `yaml:"fov"`
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
}

// LightConfig holds the single scene light.
type LightConfig struct {
	Position  [3]float32 `yaml:"position"`
	Direction [3]float32 `yaml:"direction"`
}

// RotationConfig holds Euler angles in degrees.
type RotationConfig struct {
	Pitch float32 `yaml:"pitch"`
	Roll  float32 `yaml:"roll"`
	Yaw   float32 `yaml:"yaw"`
}

// ModelConfig is one asset instance to load.
type ModelConfig struct {
	Path     string         `yaml:"path"`
	Position [3]float32     `yaml:"position"`
	Rotation RotationConfig `yaml:"rotation"`
	Scale    float32        `yaml:"scale"` // 0 means 1
}

// ScaleOrDefault returns Scale, or 1 when unset.
func (m ModelConfig) ScaleOrDefault() float32 {
	if m.Scale == 0 {
		return 1
	}
	return m.Scale
}

// PositionVec returns Position as a vector.
func (m ModelConfig) PositionVec() mgl32.Vec3 {
	return mgl32.Vec3(m.Position)
}

// ShaderConfig optionally replaces the built-in shaders with files on disk.
type ShaderConfig struct {
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "MeshView",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Camera: CameraConfig{
			Position: [3]float32{0, 1, 5},
			Target:   [3]float32{0, 0, 0},
			FOV:      45,
			Near:     0.1,
			Far:      1000,
		},
		Light: LightConfig{
			Position:  [3]float32{5, 10, 5},
			Direction: [3]float32{-0.5, -1, -0.5},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings the viewer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera fov %v must be in (0, 180)", c.Camera.FOV))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera clip planes near=%v far=%v must satisfy 0 < near < far", c.Camera.Near, c.Camera.Far))
	}
	if (c.Shaders.Vertex == "") != (c.Shaders.Fragment == "") {
		errs = append(errs, errors.New("shaders: vertex and fragment must be set together"))
	}
	for i, m := range c.Models {
		if m.Path == "" {
			errs = append(errs, fmt.Errorf("models[%d]: path is empty", i))
		}
	}
	return errors.Join(errs...)
}
