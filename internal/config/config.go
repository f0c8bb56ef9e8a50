// Package config loads viewer settings from defaults, a YAML file and
// command-line flags, in that order of priority.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/taigrr/softrast/internal/logger"
	"github.com/taigrr/softrast/pkg/render"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all viewer settings.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Camera  CameraConfig  `yaml:"camera"`
	Scene   SceneConfig   `yaml:"scene"`
	Logging LoggingConfig `yaml:"logging"`
}

// RenderConfig holds framebuffer and pipeline settings.
type RenderConfig struct {
	Width         int    `yaml:"width"`  // headless only; the terminal decides otherwise
	Height        int    `yaml:"height"` // headless only
	Shading       string `yaml:"shading"`
	Workers       int    `yaml:"workers"` // 0 = GOMAXPROCS, 1 = serial
	ClipNear      bool   `yaml:"clip_near"`
	CullBackfaces bool   `yaml:"cull_backfaces"`
	Wireframe     bool   `yaml:"wireframe"`
	Background    [3]int `yaml:"background"`
	FPS           int    `yaml:"fps"`
	Headless      bool   `yaml:"headless"`
	Frames        int    `yaml:"frames"` // frames to render before writing Out
	Out           string `yaml:"out"`
}

// CameraConfig holds the initial camera pose and intrinsics.
type CameraConfig struct {
	Position   [3]float64  `yaml:"position"`
	Target     [3]float64  `yaml:"target"`
	Up         [3]float64  `yaml:"up"`
	FOVDegrees float64     `yaml:"fov_degrees"`
	Near       float64     `yaml:"near"`
	Far        float64     `yaml:"far"`
	Projection string      `yaml:"projection"`
	Ortho      OrthoConfig `yaml:"ortho"`
}

// OrthoConfig holds view-space extents for the orthographic projection.
type OrthoConfig struct {
	Left   float64 `yaml:"left"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
	Top    float64 `yaml:"top"`
}

// SceneConfig holds the model and its animation.
type SceneConfig struct {
	Model    string     `yaml:"model"`
	Material string     `yaml:"material"` // MTL override for OBJ models
	FitSize  float64    `yaml:"fit_size"` // 0 keeps the model's own scale
	Track    bool       `yaml:"track"`    // aim the camera at the mesh centroid every frame
	Spin     [3]float64 `yaml:"spin"`     // radians per frame about X, Y, Z
	Light    [3]float64 `yaml:"light"`    // direction toward the light
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Width:      640,
			Height:     480,
			Shading:    "gouraud",
			Workers:    0,
			ClipNear:   true,
			Background: [3]int{30, 30, 40},
			FPS:        30,
			Frames:     1,
			Out:        "frame.png",
		},
		Camera: CameraConfig{
			Position:   [3]float64{0, 0, 5},
			Target:     [3]float64{0, 0, 0},
			Up:         [3]float64{0, 1, 0},
			FOVDegrees: 60,
			Near:       0.1,
			Far:        100,
			Projection: "perspective",
			Ortho:      OrthoConfig{Left: -2, Right: 2, Bottom: -2, Top: 2},
		},
		Scene: SceneConfig{
			FitSize: 2,
			Track:   true,
			Spin:    [3]float64{0.01, 0.02, 0.03},
			Light:   [3]float64{0.5, 1, 0.3},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every setting the viewer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	r := c.Render
	if r.Width <= 0 || r.Height <= 0 {
		bad("render size %dx%d must be positive", r.Width, r.Height)
	}
	if _, err := render.ParseShadingMode(r.Shading); err != nil {
		bad("render.shading: %v", err)
	}
	if r.Workers < 0 {
		bad("render.workers %d is negative", r.Workers)
	}
	if r.FPS <= 0 {
		bad("render.fps %d must be positive", r.FPS)
	}
	if r.Frames < 1 {
		bad("render.frames %d must be at least 1", r.Frames)
	}
	for i, v := range r.Background {
		if v < 0 || v > 255 {
			bad("render.background[%d] = %d outside 0-255", i, v)
		}
	}

	cam := c.Camera
	if !(cam.Near > 0) || !(cam.Far > cam.Near) {
		bad("camera needs 0 < near < far, got near=%v far=%v", cam.Near, cam.Far)
	}
	if kind, err := c.ProjectionKind(); err != nil {
		bad("camera.projection: %v", err)
	} else if kind == render.Orthographic {
		o := cam.Ortho
		if !(o.Right > o.Left) || !(o.Top > o.Bottom) {
			bad("camera.ortho extents are empty")
		}
	} else if !(cam.FOVDegrees > 0) || !(cam.FOVDegrees < 180) {
		bad("camera.fov_degrees %v outside (0, 180)", cam.FOVDegrees)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		bad("logging.level: %v", err)
	}
	return errors.Join(errs...)
}

// ProjectionKind parses Camera.Projection.
func (c *Config) ProjectionKind() (render.Projection, error) {
	switch strings.ToLower(c.Camera.Projection) {
	case "", "perspective":
		return render.Perspective, nil
	case "orthographic", "ortho":
		return render.Orthographic, nil
	}
	return 0, fmt.Errorf("unknown projection %q", c.Camera.Projection)
}

// FOV returns the vertical field of view in radians.
func (c *Config) FOV() float64 {
	return c.Camera.FOVDegrees * math.Pi / 180
}
