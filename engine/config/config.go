package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-rig/engine/math"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Log     LogConfig     `toml:"log"`
	Viewer  ViewerConfig  `toml:"viewer"`
	Lights  LightsConfig  `toml:"lights"`
	Posing  PosingConfig  `toml:"posing"`
	Blink   BlinkConfig   `toml:"blink"`
	LipSync LipSyncConfig `toml:"lipsync"`
	Assets  AssetsConfig  `toml:"assets"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ViewerConfig struct {
	Width  uint32  `toml:"width"`
	Height uint32  `toml:"height"`
	FOV    float32 `toml:"fov"` // degrees
	Near   float32 `toml:"near"`
	Far    float32 `toml:"far"`
}

type LightsConfig struct {
	AmbientColor         [3]float32 `toml:"ambient_color"`
	AmbientIntensity     float32    `toml:"ambient_intensity"`
	DirectionalColor     [3]float32 `toml:"directional_color"`
	DirectionalIntensity float32    `toml:"directional_intensity"`
	DirectionalPosition  [3]float32 `toml:"directional_position"`
}

type PosingConfig struct {
	Iterations     int        `toml:"iterations"`
	Threshold      float32    `toml:"threshold"`
	MarkerRadius   float32    `toml:"marker_radius"`
	EffectorRadius float32    `toml:"effector_radius"`
	DefaultColor   [4]float32 `toml:"default_color"`
	SelectedColor  [4]float32 `toml:"selected_color"`
	EffectorColor  [4]float32 `toml:"effector_color"`
	LineColor      [4]float32 `toml:"line_color"`
	RotateSpeed    float32    `toml:"rotate_speed"`
	DragDeadZone   float32    `toml:"drag_dead_zone"`
}

type BlinkConfig struct {
	Enabled  bool    `toml:"enabled"`
	Interval float32 `toml:"interval"`
	Jitter   float32 `toml:"jitter"`
	Duration float32 `toml:"duration"`
}

type LipSyncConfig struct {
	FFTSize      int     `toml:"fft_size"`
	Gain         float32 `toml:"gain"`
	Smoothing    int     `toml:"smoothing"`
	TimeConstant float64 `toml:"time_constant"`
	MinDecibels  float64 `toml:"min_decibels"`
	MaxDecibels  float64 `toml:"max_decibels"`
	Expression   string  `toml:"expression"`
}

type AssetsConfig struct {
	Watch    bool `toml:"watch"`
	Debounce int  `toml:"debounce_ms"`
	Workers  int  `toml:"workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Viewer: ViewerConfig{
			Width:  1280,
			Height: 720,
			FOV:    30,
			Near:   0.1,
			Far:    20,
		},
		Lights: LightsConfig{
			AmbientColor:         [3]float32{1, 1, 1},
			AmbientIntensity:     0.6,
			DirectionalColor:     [3]float32{1, 1, 1},
			DirectionalIntensity: 1,
			DirectionalPosition:  [3]float32{1, 1, 1},
		},
		Posing: PosingConfig{
			Iterations:     10,
			Threshold:      0.01,
			MarkerRadius:   0.02,
			EffectorRadius: 0.035,
			DefaultColor:   [4]float32{0.2, 0.6, 1, 1},
			SelectedColor:  [4]float32{1, 0.8, 0, 1},
			EffectorColor:  [4]float32{1, 0.3, 0.3, 1},
			LineColor:      [4]float32{1, 1, 1, 0.6},
			RotateSpeed:    0.01,
			DragDeadZone:   4,
		},
		Blink: BlinkConfig{
			Enabled:  true,
			Interval: 4,
			Jitter:   1.5,
			Duration: 0.15,
		},
		LipSync: LipSyncConfig{
			FFTSize:      2048,
			Gain:         2,
			Smoothing:    3,
			TimeConstant: 0.8,
			MinDecibels:  -100,
			MaxDecibels:  -30,
			Expression:   "aa",
		},
		Assets: AssetsConfig{
			Watch:    false,
			Debounce: 250,
			Workers:  1,
		},
	}
}

// Load overlays the TOML file at path onto the defaults. An empty path, or
// one that does not exist, yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	switch {
	case c.Viewer.Width == 0 || c.Viewer.Height == 0:
		return fmt.Errorf("viewer size %dx%d: %w", c.Viewer.Width, c.Viewer.Height, ErrInvalidConfig)
	case c.Viewer.FOV <= 0 || c.Viewer.FOV >= 180:
		return fmt.Errorf("viewer fov %f: %w", c.Viewer.FOV, ErrInvalidConfig)
	case c.Viewer.Near <= 0 || c.Viewer.Far <= c.Viewer.Near:
		return fmt.Errorf("viewer clip range %f..%f: %w", c.Viewer.Near, c.Viewer.Far, ErrInvalidConfig)
	case c.Posing.Iterations <= 0:
		return fmt.Errorf("posing iterations %d: %w", c.Posing.Iterations, ErrInvalidConfig)
	case c.Posing.Threshold <= 0:
		return fmt.Errorf("posing threshold %f: %w", c.Posing.Threshold, ErrInvalidConfig)
	case c.LipSync.FFTSize < 32 || c.LipSync.FFTSize&(c.LipSync.FFTSize-1) != 0:
		return fmt.Errorf("lipsync fft_size %d is not a power of two: %w", c.LipSync.FFTSize, ErrInvalidConfig)
	case c.LipSync.MinDecibels >= c.LipSync.MaxDecibels:
		return fmt.Errorf("lipsync decibel range %f..%f: %w", c.LipSync.MinDecibels, c.LipSync.MaxDecibels, ErrInvalidConfig)
	case c.LipSync.TimeConstant < 0 || c.LipSync.TimeConstant >= 1:
		return fmt.Errorf("lipsync time_constant %f: %w", c.LipSync.TimeConstant, ErrInvalidConfig)
	case c.Blink.Duration <= 0:
		return fmt.Errorf("blink duration %f: %w", c.Blink.Duration, ErrInvalidConfig)
	case c.Assets.Workers <= 0:
		return fmt.Errorf("assets workers %d: %w", c.Assets.Workers, ErrInvalidConfig)
	}
	return nil
}

// Vec3 and Vec4 convert config triples and quadruples.
func Vec3(v [3]float32) math.Vec3 {
	return math.NewVec3(v[0], v[1], v[2])
}

func Vec4(v [4]float32) math.Vec4 {
	return math.NewVec4(v[0], v[1], v[2], v[3])
}
