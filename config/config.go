// Package config loads the ripple configuration: embedded defaults with an
// optional YAML file merged on top.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every runtime setting.
type Config struct {
	Ripples    RipplesConfig    `yaml:"ripples"`
	Window     WindowConfig     `yaml:"window"`
	Background BackgroundConfig `yaml:"background"`
	Record     RecordConfig     `yaml:"record"`
	Rain       RainConfig       `yaml:"rain"`
	Compute    ComputeConfig    `yaml:"compute"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// RipplesConfig is the per-instance effect configuration.
type RipplesConfig struct {
	Interactive bool    `yaml:"interactive"`
	Resolution  int     `yaml:"resolution"`  // height field size in texels
	Perturbance float64 `yaml:"perturbance"` // refraction strength
	DropRadius  float64 `yaml:"drop_radius"` // pointer drop radius in pixels
	CrossOrigin string  `yaml:"cross_origin"`
	ImageURL    string  `yaml:"image_url"`
	CacheImages bool    `yaml:"cache_images"`
}

type WindowConfig struct {
	Mode     string `yaml:"mode"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Title    string `yaml:"title"`
	Headless bool   `yaml:"headless"`
}

// BackgroundConfig is the CSS background of the hosted element.
type BackgroundConfig struct {
	Image      string `yaml:"image"`
	Size       string `yaml:"size"`
	Position   string `yaml:"position"`
	Attachment string `yaml:"attachment"`
}

type RecordConfig struct {
	Output     string  `yaml:"output"`
	FPS        int     `yaml:"fps"`
	Duration   float64 `yaml:"duration"` // seconds
	Codec      string  `yaml:"codec"`
	FFmpegPath string  `yaml:"ffmpeg_path"`
	HWAccel    bool    `yaml:"hw_accel"`
}

type RainConfig struct {
	Source          string  `yaml:"source"`
	File            string  `yaml:"file"`
	SampleRate      int     `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	DropsPerSecond  float64 `yaml:"drops_per_second"`
	StrengthMu      float64 `yaml:"strength_mu"`
	StrengthSigma   float64 `yaml:"strength_sigma"`
	Sensitivity     float64 `yaml:"sensitivity"`
	MinLevel        float64 `yaml:"min_level"`
	Radius          float64 `yaml:"radius"`
	Gain            float64 `yaml:"gain"`
	MaxStrength     float64 `yaml:"max_strength"`
	Seed            int64   `yaml:"seed"`
}

type ComputeConfig struct {
	Workers int  `yaml:"workers"`
	OpenCL  bool `yaml:"opencl"`
}

type TelemetryConfig struct {
	Output   string `yaml:"output"`
	Every    int    `yaml:"every"`
	HostLoad bool   `yaml:"host_load"`
}

var global *Config

// Init loads the configuration into the package-level instance.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is Init that panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the configuration loaded by Init.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load parses the embedded defaults and merges the file at path over them.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Window.Mode {
	case "window", "preview", "record":
	default:
		return fmt.Errorf("window.mode %q is not one of window, preview, record", c.Window.Mode)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Ripples.Resolution < 0 {
		return fmt.Errorf("ripples.resolution %d is negative", c.Ripples.Resolution)
	}
	switch c.Rain.Source {
	case "none", "scripted", "mic", "file":
	default:
		return fmt.Errorf("rain.source %q is not one of none, scripted, mic, file", c.Rain.Source)
	}
	if c.Rain.Source != "none" && c.Rain.Radius <= 0 {
		return fmt.Errorf("rain.radius %g must be positive", c.Rain.Radius)
	}
	if (c.Rain.Source == "mic" || c.Rain.Source == "file") && c.Rain.MaxStrength <= 0 {
		return fmt.Errorf("rain.max_strength %g must be positive for %s rain", c.Rain.MaxStrength, c.Rain.Source)
	}
	if c.Rain.Source == "file" && c.Rain.File == "" {
		return fmt.Errorf("rain.source file needs rain.file")
	}
	if c.Window.Mode == "record" && (c.Record.FPS <= 0 || c.Record.Duration <= 0) {
		return fmt.Errorf("record needs a positive fps and duration, got %d fps for %gs", c.Record.FPS, c.Record.Duration)
	}
	return nil
}

// WriteYAML saves the configuration.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
