// Package options defines the command line flags and overlays the ones the
// user set onto the loaded configuration.
package options

import (
	"flag"
	"strings"

	"github.com/richinsley/goripples/config"
)

type RippleOptions struct {
	ConfigFile  *string
	WriteConfig *string
	Help        *bool
	Mode        *string
	Width       *int
	Height      *int
	Headless    *bool // record through EGL instead of a hidden window

	Image       *string // background-image CSS value or plain URL
	ImageURL    *string
	Size        *string
	Position    *string
	Attachment  *string
	Resolution  *int
	Perturbance *float64
	DropRadius  *float64
	Interactive *bool
	CrossOrigin *string
	NoCache     *bool

	OutputFile *string
	FPS        *int
	Duration   *float64
	Codec      *string
	FFMPEGPath *string
	HWAccel    *bool

	Rain     *string // none, scripted, mic or file
	RainFile *string
	OpenCL   *bool
	Workers  *int

	Telemetry *string // CSV output path
}

// Register defines every flag on fs.
func Register(fs *flag.FlagSet) *RippleOptions {
	return &RippleOptions{
		ConfigFile:  fs.String("config", "", "YAML configuration file merged over the defaults"),
		WriteConfig: fs.String("write-config", "", "Write the effective configuration to this file and exit"),
		Help:        fs.Bool("help", false, "Show help message"),
		Mode:        fs.String("mode", "", "window, preview (CPU renderer) or record"),
		Width:       fs.Int("width", 0, "Width of the element in pixels"),
		Height:      fs.Int("height", 0, "Height of the element in pixels"),
		Headless:    fs.Bool("headless", false, "Record with a headless EGL context"),

		Image:       fs.String("image", "", "Background image path or URL"),
		ImageURL:    fs.String("image-url", "", "Image that overrides the element background"),
		Size:        fs.String("size", "", "CSS background-size"),
		Position:    fs.String("position", "", "CSS background-position"),
		Attachment:  fs.String("attachment", "", "CSS background-attachment"),
		Resolution:  fs.Int("resolution", 0, "Height field resolution in texels"),
		Perturbance: fs.Float64("perturbance", 0, "Refraction strength"),
		DropRadius:  fs.Float64("drop-radius", 0, "Pointer drop radius in pixels"),
		Interactive: fs.Bool("interactive", true, "Make drops where the pointer moves"),
		CrossOrigin: fs.String("cross-origin", "", "Credentials policy for remote images (anonymous or use-credentials)"),
		NoCache:     fs.Bool("no-cache", false, "Do not cache downloaded images"),

		OutputFile: fs.String("output", "", "Output file for record mode"),
		FPS:        fs.Int("fps", 0, "Frames per second for record mode"),
		Duration:   fs.Float64("duration", 0, "Duration to record in seconds"),
		Codec:      fs.String("codec", "", "Video codec (h264 or hevc)"),
		FFMPEGPath: fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		HWAccel:    fs.Bool("hwaccel", false, "Use the platform hardware encoder"),

		Rain:     fs.String("rain", "", "Ambient drops: none, scripted, mic or file"),
		RainFile: fs.String("rain-file", "", "Audio file driving rain when -rain=file"),
		OpenCL:   fs.Bool("opencl", false, "Run CPU wave updates on OpenCL when built with -tags opencl"),
		Workers:  fs.Int("workers", 0, "CPU renderer goroutines"),

		Telemetry: fs.String("telemetry", "", "Write per-frame statistics to this CSV file"),
	}
}

// Apply copies the flags that were set on the command line into cfg.
func (o *RippleOptions) Apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Window.Mode = *o.Mode
		case "width":
			cfg.Window.Width = *o.Width
		case "height":
			cfg.Window.Height = *o.Height
		case "headless":
			cfg.Window.Headless = *o.Headless
		case "image":
			cfg.Background.Image = CSSImage(*o.Image)
		case "image-url":
			cfg.Ripples.ImageURL = *o.ImageURL
		case "size":
			cfg.Background.Size = *o.Size
		case "position":
			cfg.Background.Position = *o.Position
		case "attachment":
			cfg.Background.Attachment = *o.Attachment
		case "resolution":
			cfg.Ripples.Resolution = *o.Resolution
		case "perturbance":
			cfg.Ripples.Perturbance = *o.Perturbance
		case "drop-radius":
			cfg.Ripples.DropRadius = *o.DropRadius
		case "interactive":
			cfg.Ripples.Interactive = *o.Interactive
		case "cross-origin":
			cfg.Ripples.CrossOrigin = *o.CrossOrigin
		case "no-cache":
			cfg.Ripples.CacheImages = !*o.NoCache
		case "output":
			cfg.Record.Output = *o.OutputFile
		case "fps":
			cfg.Record.FPS = *o.FPS
		case "duration":
			cfg.Record.Duration = *o.Duration
		case "codec":
			cfg.Record.Codec = *o.Codec
		case "ffmpeg":
			cfg.Record.FFmpegPath = *o.FFMPEGPath
		case "hwaccel":
			cfg.Record.HWAccel = *o.HWAccel
		case "rain":
			cfg.Rain.Source = *o.Rain
		case "rain-file":
			cfg.Rain.File = *o.RainFile
		case "opencl":
			cfg.Compute.OpenCL = *o.OpenCL
		case "workers":
			cfg.Compute.Workers = *o.Workers
		case "telemetry":
			cfg.Telemetry.Output = *o.Telemetry
		}
	})
}

// CSSImage wraps a plain path or URL in url(""). Values that already are CSS
// image values pass through.
func CSSImage(v string) string {
	if v == "" || v == "none" || strings.HasPrefix(v, "url(") {
		return v
	}
	return `url("` + v + `")`
}
