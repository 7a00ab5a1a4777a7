package ripple

import "github.com/richinsley/goripples/imageloader"

const (
	DefaultResolution  = 512
	DefaultPerturbance = 0.03
	DefaultDropRadius  = 20
)

// Pointer drop policy: hover leaves a faint trail, a press a strong splash.
const (
	moveStrength     = 0.01
	pressStrength    = 0.14
	pressRadiusScale = 1.5
)

// Options are fixed for the lifetime of an instance. Zero numeric values
// select the defaults; booleans are taken as given.
type Options struct {
	// Interactive gates pointer-driven drops. Its zero value is false, so
	// callers wanting the interactive default start from DefaultOptions.
	Interactive bool
	// Resolution is the width and height of the height field in texels.
	Resolution int
	// Perturbance scales the refraction offset.
	Perturbance float64
	// DropRadius is the pointer drop radius in pixels.
	DropRadius float64
	// CrossOrigin is passed to the loader for non-data URIs.
	CrossOrigin string
	// ImageURL overrides the background image found in the element style.
	ImageURL string

	// Loader fetches background images. Nil uses an uncached Fetcher.
	Loader imageloader.Loader
}

// DefaultOptions returns an interactive configuration with default values.
func DefaultOptions() Options {
	return Options{
		Interactive: true,
		Resolution:  DefaultResolution,
		Perturbance: DefaultPerturbance,
		DropRadius:  DefaultDropRadius,
	}
}

func (o Options) normalized() Options {
	if o.Resolution <= 0 {
		o.Resolution = DefaultResolution
	}
	if o.Perturbance == 0 {
		o.Perturbance = DefaultPerturbance
	}
	if o.DropRadius == 0 {
		o.DropRadius = DefaultDropRadius
	}
	if o.Loader == nil {
		o.Loader = &imageloader.Fetcher{}
	}
	return o
}
