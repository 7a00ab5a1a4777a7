package ripple

import (
	"fmt"

	"github.com/richinsley/goripples/graphics"
)

// Capability is the float texture format the simulation runs on.
type Capability struct {
	Texel graphics.TexelType
	// InitialData reports whether the field textures are allocated with an
	// explicit zeroed backing array.
	InitialData  bool
	LinearFilter bool
	Extensions   []string
}

const probeSize = 32

func newCapability(dev graphics.Device, texel graphics.TexelType, name string, initialData bool) Capability {
	c := Capability{
		Texel:        texel,
		InitialData:  initialData,
		LinearFilter: dev.Extension(name + "_linear"),
		Extensions:   []string{name},
	}
	if c.LinearFilter {
		c.Extensions = append(c.Extensions, name+"_linear")
	}
	return c
}

// Probe selects the best float texture format that can be rendered to, or
// returns nil when the device has none. Failing to create the probe objects
// is an error, not a missing capability.
func Probe(dev graphics.Device) (*Capability, error) {
	if !dev.Extension(graphics.ExtTextureFloat) {
		return nil, nil
	}
	candidates := []Capability{newCapability(dev, graphics.Float, graphics.ExtTextureFloat, true)}
	if dev.Extension(graphics.ExtTextureHalfFloat) {
		candidates = append(candidates, newCapability(dev, graphics.HalfFloat, graphics.ExtTextureHalfFloat, false))
	}

	tex, err := dev.CreateTexture()
	if err != nil {
		return nil, fmt.Errorf("probe texture: %w", err)
	}
	defer dev.DeleteTexture(tex)
	fb, err := dev.CreateFramebuffer()
	if err != nil {
		return nil, fmt.Errorf("probe framebuffer: %w", err)
	}
	defer dev.DeleteFramebuffer(fb)
	defer dev.BindFramebuffer(graphics.Canvas)

	dev.BindFramebuffer(fb)
	dev.TexParams(tex, graphics.Nearest, graphics.ClampToEdge)
	for i := range candidates {
		if err := dev.AllocTexture(tex, probeSize, probeSize, candidates[i].Texel, nil); err != nil {
			continue
		}
		dev.AttachTexture(fb, tex)
		if dev.FramebufferComplete(fb) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}
