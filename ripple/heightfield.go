package ripple

import (
	"fmt"

	"github.com/richinsley/goripples/graphics"
)

// HeightField is the double-buffered simulation state: red holds height,
// green holds velocity. One buffer is read while the other is written; the
// roles swap after every pass.
type HeightField struct {
	dev          graphics.Device
	resolution   int
	textures     [2]graphics.Texture
	framebuffers [2]graphics.Framebuffer
	readIndex    int
	writeIndex   int
}

// NewHeightField allocates both buffers at resolution x resolution and clears
// them to zero.
func NewHeightField(dev graphics.Device, resolution int, c *Capability) (*HeightField, error) {
	h := &HeightField{
		dev:        dev,
		resolution: resolution,
		readIndex:  1,
		writeIndex: 0,
	}

	filter := graphics.Nearest
	if c.LinearFilter {
		filter = graphics.Linear
	}
	var data []float32
	if c.InitialData {
		data = make([]float32, resolution*resolution*4)
	}

	for i := 0; i < 2; i++ {
		tex, err := dev.CreateTexture()
		if err != nil {
			h.Release()
			return nil, fmt.Errorf("height field texture %d: %w", i, err)
		}
		h.textures[i] = tex
		dev.TexParams(tex, filter, graphics.ClampToEdge)
		if err := dev.AllocTexture(tex, resolution, resolution, c.Texel, data); err != nil {
			h.Release()
			return nil, fmt.Errorf("height field texture %d: %w", i, err)
		}

		fb, err := dev.CreateFramebuffer()
		if err != nil {
			h.Release()
			return nil, fmt.Errorf("height field framebuffer %d: %w", i, err)
		}
		h.framebuffers[i] = fb
		dev.AttachTexture(fb, tex)
		if !dev.FramebufferComplete(fb) {
			h.Release()
			return nil, fmt.Errorf("framebuffer %d for height field is not complete", i)
		}
		dev.BindFramebuffer(fb)
		dev.ClearColor(0, 0, 0, 0)
		dev.Clear()
	}
	dev.BindFramebuffer(graphics.Canvas)
	return h, nil
}

// Swap exchanges the read and write roles.
func (h *HeightField) Swap() {
	h.readIndex, h.writeIndex = h.writeIndex, h.readIndex
}

// Indices returns the current read and write buffer indices.
func (h *HeightField) Indices() (read, write int) { return h.readIndex, h.writeIndex }

func (h *HeightField) Resolution() int { return h.resolution }

func (h *HeightField) ReadTexture() graphics.Texture         { return h.textures[h.readIndex] }
func (h *HeightField) ReadFramebuffer() graphics.Framebuffer  { return h.framebuffers[h.readIndex] }
func (h *HeightField) WriteFramebuffer() graphics.Framebuffer { return h.framebuffers[h.writeIndex] }

// Texture returns buffer i regardless of its current role.
func (h *HeightField) Texture(i int) graphics.Texture { return h.textures[i] }

// Release deletes every texture and framebuffer the field owns.
func (h *HeightField) Release() {
	for i := 0; i < 2; i++ {
		if h.framebuffers[i] != 0 {
			h.dev.DeleteFramebuffer(h.framebuffers[i])
			h.framebuffers[i] = 0
		}
		if h.textures[i] != 0 {
			h.dev.DeleteTexture(h.textures[i])
			h.textures[i] = 0
		}
	}
}
