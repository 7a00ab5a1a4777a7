// Package ripple runs a water ripple simulation on a float height field and
// composites it as a refraction of an element's background image.
package ripple

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/richinsley/goripples/graphics"
	"github.com/richinsley/goripples/host"
	"github.com/richinsley/goripples/imageloader"
	"github.com/richinsley/goripples/shader"
)

// Ripples is one effect instance attached to one element. It owns every
// device object it creates. All methods must be called from the goroutine
// that owns the device.
type Ripples struct {
	dev  graphics.Device
	el   host.Element
	opts Options

	capability    *Capability
	field         *HeightField
	dropProgram   *Program
	updateProgram *Program
	renderProgram *Program
	quad          graphics.VertexBuffer
	background    graphics.Texture

	source      BackgroundSource
	sourceKnown bool
	pending     <-chan imageloader.Result
	loadCancel  context.CancelFunc

	originalImage  string
	cssHidden      bool
	geometryWarned bool

	visible     bool
	running     bool
	initialized bool
	destroyed   bool
}

// New attaches an effect to el. When the device cannot render to any float
// texture format the returned instance is disabled, the element is left
// untouched and the error is nil. Device objects that cannot be created are
// an error.
func New(dev graphics.Device, el host.Element, opts Options) (*Ripples, error) {
	r := &Ripples{dev: dev, el: el, opts: opts.normalized()}
	r.UpdateSize()

	c, err := Probe(dev)
	if err != nil {
		return nil, err
	}
	r.capability = c
	if r.capability == nil {
		log.Println("Ripples disabled: no renderable floating point texture format")
		return r, nil
	}

	if err := r.setup(); err != nil {
		r.release()
		return nil, err
	}
	r.visible, r.running, r.initialized = true, true, true
	log.Printf("Ripples initialized: %dx%d %s height field, linear filtering %v",
		r.opts.Resolution, r.opts.Resolution, r.capability.Texel, r.capability.LinearFilter)
	return r, nil
}

func (r *Ripples) setup() error {
	for _, ext := range r.capability.Extensions {
		r.dev.Extension(ext)
	}

	var err error
	if r.field, err = NewHeightField(r.dev, r.opts.Resolution, r.capability); err != nil {
		return err
	}
	if r.quad, err = r.dev.CreateVertexBuffer(shader.QuadVertices); err != nil {
		return fmt.Errorf("quad vertex buffer: %w", err)
	}
	if err = r.buildPrograms(); err != nil {
		return err
	}
	if err = r.initBackground(); err != nil {
		return err
	}
	if err = r.loadImage(); err != nil {
		return err
	}
	r.dev.ClearColor(0, 0, 0, 0)
	return nil
}

func (r *Ripples) buildPrograms() error {
	var err error
	if r.dropProgram, err = buildProgram(r.dev, "drop", shader.QuadVertex, shader.DropFragment); err != nil {
		return err
	}
	if r.updateProgram, err = buildProgram(r.dev, "update", shader.QuadVertex, shader.UpdateFragment); err != nil {
		return err
	}
	if r.renderProgram, err = buildProgram(r.dev, "render", shader.RenderVertex, shader.RenderFragment); err != nil {
		return err
	}

	delta := float32(1) / float32(r.opts.Resolution)
	for _, p := range []*Program{r.updateProgram, r.renderProgram} {
		r.dev.UseProgram(p.ID)
		r.dev.Uniform2f(p.loc("delta"), delta, delta)
	}
	return nil
}

// release deletes every device object created so far.
func (r *Ripples) release() {
	r.cancelLoad()
	for _, p := range []*Program{r.dropProgram, r.updateProgram, r.renderProgram} {
		p.release(r.dev)
	}
	if r.field != nil {
		r.field.Release()
	}
	if r.quad != 0 {
		r.dev.DeleteVertexBuffer(r.quad)
		r.quad = 0
	}
	if r.background != 0 {
		r.dev.DeleteTexture(r.background)
		r.background = 0
	}
}

// Enabled reports whether the effect is set up and not destroyed.
func (r *Ripples) Enabled() bool { return r.initialized && !r.destroyed }

func (r *Ripples) Visible() bool   { return r.visible }
func (r *Ripples) Running() bool   { return r.running }
func (r *Ripples) Destroyed() bool { return r.destroyed }

// Capability returns the selected texture format, or nil when disabled.
func (r *Ripples) Capability() *Capability { return r.capability }

func (r *Ripples) Field() *HeightField { return r.field }

func (r *Ripples) Options() Options { return r.opts }

func (r *Ripples) Background() BackgroundSource { return r.source }

// BackgroundTexture is the device texture the compositor samples.
func (r *Ripples) BackgroundTexture() graphics.Texture { return r.background }

// Geometry returns the current compositor mapping.
func (r *Ripples) Geometry() (topLeft, bottomRight, containerRatio [2]float32) {
	if r.renderProgram == nil {
		return
	}
	p := r.renderProgram
	return p.TopLeft, p.BottomRight, p.ContainerRatio
}

// Pause freezes the simulation; the frozen field is still rendered.
func (r *Ripples) Pause() { r.running = false }

// Play resumes the simulation.
func (r *Ripples) Play() { r.running = true }

// Hide stops rendering and gives the element its own background back.
func (r *Ripples) Hide() {
	if !r.Enabled() {
		return
	}
	r.visible = false
	r.clearCanvas()
	r.restoreCSSBackground()
}

// Show resumes rendering.
func (r *Ripples) Show() {
	if !r.Enabled() {
		return
	}
	r.visible = true
	if !r.source.Placeholder {
		r.hideCSSBackground()
	}
}

// UpdateSize resizes the canvas to the element's client size. The height
// field keeps its resolution.
func (r *Ripples) UpdateSize() {
	rs, ok := r.dev.(graphics.Resizer)
	if !ok {
		return
	}
	w, h := r.el.ClientSize()
	cw, ch := r.dev.CanvasSize()
	if int(w) != cw || int(h) != ch {
		rs.ResizeCanvas(int(w), int(h))
	}
}

// step runs one frame: geometry, simulation and composition.
func (r *Ripples) step() {
	r.pollImage()
	if !r.visible {
		return
	}
	r.computeBoundaries()
	if r.running {
		r.Update()
	}
	r.Render()
}

// Destroy releases every device object and restores the element's
// background. The instance cannot be used afterwards.
func (r *Ripples) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	r.visible, r.running = false, false
	r.release()
	r.restoreCSSBackground()
	log.Println("Ripples destroyed")
}

// Snapshot reads the canvas back as an image with the top row first.
func (r *Ripples) Snapshot() (*image.RGBA, error) {
	w, h := r.dev.CanvasSize()
	r.dev.BindFramebuffer(graphics.Canvas)
	pix, err := r.dev.ReadPixels(0, 0, w, h)
	if err != nil {
		return nil, fmt.Errorf("failed to read canvas: %w", err)
	}
	img := &image.RGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	graphics.FlipRows(img.Pix, img.Stride, h)
	return img, nil
}
