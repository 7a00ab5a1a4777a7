package ripple

import (
	"log"

	"github.com/richinsley/goripples/geometry"
	"github.com/richinsley/goripples/graphics"
)

// computeBoundaries maps the element onto its background image. On failure
// the previous mapping is kept.
func (r *Ripples) computeBoundaries() {
	bg := r.el.Background()
	left, top := r.el.Offset()
	w, h := r.el.ClientSize()
	cw, ch := r.dev.CanvasSize()

	res, err := geometry.Resolve(geometry.Input{
		Size:         bg.Size,
		Position:     bg.Position,
		Attachment:   bg.Attachment,
		ImageWidth:   float64(r.source.Width),
		ImageHeight:  float64(r.source.Height),
		Element:      geometry.Box{Left: left, Top: top, Width: w, Height: h},
		Viewport:     r.el.Viewport(),
		CanvasWidth:  cw,
		CanvasHeight: ch,
	})
	if err != nil {
		if !r.geometryWarned {
			log.Printf("Warning: keeping previous background geometry: %v", err)
			r.geometryWarned = true
		}
		return
	}
	r.geometryWarned = false

	p := r.renderProgram
	p.TopLeft = res.TopLeft
	p.BottomRight = res.BottomRight
	p.ContainerRatio = res.ContainerRatio
}

// Render composites the refracted background onto the canvas.
func (r *Ripples) Render() {
	if !r.Enabled() {
		return
	}
	w, h := r.dev.CanvasSize()
	r.apply(pass{
		program:  r.renderProgram,
		target:   graphics.Canvas,
		viewport: [4]int{0, 0, w, h},
		textures: []graphics.Texture{r.background, r.field.ReadTexture()},
		blend:    true,
		clear:    true,
	}, func(dev graphics.Device, p *Program) {
		dev.Uniform1f(p.loc("perturbance"), float32(r.opts.Perturbance))
		dev.Uniform2f(p.loc("topLeft"), p.TopLeft[0], p.TopLeft[1])
		dev.Uniform2f(p.loc("bottomRight"), p.BottomRight[0], p.BottomRight[1])
		dev.Uniform2f(p.loc("containerRatio"), p.ContainerRatio[0], p.ContainerRatio[1])
		dev.Uniform1i(p.loc("samplerBackground"), 0)
		dev.Uniform1i(p.loc("samplerRipples"), 1)
	})
}

func (r *Ripples) clearCanvas() {
	w, h := r.dev.CanvasSize()
	r.dev.BindFramebuffer(graphics.Canvas)
	r.dev.Viewport(0, 0, w, h)
	r.dev.ClearColor(0, 0, 0, 0)
	r.dev.Clear()
}
