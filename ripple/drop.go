package ripple

import (
	"math"

	"github.com/richinsley/goripples/graphics"
)

// DropFalloff is the raised-cosine profile the drop shader adds per texel,
// scaled by strength. It is 1 at the center and 0 at or beyond radius.
func DropFalloff(distance, radius float64) float64 {
	d := math.Max(0, 1-distance/radius)
	return 0.5 - math.Cos(d*math.Pi)*0.5
}

// Drop perturbs the field at (x, y) in element-local pixels. radius is in
// pixels; strength is added to the height at the center. Drops with a
// radius that is not positive and finite are ignored.
func (r *Ripples) Drop(x, y, radius, strength float64) {
	if !r.Enabled() {
		return
	}
	if !(radius > 0) || math.IsInf(radius, 1) || math.IsNaN(strength) || math.IsInf(strength, 0) {
		return
	}
	w, h := r.el.ClientSize()
	longest := math.Max(w, h)
	if longest <= 0 {
		return
	}
	radius /= longest
	cx := (2*x - w) / longest
	cy := (h - 2*y) / longest

	r.apply(r.fieldPass(r.dropProgram), func(dev graphics.Device, p *Program) {
		dev.Uniform2f(p.loc("center"), float32(cx), float32(cy))
		dev.Uniform1f(p.loc("radius"), float32(radius))
		dev.Uniform1f(p.loc("strength"), float32(strength))
	})
	r.field.Swap()
}

// DropAtPointer converts page coordinates to element-local ones and drops.
func (r *Ripples) DropAtPointer(pageX, pageY, radius, strength float64) {
	left, top := r.el.Offset()
	borderLeft, borderTop := r.el.BorderWidths()
	r.Drop(pageX-left-borderLeft, pageY-top-borderTop, radius, strength)
}

// HandlePointer applies the pointer policy: movement leaves a faint trail of
// DropRadius sized drops, a press makes a larger and much stronger one.
// Events are ignored unless the effect is visible, running and interactive.
func (r *Ripples) HandlePointer(ev graphics.PointerEvent) {
	if !r.visible || !r.running || !r.opts.Interactive {
		return
	}
	radius, strength := r.opts.DropRadius, moveStrength
	if ev.Kind == graphics.PointerDown {
		radius *= pressRadiusScale
		strength = pressStrength
	}
	r.DropAtPointer(ev.X, ev.Y, radius, strength)
}
