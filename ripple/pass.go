package ripple

import "github.com/richinsley/goripples/graphics"

// pass is the complete device state for one quad draw. Every field is applied
// on each draw so that instances sharing a device never inherit bindings from
// one another.
type pass struct {
	program  *Program
	target   graphics.Framebuffer
	viewport [4]int
	textures []graphics.Texture
	blend    bool
	clear    bool
}

func (r *Ripples) apply(p pass, uniforms func(dev graphics.Device, prog *Program)) {
	dev := r.dev
	dev.BindFramebuffer(p.target)
	dev.Viewport(p.viewport[0], p.viewport[1], p.viewport[2], p.viewport[3])
	dev.SetBlending(p.blend)
	if p.clear {
		dev.ClearColor(0, 0, 0, 0)
		dev.Clear()
	}
	for unit, tex := range p.textures {
		dev.BindTexture(unit, tex)
	}
	dev.UseProgram(p.program.ID)
	if uniforms != nil {
		uniforms(dev, p.program)
	}
	dev.DrawArrays(r.quad, graphics.TriangleFan, 0, 4)
	if p.blend {
		dev.SetBlending(false)
	}
}

func (r *Ripples) fieldPass(prog *Program) pass {
	res := r.field.Resolution()
	return pass{
		program:  prog,
		target:   r.field.WriteFramebuffer(),
		viewport: [4]int{0, 0, res, res},
		textures: []graphics.Texture{r.field.ReadTexture()},
	}
}
