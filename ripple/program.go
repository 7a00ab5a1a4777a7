package ripple

import (
	"fmt"

	"github.com/richinsley/goripples/graphics"
	"github.com/richinsley/goripples/shader"
)

// Program is a linked shader program with its uniform locations.
type Program struct {
	Name      string
	ID        graphics.Program
	Locations map[string]graphics.Uniform

	// Geometry uniforms recomputed every frame by the compositor.
	TopLeft        [2]float32
	BottomRight    [2]float32
	ContainerRatio [2]float32
}

// buildProgram compiles and links a vertex/fragment pair. Attribute 0 is
// bound to "vertex" and every declared uniform is resolved.
func buildProgram(dev graphics.Device, name, vertexSrc, fragmentSrc string) (*Program, error) {
	vs, err := dev.CompileShader(graphics.VertexStage, vertexSrc)
	if err != nil {
		return nil, fmt.Errorf("%s program: %w", name, err)
	}
	defer dev.DeleteShader(vs)
	fs, err := dev.CompileShader(graphics.FragmentStage, fragmentSrc)
	if err != nil {
		return nil, fmt.Errorf("%s program: %w", name, err)
	}
	defer dev.DeleteShader(fs)

	id, err := dev.CreateProgram()
	if err != nil {
		return nil, fmt.Errorf("%s program: %w", name, err)
	}
	dev.AttachShader(id, vs)
	dev.AttachShader(id, fs)
	dev.BindAttribLocation(id, 0, "vertex")
	if err := dev.LinkProgram(id); err != nil {
		dev.DeleteProgram(id)
		return nil, fmt.Errorf("%s program: %w", name, err)
	}

	p := &Program{Name: name, ID: id, Locations: make(map[string]graphics.Uniform)}
	for _, u := range shader.Uniforms(vertexSrc, fragmentSrc) {
		p.Locations[u.Name] = dev.UniformLocation(id, u.Name)
	}
	return p, nil
}

func (p *Program) loc(name string) graphics.Uniform {
	if l, ok := p.Locations[name]; ok {
		return l
	}
	return graphics.NoUniform
}

func (p *Program) release(dev graphics.Device) {
	if p != nil && p.ID != 0 {
		dev.DeleteProgram(p.ID)
		p.ID = 0
	}
}
