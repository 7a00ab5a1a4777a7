package softdevice

import (
	"math"

	"github.com/richinsley/goripples/shader"
)

// Varyings carries up to two vec2 outputs from a vertex to a fragment kernel.
type Varyings [4]float32

// Value is the stored state of one uniform.
type Value struct {
	F [2]float32
	I int32
}

// Uniforms is a read-only view of a program's uniform values.
type Uniforms struct {
	names  []string
	values []Value
}

func (u Uniforms) lookup(name string) Value {
	for i, n := range u.names {
		if n == name {
			return u.values[i]
		}
	}
	return Value{}
}

func (u Uniforms) Float(name string) float32   { return u.lookup(name).F[0] }
func (u Uniforms) Vec2(name string) [2]float32 { return u.lookup(name).F }
func (u Uniforms) Int(name string) int32       { return u.lookup(name).I }

// Sampler reads a bound texture unit.
type Sampler interface {
	Sample(u, v float32) [4]float32
}

// Samplers resolves a texture unit to its sampler.
type Samplers func(unit int32) Sampler

// VertexKernel is the Go counterpart of a vertex shader.
type VertexKernel struct {
	Prepare func(u Uniforms) func(vertex [2]float32) (pos [2]float32, out Varyings)
}

// FragmentKernel is the Go counterpart of a fragment shader. Compute names an
// optional accelerated implementation of the whole pass.
type FragmentKernel struct {
	Compute string
	Prepare func(u Uniforms, s Samplers) func(in Varyings) [4]float32
}

const computeWaveUpdate = "wave_update"

var vertexKernels = map[string]*VertexKernel{
	shader.QuadVertex:   {Prepare: quadVertex},
	shader.RenderVertex: {Prepare: renderVertex},
}

var fragmentKernels = map[string]*FragmentKernel{
	shader.DropFragment:   {Prepare: dropFragment},
	shader.UpdateFragment: {Prepare: updateFragment, Compute: computeWaveUpdate},
	shader.RenderFragment: {Prepare: renderFragment},
}

func uniformNames(sources ...string) []string {
	decls := shader.Uniforms(sources...)
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	return names
}

func quadVertex(Uniforms) func([2]float32) ([2]float32, Varyings) {
	return func(v [2]float32) ([2]float32, Varyings) {
		return v, Varyings{v[0]*0.5 + 0.5, v[1]*0.5 + 0.5}
	}
}

func dropFragment(u Uniforms, s Samplers) func(Varyings) [4]float32 {
	field := s(u.Int("heightField"))
	center := u.Vec2("center")
	radius := float64(u.Float("radius"))
	strength := u.Float("strength")
	cx, cy := center[0]*0.5+0.5, center[1]*0.5+0.5
	return func(in Varyings) [4]float32 {
		info := field.Sample(in[0], in[1])
		dx, dy := float64(cx-in[0]), float64(cy-in[1])
		drop := math.Max(0, 1-math.Sqrt(dx*dx+dy*dy)/radius)
		drop = 0.5 - math.Cos(drop*math.Pi)*0.5
		info[0] += float32(drop) * strength
		return info
	}
}

func updateFragment(u Uniforms, s Samplers) func(Varyings) [4]float32 {
	field := s(u.Int("heightField"))
	delta := u.Vec2("delta")
	return func(in Varyings) [4]float32 {
		x, y := in[0], in[1]
		info := field.Sample(x, y)
		average := (field.Sample(x-delta[0], y)[0] +
			field.Sample(x, y-delta[1])[0] +
			field.Sample(x+delta[0], y)[0] +
			field.Sample(x, y+delta[1])[0]) * 0.25
		info[1] += (average - info[0]) * 2
		info[1] *= 0.995
		info[0] += info[1]
		return info
	}
}

func renderVertex(u Uniforms) func([2]float32) ([2]float32, Varyings) {
	topLeft := u.Vec2("topLeft")
	bottomRight := u.Vec2("bottomRight")
	ratio := u.Vec2("containerRatio")
	return func(v [2]float32) ([2]float32, Varyings) {
		tx, ty := v[0]*0.5+0.5, v[1]*0.5+0.5
		bx := topLeft[0] + (bottomRight[0]-topLeft[0])*tx
		by := topLeft[1] + (bottomRight[1]-topLeft[1])*ty
		rx := v[0]*ratio[0]*0.5 + 0.5
		ry := -v[1]*ratio[1]*0.5 + 0.5
		return [2]float32{v[0], -v[1]}, Varyings{rx, ry, bx, 1 - by}
	}
}

var specularDir = func() [2]float64 {
	l := math.Hypot(-0.6, 1)
	return [2]float64{-0.6 / l, 1 / l}
}()

func renderFragment(u Uniforms, s Samplers) func(Varyings) [4]float32 {
	background := s(u.Int("samplerBackground"))
	ripples := s(u.Int("samplerRipples"))
	delta := u.Vec2("delta")
	perturbance := u.Float("perturbance")
	ex, ey := float64(delta[0]), float64(delta[1])
	return func(in Varyings) [4]float32 {
		rx, ry := in[0], in[1]
		h := ripples.Sample(rx, ry)[0]
		hx := float64(ripples.Sample(rx+delta[0], ry)[0] - h)
		hy := float64(ripples.Sample(rx, ry+delta[1])[0] - h)

		// cross((0, hy, ey), (ex, hx, 0))
		nx, ny, nz := -ey*hx, ey*ex, -hy*ex
		l := math.Sqrt(nx*nx + ny*ny + nz*nz)
		ox, oy := -nx/l, -nz/l
		specular := float32(math.Pow(math.Max(0, ox*specularDir[0]+oy*specularDir[1]), 4))

		c := background.Sample(in[2]+float32(ox)*perturbance, in[3]+float32(oy)*perturbance)
		for k := range c {
			c[k] += specular
		}
		return c
	}
}
