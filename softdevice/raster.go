package softdevice

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/richinsley/goripples/graphics"
)

type vertexOut struct {
	x, y float64
	vary Varyings
}

func (d *Device) samplers() Samplers {
	return func(unit int32) Sampler {
		if unit < 0 || int(unit) >= maxTextureUnits {
			return (*texture)(nil)
		}
		return d.textures[d.units[unit]]
	}
}

func (d *Device) draw(buf graphics.VertexBuffer, mode graphics.Primitive, first, count int) error {
	p := d.current
	if p == nil || !p.linked {
		return errors.New("no linked program in use")
	}
	dst := d.target()
	if dst == nil {
		return errors.New("incomplete framebuffer")
	}
	data, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("vertex buffer %d does not exist", buf)
	}
	if first < 0 || count < 3 || (first+count)*2 > len(data) {
		return fmt.Errorf("vertex range %d+%d outside buffer of %d vertices", first, count, len(data)/2)
	}
	u := Uniforms{names: p.uniforms, values: p.values}

	if done, err := d.tryCompute(p, u, dst, mode, count); done || err != nil {
		return err
	}

	vs := p.vertex.vertex.Prepare(u)
	fs := p.fragment.fragment.Prepare(u, d.samplers())

	vx, vy, vw, vh := d.viewport[0], d.viewport[1], d.viewport[2], d.viewport[3]
	verts := make([]vertexOut, count)
	for i := range verts {
		pos, vary := vs([2]float32{data[2*(first+i)], data[2*(first+i)+1]})
		verts[i] = vertexOut{
			x:    (float64(pos[0])+1)*0.5*float64(vw) + float64(vx),
			y:    (float64(pos[1])+1)*0.5*float64(vh) + float64(vy),
			vary: vary,
		}
	}

	var tris [][3]int
	switch mode {
	case graphics.TriangleFan:
		for i := 1; i+1 < count; i++ {
			tris = append(tris, [3]int{0, i, i + 1})
		}
	case graphics.Triangles:
		for i := 0; i+2 < count; i += 3 {
			tris = append(tris, [3]int{i, i + 1, i + 2})
		}
	default:
		return fmt.Errorf("unsupported primitive %d", mode)
	}

	clip := [4]int{max(vx, 0), max(vy, 0), min(vx+vw, dst.width), min(vy+vh, dst.height)}
	for _, t := range tris {
		if err := d.rasterize(dst, clip, verts[t[0]], verts[t[1]], verts[t[2]], fs); err != nil {
			return err
		}
	}
	return nil
}

func edge(a, b vertexOut, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// topLeft reports whether a->b is a top or left edge of a counter-clockwise
// triangle with y pointing up. Pixel centres exactly on such edges are drawn,
// so triangles sharing an edge never both cover a pixel.
func topLeft(a, b vertexOut) bool {
	return (a.y == b.y && b.x < a.x) || b.y < a.y
}

func covers(w float64, a, b vertexOut) bool {
	return w > 0 || (w == 0 && topLeft(a, b))
}

func (d *Device) rasterize(dst *texture, clip [4]int, a, b, c vertexOut, fs func(Varyings) [4]float32) error {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return nil
	}
	if area < 0 {
		b, c = c, b
		area = -area
	}
	minX := max(int(math.Floor(min(a.x, b.x, c.x))), clip[0])
	maxX := min(int(math.Ceil(max(a.x, b.x, c.x))), clip[2])
	minY := max(int(math.Floor(min(a.y, b.y, c.y))), clip[1])
	maxY := min(int(math.Ceil(max(a.y, b.y, c.y))), clip[3])
	if minX >= maxX || minY >= maxY {
		return nil
	}

	rows := maxY - minY
	chunk := (rows + d.workers - 1) / d.workers
	var g errgroup.Group
	for start := minY; start < maxY; start += chunk {
		end := min(start+chunk, maxY)
		g.Go(func() error {
			for y := start; y < end; y++ {
				py := float64(y) + 0.5
				for x := minX; x < maxX; x++ {
					px := float64(x) + 0.5
					w0 := edge(b, c, px, py)
					w1 := edge(c, a, px, py)
					w2 := edge(a, b, px, py)
					if !covers(w0, b, c) || !covers(w1, c, a) || !covers(w2, a, b) {
						continue
					}
					l0, l1, l2 := float32(w0/area), float32(w1/area), float32(w2/area)
					var in Varyings
					for k := range in {
						in[k] = a.vary[k]*l0 + b.vary[k]*l1 + c.vary[k]*l2
					}
					d.writeFragment(dst, y*dst.width+x, fs(in))
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (d *Device) writeFragment(dst *texture, i int, src [4]float32) {
	if dst.texel == graphics.UnsignedByte {
		for k, v := range src {
			src[k] = float32(math.Min(1, math.Max(0, float64(v))))
		}
	}
	if d.blend {
		alpha := src[3]
		old := dst.pix[i*4 : i*4+4]
		for k := range src {
			src[k] = src[k]*alpha + old[k]*(1-alpha)
		}
	}
	dst.store(i, src)
}

// tryCompute hands a full-target wave update to the compute backend. It
// reports false when the pass must be rasterized instead.
func (d *Device) tryCompute(p *program, u Uniforms, dst *texture, mode graphics.Primitive, count int) (bool, error) {
	if d.compute == nil || p.fragment.fragment.Compute != computeWaveUpdate {
		return false, nil
	}
	if mode != graphics.TriangleFan || count != 4 || d.blend {
		return false, nil
	}
	src, ok := d.samplers()(u.Int("heightField")).(*texture)
	if !ok || src == nil || src == dst {
		return false, nil
	}
	size := dst.width
	if dst.height != size || src.width != size || src.height != size ||
		src.texel != graphics.Float || dst.texel != graphics.Float || src.wrap != graphics.ClampToEdge ||
		d.viewport != [4]int{0, 0, size, size} {
		return false, nil
	}
	if err := d.compute.WaveUpdate(src.pix, dst.pix, size); err != nil {
		return true, fmt.Errorf("%s wave update: %w", d.compute.Name(), err)
	}
	return true, nil
}
