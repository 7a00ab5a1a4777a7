package softdevice

import (
	"math"

	"github.com/richinsley/goripples/graphics"
)

type texture struct {
	width, height int
	texel         graphics.TexelType
	pix           []float32
	filter        graphics.Filter
	wrap          graphics.Wrap
}

func (t *texture) define(width, height int, texel graphics.TexelType) {
	t.width, t.height, t.texel = width, height, texel
	t.pix = make([]float32, width*height*4)
}

// store writes texel i, rounding to the texture's storage precision.
func (t *texture) store(i int, c [4]float32) {
	p := t.pix[i*4 : i*4+4 : i*4+4]
	for k, v := range c {
		p[k] = quantize(t.texel, v)
	}
}

func quantize(texel graphics.TexelType, v float32) float32 {
	switch texel {
	case graphics.HalfFloat:
		return float16BitsToFloat32(float32ToFloat16Bits(v))
	case graphics.UnsignedByte:
		return float32(toByte(v)) / 255
	}
	return v
}

func toByte(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

func wrapIndex(i, n int, wrap graphics.Wrap) int {
	if wrap == graphics.Repeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (t *texture) fetch(x, y int) [4]float32 {
	x = wrapIndex(x, t.width, t.wrap)
	y = wrapIndex(y, t.height, t.wrap)
	i := (y*t.width + x) * 4
	return [4]float32{t.pix[i], t.pix[i+1], t.pix[i+2], t.pix[i+3]}
}

// Sample reads the texture at normalized coordinates with its filter and wrap.
func (t *texture) Sample(u, v float32) [4]float32 {
	if t == nil || t.pix == nil {
		return [4]float32{0, 0, 0, 1}
	}
	fu := float64(u) * float64(t.width)
	fv := float64(v) * float64(t.height)
	if t.filter == graphics.Nearest {
		return t.fetch(int(math.Floor(fu)), int(math.Floor(fv)))
	}
	fu -= 0.5
	fv -= 0.5
	x0, y0 := math.Floor(fu), math.Floor(fv)
	ax, ay := float32(fu-x0), float32(fv-y0)
	ix, iy := int(x0), int(y0)
	c00 := t.fetch(ix, iy)
	c10 := t.fetch(ix+1, iy)
	c01 := t.fetch(ix, iy+1)
	c11 := t.fetch(ix+1, iy+1)
	var out [4]float32
	for k := range out {
		bottom := c00[k] + (c10[k]-c00[k])*ax
		top := c01[k] + (c11[k]-c01[k])*ax
		out[k] = bottom + (top-bottom)*ay
	}
	return out
}
