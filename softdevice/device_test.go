package softdevice

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/richinsley/goripples/graphics"
	"github.com/richinsley/goripples/shader"
)

func mustProgram(t *testing.T, d *Device, vs, fs string) graphics.Program {
	t.Helper()
	v, err := d.CompileShader(graphics.VertexStage, vs)
	if err != nil {
		t.Fatal(err)
	}
	f, err := d.CompileShader(graphics.FragmentStage, fs)
	if err != nil {
		t.Fatal(err)
	}
	p, _ := d.CreateProgram()
	d.AttachShader(p, v)
	d.AttachShader(p, f)
	d.BindAttribLocation(p, 0, "vertex")
	if err := d.LinkProgram(p); err != nil {
		t.Fatal(err)
	}
	return p
}

func floatTarget(t *testing.T, d *Device, w, h int, fill [4]float32) (graphics.Texture, graphics.Framebuffer) {
	t.Helper()
	tex, _ := d.CreateTexture()
	data := make([]float32, w*h*4)
	for i := 0; i < w*h; i++ {
		copy(data[i*4:], fill[:])
	}
	if err := d.AllocTexture(tex, w, h, graphics.Float, data); err != nil {
		t.Fatal(err)
	}
	d.TexParams(tex, graphics.Nearest, graphics.ClampToEdge)
	fb, _ := d.CreateFramebuffer()
	d.AttachTexture(fb, tex)
	if !d.FramebufferComplete(fb) {
		t.Fatal("framebuffer incomplete")
	}
	return tex, fb
}

func TestQuadCoversEveryPixelOnce(t *testing.T) {
	for _, size := range [][2]int{{8, 8}, {7, 5}, {1, 1}} {
		w, h := size[0], size[1]
		d := New(4, 4, WithWorkers(3))
		src, _ := floatTarget(t, d, w, h, [4]float32{1, 0, 0, 0.5})
		dst, fb := floatTarget(t, d, w, h, [4]float32{})
		p := mustProgram(t, d, shader.QuadVertex, shader.DropFragment)
		quad, _ := d.CreateVertexBuffer(shader.QuadVertices)

		d.BindFramebuffer(fb)
		d.Viewport(0, 0, w, h)
		d.UseProgram(p)
		d.BindTexture(0, src)
		d.Uniform1i(d.UniformLocation(p, "heightField"), 0)
		d.Uniform1f(d.UniformLocation(p, "radius"), 1)
		d.SetBlending(true)
		d.DrawArrays(quad, graphics.TriangleFan, 0, 4)
		if err := d.Err(); err != nil {
			t.Fatal(err)
		}

		_, _, pix, _ := d.Texels(dst)
		for i := 0; i < w*h; i++ {
			if pix[i*4] != 0.5 {
				t.Fatalf("%dx%d: texel %d has r=%v, want 0.5 (covered once)", w, h, i, pix[i*4])
			}
		}
	}
}

func TestSampleFilters(t *testing.T) {
	tex := &texture{filter: graphics.Nearest, wrap: graphics.ClampToEdge}
	tex.define(2, 1, graphics.Float)
	tex.store(0, [4]float32{0, 0, 0, 1})
	tex.store(1, [4]float32{1, 0, 0, 1})

	if got := tex.Sample(0.25, 0.5)[0]; got != 0 {
		t.Errorf("nearest left = %v", got)
	}
	if got := tex.Sample(0.75, 0.5)[0]; got != 1 {
		t.Errorf("nearest right = %v", got)
	}
	tex.filter = graphics.Linear
	if got := tex.Sample(0.5, 0.5)[0]; math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("linear midpoint = %v", got)
	}
	if got := tex.Sample(0.0, 0.5)[0]; got != 0 {
		t.Errorf("linear clamped edge = %v", got)
	}
	tex.wrap = graphics.Repeat
	if got := tex.Sample(0.0, 0.5)[0]; math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("linear repeat edge = %v", got)
	}
	var unbound *texture
	if got := unbound.Sample(0.5, 0.5); got != [4]float32{0, 0, 0, 1} {
		t.Errorf("unbound sampler = %v", got)
	}
}

func TestHalfFloatQuantization(t *testing.T) {
	for _, v := range []float32{0, 1, -2.5, 0.0009765625, 65504} {
		if got := quantize(graphics.HalfFloat, v); got != v {
			t.Errorf("exact half %v became %v", v, got)
		}
	}
	if got := quantize(graphics.HalfFloat, 1e6); !math.IsInf(float64(got), 1) {
		t.Errorf("overflow = %v, want +Inf", got)
	}
	if got := quantize(graphics.HalfFloat, 0.1); math.Abs(float64(got)-0.1) > 1e-4 {
		t.Errorf("0.1 quantized to %v", got)
	}
	if got := quantize(graphics.UnsignedByte, 2); got != 1 {
		t.Errorf("byte clamp = %v", got)
	}
}

func TestFramebufferCompleteness(t *testing.T) {
	d := New(4, 4, WithRenderable(graphics.UnsignedByte, graphics.HalfFloat))
	tex, _ := d.CreateTexture()
	fb, _ := d.CreateFramebuffer()
	d.AttachTexture(fb, tex)
	if d.FramebufferComplete(fb) {
		t.Fatal("framebuffer without storage reported complete")
	}
	_ = d.AllocTexture(tex, 32, 32, graphics.Float, nil)
	if d.FramebufferComplete(fb) {
		t.Fatal("float attachment reported complete on a half-float-only device")
	}
	_ = d.AllocTexture(tex, 32, 32, graphics.HalfFloat, nil)
	if !d.FramebufferComplete(fb) {
		t.Fatal("half-float attachment reported incomplete")
	}
}

func TestUnknownShaderSource(t *testing.T) {
	d := New(4, 4)
	_, err := d.CompileShader(graphics.FragmentStage, "#version 300 es\nvoid main() {}")
	var serr *graphics.ShaderError
	if !errors.As(err, &serr) || serr.Stage != graphics.FragmentStage {
		t.Fatalf("err = %v, want fragment ShaderError", err)
	}

	v, _ := d.CompileShader(graphics.VertexStage, shader.QuadVertex)
	p, _ := d.CreateProgram()
	d.AttachShader(p, v)
	if err := d.LinkProgram(p); !errors.As(err, &serr) || serr.Stage != graphics.LinkStage {
		t.Fatalf("link err = %v, want link ShaderError", err)
	}
}

func TestUploadImageFlip(t *testing.T) {
	d := New(4, 4)
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	tex, _ := d.CreateTexture()

	if err := d.UploadImage(tex, img, true); err != nil {
		t.Fatal(err)
	}
	_, _, pix, _ := d.Texels(tex)
	if pix[4] != 1 || pix[0] != 0 {
		t.Fatalf("flipped upload: bottom=%v top=%v", pix[0:4], pix[4:8])
	}

	_ = d.UploadImage(tex, img, false)
	_, _, pix, _ = d.Texels(tex)
	if pix[0] != 1 {
		t.Fatalf("unflipped upload: bottom=%v", pix[0:4])
	}
}

func TestTextureLimitAndLive(t *testing.T) {
	d := New(2, 2, WithTextureLimit(1))
	tex, err := d.CreateTexture()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateTexture(); !errors.Is(err, graphics.ErrResource) {
		t.Fatalf("err = %v, want ErrResource", err)
	}
	d.DeleteTexture(tex)
	if live := d.Live(); live.Textures != 0 {
		t.Fatalf("live textures = %d", live.Textures)
	}
}

func TestClearAndReadPixels(t *testing.T) {
	d := New(3, 2)
	d.BindFramebuffer(graphics.Canvas)
	d.ClearColor(1, 0, 0, 0.5)
	d.Clear()
	px, err := d.ReadPixels(0, 0, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(px) != 24 || px[0] != 255 || px[3] != 128 {
		t.Fatalf("unexpected pixels %v", px[:4])
	}
	if _, err := d.ReadPixels(0, 0, 4, 2); err == nil {
		t.Fatal("reading outside the canvas succeeded")
	}
}

func TestOpenCLUnavailableWithoutTag(t *testing.T) {
	d := New(2, 2)
	if err := d.EnableOpenCL(); err == nil {
		t.Skip("OpenCL backend available")
	}
	if d.ComputeName() != "" {
		t.Fatal("compute backend set after failure")
	}
}
