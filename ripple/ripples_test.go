package ripple

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"github.com/richinsley/goripples/graphics"
	"github.com/richinsley/goripples/host"
	"github.com/richinsley/goripples/softdevice"
)

// stubLoader returns a fixed image or error and records its calls.
type stubLoader struct {
	img   image.Image
	err   error
	calls []string
	cross []string
}

func (l *stubLoader) Load(_ context.Context, src, crossOrigin string) (image.Image, error) {
	l.calls = append(l.calls, src)
	l.cross = append(l.cross, crossOrigin)
	return l.img, l.err
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Resolution = 32
	opts.Loader = &stubLoader{err: errors.New("no images in tests")}
	return opts
}

func newTestRipples(t *testing.T, opts Options, bg host.Background, devOpts ...softdevice.Option) (*Ripples, *softdevice.Device, *host.Box) {
	t.Helper()
	dev := softdevice.New(32, 32, devOpts...)
	box := host.NewBox(32, 32, bg)
	r, err := New(dev, box, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(r.Destroy)
	return r, dev, box
}

func heights(t *testing.T, r *Ripples) []float64 {
	t.Helper()
	h, _, err := r.Heights()
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name       string
		opts       []softdevice.Option
		wantNil    bool
		texel      graphics.TexelType
		extensions []string
	}{
		{
			name:       "full float with linear",
			texel:      graphics.Float,
			extensions: []string{graphics.ExtTextureFloat, graphics.ExtTextureFloatLinear},
		},
		{
			name:       "half float when float is not renderable",
			opts:       []softdevice.Option{softdevice.WithRenderable(graphics.UnsignedByte, graphics.HalfFloat)},
			texel:      graphics.HalfFloat,
			extensions: []string{graphics.ExtTextureHalfFloat, graphics.ExtTextureHalfFloatLinear},
		},
		{
			name:       "no linear filtering",
			opts:       []softdevice.Option{softdevice.WithExtensions(graphics.ExtTextureFloat)},
			texel:      graphics.Float,
			extensions: []string{graphics.ExtTextureFloat},
		},
		{
			name:    "no float extension",
			opts:    []softdevice.Option{softdevice.WithExtensions()},
			wantNil: true,
		},
		{
			name:    "nothing renderable",
			opts:    []softdevice.Option{softdevice.WithRenderable(graphics.UnsignedByte)},
			wantNil: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := softdevice.New(4, 4, tt.opts...)
			c, err := Probe(dev)
			if err != nil {
				t.Fatal(err)
			}
			if live := dev.Live(); live != (softdevice.Live{}) {
				t.Errorf("probe leaked objects: %+v", live)
			}
			if tt.wantNil {
				if c != nil {
					t.Fatalf("expected no capability, got %+v", c)
				}
				return
			}
			if c == nil {
				t.Fatal("expected a capability")
			}
			if c.Texel != tt.texel {
				t.Errorf("texel = %v, want %v", c.Texel, tt.texel)
			}
			if c.InitialData != (tt.texel == graphics.Float) {
				t.Errorf("initial data = %v for %v", c.InitialData, c.Texel)
			}
			if !reflect.DeepEqual(c.Extensions, tt.extensions) {
				t.Errorf("extensions = %v, want %v", c.Extensions, tt.extensions)
			}
			if c.LinearFilter != (len(tt.extensions) == 2) {
				t.Errorf("linear filter = %v", c.LinearFilter)
			}
		})
	}
}

func TestCapabilityFallbackLeavesElementUntouched(t *testing.T) {
	loader := &stubLoader{img: solid(8, 8, color.RGBA{255, 0, 0, 255})}
	opts := testOptions()
	opts.Loader = loader
	r, dev, box := newTestRipples(t, opts, host.Background{Image: `url("bg.png")`},
		softdevice.WithExtensions())

	if r.Enabled() {
		t.Fatal("expected a disabled instance")
	}
	d := NewDriver(r)
	if d.State() != Inactive {
		t.Errorf("driver state = %v, want inactive", d.State())
	}
	if d.Tick() {
		t.Error("inactive driver re-armed")
	}
	r.Drop(16, 16, 8, 1)
	r.HandlePointer(graphics.PointerEvent{Kind: graphics.PointerDown, X: 4, Y: 4})
	r.Destroy()

	if writes := box.ImageWrites(); len(writes) != 0 {
		t.Errorf("background-image was written: %q", writes)
	}
	if len(loader.calls) != 0 {
		t.Errorf("image loaded while disabled: %v", loader.calls)
	}
	if live := dev.Live(); live != (softdevice.Live{}) {
		t.Errorf("disabled instance holds objects: %+v", live)
	}
}

func TestNoOpDrop(t *testing.T) {
	a, _, _ := newTestRipples(t, testOptions(), host.Background{})
	b, _, _ := newTestRipples(t, testOptions(), host.Background{})
	for _, r := range []*Ripples{a, b} {
		r.Drop(10, 12, 6, 0.5)
		r.Update()
	}

	a.Drop(16, 16, 8, 0)
	a.Update()
	b.Update()

	ha, hb := heights(t, a), heights(t, b)
	for i := range ha {
		if math.Abs(ha[i]-hb[i]) > 1e-6 {
			t.Fatalf("texel %d differs after zero-strength drop: %g vs %g", i, ha[i], hb[i])
		}
	}
}

func TestBufferRoleAlternation(t *testing.T) {
	r, _, _ := newTestRipples(t, testOptions(), host.Background{})
	read0, write0 := r.Field().Indices()
	if read0 != 1 || write0 != 0 {
		t.Fatalf("initial indices read=%d write=%d", read0, write0)
	}
	for n := 1; n <= 7; n++ {
		if n%3 == 0 {
			r.Drop(8, 8, 4, 0.1)
		} else {
			r.Update()
		}
		read, write := r.Field().Indices()
		swapped := read == write0 && write == read0
		if (n%2 == 1) != swapped {
			t.Errorf("after %d passes read=%d write=%d", n, read, write)
		}
	}
}

func TestDropFalloff(t *testing.T) {
	const radius = 0.25
	if got := DropFalloff(0, radius); math.Abs(got-1) > 1e-12 {
		t.Errorf("falloff at center = %g, want 1", got)
	}
	for _, d := range []float64{radius, radius * 1.5, 3} {
		if got := DropFalloff(d, radius); got != 0 {
			t.Errorf("falloff at %g = %g, want 0", d, got)
		}
	}
	prev := DropFalloff(0, radius)
	for d := 0.01; d < radius; d += 0.01 {
		cur := DropFalloff(d, radius)
		if cur > prev {
			t.Fatalf("falloff increases at %g: %g > %g", d, cur, prev)
		}
		prev = cur
	}
}

func TestDropWritesFalloffProfile(t *testing.T) {
	r, _, _ := newTestRipples(t, testOptions(), host.Background{})
	const strength = 0.5
	r.Drop(16, 16, 8, strength)

	h := heights(t, r)
	res := r.Field().Resolution()
	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			u := (float64(x) + 0.5) / float64(res)
			v := (float64(y) + 0.5) / float64(res)
			dist := math.Hypot(0.5-u, 0.5-v)
			want := strength * DropFalloff(dist, 8.0/32)
			if got := h[y*res+x]; math.Abs(got-want) > 1e-5 {
				t.Fatalf("texel (%d,%d) = %g, want %g", x, y, got, want)
			}
		}
	}
	row := h[16*res : 17*res]
	for x := 17; x < res; x++ {
		if row[x] > row[x-1] {
			t.Errorf("profile increases away from center at x=%d", x)
		}
	}
	if row[res-1] != 0 {
		t.Errorf("texel beyond the radius = %g", row[res-1])
	}
}

// Energy here is the squared deviation from the mean height plus squared
// velocity, summed over blocks of steps. A drop raises the mean and the
// clamped edges conserve it, so raw squared heights never fall to zero;
// the wave's own oscillation makes single steps non-monotonic. The test
// asserts block sums strictly decrease and the mean stays put.
func TestDampingEnergyDecays(t *testing.T) {
	r, _, _ := newTestRipples(t, testOptions(), host.Background{})
	r.Drop(12, 20, 6, 0.8)
	start, err := r.Stats()
	if err != nil {
		t.Fatal(err)
	}

	const blocks, steps = 6, 200
	var sums [blocks]float64
	for b := 0; b < blocks; b++ {
		for i := 0; i < steps; i++ {
			r.Update()
			s, err := r.Stats()
			if err != nil {
				t.Fatal(err)
			}
			sums[b] += s.Energy
		}
		if b > 0 && sums[b] >= sums[b-1] {
			t.Errorf("block %d energy %g did not drop below %g", b, sums[b], sums[b-1])
		}
	}
	if last := sums[blocks-1] / steps; last > start.Energy*1e-2 {
		t.Errorf("energy %g has not converged from %g", last, start.Energy)
	}

	end, _ := r.Stats()
	if math.Abs(end.MeanHeight-start.MeanHeight) > math.Abs(start.MeanHeight)*1e-2 {
		t.Errorf("mean height drifted from %g to %g", start.MeanHeight, end.MeanHeight)
	}
}

func TestPointerPolicy(t *testing.T) {
	tests := []struct {
		name    string
		kind    graphics.PointerKind
		prepare func(*Ripples)
		opts    func(*Options)
		peak    float64
	}{
		{name: "move", kind: graphics.PointerMove, peak: moveStrength},
		{name: "press", kind: graphics.PointerDown, peak: pressStrength},
		{name: "paused", kind: graphics.PointerDown, prepare: (*Ripples).Pause},
		{name: "hidden", kind: graphics.PointerDown, prepare: (*Ripples).Hide},
		{name: "not interactive", kind: graphics.PointerDown, opts: func(o *Options) { o.Interactive = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			r, _, _ := newTestRipples(t, opts, host.Background{})
			if tt.prepare != nil {
				tt.prepare(r)
			}
			r.HandlePointer(graphics.PointerEvent{Kind: tt.kind, X: 16, Y: 16})
			s, err := r.Stats()
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(s.PeakHeight-tt.peak) > tt.peak*0.05+1e-9 {
				t.Errorf("peak = %g, want about %g", s.PeakHeight, tt.peak)
			}
		})
	}
}

func TestDropAtPointerUsesElementOffset(t *testing.T) {
	r, _, box := newTestRipples(t, testOptions(), host.Background{})
	box.SetOffset(100, 50)
	box.SetBorderWidths(2, 3)

	// Page (110, 57) is element-local (8, 4), which lies on the corner shared by
	// texel columns 7-8 and rows 27-28.
	r.DropAtPointer(110, 57, 2, 1)
	h := heights(t, r)
	res := r.Field().Resolution()
	best := 0
	for i := range h {
		if h[i] > h[best] {
			best = i
		}
	}
	x, y := best%res, best/res
	if (x != 7 && x != 8) || (y != 27 && y != 28) {
		t.Errorf("peak at texel (%d,%d), want near (8,27)", x, y)
	}
}

func TestTransparentFallback(t *testing.T) {
	opts := testOptions()
	opts.ImageURL = "missing.png"
	r, dev, box := newTestRipples(t, opts, host.Background{Image: `url("other.png")`})
	if err := r.WaitForImage(context.Background()); err != nil {
		t.Fatal(err)
	}

	w, h, pix, ok := dev.Texels(r.BackgroundTexture())
	if !ok || w != placeholderSize || h != placeholderSize {
		t.Fatalf("background is %dx%d (ok=%v)", w, h, ok)
	}
	for i, v := range pix {
		if v != 0 {
			t.Fatalf("placeholder value %d = %g", i, v)
		}
	}
	if !r.Background().Placeholder {
		t.Error("source not marked as placeholder")
	}
	if writes := box.ImageWrites(); len(writes) != 0 {
		t.Errorf("background-image hidden after failed load: %q", writes)
	}
}

func TestImageLoadHidesCSSAndDestroyRestores(t *testing.T) {
	loader := &stubLoader{img: solid(64, 48, color.RGBA{200, 100, 50, 255})}
	opts := testOptions()
	opts.Loader = loader
	opts.CrossOrigin = "anonymous"
	bg := host.Background{Image: `url("bg.png")`, Size: "cover"}
	r, dev, box := newTestRipples(t, opts, bg)
	if err := r.WaitForImage(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(loader.calls, []string{"bg.png"}) || loader.cross[0] != "anonymous" {
		t.Errorf("loader calls %v with %v", loader.calls, loader.cross)
	}
	if got := r.Background(); got.Width != 64 || got.Height != 48 || got.Placeholder {
		t.Errorf("background source = %+v", got)
	}
	if box.Background().Image != "none" {
		t.Errorf("background-image = %q, want none", box.Background().Image)
	}

	r.Destroy()
	want := []string{"none", `url("bg.png")`}
	if writes := box.ImageWrites(); !reflect.DeepEqual(writes, want) {
		t.Errorf("background-image writes = %q, want %q", writes, want)
	}
	if live := dev.Live(); live != (softdevice.Live{}) {
		t.Errorf("objects left after destroy: %+v", live)
	}
}

func TestDataURIIgnoresCrossOrigin(t *testing.T) {
	loader := &stubLoader{img: solid(4, 4, color.RGBA{0, 0, 0, 255})}
	opts := testOptions()
	opts.Loader = loader
	opts.CrossOrigin = "use-credentials"
	opts.ImageURL = "data:image/png;base64,AAAA"
	r, _, _ := newTestRipples(t, opts, host.Background{})
	if err := r.WaitForImage(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(loader.cross) != 1 || loader.cross[0] != "" {
		t.Errorf("cross origin for data URI = %q", loader.cross)
	}
}

func TestRenderShowsFlatBackground(t *testing.T) {
	opts := testOptions()
	opts.Loader = &stubLoader{img: solid(32, 32, color.RGBA{200, 100, 50, 255})}
	r, dev, _ := newTestRipples(t, opts, host.Background{Image: `url("bg.png")`})
	if err := r.WaitForImage(context.Background()); err != nil {
		t.Fatal(err)
	}
	d := NewDriver(r)
	if !d.Tick() {
		t.Fatal("driver did not re-arm")
	}
	if err := dev.Err(); err != nil {
		t.Fatal(err)
	}

	tl, br, ratio := r.Geometry()
	if tl != [2]float32{0, 0} || br != [2]float32{1, 1} || ratio != [2]float32{1, 1} {
		t.Errorf("geometry = %v %v %v", tl, br, ratio)
	}
	img, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []image.Point{{0, 0}, {16, 16}, {31, 31}} {
		c := img.RGBAAt(p.X, p.Y)
		if absDiff(c.R, 200) > 1 || absDiff(c.G, 100) > 1 || absDiff(c.B, 50) > 1 || c.A != 255 {
			t.Errorf("pixel %v = %v", p, c)
		}
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

type failingCompiler struct {
	*softdevice.Device
	stage graphics.ShaderStage
}

func (f failingCompiler) CompileShader(stage graphics.ShaderStage, src string) (graphics.Shader, error) {
	if stage == f.stage {
		return 0, &graphics.ShaderError{Stage: stage, Log: "0:1: syntax error"}
	}
	return f.Device.CompileShader(stage, src)
}

func TestShaderErrorAbortsConstruction(t *testing.T) {
	inner := softdevice.New(32, 32)
	dev := failingCompiler{Device: inner, stage: graphics.FragmentStage}
	r, err := New(dev, host.NewBox(32, 32, host.Background{}), testOptions())
	if err == nil {
		r.Destroy()
		t.Fatal("expected an error")
	}
	var se *graphics.ShaderError
	if !errors.As(err, &se) || se.Stage != graphics.FragmentStage {
		t.Fatalf("error %v is not a fragment ShaderError", err)
	}
	if live := inner.Live(); live != (softdevice.Live{}) {
		t.Errorf("objects left after failed construction: %+v", live)
	}
}

type failingFramebuffers struct {
	*softdevice.Device
}

func (f failingFramebuffers) CreateFramebuffer() (graphics.Framebuffer, error) {
	return 0, fmt.Errorf("framebuffer: %w", graphics.ErrResource)
}

func TestProbeObjectFailureIsAnError(t *testing.T) {
	inner := softdevice.New(32, 32)
	dev := failingFramebuffers{Device: inner}

	c, err := Probe(dev)
	if c != nil || !errors.Is(err, graphics.ErrResource) {
		t.Fatalf("Probe = %+v, %v; want ErrResource", c, err)
	}
	r, err := New(dev, host.NewBox(32, 32, host.Background{}), testOptions())
	if r != nil || !errors.Is(err, graphics.ErrResource) {
		t.Fatalf("New = %v, %v; want ErrResource", r, err)
	}
	if live := inner.Live(); live != (softdevice.Live{}) {
		t.Errorf("objects left after failed probe: %+v", live)
	}
}

func TestResourceFailureAbortsConstruction(t *testing.T) {
	dev := softdevice.New(32, 32, softdevice.WithTextureLimit(1))
	_, err := New(dev, host.NewBox(32, 32, host.Background{}), testOptions())
	if !errors.Is(err, graphics.ErrResource) {
		t.Fatalf("error = %v, want ErrResource", err)
	}
	if live := dev.Live(); live != (softdevice.Live{}) {
		t.Errorf("objects left after failed construction: %+v", live)
	}
}

func TestUpdateSizeResizesCanvasOnly(t *testing.T) {
	r, dev, box := newTestRipples(t, testOptions(), host.Background{})
	box.SetClientSize(48, 40)
	r.UpdateSize()
	if w, h := dev.CanvasSize(); w != 48 || h != 40 {
		t.Errorf("canvas = %dx%d, want 48x40", w, h)
	}
	if res := r.Field().Resolution(); res != 32 {
		t.Errorf("field resolution changed to %d", res)
	}
}

func TestPauseFreezesSimulation(t *testing.T) {
	r, _, _ := newTestRipples(t, testOptions(), host.Background{})
	d := NewDriver(r)
	r.Pause()
	read, write := r.Field().Indices()
	d.Tick()
	if gotRead, gotWrite := r.Field().Indices(); gotRead != read || gotWrite != write {
		t.Error("paused tick advanced the simulation")
	}
	r.Play()
	d.Tick()
	if gotRead, _ := r.Field().Indices(); gotRead == read {
		t.Error("running tick did not advance the simulation")
	}
}

func TestHideAndShow(t *testing.T) {
	opts := testOptions()
	opts.Loader = &stubLoader{img: solid(8, 8, color.RGBA{1, 2, 3, 255})}
	r, _, box := newTestRipples(t, opts, host.Background{Image: `url("a.png")`})
	if err := r.WaitForImage(context.Background()); err != nil {
		t.Fatal(err)
	}
	r.Hide()
	if r.Visible() || box.Background().Image != `url("a.png")` {
		t.Errorf("after hide: visible=%v image=%q", r.Visible(), box.Background().Image)
	}
	r.Show()
	if !r.Visible() || box.Background().Image != "none" {
		t.Errorf("after show: visible=%v image=%q", r.Visible(), box.Background().Image)
	}
}

func TestLoadFinishingWhileHiddenKeepsCSS(t *testing.T) {
	opts := testOptions()
	opts.Loader = &stubLoader{img: solid(8, 8, color.RGBA{1, 2, 3, 255})}
	r, _, box := newTestRipples(t, opts, host.Background{Image: `url("a.png")`})

	r.Hide()
	if err := r.WaitForImage(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := r.Background(); got.Placeholder || got.Width != 8 {
		t.Errorf("background source = %+v", got)
	}
	if writes := box.ImageWrites(); len(writes) != 0 {
		t.Errorf("hidden instance wrote background-image: %q", writes)
	}

	r.Show()
	if box.Background().Image != "none" {
		t.Errorf("after show: image = %q, want none", box.Background().Image)
	}
}

func TestDropIgnoresInvalidRadius(t *testing.T) {
	r, _, _ := newTestRipples(t, testOptions(), host.Background{})
	read, write := r.Field().Indices()
	for _, c := range []struct{ radius, strength float64 }{
		{math.NaN(), 0},
		{0, 0.5},
		{-4, 0.5},
		{math.Inf(1), 0.5},
		{8, math.NaN()},
		{8, math.Inf(-1)},
	} {
		r.Drop(16, 16, c.radius, c.strength)
	}
	if rr, ww := r.Field().Indices(); rr != read || ww != write {
		t.Errorf("invalid drops swapped the field")
	}
	for i, v := range heights(t, r) {
		if v != 0 {
			t.Fatalf("texel %d = %g after invalid drops", i, v)
		}
	}
}

func TestZeroOptionsUseDefaults(t *testing.T) {
	o := Options{}.normalized()
	if o.Resolution != DefaultResolution || o.Perturbance != DefaultPerturbance || o.DropRadius != DefaultDropRadius {
		t.Errorf("normalized = %+v", o)
	}
	if o.Loader == nil {
		t.Error("no default loader")
	}
	if !DefaultOptions().Interactive {
		t.Error("default options are not interactive")
	}
	if o.Interactive {
		t.Error("zero Interactive was turned on by normalized")
	}
}
