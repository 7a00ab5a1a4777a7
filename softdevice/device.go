// Package softdevice is a CPU implementation of graphics.Device. It executes
// the ripple programs as Go kernels selected by their shader source and
// follows GL conventions: texture row 0 is the bottom row and texel i is
// centred at (i+0.5)/size.
package softdevice

import (
	"errors"
	"fmt"
	"image"
	"runtime"

	"github.com/richinsley/goripples/graphics"
)

const maxTextureUnits = 8

type framebuffer struct {
	color graphics.Texture
}

type shaderObject struct {
	stage    graphics.ShaderStage
	source   string
	vertex   *VertexKernel
	fragment *FragmentKernel
}

type program struct {
	shaders  []graphics.Shader
	attribs  map[string]uint32
	linked   bool
	vertex   *shaderObject
	fragment *shaderObject
	uniforms []string
	values   []Value
}

// Option configures a Device.
type Option func(*Device)

// WithExtensions replaces the advertised extension set.
func WithExtensions(names ...string) Option {
	return func(d *Device) {
		d.extensions = make(map[string]bool, len(names))
		for _, n := range names {
			d.extensions[n] = true
		}
	}
}

// WithRenderable limits which texel types can back a complete framebuffer.
func WithRenderable(types ...graphics.TexelType) Option {
	return func(d *Device) {
		d.renderable = make(map[graphics.TexelType]bool, len(types))
		for _, t := range types {
			d.renderable[t] = true
		}
	}
}

// WithWorkers sets how many goroutines share a draw call.
func WithWorkers(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithTextureLimit makes CreateTexture fail once n textures are live.
func WithTextureLimit(n int) Option {
	return func(d *Device) { d.textureLimit = n }
}

// Device is a software rasterizer with GL-style state.
type Device struct {
	extensions   map[string]bool
	renderable   map[graphics.TexelType]bool
	workers      int
	textureLimit int

	next         uint32
	textures     map[graphics.Texture]*texture
	framebuffers map[graphics.Framebuffer]*framebuffer
	shaders      map[graphics.Shader]*shaderObject
	programs     map[graphics.Program]*program
	buffers      map[graphics.VertexBuffer][]float32

	canvas   *texture
	bound    graphics.Framebuffer
	viewport [4]int
	current  *program
	units    [maxTextureUnits]graphics.Texture
	blend    bool
	clear    [4]float32

	compute computeBackend
	err     error
}

// New creates a device with a width x height 8-bit canvas. By default every
// float texture extension is advertised and all texel types are renderable.
func New(width, height int, opts ...Option) *Device {
	d := &Device{
		workers:      runtime.GOMAXPROCS(0),
		textures:     make(map[graphics.Texture]*texture),
		framebuffers: make(map[graphics.Framebuffer]*framebuffer),
		shaders:      make(map[graphics.Shader]*shaderObject),
		programs:     make(map[graphics.Program]*program),
		buffers:      make(map[graphics.VertexBuffer][]float32),
	}
	WithExtensions(
		graphics.ExtTextureFloat,
		graphics.ExtTextureHalfFloat,
		graphics.ExtTextureFloatLinear,
		graphics.ExtTextureHalfFloatLinear,
	)(d)
	WithRenderable(graphics.UnsignedByte, graphics.HalfFloat, graphics.Float)(d)
	for _, opt := range opts {
		opt(d)
	}
	d.ResizeCanvas(width, height)
	d.viewport = [4]int{0, 0, width, height}
	return d
}

func (d *Device) alloc() uint32 {
	d.next++
	return d.next
}

func (d *Device) setErr(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Err returns and clears the first error recorded by a call that has no
// error result, mirroring glGetError.
func (d *Device) Err() error {
	err := d.err
	d.err = nil
	return err
}

func (d *Device) Extension(name string) bool { return d.extensions[name] }

func (d *Device) CreateTexture() (graphics.Texture, error) {
	if d.textureLimit > 0 && len(d.textures) >= d.textureLimit {
		return 0, fmt.Errorf("texture limit %d reached: %w", d.textureLimit, graphics.ErrResource)
	}
	id := graphics.Texture(d.alloc())
	d.textures[id] = &texture{filter: graphics.Linear, wrap: graphics.Repeat}
	return id, nil
}

func (d *Device) AllocTexture(tex graphics.Texture, width, height int, texel graphics.TexelType, data []float32) error {
	t, ok := d.textures[tex]
	if !ok {
		return fmt.Errorf("texture %d does not exist", tex)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	if data != nil && len(data) != width*height*4 {
		return fmt.Errorf("texture data has %d values, want %d", len(data), width*height*4)
	}
	t.define(width, height, texel)
	if data != nil {
		for i := 0; i < width*height; i++ {
			t.store(i, [4]float32{data[4*i], data[4*i+1], data[4*i+2], data[4*i+3]})
		}
	}
	return nil
}

func (d *Device) UploadImage(tex graphics.Texture, img *image.RGBA, flipY bool) error {
	t, ok := d.textures[tex]
	if !ok {
		return fmt.Errorf("texture %d does not exist", tex)
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return errors.New("empty image")
	}
	t.define(w, h, graphics.UnsignedByte)
	for y := 0; y < h; y++ {
		row := y
		if flipY {
			row = h - 1 - y
		}
		for x := 0; x < w; x++ {
			o := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
			p := img.Pix[o : o+4 : o+4]
			t.store(row*w+x, [4]float32{
				float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255,
			})
		}
	}
	return nil
}

func (d *Device) TexParams(tex graphics.Texture, filter graphics.Filter, wrap graphics.Wrap) {
	t, ok := d.textures[tex]
	if !ok {
		d.setErr(fmt.Errorf("texture %d does not exist", tex))
		return
	}
	t.filter, t.wrap = filter, wrap
}

func (d *Device) DeleteTexture(tex graphics.Texture) {
	delete(d.textures, tex)
	for i, u := range d.units {
		if u == tex {
			d.units[i] = 0
		}
	}
}

func (d *Device) CreateFramebuffer() (graphics.Framebuffer, error) {
	id := graphics.Framebuffer(d.alloc())
	d.framebuffers[id] = &framebuffer{}
	return id, nil
}

func (d *Device) AttachTexture(fb graphics.Framebuffer, tex graphics.Texture) {
	f, ok := d.framebuffers[fb]
	if !ok {
		d.setErr(fmt.Errorf("framebuffer %d does not exist", fb))
		return
	}
	f.color = tex
}

func (d *Device) FramebufferComplete(fb graphics.Framebuffer) bool {
	if fb == graphics.Canvas {
		return true
	}
	f, ok := d.framebuffers[fb]
	if !ok {
		return false
	}
	t, ok := d.textures[f.color]
	if !ok || t.pix == nil {
		return false
	}
	return d.renderable[t.texel]
}

func (d *Device) BindFramebuffer(fb graphics.Framebuffer) { d.bound = fb }

func (d *Device) DeleteFramebuffer(fb graphics.Framebuffer) {
	delete(d.framebuffers, fb)
	if d.bound == fb {
		d.bound = graphics.Canvas
	}
}

func (d *Device) CompileShader(stage graphics.ShaderStage, source string) (graphics.Shader, error) {
	obj := &shaderObject{stage: stage, source: source}
	switch stage {
	case graphics.VertexStage:
		obj.vertex = vertexKernels[source]
		if obj.vertex == nil {
			return 0, &graphics.ShaderError{Stage: stage, Log: "no vertex kernel matches this source"}
		}
	case graphics.FragmentStage:
		obj.fragment = fragmentKernels[source]
		if obj.fragment == nil {
			return 0, &graphics.ShaderError{Stage: stage, Log: "no fragment kernel matches this source"}
		}
	default:
		return 0, fmt.Errorf("invalid shader stage %v", stage)
	}
	id := graphics.Shader(d.alloc())
	d.shaders[id] = obj
	return id, nil
}

func (d *Device) DeleteShader(sh graphics.Shader) { delete(d.shaders, sh) }

func (d *Device) CreateProgram() (graphics.Program, error) {
	id := graphics.Program(d.alloc())
	d.programs[id] = &program{attribs: make(map[string]uint32)}
	return id, nil
}

func (d *Device) AttachShader(p graphics.Program, sh graphics.Shader) {
	prog, ok := d.programs[p]
	if !ok {
		d.setErr(fmt.Errorf("program %d does not exist", p))
		return
	}
	prog.shaders = append(prog.shaders, sh)
}

func (d *Device) BindAttribLocation(p graphics.Program, index uint32, name string) {
	if prog, ok := d.programs[p]; ok {
		prog.attribs[name] = index
	}
}

func (d *Device) LinkProgram(p graphics.Program) error {
	prog, ok := d.programs[p]
	if !ok {
		return fmt.Errorf("program %d does not exist", p)
	}
	prog.vertex, prog.fragment = nil, nil
	for _, sh := range prog.shaders {
		obj, ok := d.shaders[sh]
		if !ok {
			continue
		}
		switch obj.stage {
		case graphics.VertexStage:
			prog.vertex = obj
		case graphics.FragmentStage:
			prog.fragment = obj
		}
	}
	if prog.vertex == nil || prog.fragment == nil {
		return &graphics.ShaderError{Stage: graphics.LinkStage, Log: "program needs one vertex and one fragment shader"}
	}
	if idx, ok := prog.attribs["vertex"]; ok && idx != 0 {
		return &graphics.ShaderError{Stage: graphics.LinkStage, Log: "attribute vertex must use location 0"}
	}
	prog.uniforms = uniformNames(prog.vertex.source, prog.fragment.source)
	prog.values = make([]Value, len(prog.uniforms))
	prog.linked = true
	return nil
}

func (d *Device) UniformLocation(p graphics.Program, name string) graphics.Uniform {
	prog, ok := d.programs[p]
	if !ok || !prog.linked {
		return graphics.NoUniform
	}
	for i, n := range prog.uniforms {
		if n == name {
			return graphics.Uniform(i)
		}
	}
	return graphics.NoUniform
}

func (d *Device) UseProgram(p graphics.Program) {
	if p == 0 {
		d.current = nil
		return
	}
	prog, ok := d.programs[p]
	if !ok {
		d.setErr(fmt.Errorf("program %d does not exist", p))
		return
	}
	d.current = prog
}

func (d *Device) DeleteProgram(p graphics.Program) {
	if prog, ok := d.programs[p]; ok && d.current == prog {
		d.current = nil
	}
	delete(d.programs, p)
}

func (d *Device) uniform(u graphics.Uniform) *Value {
	if d.current == nil || u < 0 || int(u) >= len(d.current.values) {
		return nil
	}
	return &d.current.values[u]
}

func (d *Device) Uniform1f(u graphics.Uniform, v float32) {
	if val := d.uniform(u); val != nil {
		val.F = [2]float32{v, 0}
	}
}

func (d *Device) Uniform2f(u graphics.Uniform, x, y float32) {
	if val := d.uniform(u); val != nil {
		val.F = [2]float32{x, y}
	}
}

func (d *Device) Uniform1i(u graphics.Uniform, v int32) {
	if val := d.uniform(u); val != nil {
		val.I = v
	}
}

func (d *Device) BindTexture(unit int, tex graphics.Texture) {
	if unit < 0 || unit >= maxTextureUnits {
		d.setErr(fmt.Errorf("texture unit %d out of range", unit))
		return
	}
	d.units[unit] = tex
}

func (d *Device) Viewport(x, y, width, height int) { d.viewport = [4]int{x, y, width, height} }

func (d *Device) SetBlending(enabled bool) { d.blend = enabled }

func (d *Device) ClearColor(r, g, b, a float32) { d.clear = [4]float32{r, g, b, a} }

func (d *Device) Clear() {
	t := d.target()
	if t == nil {
		d.setErr(errors.New("clear: incomplete framebuffer"))
		return
	}
	for i := 0; i < t.width*t.height; i++ {
		t.store(i, d.clear)
	}
}

func (d *Device) CreateVertexBuffer(vertices []float32) (graphics.VertexBuffer, error) {
	if len(vertices) == 0 || len(vertices)%2 != 0 {
		return 0, fmt.Errorf("vertex data must hold 2-component positions, got %d values", len(vertices))
	}
	id := graphics.VertexBuffer(d.alloc())
	d.buffers[id] = append([]float32(nil), vertices...)
	return id, nil
}

func (d *Device) DeleteVertexBuffer(buf graphics.VertexBuffer) { delete(d.buffers, buf) }

func (d *Device) DrawArrays(buf graphics.VertexBuffer, mode graphics.Primitive, first, count int) {
	if err := d.draw(buf, mode, first, count); err != nil {
		d.setErr(fmt.Errorf("draw: %w", err))
	}
}

func (d *Device) readBack(x, y, width, height int) (*texture, error) {
	t := d.target()
	if t == nil {
		return nil, errors.New("read: incomplete framebuffer")
	}
	if x < 0 || y < 0 || width <= 0 || height <= 0 || x+width > t.width || y+height > t.height {
		return nil, fmt.Errorf("read rectangle %d,%d %dx%d outside %dx%d target", x, y, width, height, t.width, t.height)
	}
	return t, nil
}

func (d *Device) ReadPixels(x, y, width, height int) ([]uint8, error) {
	t, err := d.readBack(x, y, width, height)
	if err != nil {
		return nil, err
	}
	out := make([]uint8, 0, width*height*4)
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			i := (row*t.width + col) * 4
			for c := 0; c < 4; c++ {
				out = append(out, toByte(t.pix[i+c]))
			}
		}
	}
	return out, nil
}

func (d *Device) ReadTexels(x, y, width, height int) ([]float32, error) {
	t, err := d.readBack(x, y, width, height)
	if err != nil {
		return nil, err
	}
	out := make([]float32, 0, width*height*4)
	for row := y; row < y+height; row++ {
		i := (row*t.width + x) * 4
		out = append(out, t.pix[i:i+width*4]...)
	}
	return out, nil
}

func (d *Device) CanvasSize() (int, int) { return d.canvas.width, d.canvas.height }

// ResizeCanvas reallocates the canvas; its previous contents are discarded.
func (d *Device) ResizeCanvas(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if d.canvas == nil {
		d.canvas = &texture{filter: graphics.Nearest, wrap: graphics.ClampToEdge}
	}
	d.canvas.define(width, height, graphics.UnsignedByte)
}

// Canvas returns the canvas as an image with the top row first.
func (d *Device) Canvas() *image.RGBA {
	w, h := d.CanvasSize()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := d.canvas.pix[(h-1-y)*w*4 : (h-y)*w*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i, v := range src {
			dst[i] = toByte(v)
		}
	}
	return img
}

// Texels returns a copy of a texture's RGBA values, bottom row first.
func (d *Device) Texels(tex graphics.Texture) (width, height int, pix []float32, ok bool) {
	t, ok := d.textures[tex]
	if !ok || t.pix == nil {
		return 0, 0, nil, false
	}
	return t.width, t.height, append([]float32(nil), t.pix...), true
}

// Live reports how many objects of each kind are currently allocated.
type Live struct {
	Textures, Framebuffers, Shaders, Programs, Buffers int
}

func (d *Device) Live() Live {
	return Live{
		Textures:     len(d.textures),
		Framebuffers: len(d.framebuffers),
		Shaders:      len(d.shaders),
		Programs:     len(d.programs),
		Buffers:      len(d.buffers),
	}
}

// EnableOpenCL routes full-field wave updates to an OpenCL device. It fails
// unless the binary was built with -tags opencl and a platform is present.
func (d *Device) EnableOpenCL() error {
	backend, err := newOpenCLBackend()
	if err != nil {
		return err
	}
	if d.compute != nil {
		d.compute.Close()
	}
	d.compute = backend
	return nil
}

// ComputeName names the active compute backend, or "" for the rasterizer.
func (d *Device) ComputeName() string {
	if d.compute == nil {
		return ""
	}
	return d.compute.Name()
}

// Close releases the compute backend, if any.
func (d *Device) Close() {
	if d.compute != nil {
		d.compute.Close()
		d.compute = nil
	}
}

func (d *Device) target() *texture {
	if d.bound == graphics.Canvas {
		return d.canvas
	}
	if !d.FramebufferComplete(d.bound) {
		return nil
	}
	return d.textures[d.framebuffers[d.bound].color]
}

var _ graphics.Device = (*Device)(nil)
var _ graphics.Resizer = (*Device)(nil)
