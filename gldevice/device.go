// Package gldevice implements graphics.Device on an OpenGL 4.1 core or an
// OpenGL ES 3 context. Shader sources are translated to the context's
// dialect before compiling.
package gldevice

import (
	"fmt"
	"image"
	"log"
	"strings"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/goripples/graphics"
	"github.com/richinsley/goripples/translator"
)

var glInitOnce sync.Once

type textureInfo struct {
	width, height int
	texel         graphics.TexelType
}

type vertexBuffer struct {
	vao, vbo uint32
}

// Device issues GL calls on the current context. It must only be used from
// the thread the context is current on.
type Device struct {
	context    graphics.Context
	gles       bool
	extensions map[string]bool

	// names maps declared variable names to translated ones, per shader and
	// per program.
	shaderNames  map[graphics.Shader]map[string]string
	programNames map[graphics.Program]map[string]string
	textures     map[graphics.Texture]textureInfo
	buffers      map[graphics.VertexBuffer]vertexBuffer
	bound        graphics.Framebuffer
}

// New initializes the GL function pointers on ctx and returns a device bound
// to it.
func New(ctx graphics.Context) (*Device, error) {
	ctx.MakeCurrent()

	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}

	d := &Device{
		context:      ctx,
		gles:         ctx.IsGLES(),
		shaderNames:  make(map[graphics.Shader]map[string]string),
		programNames: make(map[graphics.Program]map[string]string),
		textures:     make(map[graphics.Texture]textureInfo),
		buffers:      make(map[graphics.VertexBuffer]vertexBuffer),
	}
	d.extensions = d.queryExtensions()
	log.Printf("OpenGL %s on %s", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))
	return d, nil
}

// queryExtensions maps the context's features onto the float texture
// extension names the capability probe asks for.
func (d *Device) queryExtensions() map[string]bool {
	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	available := make(map[string]bool, n)
	for i := int32(0); i < n; i++ {
		available[gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i)))] = true
	}

	if !d.gles {
		// Float textures, float render targets and their filtering are core in 4.1.
		return map[string]bool{
			graphics.ExtTextureFloat:           true,
			graphics.ExtTextureHalfFloat:       true,
			graphics.ExtTextureFloatLinear:     true,
			graphics.ExtTextureHalfFloatLinear: true,
		}
	}
	floatTarget := available["GL_EXT_color_buffer_float"]
	return map[string]bool{
		graphics.ExtTextureFloat:           floatTarget,
		graphics.ExtTextureHalfFloat:       floatTarget || available["GL_EXT_color_buffer_half_float"],
		graphics.ExtTextureFloatLinear:     available["GL_OES_texture_float_linear"],
		graphics.ExtTextureHalfFloatLinear: true,
	}
}

func (d *Device) Extension(name string) bool { return d.extensions[name] }

func glError(call string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s failed: 0x%x", call, code)
	}
	return nil
}

// --- Textures ---

func (d *Device) CreateTexture() (graphics.Texture, error) {
	var id uint32
	gl.GenTextures(1, &id)
	if id == 0 {
		return 0, fmt.Errorf("glGenTextures: %w", graphics.ErrResource)
	}
	return graphics.Texture(id), nil
}

func texelFormat(texel graphics.TexelType) (internal int32, xtype uint32) {
	switch texel {
	case graphics.Float:
		return gl.RGBA32F, gl.FLOAT
	case graphics.HalfFloat:
		return gl.RGBA16F, gl.HALF_FLOAT
	}
	return gl.RGBA8, gl.UNSIGNED_BYTE
}

func (d *Device) AllocTexture(tex graphics.Texture, width, height int, texel graphics.TexelType, data []float32) error {
	if data != nil && len(data) != width*height*4 {
		return fmt.Errorf("texture data has %d values, want %d", len(data), width*height*4)
	}
	internal, xtype := texelFormat(texel)
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	switch {
	case data == nil:
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, gl.RGBA, xtype, nil)
	case texel == graphics.UnsignedByte:
		pix := make([]uint8, len(data))
		for i, v := range data {
			pix[i] = uint8(min(max(v, 0), 1)*255 + 0.5)
		}
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	default:
		// Half float storage accepts float client data.
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, gl.Ptr(data))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := glError("glTexImage2D"); err != nil {
		return err
	}
	d.textures[tex] = textureInfo{width: width, height: height, texel: texel}
	return nil
}

func (d *Device) UploadImage(tex graphics.Texture, img *image.RGBA, flipY bool) error {
	img = graphics.ToRGBA(img)
	if flipY {
		img = graphics.Flipped(img)
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return fmt.Errorf("cannot upload an empty image")
	}
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := glError("glTexImage2D"); err != nil {
		return err
	}
	d.textures[tex] = textureInfo{width: w, height: h, texel: graphics.UnsignedByte}
	return nil
}

func (d *Device) TexParams(tex graphics.Texture, filter graphics.Filter, wrap graphics.Wrap) {
	var f int32 = gl.NEAREST
	if filter == graphics.Linear {
		f = gl.LINEAR
	}
	var w int32 = gl.CLAMP_TO_EDGE
	if wrap == graphics.Repeat {
		w = gl.REPEAT
	}
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, f)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, f)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, w)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, w)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *Device) DeleteTexture(tex graphics.Texture) {
	id := uint32(tex)
	gl.DeleteTextures(1, &id)
	delete(d.textures, tex)
}

func (d *Device) BindTexture(unit int, tex graphics.Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
}

// --- Framebuffers ---

func (d *Device) CreateFramebuffer() (graphics.Framebuffer, error) {
	var id uint32
	gl.GenFramebuffers(1, &id)
	if id == 0 {
		return 0, fmt.Errorf("glGenFramebuffers: %w", graphics.ErrResource)
	}
	return graphics.Framebuffer(id), nil
}

func (d *Device) AttachTexture(fb graphics.Framebuffer, tex graphics.Texture) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, uint32(tex), 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(d.bound))
}

func (d *Device) FramebufferComplete(fb graphics.Framebuffer) bool {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(d.bound))
	return status == gl.FRAMEBUFFER_COMPLETE
}

func (d *Device) BindFramebuffer(fb graphics.Framebuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	d.bound = fb
}

func (d *Device) DeleteFramebuffer(fb graphics.Framebuffer) {
	if d.bound == fb {
		d.BindFramebuffer(graphics.Canvas)
	}
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
}

// --- Shaders/Programs ---

func (d *Device) CompileShader(stage graphics.ShaderStage, source string) (graphics.Shader, error) {
	var shaderType uint32 = gl.VERTEX_SHADER
	if stage == graphics.FragmentStage {
		shaderType = gl.FRAGMENT_SHADER
	}
	translated, err := translator.Translate(stage.String(), source, d.gles)
	if err != nil {
		return 0, err
	}
	id, err := compileShader(translated.Code, shaderType, stage)
	if err != nil {
		return 0, err
	}
	d.shaderNames[id] = translated.Mapped
	return id, nil
}

func compileShader(source string, shaderType uint32, stage graphics.ShaderStage) (graphics.Shader, error) {
	shader := gl.CreateShader(shaderType)
	if shader == 0 {
		return 0, fmt.Errorf("glCreateShader: %w", graphics.ErrResource)
	}
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, &graphics.ShaderError{Stage: stage, Log: strings.TrimRight(logText, "\x00")}
	}
	return graphics.Shader(shader), nil
}

func (d *Device) DeleteShader(sh graphics.Shader) {
	gl.DeleteShader(uint32(sh))
	delete(d.shaderNames, sh)
}

func (d *Device) CreateProgram() (graphics.Program, error) {
	id := gl.CreateProgram()
	if id == 0 {
		return 0, fmt.Errorf("glCreateProgram: %w", graphics.ErrResource)
	}
	p := graphics.Program(id)
	d.programNames[p] = make(map[string]string)
	return p, nil
}

func (d *Device) AttachShader(p graphics.Program, sh graphics.Shader) {
	gl.AttachShader(uint32(p), uint32(sh))
	names := d.programNames[p]
	for k, v := range d.shaderNames[sh] {
		names[k] = v
	}
}

// mapped returns the translated name of a declared variable.
func (d *Device) mapped(p graphics.Program, name string) string {
	if m, ok := d.programNames[p][name]; ok && m != "" {
		return m
	}
	return name
}

func (d *Device) BindAttribLocation(p graphics.Program, index uint32, name string) {
	gl.BindAttribLocation(uint32(p), index, gl.Str(d.mapped(p, name)+"\x00"))
}

func (d *Device) LinkProgram(p graphics.Program) error {
	program := uint32(p)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logText))
		return &graphics.ShaderError{Stage: graphics.LinkStage, Log: strings.TrimRight(logText, "\x00")}
	}
	return nil
}

func (d *Device) UniformLocation(p graphics.Program, name string) graphics.Uniform {
	return graphics.Uniform(gl.GetUniformLocation(uint32(p), gl.Str(d.mapped(p, name)+"\x00")))
}

func (d *Device) UseProgram(p graphics.Program) { gl.UseProgram(uint32(p)) }

func (d *Device) DeleteProgram(p graphics.Program) {
	gl.DeleteProgram(uint32(p))
	delete(d.programNames, p)
}

func (d *Device) Uniform1f(u graphics.Uniform, v float32)    { gl.Uniform1f(int32(u), v) }
func (d *Device) Uniform2f(u graphics.Uniform, x, y float32) { gl.Uniform2f(int32(u), x, y) }
func (d *Device) Uniform1i(u graphics.Uniform, v int32)      { gl.Uniform1i(int32(u), v) }

// --- State ---

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) SetBlending(enabled bool) {
	if enabled {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		return
	}
	gl.Disable(gl.BLEND)
}

func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (d *Device) Clear() { gl.Clear(gl.COLOR_BUFFER_BIT) }

// --- Geometry ---

// CreateVertexBuffer uploads 2D positions and binds them to attribute 0.
func (d *Device) CreateVertexBuffer(vertices []float32) (graphics.VertexBuffer, error) {
	var b vertexBuffer
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.vbo)
	if b.vao == 0 || b.vbo == 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		gl.DeleteBuffers(1, &b.vbo)
		return 0, fmt.Errorf("vertex buffer: %w", graphics.ErrResource)
	}
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	id := graphics.VertexBuffer(b.vao)
	d.buffers[id] = b
	return id, nil
}

func (d *Device) DrawArrays(buf graphics.VertexBuffer, mode graphics.Primitive, first, count int) {
	var glMode uint32 = gl.TRIANGLES
	if mode == graphics.TriangleFan {
		glMode = gl.TRIANGLE_FAN
	}
	gl.BindVertexArray(d.buffers[buf].vao)
	gl.DrawArrays(glMode, int32(first), int32(count))
	gl.BindVertexArray(0)
}

func (d *Device) DeleteVertexBuffer(buf graphics.VertexBuffer) {
	b, ok := d.buffers[buf]
	if !ok {
		return
	}
	gl.DeleteBuffers(1, &b.vbo)
	gl.DeleteVertexArrays(1, &b.vao)
	delete(d.buffers, buf)
}

// --- Readback ---

func (d *Device) ReadPixels(x, y, width, height int) ([]uint8, error) {
	pix := make([]uint8, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	if err := glError("glReadPixels"); err != nil {
		return nil, err
	}
	return pix, nil
}

func (d *Device) ReadTexels(x, y, width, height int) ([]float32, error) {
	pix := make([]float32, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.FLOAT, gl.Ptr(pix))
	if err := glError("glReadPixels"); err != nil {
		return nil, err
	}
	return pix, nil
}

// CanvasSize is the framebuffer size of the context's default surface.
func (d *Device) CanvasSize() (int, int) { return d.context.GetFramebufferSize() }
