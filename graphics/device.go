package graphics

import (
	"errors"
	"fmt"
	"image"
)

// Handles are opaque and device specific. Zero is never a valid object.
type (
	Texture      uint32
	Framebuffer  uint32
	Shader       uint32
	Program      uint32
	VertexBuffer uint32
	Uniform      int32
)

// NoUniform is returned for names the linked program does not expose.
const NoUniform Uniform = -1

// Canvas is the framebuffer handle of the visible surface.
const Canvas Framebuffer = 0

// Texture extensions queried by the capability probe.
const (
	ExtTextureFloat           = "OES_texture_float"
	ExtTextureHalfFloat       = "OES_texture_half_float"
	ExtTextureFloatLinear     = "OES_texture_float_linear"
	ExtTextureHalfFloatLinear = "OES_texture_half_float_linear"
)

// TexelType is the numeric storage of a texture's channels.
type TexelType int

const (
	UnsignedByte TexelType = iota
	HalfFloat
	Float
)

func (t TexelType) String() string {
	switch t {
	case UnsignedByte:
		return "unsigned_byte"
	case HalfFloat:
		return "half_float"
	case Float:
		return "float"
	}
	return fmt.Sprintf("texel(%d)", int(t))
}

type Filter int

const (
	Nearest Filter = iota
	Linear
)

type Wrap int

const (
	ClampToEdge Wrap = iota
	Repeat
)

type Primitive int

const (
	Triangles Primitive = iota
	TriangleFan
)

type ShaderStage int

const (
	VertexStage ShaderStage = iota
	FragmentStage
	LinkStage
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	}
	return "link"
}

// ErrResource reports that the device returned no handle for a requested object.
var ErrResource = errors.New("graphics: resource allocation failed")

// ShaderError carries the compiler or linker log of a failed program.
type ShaderError struct {
	Stage ShaderStage
	Log   string
}

func (e *ShaderError) Error() string {
	if e.Stage == LinkStage {
		return fmt.Sprintf("failed to link program: %s", e.Log)
	}
	return fmt.Sprintf("failed to compile %s shader: %s", e.Stage, e.Log)
}

// Device is a stateful GL-style rendering device. All calls must come from
// the goroutine that owns the device.
type Device interface {
	Extension(name string) bool

	CreateTexture() (Texture, error)
	// AllocTexture (re)defines storage. data may be nil, otherwise it holds
	// width*height RGBA values.
	AllocTexture(tex Texture, width, height int, texel TexelType, data []float32) error
	UploadImage(tex Texture, img *image.RGBA, flipY bool) error
	TexParams(tex Texture, filter Filter, wrap Wrap)
	DeleteTexture(tex Texture)

	CreateFramebuffer() (Framebuffer, error)
	AttachTexture(fb Framebuffer, tex Texture)
	FramebufferComplete(fb Framebuffer) bool
	BindFramebuffer(fb Framebuffer)
	DeleteFramebuffer(fb Framebuffer)

	CompileShader(stage ShaderStage, source string) (Shader, error)
	DeleteShader(sh Shader)
	CreateProgram() (Program, error)
	AttachShader(p Program, sh Shader)
	BindAttribLocation(p Program, index uint32, name string)
	LinkProgram(p Program) error
	UniformLocation(p Program, name string) Uniform
	UseProgram(p Program)
	DeleteProgram(p Program)

	Uniform1f(u Uniform, v float32)
	Uniform2f(u Uniform, x, y float32)
	Uniform1i(u Uniform, v int32)

	BindTexture(unit int, tex Texture)
	Viewport(x, y, width, height int)
	// SetBlending toggles SRC_ALPHA, ONE_MINUS_SRC_ALPHA blending.
	SetBlending(enabled bool)
	ClearColor(r, g, b, a float32)
	Clear()

	CreateVertexBuffer(vertices []float32) (VertexBuffer, error)
	DrawArrays(buf VertexBuffer, mode Primitive, first, count int)
	DeleteVertexBuffer(buf VertexBuffer)

	// ReadPixels returns 8-bit RGBA rows of the bound framebuffer, bottom row first.
	ReadPixels(x, y, width, height int) ([]uint8, error)
	// ReadTexels returns float RGBA rows of the bound framebuffer, bottom row first.
	ReadTexels(x, y, width, height int) ([]float32, error)

	CanvasSize() (int, int)
}

// Resizer is implemented by devices whose canvas size is owned by the caller
// rather than by a window system.
type Resizer interface {
	ResizeCanvas(width, height int)
}
