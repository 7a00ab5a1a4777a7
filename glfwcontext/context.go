// Package glfwcontext provides a windowed OpenGL 4.1 core context with
// pointer input.
package glfwcontext

import (
	"log"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"

	"github.com/richinsley/goripples/graphics"
)

// Context is a GLFW window. Pointer positions are reported in framebuffer
// pixels with the origin at the top left.
type Context struct {
	window *glfw.Window
	// keyCallbacks run on key presses.
	keyCallbacks map[glfw.Key]func()
	pointer      []graphics.PointerEvent
}

// New creates a window with a current-capable GL context. A hidden window is
// used for offscreen rendering.
func New(width, height int, title string, visible bool) (*Context, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.AlphaBits, 8)

	if visible {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetCursorPosCallback(c.glfwCursorPosCallback)
	win.SetMouseButtonCallback(c.glfwMouseButtonCallback)
	return c, nil
}

// RegisterKeyCallback registers f to run when key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.keyCallbacks[key] = f
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
	if action == glfw.Press {
		if callback, ok := c.keyCallbacks[key]; ok {
			callback()
		}
	}
}

// framebufferPos converts window coordinates to framebuffer pixels.
func (c *Context) framebufferPos(x, y float64) (float64, float64) {
	fbWidth, fbHeight := c.window.GetFramebufferSize()
	winWidth, winHeight := c.window.GetSize()
	if winWidth > 0 && winHeight > 0 {
		x *= float64(fbWidth) / float64(winWidth)
		y *= float64(fbHeight) / float64(winHeight)
	}
	return x, y
}

func (c *Context) glfwCursorPosCallback(w *glfw.Window, x, y float64) {
	px, py := c.framebufferPos(x, y)
	c.pointer = append(c.pointer, graphics.PointerEvent{Kind: graphics.PointerMove, X: px, Y: py})
}

func (c *Context) glfwMouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft || action != glfw.Press {
		return
	}
	px, py := c.framebufferPos(w.GetCursorPos())
	c.pointer = append(c.pointer, graphics.PointerEvent{Kind: graphics.PointerDown, X: px, Y: py})
}

// PollPointer returns the pointer events gathered since the last call.
func (c *Context) PollPointer() []graphics.PointerEvent {
	events := c.pointer
	c.pointer = nil
	return events
}

// DetachCurrent makes no context current on the calling thread.
func (c *Context) DetachCurrent() {
	glfw.DetachCurrentContext()
}

func (c *Context) IsGLES() bool {
	// Always a desktop core profile.
	return false
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// Shutdown destroys the window.
func (c *Context) Shutdown() {
	c.window.Destroy()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

// EndFrame presents the frame and gathers input for the next one.
func (c *Context) EndFrame() {
	c.window.SwapBuffers()
	glfw.PollEvents()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) Time() float64 {
	return glfw.GetTime()
}

// Window returns the underlying *glfw.Window.
func (c *Context) Window() *glfw.Window {
	return c.window
}

// InitGraphics initializes GLFW. Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	log.Printf("GLFW Initialized")
	return nil
}

// TerminateGraphics shuts GLFW down. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	log.Printf("GLFW Terminated")
}
