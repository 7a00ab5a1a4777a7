package graphics

// PointerKind distinguishes hover movement from a press.
type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerDown
)

// PointerEvent is a pointer sample in page coordinates (pixels, origin top-left).
type PointerEvent struct {
	Kind PointerKind
	X, Y float64
}

// Context defines the interface for an OpenGL context.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	EndFrame()
	GetFramebufferSize() (int, int)
	Time() float64
	IsGLES() bool
	// PollPointer returns the pointer events received since the previous call.
	PollPointer() []PointerEvent
}
