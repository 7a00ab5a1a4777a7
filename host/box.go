package host

import "github.com/richinsley/goripples/geometry"

// Box is an in-process Element whose layout is set by its owner, typically a
// window that hosts the canvas.
type Box struct {
	width, height       float64
	left, top           float64
	borderLeft, borderT float64
	background          Background
	viewport            geometry.Box
	history             []string
}

// NewBox creates an element at the page origin that fills a viewport of the
// same size.
func NewBox(width, height float64, bg Background) *Box {
	return &Box{
		width:      width,
		height:     height,
		background: bg,
		viewport:   geometry.Box{Width: width, Height: height},
	}
}

func (b *Box) ClientSize() (float64, float64)   { return b.width, b.height }
func (b *Box) Offset() (float64, float64)       { return b.left, b.top }
func (b *Box) BorderWidths() (float64, float64) { return b.borderLeft, b.borderT }
func (b *Box) Background() Background           { return b.background }
func (b *Box) Viewport() geometry.Box           { return b.viewport }

func (b *Box) SetBackgroundImage(value string) {
	b.background.Image = value
	b.history = append(b.history, value)
}

// SetClientSize resizes the element and keeps the viewport in step.
func (b *Box) SetClientSize(width, height float64) {
	b.width, b.height = width, height
	b.viewport.Width, b.viewport.Height = width, height
}

func (b *Box) SetOffset(left, top float64)       { b.left, b.top = left, top }
func (b *Box) SetBorderWidths(left, top float64) { b.borderLeft, b.borderT = left, top }
func (b *Box) SetViewport(v geometry.Box)        { b.viewport = v }
func (b *Box) SetBackground(bg Background)       { b.background = bg }

// ImageWrites lists every value written through SetBackgroundImage.
func (b *Box) ImageWrites() []string { return append([]string(nil), b.history...) }
