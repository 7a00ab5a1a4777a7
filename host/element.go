// Package host models the element the ripple effect is attached to.
package host

import (
	"regexp"

	"github.com/richinsley/goripples/geometry"
)

// Background is the computed background style of an element.
type Background struct {
	Image      string // background-image, e.g. `url("a.png")` or "none"
	Size       string
	Position   string
	Attachment string
}

// Element is the styling and layout surface the effect reads and writes.
type Element interface {
	// ClientSize is the padding-box size in pixels.
	ClientSize() (width, height float64)
	// Offset is the border-box position on the page.
	Offset() (left, top float64)
	BorderWidths() (left, top float64)
	Background() Background
	SetBackgroundImage(value string)
	// Viewport is the scroll offset and size of the window.
	Viewport() geometry.Box
}

var cssURL = regexp.MustCompile(`url\(["']?([^"')]*)["']?\)`)

// URLFromCSS extracts the address of the first url() in a CSS value.
func URLFromCSS(value string) string {
	m := cssURL.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}
