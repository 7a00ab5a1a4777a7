//go:build !linux

package headless

import (
	"fmt"

	"github.com/richinsley/goripples/graphics"
)

// NewHeadless reports that EGL pbuffers are only available on Linux.
func NewHeadless(width, height int) (graphics.Context, error) {
	return nil, fmt.Errorf("egl headless rendering is not supported on this platform")
}
