package ripple

import (
	"context"

	"github.com/richinsley/goripples/graphics"
)

// State is the frame driver's lifecycle state.
type State int

const (
	Inactive State = iota
	Active
	Destroyed
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Destroyed:
		return "destroyed"
	}
	return "unknown"
}

// FrameHook runs after a frame has been rendered and before it is presented.
type FrameHook func(frame uint64) error

// Driver re-arms one frame per tick until it is destroyed.
type Driver struct {
	ripples *Ripples
	state   State
	frames  uint64
}

// NewDriver wraps r. The driver is active only if r was set up successfully.
func NewDriver(r *Ripples) *Driver {
	d := &Driver{ripples: r}
	if r.Enabled() {
		d.state = Active
	}
	return d
}

func (d *Driver) State() State { return d.state }

// Frames is the number of ticks that ran a frame.
func (d *Driver) Frames() uint64 { return d.frames }

func (d *Driver) Ripples() *Ripples { return d.ripples }

// Tick runs one frame and reports whether the driver should be re-armed.
// An instance destroyed directly moves the driver to Destroyed.
func (d *Driver) Tick() bool {
	if d.state == Active && d.ripples.Destroyed() {
		d.state = Destroyed
	}
	if d.state != Active {
		return false
	}
	d.ripples.step()
	d.frames++
	return true
}

// Destroy stops the driver and releases the effect's resources before
// returning.
func (d *Driver) Destroy() {
	if d.state == Destroyed {
		return
	}
	d.state = Destroyed
	d.ripples.Destroy()
}

// Run drives frames on c until the context is cancelled, the window closes,
// a hook fails or the driver is destroyed. Pointer events are delivered
// before each frame.
func (d *Driver) Run(ctx context.Context, c graphics.Context, hooks ...FrameHook) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.ShouldClose() {
			return nil
		}
		for _, ev := range c.PollPointer() {
			d.ripples.HandlePointer(ev)
		}
		if !d.Tick() {
			return nil
		}
		for _, hook := range hooks {
			if err := hook(d.frames); err != nil {
				return err
			}
		}
		c.EndFrame()
	}
}
