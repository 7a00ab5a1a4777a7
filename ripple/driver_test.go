package ripple

import (
	"context"
	"errors"
	"testing"

	"github.com/richinsley/goripples/graphics"
	"github.com/richinsley/goripples/host"
	"github.com/richinsley/goripples/softdevice"
)

type fakeContext struct {
	closeAfter int
	frames     int
	events     [][]graphics.PointerEvent
}

func (c *fakeContext) MakeCurrent()                   {}
func (c *fakeContext) Shutdown()                      {}
func (c *fakeContext) ShouldClose() bool              { return c.frames >= c.closeAfter }
func (c *fakeContext) EndFrame()                      { c.frames++ }
func (c *fakeContext) GetFramebufferSize() (int, int) { return 32, 32 }
func (c *fakeContext) Time() float64                  { return float64(c.frames) / 60 }
func (c *fakeContext) IsGLES() bool                   { return false }

func (c *fakeContext) PollPointer() []graphics.PointerEvent {
	if c.frames < len(c.events) {
		return c.events[c.frames]
	}
	return nil
}

func TestDriverStates(t *testing.T) {
	dev := softdevice.New(32, 32)
	r, err := New(dev, host.NewBox(32, 32, host.Background{}), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	d := NewDriver(r)
	if d.State() != Active {
		t.Fatalf("state = %v, want active", d.State())
	}
	if !d.Tick() || !d.Tick() || d.Frames() != 2 {
		t.Fatalf("active driver ran %d frames", d.Frames())
	}

	d.Destroy()
	if d.State() != Destroyed || !r.Destroyed() {
		t.Fatalf("state = %v after destroy", d.State())
	}
	if d.Tick() {
		t.Error("destroyed driver re-armed")
	}
	if live := dev.Live(); live != (softdevice.Live{}) {
		t.Errorf("destroy left objects: %+v", live)
	}
	d.Destroy()
}

func TestRunDeliversPointerAndStopsOnClose(t *testing.T) {
	r, _, _ := newTestRipples(t, testOptions(), host.Background{})
	d := NewDriver(r)
	c := &fakeContext{
		closeAfter: 3,
		events: [][]graphics.PointerEvent{
			{{Kind: graphics.PointerDown, X: 16, Y: 16}},
		},
	}
	var hooked []uint64
	err := d.Run(context.Background(), c, func(frame uint64) error {
		hooked = append(hooked, frame)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.frames != 3 || len(hooked) != 3 || hooked[2] != 3 {
		t.Errorf("presented %d frames, hooks saw %v", c.frames, hooked)
	}
	s, err := r.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if s.Energy == 0 {
		t.Error("pointer press did not disturb the field")
	}
}

func TestRunStopsOnHookErrorAndCancel(t *testing.T) {
	r, _, _ := newTestRipples(t, testOptions(), host.Background{})
	d := NewDriver(r)

	boom := errors.New("boom")
	err := d.Run(context.Background(), &fakeContext{closeAfter: 10}, func(uint64) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want hook error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx, &fakeContext{closeAfter: 10}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	d.Destroy()
	if err := d.Run(context.Background(), &fakeContext{closeAfter: 10}); err != nil {
		t.Errorf("destroyed driver returned %v", err)
	}
}

func TestDestroyingRipplesStopsDriver(t *testing.T) {
	dev := softdevice.New(32, 32)
	r, err := New(dev, host.NewBox(32, 32, host.Background{}), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	d := NewDriver(r)
	destroyAt := func(frame uint64) error {
		if frame == 2 {
			r.Destroy()
		}
		return nil
	}

	c := &fakeContext{closeAfter: 50}
	if err := d.Run(context.Background(), c, destroyAt); err != nil {
		t.Fatal(err)
	}
	if d.State() != Destroyed {
		t.Errorf("state = %v, want destroyed", d.State())
	}
	if d.Frames() != 2 || c.frames != 2 {
		t.Errorf("ran %d frames, presented %d; want 2", d.Frames(), c.frames)
	}
	if live := dev.Live(); live != (softdevice.Live{}) {
		t.Errorf("objects left: %+v", live)
	}
	d.Destroy()
}
