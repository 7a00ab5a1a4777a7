package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	glfw "github.com/go-gl/glfw/v3.3/glfw"

	"github.com/richinsley/goripples/config"
	"github.com/richinsley/goripples/gldevice"
	"github.com/richinsley/goripples/glfwcontext"
	"github.com/richinsley/goripples/graphics"
	"github.com/richinsley/goripples/headless"
	"github.com/richinsley/goripples/host"
	"github.com/richinsley/goripples/recorder"
	"github.com/richinsley/goripples/ripple"
)

// session is a GL context with a ripple driver attached to it.
type session struct {
	ctx    graphics.Context
	el     *host.Box
	driver *ripple.Driver
}

func newSession(cfg *config.Config, ctx graphics.Context) (*session, error) {
	dev, err := gldevice.New(ctx)
	if err != nil {
		return nil, err
	}
	w, h := ctx.GetFramebufferSize()
	el := element(cfg)
	el.SetClientSize(float64(w), float64(h))

	opts, err := rippleOptions(cfg)
	if err != nil {
		return nil, err
	}
	r, err := ripple.New(dev, el, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ripples: %w", err)
	}
	return &session{ctx: ctx, el: el, driver: ripple.NewDriver(r)}, nil
}

// followFramebuffer keeps the element the size of the window.
func (s *session) followFramebuffer(uint64) error {
	w, h := s.ctx.GetFramebufferSize()
	cw, ch := s.el.ClientSize()
	if float64(w) != cw || float64(h) != ch {
		s.el.SetClientSize(float64(w), float64(h))
		s.driver.Ripples().UpdateSize()
	}
	return nil
}

func runWindow(ctx context.Context, cfg *config.Config) error {
	if err := glfwcontext.InitGraphics(); err != nil {
		return err
	}
	defer glfwcontext.TerminateGraphics()

	win, err := glfwcontext.New(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, true)
	if err != nil {
		return err
	}
	defer win.Shutdown()

	s, err := newSession(cfg, win)
	if err != nil {
		return err
	}
	defer s.driver.Destroy()

	r := s.driver.Ripples()
	win.RegisterKeyCallback(glfw.KeyP, func() {
		if r.Running() {
			r.Pause()
		} else {
			r.Play()
		}
	})
	win.RegisterKeyCallback(glfw.KeyH, func() {
		if r.Visible() {
			r.Hide()
		} else {
			r.Show()
		}
	})

	hooks, stop, err := frameHooks(cfg, r, s.el, 60)
	if err != nil {
		return err
	}
	defer stop()

	log.Println("Starting interactive render loop...")
	return s.driver.Run(ctx, win, append([]ripple.FrameHook{s.followFramebuffer}, hooks...)...)
}

func recordContext(cfg *config.Config) (graphics.Context, func(), error) {
	if cfg.Window.Headless {
		c, err := headless.NewHeadless(cfg.Window.Width, cfg.Window.Height)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Shutdown, nil
	}
	if err := glfwcontext.InitGraphics(); err != nil {
		return nil, nil, err
	}
	win, err := glfwcontext.New(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, false)
	if err != nil {
		glfwcontext.TerminateGraphics()
		return nil, nil, err
	}
	return win, func() {
		win.Shutdown()
		glfwcontext.TerminateGraphics()
	}, nil
}

var errRecordingDone = errors.New("recording complete")

// runRecord renders fps*duration frames and encodes the canvas of each.
func runRecord(ctx context.Context, cfg *config.Config) error {
	gctx, shutdown, err := recordContext(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	s, err := newSession(cfg, gctx)
	if err != nil {
		return err
	}
	defer s.driver.Destroy()
	r := s.driver.Ripples()

	// The first frames must show the image, not the placeholder.
	if err := r.WaitForImage(ctx); err != nil {
		log.Printf("Warning: background image: %v", err)
	}

	w, h := gctx.GetFramebufferSize()
	rec, err := recorder.New(recorder.Options{
		Width:      w,
		Height:     h,
		FPS:        cfg.Record.FPS,
		OutputFile: cfg.Record.Output,
		Codec:      cfg.Record.Codec,
		FFmpegPath: cfg.Record.FFmpegPath,
		HWAccel:    cfg.Record.HWAccel,
	})
	if err != nil {
		return err
	}

	hooks, stop, err := frameHooks(cfg, r, s.el, float64(cfg.Record.FPS))
	if err != nil {
		rec.Close()
		return err
	}
	defer stop()

	total := uint64(float64(cfg.Record.FPS) * cfg.Record.Duration)
	capture := func(frame uint64) error {
		img, err := r.Snapshot()
		if err != nil {
			return err
		}
		if err := rec.WriteFrame(img, int64(frame-1)); err != nil {
			return err
		}
		if frame%uint64(cfg.Record.FPS) == 0 {
			log.Printf("Rendered %d/%d frames", frame, total)
		}
		if frame >= total {
			return errRecordingDone
		}
		return nil
	}

	log.Println("Starting offscreen render loop...")
	err = s.driver.Run(ctx, gctx, append(hooks, capture)...)
	if err == errRecordingDone {
		err = nil
	}
	if cerr := rec.Close(); err == nil {
		err = cerr
	}
	return err
}
