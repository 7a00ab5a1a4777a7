package main

import (
	"fmt"
	"log"

	"github.com/richinsley/goripples/config"
	"github.com/richinsley/goripples/preview"
	"github.com/richinsley/goripples/ripple"
	"github.com/richinsley/goripples/softdevice"
)

// runPreview renders on the CPU reference device inside an ebiten window.
func runPreview(cfg *config.Config) error {
	dev := softdevice.New(cfg.Window.Width, cfg.Window.Height, softdevice.WithWorkers(cfg.Compute.Workers))
	defer dev.Close()
	if cfg.Compute.OpenCL {
		if err := dev.EnableOpenCL(); err != nil {
			log.Printf("Warning: OpenCL unavailable, using CPU kernels: %v", err)
		} else {
			log.Printf("Wave updates on %s", dev.ComputeName())
		}
	}

	el := element(cfg)
	opts, err := rippleOptions(cfg)
	if err != nil {
		return err
	}
	r, err := ripple.New(dev, el, opts)
	if err != nil {
		return fmt.Errorf("failed to create ripples: %w", err)
	}
	d := ripple.NewDriver(r)
	defer d.Destroy()

	hooks, stop, err := frameHooks(cfg, r, el, 60)
	if err != nil {
		return err
	}
	defer stop()

	log.Println("Starting preview loop...")
	return preview.Run(preview.New(d, dev, hooks...), cfg.Window.Title)
}
