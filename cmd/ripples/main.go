package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"

	"github.com/richinsley/goripples/config"
	"github.com/richinsley/goripples/host"
	"github.com/richinsley/goripples/imageloader"
	"github.com/richinsley/goripples/options"
	"github.com/richinsley/goripples/ripple"
	"github.com/richinsley/goripples/telemetry"
)

func init() {
	runtime.LockOSThread()
}

func rippleOptions(cfg *config.Config) (ripple.Options, error) {
	loader, err := imageloader.New(cfg.Ripples.CacheImages)
	if err != nil {
		return ripple.Options{}, err
	}
	return ripple.Options{
		Interactive: cfg.Ripples.Interactive,
		Resolution:  cfg.Ripples.Resolution,
		Perturbance: cfg.Ripples.Perturbance,
		DropRadius:  cfg.Ripples.DropRadius,
		CrossOrigin: cfg.Ripples.CrossOrigin,
		ImageURL:    cfg.Ripples.ImageURL,
		Loader:      loader,
	}, nil
}

func element(cfg *config.Config) *host.Box {
	return host.NewBox(float64(cfg.Window.Width), float64(cfg.Window.Height), host.Background{
		Image:      cfg.Background.Image,
		Size:       cfg.Background.Size,
		Position:   cfg.Background.Position,
		Attachment: cfg.Background.Attachment,
	})
}

// frameHooks builds the hooks shared by every mode: ambient rain and
// telemetry. The returned func stops them.
func frameHooks(cfg *config.Config, r *ripple.Ripples, el *host.Box, fps float64) ([]ripple.FrameHook, func(), error) {
	var hooks []ripple.FrameHook
	var closers []func()
	stop := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	rain, err := newRainSource(cfg)
	if err != nil {
		return nil, stop, err
	}
	if rain != nil {
		closers = append(closers, rain.Stop)
		hooks = append(hooks, rainHook(rain, r, el, fps))
	}

	om, err := telemetry.NewOutputManager(cfg.Telemetry.Output, cfg.Telemetry.HostLoad)
	if err != nil {
		stop()
		return nil, func() {}, err
	}
	if om != nil {
		closers = append(closers, func() {
			if err := om.Close(); err != nil {
				log.Printf("Warning: closing telemetry: %v", err)
			}
		})
		hooks = append(hooks, om.Hook(r, cfg.Telemetry.Every))
	}
	return hooks, stop, nil
}

func main() {
	fs := flag.CommandLine
	opts := options.Register(fs)
	flag.Parse()

	if *opts.Help {
		fmt.Println("Water ripples over a background image")
		flag.PrintDefaults()
		return
	}

	cfg, err := config.Load(*opts.ConfigFile)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	opts.Apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *opts.WriteConfig != "" {
		if err := cfg.WriteYAML(*opts.WriteConfig); err != nil {
			log.Fatalf("Error writing configuration: %v", err)
		}
		log.Printf("Configuration written to %s", *opts.WriteConfig)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	switch cfg.Window.Mode {
	case "window":
		err = runWindow(ctx, cfg)
	case "preview":
		err = runPreview(cfg)
	case "record":
		err = runRecord(ctx, cfg)
	}
	if err != nil && err != context.Canceled {
		log.Fatalf("Error: %v", err)
	}
}
