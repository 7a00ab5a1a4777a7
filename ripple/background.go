package ripple

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"

	"github.com/richinsley/goripples/graphics"
	"github.com/richinsley/goripples/host"
	"github.com/richinsley/goripples/imageloader"
)

// BackgroundSource describes the image currently held by the background texture.
type BackgroundSource struct {
	Source        string
	Width, Height int
	// Placeholder is set while the texture holds the transparent stand-in.
	Placeholder bool
}

const placeholderSize = 32

func (r *Ripples) initBackground() error {
	tex, err := r.dev.CreateTexture()
	if err != nil {
		return fmt.Errorf("background texture: %w", err)
	}
	r.background = tex
	return r.setTransparent()
}

// setTransparent replaces the background with a fully transparent texture.
func (r *Ripples) setTransparent() error {
	r.dev.TexParams(r.background, graphics.Linear, graphics.ClampToEdge)
	data := make([]float32, placeholderSize*placeholderSize*4)
	if err := r.dev.AllocTexture(r.background, placeholderSize, placeholderSize, graphics.UnsignedByte, data); err != nil {
		return fmt.Errorf("placeholder texture: %w", err)
	}
	r.source.Width, r.source.Height = placeholderSize, placeholderSize
	r.source.Placeholder = true
	return nil
}

// imageSource resolves which image the effect should show: the explicit
// option, then the background captured before it was hidden, then the
// element's current background.
func (r *Ripples) imageSource() string {
	if r.opts.ImageURL != "" {
		return r.opts.ImageURL
	}
	if src := host.URLFromCSS(r.originalImage); src != "" {
		return src
	}
	return host.URLFromCSS(r.el.Background().Image)
}

// loadImage starts loading the background image if its source changed.
func (r *Ripples) loadImage() error {
	src := r.imageSource()
	if r.sourceKnown && src == r.source.Source {
		return nil
	}
	r.sourceKnown = true
	r.source.Source = src
	r.cancelLoad()

	if src == "" {
		return r.setTransparent()
	}

	crossOrigin := r.opts.CrossOrigin
	if strings.HasPrefix(src, "data:") {
		crossOrigin = ""
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.loadCancel = cancel
	r.pending = imageloader.LoadAsync(ctx, r.opts.Loader, src, crossOrigin)
	return nil
}

func (r *Ripples) cancelLoad() {
	if r.loadCancel != nil {
		r.loadCancel()
		r.loadCancel = nil
	}
	r.pending = nil
}

// pollImage applies a finished load without blocking.
func (r *Ripples) pollImage() {
	if r.pending == nil {
		return
	}
	select {
	case res, ok := <-r.pending:
		r.finishLoad(res, ok)
	default:
	}
}

// WaitForImage blocks until the pending background load, if any, has been
// applied.
func (r *Ripples) WaitForImage(ctx context.Context) error {
	if r.pending == nil {
		return nil
	}
	select {
	case res, ok := <-r.pending:
		r.finishLoad(res, ok)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Ripples) finishLoad(res imageloader.Result, ok bool) {
	r.cancelLoad()
	if !ok || res.Src != r.source.Source || r.destroyed {
		return
	}
	if res.Err != nil {
		log.Printf("Warning: failed to load background image %q: %v", res.Src, res.Err)
		if err := r.setTransparent(); err != nil {
			log.Printf("Warning: %v", err)
		}
		return
	}
	if err := r.uploadBackground(res.Image); err != nil {
		log.Printf("Warning: failed to upload background image %q: %v", res.Src, err)
		if err := r.setTransparent(); err != nil {
			log.Printf("Warning: %v", err)
		}
		return
	}
	// A hidden instance shows the element's own background; Show hides it.
	if r.visible {
		r.hideCSSBackground()
	}
}

func (r *Ripples) uploadBackground(img image.Image) error {
	rgba := graphics.ToRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	if w == 0 || h == 0 {
		return fmt.Errorf("image is empty")
	}
	wrap := graphics.ClampToEdge
	if graphics.IsPowerOfTwo(w) && graphics.IsPowerOfTwo(h) {
		wrap = graphics.Repeat
	}
	r.dev.TexParams(r.background, graphics.Linear, wrap)
	if err := r.dev.UploadImage(r.background, rgba, true); err != nil {
		return err
	}
	r.source.Width, r.source.Height = w, h
	r.source.Placeholder = false
	log.Printf("Loaded background image %q (%dx%d)", r.source.Source, w, h)
	return nil
}

// hideCSSBackground takes over the element's background once the effect can
// draw it.
func (r *Ripples) hideCSSBackground() {
	current := r.el.Background().Image
	if current == "none" {
		return
	}
	r.originalImage = current
	r.cssHidden = true
	r.el.SetBackgroundImage("none")
}

func (r *Ripples) restoreCSSBackground() {
	if !r.cssHidden {
		return
	}
	r.el.SetBackgroundImage(r.originalImage)
	r.cssHidden = false
}
