package options

import (
	"flag"
	"testing"

	"github.com/richinsley/goripples/config"
)

func TestApplyOnlySetFlags(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	fs := flag.NewFlagSet("ripples", flag.ContinueOnError)
	o := Register(fs)
	args := []string{"-resolution", "128", "-image", "pool.jpg", "-interactive=false", "-no-cache"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	o.Apply(fs, cfg)

	if cfg.Ripples.Resolution != 128 {
		t.Errorf("resolution = %d", cfg.Ripples.Resolution)
	}
	if cfg.Background.Image != `url("pool.jpg")` {
		t.Errorf("image = %q", cfg.Background.Image)
	}
	if cfg.Ripples.Interactive || cfg.Ripples.CacheImages {
		t.Errorf("interactive=%v cache=%v", cfg.Ripples.Interactive, cfg.Ripples.CacheImages)
	}
	if cfg.Ripples.Perturbance != 0.03 || cfg.Window.Width != 1280 || cfg.Window.Mode != "window" {
		t.Error("unset flags overwrote the configuration")
	}
}

func TestCSSImage(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"none", "none"},
		{"a.png", `url("a.png")`},
		{`url('b.png')`, `url('b.png')`},
		{"https://example.com/c.jpg", `url("https://example.com/c.jpg")`},
	}
	for _, tt := range tests {
		if got := CSSImage(tt.in); got != tt.want {
			t.Errorf("CSSImage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
