// Package preview shows the software-rendered ripples in an ebiten window.
package preview

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/richinsley/goripples/graphics"
	"github.com/richinsley/goripples/ripple"
	"github.com/richinsley/goripples/softdevice"
)

var hudColor = color.RGBA{0, 255, 0, 255}

// Game adapts a ripple Driver on a software device to ebiten.Game.
type Game struct {
	driver *ripple.Driver
	dev    *softdevice.Device
	hooks  []ripple.FrameHook
	hud    bool

	lastX, lastY int
}

func New(d *ripple.Driver, dev *softdevice.Device, hooks ...ripple.FrameHook) *Game {
	return &Game{driver: d, dev: dev, hooks: hooks, hud: true, lastX: -1, lastY: -1}
}

// pointerEvents turns the cursor state of this tick into pointer events.
func (g *Game) pointerEvents(x, y int, pressed bool) []graphics.PointerEvent {
	var events []graphics.PointerEvent
	if x != g.lastX || y != g.lastY {
		if g.lastX >= 0 {
			events = append(events, graphics.PointerEvent{Kind: graphics.PointerMove, X: float64(x), Y: float64(y)})
		}
		g.lastX, g.lastY = x, y
	}
	if pressed {
		events = append(events, graphics.PointerEvent{Kind: graphics.PointerDown, X: float64(x), Y: float64(y)})
	}
	return events
}

func (g *Game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	r := g.driver.Ripples()
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		if r.Running() {
			r.Pause()
		} else {
			r.Play()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		if r.Visible() {
			r.Hide()
		} else {
			r.Show()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.hud = !g.hud
	}

	x, y := ebiten.CursorPosition()
	for _, ev := range g.pointerEvents(x, y, inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft)) {
		r.HandlePointer(ev)
	}

	if !g.driver.Tick() {
		return nil
	}
	for _, hook := range g.hooks {
		if err := hook(g.driver.Frames()); err != nil {
			return err
		}
	}
	return g.dev.Err()
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.WritePixels(g.dev.Canvas().Pix)
	if !g.hud {
		return
	}
	r := g.driver.Ripples()
	status := "running"
	if !r.Running() {
		status = "paused"
	}
	backend := g.dev.ComputeName()
	if backend == "" {
		backend = "cpu"
	}
	msg := fmt.Sprintf("%s  %.0f fps  %s  frame %d", status, ebiten.ActualFPS(), backend, g.driver.Frames())
	text.Draw(screen, msg, basicfont.Face7x13, 4, 14, hudColor)
}

func (g *Game) Layout(_, _ int) (int, int) {
	return g.dev.CanvasSize()
}

// Run opens the window and blocks until it is closed.
func Run(g *Game, title string) error {
	w, h := g.dev.CanvasSize()
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(w, h)
	ebiten.SetTPS(60)
	if err := ebiten.RunGame(g); err != nil && err != ebiten.Termination {
		return err
	}
	return nil
}
