package preview

import (
	"testing"

	"github.com/richinsley/goripples/graphics"
)

func TestPointerEvents(t *testing.T) {
	g := &Game{lastX: -1, lastY: -1}

	if ev := g.pointerEvents(10, 10, false); len(ev) != 0 {
		t.Fatalf("first sample produced %v", ev)
	}
	if ev := g.pointerEvents(10, 10, false); len(ev) != 0 {
		t.Fatalf("still cursor produced %v", ev)
	}
	ev := g.pointerEvents(12, 15, true)
	if len(ev) != 2 || ev[0].Kind != graphics.PointerMove || ev[1].Kind != graphics.PointerDown {
		t.Fatalf("move with press = %v", ev)
	}
	if ev[1].X != 12 || ev[1].Y != 15 {
		t.Errorf("press at %v,%v", ev[1].X, ev[1].Y)
	}
}
