package geometry

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-5 }

func TestResolveOneToOne(t *testing.T) {
	res, err := Resolve(Input{
		Size:        "auto",
		Position:    "0% 0%",
		ImageWidth:  200,
		ImageHeight: 100,
		Element:     Box{Left: 50, Top: 30, Width: 200, Height: 100},
		CanvasWidth: 200, CanvasHeight: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TopLeft != [2]float32{0, 0} || res.BottomRight != [2]float32{1, 1} {
		t.Fatalf("topLeft=%v bottomRight=%v, want (0,0) (1,1)", res.TopLeft, res.BottomRight)
	}
	if res.ContainerRatio != [2]float32{1, 0.5} {
		t.Fatalf("containerRatio=%v", res.ContainerRatio)
	}
}

func TestResolveEmptyValuesUseInitial(t *testing.T) {
	res, err := Resolve(Input{
		ImageWidth: 64, ImageHeight: 64,
		Element:     Box{Width: 64, Height: 64},
		CanvasWidth: 64, CanvasHeight: 64,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Background != (Box{Width: 64, Height: 64}) {
		t.Fatalf("background=%+v", res.Background)
	}
}

func TestBackgroundSize(t *testing.T) {
	container := Box{Width: 400, Height: 200}
	tests := []struct {
		value string
		w, h  float64
	}{
		{"cover", 400, 400},
		{"contain", 200, 200},
		{"auto", 100, 100},
		{"50%", 200, 100},
		{"50% auto", 200, 200},
		{"auto 50px", 50, 50},
		{"120px 30px", 120, 30},
		{"10", 10, 10},
	}
	for _, tc := range tests {
		w, h, err := backgroundSize(tc.value, container, 100, 100)
		if err != nil {
			t.Errorf("%q: %v", tc.value, err)
			continue
		}
		if !near(w, tc.w) || !near(h, tc.h) {
			t.Errorf("%q: got %gx%g want %gx%g", tc.value, w, h, tc.w, tc.h)
		}
	}
	if _, _, err := backgroundSize("calc(1px)", container, 1, 1); err == nil {
		t.Error("calc() accepted")
	}
}

func TestTranslatePosition(t *testing.T) {
	tests := []struct{ in, x, y string }{
		{"center", "50%", "50%"},
		{"top", "50%", "0%"},
		{"bottom", "50%", "100%"},
		{"left", "0%", "50%"},
		{"right", "100%", "50%"},
		{"10px", "10px", "50%"},
		{"right bottom", "100%", "100%"},
		{"top left", "0%", "0%"},
		{"bottom 20px", "20px", "100%"},
		{"center top", "50%", "0%"},
		{"25% 75%", "25%", "75%"},
	}
	for _, tc := range tests {
		x, y, err := translatePosition(tc.in)
		if err != nil || x != tc.x || y != tc.y {
			t.Errorf("%q: got (%s, %s, %v) want (%s, %s)", tc.in, x, y, err, tc.x, tc.y)
		}
	}
	if _, _, err := translatePosition("left 10px top 5px"); err == nil {
		t.Error("four-value position accepted")
	}
}

func TestResolveCenteredCover(t *testing.T) {
	res, err := Resolve(Input{
		Size: "cover", Position: "center",
		ImageWidth: 100, ImageHeight: 100,
		Element:     Box{Left: 0, Top: 0, Width: 400, Height: 200},
		CanvasWidth: 400, CanvasHeight: 200,
	})
	if err != nil {
		t.Fatal(err)
	}
	// 400x400 image centred vertically on a 400x200 element.
	if !near(res.Background.Top, -100) || !near(float64(res.TopLeft[1]), 0.25) || !near(float64(res.BottomRight[1]), 0.75) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestResolveFixedAttachment(t *testing.T) {
	res, err := Resolve(Input{
		Attachment: "fixed",
		ImageWidth: 100, ImageHeight: 100,
		Element:     Box{Left: 10, Top: 300, Width: 50, Height: 50},
		Viewport:    Box{Left: 0, Top: 250, Width: 800, Height: 600},
		CanvasWidth: 50, CanvasHeight: 50,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !near(float64(res.TopLeft[0]), 0.1) || !near(float64(res.TopLeft[1]), 0.5) {
		t.Fatalf("topLeft=%v", res.TopLeft)
	}
}

func TestResolveRejectsEmptyImage(t *testing.T) {
	if _, err := Resolve(Input{Element: Box{Width: 1, Height: 1}}); err == nil {
		t.Fatal("zero-sized image accepted")
	}
}
