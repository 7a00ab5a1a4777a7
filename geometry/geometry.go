// Package geometry resolves CSS background sizing and positioning into the
// texture-space rectangle the compositor samples.
package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Box is a rectangle in page pixels.
type Box struct {
	Left, Top, Width, Height float64
}

// Input describes one element and its background as the compositor sees it.
type Input struct {
	Size       string // background-size
	Position   string // background-position
	Attachment string // background-attachment

	ImageWidth, ImageHeight float64

	// Element is the page offset and client size of the element.
	Element Box
	// Viewport is the scroll offset and size of the window, used for fixed
	// attachment.
	Viewport Box

	CanvasWidth, CanvasHeight int
}

// Result holds the resolved background box and the compositor uniforms.
type Result struct {
	Background     Box
	TopLeft        [2]float32
	BottomRight    [2]float32
	ContainerRatio [2]float32
}

// Resolve computes where the background lies relative to the element.
func Resolve(in Input) (Result, error) {
	var res Result
	if in.ImageWidth <= 0 || in.ImageHeight <= 0 {
		return res, fmt.Errorf("image size %gx%g is not positive", in.ImageWidth, in.ImageHeight)
	}

	container := in.Element
	if strings.TrimSpace(in.Attachment) == "fixed" {
		container = in.Viewport
	}

	w, h, err := backgroundSize(in.Size, container, in.ImageWidth, in.ImageHeight)
	if err != nil {
		return res, err
	}
	if w <= 0 || h <= 0 {
		return res, fmt.Errorf("background size %q resolves to %gx%g", in.Size, w, h)
	}

	px, py, err := translatePosition(in.Position)
	if err != nil {
		return res, err
	}
	x, err := positionOffset(px, container.Left, container.Width-w)
	if err != nil {
		return res, err
	}
	y, err := positionOffset(py, container.Top, container.Height-h)
	if err != nil {
		return res, err
	}

	res.Background = Box{Left: x, Top: y, Width: w, Height: h}
	tlx := (in.Element.Left - x) / w
	tly := (in.Element.Top - y) / h
	res.TopLeft = [2]float32{float32(tlx), float32(tly)}
	res.BottomRight = [2]float32{
		float32(tlx + in.Element.Width/w),
		float32(tly + in.Element.Height/h),
	}

	maxSide := max(in.CanvasWidth, in.CanvasHeight)
	if maxSide > 0 {
		res.ContainerRatio = [2]float32{
			float32(in.CanvasWidth) / float32(maxSide),
			float32(in.CanvasHeight) / float32(maxSide),
		}
	}
	return res, nil
}

func backgroundSize(value string, container Box, imgW, imgH float64) (float64, float64, error) {
	value = strings.TrimSpace(value)
	switch value {
	case "cover":
		scale := max(container.Width/imgW, container.Height/imgH)
		return imgW * scale, imgH * scale, nil
	case "contain":
		scale := min(container.Width/imgW, container.Height/imgH)
		return imgW * scale, imgH * scale, nil
	}

	parts := strings.Fields(value)
	ws, hs := "auto", ""
	if len(parts) > 0 {
		ws = parts[0]
	}
	if len(parts) > 1 {
		hs = parts[1]
	} else {
		hs = ws
	}

	w, wAuto, err := sizeLength(ws, container.Width)
	if err != nil {
		return 0, 0, err
	}
	h, hAuto, err := sizeLength(hs, container.Height)
	if err != nil {
		return 0, 0, err
	}
	switch {
	case wAuto && hAuto:
		return imgW, imgH, nil
	case wAuto:
		return imgW * (h / imgH), h, nil
	case hAuto:
		return w, imgH * (w / imgW), nil
	}
	return w, h, nil
}

func sizeLength(s string, extent float64) (v float64, auto bool, err error) {
	if s == "auto" {
		return 0, true, nil
	}
	v, err = length(s, extent)
	return v, false, err
}

// length parses a percentage of extent, a px value or a bare number.
func length(s string, extent float64) (float64, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percentage %q", s)
		}
		return extent * f / 100, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	return f, nil
}

// positionOffset resolves one axis: percentages align the same point of the
// image and the container, lengths offset from the container edge.
func positionOffset(s string, origin, free float64) (float64, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percentage %q", s)
		}
		return origin + free*f/100, nil
	}
	v, err := length(s, 0)
	if err != nil {
		return 0, err
	}
	return origin + v, nil
}

var keywordPercent = map[string]string{
	"left":   "0%",
	"top":    "0%",
	"center": "50%",
	"right":  "100%",
	"bottom": "100%",
}

func isVertical(k string) bool   { return k == "top" || k == "bottom" }
func isHorizontal(k string) bool { return k == "left" || k == "right" }

// translatePosition turns a one- or two-value background-position into an
// x and y component, mapping keywords to percentages.
func translatePosition(value string) (string, string, error) {
	parts := strings.Fields(value)
	switch len(parts) {
	case 0:
		return "0%", "0%", nil
	case 1:
		switch p := parts[0]; {
		case isVertical(p):
			return "50%", keywordPercent[p], nil
		case isHorizontal(p) || p == "center":
			return keywordPercent[p], "50%", nil
		default:
			return p, "50%", nil
		}
	case 2:
		x, y := parts[0], parts[1]
		if isVertical(x) || isHorizontal(y) {
			x, y = y, x
		}
		if k, ok := keywordPercent[x]; ok {
			x = k
		}
		if k, ok := keywordPercent[y]; ok {
			y = k
		}
		return x, y, nil
	}
	return "", "", fmt.Errorf("unsupported background-position %q", value)
}
