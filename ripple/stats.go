package ripple

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/richinsley/goripples/graphics"
)

// FieldStats summarises the current height field.
type FieldStats struct {
	// Energy is the sum of squared height deviations from the mean plus the
	// sum of squared velocities.
	Energy float64
	// SumSquares is the plain sum of squared heights.
	SumSquares float64
	MeanHeight float64
	// PeakHeight is the largest absolute height.
	PeakHeight float64
}

var errDisabled = errors.New("ripples are not enabled")

// Heights reads the current read buffer back as height and velocity slices,
// bottom row first.
func (r *Ripples) Heights() (heights, velocities []float64, err error) {
	if !r.Enabled() {
		return nil, nil, errDisabled
	}
	res := r.field.Resolution()
	r.dev.BindFramebuffer(r.field.ReadFramebuffer())
	texels, err := r.dev.ReadTexels(0, 0, res, res)
	r.dev.BindFramebuffer(graphics.Canvas)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read height field: %w", err)
	}
	n := res * res
	heights = make([]float64, n)
	velocities = make([]float64, n)
	for i := 0; i < n; i++ {
		heights[i] = float64(texels[i*4])
		velocities[i] = float64(texels[i*4+1])
	}
	return heights, velocities, nil
}

// Stats computes FieldStats for the current read buffer.
func (r *Ripples) Stats() (FieldStats, error) {
	heights, velocities, err := r.Heights()
	if err != nil {
		return FieldStats{}, err
	}
	var s FieldStats
	n := float64(len(heights))
	s.SumSquares = floats.Dot(heights, heights)
	s.MeanHeight = floats.Sum(heights) / n
	s.PeakHeight = math.Max(math.Abs(floats.Max(heights)), math.Abs(floats.Min(heights)))

	deviation := append([]float64(nil), heights...)
	floats.AddConst(-s.MeanHeight, deviation)
	s.Energy = floats.Dot(deviation, deviation) + floats.Dot(velocities, velocities)
	return s, nil
}
