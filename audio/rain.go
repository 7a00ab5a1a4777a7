package audio

import (
	"log"
	"math"
	"math/rand"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

const (
	// analysisSize is the FFT window; 2048 samples give 1024 frequency bins.
	analysisSize = 2048
	historySize  = analysisSize * 4

	lowFrequency  = 60.0
	highFrequency = 6000.0
)

// Drop is an audio onset mapped onto the element. X and Y are fractions of
// the element size.
type Drop struct {
	X, Y     float64
	Radius   float64
	Strength float64
}

type RainOptions struct {
	// Sensitivity is how far a window's level must rise above the running
	// average to count as an onset.
	Sensitivity float64
	// MinLevel gates out background noise (RMS).
	MinLevel float64
	// Radius is the drop radius in pixels for a full-scale onset.
	Radius float64
	// Gain maps RMS level to drop strength, capped at MaxStrength.
	Gain        float64
	MaxStrength float64
	Seed        int64
}

// Rain consumes an audio stream and reports onsets as drops. Feed may run on
// any goroutine; Poll must be called from one goroutine only.
type Rain struct {
	device AudioDevice
	opts   RainOptions

	mutex   sync.Mutex
	history []float32
	pos     int
	fresh   int

	window  []float64
	average float64
	rng     *rand.Rand
}

func NewRain(device AudioDevice, opts RainOptions) *Rain {
	return &Rain{
		device:  device,
		opts:    opts,
		history: make([]float32, historySize),
		window:  blackmanWindow(analysisSize),
		rng:     rand.New(rand.NewSource(opts.Seed)),
	}
}

// Start begins capture and feeds every chunk into the history buffer.
func (r *Rain) Start() error {
	chunks, err := r.device.Start()
	if err != nil {
		return err
	}
	if chunks != nil {
		go r.listen(chunks)
	}
	return nil
}

func (r *Rain) listen(chunks <-chan []float32) {
	for samples := range chunks {
		r.Feed(samples)
	}
	log.Println("Audio stream closed. Rain listener exiting.")
}

func (r *Rain) Stop() error { return r.device.Stop() }

// Feed appends samples to the history buffer.
func (r *Rain) Feed(samples []float32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, s := range samples {
		r.history[r.pos] = s
		r.pos = (r.pos + 1) % historySize
	}
	r.fresh += len(samples)
}

func (r *Rain) recent(n int) (samples []float32, fresh int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	samples = make([]float32, n)
	for i := range samples {
		samples[i] = r.history[(r.pos-n+i+historySize)%historySize]
	}
	fresh, r.fresh = r.fresh, 0
	return samples, fresh
}

// Poll analyses the latest window and returns a drop when it holds an onset.
// Without a positive radius and strength cap it never drops.
func (r *Rain) Poll() (Drop, bool) {
	if !(r.opts.MaxStrength > 0) || !(r.opts.Radius > 0) {
		return Drop{}, false
	}
	samples, fresh := r.recent(analysisSize)
	if fresh == 0 {
		return Drop{}, false
	}
	level, centroid := Analyze(samples, r.window, r.device.SampleRate())

	previous := r.average
	r.average = 0.9*r.average + 0.1*level
	if level < r.opts.MinLevel || level < previous*r.opts.Sensitivity {
		return Drop{}, false
	}

	strength := math.Min(level*r.opts.Gain, r.opts.MaxStrength)
	return Drop{
		X:        frequencyPosition(centroid),
		Y:        r.rng.Float64(),
		Radius:   r.opts.Radius * (0.5 + 0.5*strength/r.opts.MaxStrength),
		Strength: strength,
	}, true
}

// Analyze returns the RMS level of samples and the spectral centroid in Hz
// of the windowed signal.
func Analyze(samples []float32, window []float64, sampleRate int) (rms, centroid float64) {
	x := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s)
	}
	if len(x) == 0 {
		return 0, 0
	}
	rms = math.Sqrt(floats.Dot(x, x) / float64(len(x)))

	floats.Mul(x, window)
	spectrum := fft.FFTReal(x)
	bins := len(spectrum) / 2
	magnitudes := make([]float64, bins)
	frequencies := make([]float64, bins)
	for i := 0; i < bins; i++ {
		re, im := real(spectrum[i]), imag(spectrum[i])
		magnitudes[i] = math.Sqrt(re*re + im*im)
		frequencies[i] = float64(i) * float64(sampleRate) / float64(len(x))
	}
	if total := floats.Sum(magnitudes); total > 0 {
		centroid = floats.Dot(magnitudes, frequencies) / total
	}
	return rms, centroid
}

// frequencyPosition maps a frequency onto [0, 1] on a log scale, low notes
// to the left.
func frequencyPosition(hz float64) float64 {
	if hz <= lowFrequency {
		return 0
	}
	p := math.Log(hz/lowFrequency) / math.Log(highFrequency/lowFrequency)
	return math.Min(p, 1)
}

func blackmanWindow(size int) []float64 {
	window := make([]float64, size)
	a0 := 0.42
	a1 := 0.5
	a2 := 0.08
	invSize := 1.0 / float64(size-1)
	for i := range window {
		t := float64(i) * invSize
		window[i] = a0 - (a1 * math.Cos(2*math.Pi*t)) + (a2 * math.Cos(4*math.Pi*t))
	}
	return window
}
