package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/richinsley/goripples/audio"
	"github.com/richinsley/goripples/config"
	"github.com/richinsley/goripples/host"
	"github.com/richinsley/goripples/ripple"
)

// rainSource yields the drops due by time now, in seconds.
type rainSource interface {
	Next(now float64) []audio.Drop
	Stop()
}

// scriptedRain is a Poisson process with log-normal strengths.
type scriptedRain struct {
	rate        float64
	mu, sigma   float64
	radius      float64
	maxStrength float64
	rng         *rand.Rand
	next        float64
}

func newScriptedRain(c config.RainConfig) *scriptedRain {
	s := &scriptedRain{
		rate:        c.DropsPerSecond,
		mu:          c.StrengthMu,
		sigma:       c.StrengthSigma,
		radius:      c.Radius,
		maxStrength: c.MaxStrength,
		rng:         rand.New(rand.NewSource(c.Seed)),
	}
	s.next = s.interval()
	return s
}

func (s *scriptedRain) interval() float64 {
	if s.rate <= 0 {
		return math.Inf(1)
	}
	return s.rng.ExpFloat64() / s.rate
}

func (s *scriptedRain) Next(now float64) []audio.Drop {
	var drops []audio.Drop
	for now >= s.next {
		strength := math.Exp(s.mu + s.sigma*s.rng.NormFloat64())
		if s.maxStrength > 0 {
			strength = math.Min(strength, s.maxStrength)
		}
		drops = append(drops, audio.Drop{
			X:        s.rng.Float64(),
			Y:        s.rng.Float64(),
			Radius:   s.radius * (0.5 + s.rng.Float64()),
			Strength: strength,
		})
		s.next += s.interval()
	}
	return drops
}

func (s *scriptedRain) Stop() {}

// audioRain turns onsets of an audio stream into drops.
type audioRain struct {
	rain *audio.Rain
}

func (a *audioRain) Next(float64) []audio.Drop {
	if d, ok := a.rain.Poll(); ok {
		return []audio.Drop{d}
	}
	return nil
}

func (a *audioRain) Stop() {
	if err := a.rain.Stop(); err != nil {
		log.Printf("Warning: stopping audio rain: %v", err)
	}
}

func newRainSource(cfg *config.Config) (rainSource, error) {
	c := cfg.Rain
	var dev audio.AudioDevice
	switch c.Source {
	case "none":
		return nil, nil
	case "scripted":
		log.Printf("Scripted rain at %.1f drops per second", c.DropsPerSecond)
		return newScriptedRain(c), nil
	case "mic":
		mic, err := audio.NewMicrophone(c.SampleRate, c.FramesPerBuffer)
		if err != nil {
			return nil, fmt.Errorf("opening microphone: %w", err)
		}
		dev = mic
	case "file":
		dev = audio.NewFileInput(c.File, c.SampleRate, cfg.Record.FFmpegPath)
	}

	rain := audio.NewRain(dev, audio.RainOptions{
		Sensitivity: c.Sensitivity,
		MinLevel:    c.MinLevel,
		Radius:      c.Radius,
		Gain:        c.Gain,
		MaxStrength: c.MaxStrength,
		Seed:        c.Seed,
	})
	if err := rain.Start(); err != nil {
		return nil, fmt.Errorf("starting %s rain: %w", c.Source, err)
	}
	return &audioRain{rain: rain}, nil
}

// rainHook drops the source's rain onto the element. Time advances by one
// frame of fps per call.
func rainHook(src rainSource, r *ripple.Ripples, el *host.Box, fps float64) ripple.FrameHook {
	return func(frame uint64) error {
		w, h := el.ClientSize()
		for _, d := range src.Next(float64(frame) / fps) {
			r.Drop(d.X*w, d.Y*h, d.Radius, d.Strength)
		}
		return nil
	}
}
