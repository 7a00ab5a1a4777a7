package audio

import (
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
)

// Microphone captures mono input from the default input device.
type Microphone struct {
	sampleRate      int
	framesPerBuffer int
	stream          *portaudio.Stream
	chunks          chan []float32
	streaming       bool
}

// NewMicrophone initializes portaudio. framesPerBuffer of 0 lets portaudio
// pick the buffer size.
func NewMicrophone(sampleRate, framesPerBuffer int) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return &Microphone{sampleRate: sampleRate, framesPerBuffer: framesPerBuffer}, nil
}

func (m *Microphone) callback(in []float32) {
	// portaudio reuses its buffer.
	chunk := append([]float32(nil), in...)
	select {
	case m.chunks <- chunk:
	default:
		log.Println("Warning: microphone consumer is behind. Dropping audio chunk.")
	}
}

func (m *Microphone) Start() (<-chan []float32, error) {
	m.chunks = make(chan []float32, 16)

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		close(m.chunks)
		return nil, fmt.Errorf("failed to query audio host: %w", err)
	}
	if host.DefaultInputDevice == nil {
		close(m.chunks)
		return nil, fmt.Errorf("no default input device on %s", host.Name)
	}

	params := portaudio.LowLatencyParameters(host.DefaultInputDevice, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(m.sampleRate)
	if m.framesPerBuffer > 0 {
		params.FramesPerBuffer = m.framesPerBuffer
	}

	stream, err := portaudio.OpenStream(params, m.callback)
	if err != nil {
		close(m.chunks)
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		close(m.chunks)
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}
	m.stream = stream
	m.streaming = true
	log.Printf("Microphone started on %s at %d Hz", host.DefaultInputDevice.Name, m.sampleRate)
	return m.chunks, nil
}

func (m *Microphone) Stop() error {
	if !m.streaming {
		return portaudio.Terminate()
	}
	m.streaming = false
	if err := m.stream.Close(); err != nil {
		portaudio.Terminate()
		return err
	}
	close(m.chunks)
	return portaudio.Terminate()
}

func (m *Microphone) SampleRate() int { return m.sampleRate }
