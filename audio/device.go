// Package audio turns sound into rain: capture devices produce sample
// chunks and Rain converts their onsets into ripple drops.
//
// portaudio is needed for microphone capture:
// macos:	brew install portaudio
// debian:	sudo apt-get install portaudio19-dev
// windows:	pacman -S mingw-w64-x86_64-portaudio
package audio

// AudioDevice produces a stream of mono sample chunks.
type AudioDevice interface {
	// Start begins capture and returns a receive-only channel of chunks.
	Start() (<-chan []float32, error)
	// Stop ends capture and closes the channel.
	Stop() error
	SampleRate() int
}

// NullDevice is a silent device.
type NullDevice struct {
	rate int
}

func NewNullDevice(sampleRate int) *NullDevice {
	return &NullDevice{rate: sampleRate}
}

// Start returns a nil channel, which never delivers.
func (d *NullDevice) Start() (<-chan []float32, error) { return nil, nil }

func (d *NullDevice) Stop() error { return nil }

func (d *NullDevice) SampleRate() int { return d.rate }
