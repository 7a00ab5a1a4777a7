package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"log"
	"math"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const fileChunkSamples = 1024

// FileInput decodes an audio file with ffmpeg into mono float chunks,
// paced at real time.
type FileInput struct {
	path       string
	sampleRate int
	ffmpegPath string
	reader     *io.PipeReader
}

func NewFileInput(path string, sampleRate int, ffmpegPath string) *FileInput {
	return &FileInput{path: path, sampleRate: sampleRate, ffmpegPath: ffmpegPath}
}

func (f *FileInput) outputArgs() ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"f":  "f32le",
		"ac": 1,
		"ar": f.sampleRate,
	}
}

func (f *FileInput) Start() (<-chan []float32, error) {
	pipeReader, pipeWriter := io.Pipe()
	f.reader = pipeReader

	cmd := ffmpeg.Input(f.path, ffmpeg.KwArgs{"re": ""}).
		Output("pipe:", f.outputArgs()).
		WithOutput(pipeWriter).ErrorToStdOut()
	if f.ffmpegPath != "" {
		cmd = cmd.SetFfmpegPath(f.ffmpegPath)
	}

	go func() {
		err := cmd.Run()
		pipeWriter.CloseWithError(err)
	}()

	chunks := make(chan []float32, 16)
	go f.read(pipeReader, chunks)
	log.Printf("Starting FFmpeg file input %s", f.path)
	return chunks, nil
}

func (f *FileInput) read(r io.Reader, chunks chan<- []float32) {
	defer close(chunks)
	buf := make([]byte, fileChunkSamples*4)
	for {
		n, err := io.ReadFull(r, buf)
		if n >= 4 {
			chunks <- decodeFloat32LE(buf[:n-n%4])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.ErrClosedPipe) {
				log.Printf("Warning: audio file input ended: %v", err)
			}
			return
		}
	}
}

func decodeFloat32LE(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// Stop closes the pipe, which makes ffmpeg exit.
func (f *FileInput) Stop() error {
	if f.reader == nil {
		return nil
	}
	return f.reader.Close()
}

func (f *FileInput) SampleRate() int { return f.sampleRate }
