// Package recorder encodes rendered frames to a video file through an
// ffmpeg process fed with raw RGBA over a pipe.
package recorder

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"runtime"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// queuedFrames bounds how far rendering may run ahead of the encoder.
const queuedFrames = 4

type Options struct {
	Width, Height int
	FPS           int
	OutputFile    string
	Codec         string // h264 or hevc
	FFmpegPath    string
	HWAccel       bool
}

// Frame is one top-row-first RGBA image and its presentation index.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// Recorder is a producer/consumer pair: WriteFrame queues frames on the
// render thread and a goroutine streams them into ffmpeg.
type Recorder struct {
	opts   Options
	frames chan *Frame
	done   chan error
	err    error
	closed bool
}

func inputArgs(o Options) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", o.Width, o.Height),
		"framerate": o.FPS,
	}
}

func outputArgs(o Options, goos string) ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{"pix_fmt": "yuv420p"}
	hevc := o.Codec == "hevc"

	switch {
	case o.HWAccel && goos == "linux":
		log.Println("Using Linux (NVENC) hardware acceleration.")
		args["c:v"] = "h264_nvenc"
		if hevc {
			args["c:v"] = "hevc_nvenc"
		}
		args["preset"] = "p2"
	case o.HWAccel && goos == "darwin":
		log.Println("Using macOS (VideoToolbox) hardware acceleration.")
		args["c:v"] = "h264_videotoolbox"
		if hevc {
			args["c:v"] = "hevc_videotoolbox"
		}
	default:
		args["c:v"] = "libx264"
		if hevc {
			args["c:v"] = "libx265"
		}
	}
	args["b:v"] = "25M"
	if hevc && strings.HasSuffix(o.OutputFile, ".mp4") {
		args["tag:v"] = "hvc1"
	}
	return args
}

// New starts ffmpeg and the encoder goroutine.
func New(opts Options) (*Recorder, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid recording format %dx%d at %d fps", opts.Width, opts.Height, opts.FPS)
	}
	if opts.OutputFile == "" {
		return nil, errors.New("no output file for recording")
	}

	r := &Recorder{
		opts:   opts,
		frames: make(chan *Frame, queuedFrames),
		done:   make(chan error, 1),
	}
	go r.runEncoder()
	log.Printf("Recording %dx%d at %d fps to %s", opts.Width, opts.Height, opts.FPS, opts.OutputFile)
	return r, nil
}

// runEncoder is the consumer. It owns the ffmpeg process.
func (r *Recorder) runEncoder() {
	pipeReader, pipeWriter := io.Pipe()
	cmd := ffmpeg.Input("pipe:", inputArgs(r.opts)).
		Output(r.opts.OutputFile, outputArgs(r.opts, runtime.GOOS)).
		OverWriteOutput().WithInput(pipeReader).ErrorToStdOut()
	if r.opts.FFmpegPath != "" {
		cmd = cmd.SetFfmpegPath(r.opts.FFmpegPath)
	}

	errc := make(chan error, 1)
	go func() {
		err := cmd.Run()
		pipeReader.CloseWithError(err)
		errc <- err
	}()

	var writeErr error
	for frame := range r.frames {
		if writeErr != nil {
			continue
		}
		if _, err := pipeWriter.Write(frame.Pixels); err != nil {
			writeErr = fmt.Errorf("writing frame %d to ffmpeg: %w", frame.PTS, err)
			log.Printf("Error: %v", writeErr)
		}
	}
	pipeWriter.Close()
	if err := <-errc; err != nil {
		r.done <- fmt.Errorf("ffmpeg failed: %w", err)
		return
	}
	r.done <- writeErr
}

// WriteFrame queues img for encoding. It blocks while the encoder is behind.
func (r *Recorder) WriteFrame(img *image.RGBA, pts int64) error {
	if r.closed {
		return errors.New("recorder is closed")
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w != r.opts.Width || h != r.opts.Height {
		return fmt.Errorf("frame is %dx%d, recording %dx%d", w, h, r.opts.Width, r.opts.Height)
	}
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		copy(pixels[y*w*4:(y+1)*w*4], img.Pix[y*img.Stride:])
	}
	r.frames <- &Frame{Pixels: pixels, PTS: pts}
	return nil
}

// Close flushes queued frames and waits for ffmpeg to exit.
func (r *Recorder) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true
	close(r.frames)
	r.err = <-r.done
	if r.err == nil {
		log.Printf("Successfully rendered to %s", r.opts.OutputFile)
	}
	return r.err
}
