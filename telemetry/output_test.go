package telemetry

import (
	"bytes"
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/richinsley/goripples/host"
	"github.com/richinsley/goripples/ripple"
	"github.com/richinsley/goripples/softdevice"
)

type failingLoader struct{}

func (failingLoader) Load(context.Context, string, string) (image.Image, error) {
	return nil, errors.New("offline")
}

func newRipples(t *testing.T) *ripple.Ripples {
	t.Helper()
	opts := ripple.DefaultOptions()
	opts.Resolution = 16
	opts.Loader = failingLoader{}
	r, err := ripple.New(softdevice.New(16, 16), host.NewBox(16, 16, host.Background{}), opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Destroy)
	return r
}

func TestNilManagerIsDisabled(t *testing.T) {
	om, err := NewOutputManager("", true)
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	if err := om.Write(FrameRecord{}); err != nil {
		t.Error(err)
	}
	if err := om.Hook(nil, 1)(1); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestHeaderWrittenOnce(t *testing.T) {
	var buf bytes.Buffer
	om := newOutputManager(&buf, false)
	for i := uint64(1); i <= 3; i++ {
		if err := om.Write(FrameRecord{Frame: i, Energy: float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "frame,seconds,fps,energy") {
		t.Errorf("header = %q", lines[0])
	}

	var rows []FrameRecord
	if err := gocsv.UnmarshalString(buf.String(), &rows); err != nil {
		t.Fatal(err)
	}
	if rows[2].Frame != 3 || rows[2].Energy != 3 {
		t.Errorf("last row = %+v", rows[2])
	}
}

func TestHookSamplesEveryN(t *testing.T) {
	r := newRipples(t)
	var buf bytes.Buffer
	om := newOutputManager(&buf, false)
	hook := om.Hook(r, 2)

	r.Drop(8, 8, 4, 0.5)
	for frame := uint64(1); frame <= 4; frame++ {
		if err := hook(frame); err != nil {
			t.Fatal(err)
		}
	}
	var rows []FrameRecord
	if err := gocsv.UnmarshalString(buf.String(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Frame != 2 || rows[1].Frame != 4 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Energy <= 0 || rows[0].PeakHeight <= 0 {
		t.Errorf("drop not reflected in %+v", rows[0])
	}
}

func TestNewOutputManagerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "a", "telemetry.csv")
	om, err := NewOutputManager(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := om.Write(FrameRecord{Frame: 1}); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}
}
