// Package telemetry logs per-frame height field statistics to CSV.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/richinsley/goripples/ripple"
)

// FrameRecord is one row of the telemetry file.
type FrameRecord struct {
	Frame      uint64  `csv:"frame"`
	Seconds    float64 `csv:"seconds"`
	FPS        float64 `csv:"fps"`
	Energy     float64 `csv:"energy"`
	MeanHeight float64 `csv:"mean_height"`
	PeakHeight float64 `csv:"peak_height"`
	CPUPercent float64 `csv:"cpu_percent"`
	MemPercent float64 `csv:"mem_percent"`
}

// OutputManager appends FrameRecords to a CSV stream.
// A nil *OutputManager discards everything.
type OutputManager struct {
	w             io.Writer
	file          *os.File
	hostLoad      bool
	headerWritten bool
	start         time.Time
	lastFrame     uint64
	lastTime      time.Time
}

// NewOutputManager creates path and its directory. Returns nil if path is
// empty (output disabled).
func NewOutputManager(path string, hostLoad bool) (*OutputManager, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	om := newOutputManager(f, hostLoad)
	om.file = f
	return om, nil
}

func newOutputManager(w io.Writer, hostLoad bool) *OutputManager {
	now := time.Now()
	return &OutputManager{w: w, hostLoad: hostLoad, start: now, lastTime: now}
}

// Write appends rec, with a header before the first row.
func (om *OutputManager) Write(rec FrameRecord) error {
	if om == nil {
		return nil
	}
	records := []FrameRecord{rec}
	if !om.headerWritten {
		if err := gocsv.Marshal(records, om.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		om.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.w); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// Sample builds a record for frame from the current field of r.
func (om *OutputManager) Sample(r *ripple.Ripples, frame uint64) (FrameRecord, error) {
	now := time.Now()
	rec := FrameRecord{
		Frame:   frame,
		Seconds: now.Sub(om.start).Seconds(),
	}
	if dt := now.Sub(om.lastTime).Seconds(); dt > 0 && frame > om.lastFrame {
		rec.FPS = float64(frame-om.lastFrame) / dt
	}
	om.lastFrame, om.lastTime = frame, now

	stats, err := r.Stats()
	if err != nil {
		return rec, err
	}
	rec.Energy = stats.Energy
	rec.MeanHeight = stats.MeanHeight
	rec.PeakHeight = stats.PeakHeight

	if om.hostLoad {
		if v, err := mem.VirtualMemory(); err == nil {
			rec.MemPercent = v.UsedPercent
		}
		if c, err := cpu.Percent(0, false); err == nil && len(c) > 0 {
			rec.CPUPercent = c[0]
		}
	}
	return rec, nil
}

// Hook returns a frame hook writing one row every n frames. Disabled
// ripples produce no rows.
func (om *OutputManager) Hook(r *ripple.Ripples, every int) ripple.FrameHook {
	if every <= 0 {
		every = 1
	}
	return func(frame uint64) error {
		if om == nil || frame%uint64(every) != 0 || !r.Enabled() {
			return nil
		}
		rec, err := om.Sample(r, frame)
		if err != nil {
			return err
		}
		return om.Write(rec)
	}
}

// Close closes the underlying file.
func (om *OutputManager) Close() error {
	if om == nil || om.file == nil {
		return nil
	}
	return om.file.Close()
}
