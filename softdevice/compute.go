package softdevice

// computeBackend runs whole simulation passes outside the rasterizer.
type computeBackend interface {
	// WaveUpdate reads a size x size RGBA field from src and writes the next
	// step to dst. Edges clamp.
	WaveUpdate(src, dst []float32, size int) error
	Name() string
	Close()
}
