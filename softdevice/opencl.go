//go:build opencl

package softdevice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jgillich/go-opencl/cl"
)

const waveUpdateKernelSource = `__kernel void wave_update(
    const int size,
    __global const float4* src,
    __global float4* dst)
{
    int idx = get_global_id(0);
    if (idx >= size * size) {
        return;
    }
    int x = idx % size;
    int y = idx / size;
    float4 info = src[idx];
    float average = (
        src[y * size + max(x - 1, 0)].x +
        src[max(y - 1, 0) * size + x].x +
        src[y * size + min(x + 1, size - 1)].x +
        src[min(y + 1, size - 1) * size + x].x) * 0.25f;
    info.y += (average - info.x) * 2.0f;
    info.y *= 0.995f;
    info.x += info.y;
    dst[idx] = info;
}`

type openCLBackend struct {
	context    *cl.Context
	queue      *cl.CommandQueue
	program    *cl.Program
	kernel     *cl.Kernel
	srcBuf     *cl.MemObject
	dstBuf     *cl.MemObject
	size       int
	deviceName string
}

func newOpenCLBackend() (computeBackend, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	var device *cl.Device
	for _, kind := range []cl.DeviceType{cl.DeviceTypeGPU, cl.DeviceTypeCPU} {
		for _, p := range platforms {
			devices, derr := p.GetDevices(kind)
			if derr != nil && derr != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				device = devices[0]
				break
			}
		}
		if device != nil {
			break
		}
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	b := &openCLBackend{deviceName: device.Name()}
	b.context, err = cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	b.queue, err = b.context.CreateCommandQueue(device, 0)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	b.program, err = b.context.CreateProgramWithSource([]string{waveUpdateKernelSource})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := b.program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		b.Close()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("building OpenCL program: %w", err)
	}
	b.kernel, err = b.program.CreateKernel("wave_update")
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating OpenCL kernel: %w", err)
	}
	return b, nil
}

func (b *openCLBackend) ensureBuffers(size int) error {
	if b.size == size && b.srcBuf != nil {
		return nil
	}
	b.releaseBuffers()
	byteSize := size * size * 4 * 4
	var err error
	b.srcBuf, err = b.context.CreateEmptyBuffer(cl.MemReadOnly, byteSize)
	if err != nil {
		return fmt.Errorf("allocating source buffer: %w", err)
	}
	b.dstBuf, err = b.context.CreateEmptyBuffer(cl.MemWriteOnly, byteSize)
	if err != nil {
		b.releaseBuffers()
		return fmt.Errorf("allocating destination buffer: %w", err)
	}
	if err := b.kernel.SetArgs(int32(size), b.srcBuf, b.dstBuf); err != nil {
		b.releaseBuffers()
		return fmt.Errorf("setting kernel arguments: %w", err)
	}
	b.size = size
	return nil
}

func (b *openCLBackend) WaveUpdate(src, dst []float32, size int) error {
	if err := b.ensureBuffers(size); err != nil {
		return err
	}
	if _, err := b.queue.EnqueueWriteBufferFloat32(b.srcBuf, false, 0, src, nil); err != nil {
		return fmt.Errorf("writing source buffer: %w", err)
	}
	if _, err := b.queue.EnqueueNDRangeKernel(b.kernel, nil, []int{size * size}, nil, nil); err != nil {
		return fmt.Errorf("enqueueing kernel: %w", err)
	}
	if _, err := b.queue.EnqueueReadBufferFloat32(b.dstBuf, true, 0, dst, nil); err != nil {
		return fmt.Errorf("reading destination buffer: %w", err)
	}
	return nil
}

func (b *openCLBackend) Name() string { return "opencl:" + b.deviceName }

func (b *openCLBackend) releaseBuffers() {
	if b.srcBuf != nil {
		b.srcBuf.Release()
		b.srcBuf = nil
	}
	if b.dstBuf != nil {
		b.dstBuf.Release()
		b.dstBuf = nil
	}
	b.size = 0
}

func (b *openCLBackend) Close() {
	b.releaseBuffers()
	if b.kernel != nil {
		b.kernel.Release()
		b.kernel = nil
	}
	if b.program != nil {
		b.program.Release()
		b.program = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.context != nil {
		b.context.Release()
		b.context = nil
	}
}
