//go:build !opencl

package softdevice

import "errors"

func newOpenCLBackend() (computeBackend, error) {
	return nil, errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
}
