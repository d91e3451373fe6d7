// Package gpu models GPU-resident buffers for the pipeline.
//
// A Device owns device memory and hands out reference-counted Handles. The
// pipeline never touches device memory directly: bytes move through the
// explicit Upload/Download calls, and compute work is submitted with
// Dispatch, which always allocates a fresh output handle.
//
// HostDevice is an emulated device backed by host memory. It accounts
// capacity like real device memory, can simulate context loss, and runs
// kernels through their host reference implementation.
package gpu

import (
	"context"
	"errors"

	"github.com/gogpu/gputypes"
)

var (
	// ErrOutOfMemory is returned when an allocation exceeds device capacity.
	ErrOutOfMemory = errors.New("gpu: out of device memory")

	// ErrDeviceLost is returned after the device context has been lost.
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrReleased is returned when a handle is used after its last release.
	ErrReleased = errors.New("gpu: handle already released")

	// ErrForeignHandle is returned when a handle is passed to a device that
	// did not create it.
	ErrForeignHandle = errors.New("gpu: handle belongs to another device")

	// ErrUsage is returned when a handle lacks the usage an operation needs.
	ErrUsage = errors.New("gpu: buffer usage does not permit operation")
)

// Usage flags used by the pipeline.
var (
	UploadUsage   = gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	DispatchUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc
)

// Kernel is a compute program bound to its per-dispatch parameters.
type Kernel interface {
	// Execute reads src and fills dst. dst is zeroed and exactly the
	// requested output size.
	Execute(dst, src []byte) error
}

// KernelFunc adapts a function to Kernel.
type KernelFunc func(dst, src []byte) error

func (f KernelFunc) Execute(dst, src []byte) error { return f(dst, src) }

// Device is a compute device with its own memory.
type Device interface {
	Name() string
	// Upload copies data into a new device buffer.
	Upload(ctx context.Context, data []byte, usage gputypes.BufferUsage) (*Handle, error)
	// Download copies a device buffer into new host memory.
	Download(ctx context.Context, h *Handle) ([]byte, error)
	// Dispatch runs k over in and returns a new buffer of outSize bytes.
	Dispatch(ctx context.Context, k Kernel, in *Handle, outSize int) (*Handle, error)
}
