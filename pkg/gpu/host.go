package gpu

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// HostDevice emulates a compute device in host memory.
type HostDevice struct {
	name     string
	capacity int64
	used     atomic.Int64
	lost     atomic.Bool
	nextID   atomic.Uint64
}

// NewHostDevice returns an emulated device. capacity <= 0 means unlimited.
func NewHostDevice(capacity int64) *HostDevice {
	return &HostDevice{name: "host", capacity: capacity}
}

func (d *HostDevice) Name() string { return d.name }

// InUse is the number of bytes currently allocated.
func (d *HostDevice) InUse() int64 { return d.used.Load() }

// Lose simulates a lost device context: every later operation fails with
// ErrDeviceLost until Restore is called.
func (d *HostDevice) Lose()    { d.lost.Store(true) }
func (d *HostDevice) Restore() { d.lost.Store(false) }

func (d *HostDevice) Upload(ctx context.Context, data []byte, usage gputypes.BufferUsage) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := d.alloc(len(data), usage)
	if err != nil {
		return nil, err
	}
	copy(h.mem, data)
	return h, nil
}

func (d *HostDevice) Download(ctx context.Context, h *Handle) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.check(h); err != nil {
		return nil, err
	}
	if h.usage&gputypes.BufferUsageCopySrc == 0 {
		return nil, fmt.Errorf("%w: download needs CopySrc", ErrUsage)
	}
	out := make([]byte, h.size)
	copy(out, h.mem)
	return out, nil
}

func (d *HostDevice) Dispatch(ctx context.Context, k Kernel, in *Handle, outSize int) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.check(in); err != nil {
		return nil, err
	}
	out, err := d.alloc(outSize, DispatchUsage)
	if err != nil {
		return nil, err
	}
	if err := k.Execute(out.mem, in.mem); err != nil {
		out.Release()
		return nil, fmt.Errorf("gpu: dispatch: %w", err)
	}
	return out, nil
}

func (d *HostDevice) check(h *Handle) error {
	if d.lost.Load() {
		return ErrDeviceLost
	}
	if h.owner != Device(d) {
		return ErrForeignHandle
	}
	if h.Refs() <= 0 {
		return ErrReleased
	}
	return nil
}

func (d *HostDevice) alloc(size int, usage gputypes.BufferUsage) (*Handle, error) {
	if d.lost.Load() {
		return nil, ErrDeviceLost
	}
	for {
		cur := d.used.Load()
		if d.capacity > 0 && cur+int64(size) > d.capacity {
			return nil, fmt.Errorf("%w: need %d bytes, %d of %d in use", ErrOutOfMemory, size, cur, d.capacity)
		}
		if d.used.CompareAndSwap(cur, cur+int64(size)) {
			break
		}
	}
	id := d.nextID.Add(1)
	return newHandle(d, id, size, usage, func() { d.used.Add(-int64(size)) }), nil
}
