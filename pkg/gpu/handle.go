package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Handle is a reference-counted device buffer. Its contents are immutable
// once the handle has been returned by the device, so any number of stages
// may hold references concurrently.
type Handle struct {
	id    uint64
	size  int
	usage gputypes.BufferUsage
	owner Device
	refs  atomic.Int64
	free  func()

	mem []byte
}

func newHandle(owner Device, id uint64, size int, usage gputypes.BufferUsage, free func()) *Handle {
	h := &Handle{id: id, size: size, usage: usage, owner: owner, free: free, mem: make([]byte, size)}
	h.refs.Store(1)
	return h
}

func (h *Handle) ID() uint64                  { return h.id }
func (h *Handle) Size() int                   { return h.size }
func (h *Handle) Usage() gputypes.BufferUsage { return h.usage }
func (h *Handle) Device() Device              { return h.owner }
func (h *Handle) Refs() int64                 { return h.refs.Load() }

// Retain adds a reference and returns the same handle.
func (h *Handle) Retain() *Handle {
	if h.refs.Add(1) <= 1 {
		panic(fmt.Sprintf("gpu: retain of released handle %d", h.id))
	}
	return h
}

// Release drops a reference. The last release returns the memory to the
// device.
func (h *Handle) Release() {
	switch n := h.refs.Add(-1); {
	case n == 0:
		h.mem = nil
		if h.free != nil {
			h.free()
		}
	case n < 0:
		panic(fmt.Sprintf("gpu: handle %d released too often", h.id))
	}
}

func (h *Handle) String() string {
	return fmt.Sprintf("gpu.Handle{id: %d, size: %d, refs: %d}", h.id, h.size, h.Refs())
}
