package buffer

import (
	"fmt"

	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/gpu"
)

// Residency says where a buffer lives.
type Residency uint8

const (
	None Residency = iota
	CPU
	GPU
)

func (r Residency) String() string {
	switch r {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	default:
		return "none"
	}
}

// Buffer is frame storage on exactly one side of the bus.
type Buffer struct {
	cpu    []byte
	handle *gpu.Handle
}

func (b Buffer) Residency() Residency {
	switch {
	case b.handle != nil:
		return GPU
	case b.cpu != nil:
		return CPU
	default:
		return None
	}
}

// Bytes returns the CPU bytes, or nil for GPU buffers. Callers must not
// modify the returned slice.
func (b Buffer) Bytes() []byte { return b.cpu }

// Handle returns the GPU handle, or nil for CPU buffers.
func (b Buffer) Handle() *gpu.Handle { return b.handle }

func (b Buffer) Len() int {
	if b.handle != nil {
		return b.handle.Size()
	}
	return len(b.cpu)
}

// Payload is a type-erased (interpretation, buffer) pair or the empty value.
type Payload struct {
	interp frame.Interpretation
	buf    Buffer
}

// Empty returns the empty payload.
func Empty() Payload { return Payload{} }

// FromBytes copies b into a new CPU payload after checking it is large
// enough for interp.
func FromBytes(b []byte, interp frame.Interpretation) (Payload, error) {
	if err := frame.Check(interp, len(b)); err != nil {
		return Payload{}, err
	}
	owned := make([]byte, len(b))
	copy(owned, b)
	return Payload{interp: interp, buf: Buffer{cpu: owned}}, nil
}

// Adopt is FromBytes without the copy: the payload takes ownership of b and
// the caller must not touch it afterwards.
func Adopt(b []byte, interp frame.Interpretation) (Payload, error) {
	if err := frame.Check(interp, len(b)); err != nil {
		return Payload{}, err
	}
	if b == nil {
		b = []byte{}
	}
	return Payload{interp: interp, buf: Buffer{cpu: b}}, nil
}

// FromHandle wraps a GPU handle. The payload takes over the caller's
// reference.
func FromHandle(h *gpu.Handle, interp frame.Interpretation) (Payload, error) {
	if h == nil {
		return Payload{}, fmt.Errorf("%w: nil gpu handle", ErrWrongFormat)
	}
	if err := frame.Check(interp, h.Size()); err != nil {
		return Payload{}, err
	}
	return Payload{interp: interp, buf: Buffer{handle: h}}, nil
}

func (p Payload) IsEmpty() bool                        { return p.interp == nil }
func (p Payload) Interpretation() frame.Interpretation { return p.interp }
func (p Payload) Buffer() Buffer                       { return p.buf }
func (p Payload) Residency() Residency                 { return p.buf.Residency() }

// Share returns another reference to the same immutable data.
func (p Payload) Share() Payload {
	if p.buf.handle != nil {
		p.buf.handle.Retain()
	}
	return p
}

// Release drops this payload's reference to GPU memory. CPU payloads are
// left to the garbage collector.
func (p Payload) Release() {
	if p.buf.handle != nil {
		p.buf.handle.Release()
	}
}

// Clone returns a private CPU copy that may be mutated. GPU payloads must be
// materialized with ToCPU first.
func (p Payload) Clone() (Payload, error) {
	switch p.Residency() {
	case GPU:
		return Payload{}, fmt.Errorf("%w: clone of gpu payload, materialize on cpu first", ErrWrongFormat)
	case CPU:
		return FromBytes(p.buf.cpu, p.interp)
	default:
		return p, nil
	}
}

func (p Payload) String() string {
	if p.IsEmpty() {
		return "Payload{empty}"
	}
	w, h := p.interp.Size()
	return fmt.Sprintf("Payload{%s %dx%d, %s, %d bytes}", p.interp.Kind(), w, h, p.Residency(), p.buf.Len())
}
