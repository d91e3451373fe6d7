package buffer

import (
	"context"

	"github.com/ib-77/framerail/pkg/gpu"
)

// ToCPU returns a CPU-resident payload with p's contents. GPU payloads are
// downloaded into new host memory. CPU and empty payloads come back as
// Share aliases of p: the bytes are read-only, and callers that mutate them
// take a Clone of the result.
func ToCPU(ctx context.Context, p Payload) (Payload, error) {
	if p.Residency() != GPU {
		return p.Share(), nil
	}
	h := p.buf.handle
	data, err := h.Device().Download(ctx, h)
	if err != nil {
		return Payload{}, &TransferError{Op: "download", Err: err}
	}
	return Payload{interp: p.interp, buf: Buffer{cpu: data}}, nil
}

// ToGPU returns a payload resident on dev. Payloads already on dev are
// shared; anything else is uploaded into a new handle.
func ToGPU(ctx context.Context, p Payload, dev gpu.Device) (Payload, error) {
	if p.IsEmpty() {
		return p, nil
	}
	if h := p.buf.handle; h != nil {
		if h.Device() == dev {
			return p.Share(), nil
		}
		cpu, err := ToCPU(ctx, p)
		if err != nil {
			return Payload{}, err
		}
		p = cpu
	}
	h, err := dev.Upload(ctx, p.buf.cpu, gpu.UploadUsage)
	if err != nil {
		return Payload{}, &TransferError{Op: "upload", Err: err}
	}
	return Payload{interp: p.interp, buf: Buffer{handle: h}}, nil
}
