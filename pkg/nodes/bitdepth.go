package nodes

import (
	"context"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

var bitDepthConverterNode = Descriptor{
	Name:   "BitDepthConverter",
	Doc:    "reduces 12-bit packed or 16-bit raw frames to 8 bits per sample",
	Schema: param.NewSchema(),
	create: func(param.Resolved, *Context) (rail.Node, error) { return BitDepthConverter{}, nil },
}

// BitDepthConverter keeps the 8 most significant bits of every sample.
// 8-bit frames pass through unchanged.
type BitDepthConverter struct{}

func (BitDepthConverter) Name() string { return "BitDepthConverter" }

func (BitDepthConverter) Process(ctx context.Context, in buffer.Payload, _ *rail.Token) (*buffer.Payload, error) {
	if in.IsEmpty() {
		return &in, nil
	}
	cpu, err := buffer.ToCPU(ctx, in)
	in.Release()
	if err != nil {
		return nil, err
	}
	raw, err := buffer.As[frame.Raw](cpu)
	if err != nil {
		return nil, err
	}
	if raw.Interp.BitDepth == 8 {
		return &cpu, nil
	}

	w, h := raw.Interp.Size()
	pix, err := topByte(raw.Bytes(), raw.Interp.BitDepth, w*h)
	if err != nil {
		return nil, err
	}
	out, err := buffer.Adopt(pix, raw.Interp.WithBitDepth(8))
	if err != nil {
		return nil, err
	}
	return &out, nil
}
