package nodes

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

// ErrNoPreview is returned when a Preview node is created without a
// preview callback in its context.
var ErrNoPreview = errors.New("nodes: no preview callback")

var previewNode = Descriptor{
	Name: "Preview",
	Doc:  "hands frames in order to the context's preview callback",
	Schema: param.NewSchema().
		With("pass", param.Optional(param.BoolKind{}, param.Bool(false)).Describe("forward frames downstream instead of consuming them")),
	create: newPreview,
}

// Preview converts Rgb and Rgba frames to *image.RGBA and calls the preview
// callback under commit rights.
type Preview struct {
	show PreviewFunc
	pass bool
}

func newPreview(r param.Resolved, ctx *Context) (rail.Node, error) {
	if ctx.Preview == nil {
		return nil, ErrNoPreview
	}
	return &Preview{show: ctx.Preview, pass: r.Bool("pass")}, nil
}

func (*Preview) Name() string { return "Preview" }

func (p *Preview) Process(ctx context.Context, in buffer.Payload, tok *rail.Token) (*buffer.Payload, error) {
	if in.IsEmpty() {
		return &in, nil
	}
	cpu, err := buffer.ToCPU(ctx, in)
	if err != nil {
		in.Release()
		return nil, err
	}
	img, err := rgbaOf(cpu)
	cpu.Release()
	if err != nil {
		in.Release()
		return nil, err
	}

	if err := tok.Acquire(ctx); err != nil {
		in.Release()
		return nil, err
	}
	p.show(tok.Seq(), img)
	tok.Release()

	if p.pass {
		return &in, nil
	}
	in.Release()
	out := buffer.Empty()
	return &out, nil
}

func rgbaOf(p buffer.Payload) (*image.RGBA, error) {
	pix := p.Buffer().Bytes()
	switch interp := p.Interpretation().(type) {
	case frame.Rgba:
		img := image.NewRGBA(image.Rect(0, 0, interp.Width, interp.Height))
		copy(img.Pix, pix)
		return img, nil
	case frame.Rgb:
		img := image.NewRGBA(image.Rect(0, 0, interp.Width, interp.Height))
		for i := range interp.Width * interp.Height {
			copy(img.Pix[4*i:4*i+3], pix[3*i:3*i+3])
			img.Pix[4*i+3] = 0xff
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%w: cannot preview %s frame", buffer.ErrWrongFormat, p.Interpretation().Kind())
	}
}
