package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/gpu"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
	"github.com/ib-77/framerail/pkg/shader"
)

// ErrNoDevice is returned when a GPU node is created without a device.
var ErrNoDevice = errors.New("nodes: no compute device")

var debayerNode = Descriptor{
	Name: "Debayer",
	Doc:  "demosaics 8-bit raw frames into RGBA on the compute device",
	Schema: param.NewSchema().
		With("shader", param.Optional(param.StringKind{}, param.String("debayer()")).Describe("shader descriptor, e.g. \"debayer() gamma(gamma: 2.2)\"")).
		With("lines", param.Optional(param.IntRange{Min: 1, Max: 64}, param.Int(1)).Describe("concurrent workers")),
	create: newDebayer,
}

// Debayer runs a compiled shader program over each frame. It holds no
// per-frame state, so several lines may call Process concurrently.
type Debayer struct {
	program *shader.Program
	device  gpu.Device
	lines   int
	log     *slog.Logger
}

func newDebayer(r param.Resolved, ctx *Context) (rail.Node, error) {
	if ctx.Device == nil {
		return nil, ErrNoDevice
	}
	b, err := shader.Parse(r.String("shader"))
	if err != nil {
		return nil, &param.ConfigError{Param: "shader", Err: err}
	}
	program, err := b.Build()
	if err != nil {
		return nil, &param.ConfigError{Param: "shader", Err: err}
	}
	return &Debayer{
		program: program,
		device:  ctx.Device,
		lines:   int(r.Int("lines")),
		log:     ctx.logger().With("node", "Debayer"),
	}, nil
}

func (*Debayer) Name() string               { return "Debayer" }
func (d *Debayer) Lines() int               { return d.lines }
func (d *Debayer) Program() *shader.Program { return d.program }

func (d *Debayer) Process(ctx context.Context, in buffer.Payload, tok *rail.Token) (*buffer.Payload, error) {
	if in.IsEmpty() {
		return &in, nil
	}
	defer in.Release()

	raw, err := buffer.As[frame.Raw](in)
	if err != nil {
		return nil, err
	}
	kernel, err := d.program.Bind(raw.Interp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", buffer.ErrWrongFormat, err)
	}

	src, err := buffer.ToGPU(ctx, in, d.device)
	if err != nil {
		return nil, err
	}
	defer src.Release()

	out := frame.Rgba{Width: raw.Interp.Width, Height: raw.Interp.Height, FPS: raw.Interp.FPS}
	x, y, _ := d.program.Workgroups(out.Width, out.Height)
	d.log.Debug("dispatch", "seq", tok.Seq(), "workgroups_x", x, "workgroups_y", y)

	h, err := d.device.Dispatch(ctx, kernel, src.Buffer().Handle(), out.RequiredBytes())
	switch {
	case errors.Is(err, gpu.ErrOutOfMemory), errors.Is(err, gpu.ErrDeviceLost):
		return nil, &buffer.TransferError{Op: "dispatch", Err: err}
	case err != nil:
		return nil, err
	}
	p, err := buffer.FromHandle(h, out)
	if err != nil {
		h.Release()
		return nil, err
	}
	return &p, nil
}
