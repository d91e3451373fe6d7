package nodes

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/dng"
	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

var cinemaDngWriterNode = Descriptor{
	Name: "CinemaDngWriter",
	Doc:  "writes one CinemaDNG file per frame into a new directory",
	Schema: param.NewSchema().
		With("path", param.Mandatory(param.StringKind{}).Describe("output directory, must not exist")).
		With("make", param.Optional(param.StringKind{}, param.String(dng.DefaultIdentity.Make)).Describe("camera make tag")).
		With("model", param.Optional(param.StringKind{}, param.String(dng.DefaultIdentity.Model)).Describe("camera model tag")),
	create: newCinemaDngWriter,
}

// CinemaDngWriter encodes frames concurrently with upstream work but writes
// files only under commit rights, as NNNNNN.dng.
type CinemaDngWriter struct {
	dir      string
	identity dng.Identity
	log      *slog.Logger
}

func newCinemaDngWriter(r param.Resolved, ctx *Context) (rail.Node, error) {
	dir := r.String("path")
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, &param.ConfigError{Param: "path", Err: err}
	}
	id := dng.DefaultIdentity
	id.Make, id.Model = r.String("make"), r.String("model")
	return &CinemaDngWriter{dir: dir, identity: id, log: ctx.logger().With("node", "CinemaDngWriter")}, nil
}

func (*CinemaDngWriter) Name() string { return "CinemaDngWriter" }

func (w *CinemaDngWriter) Process(ctx context.Context, in buffer.Payload, tok *rail.Token) (*buffer.Payload, error) {
	if in.IsEmpty() {
		return nil, nil
	}
	cpu, err := materialize(ctx, in)
	if err != nil {
		return nil, err
	}
	img, err := imageOf(cpu)
	if err != nil {
		return nil, err
	}
	img.Identity = w.identity

	var out bytes.Buffer
	if err := dng.Encode(&out, img); err != nil {
		return nil, err
	}

	if err := tok.Acquire(ctx); err != nil {
		return nil, err
	}
	defer tok.Release()

	name := filepath.Join(w.dir, fmt.Sprintf("%06d.dng", tok.Seq()))
	if err := os.WriteFile(name, out.Bytes(), 0o644); err != nil {
		return nil, err
	}
	w.log.Debug("frame written", "seq", tok.Seq(), "file", name, "bytes", out.Len())
	return nil, nil
}

// materialize brings in to host memory, releasing in.
func materialize(ctx context.Context, in buffer.Payload) (buffer.Payload, error) {
	defer in.Release()
	return buffer.ToCPU(ctx, in)
}

func imageOf(p buffer.Payload) (dng.Image, error) {
	pix := p.Buffer().Bytes()
	switch interp := p.Interpretation().(type) {
	case frame.Raw:
		return dng.FromRaw(interp, pix)
	case frame.Rgb:
		return dng.FromRGB(interp, pix)
	case frame.Rgba:
		return dng.FromRGBA(interp, pix)
	default:
		return dng.Image{}, fmt.Errorf("%w: cannot encode %s frame", buffer.ErrWrongFormat, p.Interpretation().Kind())
	}
}
