package nodes

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

var testPatternNode = Descriptor{
	Name: "TestPattern",
	Doc:  "emits deterministic synthetic Bayer frames",
	Schema: pacingParams(cfaParams(param.NewSchema().
		With("width", param.Optional(param.IntRange{Min: 2, Max: maxDimension}, param.Int(64)).Describe("frame width in pixels")).
		With("height", param.Optional(param.IntRange{Min: 2, Max: maxDimension}, param.Int(48)).Describe("frame height in pixels")).
		With("bit-depth", param.Optional(param.IntRange{Min: 8, Max: 16}, param.Int(12)).Describe("8, 12 (packed) or 16")).
		With("frames", param.Optional(param.IntRange{Min: 0, Max: math.MaxInt32}, param.Int(0)).Describe("frames to emit, 0 for endless")).
		With("seed", param.Optional(param.IntRange{}, param.Int(1)).Describe("noise seed")))),
	create: newTestPattern,
}

// TestPattern generates a moving diagonal gradient with seeded noise. The
// content of frame n depends only on the parameters and n.
type TestPattern struct {
	interp  frame.Raw
	frames  uint64
	seed    uint64
	emitted uint64
	pace    *pacer
}

func newTestPattern(r param.Resolved, _ *Context) (rail.Node, error) {
	depth, err := bitDepthOf(r)
	if err != nil {
		return nil, err
	}
	interp := frame.Raw{
		Width:    int(r.Int("width")),
		Height:   int(r.Int("height")),
		BitDepth: depth,
		CFA:      frame.CFA{FirstIsRedX: r.Bool("first-red-x"), FirstIsRedY: r.Bool("first-red-y")},
		FPS:      r.Float("fps"),
	}
	if depth == 12 && interp.Width*interp.Height%2 != 0 {
		return nil, &param.ConfigError{Param: "width", Err: fmt.Errorf("%w: 12-bit frames need an even pixel count", param.ErrOutOfRange)}
	}
	return &TestPattern{
		interp: interp,
		frames: uint64(r.Int("frames")),
		seed:   uint64(r.Int("seed")),
		pace:   newPacer(r, 0),
	}, nil
}

func (*TestPattern) Name() string { return "TestPattern" }

func (t *TestPattern) Process(ctx context.Context, in buffer.Payload, tok *rail.Token) (*buffer.Payload, error) {
	in.Release()
	if t.frames > 0 && t.emitted >= t.frames {
		return nil, rail.ErrEndOfStream
	}
	if err := t.pace.wait(ctx); err != nil {
		return nil, err
	}
	t.emitted++

	out, err := buffer.Adopt(Pattern(t.interp, t.seed, tok.Seq()), t.interp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Pattern renders frame seq of a test pattern at interp's bit depth.
func Pattern(interp frame.Raw, seed, seq uint64) []byte {
	rng := rand.New(rand.NewPCG(seed, seq))
	samples := make([]uint16, interp.Width*interp.Height)
	shift := uint(interp.BitDepth - 8)
	for y := range interp.Height {
		for x := range interp.Width {
			v := uint8(x*4+y*2+int(seq)*8) ^ uint8(rng.IntN(16))
			samples[y*interp.Width+x] = uint16(v) << shift
		}
	}
	return packRaw(samples, interp.BitDepth)
}
