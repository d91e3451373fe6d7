package shader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/gpu"
)

// WorkgroupSize is the edge of the square compute workgroup.
const WorkgroupSize = 8

var headerFields = []string{"width", "height", "first_red_x", "first_red_y"}

// Program is a compiled shader.
type Program struct {
	builder *Builder
	spirv   []byte
	layout  []string
}

// SPIRV returns the compiled module bytes.
func (p *Program) SPIRV() []byte { return p.spirv }

func (p *Program) String() string { return p.builder.String() }

// Workgroups returns the dispatch size for a width x height frame.
func (p *Program) Workgroups(width, height int) (x, y, z uint32) {
	return uint32((width + WorkgroupSize - 1) / WorkgroupSize), uint32((height + WorkgroupSize - 1) / WorkgroupSize), 1
}

// Params encodes the uniform block for raw in Params layout.
func (p *Program) Params(raw frame.Raw) []byte {
	values := p.builder.Uniforms()
	size := 4 * (len(headerFields) + len(p.layout))
	size = (size + 15) &^ 15
	block := make([]byte, size)

	binary.LittleEndian.PutUint32(block[0:], uint32(raw.Width))
	binary.LittleEndian.PutUint32(block[4:], uint32(raw.Height))
	binary.LittleEndian.PutUint32(block[8:], boolWord(raw.CFA.FirstIsRedX))
	binary.LittleEndian.PutUint32(block[12:], boolWord(raw.CFA.FirstIsRedY))
	for i, name := range p.layout {
		binary.LittleEndian.PutUint32(block[16+4*i:], math.Float32bits(values[name]))
	}
	return block
}

// Bind fixes the program to one frame geometry. The kernel reads 8-bit Bayer
// bytes and writes packed RGBA8 pixels.
func (p *Program) Bind(raw frame.Raw) (gpu.Kernel, error) {
	if raw.BitDepth != 8 {
		return nil, fmt.Errorf("%w: demosaic needs 8-bit raw, got %d-bit", ErrUnsupportedFrame, raw.BitDepth)
	}
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrUnsupportedFrame, raw.Width, raw.Height)
	}
	return &kernel{program: p, params: p.Params(raw)}, nil
}

type rgb [3]float32

type colorOp func(c rgb, u map[string]float32) rgb

// hostOps mirrors the color parts for host execution.
var hostOps = map[string]colorOp{
	"gain": func(c rgb, u map[string]float32) rgb {
		f := u["factor"]
		return rgb{c[0] * f, c[1] * f, c[2] * f}
	},
	"white_balance": func(c rgb, u map[string]float32) rgb {
		return rgb{c[0] * u["red"], c[1] * u["green"], c[2] * u["blue"]}
	},
	"black_level": func(c rgb, u map[string]float32) rgb {
		black, span := u["black"], u["white"]-u["black"]
		return rgb{(c[0] - black) / span, (c[1] - black) / span, (c[2] - black) / span}
	},
	"gamma": func(c rgb, u map[string]float32) rgb {
		inv := 1.0 / float64(u["gamma"])
		for i, v := range c {
			c[i] = float32(math.Pow(float64(max(v, 0)), inv))
		}
		return c
	},
	"clamp": func(c rgb, u map[string]float32) rgb {
		lo, hi := u["low"], u["high"]
		for i, v := range c {
			c[i] = min(max(v, lo), hi)
		}
		return c
	},
}

type kernel struct {
	program *Program
	params  []byte
}

func (k *kernel) Execute(dst, src []byte) error {
	width := int(binary.LittleEndian.Uint32(k.params[0:]))
	height := int(binary.LittleEndian.Uint32(k.params[4:]))
	cfa := frame.CFA{
		FirstIsRedX: binary.LittleEndian.Uint32(k.params[8:]) != 0,
		FirstIsRedY: binary.LittleEndian.Uint32(k.params[12:]) != 0,
	}
	uniforms := make(map[string]float32, len(k.program.layout))
	for i, name := range k.program.layout {
		uniforms[name] = math.Float32frombits(binary.LittleEndian.Uint32(k.params[16+4*i:]))
	}

	if len(src) < width*height {
		return fmt.Errorf("%w: input has %d bytes, need %d", ErrUnsupportedFrame, len(src), width*height)
	}
	if len(dst) < width*height*4 {
		return fmt.Errorf("%w: output has %d bytes, need %d", ErrUnsupportedFrame, len(dst), width*height*4)
	}

	ops := make([]colorOp, 0, len(k.program.builder.parts)-1)
	for _, in := range k.program.builder.parts[1:] {
		op, ok := hostOps[in.part.Name]
		if !ok {
			return fmt.Errorf("%w %q on host", ErrUnknownPart, in.part.Name)
		}
		ops = append(ops, op)
	}

	d := demosaicer{src: src, width: width, height: height, cfa: cfa}
	for y := range height {
		for x := range width {
			c := d.at(x, y)
			for _, op := range ops {
				c = op(c, uniforms)
			}
			i := 4 * (y*width + x)
			dst[i] = quantize(c[0])
			dst[i+1] = quantize(c[1])
			dst[i+2] = quantize(c[2])
			dst[i+3] = 255
		}
	}
	return nil
}

type demosaicer struct {
	src           []byte
	width, height int
	cfa           frame.CFA
}

func mirror(v, n int) int {
	if v < 0 {
		v = -v
	}
	if v >= n {
		v = 2*n - 2 - v
	}
	return min(max(v, 0), n-1)
}

func (d demosaicer) raw(x, y int) float32 {
	return float32(d.src[mirror(y, d.height)*d.width+mirror(x, d.width)]) / 255
}

func (d demosaicer) cross(x, y int) float32 {
	return (d.raw(x-1, y) + d.raw(x+1, y) + d.raw(x, y-1) + d.raw(x, y+1)) / 4
}

func (d demosaicer) diag(x, y int) float32 {
	return (d.raw(x-1, y-1) + d.raw(x+1, y-1) + d.raw(x-1, y+1) + d.raw(x+1, y+1)) / 4
}

func (d demosaicer) at(x, y int) rgb {
	v := d.raw(x, y)
	switch d.cfa.Color(x, y) {
	case 0:
		return rgb{v, d.cross(x, y), d.diag(x, y)}
	case 2:
		return rgb{d.diag(x, y), d.cross(x, y), v}
	}
	horizontal := (d.raw(x-1, y) + d.raw(x+1, y)) / 2
	vertical := (d.raw(x, y-1) + d.raw(x, y+1)) / 2
	if d.cfa.Color(x^1, y) == 0 {
		return rgb{horizontal, v, vertical}
	}
	return rgb{vertical, v, horizontal}
}

func quantize(v float32) byte {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(math.Floor(float64(v*255 + 0.5)))
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
