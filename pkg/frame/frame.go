// Package frame describes the semantic layout of frame buffers: raw Bayer
// sensor data, RGB and RGBA. Interpretations are immutable values; stages
// use them to validate buffers before touching the bytes.
package frame

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a buffer is shorter than its
// interpretation requires.
var ErrInsufficientData = errors.New("frame: insufficient data")

// Interpretation is a layout descriptor for a buffer.
type Interpretation interface {
	// RequiredBytes is the minimum backing storage length for this layout.
	RequiredBytes() int
	// Kind names the layout ("raw", "rgb", "rgba").
	Kind() string
	// Size returns width and height in pixels.
	Size() (width, height int)
}

// Check reports ErrInsufficientData when n bytes cannot hold interp.
func Check(interp Interpretation, n int) error {
	if required := interp.RequiredBytes(); n < required {
		return fmt.Errorf("%w: %s frame needs %d bytes, found %d", ErrInsufficientData, interp.Kind(), required, n)
	}
	return nil
}

// CFA describes the phase of the 2x2 Bayer color filter array, using the
// camera's naming: FirstIsRedX selects whether red sits on even rows,
// FirstIsRedY whether it sits on even columns.
type CFA struct {
	FirstIsRedX bool
	FirstIsRedY bool
}

// RGGB is the phase whose top-left pixel is red.
var RGGB = CFA{FirstIsRedX: true, FirstIsRedY: true}

// Color returns the filter color at (x, y): 0 red, 1 green, 2 blue.
func (c CFA) Color(x, y int) int {
	redCol := (x%2 == 0) == c.FirstIsRedY
	redRow := (y%2 == 0) == c.FirstIsRedX
	switch {
	case redCol && redRow:
		return 0
	case !redCol && !redRow:
		return 2
	default:
		return 1
	}
}

// Pattern returns the 2x2 pattern in row-major order (R=0, G=1, B=2), the
// encoding used by the DNG CFAPattern tag.
func (c CFA) Pattern() [4]byte {
	return [4]byte{byte(c.Color(0, 0)), byte(c.Color(1, 0)), byte(c.Color(0, 1)), byte(c.Color(1, 1))}
}

func (c CFA) String() string {
	names := [3]byte{'R', 'G', 'B'}
	p := c.Pattern()
	return string([]byte{names[p[0]], names[p[1]], names[p[2]], names[p[3]]})
}

// Raw is a Bayer sensor frame. BitDepth 12 means two pixels packed in three
// bytes; 16 means little-endian 16-bit words.
type Raw struct {
	Width    int
	Height   int
	BitDepth int
	CFA      CFA
	FPS      float64
}

func (r Raw) RequiredBytes() int     { return r.Width * r.Height * r.BitDepth / 8 }
func (Raw) Kind() string             { return "raw" }
func (r Raw) Size() (int, int)       { return r.Width, r.Height }
func (r Raw) WithBitDepth(d int) Raw { r.BitDepth = d; return r }

// Rgb is an interleaved 8-bit RGB frame.
type Rgb struct {
	Width  int
	Height int
	FPS    float64
}

func (r Rgb) RequiredBytes() int { return r.Width * r.Height * 3 }
func (Rgb) Kind() string         { return "rgb" }
func (r Rgb) Size() (int, int)   { return r.Width, r.Height }

// Rgba is an interleaved 8-bit RGBA frame.
type Rgba struct {
	Width  int
	Height int
	FPS    float64
}

func (r Rgba) RequiredBytes() int { return r.Width * r.Height * 4 }
func (Rgba) Kind() string         { return "rgba" }
func (r Rgba) Size() (int, int)   { return r.Width, r.Height }
