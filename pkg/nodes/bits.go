package nodes

import (
	"encoding/binary"
	"fmt"

	"github.com/ib-77/framerail/pkg/buffer"
)

// packRaw stores samples at the given bit depth: one byte each for 8 bits,
// two samples in three bytes (MSB first) for 12, little-endian words for 16.
func packRaw(samples []uint16, depth int) []byte {
	switch depth {
	case 8:
		out := make([]byte, len(samples))
		for i, s := range samples {
			out[i] = byte(s)
		}
		return out
	case 12:
		out := make([]byte, len(samples)*3/2)
		for i := 0; i+1 < len(samples); i += 2 {
			a, b := samples[i]&0xfff, samples[i+1]&0xfff
			j := i / 2 * 3
			out[j] = byte(a >> 4)
			out[j+1] = byte(a&0xf)<<4 | byte(b>>8)
			out[j+2] = byte(b)
		}
		return out
	default:
		out := make([]byte, 2*len(samples))
		for i, s := range samples {
			binary.LittleEndian.PutUint16(out[2*i:], s)
		}
		return out
	}
}

// topByte reduces n samples to their 8 most significant bits.
func topByte(data []byte, depth, n int) ([]byte, error) {
	out := make([]byte, n)
	switch depth {
	case 12:
		if n%2 != 0 {
			return nil, fmt.Errorf("%w: 12-bit raw with odd pixel count %d", buffer.ErrWrongFormat, n)
		}
		for i := 0; i+1 < n; i += 2 {
			j := i / 2 * 3
			out[i] = data[j]
			out[i+1] = data[j+1]<<4 | data[j+2]>>4
		}
	case 16:
		for i := range n {
			out[i] = data[2*i+1]
		}
	default:
		return nil, fmt.Errorf("%w: cannot convert %d-bit raw", buffer.ErrWrongFormat, depth)
	}
	return out, nil
}

func validBitDepth(depth int64) bool {
	return depth == 8 || depth == 12 || depth == 16
}
