package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/frame"
)

func TestPackRaw_TopByte(t *testing.T) {
	t.Parallel()

	samples := []uint16{0xabc, 0x123, 0xfff, 0x000}
	packed := packRaw(samples, 12)
	assert.Equal(t, []byte{0xab, 0xc1, 0x23, 0xff, 0xf0, 0x00}, packed)

	top, err := topByte(packed, 12, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0x12, 0xff, 0x00}, top)

	wide := []uint16{0xabcd, 0x0102}
	top, err = topByte(packRaw(wide, 16), 16, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0x01}, top)

	_, err = topByte(nil, 10, 0)
	assert.ErrorIs(t, err, buffer.ErrWrongFormat)

	_, err = topByte(packRaw([]uint16{1, 2, 3}, 12), 12, 3)
	assert.ErrorIs(t, err, buffer.ErrWrongFormat, "12-bit needs whole sample pairs")
}

func TestBitDepthConverter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	raw := frame.Raw{Width: 2, Height: 2, BitDepth: 12, CFA: frame.RGGB, FPS: 24}
	in, err := buffer.FromBytes(packRaw([]uint16{0x100, 0x200, 0x300, 0xff0}, 12), raw)
	require.NoError(t, err)

	out, err := BitDepthConverter{}.Process(ctx, in, nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	f, err := buffer.AsCPU[frame.Raw](*out)
	require.NoError(t, err)
	assert.Equal(t, raw.WithBitDepth(8), f.Interp)
	assert.Equal(t, []byte{0x10, 0x20, 0x30, 0xff}, f.Bytes())

	eight, err := buffer.FromBytes([]byte{1, 2, 3, 4}, raw.WithBitDepth(8))
	require.NoError(t, err)
	out, err = BitDepthConverter{}.Process(ctx, eight, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, out.Buffer().Bytes())

	empty, err := BitDepthConverter{}.Process(ctx, buffer.Empty(), nil)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	rgb, err := buffer.FromBytes(make([]byte, 12), frame.Rgb{Width: 2, Height: 2})
	require.NoError(t, err)
	_, err = BitDepthConverter{}.Process(ctx, rgb, nil)
	assert.ErrorIs(t, err, buffer.ErrWrongFormat)
}

func TestPattern_Deterministic(t *testing.T) {
	t.Parallel()

	raw := frame.Raw{Width: 8, Height: 4, BitDepth: 12, CFA: frame.RGGB}
	a := Pattern(raw, 3, 5)
	assert.Len(t, a, raw.RequiredBytes())
	assert.Equal(t, a, Pattern(raw, 3, 5))
	assert.NotEqual(t, a, Pattern(raw, 3, 6))
	assert.NotEqual(t, a, Pattern(raw, 4, 5))

	// every 12-bit sample is an 8-bit value shifted up by four
	top, err := topByte(a, 12, 32)
	require.NoError(t, err)
	assert.Equal(t, Pattern(raw.WithBitDepth(8), 3, 5), top)
}
