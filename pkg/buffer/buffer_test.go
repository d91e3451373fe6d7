package buffer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/gpu"
)

func rawInterp() frame.Raw {
	return frame.Raw{Width: 4, Height: 2, BitDepth: 8, CFA: frame.RGGB}
}

func TestFromBytes_CopiesAndChecksSize(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	p, err := FromBytes(src, rawInterp())
	require.NoError(t, err)
	src[0] = 99
	assert.Equal(t, byte(1), p.Buffer().Bytes()[0])
	assert.Equal(t, CPU, p.Residency())

	_, err = FromBytes(src[:7], rawInterp())
	assert.ErrorIs(t, err, frame.ErrInsufficientData)
}

func TestEmpty(t *testing.T) {
	p := Empty()
	assert.True(t, p.IsEmpty())
	assert.Equal(t, None, p.Residency())
	assert.Equal(t, "Payload{empty}", p.String())

	_, err := As[frame.Raw](p)
	assert.ErrorIs(t, err, ErrWrongFormat)
}

func TestAs_WrongInterpretation(t *testing.T) {
	p, err := FromBytes(make([]byte, 8), rawInterp())
	require.NoError(t, err)

	f, err := As[frame.Raw](p)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Interp.Width)
	assert.Len(t, f.Bytes(), 8)

	_, err = As[frame.Rgb](p)
	assert.ErrorIs(t, err, ErrWrongFormat)

	_, err = AsGPU[frame.Raw](p)
	assert.ErrorIs(t, err, ErrWrongFormat)
}

func TestRoundTrip_CPUtoGPUtoCPU(t *testing.T) {
	ctx := context.Background()
	dev := gpu.NewHostDevice(0)
	data := []byte{10, 20, 30, 40, 50, 60, 70, 80}

	p, err := FromBytes(data, rawInterp())
	require.NoError(t, err)

	g, err := ToGPU(ctx, p, dev)
	require.NoError(t, err)
	assert.Equal(t, GPU, g.Residency())
	_, err = AsGPU[frame.Raw](g)
	require.NoError(t, err)
	assert.Nil(t, g.Buffer().Bytes())

	back, err := ToCPU(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, data, back.Buffer().Bytes())
	assert.Equal(t, p.Interpretation(), back.Interpretation())

	g.Release()
	assert.Equal(t, int64(0), dev.InUse())
}

func TestToGPU_SameDeviceShares(t *testing.T) {
	ctx := context.Background()
	dev := gpu.NewHostDevice(0)
	p, err := FromBytes(make([]byte, 8), rawInterp())
	require.NoError(t, err)

	g, err := ToGPU(ctx, p, dev)
	require.NoError(t, err)
	again, err := ToGPU(ctx, g, dev)
	require.NoError(t, err)
	assert.Same(t, g.Buffer().Handle(), again.Buffer().Handle())
	assert.Equal(t, int64(2), g.Buffer().Handle().Refs())

	again.Release()
	g.Release()
}

func TestToGPU_TransferError(t *testing.T) {
	ctx := context.Background()
	dev := gpu.NewHostDevice(4)
	p, err := FromBytes(make([]byte, 8), rawInterp())
	require.NoError(t, err)

	_, err = ToGPU(ctx, p, dev)
	var te *TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "upload", te.Op)
	assert.ErrorIs(t, err, gpu.ErrOutOfMemory)
}

func TestToCPU_DeviceLost(t *testing.T) {
	ctx := context.Background()
	dev := gpu.NewHostDevice(0)
	p, err := FromBytes(make([]byte, 8), rawInterp())
	require.NoError(t, err)
	g, err := ToGPU(ctx, p, dev)
	require.NoError(t, err)

	dev.Lose()
	_, err = ToCPU(ctx, g)
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, gpu.ErrDeviceLost)
}

func TestClone(t *testing.T) {
	p, err := FromBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8}, rawInterp())
	require.NoError(t, err)
	c, err := p.Clone()
	require.NoError(t, err)
	c.Buffer().Bytes()[0] = 42
	assert.Equal(t, byte(1), p.Buffer().Bytes()[0])

	g, err := ToGPU(context.Background(), p, gpu.NewHostDevice(0))
	require.NoError(t, err)
	_, err = g.Clone()
	assert.ErrorIs(t, err, ErrWrongFormat)
}

func TestToCPU_ResidentPayloadIsShared(t *testing.T) {
	ctx := context.Background()
	p, err := FromBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8}, rawInterp())
	require.NoError(t, err)

	shared, err := ToCPU(ctx, p)
	require.NoError(t, err)
	assert.Same(t, &p.Buffer().Bytes()[0], &shared.Buffer().Bytes()[0])

	private, err := shared.Clone()
	require.NoError(t, err)
	private.Buffer().Bytes()[0] = 42
	assert.Equal(t, byte(1), p.Buffer().Bytes()[0])

	g, err := ToGPU(ctx, p, gpu.NewHostDevice(0))
	require.NoError(t, err)
	down, err := ToCPU(ctx, g)
	require.NoError(t, err)
	down.Buffer().Bytes()[1] = 42
	assert.Equal(t, byte(2), p.Buffer().Bytes()[1], "downloads are independent of their source")
}
