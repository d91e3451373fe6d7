package dng

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/ib-77/framerail/pkg/frame"
)

type field struct {
	typ   uint16
	count uint32
	data  []byte
}

// readIFD parses the first IFD of a little-endian TIFF.
func readIFD(t *testing.T, b []byte) map[uint16]field {
	t.Helper()
	require.Equal(t, "II", string(b[:2]))
	require.Equal(t, uint16(42), binary.LittleEndian.Uint16(b[2:]))
	off := binary.LittleEndian.Uint32(b[4:])
	n := int(binary.LittleEndian.Uint16(b[off:]))

	sizes := map[uint16]uint32{typeByte: 1, typeASCII: 1, typeShort: 2, typeLong: 4, typeRational: 8, typeSRational: 8}
	fields := map[uint16]field{}
	var last uint16
	for i := range n {
		e := b[int(off)+2+12*i:]
		tag := binary.LittleEndian.Uint16(e)
		require.Greater(t, tag, last, "entries must be sorted")
		last = tag
		f := field{typ: binary.LittleEndian.Uint16(e[2:]), count: binary.LittleEndian.Uint32(e[4:])}
		size := sizes[f.typ] * f.count
		if size <= 4 {
			f.data = e[8 : 8+size]
		} else {
			at := binary.LittleEndian.Uint32(e[8:])
			f.data = b[at : at+size]
		}
		fields[tag] = f
	}
	return fields
}

func (f field) short(i int) uint16 { return binary.LittleEndian.Uint16(f.data[2*i:]) }
func (f field) long(i int) uint32  { return binary.LittleEndian.Uint32(f.data[4*i:]) }

func TestEncode_RGBADecodesAsTIFF(t *testing.T) {
	interp := frame.Rgba{Width: 3, Height: 2, FPS: 24}
	pix := []byte{
		255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255,
		10, 20, 30, 255, 40, 50, 60, 0, 70, 80, 90, 128,
	}
	img, err := FromRGBA(interp, pix)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))

	decoded, err := tiff.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), decoded.Bounds())

	want := [][3]uint8{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {10, 20, 30}, {40, 50, 60}, {70, 80, 90}}
	for i, w := range want {
		c := color.RGBAModel.Convert(decoded.At(i%3, i/3)).(color.RGBA)
		assert.Equal(t, color.RGBA{R: w[0], G: w[1], B: w[2], A: 255}, c, "pixel %d", i)
	}

	fields := readIFD(t, buf.Bytes())
	assert.Equal(t, PhotometricRGB, fields[tagPhotometric].short(0))
	assert.Equal(t, []byte{1, 4, 0, 0}, fields[tagDNGVersion].data)
	assert.Equal(t, uint32(240000), fields[tagFrameRate].long(0))
	assert.Equal(t, uint32(10000), fields[tagFrameRate].long(1))
	assert.Equal(t, "framerail\x00", string(fields[tagSoftware].data))
}

func TestEncode_RawCFA(t *testing.T) {
	tests := []struct {
		cfa  frame.CFA
		want []byte
	}{
		{cfa: frame.CFA{FirstIsRedX: true, FirstIsRedY: true}, want: []byte{0, 1, 1, 2}},
		{cfa: frame.CFA{FirstIsRedX: true, FirstIsRedY: false}, want: []byte{1, 0, 2, 1}},
		{cfa: frame.CFA{FirstIsRedX: false, FirstIsRedY: true}, want: []byte{1, 2, 0, 1}},
		{cfa: frame.CFA{}, want: []byte{2, 1, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.cfa.String(), func(t *testing.T) {
			interp := frame.Raw{Width: 4, Height: 2, BitDepth: 12, CFA: tt.cfa, FPS: 25}
			pix := make([]byte, interp.RequiredBytes()+5)
			for i := range pix {
				pix[i] = byte(i)
			}
			img, err := FromRaw(interp, pix)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, img))
			b := buf.Bytes()
			fields := readIFD(t, b)

			assert.Equal(t, PhotometricCFA, fields[tagPhotometric].short(0))
			assert.Equal(t, tt.want, fields[tagCFAPattern].data)
			assert.Equal(t, []uint16{2, 2}, []uint16{fields[tagCFARepeatPatternDim].short(0), fields[tagCFARepeatPatternDim].short(1)})
			assert.Equal(t, uint16(12), fields[tagBitsPerSample].short(0))
			assert.Equal(t, uint32(4095), fields[tagWhiteLevel].long(0))
			assert.Equal(t, uint32(4), fields[tagImageWidth].long(0))
			assert.Equal(t, uint32(9), fields[tagColorMatrix1].count)

			off := fields[tagStripOffsets].long(0)
			n := fields[tagStripByteCounts].long(0)
			assert.Equal(t, uint32(12), n)
			assert.Equal(t, pix[:12], b[off:off+n])
			assert.Len(t, b, int(off+n))
		})
	}
}

func TestEncode_Rejects(t *testing.T) {
	_, err := FromRaw(frame.Raw{Width: 2, Height: 2, BitDepth: 10}, make([]byte, 8))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = FromRaw(frame.Raw{Width: 2, Height: 2, BitDepth: 8}, make([]byte, 3))
	assert.ErrorIs(t, err, frame.ErrInsufficientData)

	_, err = FromRGB(frame.Rgb{Width: 2, Height: 2}, make([]byte, 11))
	assert.ErrorIs(t, err, frame.ErrInsufficientData)

	assert.ErrorIs(t, Encode(&bytes.Buffer{}, Image{}), ErrUnsupported)
	assert.ErrorIs(t, Encode(&bytes.Buffer{}, Image{Width: 1, Height: 1, BitsPerSample: 16, Pix: make([]byte, 6)}), ErrUnsupported)
}

func TestFromRGB(t *testing.T) {
	img, err := FromRGB(frame.Rgb{Width: 1, Height: 1}, []byte{1, 2, 3})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img))
	decoded, err := tiff.Decode(&buf)
	require.NoError(t, err)
	r, g, b, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{r >> 8, g >> 8, b >> 8})
}
