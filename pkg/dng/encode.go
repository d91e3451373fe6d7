package dng

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/ib-77/framerail/pkg/frame"
)

var ErrUnsupported = errors.New("dng: unsupported image")

// Identity names the camera in the file.
type Identity struct {
	Make     string
	Model    string
	Software string
}

var DefaultIdentity = Identity{Make: "Apertus", Model: "AXIOM", Software: "framerail"}

// Image is one frame ready to be written.
type Image struct {
	Width         int
	Height        int
	BitsPerSample int
	// CFA is set for Bayer images; nil means 3-sample RGB.
	CFA      *frame.CFA
	FPS      float64
	Pix      []byte
	Identity Identity
}

// FromRaw describes a Bayer frame. 12-bit data must be packed MSB first,
// 16-bit data little-endian.
func FromRaw(interp frame.Raw, pix []byte) (Image, error) {
	switch interp.BitDepth {
	case 8, 12, 16:
	default:
		return Image{}, fmt.Errorf("%w: %d-bit raw", ErrUnsupported, interp.BitDepth)
	}
	if err := frame.Check(interp, len(pix)); err != nil {
		return Image{}, err
	}
	cfa := interp.CFA
	return Image{
		Width: interp.Width, Height: interp.Height, BitsPerSample: interp.BitDepth,
		CFA: &cfa, FPS: interp.FPS, Pix: pix[:interp.RequiredBytes()],
	}, nil
}

// FromRGB describes an interleaved 8-bit RGB frame.
func FromRGB(interp frame.Rgb, pix []byte) (Image, error) {
	if err := frame.Check(interp, len(pix)); err != nil {
		return Image{}, err
	}
	return Image{
		Width: interp.Width, Height: interp.Height, BitsPerSample: 8,
		FPS: interp.FPS, Pix: pix[:interp.RequiredBytes()],
	}, nil
}

// FromRGBA drops the alpha channel of an RGBA frame.
func FromRGBA(interp frame.Rgba, pix []byte) (Image, error) {
	if err := frame.Check(interp, len(pix)); err != nil {
		return Image{}, err
	}
	n := interp.Width * interp.Height
	rgb := make([]byte, 3*n)
	for i := range n {
		copy(rgb[3*i:3*i+3], pix[4*i:4*i+3])
	}
	return Image{
		Width: interp.Width, Height: interp.Height, BitsPerSample: 8,
		FPS: interp.FPS, Pix: rgb,
	}, nil
}

func (img Image) samples() int {
	if img.CFA != nil {
		return 1
	}
	return 3
}

func (img Image) stripBytes() int {
	return img.Width * img.Height * img.samples() * img.BitsPerSample / 8
}

type entry struct {
	tag    uint16
	typ    uint16
	count  uint32
	data   []byte
	offset uint32
}

// Encode writes img as a DNG file.
func Encode(w io.Writer, img Image) error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrUnsupported, img.Width, img.Height)
	}
	if img.CFA == nil && img.BitsPerSample != 8 {
		return fmt.Errorf("%w: %d-bit rgb", ErrUnsupported, img.BitsPerSample)
	}
	if len(img.Pix) < img.stripBytes() {
		return fmt.Errorf("%w: %d pixel bytes, need %d", ErrUnsupported, len(img.Pix), img.stripBytes())
	}
	id := img.Identity
	if id == (Identity{}) {
		id = DefaultIdentity
	}

	entries := []entry{
		longs(tagNewSubfileType, 0),
		longs(tagImageWidth, uint32(img.Width)),
		longs(tagImageLength, uint32(img.Height)),
		shorts(tagCompression, 1),
		shorts(tagOrientation, 1),
		shorts(tagSamplesPerPixel, uint16(img.samples())),
		longs(tagRowsPerStrip, uint32(img.Height)),
		longs(tagStripOffsets, 0),
		longs(tagStripByteCounts, uint32(img.stripBytes())),
		rationals(tagXResolution, 1, 1),
		rationals(tagYResolution, 1, 1),
		shorts(tagResolutionUnit, 1),
		shorts(tagPlanarConfiguration, 1),
		ascii(tagMake, id.Make),
		ascii(tagModel, id.Model),
		ascii(tagUniqueCameraModel, id.Make+" "+id.Model),
		ascii(tagSoftware, id.Software),
		bytesEntry(tagDNGVersion, 1, 4, 0, 0),
		srationals(tagColorMatrix1, colorMatrix1[:], 10000),
		srationals(tagFrameRate, []int32{int32(math.Round(img.FPS * 10000))}, 10000),
		longs(tagWhiteLevel, uint32(1)<<img.BitsPerSample-1),
	}
	if img.CFA != nil {
		p := img.CFA.Pattern()
		entries = append(entries,
			shorts(tagBitsPerSample, uint16(img.BitsPerSample)),
			shorts(tagPhotometric, PhotometricCFA),
			shorts(tagCFARepeatPatternDim, 2, 2),
			bytesEntry(tagCFAPattern, p[:]...),
		)
	} else {
		entries = append(entries,
			shorts(tagBitsPerSample, 8, 8, 8),
			shorts(tagPhotometric, PhotometricRGB),
		)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	const headerSize = 8
	ifdSize := 2 + 12*len(entries) + 4
	next := uint32(headerSize + ifdSize)
	for i := range entries {
		if len(entries[i].data) <= 4 {
			continue
		}
		entries[i].offset = next
		next += uint32(len(entries[i].data))
		next += next & 1
	}
	stripOffset := next
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			binary.LittleEndian.PutUint32(entries[i].data, stripOffset)
		}
	}

	var head bytes.Buffer
	head.WriteString("II")
	le(&head, uint16(42))
	le(&head, uint32(headerSize))

	le(&head, uint16(len(entries)))
	for _, e := range entries {
		le(&head, e.tag)
		le(&head, e.typ)
		le(&head, e.count)
		if len(e.data) <= 4 {
			var inline [4]byte
			copy(inline[:], e.data)
			head.Write(inline[:])
		} else {
			le(&head, e.offset)
		}
	}
	le(&head, uint32(0))

	for _, e := range entries {
		if len(e.data) <= 4 {
			continue
		}
		head.Write(e.data)
		if head.Len()%2 == 1 {
			head.WriteByte(0)
		}
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(head.Bytes()); err != nil {
		return fmt.Errorf("dng: write header: %w", err)
	}
	if _, err := bw.Write(img.Pix[:img.stripBytes()]); err != nil {
		return fmt.Errorf("dng: write strip: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("dng: flush: %w", err)
	}
	return nil
}

func le(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}

func shorts(tag uint16, v ...uint16) entry {
	data := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(data[2*i:], x)
	}
	return entry{tag: tag, typ: typeShort, count: uint32(len(v)), data: data}
}

func longs(tag uint16, v ...uint32) entry {
	data := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(data[4*i:], x)
	}
	return entry{tag: tag, typ: typeLong, count: uint32(len(v)), data: data}
}

func rationals(tag uint16, num, den uint32) entry {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, num)
	binary.LittleEndian.PutUint32(data[4:], den)
	return entry{tag: tag, typ: typeRational, count: 1, data: data}
}

func srationals(tag uint16, nums []int32, den int32) entry {
	data := make([]byte, 8*len(nums))
	for i, n := range nums {
		binary.LittleEndian.PutUint32(data[8*i:], uint32(n))
		binary.LittleEndian.PutUint32(data[8*i+4:], uint32(den))
	}
	return entry{tag: tag, typ: typeSRational, count: uint32(len(nums)), data: data}
}

func ascii(tag uint16, s string) entry {
	data := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}

func bytesEntry(tag uint16, v ...byte) entry {
	return entry{tag: tag, typ: typeByte, count: uint32(len(v)), data: append([]byte(nil), v...)}
}
