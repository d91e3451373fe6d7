package nodes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/ib-77/framerail/pkg/frame"
)

// maxDimension bounds frame width and height in parameters and indices.
const maxDimension = 16384

// ErrBadRecord is returned for an index record that cannot describe a
// stored frame.
var ErrBadRecord = errors.New("nodes: invalid index record")

// FrameInfo is the stored form of a raw frame interpretation.
type FrameInfo struct {
	Kind        string  `cbor:"kind"`
	Width       int     `cbor:"width"`
	Height      int     `cbor:"height"`
	BitDepth    int     `cbor:"bit_depth,omitempty"`
	FirstIsRedX bool    `cbor:"first_is_red_x,omitempty"`
	FirstIsRedY bool    `cbor:"first_is_red_y,omitempty"`
	FPS         float64 `cbor:"fps,omitempty"`
}

func infoOf(interp frame.Interpretation) FrameInfo {
	w, h := interp.Size()
	info := FrameInfo{Kind: interp.Kind(), Width: w, Height: h}
	switch v := interp.(type) {
	case frame.Raw:
		info.BitDepth = v.BitDepth
		info.FirstIsRedX, info.FirstIsRedY = v.CFA.FirstIsRedX, v.CFA.FirstIsRedY
		info.FPS = v.FPS
	case frame.Rgb:
		info.FPS = v.FPS
	case frame.Rgba:
		info.FPS = v.FPS
	}
	return info
}

// Interpretation rebuilds the frame interpretation.
func (fi FrameInfo) Interpretation() (frame.Interpretation, error) {
	switch fi.Kind {
	case "raw":
		return frame.Raw{
			Width: fi.Width, Height: fi.Height, BitDepth: fi.BitDepth,
			CFA: frame.CFA{FirstIsRedX: fi.FirstIsRedX, FirstIsRedY: fi.FirstIsRedY}, FPS: fi.FPS,
		}, nil
	case "rgb":
		return frame.Rgb{Width: fi.Width, Height: fi.Height, FPS: fi.FPS}, nil
	case "rgba":
		return frame.Rgba{Width: fi.Width, Height: fi.Height, FPS: fi.FPS}, nil
	default:
		return nil, fmt.Errorf("unknown frame kind %q", fi.Kind)
	}
}

// IndexEntry describes one stored frame. Directory indices fill File, blob
// indices fill Offset.
type IndexEntry struct {
	Seq         uint64    `cbor:"seq"`
	File        string    `cbor:"file,omitempty"`
	Offset      int64     `cbor:"offset"`
	Length      int       `cbor:"length"`
	Size        int       `cbor:"size"`
	Compression string    `cbor:"compression"`
	Blake3      []byte    `cbor:"blake3"`
	Frame       FrameInfo `cbor:"frame"`
	Run         string    `cbor:"run"`
}

// check returns the interpretation of e's frame, or ErrBadRecord when the
// record's geometry, sizes or placement are impossible.
func (e IndexEntry) check() (frame.Interpretation, error) {
	interp, err := e.Frame.Interpretation()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRecord, err)
	}
	w, h := interp.Size()
	if w < 1 || h < 1 || w > maxDimension || h > maxDimension {
		return nil, fmt.Errorf("%w: frame size %dx%d", ErrBadRecord, w, h)
	}
	if raw, ok := interp.(frame.Raw); ok {
		if !validBitDepth(int64(raw.BitDepth)) {
			return nil, fmt.Errorf("%w: bit depth %d", ErrBadRecord, raw.BitDepth)
		}
		if raw.BitDepth == 12 && w*h%2 != 0 {
			return nil, fmt.Errorf("%w: 12-bit frame with odd pixel count %d", ErrBadRecord, w*h)
		}
	}
	switch {
	case e.Offset < 0:
		return nil, fmt.Errorf("%w: offset %d", ErrBadRecord, e.Offset)
	case e.Size != interp.RequiredBytes():
		return nil, fmt.Errorf("%w: size %d, frame needs %d", ErrBadRecord, e.Size, interp.RequiredBytes())
	case e.Length < 0 || e.Length > e.Size:
		// frames that do not shrink are stored uncompressed
		return nil, fmt.Errorf("%w: length %d for a %d byte frame", ErrBadRecord, e.Length, e.Size)
	}
	return interp, nil
}

// indexWriter appends CBOR records to an index file.
type indexWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *cbor.Encoder
}

func createIndex(path string) (*indexWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &indexWriter{f: f, buf: buf, enc: encMode.NewEncoder(buf)}, nil
}

// Append writes e and flushes it so a crash loses at most the current record.
func (w *indexWriter) Append(e IndexEntry) error {
	if err := w.enc.Encode(e); err != nil {
		return fmt.Errorf("index: encode frame %d: %w", e.Seq, err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("index: write frame %d: %w", e.Seq, err)
	}
	return nil
}

func (w *indexWriter) Close() error {
	return errors.Join(w.buf.Flush(), w.f.Close())
}

// ReadIndex reads every record of an index file.
func ReadIndex(path string) ([]IndexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []IndexEntry
	dec := decMode.NewDecoder(bufio.NewReader(f))
	for {
		var e IndexEntry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("index %s: record %d: %w", path, len(entries), err)
		}
		entries = append(entries, e)
	}
}
