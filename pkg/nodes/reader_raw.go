package nodes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

var (
	// ErrNoFiles is returned when a file pattern matches nothing.
	ErrNoFiles = errors.New("nodes: no files match")

	// ErrChecksum is returned when a stored frame does not match its index.
	ErrChecksum = errors.New("nodes: frame checksum mismatch")
)

var rawDirectoryReaderNode = Descriptor{
	Name: "RawDirectoryReader",
	Doc:  "reads one raw frame per file, in file name order",
	Schema: pacingParams(cfaParams(param.NewSchema().
		With("file-pattern", param.Mandatory(param.StringKind{}).Describe("glob selecting the frame files")).
		With("width", param.Mandatory(param.IntRange{Min: 1, Max: maxDimension}).Describe("frame width in pixels")).
		With("height", param.Mandatory(param.IntRange{Min: 1, Max: maxDimension}).Describe("frame height in pixels")).
		With("bit-depth", param.Optional(param.IntRange{Min: 8, Max: 16}, param.Int(12)).Describe("8, 12 (packed) or 16")).
		With("loop", param.Optional(param.BoolKind{}, param.Bool(false)).Describe("start over after the last file")).
		With("sleep", param.Optional(param.FloatRange{Min: 0, Max: 3600}, param.Float(0)).Describe("seconds to wait after each frame")))),
	create: newRawDirectoryReader,
}

var rawBlobReaderNode = Descriptor{
	Name: "RawBlobReader",
	Doc:  "reads frames back from a blob written by RawBlobWriter",
	Schema: pacingParams(cfaParams(param.NewSchema().
		With("path", param.Mandatory(param.StringKind{}).Describe("blob file")).
		With("width", param.Optional(param.IntRange{Min: 0, Max: maxDimension}, param.Int(0)).Describe("frame width, required without an index")).
		With("height", param.Optional(param.IntRange{Min: 0, Max: maxDimension}, param.Int(0)).Describe("frame height, required without an index")).
		With("bit-depth", param.Optional(param.IntRange{Min: 8, Max: 16}, param.Int(12)).Describe("used without an index")).
		With("loop", param.Optional(param.BoolKind{}, param.Bool(false)).Describe("start over after the last frame")))),
	create: newRawBlobReader,
}

func rawOf(r param.Resolved, width, height int64) (frame.Raw, error) {
	depth, err := bitDepthOf(r)
	if err != nil {
		return frame.Raw{}, err
	}
	interp := frame.Raw{
		Width:    int(width),
		Height:   int(height),
		BitDepth: depth,
		CFA:      frame.CFA{FirstIsRedX: r.Bool("first-red-x"), FirstIsRedY: r.Bool("first-red-y")},
		FPS:      r.Float("fps"),
	}
	if depth == 12 && interp.Width*interp.Height%2 != 0 {
		return frame.Raw{}, &param.ConfigError{Param: "width", Err: fmt.Errorf("%w: 12-bit frames need an even pixel count", param.ErrOutOfRange)}
	}
	return interp, nil
}

// RawDirectoryReader emits the files matching a glob in sorted order.
// Files ending in .lz4 or .zst are decompressed.
type RawDirectoryReader struct {
	files  []string
	next   int
	loop   bool
	interp frame.Raw
	pace   *pacer
}

func newRawDirectoryReader(r param.Resolved, _ *Context) (rail.Node, error) {
	interp, err := rawOf(r, r.Int("width"), r.Int("height"))
	if err != nil {
		return nil, err
	}
	pattern := r.String("file-pattern")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &param.ConfigError{Param: "file-pattern", Err: err}
	}
	if len(files) == 0 {
		return nil, &param.ConfigError{Param: "file-pattern", Err: fmt.Errorf("%w %q", ErrNoFiles, pattern)}
	}
	slices.Sort(files)
	return &RawDirectoryReader{
		files:  files,
		loop:   r.Bool("loop"),
		interp: interp,
		pace:   newPacer(r, r.Float("sleep")),
	}, nil
}

func (*RawDirectoryReader) Name() string { return "RawDirectoryReader" }

func (rd *RawDirectoryReader) Process(ctx context.Context, in buffer.Payload, _ *rail.Token) (*buffer.Payload, error) {
	in.Release()
	if rd.next == len(rd.files) {
		if !rd.loop {
			return nil, rail.ErrEndOfStream
		}
		rd.next = 0
	}
	if err := rd.pace.wait(ctx); err != nil {
		return nil, err
	}
	name := rd.files[rd.next]
	rd.next++

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if tag := compressionFromExt(filepath.Ext(name)); tag != CompressionNone {
		if data, err = decompressFrame(data, tag, rd.interp.RequiredBytes()); err != nil {
			return nil, rail.Recoverable(fmt.Errorf("%s: %w", name, err))
		}
	}
	out, err := buffer.Adopt(data, rd.interp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &out, nil
}

// RawBlobReader walks a blob by its index, verifying every frame. Without
// an index the blob is cut into frames of the configured size.
type RawBlobReader struct {
	blob    *os.File
	entries []IndexEntry
	next    int
	count   int
	loop    bool
	interp  frame.Raw
	pace    *pacer
}

func newRawBlobReader(r param.Resolved, _ *Context) (rail.Node, error) {
	path := r.String("path")
	entries, err := ReadIndex(path + ".idx")
	switch {
	case errors.Is(err, os.ErrNotExist):
		entries = nil
	case err != nil:
		return nil, &param.ConfigError{Param: "path", Err: err}
	}

	rb := &RawBlobReader{entries: entries, count: len(entries), loop: r.Bool("loop"), pace: newPacer(r, 0)}
	blob, err := os.Open(path)
	if err != nil {
		return nil, &param.ConfigError{Param: "path", Err: err}
	}
	rb.blob = blob

	if entries == nil {
		if err := rb.fixedSize(r); err != nil {
			blob.Close()
			return nil, err
		}
	}
	if rb.count == 0 {
		blob.Close()
		return nil, &param.ConfigError{Param: "path", Err: fmt.Errorf("%w in %s", ErrNoFiles, path)}
	}
	return rb, nil
}

func (rb *RawBlobReader) fixedSize(r param.Resolved) error {
	for _, name := range []string{"width", "height"} {
		if r.Int(name) == 0 {
			return &param.ConfigError{Param: name, Err: fmt.Errorf("%w: needed when the blob has no index", param.ErrMissing)}
		}
	}
	interp, err := rawOf(r, r.Int("width"), r.Int("height"))
	if err != nil {
		return err
	}
	st, err := rb.blob.Stat()
	if err != nil {
		return &param.ConfigError{Param: "path", Err: err}
	}
	rb.interp = interp
	rb.count = int(st.Size() / int64(interp.RequiredBytes()))
	return nil
}

func (*RawBlobReader) Name() string { return "RawBlobReader" }

func (rb *RawBlobReader) Process(ctx context.Context, in buffer.Payload, _ *rail.Token) (*buffer.Payload, error) {
	in.Release()
	if rb.next == rb.count {
		if !rb.loop {
			return nil, rail.ErrEndOfStream
		}
		rb.next = 0
	}
	if err := rb.pace.wait(ctx); err != nil {
		return nil, err
	}
	i := rb.next
	rb.next++

	if rb.entries == nil {
		size := rb.interp.RequiredBytes()
		data := make([]byte, size)
		if _, err := rb.blob.ReadAt(data, int64(i)*int64(size)); err != nil {
			return nil, err
		}
		out, err := buffer.Adopt(data, rb.interp)
		if err != nil {
			return nil, err
		}
		return &out, nil
	}

	e := rb.entries[i]
	interp, err := e.check()
	if err != nil {
		return nil, rail.Recoverable(fmt.Errorf("record %d: %w", i, err))
	}
	data, err := rb.read(e)
	if err != nil {
		return nil, rail.Recoverable(fmt.Errorf("frame %d: %w", e.Seq, err))
	}
	out, err := buffer.Adopt(data, interp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (rb *RawBlobReader) read(e IndexEntry) ([]byte, error) {
	stored := make([]byte, e.Length)
	if _, err := rb.blob.ReadAt(stored, e.Offset); err != nil {
		return nil, err
	}
	tag, err := ParseCompressionTag(e.Compression)
	if err != nil {
		return nil, err
	}
	data, err := decompressFrame(stored, tag, e.Size)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(checksum(data), e.Blake3) {
		return nil, ErrChecksum
	}
	return data, nil
}

func (rb *RawBlobReader) Close() error { return rb.blob.Close() }
