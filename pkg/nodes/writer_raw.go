package nodes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

// IndexFile is the index name inside a raw directory.
const IndexFile = "index.cbor"

func compressionParam(s param.Schema) param.Schema {
	return s.With("compression", param.Optional(param.StringKind{}, param.String("none")).Describe("none, lz4 or zstd"))
}

var rawDirectoryWriterNode = Descriptor{
	Name: "RawDirectoryWriter",
	Doc:  "writes one raw file per frame into a new directory with a CBOR index",
	Schema: compressionParam(param.NewSchema().
		With("path", param.Mandatory(param.StringKind{}).Describe("output directory, must not exist"))),
	create: newRawDirectoryWriter,
}

var rawBlobWriterNode = Descriptor{
	Name: "RawBlobWriter",
	Doc:  "appends frames to a single blob file with a CBOR index next to it",
	Schema: compressionParam(param.NewSchema().
		With("path", param.Mandatory(param.StringKind{}).Describe("blob file, must not exist; the index is <path>.idx"))),
	create: newRawBlobWriter,
}

// stored is a frame prepared for writing: compressed and checksummed.
type stored struct {
	data  []byte
	entry IndexEntry
}

func prepare(ctx context.Context, in buffer.Payload, tag CompressionTag, tok *rail.Token) (stored, error) {
	cpu, err := materialize(ctx, in)
	if err != nil {
		return stored{}, err
	}
	interp := cpu.Interpretation()
	raw := cpu.Buffer().Bytes()[:interp.RequiredBytes()]
	data, used, err := compressFrame(raw, tag)
	if err != nil {
		return stored{}, err
	}
	return stored{
		data: data,
		entry: IndexEntry{
			Seq:         tok.Seq(),
			Length:      len(data),
			Size:        len(raw),
			Compression: used.String(),
			Blake3:      checksum(raw),
			Frame:       infoOf(interp),
			Run:         tok.RunID().String(),
		},
	}, nil
}

// RawDirectoryWriter stores each frame as NNNNNN.raw, with a .lz4 or .zst
// suffix when compressed.
type RawDirectoryWriter struct {
	dir   string
	tag   CompressionTag
	index *indexWriter
}

func newRawDirectoryWriter(r param.Resolved, _ *Context) (rail.Node, error) {
	tag, err := ParseCompressionTag(r.String("compression"))
	if err != nil {
		return nil, &param.ConfigError{Param: "compression", Err: err}
	}
	dir := r.String("path")
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, &param.ConfigError{Param: "path", Err: err}
	}
	index, err := createIndex(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, &param.ConfigError{Param: "path", Err: err}
	}
	return &RawDirectoryWriter{dir: dir, tag: tag, index: index}, nil
}

func (*RawDirectoryWriter) Name() string { return "RawDirectoryWriter" }

func (w *RawDirectoryWriter) Process(ctx context.Context, in buffer.Payload, tok *rail.Token) (*buffer.Payload, error) {
	if in.IsEmpty() {
		return nil, nil
	}
	s, err := prepare(ctx, in, w.tag, tok)
	if err != nil {
		return nil, err
	}
	tag, _ := ParseCompressionTag(s.entry.Compression)
	s.entry.File = fmt.Sprintf("%06d.raw%s", tok.Seq(), tag.Ext())

	if err := tok.Acquire(ctx); err != nil {
		return nil, err
	}
	defer tok.Release()

	if err := os.WriteFile(filepath.Join(w.dir, s.entry.File), s.data, 0o644); err != nil {
		return nil, err
	}
	return nil, w.index.Append(s.entry)
}

func (w *RawDirectoryWriter) Close() error { return w.index.Close() }

// RawBlobWriter appends frames back to back; offsets live in the index.
type RawBlobWriter struct {
	blob   *os.File
	offset int64
	tag    CompressionTag
	index  *indexWriter
}

func newRawBlobWriter(r param.Resolved, _ *Context) (rail.Node, error) {
	tag, err := ParseCompressionTag(r.String("compression"))
	if err != nil {
		return nil, &param.ConfigError{Param: "compression", Err: err}
	}
	path := r.String("path")
	blob, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &param.ConfigError{Param: "path", Err: err}
	}
	index, err := createIndex(path + ".idx")
	if err != nil {
		return nil, &param.ConfigError{Param: "path", Err: errors.Join(err, blob.Close())}
	}
	return &RawBlobWriter{blob: blob, tag: tag, index: index}, nil
}

func (*RawBlobWriter) Name() string { return "RawBlobWriter" }

func (w *RawBlobWriter) Process(ctx context.Context, in buffer.Payload, tok *rail.Token) (*buffer.Payload, error) {
	if in.IsEmpty() {
		return nil, nil
	}
	s, err := prepare(ctx, in, w.tag, tok)
	if err != nil {
		return nil, err
	}

	if err := tok.Acquire(ctx); err != nil {
		return nil, err
	}
	defer tok.Release()

	s.entry.Offset = w.offset
	if _, err := w.blob.Write(s.data); err != nil {
		return nil, err
	}
	w.offset += int64(len(s.data))
	return nil, w.index.Append(s.entry)
}

func (w *RawBlobWriter) Close() error {
	return errors.Join(w.blob.Close(), w.index.Close())
}

var (
	_ io.Closer = (*RawDirectoryWriter)(nil)
	_ io.Closer = (*RawBlobWriter)(nil)
)
