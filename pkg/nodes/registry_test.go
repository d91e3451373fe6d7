package nodes

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/frame"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"BitDepthConverter", "CinemaDngWriter", "Debayer", "Preview", "RawBlobReader",
		"RawBlobWriter", "RawDirectoryReader", "RawDirectoryWriter", "TestPattern",
	}, Names())

	list := List()
	assert.Len(t, list, len(Names()))
	_, ok := list["CinemaDngWriter"].Lookup("path")
	assert.True(t, ok)

	d, ok := Describe("Debayer")
	require.True(t, ok)
	assert.NotEmpty(t, d.Doc)
}

func TestCreate_Errors(t *testing.T) {
	t.Parallel()

	existing := t.TempDir()
	tests := []struct {
		name   string
		node   string
		values param.Values
		param  string
		want   error
	}{
		{"unknown node", "Ffmpeg", nil, "", ErrUnknownNode},
		{"missing path", "CinemaDngWriter", nil, "path", param.ErrMissing},
		{"existing directory", "CinemaDngWriter", param.Values{"path": param.String(existing)}, "path", os.ErrExist},
		{"bit depth", "TestPattern", param.Values{"bit-depth": param.Int(10)}, "bit-depth", param.ErrOutOfRange},
		{"odd 12-bit frame", "TestPattern", param.Values{"width": param.Int(3), "height": param.Int(3)}, "width", param.ErrOutOfRange},
		{"bad compression", "RawBlobWriter", param.Values{"path": param.String(filepath.Join(existing, "b")), "compression": param.String("gzip")}, "compression", nil},
		{"no files", "RawDirectoryReader", param.Values{"file-pattern": param.String(filepath.Join(existing, "*.raw")), "width": param.Int(2), "height": param.Int(2)}, "file-pattern", ErrNoFiles},
		{"blob without index or size", "RawBlobReader", param.Values{"path": param.String(existing)}, "width", param.ErrMissing},
		{"shader", "Debayer", param.Values{"shader": param.String("gain()")}, "shader", nil},
		{"no preview callback", "Preview", nil, "", ErrNoPreview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(tt.node, tt.values, testContext())
			require.Error(t, err)

			var ce *param.ConfigError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.node, ce.Node)
			assert.Equal(t, tt.param, ce.Param)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

// Every node, created from a valid bag, handles one well-formed payload
// without panicking and returns ok or a documented error.
func TestCreate_ProcessOneFrame(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw8 := frame.Raw{Width: 4, Height: 2, BitDepth: 8, CFA: frame.RGGB, FPS: 24}
	raw12 := raw8.WithBitDepth(12)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000000.raw"), make([]byte, raw8.RequiredBytes()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob"), make([]byte, 2*raw8.RequiredBytes()), 0o644))

	payload := func(interp frame.Interpretation) buffer.Payload {
		p, err := buffer.FromBytes(make([]byte, interp.RequiredBytes()), interp)
		require.NoError(t, err)
		return p
	}
	shown := &previews{}

	tests := []struct {
		node   string
		values param.Values
		in     buffer.Payload
	}{
		{"TestPattern", param.Values{"frames": param.Int(1)}, buffer.Empty()},
		{"RawDirectoryReader", param.Values{"file-pattern": param.String(filepath.Join(dir, "*.raw")), "width": param.Int(4), "height": param.Int(2), "bit-depth": param.Int(8)}, buffer.Empty()},
		{"RawBlobReader", param.Values{"path": param.String(filepath.Join(dir, "blob")), "width": param.Int(4), "height": param.Int(2), "bit-depth": param.Int(8)}, buffer.Empty()},
		{"BitDepthConverter", nil, payload(raw12)},
		{"Debayer", nil, payload(raw8)},
		{"CinemaDngWriter", param.Values{"path": param.String(filepath.Join(dir, "dng"))}, payload(raw12)},
		{"RawDirectoryWriter", param.Values{"path": param.String(filepath.Join(dir, "raw")), "compression": param.String("lz4")}, payload(raw12)},
		{"RawBlobWriter", param.Values{"path": param.String(filepath.Join(dir, "out.blob"))}, payload(raw12)},
		{"Preview", nil, payload(frame.Rgba{Width: 2, Height: 2})},
	}
	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			nctx := testContext()
			nctx.Preview = shown.show
			n := create(t, tt.node, tt.values, nctx)

			_, err := n.Process(context.Background(), tt.in, rail.Standalone(0))
			assert.NoError(t, err)
			if c, ok := n.(interface{ Close() error }); ok {
				assert.NoError(t, c.Close())
			}
		})
	}

	assert.FileExists(t, filepath.Join(dir, "dng", "000000.dng"))
	assert.FileExists(t, filepath.Join(dir, "raw", IndexFile))
	assert.FileExists(t, filepath.Join(dir, "out.blob.idx"))
	assert.Equal(t, []uint64{0}, shown.seqs)
}

func TestSources_EndOfStream(t *testing.T) {
	t.Parallel()

	n := create(t, "TestPattern", param.Values{"frames": param.Int(2), "bit-depth": param.Int(8)}, testContext())
	ctx := context.Background()
	for seq := range uint64(2) {
		out, err := n.Process(ctx, buffer.Empty(), rail.Standalone(seq))
		require.NoError(t, err)
		assert.Equal(t, "raw", out.Interpretation().Kind())
	}
	_, err := n.Process(ctx, buffer.Empty(), rail.Standalone(2))
	assert.ErrorIs(t, err, rail.ErrEndOfStream)
}

func TestRawDirectoryReader_Loop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i, b := range []byte{1, 2} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, string(rune('a'+i))+".raw"), []byte{b, b, b, b}, 0o644))
	}
	n := create(t, "RawDirectoryReader", param.Values{
		"file-pattern": param.String(filepath.Join(dir, "*.raw")),
		"width":        param.Int(2), "height": param.Int(2), "bit-depth": param.Int(8),
		"loop": param.Bool(true),
	}, testContext())

	var got []byte
	for seq := range uint64(5) {
		out, err := n.Process(context.Background(), buffer.Empty(), rail.Standalone(seq))
		require.NoError(t, err)
		got = append(got, out.Buffer().Bytes()[0])
	}
	assert.Equal(t, []byte{1, 2, 1, 2, 1}, got)
}
