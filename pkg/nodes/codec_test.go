package nodes

import (
	"bytes"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/framerail/pkg/frame"
)

func TestCompressFrame_RoundTrip(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("bayer"), 4096)
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			stored, used, err := compressFrame(data, tag)
			require.NoError(t, err)
			assert.Equal(t, tag, used)
			if tag != CompressionNone {
				assert.Less(t, len(stored), len(data))
			}

			back, err := decompressFrame(stored, used, len(data))
			require.NoError(t, err)
			assert.Equal(t, data, back)
		})
	}
}

func TestCompressFrame_IncompressibleStoredRaw(t *testing.T) {
	t.Parallel()

	data := make([]byte, 1024)
	rng := rand.New(rand.NewPCG(7, 7))
	for i := range data {
		data[i] = byte(rng.Uint32())
	}
	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		stored, used, err := compressFrame(data, tag)
		require.NoError(t, err)
		assert.Equal(t, CompressionNone, used, tag.String())
		assert.Equal(t, data, stored)
	}
}

func TestDecompressFrame_SizeMismatch(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{1}, 512)
	stored, used, err := compressFrame(data, CompressionZstd)
	require.NoError(t, err)

	_, err = decompressFrame(stored, used, 256)
	assert.Error(t, err)
	_, err = decompressFrame(data, CompressionNone, 511)
	assert.Error(t, err)

	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		assert.NotPanics(t, func() {
			_, err = decompressFrame(stored, tag, -5)
		}, tag.String())
		assert.Error(t, err, tag.String())
	}
}

func TestParseCompressionTag(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"none", "lz4", "zstd"} {
		tag, err := ParseCompressionTag(name)
		require.NoError(t, err)
		assert.Equal(t, name, tag.String())
		assert.Equal(t, tag, compressionFromExt(tag.Ext()))
	}
	_, err := ParseCompressionTag("gzip")
	assert.Error(t, err)
}

func TestIndex_AppendAndRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "frames.idx")
	w, err := createIndex(path)
	require.NoError(t, err)

	raw := frame.Raw{Width: 4, Height: 2, BitDepth: 12, CFA: frame.RGGB, FPS: 25}
	want := []IndexEntry{
		{Seq: 0, Offset: 0, Length: 12, Size: 12, Compression: "none", Blake3: checksum([]byte("a")), Frame: infoOf(raw), Run: "r"},
		{Seq: 1, Offset: 12, Length: 9, Size: 12, Compression: "lz4", Blake3: checksum([]byte("b")), Frame: infoOf(raw), Run: "r"},
	}
	for _, e := range want {
		require.NoError(t, w.Append(e))
	}
	require.NoError(t, w.Close())

	got, err := ReadIndex(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}

	interp, err := got[1].Frame.Interpretation()
	require.NoError(t, err)
	assert.Equal(t, raw, interp)

	_, err = createIndex(path)
	assert.Error(t, err, "indices are never overwritten")
}

func TestFrameInfo_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := FrameInfo{Kind: "yuv"}.Interpretation()
	assert.Error(t, err)

	interp, err := infoOf(frame.Rgba{Width: 2, Height: 2, FPS: 24}).Interpretation()
	require.NoError(t, err)
	assert.Equal(t, frame.Rgba{Width: 2, Height: 2, FPS: 24}, interp)
}

func TestIndexEntry_Check(t *testing.T) {
	t.Parallel()

	raw := frame.Raw{Width: 4, Height: 2, BitDepth: 12, CFA: frame.RGGB, FPS: 24}
	valid := IndexEntry{Offset: 10, Length: 8, Size: raw.RequiredBytes(), Compression: "lz4", Frame: infoOf(raw)}

	interp, err := valid.check()
	require.NoError(t, err)
	assert.Equal(t, raw, interp)

	tests := []struct {
		name   string
		modify func(e *IndexEntry)
	}{
		{"negative offset", func(e *IndexEntry) { e.Offset = -1 }},
		{"negative length", func(e *IndexEntry) { e.Length = -1 }},
		{"negative size", func(e *IndexEntry) { e.Size = -5 }},
		{"size larger than frame", func(e *IndexEntry) { e.Size = 1 << 40 }},
		{"length larger than size", func(e *IndexEntry) { e.Length = e.Size + 1 }},
		{"zero width", func(e *IndexEntry) { e.Frame.Width = 0 }},
		{"huge height", func(e *IndexEntry) { e.Frame.Height = maxDimension + 1 }},
		{"bad bit depth", func(e *IndexEntry) { e.Frame.BitDepth = 10 }},
		{"odd 12-bit pixel count", func(e *IndexEntry) { e.Frame.Width, e.Frame.Height = 3, 3; e.Size = 13 }},
		{"unknown kind", func(e *IndexEntry) { e.Frame.Kind = "yuv" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := valid
			tt.modify(&e)
			_, err := e.check()
			assert.ErrorIs(t, err, ErrBadRecord)
		})
	}
}
