package nodes

import (
	"context"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/gpu"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext() *Context {
	return &Context{Device: gpu.NewHostDevice(64 << 20), Logger: quietLogger()}
}

func create(t *testing.T, name string, values param.Values, nctx *Context) rail.Node {
	t.Helper()
	n, err := Create(name, values, nctx)
	if err != nil && strings.Contains(err.Error(), "shader: compile") {
		if s := err.Error(); strings.Contains(s, "not yet implemented") || strings.Contains(s, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
	}
	require.NoError(t, err)
	return n
}

func execute(t *testing.T, chain ...rail.Node) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return rail.Execute(ctx, chain, rail.WithLogger(quietLogger()))
}

// collector is a terminal node that keeps committed frames in order.
type collector struct {
	mu      sync.Mutex
	seqs    []uint64
	frames  [][]byte
	empties int
}

func (c *collector) Name() string { return "collector" }

func (c *collector) Process(ctx context.Context, in buffer.Payload, tok *rail.Token) (*buffer.Payload, error) {
	if in.IsEmpty() {
		c.mu.Lock()
		c.empties++
		c.mu.Unlock()
		return nil, nil
	}
	cpu, err := materialize(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := tok.Acquire(ctx); err != nil {
		return nil, err
	}
	defer tok.Release()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seqs = append(c.seqs, tok.Seq())
	c.frames = append(c.frames, append([]byte(nil), cpu.Buffer().Bytes()...))
	return nil, nil
}

// previews records preview callbacks.
type previews struct {
	mu   sync.Mutex
	seqs []uint64
	imgs []*image.RGBA
}

func (p *previews) show(seq uint64, img *image.RGBA) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seqs = append(p.seqs, seq)
	p.imgs = append(p.imgs, img)
}

// writeOrder is a slog handler that records the seq of every "frame written"
// record. Writers log it while they hold commit rights.
type writeOrder struct {
	mu   sync.Mutex
	seqs []uint64
}

func (w *writeOrder) Enabled(context.Context, slog.Level) bool { return true }

func (w *writeOrder) Handle(_ context.Context, r slog.Record) error {
	if r.Message != "frame written" {
		return nil
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "seq" {
			return true
		}
		w.mu.Lock()
		w.seqs = append(w.seqs, a.Value.Uint64())
		w.mu.Unlock()
		return false
	})
	return nil
}

func (w *writeOrder) WithAttrs([]slog.Attr) slog.Handler { return w }
func (w *writeOrder) WithGroup(string) slog.Handler      { return w }
