package rail

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ib-77/framerail/pkg/buffer"
)

// Node is one pipeline stage. Process returns the payload to pass on, nil to
// end the chain for this frame, or an error (see Recoverable and Fatal).
// Side effects visible outside the pipeline must happen between
// tok.Acquire and tok.Release.
//
// The payload handed in belongs to the node: it either forwards it or
// releases it.
type Node interface {
	Process(ctx context.Context, in buffer.Payload, tok *Token) (*buffer.Payload, error)
}

// Named nodes report a stable name for logs and metrics.
type Named interface {
	Name() string
}

// Parallel nodes are safe for concurrent Process calls and ask for Lines
// workers sharing their inbound queue. Their output is still emitted in
// sequence order.
type Parallel interface {
	Lines() int
}

// NodeFunc adapts a function to Node.
type NodeFunc func(ctx context.Context, in buffer.Payload, tok *Token) (*buffer.Payload, error)

func (f NodeFunc) Process(ctx context.Context, in buffer.Payload, tok *Token) (*buffer.Payload, error) {
	return f(ctx, in, tok)
}

// Pass wraps p for returning from Process.
func Pass(p buffer.Payload) *buffer.Payload { return &p }

// NameOf returns the node's Name, or its type name.
func NameOf(n Node) string {
	if named, ok := n.(Named); ok {
		return named.Name()
	}
	t := reflect.TypeOf(n)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return fmt.Sprintf("%T", n)
	}
	return t.Name()
}

func linesOf(n Node) int {
	p, ok := n.(Parallel)
	if !ok {
		return 1
	}
	l := p.Lines()
	if l < 1 {
		return 1
	}
	if l > maxLines {
		return maxLines
	}
	return l
}
