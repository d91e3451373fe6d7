package rail

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type tokenState uint8

const (
	tokenIdle tokenState = iota
	tokenHeld
	tokenReleased
)

// Token is the ordering capability handed to a node together with one frame.
// Seq is always available; Acquire grants exclusive commit rights for this
// frame at the current stage once every earlier frame has released them.
//
// A token that is never acquired is retired automatically when Process
// returns. A token acquired but not released is force-released at the same
// point and the engine logs a warning.
type Token struct {
	seq   uint64
	run   uuid.UUID
	stage string
	gate  *gate

	mu    sync.Mutex
	state tokenState
}

func newToken(seq uint64, run uuid.UUID, stage string, g *gate) *Token {
	return &Token{seq: seq, run: run, stage: stage, gate: g}
}

// Standalone returns a token for driving a node outside a pipeline, e.g.
// from a one-shot tool. Commit rights are granted without waiting.
func Standalone(seq uint64) *Token {
	g := newGate()
	g.next = seq
	return newToken(seq, uuid.New(), "standalone", g)
}

// Seq returns the frame's sequence number within the run.
func (t *Token) Seq() uint64 { return t.seq }

// RunID identifies the pipeline run that minted the token.
func (t *Token) RunID() uuid.UUID { return t.run }

// Acquire blocks until all earlier frames have released commit rights at this
// stage, or ctx ends.
func (t *Token) Acquire(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case tokenHeld:
		t.mu.Unlock()
		return fmt.Errorf("%w: frame %d at %s", ErrTokenHeld, t.seq, t.stage)
	case tokenReleased:
		t.mu.Unlock()
		return fmt.Errorf("%w: frame %d at %s", ErrTokenRetired, t.seq, t.stage)
	}
	t.mu.Unlock()

	if err := t.gate.wait(ctx, t.seq); err != nil {
		return err
	}

	t.mu.Lock()
	t.state = tokenHeld
	t.mu.Unlock()
	return nil
}

// Release hands commit rights to the next frame. It is a no-op unless the
// token is held.
func (t *Token) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != tokenHeld {
		return
	}
	t.state = tokenReleased
	t.gate.retire(t.seq)
}

// Held reports whether commit rights are currently held.
func (t *Token) Held() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == tokenHeld
}

// settle retires the token after Process returned and reports whether it
// had to be force-released.
func (t *Token) settle() (forced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	forced = t.state == tokenHeld
	t.state = tokenReleased
	t.gate.retire(t.seq)
	return forced
}

func (t *Token) String() string {
	return fmt.Sprintf("Token{seq: %d, stage: %s}", t.seq, t.stage)
}
