package rail

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ib-77/framerail/pkg/buffer"
)

// wagon is one frame travelling between stages.
type wagon struct {
	seq      uint64
	payload  buffer.Payload
	admitted time.Time
}

type stage struct {
	index int
	name  string
	label string
	node  Node
	lines int

	in  <-chan wagon
	out chan<- wagon

	commit *gate
	emit   *gate

	processed   atomic.Uint64
	recoverable atomic.Uint64
	terminated  atomic.Uint64
	discarded   atomic.Uint64
	inFlight    atomic.Int64
}

// locomotive drives one line of a stage until its inbound queue closes or
// the run is cancelled.
func (p *Pipeline) locomotive(ctx context.Context, s *stage) error {
	for {
		select {
		case <-ctx.Done():
			p.abandon(s)
			return ctx.Err()
		case w, ok := <-s.in:
			if !ok {
				return nil
			}
			if p.discarding() {
				p.discard(s, w)
				continue
			}
			if err := p.haul(ctx, s, w); err != nil {
				return err
			}
		}
	}
}

func (p *Pipeline) haul(ctx context.Context, s *stage, w wagon) error {
	tok := newToken(w.seq, p.runID, s.name, s.commit)

	s.inFlight.Add(1)
	start := time.Now()
	out, err := s.node.Process(ctx, w.payload, tok)
	elapsed := time.Since(start)
	s.inFlight.Add(-1)
	p.metrics.observe(s.label, elapsed)

	if tok.settle() {
		p.log.Warn("commit rights not released, forcing release", "stage", s.name, "seq", w.seq)
	}

	switch {
	case err != nil && ctx.Err() != nil:
		release(out)
		return ctx.Err()

	case errors.Is(err, ErrEndOfStream):
		release(out)
		s.terminated.Add(1)
		p.metrics.count(s.label, outcomeTerminated)
		p.terminate(s, w.seq)
		p.log.Debug("end of stream", "stage", s.name, "seq", w.seq)
		p.Stop()
		return nil

	case err != nil && IsRecoverable(err):
		release(out)
		s.recoverable.Add(1)
		p.metrics.count(s.label, outcomeRecoverable)
		p.log.Warn("frame replaced by empty payload", "stage", s.name, "seq", w.seq, "error", err)
		empty := buffer.Empty()
		out = &empty

	case err != nil:
		release(out)
		p.metrics.count(s.label, outcomeFatal)
		p.log.Error("stage failed", "stage", s.name, "seq", w.seq, "error", err)
		return &StageError{Stage: s.name, Index: s.index, Seq: w.seq, Severity: SeverityFatal, Err: err}

	case out == nil:
		s.terminated.Add(1)
		p.metrics.count(s.label, outcomeTerminated)
		p.terminate(s, w.seq)
		p.log.Debug("frame done", "stage", s.name, "seq", w.seq, "elapsed", elapsed, "latency", time.Since(w.admitted))
		return nil

	default:
		s.processed.Add(1)
		p.metrics.count(s.label, outcomeProcessed)
		p.log.Debug("frame processed", "stage", s.name, "seq", w.seq, "elapsed", elapsed)
	}

	return p.forward(ctx, s, wagon{seq: w.seq, payload: *out, admitted: w.admitted})
}

// forward pushes w downstream once every earlier frame has left this stage.
func (p *Pipeline) forward(ctx context.Context, s *stage, w wagon) error {
	if err := s.emit.wait(ctx, w.seq); err != nil {
		w.payload.Release()
		return err
	}
	defer s.emit.retire(w.seq)

	if s.out == nil {
		w.payload.Release()
		return nil
	}
	select {
	case s.out <- w:
		return nil
	case <-ctx.Done():
		w.payload.Release()
		return ctx.Err()
	}
}

// terminate retires a frame that ended its chain at s.
func (p *Pipeline) terminate(s *stage, seq uint64) {
	s.emit.retire(seq)
	for _, later := range p.stages[s.index+1:] {
		later.commit.retire(seq)
		later.emit.retire(seq)
	}
}

// discard drops a queued frame during a non-draining stop.
func (p *Pipeline) discard(s *stage, w wagon) {
	w.payload.Release()
	s.discarded.Add(1)
	p.metrics.count(s.label, outcomeDiscarded)
	for _, st := range p.stages[s.index:] {
		st.commit.retire(w.seq)
		st.emit.retire(w.seq)
	}
}

// abandon releases whatever is still queued for s after cancellation.
func (p *Pipeline) abandon(s *stage) {
	for {
		select {
		case w, ok := <-s.in:
			if !ok {
				return
			}
			w.payload.Release()
		default:
			return
		}
	}
}

func (p *Pipeline) discarding() bool {
	return !p.drain && p.stopped.Load()
}

func release(p *buffer.Payload) {
	if p != nil {
		p.Release()
	}
}
