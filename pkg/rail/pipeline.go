package rail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ib-77/framerail/pkg/buffer"
)

// Pipeline is a running chain of nodes.
type Pipeline struct {
	runID   uuid.UUID
	stages  []*stage
	head    chan wagon
	drain   bool
	log     *slog.Logger
	metrics *metrics
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	admitMu  sync.Mutex
	next     atomic.Uint64
	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  atomic.Bool

	waitOnce sync.Once
	waitErr  error
}

// Start wires nodes into a chain and launches their workers. The context
// bounds the whole run: cancelling it aborts every worker.
func Start(ctx context.Context, nodes []Node, opts ...Option) (*Pipeline, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("%w at index %d", ErrNilNode, i)
		}
	}

	o := resolveOptions(ctx, opts)
	if o.depth < 1 || o.depth > MaxQueueDepth {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrQueueDepth, o.depth, MaxQueueDepth)
	}
	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("rail: register metrics: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(runCtx)

	p := &Pipeline{
		runID:   o.runID,
		drain:   o.drain,
		log:     o.logger.With("run", o.runID.String()),
		metrics: m,
		started: time.Now(),
		ctx:     gctx,
		cancel:  cancel,
		group:   group,
		stopCh:  make(chan struct{}),
	}

	queues := make([]chan wagon, len(nodes))
	for i := range queues {
		queues[i] = make(chan wagon, o.depth)
	}
	p.head = queues[0]

	for i, n := range nodes {
		s := &stage{
			index:  i,
			name:   NameOf(n),
			node:   n,
			lines:  linesOf(n),
			in:     queues[i],
			commit: newGate(),
			emit:   newGate(),
		}
		s.label = fmt.Sprintf("%d:%s", i, s.name)
		if i+1 < len(nodes) {
			s.out = queues[i+1]
		}
		p.stages = append(p.stages, s)
	}

	for _, s := range p.stages {
		p.launch(gctx, s)
	}

	p.log.Info("pipeline started", "stages", len(p.stages), "queue_depth", o.depth, "drain", o.drain)
	return p, nil
}

func (p *Pipeline) launch(ctx context.Context, s *stage) {
	wg := &sync.WaitGroup{}
	for range s.lines {
		wg.Add(1)
		p.group.Go(func() error {
			defer wg.Done()
			return p.locomotive(ctx, s)
		})
	}

	p.group.Go(func() error {
		wg.Wait()
		if s.out != nil {
			close(s.out)
		}
		return nil
	})
}

// RunID identifies this run; every token carries it.
func (p *Pipeline) RunID() uuid.UUID { return p.runID }

// Admit assigns the next sequence number to payload and queues it for the
// first node, blocking while the queue is full. On error the payload stays
// with the caller.
func (p *Pipeline) Admit(ctx context.Context, payload buffer.Payload) (uint64, error) {
	p.admitMu.Lock()
	defer p.admitMu.Unlock()

	if p.stopped.Load() || p.ctx.Err() != nil {
		return 0, ErrStopped
	}

	w := wagon{seq: p.next.Load(), payload: payload, admitted: time.Now()}
	select {
	case p.head <- w:
		p.next.Add(1)
		return w.seq, nil
	case <-p.stopCh:
		return 0, ErrStopped
	case <-p.ctx.Done():
		return 0, ErrStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Stop closes admission. Queued frames are processed or discarded according
// to the drain policy and every worker exits after its current frame. Stop
// does not wait; call Wait.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		close(p.stopCh)

		p.admitMu.Lock()
		close(p.head)
		p.admitMu.Unlock()

		p.log.Debug("admission closed", "admitted", p.next.Load(), "drain", p.drain)
	})
}

// Wait blocks until every worker has exited, closes nodes implementing
// io.Closer and returns the first fatal error. Without Stop, a fatal error
// or cancellation, Wait blocks forever.
func (p *Pipeline) Wait() error {
	p.waitOnce.Do(func() {
		err := p.group.Wait()
		p.cancel()

		if cerr := p.closeNodes(); cerr != nil {
			if err == nil {
				err = cerr
			} else {
				p.log.Warn("closing nodes failed", "error", cerr)
			}
		}
		p.waitErr = err

		if err != nil {
			p.log.Error("pipeline finished with error", "error", err, "elapsed", time.Since(p.started))
			return
		}
		p.log.Info("pipeline finished", "frames", p.Admitted(), "elapsed", time.Since(p.started))
	})
	return p.waitErr
}

func (p *Pipeline) closeNodes() error {
	var errs []error
	for _, s := range p.stages {
		c, ok := s.node.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("rail: close %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Admitted returns the number of frames admitted so far.
func (p *Pipeline) Admitted() uint64 { return p.next.Load() }

// Execute runs nodes as a source-driven pipeline: empty payloads are admitted
// until the first node returns ErrEndOfStream, a fatal error occurs or ctx
// ends. Cancelling ctx stops admission and drains what is in flight; Execute
// then returns ctx.Err() unless a fatal error came first.
func Execute(ctx context.Context, nodes []Node, opts ...Option) error {
	p, err := Start(context.WithoutCancel(ctx), nodes, opts...)
	if err != nil {
		return err
	}

	for {
		if _, err := p.Admit(ctx, buffer.Empty()); err != nil {
			break
		}
	}
	p.Stop()

	if err := p.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
