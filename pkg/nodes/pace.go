package nodes

import (
	"context"
	"time"

	"github.com/ib-77/framerail/pkg/param"
	"golang.org/x/time/rate"
)

// pacingParams adds the frame rate and pacing parameters shared by sources.
func pacingParams(s param.Schema) param.Schema {
	return s.
		With("fps", param.Optional(param.FloatRange{Min: 0.001, Max: 1000}, param.Float(24)).Describe("frame rate recorded in the frames")).
		With("realtime", param.Optional(param.BoolKind{}, param.Bool(false)).Describe("emit frames no faster than fps"))
}

// pacer spaces out frames emitted by a source: the limiter caps the rate,
// sleep adds a fixed pause after every frame.
type pacer struct {
	limiter *rate.Limiter
	sleep   time.Duration
}

func newPacer(r param.Resolved, sleepSeconds float64) *pacer {
	p := &pacer{sleep: time.Duration(sleepSeconds * float64(time.Second))}
	if r.Bool("realtime") {
		p.limiter = rate.NewLimiter(rate.Limit(r.Float("fps")), 1)
	}
	return p
}

func (p *pacer) wait(ctx context.Context) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if p.sleep <= 0 {
		return nil
	}
	t := time.NewTimer(p.sleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
