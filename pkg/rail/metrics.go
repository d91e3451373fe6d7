package rail

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeProcessed   = "processed"
	outcomeRecoverable = "recoverable"
	outcomeTerminated  = "terminated"
	outcomeDiscarded   = "discarded"
	outcomeFatal       = "fatal"
)

type metrics struct {
	frames  *prometheus.CounterVec
	seconds *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	frames := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framerail",
		Name:      "frames_total",
		Help:      "Frames handled per stage, by outcome.",
	}, []string{"stage", "outcome"})
	seconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "framerail",
		Name:      "stage_seconds",
		Help:      "Time spent in a stage's Process call.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"stage"})

	if reg == nil {
		return &metrics{frames: frames, seconds: seconds}, nil
	}

	var err error
	if frames, err = register(reg, frames); err != nil {
		return nil, err
	}
	if seconds, err = register(reg, seconds); err != nil {
		return nil, err
	}
	return &metrics{frames: frames, seconds: seconds}, nil
}

// register reuses collectors left by an earlier run on the same registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) count(stage, outcome string) {
	m.frames.WithLabelValues(stage, outcome).Inc()
}

func (m *metrics) observe(stage string, d time.Duration) {
	m.seconds.WithLabelValues(stage).Observe(d.Seconds())
}
