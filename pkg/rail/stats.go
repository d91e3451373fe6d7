package rail

import "github.com/google/uuid"

// StageStats is a point-in-time view of one stage.
type StageStats struct {
	Index       int
	Name        string
	Lines       int
	Processed   uint64
	Recoverable uint64
	Terminated  uint64
	Discarded   uint64
	InFlight    int64
	// Committed is the lowest sequence number not yet retired at this stage.
	Committed uint64
}

type Stats struct {
	RunID    uuid.UUID
	Admitted uint64
	Stages   []StageStats
}

func (p *Pipeline) Stats() Stats {
	st := Stats{RunID: p.runID, Admitted: p.Admitted(), Stages: make([]StageStats, 0, len(p.stages))}
	for _, s := range p.stages {
		st.Stages = append(st.Stages, StageStats{
			Index:       s.index,
			Name:        s.name,
			Lines:       s.lines,
			Processed:   s.processed.Load(),
			Recoverable: s.recoverable.Load(),
			Terminated:  s.terminated.Load(),
			Discarded:   s.discarded.Load(),
			InFlight:    s.inFlight.Load(),
			Committed:   s.commit.position(),
		})
	}
	return st
}
