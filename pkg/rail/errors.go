package rail

import (
	"errors"
	"fmt"

	"github.com/ib-77/framerail/pkg/buffer"
)

var (
	// ErrEndOfStream is returned by a source node when it has no more frames.
	// It ends admission gracefully and is never reported as a failure.
	ErrEndOfStream = errors.New("rail: end of stream")

	// ErrStopped is returned by Admit once the pipeline stopped accepting frames.
	ErrStopped = errors.New("rail: pipeline stopped")

	ErrNoNodes      = errors.New("rail: pipeline has no nodes")
	ErrNilNode      = errors.New("rail: nil node")
	ErrQueueDepth   = errors.New("rail: queue depth out of range")
	ErrTokenHeld    = errors.New("rail: commit rights already held")
	ErrTokenRetired = errors.New("rail: token already retired")
)

// Severity classifies stage errors.
type Severity uint8

const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

func (s Severity) String() string {
	if s == SeverityRecoverable {
		return "recoverable"
	}
	return "fatal"
}

type severityError struct {
	severity Severity
	err      error
}

func (e *severityError) Error() string { return e.err.Error() }
func (e *severityError) Unwrap() error { return e.err }

// Recoverable marks err as frame-local: the frame is replaced by an empty
// payload and the run continues.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &severityError{severity: SeverityRecoverable, err: err}
}

// Fatal marks err as fatal to the whole run. Unmarked errors are fatal too.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &severityError{severity: SeverityFatal, err: err}
}

// SeverityOf reports how the engine treats err. The outermost explicit
// marker wins; transfer failures default to recoverable.
func SeverityOf(err error) Severity {
	var se *severityError
	if errors.As(err, &se) {
		return se.severity
	}
	var te *buffer.TransferError
	if errors.As(err, &te) {
		return SeverityRecoverable
	}
	return SeverityFatal
}

// IsRecoverable is SeverityOf(err) == SeverityRecoverable.
func IsRecoverable(err error) bool {
	return err != nil && SeverityOf(err) == SeverityRecoverable
}

// StageError is what Wait reports for the first fatal failure.
type StageError struct {
	Stage    string
	Index    int
	Seq      uint64
	Severity Severity
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("rail: stage %d (%s), frame %d: %s: %v", e.Index, e.Stage, e.Seq, e.Severity, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
