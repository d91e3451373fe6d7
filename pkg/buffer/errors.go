package buffer

import (
	"errors"
	"fmt"
)

// ErrWrongFormat is returned when a payload is viewed as an interpretation
// or residency it does not hold. It always indicates a misconfigured graph.
var ErrWrongFormat = errors.New("buffer: wrong format")

// TransferError reports a failed CPU<->GPU materialization. Transfers fail
// on resource exhaustion or context loss and only affect the current frame.
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("buffer: %s failed: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
