package buffer

import (
	"fmt"

	"github.com/ib-77/framerail/pkg/frame"
)

// Frame is a payload viewed as a concrete interpretation.
type Frame[I frame.Interpretation] struct {
	Interp  I
	Storage Buffer
}

// Bytes returns the CPU bytes (nil for GPU frames).
func (f Frame[I]) Bytes() []byte { return f.Storage.Bytes() }

// As views p as interpretation I.
func As[I frame.Interpretation](p Payload) (Frame[I], error) {
	var zero Frame[I]
	if p.IsEmpty() {
		return zero, fmt.Errorf("%w: empty payload, want %T", ErrWrongFormat, zero.Interp)
	}
	interp, ok := p.interp.(I)
	if !ok {
		return zero, fmt.Errorf("%w: payload holds %s, want %T", ErrWrongFormat, p.interp.Kind(), zero.Interp)
	}
	return Frame[I]{Interp: interp, Storage: p.buf}, nil
}

// AsCPU views p as a CPU-resident I.
func AsCPU[I frame.Interpretation](p Payload) (Frame[I], error) {
	return asResident[I](p, CPU)
}

// AsGPU views p as a GPU-resident I.
func AsGPU[I frame.Interpretation](p Payload) (Frame[I], error) {
	return asResident[I](p, GPU)
}

func asResident[I frame.Interpretation](p Payload, want Residency) (Frame[I], error) {
	f, err := As[I](p)
	if err != nil {
		return f, err
	}
	if got := f.Storage.Residency(); got != want {
		return Frame[I]{}, fmt.Errorf("%w: %s payload is %s resident, want %s", ErrWrongFormat, p.interp.Kind(), got, want)
	}
	return f, nil
}
