package shader

import "errors"

var (
	ErrDescriptor       = errors.New("shader: malformed descriptor")
	ErrUnknownPart      = errors.New("shader: unknown part")
	ErrDuplicatePart    = errors.New("shader: part used twice")
	ErrUnknownUniform   = errors.New("shader: unknown uniform")
	ErrMissingUniform   = errors.New("shader: uniform has no default and is not set")
	ErrStage            = errors.New("shader: bad stage order")
	ErrUnsupportedFrame = errors.New("shader: unsupported frame")
)
