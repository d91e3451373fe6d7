package param

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing is returned when a mandatory parameter is absent.
	ErrMissing = errors.New("param: mandatory parameter missing")

	// ErrTypeMismatch is returned when a value does not match its declared kind.
	ErrTypeMismatch = errors.New("param: type mismatch")

	// ErrOutOfRange is returned when a numeric value is outside its declared range.
	ErrOutOfRange = errors.New("param: value out of range")

	// ErrUnknownParameter is returned for names the schema does not declare.
	ErrUnknownParameter = errors.New("param: unknown parameter")
)

// ConfigError reports a construction-time failure. Node and Param are
// filled in as far as they are known at the failure site.
type ConfigError struct {
	Node  string
	Param string
	Err   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Node != "" && e.Param != "":
		return fmt.Sprintf("config: node %s, parameter %s: %v", e.Node, e.Param, e.Err)
	case e.Node != "":
		return fmt.Sprintf("config: node %s: %v", e.Node, e.Err)
	case e.Param != "":
		return fmt.Sprintf("config: parameter %s: %v", e.Param, e.Err)
	default:
		return fmt.Sprintf("config: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ForNode attributes err to a node. ConfigErrors keep their parameter name;
// any other error is wrapped in a new ConfigError.
func ForNode(node string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		out := *ce
		if out.Node == "" {
			out.Node = node
		}
		return &out
	}
	return &ConfigError{Node: node, Err: err}
}
