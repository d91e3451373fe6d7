package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/ib-77/framerail/pkg/nodes"
	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

var (
	// ErrEmpty is returned for pipelines without nodes.
	ErrEmpty = errors.New("config: pipeline has no nodes")

	// ErrNodeRef is returned when an override names no node of the pipeline.
	ErrNodeRef = errors.New("config: no such node in pipeline")
)

// Format selects the pipeline file syntax.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSONC Format = "jsonc"
)

// FormatOf picks the format from a file extension; anything that is not
// .json or .jsonc is read as YAML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSONC
	default:
		return FormatYAML
	}
}

// NodeSpec is one chain entry.
type NodeSpec struct {
	Node       string         `yaml:"node" json:"node"`
	Parameters map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Pipeline is a parsed pipeline file.
type Pipeline struct {
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	QueueDepth int        `yaml:"queue-depth,omitempty" json:"queue-depth,omitempty"`
	Drain      *bool      `yaml:"drain,omitempty" json:"drain,omitempty"`
	Nodes      []NodeSpec `yaml:"nodes" json:"nodes"`
}

// NodeError attributes a build failure to a chain position.
type NodeError struct {
	Index int
	Node  string
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("nodes[%d] (%s): %v", e.Index, e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// Load reads a pipeline file, choosing the format by extension.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Parse decodes a pipeline. Unknown fields are rejected in both formats.
func Parse(data []byte, format Format) (*Pipeline, error) {
	var p Pipeline
	switch format {
	case FormatJSONC:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("parse pipeline json: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse pipeline yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unknown format %q", format)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the pipeline shape. Node parameters are checked by Build.
func (p *Pipeline) Validate() error {
	if len(p.Nodes) == 0 {
		return ErrEmpty
	}
	if p.QueueDepth < 0 || p.QueueDepth > rail.MaxQueueDepth {
		return &param.ConfigError{Param: "queue-depth", Err: fmt.Errorf("%w: %d not in [0, %d]", param.ErrOutOfRange, p.QueueDepth, rail.MaxQueueDepth)}
	}
	for i, n := range p.Nodes {
		if n.Node == "" {
			return &NodeError{Index: i, Err: &param.ConfigError{Param: "node", Err: param.ErrMissing}}
		}
	}
	return nil
}

// Set overrides one parameter. ref is a node name (first match) or a chain
// index; text is parsed according to the node's schema.
func (p *Pipeline) Set(ref, key, text string) error {
	i, err := p.find(ref)
	if err != nil {
		return err
	}
	spec := &p.Nodes[i]
	schema, ok := nodes.List()[spec.Node]
	if !ok {
		return &NodeError{Index: i, Node: spec.Node, Err: &param.ConfigError{Node: spec.Node, Err: nodes.ErrUnknownNode}}
	}
	desc, ok := schema.Lookup(key)
	if !ok {
		return &NodeError{Index: i, Node: spec.Node, Err: &param.ConfigError{Node: spec.Node, Param: key, Err: param.ErrUnknownParameter}}
	}
	v, err := param.Parse(desc.Kind, text)
	if err != nil {
		return &NodeError{Index: i, Node: spec.Node, Err: &param.ConfigError{Node: spec.Node, Param: key, Err: err}}
	}
	if spec.Parameters == nil {
		spec.Parameters = make(map[string]any)
	}
	spec.Parameters[key] = v.Any()
	return nil
}

func (p *Pipeline) find(ref string) (int, error) {
	for i, n := range p.Nodes {
		if n.Node == ref {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(ref); err == nil && i >= 0 && i < len(p.Nodes) {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrNodeRef, ref)
}

// Build creates the chain. On failure every node already built is closed.
func (p *Pipeline) Build(nctx *nodes.Context) ([]rail.Node, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	built := make([]rail.Node, 0, len(p.Nodes))
	for i, spec := range p.Nodes {
		n, err := build(spec, nctx)
		if err != nil {
			return nil, errors.Join(&NodeError{Index: i, Node: spec.Node, Err: err}, CloseNodes(built))
		}
		built = append(built, n)
	}
	return built, nil
}

func build(spec NodeSpec, nctx *nodes.Context) (rail.Node, error) {
	schema, ok := nodes.List()[spec.Node]
	if !ok {
		return nodes.Create(spec.Node, nil, nctx)
	}
	values, err := param.FromAny(spec.Parameters, schema)
	if err != nil {
		return nil, param.ForNode(spec.Node, err)
	}
	return nodes.Create(spec.Node, values, nctx)
}

// CloseNodes closes every node that implements io.Closer.
func CloseNodes(built []rail.Node) error {
	var errs []error
	for _, n := range built {
		if c, ok := n.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Options returns the engine options the pipeline file sets.
func (p *Pipeline) Options() []rail.Option {
	var opts []rail.Option
	if p.QueueDepth > 0 {
		opts = append(opts, rail.WithQueueDepth(p.QueueDepth))
	}
	if p.Drain != nil {
		opts = append(opts, rail.WithDrain(*p.Drain))
	}
	return opts
}
