package nodes

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ib-77/framerail/pkg/param"
	"github.com/ib-77/framerail/pkg/rail"
)

// ErrUnknownNode is returned by Create for names that are not registered.
var ErrUnknownNode = errors.New("nodes: unknown node")

type constructor func(r param.Resolved, ctx *Context) (rail.Node, error)

// Descriptor is a registry entry.
type Descriptor struct {
	Name   string
	Doc    string
	Schema param.Schema
	create constructor
}

var registry = index(
	testPatternNode,
	rawDirectoryReaderNode,
	rawBlobReaderNode,
	bitDepthConverterNode,
	debayerNode,
	cinemaDngWriterNode,
	rawDirectoryWriterNode,
	rawBlobWriterNode,
	previewNode,
)

func index(descriptors ...Descriptor) map[string]Descriptor {
	out := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		if _, dup := out[d.Name]; dup {
			panic("nodes: duplicate registration of " + d.Name)
		}
		out[d.Name] = d
	}
	return out
}

// List returns every registered node name with its parameter schema.
func List() map[string]param.Schema {
	out := make(map[string]param.Schema, len(registry))
	for name, d := range registry {
		out[name] = d.Schema
	}
	return out
}

// Names returns the registered node names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// Describe returns the registry entry for name.
func Describe(name string) (Descriptor, bool) {
	d, ok := registry[name]
	return d, ok
}

// Create validates values against the node's schema and constructs it. A
// nil ctx gets NewContext. Every failure is a *param.ConfigError.
func Create(name string, values param.Values, ctx *Context) (rail.Node, error) {
	d, ok := registry[name]
	if !ok {
		return nil, &param.ConfigError{
			Node: name,
			Err:  fmt.Errorf("%w (available: %s)", ErrUnknownNode, strings.Join(Names(), ", ")),
		}
	}
	resolved, err := d.Schema.Validate(values)
	if err != nil {
		return nil, param.ForNode(name, err)
	}
	if ctx == nil {
		ctx = NewContext()
	}
	n, err := d.create(resolved, ctx)
	if err != nil {
		return nil, param.ForNode(name, err)
	}
	return n, nil
}

// cfaParams adds the Bayer phase parameters shared by raw sources.
func cfaParams(s param.Schema) param.Schema {
	return s.
		With("first-red-x", param.Optional(param.BoolKind{}, param.Bool(true)).Describe("red sits on even rows")).
		With("first-red-y", param.Optional(param.BoolKind{}, param.Bool(true)).Describe("red sits on even columns"))
}

func bitDepthOf(r param.Resolved) (int, error) {
	d := r.Int("bit-depth")
	if !validBitDepth(d) {
		return 0, &param.ConfigError{Param: "bit-depth", Err: fmt.Errorf("%w: %d (want 8, 12 or 16)", param.ErrOutOfRange, d)}
	}
	return int(d), nil
}
