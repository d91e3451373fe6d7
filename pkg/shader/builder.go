package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
)

var (
	partRe = regexp.MustCompile(`([a-z_][a-z0-9_]*)\s*\(([^()]*)\)`)
	argRe  = regexp.MustCompile(`^\s*([a-z_][a-z0-9_]*)\s*:\s*(\S+)\s*$`)
)

const demosaicStage = "demosaic"

type instance struct {
	part   Part
	values map[string]float32
}

// Builder is a parsed, validated shader descriptor.
type Builder struct {
	descr string
	parts []instance
}

// Parse validates a descriptor such as "debayer() gain(factor: 1.5)".
func Parse(descr string) (*Builder, error) {
	matches := partRe.FindAllStringSubmatchIndex(descr, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q names no parts", ErrDescriptor, descr)
	}

	var rest strings.Builder
	last := 0
	for _, m := range matches {
		rest.WriteString(descr[last:m[0]])
		last = m[1]
	}
	rest.WriteString(descr[last:])
	if junk := strings.TrimSpace(rest.String()); junk != "" {
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrDescriptor, junk, descr)
	}

	b := &Builder{descr: strings.TrimSpace(descr)}
	seen := map[string]bool{}
	for _, m := range matches {
		name, args := descr[m[2]:m[3]], descr[m[4]:m[5]]

		part, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("%w %q, built-in parts are:\n%s", ErrUnknownPart, name, describeAvailable())
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePart, name)
		}
		seen[name] = true

		set, err := parseArgs(name, args)
		if err != nil {
			return nil, err
		}
		values, err := resolve(part, set)
		if err != nil {
			return nil, err
		}
		b.parts = append(b.parts, instance{part: part, values: values})
	}

	if st := b.parts[0].part.Stage(); st != demosaicStage {
		return nil, fmt.Errorf("%w: first part %s must have stage %s, has %q", ErrStage, b.parts[0].part.Name, demosaicStage, st)
	}
	for _, in := range b.parts[1:] {
		if in.part.Stage() == demosaicStage {
			return nil, fmt.Errorf("%w: %s can only be the first part", ErrStage, in.part.Name)
		}
	}
	return b, nil
}

func parseArgs(part, args string) (map[string]float32, error) {
	set := map[string]float32{}
	if strings.TrimSpace(args) == "" {
		return set, nil
	}
	for _, item := range strings.Split(args, ",") {
		m := argRe.FindStringSubmatch(item)
		if m == nil {
			return nil, fmt.Errorf("%w: part %s: argument %q is not \"name: value\"", ErrDescriptor, part, strings.TrimSpace(item))
		}
		v, err := strconv.ParseFloat(m[2], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: part %s: %s: %q is not a number", ErrDescriptor, part, m[1], m[2])
		}
		set[m[1]] = float32(v)
	}
	return set, nil
}

func resolve(part Part, set map[string]float32) (map[string]float32, error) {
	for name := range set {
		if _, ok := part.uniform(name); !ok {
			return nil, fmt.Errorf("%w %q for part %s", ErrUnknownUniform, name, part.Name)
		}
	}
	values := make(map[string]float32, len(part.Uniforms))
	for _, u := range part.Uniforms {
		switch v, ok := set[u.Name]; {
		case ok:
			values[u.Name] = v
		case u.HasDefault:
			values[u.Name] = u.Default
		default:
			return nil, fmt.Errorf("%w: %s of part %s", ErrMissingUniform, u.Name, part.Name)
		}
	}
	return values, nil
}

func (b *Builder) String() string { return b.descr }

// Parts returns the part names in descriptor order.
func (b *Builder) Parts() []string {
	names := make([]string, len(b.parts))
	for i, in := range b.parts {
		names[i] = in.part.Name
	}
	return names
}

// Uniforms returns the resolved uniform values; later parts win on clashes.
func (b *Builder) Uniforms() map[string]float32 {
	out := map[string]float32{}
	for _, in := range b.parts {
		for k, v := range in.values {
			out[k] = v
		}
	}
	return out
}

// Implications merges the parts' implications; later parts win.
func (b *Builder) Implications() map[string]string {
	out := map[string]string{}
	for _, in := range b.parts {
		for k, v := range in.part.Implications {
			out[k] = v
		}
	}
	return out
}

// layout lists the float uniforms in Params order.
func (b *Builder) layout() []string {
	u := b.Uniforms()
	names := make([]string, 0, len(u))
	for k := range u {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Source returns the complete WGSL compute shader.
func (b *Builder) Source() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s\n\n", b.descr)

	sb.WriteString("struct Params {\n")
	for _, f := range headerFields {
		fmt.Fprintf(&sb, "    %s: u32,\n", f)
	}
	for _, name := range b.layout() {
		fmt.Fprintf(&sb, "    %s: f32,\n", name)
	}
	sb.WriteString("}\n\n")
	sb.WriteString(prelude)

	for _, in := range b.parts {
		fmt.Fprintf(&sb, "\n// ---- %s ----\n", in.part.Name)
		sb.WriteString(in.part.source)
	}

	fmt.Fprintf(&sb, "\n@compute @workgroup_size(%d, %d, 1)\n", WorkgroupSize, WorkgroupSize)
	sb.WriteString("fn main(@builtin(global_invocation_id) id: vec3<u32>) {\n")
	sb.WriteString("    if (id.x >= params.width || id.y >= params.height) {\n        return;\n    }\n")
	fmt.Fprintf(&sb, "    var c = part_%s(i32(id.x), i32(id.y));\n", b.parts[0].part.Name)
	for _, in := range b.parts[1:] {
		fmt.Fprintf(&sb, "    c = part_%s(c);\n", in.part.Name)
	}
	sb.WriteString("    let px = vec3<u32>(floor(clamp(c, vec3<f32>(0.0), vec3<f32>(1.0)) * 255.0 + vec3<f32>(0.5)));\n")
	sb.WriteString("    rgba_words[id.y * params.width + id.x] = px.x | (px.y << 8u) | (px.z << 16u) | (255u << 24u);\n")
	sb.WriteString("}\n")
	return sb.String()
}

// Build compiles the shader to SPIR-V.
func (b *Builder) Build() (*Program, error) {
	spirv, err := naga.Compile(b.Source())
	if err != nil {
		return nil, fmt.Errorf("shader: compile %q: %w", b.descr, err)
	}
	return &Program{builder: b, spirv: spirv, layout: b.layout()}, nil
}
