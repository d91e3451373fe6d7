package shader

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed parts/*.wgsl
var partFS embed.FS

//go:embed prelude.wgsl
var prelude string

var (
	uniformRe     = regexp.MustCompile(`(?m)^[ \t]*//@[ \t]*uniform[ \t]+([a-z_][a-z0-9_]*)[ \t]*(?:=[ \t]*(\S+))?[ \t]*$`)
	implicationRe = regexp.MustCompile(`(?m)^[ \t]*//![ \t]*([A-Za-z_][\w-]*)[ \t]*(?:=[ \t]*(\S+))?[ \t]*$`)
)

// Uniform is a float parameter declared by a part.
type Uniform struct {
	Name       string
	Default    float32
	HasDefault bool
}

func (u Uniform) String() string {
	if !u.HasDefault {
		return u.Name
	}
	return fmt.Sprintf("%s: %s", u.Name, formatFloat(u.Default))
}

// Part describes one built-in shader part.
type Part struct {
	Name         string
	Uniforms     []Uniform
	Implications map[string]string
	source       string
}

// Stage returns the part's "stage" implication.
func (p Part) Stage() string { return p.Implications["stage"] }

func (p Part) String() string {
	us := make([]string, len(p.Uniforms))
	for i, u := range p.Uniforms {
		us[i] = u.String()
	}
	keys := make([]string, 0, len(p.Implications))
	for k := range p.Implications {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	imps := make([]string, len(keys))
	for i, k := range keys {
		if v := p.Implications[k]; v != "" {
			imps[i] = k + "=" + v
		} else {
			imps[i] = k
		}
	}
	return fmt.Sprintf("%s(%s) [%s]", p.Name, strings.Join(us, ", "), strings.Join(imps, ", "))
}

func (p Part) uniform(name string) (Uniform, bool) {
	for _, u := range p.Uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return Uniform{}, false
}

func parsePart(name, source string) (Part, error) {
	p := Part{Name: name, Implications: map[string]string{}, source: source}
	for _, m := range uniformRe.FindAllStringSubmatch(source, -1) {
		u := Uniform{Name: m[1]}
		if m[2] != "" {
			v, err := strconv.ParseFloat(m[2], 32)
			if err != nil {
				return Part{}, fmt.Errorf("shader: part %s: default of %s: %w", name, m[1], err)
			}
			u.Default, u.HasDefault = float32(v), true
		}
		p.Uniforms = append(p.Uniforms, u)
	}
	for _, m := range implicationRe.FindAllStringSubmatch(source, -1) {
		p.Implications[m[1]] = m[2]
	}
	return p, nil
}

var builtin = mustLoadParts()

func mustLoadParts() map[string]Part {
	files, err := fs.Glob(partFS, "parts/*.wgsl")
	if err != nil {
		panic(err)
	}
	parts := make(map[string]Part, len(files))
	for _, f := range files {
		src, err := partFS.ReadFile(f)
		if err != nil {
			panic(err)
		}
		name := strings.TrimSuffix(path.Base(f), ".wgsl")
		p, err := parsePart(name, string(src))
		if err != nil {
			panic(err)
		}
		parts[name] = p
	}
	return parts
}

// Available returns the built-in parts by name.
func Available() map[string]Part {
	out := make(map[string]Part, len(builtin))
	for k, v := range builtin {
		out[k] = v
	}
	return out
}

// Names returns the built-in part names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for k := range builtin {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func describeAvailable() string {
	names := Names()
	lines := make([]string, len(names))
	for i, n := range names {
		lines[i] = "\t* " + builtin[n].String()
	}
	return strings.Join(lines, "\n")
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
