// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package pathtmpl compiles route path templates into matchable segment sequences.
//
// A template is a "/" delimited string where each non-empty segment is one of:
//   - a literal, matched verbatim (case-sensitive, no percent-decoding)
//   - a parameter, written {name}, matching exactly one path segment
//   - a catch-all, written {name..}, matching one or more trailing segments
//
// Example:
//
//	t := pathtmpl.MustCompile("/api/files/{path..}")
//	params, ok := t.Match(pathtmpl.Split("/api/files/a/b/c"))
//	// params["path"] == "a/b/c", ok == true
package pathtmpl

import (
	"fmt"
	"strings"
)

// CatchAllSuffix marks a parameter segment as a catch-all when it ends the
// parameter name, e.g. {path..}.
const CatchAllSuffix = ".."

// Segment is a single compiled component of a [Template].
// It is one of [Literal], [Param] or [CatchAll].
type Segment interface {
	segment() string
}

// Literal matches a path segment verbatim.
type Literal string

func (l Literal) segment() string {
	return string(l)
}

// Param matches exactly one path segment and binds it to its name.
type Param string

func (p Param) segment() string {
	return "{" + string(p) + "}"
}

// CatchAll matches one or more trailing path segments and binds
// them, joined with "/", to its name.
type CatchAll string

func (c CatchAll) segment() string {
	return "{" + string(c) + CatchAllSuffix + "}"
}

// InvalidTemplateError is returned by [Compile] when a path template
// does not follow the template grammar.
type InvalidTemplateError struct {
	Path   string
	Reason string
}

func (e InvalidTemplateError) Error() string {
	return fmt.Sprintf("invalid path template %q: %s", e.Path, e.Reason)
}

// Template is an immutable, ordered sequence of [Segment]s.
// The zero value is the root template "/".
type Template struct {
	segments []Segment
}

// Compile parses path into a [Template].
//
// Leading, trailing and repeated slashes are ignored. A catch-all must be
// the final segment and parameter names must be non-empty and unique.
func Compile(path string) (Template, error) {
	parts := Split(path)
	segments := make([]Segment, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for i, part := range parts {
		seg, err := compileSegment(path, part)
		if err != nil {
			return Template{}, err
		}

		switch s := seg.(type) {
		case Literal:
		case Param:
			err = checkName(path, string(s), seen)
		case CatchAll:
			if i != len(parts)-1 {
				return Template{}, InvalidTemplateError{
					Path:   path,
					Reason: fmt.Sprintf("catch-all {%s%s} must be the last segment", s, CatchAllSuffix),
				}
			}
			err = checkName(path, string(s), seen)
		}
		if err != nil {
			return Template{}, err
		}

		segments = append(segments, seg)
	}

	return Template{segments: segments}, nil
}

// MustCompile is like [Compile] but panics if the template is invalid.
func MustCompile(path string) Template {
	t, err := Compile(path)
	if err != nil {
		panic(err)
	}
	return t
}

func compileSegment(path, part string) (Segment, error) {
	if len(part) < 2 || part[0] != '{' || part[len(part)-1] != '}' {
		return Literal(part), nil
	}

	name := part[1 : len(part)-1]
	if strings.HasPrefix(name, "*") {
		return nil, InvalidTemplateError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported catch-all sigil in %s, use {%s%s}", part, name[1:], CatchAllSuffix),
		}
	}

	if base, ok := strings.CutSuffix(name, CatchAllSuffix); ok {
		return CatchAll(base), nil
	}
	return Param(name), nil
}

func checkName(path, name string, seen map[string]struct{}) error {
	if name == "" {
		return InvalidTemplateError{
			Path:   path,
			Reason: "parameter name must not be empty",
		}
	}
	if _, dup := seen[name]; dup {
		return InvalidTemplateError{
			Path:   path,
			Reason: fmt.Sprintf("parameter %q is bound more than once", name),
		}
	}
	seen[name] = struct{}{}
	return nil
}

// Split breaks a concrete request path into its non-empty segments.
// It applies the same normalization as [Compile].
func Split(path string) []string {
	parts := strings.Split(path, "/")
	n := 0
	for _, p := range parts {
		if p == "" {
			continue
		}
		parts[n] = p
		n++
	}
	return parts[:n]
}

// Segments returns a copy of the compiled segments.
func (t Template) Segments() []Segment {
	segs := make([]Segment, len(t.segments))
	copy(segs, t.segments)
	return segs
}

// Len returns the number of segments.
func (t Template) Len() int {
	return len(t.segments)
}

// Equal reports whether both templates have structurally equal segments.
func (t Template) Equal(other Template) bool {
	if len(t.segments) != len(other.segments) {
		return false
	}
	for i := range t.segments {
		if t.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// Variables returns the names bound by the template, in path order.
func (t Template) Variables() []string {
	var names []string
	for _, seg := range t.segments {
		switch s := seg.(type) {
		case Param:
			names = append(names, string(s))
		case CatchAll:
			names = append(names, string(s))
		}
	}
	return names
}

// CatchAll returns the name of the trailing catch-all segment, if any.
func (t Template) CatchAll() (string, bool) {
	if len(t.segments) == 0 {
		return "", false
	}
	c, ok := t.segments[len(t.segments)-1].(CatchAll)
	return string(c), ok
}

// HasCatchAll reports whether the template ends with a [CatchAll].
func (t Template) HasCatchAll() bool {
	_, ok := t.CatchAll()
	return ok
}

// LeadingLiterals counts the literal segments before the first variable.
func (t Template) LeadingLiterals() int {
	for i, seg := range t.segments {
		if _, ok := seg.(Literal); !ok {
			return i
		}
	}
	return len(t.segments)
}

// Match walks the template against already split path segments and
// returns the bound parameters. The whole path must be consumed.
func (t Template) Match(parts []string) (map[string]string, bool) {
	var params map[string]string
	bind := func(name, value string) {
		if params == nil {
			params = make(map[string]string, len(t.segments))
		}
		params[name] = value
	}

	for i, seg := range t.segments {
		switch s := seg.(type) {
		case Literal:
			if i >= len(parts) || parts[i] != string(s) {
				return nil, false
			}
		case Param:
			if i >= len(parts) {
				return nil, false
			}
			bind(string(s), parts[i])
		case CatchAll:
			if i >= len(parts) {
				return nil, false
			}
			bind(string(s), strings.Join(parts[i:], "/"))
			return params, true
		}
	}

	if len(parts) != len(t.segments) {
		return nil, false
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, true
}

// String renders the template back into its source form.
func (t Template) String() string {
	if len(t.segments) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range t.segments {
		sb.WriteByte('/')
		sb.WriteString(seg.segment())
	}
	return sb.String()
}

// MarshalText implements the [encoding.TextMarshaler] interface.
func (t Template) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (t *Template) UnmarshalText(b []byte) error {
	compiled, err := Compile(string(b))
	if err != nil {
		return err
	}
	*t = compiled
	return nil
}
