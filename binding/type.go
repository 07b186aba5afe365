// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package binding

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/swaggest/jsonschema-go"
	"github.com/z5labs/sdk-go/ptr"
	"gopkg.in/yaml.v3"
)

// TypeKind identifies the shape of a [Type].
type TypeKind string

const (
	TypeStr    TypeKind = "str"
	TypeChr    TypeKind = "chr"
	TypeBool   TypeKind = "bool"
	TypeS8     TypeKind = "s8"
	TypeS16    TypeKind = "s16"
	TypeS32    TypeKind = "s32"
	TypeS64    TypeKind = "s64"
	TypeU8     TypeKind = "u8"
	TypeU16    TypeKind = "u16"
	TypeU32    TypeKind = "u32"
	TypeU64    TypeKind = "u64"
	TypeF32    TypeKind = "f32"
	TypeF64    TypeKind = "f64"
	TypeList   TypeKind = "list"
	TypeOption TypeKind = "option"
	TypeTuple  TypeKind = "tuple"
	TypeRecord TypeKind = "record"
	TypeEnum   TypeKind = "enum"
	TypeFlags  TypeKind = "flags"
)

var kindAliases = map[string]TypeKind{
	"string":  TypeStr,
	"char":    TypeChr,
	"boolean": TypeBool,
	"integer": TypeS64,
	"number":  TypeF64,
}

type intRange struct {
	min    int64
	max    uint64
	format string
}

var intRanges = map[TypeKind]intRange{
	TypeS8:  {min: math.MinInt8, max: math.MaxInt8, format: "int32"},
	TypeS16: {min: math.MinInt16, max: math.MaxInt16, format: "int32"},
	TypeS32: {min: math.MinInt32, max: math.MaxInt32, format: "int32"},
	TypeS64: {min: math.MinInt64, max: math.MaxInt64, format: "int64"},
	TypeU8:  {min: 0, max: math.MaxUint8, format: "int32"},
	TypeU16: {min: 0, max: math.MaxUint16, format: "int32"},
	TypeU32: {min: 0, max: math.MaxUint32, format: "int64"},
	TypeU64: {min: 0, max: math.MaxUint64, format: "int64"},
}

// Type is a schema descriptor for the input and output of a [Default] binding.
//
// Scalar kinds only need Kind. list and option use Elem, tuple uses Items,
// record uses Fields and enum/flags use Cases.
type Type struct {
	Kind   TypeKind `yaml:"kind" json:"kind"`
	Elem   *Type    `yaml:"elem,omitempty" json:"elem,omitempty"`
	Items  []Type   `yaml:"items,omitempty" json:"items,omitempty"`
	Fields []Field  `yaml:"fields,omitempty" json:"fields,omitempty"`
	Cases  []string `yaml:"cases,omitempty" json:"cases,omitempty"`
}

// Field is a named member of a record [Type].
type Field struct {
	Name string `yaml:"name" json:"name"`
	Type Type   `yaml:"type" json:"type"`
}

// Scalar returns a [Type] of the given scalar kind.
func Scalar(kind TypeKind) Type {
	return Type{Kind: kind}
}

// ListOf returns a list [Type] of elem.
func ListOf(elem Type) Type {
	return Type{Kind: TypeList, Elem: &elem}
}

// OptionOf returns an option [Type] of elem.
func OptionOf(elem Type) Type {
	return Type{Kind: TypeOption, Elem: &elem}
}

// RecordOf returns a record [Type] with the given fields.
func RecordOf(fields ...Field) Type {
	return Type{Kind: TypeRecord, Fields: fields}
}

func normalizeKind(s string) TypeKind {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := kindAliases[s]; ok {
		return k
	}
	return TypeKind(s)
}

type typeFields Type

// UnmarshalYAML implements the [yaml.Unmarshaler] interface.
// A scalar node is shorthand for a scalar kind, e.g. "str".
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*t = Type{Kind: normalizeKind(node.Value)}
		return nil
	}

	var tf typeFields
	err := node.Decode(&tf)
	if err != nil {
		return err
	}
	tf.Kind = normalizeKind(string(tf.Kind))
	*t = Type(tf)
	return nil
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
// A JSON string is shorthand for a scalar kind, e.g. "bool".
func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*t = Type{Kind: normalizeKind(s)}
		return nil
	}

	var tf typeFields
	err := json.Unmarshal(b, &tf)
	if err != nil {
		return err
	}
	tf.Kind = normalizeKind(string(tf.Kind))
	*t = Type(tf)
	return nil
}

// UnresolvableTypeError is returned when a [Type] cannot be turned into a schema.
type UnresolvableTypeError struct {
	Path   string
	Reason string
}

func (e UnresolvableTypeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unresolvable type: %s", e.Reason)
	}
	return fmt.Sprintf("unresolvable type at %s: %s", e.Path, e.Reason)
}

// Resolve reports whether the descriptor is complete and well formed.
func (t Type) Resolve() error {
	return t.resolve("")
}

func (t Type) resolve(path string) error {
	switch t.Kind {
	case TypeStr, TypeChr, TypeBool, TypeF32, TypeF64:
		return nil
	case TypeS8, TypeS16, TypeS32, TypeS64, TypeU8, TypeU16, TypeU32, TypeU64:
		return nil
	case TypeList, TypeOption:
		if t.Elem == nil {
			return UnresolvableTypeError{Path: path, Reason: fmt.Sprintf("%s requires an element type", t.Kind)}
		}
		return t.Elem.resolve(path + "[]")
	case TypeTuple:
		if len(t.Items) == 0 {
			return UnresolvableTypeError{Path: path, Reason: "tuple requires at least one item"}
		}
		for i, item := range t.Items {
			err := item.resolve(fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return err
			}
		}
		return nil
	case TypeRecord:
		seen := make(map[string]struct{}, len(t.Fields))
		for _, f := range t.Fields {
			if f.Name == "" {
				return UnresolvableTypeError{Path: path, Reason: "record field name must not be empty"}
			}
			if _, dup := seen[f.Name]; dup {
				return UnresolvableTypeError{Path: path, Reason: fmt.Sprintf("duplicate record field %q", f.Name)}
			}
			seen[f.Name] = struct{}{}

			err := f.Type.resolve(path + "." + f.Name)
			if err != nil {
				return err
			}
		}
		return nil
	case TypeEnum, TypeFlags:
		if len(t.Cases) == 0 {
			return UnresolvableTypeError{Path: path, Reason: fmt.Sprintf("%s requires at least one case", t.Kind)}
		}
		return nil
	case "":
		return UnresolvableTypeError{Path: path, Reason: "missing kind"}
	default:
		return UnresolvableTypeError{Path: path, Reason: fmt.Sprintf("unknown kind %q", t.Kind)}
	}
}

// String renders the descriptor in a compact notation, e.g. list<option<str>>.
func (t Type) String() string {
	switch t.Kind {
	case TypeList, TypeOption:
		if t.Elem == nil {
			return string(t.Kind) + "<?>"
		}
		return fmt.Sprintf("%s<%s>", t.Kind, t.Elem)
	case TypeTuple:
		items := make([]string, len(t.Items))
		for i, item := range t.Items {
			items[i] = item.String()
		}
		return fmt.Sprintf("tuple<%s>", strings.Join(items, ", "))
	case TypeRecord:
		fields := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = f.Name + ": " + f.Type.String()
		}
		return fmt.Sprintf("record{%s}", strings.Join(fields, ", "))
	case TypeEnum, TypeFlags:
		return fmt.Sprintf("%s[%s]", t.Kind, strings.Join(t.Cases, ", "))
	default:
		return string(t.Kind)
	}
}

// JSONSchema renders the descriptor as a JSON schema.
// The descriptor is expected to be resolvable, see [Type.Resolve].
func (t Type) JSONSchema() jsonschema.Schema {
	var s jsonschema.Schema

	switch t.Kind {
	case TypeStr:
		s.Type = ptr.Ref(jsonschema.String.Type())
	case TypeChr:
		s.Type = ptr.Ref(jsonschema.String.Type())
		s.MinLength = 1
		s.MaxLength = ptr.Ref(int64(1))
	case TypeBool:
		s.Type = ptr.Ref(jsonschema.Boolean.Type())
	case TypeS8, TypeS16, TypeS32, TypeS64, TypeU8, TypeU16, TypeU32, TypeU64:
		r := intRanges[t.Kind]
		s.Type = ptr.Ref(jsonschema.Integer.Type())
		s.Format = ptr.Ref(r.format)
		if r.min == 0 {
			s.Minimum = ptr.Ref(0.0)
		}
	case TypeF32:
		s.Type = ptr.Ref(jsonschema.Number.Type())
		s.Format = ptr.Ref("float")
	case TypeF64:
		s.Type = ptr.Ref(jsonschema.Number.Type())
		s.Format = ptr.Ref("double")
	case TypeList:
		s.Type = ptr.Ref(jsonschema.Array.Type())
		if t.Elem != nil {
			s.Items = &jsonschema.Items{SchemaOrBool: schemaOrBool(t.Elem.JSONSchema())}
		}
	case TypeOption:
		if t.Elem != nil {
			s = t.Elem.JSONSchema()
		}
		if s.Type != nil && s.Type.SimpleTypes != nil {
			s.Type = &jsonschema.Type{
				SliceOfSimpleTypeValues: []jsonschema.SimpleType{*s.Type.SimpleTypes, jsonschema.Null},
			}
		}
	case TypeTuple:
		items := make([]jsonschema.SchemaOrBool, len(t.Items))
		for i, item := range t.Items {
			items[i] = *schemaOrBool(item.JSONSchema())
		}
		s.Type = ptr.Ref(jsonschema.Array.Type())
		s.Items = &jsonschema.Items{SchemaOrBool: schemaOrBool(jsonschema.Schema{AnyOf: items})}
		s.MinItems = int64(len(t.Items))
		s.MaxItems = ptr.Ref(int64(len(t.Items)))
	case TypeRecord:
		s.Type = ptr.Ref(jsonschema.Object.Type())
		s.Properties = make(map[string]jsonschema.SchemaOrBool, len(t.Fields))
		for _, f := range t.Fields {
			s.Properties[f.Name] = *schemaOrBool(f.Type.JSONSchema())
			if f.Type.Kind != TypeOption {
				s.Required = append(s.Required, f.Name)
			}
		}
	case TypeEnum:
		s.Type = ptr.Ref(jsonschema.String.Type())
		for _, c := range t.Cases {
			s.Enum = append(s.Enum, c)
		}
	case TypeFlags:
		var item jsonschema.Schema
		item.Type = ptr.Ref(jsonschema.String.Type())
		for _, c := range t.Cases {
			item.Enum = append(item.Enum, c)
		}
		s.Type = ptr.Ref(jsonschema.Array.Type())
		s.Items = &jsonschema.Items{SchemaOrBool: schemaOrBool(item)}
		s.UniqueItems = ptr.Ref(true)
	}

	return s
}

func schemaOrBool(s jsonschema.Schema) *jsonschema.SchemaOrBool {
	sb := s.ToSchemaOrBool()
	return &sb
}

// TypeMismatchError is returned by [Type.Check] when a value
// does not conform to the descriptor.
type TypeMismatchError struct {
	Path     string
	Expected string
	Got      string
}

func (e TypeMismatchError) Error() string {
	path := e.Path
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("type mismatch at %s: expected %s, got %s", path, e.Expected, e.Got)
}

// Check verifies that a decoded JSON value conforms to the descriptor.
// Numbers may be float64, json.Number or any Go integer type.
func (t Type) Check(v any) error {
	return t.check("", v)
}

func (t Type) check(path string, v any) error {
	mismatch := func() error {
		return TypeMismatchError{Path: path, Expected: t.String(), Got: describeValue(v)}
	}

	switch t.Kind {
	case TypeStr:
		if _, ok := v.(string); !ok {
			return mismatch()
		}
	case TypeChr:
		s, ok := v.(string)
		if !ok || utf8.RuneCountInString(s) != 1 {
			return mismatch()
		}
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return mismatch()
		}
	case TypeS8, TypeS16, TypeS32, TypeS64, TypeU8, TypeU16, TypeU32, TypeU64:
		if !intRanges[t.Kind].contains(v) {
			return mismatch()
		}
	case TypeF32, TypeF64:
		if _, ok := toFloat(v); !ok {
			return mismatch()
		}
	case TypeList:
		vs, ok := v.([]any)
		if !ok {
			return mismatch()
		}
		for i, elem := range vs {
			err := t.Elem.check(fmt.Sprintf("%s[%d]", path, i), elem)
			if err != nil {
				return err
			}
		}
	case TypeOption:
		if v == nil {
			return nil
		}
		return t.Elem.check(path, v)
	case TypeTuple:
		vs, ok := v.([]any)
		if !ok || len(vs) != len(t.Items) {
			return mismatch()
		}
		for i, item := range t.Items {
			err := item.check(fmt.Sprintf("%s[%d]", path, i), vs[i])
			if err != nil {
				return err
			}
		}
	case TypeRecord:
		m, ok := v.(map[string]any)
		if !ok {
			return mismatch()
		}
		for _, f := range t.Fields {
			fv, present := m[f.Name]
			if !present && f.Type.Kind == TypeOption {
				continue
			}
			if !present {
				return TypeMismatchError{Path: path + "." + f.Name, Expected: f.Type.String(), Got: "nothing"}
			}
			err := f.Type.check(path+"."+f.Name, fv)
			if err != nil {
				return err
			}
		}
	case TypeEnum:
		s, ok := v.(string)
		if !ok || !contains(t.Cases, s) {
			return mismatch()
		}
	case TypeFlags:
		vs, ok := v.([]any)
		if !ok {
			return mismatch()
		}
		for _, elem := range vs {
			s, ok := elem.(string)
			if !ok || !contains(t.Cases, s) {
				return mismatch()
			}
		}
	default:
		return UnresolvableTypeError{Path: path, Reason: fmt.Sprintf("unknown kind %q", t.Kind)}
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func (r intRange) containsInt(n int64) bool {
	return n >= r.min && (n < 0 || uint64(n) <= r.max)
}

func (r intRange) containsUint(n uint64) bool {
	return n <= r.max
}

// contains reports whether v is an integer within r. Integer literals are
// compared exactly. Floats and exponent forms must be integral.
func (r intRange) contains(v any) bool {
	switch n := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return r.containsInt(i)
		}
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return r.containsUint(u)
		}
		if isIntegerLiteral(n.String()) {
			return false
		}
		f, err := n.Float64()
		return err == nil && r.containsFloat(f)
	case int:
		return r.containsInt(int64(n))
	case int8:
		return r.containsInt(int64(n))
	case int16:
		return r.containsInt(int64(n))
	case int32:
		return r.containsInt(int64(n))
	case int64:
		return r.containsInt(n)
	case uint:
		return r.containsUint(uint64(n))
	case uint8:
		return r.containsUint(uint64(n))
	case uint16:
		return r.containsUint(uint64(n))
	case uint32:
		return r.containsUint(uint64(n))
	case uint64:
		return r.containsUint(n)
	case float32:
		return r.containsFloat(float64(n))
	case float64:
		return r.containsFloat(n)
	default:
		return false
	}
}

func isIntegerLiteral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

const twoPow63 = float64(1 << 63)

func (r intRange) containsFloat(f float64) bool {
	switch {
	case f != math.Trunc(f):
		return false
	case f >= -twoPow63 && f < twoPow63:
		return r.containsInt(int64(f))
	case f >= 0 && f < 2*twoPow63:
		return r.containsUint(uint64(f))
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func describeValue(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
