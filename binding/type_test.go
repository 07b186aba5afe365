// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package binding

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggest/jsonschema-go"
	"gopkg.in/yaml.v3"
)

func TestType_UnmarshalYAML(t *testing.T) {
	t.Run("will decode", func(t *testing.T) {
		t.Run("a scalar shorthand", func(t *testing.T) {
			var typ Type
			err := yaml.Unmarshal([]byte(`str`), &typ)
			require.NoError(t, err)
			assert.Equal(t, Scalar(TypeStr), typ)
		})

		t.Run("an aliased scalar shorthand", func(t *testing.T) {
			var typ Type
			err := yaml.Unmarshal([]byte(`boolean`), &typ)
			require.NoError(t, err)
			assert.Equal(t, Scalar(TypeBool), typ)
		})

		t.Run("a nested structured type", func(t *testing.T) {
			src := `
kind: record
fields:
  - name: id
    type: u64
  - name: tags
    type:
      kind: list
      elem: str
`
			var typ Type
			err := yaml.Unmarshal([]byte(src), &typ)
			require.NoError(t, err)

			expected := RecordOf(
				Field{Name: "id", Type: Scalar(TypeU64)},
				Field{Name: "tags", Type: ListOf(Scalar(TypeStr))},
			)
			assert.Equal(t, expected, typ)
			assert.NoError(t, typ.Resolve())
		})
	})
}

func TestType_UnmarshalJSON(t *testing.T) {
	t.Run("will decode a string shorthand and an object", func(t *testing.T) {
		var v struct {
			In  Type `json:"in"`
			Out Type `json:"out"`
		}
		err := json.Unmarshal([]byte(`{"in": "s32", "out": {"kind": "option", "elem": "f64"}}`), &v)
		require.NoError(t, err)

		assert.Equal(t, Scalar(TypeS32), v.In)
		assert.Equal(t, OptionOf(Scalar(TypeF64)), v.Out)
	})
}

func TestType_Resolve(t *testing.T) {
	t.Run("will return an UnresolvableTypeError", func(t *testing.T) {
		testCases := []struct {
			name string
			typ  Type
		}{
			{name: "if the kind is missing", typ: Type{}},
			{name: "if the kind is unknown", typ: Type{Kind: "decimal"}},
			{name: "if a list has no element", typ: Type{Kind: TypeList}},
			{name: "if a tuple has no items", typ: Type{Kind: TypeTuple}},
			{name: "if an enum has no cases", typ: Type{Kind: TypeEnum}},
			{name: "if a record field is duplicated", typ: RecordOf(Field{Name: "a", Type: Scalar(TypeStr)}, Field{Name: "a", Type: Scalar(TypeStr)})},
			{name: "if a nested type is unresolvable", typ: ListOf(Type{Kind: TypeOption})},
		}

		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				err := testCase.typ.Resolve()

				var ute UnresolvableTypeError
				assert.ErrorAs(t, err, &ute)
			})
		}
	})
}

func TestType_JSONSchema(t *testing.T) {
	t.Run("will render", func(t *testing.T) {
		t.Run("an unsigned integer with a zero minimum", func(t *testing.T) {
			s := Scalar(TypeU16).JSONSchema()

			if !assert.NotNil(t, s.Type) || !assert.NotNil(t, s.Type.SimpleTypes) {
				return
			}
			assert.Equal(t, jsonschema.Integer, *s.Type.SimpleTypes)
			if !assert.NotNil(t, s.Minimum) {
				return
			}
			assert.Equal(t, 0.0, *s.Minimum)
		})

		t.Run("an option as a nullable type", func(t *testing.T) {
			s := OptionOf(Scalar(TypeStr)).JSONSchema()

			if !assert.NotNil(t, s.Type) {
				return
			}
			assert.Equal(t, []jsonschema.SimpleType{jsonschema.String, jsonschema.Null}, s.Type.SliceOfSimpleTypeValues)
		})

		t.Run("a record with required non optional fields", func(t *testing.T) {
			s := RecordOf(
				Field{Name: "name", Type: Scalar(TypeStr)},
				Field{Name: "nickname", Type: OptionOf(Scalar(TypeStr))},
			).JSONSchema()

			assert.Len(t, s.Properties, 2)
			assert.Equal(t, []string{"name"}, s.Required)
		})

		t.Run("an enum with its cases", func(t *testing.T) {
			s := Type{Kind: TypeEnum, Cases: []string{"red", "green"}}.JSONSchema()

			assert.Equal(t, []any{"red", "green"}, s.Enum)
		})

		t.Run("a tuple with a fixed length", func(t *testing.T) {
			s := Type{Kind: TypeTuple, Items: []Type{Scalar(TypeStr), Scalar(TypeBool)}}.JSONSchema()

			assert.Equal(t, int64(2), s.MinItems)
			if !assert.NotNil(t, s.MaxItems) {
				return
			}
			assert.Equal(t, int64(2), *s.MaxItems)
		})
	})
}

func TestType_Check(t *testing.T) {
	t.Run("will accept", func(t *testing.T) {
		testCases := []struct {
			name  string
			typ   Type
			value any
		}{
			{name: "a string", typ: Scalar(TypeStr), value: "hello"},
			{name: "a single rune for chr", typ: Scalar(TypeChr), value: "é"},
			{name: "a whole float for s32", typ: Scalar(TypeS32), value: float64(-12)},
			{name: "a json number for u8", typ: Scalar(TypeU8), value: json.Number("255")},
			{name: "the largest u64", typ: Scalar(TypeU64), value: json.Number("18446744073709551615")},
			{name: "the largest s64", typ: Scalar(TypeS64), value: json.Number("9223372036854775807")},
			{name: "the smallest s64", typ: Scalar(TypeS64), value: json.Number("-9223372036854775808")},
			{name: "an exponent json number for u16", typ: Scalar(TypeU16), value: json.Number("1e3")},
			{name: "a uint64 for u64", typ: Scalar(TypeU64), value: uint64(math.MaxUint64)},
			{name: "a null option", typ: OptionOf(Scalar(TypeStr)), value: nil},
			{name: "a list of booleans", typ: ListOf(Scalar(TypeBool)), value: []any{true, false}},
			{name: "a record without its optional field", typ: RecordOf(
				Field{Name: "id", Type: Scalar(TypeU64)},
				Field{Name: "note", Type: OptionOf(Scalar(TypeStr))},
			), value: map[string]any{"id": float64(7)}},
			{name: "flags from the declared cases", typ: Type{Kind: TypeFlags, Cases: []string{"r", "w"}}, value: []any{"r", "w"}},
		}

		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				assert.NoError(t, testCase.typ.Check(testCase.value))
			})
		}
	})

	t.Run("will return a TypeMismatchError", func(t *testing.T) {
		testCases := []struct {
			name  string
			typ   Type
			value any
			path  string
		}{
			{name: "if a string is a number", typ: Scalar(TypeStr), value: float64(1), path: ""},
			{name: "if an integer has a fraction", typ: Scalar(TypeS64), value: 1.5, path: ""},
			{name: "if an unsigned integer is negative", typ: Scalar(TypeU32), value: float64(-1), path: ""},
			{name: "if an s8 overflows", typ: Scalar(TypeS8), value: float64(128), path: ""},
			{name: "if a u64 overflows by one", typ: Scalar(TypeU64), value: json.Number("18446744073709551616"), path: ""},
			{name: "if an s64 overflows by one", typ: Scalar(TypeS64), value: json.Number("9223372036854775808"), path: ""},
			{name: "if an s64 underflows by one", typ: Scalar(TypeS64), value: json.Number("-9223372036854775809"), path: ""},
			{name: "if a float reaches 2^64 for u64", typ: Scalar(TypeU64), value: float64(1 << 64), path: ""},
			{name: "if a uint64 exceeds s64", typ: Scalar(TypeS64), value: uint64(math.MaxInt64) + 1, path: ""},
			{name: "if a tuple has the wrong length", typ: Type{Kind: TypeTuple, Items: []Type{Scalar(TypeStr)}}, value: []any{"a", "b"}, path: ""},
			{name: "if a list element mismatches", typ: ListOf(Scalar(TypeStr)), value: []any{"a", true}, path: "[1]"},
			{name: "if a required record field is missing", typ: RecordOf(Field{Name: "id", Type: Scalar(TypeStr)}), value: map[string]any{}, path: ".id"},
			{name: "if an enum case is unknown", typ: Type{Kind: TypeEnum, Cases: []string{"a"}}, value: "b", path: ""},
		}

		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				err := testCase.typ.Check(testCase.value)

				var tme TypeMismatchError
				if !assert.ErrorAs(t, err, &tme) {
					return
				}
				assert.Equal(t, testCase.path, tme.Path)
			})
		}
	})
}
