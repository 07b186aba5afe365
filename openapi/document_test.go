// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package openapi

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/z5labs/apigw/binding"
	"github.com/z5labs/apigw/definition"
	"github.com/z5labs/apigw/pathtmpl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocumentDefinition() definition.ApiDefinition {
	return newDefinition(
		definition.Route{
			Path:         pathtmpl.MustCompile("/users/{id}"),
			Method:       definition.MethodGet,
			Binding:      binding.Http{Upstream: "http://users"},
			TemplateName: "getUser",
		},
		definition.Route{
			Path:   pathtmpl.MustCompile("/greet"),
			Method: definition.MethodPost,
			Binding: binding.Default{
				InputType: binding.RecordOf(
					binding.Field{Name: "name", Type: binding.Scalar(binding.TypeStr)},
					binding.Field{Name: "age", Type: binding.OptionOf(binding.Scalar(binding.TypeU8))},
				),
				OutputType:   binding.Scalar(binding.TypeStr),
				FunctionName: "greet",
			},
		},
		definition.Route{
			Path:    pathtmpl.MustCompile("/static/{path..}"),
			Method:  definition.MethodGet,
			Binding: binding.FileServer{RootDir: "public"},
		},
	)
}

func TestMarshalYAML(t *testing.T) {
	t.Run("will round trip through Decode", func(t *testing.T) {
		spec := Convert(sampleDocumentDefinition(), WithOAuth2(OAuth2{
			AuthorizationURL: "https://auth.example.com/authorize",
			TokenURL:         "https://auth.example.com/token",
		}))

		b, err := MarshalYAML(spec)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), "openapi: 3.0.3\n"))

		decoded, err := Decode(bytes.NewReader(b))
		require.NoError(t, err)

		assert.Equal(t, spec.Openapi, decoded.Openapi)
		assert.Len(t, decoded.Paths.MapOfPathItemValues, 3)
		assert.Contains(t, decoded.Paths.MapOfPathItemValues, "/static/{path..}")
		assert.NoError(t, ValidateDocument(decoded))
	})
}

func TestMarshalJSON(t *testing.T) {
	t.Run("will round trip through Decode", func(t *testing.T) {
		spec := Convert(sampleDocumentDefinition())

		b, err := MarshalJSON(spec)
		require.NoError(t, err)

		decoded, err := Decode(bytes.NewReader(b))
		require.NoError(t, err)

		item, ok := decoded.Paths.MapOfPathItemValues["/users/{id}"]
		if !assert.True(t, ok) {
			return
		}
		op, ok := item.MapOfOperationValues["get"]
		if !assert.True(t, ok) || !assert.NotNil(t, op.ID) {
			return
		}
		assert.Equal(t, "getUser", *op.ID)
	})
}

func TestDecode(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the yaml is malformed", func(t *testing.T) {
			_, err := Decode(strings.NewReader("openapi: [3.0.3"))
			assert.Error(t, err)
		})
	})
}

func TestCheckConformance(t *testing.T) {
	t.Run("will accept a converted document", func(t *testing.T) {
		spec := Convert(sampleDocumentDefinition(), WithOAuth2(OAuth2{
			AuthorizationURL: "https://auth.example.com/authorize",
			TokenURL:         "https://auth.example.com/token",
		}))

		err := CheckConformance(context.Background(), spec)
		assert.NoError(t, err)
	})

	t.Run("will return a ConformanceError", func(t *testing.T) {
		t.Run("if the info is incomplete", func(t *testing.T) {
			spec := Convert(definition.ApiDefinition{})

			err := CheckConformance(context.Background(), spec)

			var ce ConformanceError
			assert.ErrorAs(t, err, &ce)
		})
	})
}
