// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	kinopenapi3 "github.com/getkin/kin-openapi/openapi3"
	"github.com/swaggest/openapi-go/openapi3"
	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes doc as indented JSON.
func MarshalJSON(doc *openapi3.Spec) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = json.Indent(&buf, b, "", "  ")
	if err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// MarshalYAML encodes doc as YAML, keeping the field order of its JSON form.
func MarshalYAML(doc *openapi3.Spec) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	err = yaml.Unmarshal(b, &node)
	if err != nil {
		return nil, err
	}
	plainStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err = enc.Encode(&node)
	if err != nil {
		return nil, err
	}
	err = enc.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// plainStyle drops the flow and quoting styles carried over from JSON.
// Strings which would not read back as strings are still quoted by the encoder.
func plainStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		plainStyle(c)
	}
}

// Decode reads a JSON or YAML encoded document from r.
func Decode(r io.Reader) (*openapi3.Spec, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		b, err = yamlToJSON(b)
		if err != nil {
			return nil, err
		}
	}

	var doc openapi3.Spec
	err = doc.UnmarshalJSON(b)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func yamlToJSON(b []byte) ([]byte, error) {
	var v interface{}
	err := yaml.Unmarshal(b, &v)
	if err != nil {
		return nil, err
	}
	v, err = stringKeys(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func stringKeys(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case map[string]interface{}:
		for k, e := range x {
			conv, err := stringKeys(e)
			if err != nil {
				return nil, err
			}
			x[k] = conv
		}
		return x, nil
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, e := range x {
			conv, err := stringKeys(e)
			if err != nil {
				return nil, err
			}
			m[fmt.Sprint(k)] = conv
		}
		return m, nil
	case []interface{}:
		for i, e := range x {
			conv, err := stringKeys(e)
			if err != nil {
				return nil, err
			}
			x[i] = conv
		}
		return x, nil
	default:
		return v, nil
	}
}

// ConformanceError is returned by [CheckConformance] when a document
// does not satisfy the OpenAPI 3 standard.
type ConformanceError struct {
	Cause error
}

func (e ConformanceError) Error() string {
	return fmt.Sprintf("document does not conform to openapi 3: %s", e.Cause)
}

func (e ConformanceError) Unwrap() error {
	return e.Cause
}

// CheckConformance loads doc with an independent OpenAPI 3 implementation
// and runs its standards validation.
func CheckConformance(ctx context.Context, doc *openapi3.Spec) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	loader := kinopenapi3.NewLoader()
	loader.Context = ctx

	kdoc, err := loader.LoadFromData(b)
	if err != nil {
		return ConformanceError{Cause: err}
	}

	err = kdoc.Validate(ctx)
	if err != nil {
		return ConformanceError{Cause: err}
	}
	return nil
}
