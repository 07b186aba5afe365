// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package openapi

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorKind classifies a [ValidationError].
type ErrorKind string

const (
	MissingPathParameter     ErrorKind = "MissingPathParameter"
	UnexpectedPathParameter  ErrorKind = "UnexpectedPathParameter"
	DuplicatePathParameter   ErrorKind = "DuplicatePathParameter"
	SchemaValidation         ErrorKind = "SchemaValidation"
	SecuritySchemeValidation ErrorKind = "SecuritySchemeValidation"
)

// ValidationError is a single problem found in a document.
type ValidationError struct {
	Kind    ErrorKind
	Path    string
	Param   string
	Message string
}

func (e ValidationError) Error() string {
	switch e.Kind {
	case MissingPathParameter:
		return fmt.Sprintf("missing path parameter '%s' in path '%s'", e.Param, e.Path)
	case UnexpectedPathParameter:
		return fmt.Sprintf("path parameter '%s' is not part of path '%s'", e.Param, e.Path)
	case DuplicatePathParameter:
		return fmt.Sprintf("duplicate path parameter '%s' in path '%s'", e.Param, e.Path)
	case SecuritySchemeValidation:
		return "security scheme validation error: " + e.Message
	default:
		return "schema validation error: " + e.Message
	}
}

// ValidationErrors is the ordered set of problems found in a document.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// Unwrap allows matching a single [ValidationError] with errors.As.
func (errs ValidationErrors) Unwrap() []error {
	es := make([]error, len(errs))
	for i, err := range errs {
		es[i] = err
	}
	return es
}

// ValidatorOptions are used for configuring a [Validator].
type ValidatorOptions struct {
	strict           bool
	validateExamples bool
}

// ValidatorOption sets a value on [ValidatorOptions].
type ValidatorOption func(*ValidatorOptions)

// StrictMode rejects path item references and path parameters
// which are declared but not part of the path.
func StrictMode(b bool) ValidatorOption {
	return func(vo *ValidatorOptions) {
		vo.strict = b
	}
}

// ValidateExamples toggles checking component schema examples
// against their declared type.
func ValidateExamples(b bool) ValidatorOption {
	return func(vo *ValidatorOptions) {
		vo.validateExamples = b
	}
}

// Validator checks OpenAPI documents. It is immutable and safe for concurrent use.
type Validator struct {
	strict           bool
	validateExamples bool
}

// NewValidator returns a non-strict [Validator] which validates examples
// unless configured otherwise.
func NewValidator(opts ...ValidatorOption) *Validator {
	vo := &ValidatorOptions{
		validateExamples: true,
	}
	for _, opt := range opts {
		opt(vo)
	}
	return &Validator{
		strict:           vo.strict,
		validateExamples: vo.validateExamples,
	}
}

// ValidateDocument validates doc with the default options.
func ValidateDocument(doc *openapi3.Spec) error {
	return NewValidator().Validate(doc)
}

// Validate checks doc and returns every violation as [ValidationErrors],
// or nil if there are none. Path items are checked in sorted path order.
func (v *Validator) Validate(doc *openapi3.Spec) error {
	var errs ValidationErrors

	keys := make([]string, 0, len(doc.Paths.MapOfPathItemValues))
	for key := range doc.Paths.MapOfPathItemValues {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		errs = append(errs, v.validatePathItem(doc, key, doc.Paths.MapOfPathItemValues[key])...)
	}

	if v.validateExamples {
		errs = append(errs, validateExamples(doc.Components)...)
	}

	errs = append(errs, validateSecurity(doc)...)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

var operationOrder = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

func (v *Validator) validatePathItem(doc *openapi3.Spec, key string, item openapi3.PathItem) []ValidationError {
	if item.Ref != nil {
		if !v.strict {
			return nil
		}
		return []ValidationError{{
			Kind:    SchemaValidation,
			Path:    key,
			Message: fmt.Sprintf("references not allowed in strict mode: %s", *item.Ref),
		}}
	}

	var errs []ValidationError

	placeholders := placeholders(key)
	inPath := make(map[string]struct{}, len(placeholders))
	for _, name := range placeholders {
		if _, dup := inPath[name]; dup {
			errs = append(errs, ValidationError{Kind: DuplicatePathParameter, Path: key, Param: name})
			continue
		}
		inPath[name] = struct{}{}
	}

	declared := make(map[string]struct{})
	var declaredOrder []string
	declare := func(params []openapi3.ParameterOrRef) {
		seen := make(map[string]struct{})
		for _, por := range params {
			p := resolveParameter(doc, por)
			if p == nil || p.In != openapi3.ParameterInPath {
				continue
			}
			if _, dup := seen[p.Name]; dup {
				errs = append(errs, ValidationError{Kind: DuplicatePathParameter, Path: key, Param: p.Name})
				continue
			}
			seen[p.Name] = struct{}{}

			if _, ok := declared[p.Name]; !ok {
				declared[p.Name] = struct{}{}
				declaredOrder = append(declaredOrder, p.Name)
			}
		}
	}

	declare(item.Parameters)
	for _, method := range operationOrder {
		op, ok := item.MapOfOperationValues[method]
		if !ok {
			continue
		}
		declare(op.Parameters)
	}

	for _, name := range placeholders {
		if _, ok := declared[name]; !ok {
			errs = append(errs, ValidationError{Kind: MissingPathParameter, Path: key, Param: name})
			declared[name] = struct{}{}
		}
	}

	if v.strict {
		for _, name := range declaredOrder {
			if _, ok := inPath[name]; !ok {
				errs = append(errs, ValidationError{Kind: UnexpectedPathParameter, Path: key, Param: name})
			}
		}
	}
	return errs
}

func placeholders(key string) []string {
	var names []string
	for _, seg := range strings.Split(key, "/") {
		if len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
			names = append(names, seg[1:len(seg)-1])
		}
	}
	return names
}

const parameterRefPrefix = "#/components/parameters/"

func resolveParameter(doc *openapi3.Spec, por openapi3.ParameterOrRef) *openapi3.Parameter {
	for range 8 {
		if por.Parameter != nil {
			return por.Parameter
		}
		if por.ParameterReference == nil || doc.Components == nil || doc.Components.Parameters == nil {
			return nil
		}

		name, ok := strings.CutPrefix(por.ParameterReference.Ref, parameterRefPrefix)
		if !ok {
			return nil
		}
		por, ok = doc.Components.Parameters.MapOfParameterOrRefValues[name]
		if !ok {
			return nil
		}
	}
	return nil
}

func validateExamples(components *openapi3.Components) []ValidationError {
	if components == nil || components.Schemas == nil {
		return nil
	}

	schemas := components.Schemas.MapOfSchemaOrRefValues
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []ValidationError
	for _, name := range names {
		s := schemas[name].Schema
		if s == nil || s.Example == nil || s.Type == nil {
			continue
		}
		if exampleMatches(*s.Type, *s.Example) {
			continue
		}
		errs = append(errs, ValidationError{
			Kind:    SchemaValidation,
			Message: fmt.Sprintf("example for '%s' does not match schema type %s", name, *s.Type),
		})
	}
	return errs
}

func exampleMatches(t openapi3.SchemaType, example interface{}) bool {
	switch t {
	case openapi3.SchemaTypeString:
		_, ok := example.(string)
		return ok
	case openapi3.SchemaTypeInteger:
		f, ok := number(example)
		return ok && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
	case openapi3.SchemaTypeNumber:
		_, ok := number(example)
		return ok
	case openapi3.SchemaTypeBoolean:
		_, ok := example.(bool)
		return ok
	case openapi3.SchemaTypeArray:
		_, ok := example.([]interface{})
		return ok
	case openapi3.SchemaTypeObject:
		_, ok := example.(map[string]interface{})
		return ok
	default:
		return false
	}
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// validateSecurity checks the document level requirements first, then every
// operation's own requirements in path and method order.
func validateSecurity(doc *openapi3.Spec) []ValidationError {
	var schemes map[string]openapi3.SecuritySchemeOrRef
	if doc.Components != nil && doc.Components.SecuritySchemes != nil {
		schemes = doc.Components.SecuritySchemes.MapOfSecuritySchemeOrRefValues
	}

	errs := checkRequirements(schemes, "", "", doc.Security)

	keys := make([]string, 0, len(doc.Paths.MapOfPathItemValues))
	for key := range doc.Paths.MapOfPathItemValues {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		item := doc.Paths.MapOfPathItemValues[key]
		for _, method := range operationOrder {
			op, ok := item.MapOfOperationValues[method]
			if !ok {
				continue
			}
			errs = append(errs, checkRequirements(schemes, key, method, op.Security)...)
		}
	}
	return errs
}

func checkRequirements(schemes map[string]openapi3.SecuritySchemeOrRef, key, method string, reqs []map[string][]string) []ValidationError {
	var errs []ValidationError
	for _, req := range reqs {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if _, ok := schemes[name]; ok {
				continue
			}
			msg := fmt.Sprintf("security scheme '%s' not found in components", name)
			if method != "" {
				msg = fmt.Sprintf("%s (required by %s %s)", msg, strings.ToUpper(method), key)
			}
			errs = append(errs, ValidationError{
				Kind:    SecuritySchemeValidation,
				Path:    key,
				Message: msg,
			})
		}
	}
	return errs
}
