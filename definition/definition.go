// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package definition models declarative API definitions.
package definition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/z5labs/apigw/binding"
	"github.com/z5labs/apigw/pathtmpl"
)

// Method is an HTTP request method supported by routes.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// Methods lists every supported [Method].
func Methods() []Method {
	return []Method{
		MethodGet,
		MethodPost,
		MethodPut,
		MethodDelete,
		MethodPatch,
		MethodHead,
		MethodOptions,
	}
}

// UnknownMethodError is returned by [ParseMethod] for unsupported methods.
type UnknownMethodError struct {
	Method string
}

func (e UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown http method: %q", e.Method)
}

// ParseMethod parses s case-insensitively.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods() {
		if m == known {
			return m, nil
		}
	}
	return "", UnknownMethodError{Method: s}
}

// Lower returns the lower case form used by OpenAPI operation keys.
func (m Method) Lower() string {
	return strings.ToLower(string(m))
}

// Route binds a method and path template to a [binding.Binding].
type Route struct {
	Path         pathtmpl.Template
	Method       Method
	Binding      binding.Binding
	Description  string
	TemplateName string
}

func (r Route) String() string {
	return fmt.Sprintf("%s %s -> %s", r.Method, r.Path, binding.String(r.Binding))
}

// ApiDefinition is a named, versioned collection of routes.
type ApiDefinition struct {
	ID          string
	Name        string
	Version     string
	Description string
	Routes      []Route
}

// MissingFieldError is returned when a required definition field is empty.
type MissingFieldError struct {
	Field string
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("api definition is missing required field: %s", e.Field)
}

// RouteError wraps a problem found with a single route.
type RouteError struct {
	Index  int
	Method Method
	Path   string
	Cause  error
}

func (e RouteError) Error() string {
	return fmt.Sprintf("route %d (%s %s): %s", e.Index, e.Method, e.Path, e.Cause)
}

func (e RouteError) Unwrap() error {
	return e.Cause
}

// Validate checks the definition identity and every route's binding contract.
// All problems are returned joined together.
func (def ApiDefinition) Validate() error {
	var errs []error
	if def.ID == "" {
		errs = append(errs, MissingFieldError{Field: "id"})
	}
	if def.Name == "" {
		errs = append(errs, MissingFieldError{Field: "name"})
	}
	if def.Version == "" {
		errs = append(errs, MissingFieldError{Field: "version"})
	}

	for i, route := range def.Routes {
		_, err := ParseMethod(string(route.Method))
		if err != nil {
			errs = append(errs, RouteError{Index: i, Method: route.Method, Path: route.Path.String(), Cause: err})
			continue
		}

		err = binding.Validate(route.Binding, route.Path)
		if err != nil {
			errs = append(errs, RouteError{Index: i, Method: route.Method, Path: route.Path.String(), Cause: err})
		}
	}
	return errors.Join(errs...)
}
