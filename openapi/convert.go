// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package openapi converts API definitions into OpenAPI 3.0.3 documents
// and validates such documents.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/z5labs/apigw/binding"
	"github.com/z5labs/apigw/definition"
	"github.com/z5labs/apigw/pathtmpl"

	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

const (
	// Version is the OpenAPI version of converted documents.
	Version = "3.0.3"

	// DefaultServerURL is the server every converted document declares
	// unless overridden with [WithServerURL].
	DefaultServerURL = "/api"

	// OAuth2SchemeName names the synthesized OAuth2 security scheme.
	OAuth2SchemeName = "oauth2"

	// CatchAllExtension marks a path parameter that matches one or
	// more trailing segments.
	CatchAllExtension = "x-catch-all"

	// BindingExtension carries the binding metadata of an operation.
	BindingExtension = "x-binding"

	// APIIDExtension carries the API definition id on the document info.
	APIIDExtension = "x-api-id"
)

// OAuth2 configures the synthesized authorization-code security scheme.
type OAuth2 struct {
	AuthorizationURL string
	TokenURL         string

	// Scopes replaces the default read/write scopes when non-empty.
	Scopes []string
}

// ConvertOptions are used for configuring [Convert].
type ConvertOptions struct {
	serverURL string
	oauth2    *OAuth2
}

// ConvertOption sets a value on [ConvertOptions].
type ConvertOption func(*ConvertOptions)

// WithServerURL overrides the default server url.
func WithServerURL(url string) ConvertOption {
	return func(co *ConvertOptions) {
		co.serverURL = url
	}
}

// WithOAuth2 protects the whole document with an OAuth2 security scheme.
func WithOAuth2(cfg OAuth2) ConvertOption {
	return func(co *ConvertOptions) {
		co.oauth2 = &cfg
	}
}

// Convert renders def as an OpenAPI document.
//
// Convert never fails. When two routes render to the same path and method
// the first one is kept.
func Convert(def definition.ApiDefinition, opts ...ConvertOption) *openapi3.Spec {
	co := &ConvertOptions{
		serverURL: DefaultServerURL,
	}
	for _, opt := range opts {
		opt(co)
	}

	info := openapi3.Info{
		Title:   def.Name,
		Version: def.Version,
	}
	if def.Description != "" {
		info.Description = ptr.Ref(def.Description)
	}
	if def.ID != "" {
		info.MapOfAnything = map[string]interface{}{APIIDExtension: def.ID}
	}

	spec := &openapi3.Spec{
		Openapi: Version,
		Info:    info,
		Servers: []openapi3.Server{
			{
				URL:         co.serverURL,
				Description: ptr.Ref("API Server"),
			},
		},
		Paths: openapi3.Paths{
			MapOfPathItemValues: make(map[string]openapi3.PathItem),
		},
		Components: &openapi3.Components{},
	}

	for _, route := range def.Routes {
		addRoute(spec, route)
	}

	if co.oauth2 != nil {
		addOAuth2(spec, *co.oauth2)
	}
	return spec
}

// PathKey renders a template as an OpenAPI path key. Catch-all
// segments keep their marker, {name..}, so a catch-all template never
// shares a path item with a single segment parameter of the same name.
func PathKey(t pathtmpl.Template) string {
	segs := t.Segments()
	if len(segs) == 0 {
		return "/"
	}

	var sb strings.Builder
	for _, seg := range segs {
		sb.WriteByte('/')
		switch s := seg.(type) {
		case pathtmpl.Literal:
			sb.WriteString(string(s))
		case pathtmpl.Param:
			sb.WriteString("{" + string(s) + "}")
		case pathtmpl.CatchAll:
			sb.WriteString("{" + catchAllPlaceholder(s) + "}")
		}
	}
	return sb.String()
}

// catchAllPlaceholder is both the path key placeholder and the
// parameter name of a catch-all, since OpenAPI requires them to match.
func catchAllPlaceholder(c pathtmpl.CatchAll) string {
	return string(c) + pathtmpl.CatchAllSuffix
}

func addRoute(spec *openapi3.Spec, route definition.Route) {
	key := PathKey(route.Path)
	method := route.Method.Lower()

	item, exists := spec.Paths.MapOfPathItemValues[key]
	if !exists {
		item = openapi3.PathItem{
			Parameters:           pathParameters(route.Path),
			MapOfOperationValues: make(map[string]openapi3.Operation),
		}
	}
	if _, dup := item.MapOfOperationValues[method]; dup {
		return
	}

	item.MapOfOperationValues[method] = operation(route)
	spec.Paths.MapOfPathItemValues[key] = item
}

func pathParameters(t pathtmpl.Template) []openapi3.ParameterOrRef {
	var params []openapi3.ParameterOrRef
	for _, seg := range t.Segments() {
		p := &openapi3.Parameter{
			In:       openapi3.ParameterInPath,
			Required: ptr.Ref(true),
			Schema: &openapi3.SchemaOrRef{
				Schema: &openapi3.Schema{
					Type: ptr.Ref(openapi3.SchemaTypeString),
				},
			},
		}

		switch s := seg.(type) {
		case pathtmpl.Param:
			p.Name = string(s)
		case pathtmpl.CatchAll:
			p.Name = catchAllPlaceholder(s)
			p.Description = ptr.Ref("Remaining path segments joined by /")
			p.MapOfAnything = map[string]interface{}{CatchAllExtension: true}
		default:
			continue
		}

		params = append(params, openapi3.ParameterOrRef{Parameter: p})
	}
	return params
}

func operation(route definition.Route) openapi3.Operation {
	desc := binding.Describe(route.Binding)

	op := openapi3.Operation{
		Summary: ptr.Ref(desc.Summary),
		Responses: openapi3.Responses{
			MapOfResponseOrRefValues: map[string]openapi3.ResponseOrRef{
				"200": {
					Response: &openapi3.Response{
						Description: http.StatusText(http.StatusOK),
						Content: map[string]openapi3.MediaType{
							desc.Response.ContentType: mediaType(desc.Response.Schema),
						},
					},
				},
			},
		},
		MapOfAnything: map[string]interface{}{
			BindingExtension: desc.Metadata,
		},
	}
	if route.Description != "" {
		op.Description = ptr.Ref(route.Description)
	}
	if route.TemplateName != "" {
		op.ID = ptr.Ref(route.TemplateName)
	}
	if desc.RequestBody != nil {
		op.RequestBody = &openapi3.RequestBodyOrRef{
			RequestBody: &openapi3.RequestBody{
				Required: ptr.Ref(true),
				Content: map[string]openapi3.MediaType{
					desc.RequestBody.ContentType: mediaType(desc.RequestBody.Schema),
				},
			},
		}
	}
	return op
}

func mediaType(s *jsonschema.Schema) openapi3.MediaType {
	if s == nil {
		return openapi3.MediaType{}
	}

	var schemaOrRef openapi3.SchemaOrRef
	schemaOrRef.FromJSONSchema(s.ToSchemaOrBool())

	return openapi3.MediaType{
		Schema: &schemaOrRef,
	}
}

var defaultScopes = map[string]string{
	"read":  "Read access",
	"write": "Write access",
}

func addOAuth2(spec *openapi3.Spec, cfg OAuth2) {
	scopes := defaultScopes
	if len(cfg.Scopes) > 0 {
		scopes = make(map[string]string, len(cfg.Scopes))
		for _, scope := range cfg.Scopes {
			scopes[scope] = "Access scope"
		}
	}

	spec.ComponentsEns().SecuritySchemesEns().WithMapOfSecuritySchemeOrRefValuesItem(
		OAuth2SchemeName,
		openapi3.SecuritySchemeOrRef{
			SecurityScheme: &openapi3.SecurityScheme{
				OAuth2SecurityScheme: &openapi3.OAuth2SecurityScheme{
					Description: ptr.Ref("OAuth2 authentication"),
					Flows: openapi3.OAuthFlows{
						AuthorizationCode: &openapi3.AuthorizationCodeOAuthFlow{
							AuthorizationURL: cfg.AuthorizationURL,
							TokenURL:         cfg.TokenURL,
							Scopes:           copyScopes(scopes),
						},
					},
				},
			},
		},
	)

	names := make([]string, 0, len(scopes))
	for name := range scopes {
		names = append(names, name)
	}
	sort.Strings(names)

	spec.Security = append(spec.Security, map[string][]string{OAuth2SchemeName: names})
}

func copyScopes(scopes map[string]string) map[string]string {
	m := make(map[string]string, len(scopes))
	for k, v := range scopes {
		m[k] = v
	}
	return m
}
