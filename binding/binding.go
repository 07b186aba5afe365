// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package binding describes what a matched route dispatches to.
//
// A [Binding] is a closed set of variants: [Http], [Worker], [Proxy],
// [Default], [FileServer] and [SwaggerUI]. Consumers are expected to
// handle every variant with a type switch.
package binding

import (
	"fmt"
)

// Kind names a [Binding] variant.
type Kind string

const (
	KindHttp       Kind = "Http"
	KindWorker     Kind = "Worker"
	KindProxy      Kind = "Proxy"
	KindDefault    Kind = "Default"
	KindFileServer Kind = "FileServer"
	KindSwaggerUI  Kind = "SwaggerUI"
)

// Kinds lists every [Kind] in declaration order.
func Kinds() []Kind {
	return []Kind{KindHttp, KindWorker, KindProxy, KindDefault, KindFileServer, KindSwaggerUI}
}

// UnknownKindError is returned when a binding kind name is not recognized.
type UnknownKindError struct {
	Kind string
}

func (e UnknownKindError) Error() string {
	return fmt.Sprintf("unknown binding type: %q", e.Kind)
}

// ParseKind maps a binding type name onto its [Kind].
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", UnknownKindError{Kind: s}
}

// Binding is the dispatch target of a route.
type Binding interface {
	Kind() Kind

	binding()
}

// Http passes the request through unchanged to Upstream.
type Http struct {
	Upstream string `yaml:"upstream" json:"upstream"`
}

func (Http) Kind() Kind { return KindHttp }
func (Http) binding()   {}

// Worker invokes Function on a worker of Component.
// An empty Worker name lets the executor pick an ephemeral worker.
type Worker struct {
	Component string `yaml:"component" json:"component"`
	Worker    string `yaml:"worker,omitempty" json:"worker,omitempty"`
	Function  string `yaml:"function" json:"function"`
}

func (Worker) Kind() Kind { return KindWorker }
func (Worker) binding()   {}

// Proxy reverse proxies to a destination which is configured
// outside of the API definition and referenced by name.
type Proxy struct {
	Destination string `yaml:"destination" json:"destination"`
}

func (Proxy) Kind() Kind { return KindProxy }
func (Proxy) binding()   {}

// Default is a typed function call. InputType and OutputType are used
// for request/response coercion and for schema synthesis.
type Default struct {
	InputType    Type   `yaml:"input_type" json:"input_type"`
	OutputType   Type   `yaml:"output_type" json:"output_type"`
	FunctionName string `yaml:"function_name" json:"function_name"`
}

func (Default) Kind() Kind { return KindDefault }
func (Default) binding()   {}

// FileServer serves files found under RootDir, which is relative
// to the sandbox directory of the transport.
type FileServer struct {
	RootDir string `yaml:"root_dir" json:"root_dir"`
}

func (FileServer) Kind() Kind { return KindFileServer }
func (FileServer) binding()   {}

// SwaggerUI serves an embedded documentation UI for the gateway's own
// OpenAPI document, which is served at SpecPath.
type SwaggerUI struct {
	SpecPath string `yaml:"spec_path" json:"spec_path"`
}

func (SwaggerUI) Kind() Kind { return KindSwaggerUI }
func (SwaggerUI) binding()   {}

// String renders a short human readable form of the binding.
func String(b Binding) string {
	switch v := b.(type) {
	case Http:
		return fmt.Sprintf("Http(%s)", v.Upstream)
	case Worker:
		return fmt.Sprintf("Worker(%s, %s, %s)", v.Component, v.Worker, v.Function)
	case Proxy:
		return fmt.Sprintf("Proxy(%s)", v.Destination)
	case Default:
		return fmt.Sprintf("Default(%s, %s, %s)", v.InputType, v.OutputType, v.FunctionName)
	case FileServer:
		return fmt.Sprintf("FileServer(%s)", v.RootDir)
	case SwaggerUI:
		return fmt.Sprintf("SwaggerUI(%s)", v.SpecPath)
	default:
		return fmt.Sprintf("%T", b)
	}
}
