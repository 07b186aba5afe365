// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package binding

import (
	"fmt"

	"github.com/swaggest/jsonschema-go"
	"github.com/z5labs/sdk-go/ptr"
)

// Media is a content type together with an optional schema.
type Media struct {
	ContentType string
	Schema      *jsonschema.Schema
}

// Description is the externally visible shape of a binding.
type Description struct {
	Kind        Kind
	Summary     string
	RequestBody *Media
	Response    Media

	// Metadata is rendered as the x-binding extension of an operation.
	Metadata map[string]any
}

// Describe maps b onto the operation shape it implies.
// It never fails; unknown bindings are described as opaque JSON.
func Describe(b Binding) Description {
	switch v := b.(type) {
	case Http:
		return Description{
			Kind:     KindHttp,
			Summary:  "Forwarded to " + v.Upstream,
			Response: Media{ContentType: "application/json"},
			Metadata: map[string]any{"type": string(KindHttp), "upstream": v.Upstream},
		}
	case Worker:
		md := map[string]any{
			"type":      string(KindWorker),
			"component": v.Component,
			"function":  v.Function,
		}
		if v.Worker != "" {
			md["worker"] = v.Worker
		}
		return Description{
			Kind:     KindWorker,
			Summary:  fmt.Sprintf("Invokes %s on component %s", v.Function, v.Component),
			Response: Media{ContentType: "application/json"},
			Metadata: md,
		}
	case Proxy:
		return Description{
			Kind:     KindProxy,
			Summary:  "Proxied to " + v.Destination,
			Response: Media{ContentType: "application/json"},
			Metadata: map[string]any{"type": string(KindProxy), "destination": v.Destination},
		}
	case Default:
		in := v.InputType.JSONSchema()
		out := v.OutputType.JSONSchema()
		return Description{
			Kind:        KindDefault,
			Summary:     "Calls " + v.FunctionName,
			RequestBody: &Media{ContentType: "application/json", Schema: &in},
			Response:    Media{ContentType: "application/json", Schema: &out},
			Metadata: map[string]any{
				"type":          string(KindDefault),
				"function_name": v.FunctionName,
				"input_type":    v.InputType.String(),
				"output_type":   v.OutputType.String(),
			},
		}
	case FileServer:
		return Description{
			Kind:    KindFileServer,
			Summary: "Serves files from " + v.RootDir,
			Response: Media{
				ContentType: "application/octet-stream",
				Schema: &jsonschema.Schema{
					Type:   ptr.Ref(jsonschema.String.Type()),
					Format: ptr.Ref("binary"),
				},
			},
			Metadata: map[string]any{"type": string(KindFileServer), "root_dir": v.RootDir},
		}
	case SwaggerUI:
		return Description{
			Kind:    KindSwaggerUI,
			Summary: "API documentation",
			Response: Media{
				ContentType: "text/html",
				Schema:      &jsonschema.Schema{Type: ptr.Ref(jsonschema.String.Type())},
			},
			Metadata: map[string]any{"type": string(KindSwaggerUI), "spec_path": v.SpecPath},
		}
	default:
		return Description{
			Summary:  "Unknown binding",
			Response: Media{ContentType: "application/json"},
			Metadata: map[string]any{"type": fmt.Sprintf("%T", b)},
		}
	}
}
