// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package definition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/z5labs/apigw/binding"
	"github.com/z5labs/apigw/pathtmpl"

	"github.com/z5labs/sdk-go/try"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type apiDefinitionDoc struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Version     string     `yaml:"version"`
	Description string     `yaml:"description"`
	Routes      []routeDoc `yaml:"routes"`
}

type routeDoc struct {
	Path         string     `yaml:"path"`
	Method       string     `yaml:"method"`
	Description  string     `yaml:"description"`
	TemplateName string     `yaml:"template_name"`
	Binding      bindingDoc `yaml:"binding"`
}

type bindingDoc struct {
	binding.Binding
}

// MissingBindingTypeError is returned when a binding mapping has no type tag.
type MissingBindingTypeError struct {
	Line int
}

func (e MissingBindingTypeError) Error() string {
	return fmt.Sprintf("binding at line %d is missing its type", e.Line)
}

// UnmarshalYAML implements the [yaml.Unmarshaler] interface.
// The binding variant is selected by the "type" key.
func (d *bindingDoc) UnmarshalYAML(node *yaml.Node) error {
	var tag struct {
		Type string `yaml:"type"`
	}
	err := node.Decode(&tag)
	if err != nil {
		return err
	}
	if tag.Type == "" {
		return MissingBindingTypeError{Line: node.Line}
	}

	kind, err := binding.ParseKind(tag.Type)
	if err != nil {
		return err
	}

	var b binding.Binding
	switch kind {
	case binding.KindHttp:
		b, err = decodeAs[binding.Http](node)
	case binding.KindWorker:
		b, err = decodeAs[binding.Worker](node)
	case binding.KindProxy:
		b, err = decodeAs[binding.Proxy](node)
	case binding.KindDefault:
		b, err = decodeAs[binding.Default](node)
	case binding.KindFileServer:
		b, err = decodeAs[binding.FileServer](node)
	case binding.KindSwaggerUI:
		b, err = decodeAs[binding.SwaggerUI](node)
	}
	if err != nil {
		return err
	}
	d.Binding = b
	return nil
}

func decodeAs[T binding.Binding](node *yaml.Node) (binding.Binding, error) {
	var v T
	err := node.Decode(&v)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Decode reads a YAML or JSON encoded [ApiDefinition] from r.
//
// Decode only checks that the document is well formed, i.e. every path
// template compiles, every method is known and every binding is tagged.
// Use [ApiDefinition.Validate] to check binding contracts.
func Decode(r io.Reader) (ApiDefinition, error) {
	var doc apiDefinitionDoc
	err := yaml.NewDecoder(r).Decode(&doc)
	if errors.Is(err, io.EOF) {
		return ApiDefinition{}, errors.New("api definition is empty")
	}
	if err != nil {
		return ApiDefinition{}, err
	}

	def := ApiDefinition{
		ID:          doc.ID,
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		Routes:      make([]Route, 0, len(doc.Routes)),
	}

	var errs []error
	for i, rd := range doc.Routes {
		route, err := rd.route()
		if err != nil {
			errs = append(errs, RouteError{Index: i, Method: Method(rd.Method), Path: rd.Path, Cause: err})
			continue
		}
		def.Routes = append(def.Routes, route)
	}
	if len(errs) > 0 {
		return ApiDefinition{}, errors.Join(errs...)
	}
	return def, nil
}

func (rd routeDoc) route() (Route, error) {
	tmpl, err := pathtmpl.Compile(rd.Path)
	if err != nil {
		return Route{}, err
	}
	method, err := ParseMethod(rd.Method)
	if err != nil {
		return Route{}, err
	}
	if rd.Binding.Binding == nil {
		return Route{}, errors.New("route is missing its binding")
	}

	route := Route{
		Path:         tmpl,
		Method:       method,
		Binding:      rd.Binding.Binding,
		Description:  rd.Description,
		TemplateName: rd.TemplateName,
	}
	return route, nil
}

// Load decodes the [ApiDefinition] stored in the file at path.
func Load(path string) (def ApiDefinition, err error) {
	f, err := os.Open(path)
	if err != nil {
		return ApiDefinition{}, err
	}
	defer try.Close(&err, f)

	def, err = Decode(f)
	if err != nil {
		return ApiDefinition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadAll loads every definition file concurrently. The returned
// definitions are in the same order as paths.
func LoadAll(ctx context.Context, paths ...string) ([]ApiDefinition, error) {
	defs := make([]ApiDefinition, len(paths))

	eg, egctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}

			def, err := Load(path)
			if err != nil {
				return err
			}
			defs[i] = def
			return nil
		})
	}

	err := eg.Wait()
	if err != nil {
		return nil, err
	}
	return defs, nil
}
