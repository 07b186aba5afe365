// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package router resolves request paths against a registry of routes.
//
// A [Registry] has two phases. During the build phase routes are registered.
// Once frozen, either explicitly with [Registry.Freeze] or implicitly by the
// first [Registry.Match], the registry is read-only and safe for concurrent use.
package router

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/z5labs/apigw/definition"
	"github.com/z5labs/apigw/pathtmpl"
)

// ErrFrozen is returned when registering a route after the registry is frozen.
var ErrFrozen = errors.New("route registry is frozen")

// DuplicateRouteError is returned when a route with a structurally
// equal (method, template) pair is already registered.
type DuplicateRouteError struct {
	Method definition.Method
	Path   string
}

func (e DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route: %s %s", e.Method, e.Path)
}

// RouteMatch is a successful match of a request onto a route.
type RouteMatch struct {
	Route  *definition.Route
	Params map[string]string
}

type entry struct {
	route *definition.Route
	order int
}

// Registry stores routes per method in match priority order.
type Registry struct {
	mu     sync.Mutex
	frozen atomic.Bool
	n      int
	routes map[definition.Method][]entry
}

// NewRegistry returns an empty registry in its build phase.
func NewRegistry() *Registry {
	return &Registry{
		routes: make(map[definition.Method][]entry),
	}
}

// Register adds route to the registry. Routes are matched in order of
// specificity; equally specific routes keep their registration order.
func (r *Registry) Register(route *definition.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return ErrFrozen
	}

	for _, e := range r.routes[route.Method] {
		if e.route.Path.Equal(route.Path) {
			return DuplicateRouteError{Method: route.Method, Path: route.Path.String()}
		}
	}

	r.routes[route.Method] = append(r.routes[route.Method], entry{route: route, order: r.n})
	r.n++
	return nil
}

// Freeze ends the build phase. It is safe to call more than once.
func (r *Registry) Freeze() {
	if r.frozen.Load() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return
	}

	for _, entries := range r.routes {
		sort.SliceStable(entries, func(i, j int) bool {
			return moreSpecific(entries[i], entries[j])
		})
	}
	r.frozen.Store(true)
}

// Frozen reports whether the registry has left its build phase.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

func moreSpecific(a, b entry) bool {
	al, bl := a.route.Path.LeadingLiterals(), b.route.Path.LeadingLiterals()
	if al != bl {
		return al > bl
	}
	ac, bc := a.route.Path.HasCatchAll(), b.route.Path.HasCatchAll()
	if ac != bc {
		return !ac
	}
	return a.order < b.order
}

// Match resolves method and path onto the most specific route.
// The first call freezes the registry.
func (r *Registry) Match(method definition.Method, path string) (RouteMatch, bool) {
	r.Freeze()
	return matchSegments(r.routes[method], pathtmpl.Split(path))
}

func matchSegments(entries []entry, parts []string) (RouteMatch, bool) {
	for _, e := range entries {
		params, ok := e.route.Path.Match(parts)
		if ok {
			return RouteMatch{Route: e.route, Params: params}, true
		}
	}
	return RouteMatch{}, false
}

// Allowed returns every method with a route matching path,
// in the order of [definition.Methods].
func (r *Registry) Allowed(path string) []definition.Method {
	r.Freeze()

	parts := pathtmpl.Split(path)
	var methods []definition.Method
	for _, m := range definition.Methods() {
		if _, ok := matchSegments(r.routes[m], parts); ok {
			methods = append(methods, m)
		}
	}
	return methods
}

// Routes returns every registered route in match priority order,
// grouped by method in the order of [definition.Methods].
func (r *Registry) Routes() []*definition.Route {
	r.Freeze()

	var routes []*definition.Route
	for _, m := range definition.Methods() {
		for _, e := range r.routes[m] {
			routes = append(routes, e.route)
		}
	}
	return routes
}

// Build validates def, registers all of its routes and freezes the registry.
func Build(def definition.ApiDefinition) (*Registry, error) {
	err := def.Validate()
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	var errs []error
	for i := range def.Routes {
		err := r.Register(&def.Routes[i])
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	r.Freeze()
	return r, nil
}
