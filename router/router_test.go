// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package router

import (
	"fmt"
	"sync"
	"testing"

	"github.com/z5labs/apigw/binding"
	"github.com/z5labs/apigw/definition"
	"github.com/z5labs/apigw/pathtmpl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func route(method definition.Method, path string) *definition.Route {
	return &definition.Route{
		Path:    pathtmpl.MustCompile(path),
		Method:  method,
		Binding: binding.Proxy{Destination: path},
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("will return a DuplicateRouteError", func(t *testing.T) {
		t.Run("if the method and template are structurally equal", func(t *testing.T) {
			r := NewRegistry()

			first := route(definition.MethodGet, "/users/{id}")
			require.NoError(t, r.Register(first))

			err := r.Register(route(definition.MethodGet, "users//{id}/"))

			var dre DuplicateRouteError
			if !assert.ErrorAs(t, err, &dre) {
				return
			}
			assert.Equal(t, definition.MethodGet, dre.Method)

			routes := r.Routes()
			if !assert.Len(t, routes, 1) {
				return
			}
			assert.Same(t, first, routes[0])
		})
	})

	t.Run("will accept the same template", func(t *testing.T) {
		t.Run("if the methods differ", func(t *testing.T) {
			r := NewRegistry()

			require.NoError(t, r.Register(route(definition.MethodGet, "/users/{id}")))
			assert.NoError(t, r.Register(route(definition.MethodPut, "/users/{id}")))
		})

		t.Run("if parameter names differ", func(t *testing.T) {
			r := NewRegistry()

			require.NoError(t, r.Register(route(definition.MethodGet, "/users/{id}")))
			assert.NoError(t, r.Register(route(definition.MethodGet, "/users/{name}")))
		})
	})

	t.Run("will return ErrFrozen", func(t *testing.T) {
		t.Run("if the registry was frozen explicitly", func(t *testing.T) {
			r := NewRegistry()
			r.Freeze()

			err := r.Register(route(definition.MethodGet, "/a"))
			assert.ErrorIs(t, err, ErrFrozen)
		})

		t.Run("if matching has begun", func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Register(route(definition.MethodGet, "/a")))

			_, ok := r.Match(definition.MethodGet, "/a")
			require.True(t, ok)
			assert.True(t, r.Frozen())

			err := r.Register(route(definition.MethodGet, "/b"))
			assert.ErrorIs(t, err, ErrFrozen)
		})
	})
}

func TestRegistry_Match(t *testing.T) {
	t.Run("will prefer the literal route", func(t *testing.T) {
		t.Run("regardless of registration order", func(t *testing.T) {
			r := NewRegistry()
			param := route(definition.MethodGet, "/users/{id}")
			literal := route(definition.MethodGet, "/users/me")
			require.NoError(t, r.Register(param))
			require.NoError(t, r.Register(literal))

			m, ok := r.Match(definition.MethodGet, "/users/me")
			require.True(t, ok)
			assert.Same(t, literal, m.Route)
			assert.Empty(t, m.Params)

			m, ok = r.Match(definition.MethodGet, "/users/42")
			require.True(t, ok)
			assert.Same(t, param, m.Route)
			assert.Equal(t, map[string]string{"id": "42"}, m.Params)
		})
	})

	t.Run("will prefer a non catch-all route", func(t *testing.T) {
		t.Run("if both have the same leading literals", func(t *testing.T) {
			r := NewRegistry()
			catchAll := route(definition.MethodGet, "/files/{path..}")
			single := route(definition.MethodGet, "/files/{name}")
			require.NoError(t, r.Register(catchAll))
			require.NoError(t, r.Register(single))

			m, ok := r.Match(definition.MethodGet, "/files/readme.md")
			require.True(t, ok)
			assert.Same(t, single, m.Route)

			m, ok = r.Match(definition.MethodGet, "/files/docs/readme.md")
			require.True(t, ok)
			assert.Same(t, catchAll, m.Route)
			assert.Equal(t, map[string]string{"path": "docs/readme.md"}, m.Params)
		})
	})

	t.Run("will prefer the first registered route", func(t *testing.T) {
		t.Run("if specificity ties", func(t *testing.T) {
			r := NewRegistry()
			first := route(definition.MethodGet, "/{tenant}/a")
			second := route(definition.MethodGet, "/{tenant}/{kind}")
			require.NoError(t, r.Register(first))
			require.NoError(t, r.Register(second))

			m, ok := r.Match(definition.MethodGet, "/acme/a")
			require.True(t, ok)
			assert.Same(t, first, m.Route)
		})
	})

	t.Run("will not match", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(route(definition.MethodGet, "/api/v1/users/{id}")))
		require.NoError(t, r.Register(route(definition.MethodGet, "/api/files/{path..}")))

		testCases := []struct {
			name   string
			method definition.Method
			path   string
		}{
			{name: "if a parameter segment is missing", method: definition.MethodGet, path: "/api/v1/users"},
			{name: "if a catch-all has nothing to consume", method: definition.MethodGet, path: "/api/files"},
			{name: "if no route has the method", method: definition.MethodPost, path: "/api/v1/users/1"},
		}

		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				_, ok := r.Match(testCase.method, testCase.path)
				assert.False(t, ok)
			})
		}
	})

	t.Run("will be safe for concurrent use", func(t *testing.T) {
		r := NewRegistry()
		for i := range 10 {
			require.NoError(t, r.Register(route(definition.MethodGet, fmt.Sprintf("/r%d/{id}", i))))
		}

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m, ok := r.Match(definition.MethodGet, fmt.Sprintf("/r%d/x", i))
				assert.True(t, ok)
				assert.Equal(t, "x", m.Params["id"])
			}()
		}
		wg.Wait()
	})
}

func TestRegistry_Allowed(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(route(definition.MethodPut, "/users/{id}")))
	require.NoError(t, r.Register(route(definition.MethodGet, "/users/{id}")))
	require.NoError(t, r.Register(route(definition.MethodPost, "/users")))

	assert.Equal(t, []definition.Method{definition.MethodGet, definition.MethodPut}, r.Allowed("/users/1"))
	assert.Empty(t, r.Allowed("/nothing"))
}

func TestBuild(t *testing.T) {
	t.Run("will build a frozen registry", func(t *testing.T) {
		def := definition.ApiDefinition{
			ID:      "a",
			Name:    "a",
			Version: "1",
			Routes: []definition.Route{
				*route(definition.MethodGet, "/users/{id}"),
				*route(definition.MethodGet, "/users/me"),
			},
		}

		r, err := Build(def)
		require.NoError(t, err)
		assert.True(t, r.Frozen())

		m, ok := r.Match(definition.MethodGet, "/users/me")
		require.True(t, ok)
		assert.Equal(t, "/users/me", m.Route.Path.String())
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if two routes collide", func(t *testing.T) {
			def := definition.ApiDefinition{
				ID:      "a",
				Name:    "a",
				Version: "1",
				Routes: []definition.Route{
					*route(definition.MethodGet, "/users/{id}"),
					*route(definition.MethodGet, "/users/{id}"),
				},
			}

			_, err := Build(def)

			var dre DuplicateRouteError
			assert.ErrorAs(t, err, &dre)
		})

		t.Run("if a binding contract is violated", func(t *testing.T) {
			def := definition.ApiDefinition{
				ID:      "a",
				Name:    "a",
				Version: "1",
				Routes: []definition.Route{
					{
						Path:    pathtmpl.MustCompile("/static/{name}"),
						Method:  definition.MethodGet,
						Binding: binding.FileServer{RootDir: "public"},
					},
				},
			}

			_, err := Build(def)

			var ce binding.ContractError
			assert.ErrorAs(t, err, &ce)
		})
	})
}
