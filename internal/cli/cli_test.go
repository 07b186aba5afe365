// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const shopDefinition = `
id: shop
name: Shop
version: 1.0.0
routes:
  - method: GET
    path: /users/{id}
    binding:
      type: Http
      upstream: http://users:8080
  - method: GET
    path: /static/{file..}
    binding:
      type: FileServer
      root_dir: public
  - method: GET
    path: /users/me
    binding:
      type: Http
      upstream: http://users:8080
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(p, []byte(content), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd(t *testing.T) {
	t.Run("will return a usage error", func(t *testing.T) {
		t.Run("if an unknown flag is given", func(t *testing.T) {
			_, err := execute("convert", "--unknown-flag")

			if !assert.ErrorIs(t, err, ErrUsage) {
				return
			}
			assert.Contains(t, err.Error(), "unknown flag")
			assert.Contains(t, err.Error(), "Usage:")
		})

		t.Run("if a required flag is missing", func(t *testing.T) {
			for _, sub := range []string{"convert", "validate", "routes"} {
				_, err := execute(sub)
				assert.ErrorIs(t, err, ErrUsage, sub)
			}
		})
	})
}

func TestConvertCmd(t *testing.T) {
	t.Run("will write yaml to stdout", func(t *testing.T) {
		t.Run("if no format or output is given", func(t *testing.T) {
			def := writeFile(t, "shop.yaml", shopDefinition)

			out, err := execute("convert", "--definition", def)
			if !assert.NoError(t, err) {
				return
			}
			assert.Contains(t, out, "openapi: 3.0.3")
			assert.Contains(t, out, "/users/{id}")
			assert.Contains(t, out, "x-catch-all: true")
		})
	})

	t.Run("will write json to a file", func(t *testing.T) {
		t.Run("with the oauth2 security scheme", func(t *testing.T) {
			def := writeFile(t, "shop.yaml", shopDefinition)
			dest := filepath.Join(t.TempDir(), "openapi.json")

			_, err := execute(
				"convert",
				"--definition", def,
				"--format", "json",
				"--out", dest,
				"--server-url", "/shop",
				"--oauth2-authorization-url", "https://auth.example.com/authorize",
				"--oauth2-token-url", "https://auth.example.com/token",
				"--oauth2-scopes", "orders",
			)
			if !assert.NoError(t, err) {
				return
			}

			b, err := os.ReadFile(dest)
			if !assert.NoError(t, err) {
				return
			}
			var doc struct {
				Servers  []struct{ URL string } `json:"servers"`
				Security []map[string][]string  `json:"security"`
			}
			if !assert.NoError(t, json.Unmarshal(b, &doc)) {
				return
			}
			if !assert.Len(t, doc.Servers, 1) {
				return
			}
			assert.Equal(t, "/shop", doc.Servers[0].URL)
			assert.Equal(t, []map[string][]string{{"oauth2": {"orders"}}}, doc.Security)
		})
	})

	t.Run("will return a usage error", func(t *testing.T) {
		t.Run("if the format is unknown", func(t *testing.T) {
			_, err := execute("convert", "--definition", "x.yaml", "--format", "xml")
			assert.ErrorIs(t, err, ErrUsage)
		})

		t.Run("if only one oauth2 url is given", func(t *testing.T) {
			_, err := execute("convert", "--definition", "x.yaml", "--oauth2-token-url", "https://auth/token")
			assert.ErrorIs(t, err, ErrUsage)
		})
	})

	t.Run("will pass the resolved config to the runner", func(t *testing.T) {
		t.Run("if the flags are valid", func(t *testing.T) {
			var captured *ConvertConfig
			convertRunner = func(_ context.Context, _ io.Writer, cfg *ConvertConfig) error {
				captured = cfg
				return nil
			}
			t.Cleanup(func() { convertRunner = runConvert })

			_, err := execute("convert", "--definition", "shop.yaml", "--format", " JSON ")
			if !assert.NoError(t, err) {
				return
			}
			if !assert.NotNil(t, captured) {
				return
			}
			assert.Equal(t, "shop.yaml", captured.Definition)
			assert.Equal(t, "json", captured.Format)
			assert.Nil(t, captured.OAuth2)
		})
	})
}

func TestValidateCmd(t *testing.T) {
	t.Run("will report ok", func(t *testing.T) {
		t.Run("if the document has no violations", func(t *testing.T) {
			doc := writeFile(t, "openapi.yaml", `
openapi: 3.0.3
info:
  title: Shop
  version: 1.0.0
paths:
  /users/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema:
          type: string
    get:
      responses:
        "200":
          description: OK
`)

			out, err := execute("validate", "--document", doc, "--conformance")
			if !assert.NoError(t, err) {
				return
			}
			assert.Contains(t, out, "ok")
		})
	})

	t.Run("will print every violation", func(t *testing.T) {
		t.Run("and return a ViolationsError", func(t *testing.T) {
			doc := writeFile(t, "openapi.json", `{
  "openapi": "3.0.3",
  "info": {"title": "Shop", "version": "1.0.0"},
  "paths": {
    "/users/{id}/orders/{order}": {
      "get": {"responses": {"200": {"description": "OK"}}}
    }
  }
}`)

			out, err := execute("validate", "--document", doc)

			var verr ViolationsError
			if !assert.True(t, errors.As(err, &verr)) {
				return
			}
			assert.Equal(t, 2, verr.Count)
			assert.Contains(t, out, "missing path parameter 'id'")
			assert.Contains(t, out, "missing path parameter 'order'")
		})
	})
}

func TestRoutesCmd(t *testing.T) {
	t.Run("will print routes", func(t *testing.T) {
		t.Run("in match priority order", func(t *testing.T) {
			def := writeFile(t, "shop.yaml", shopDefinition)

			out, err := execute("routes", "--definition", def)
			if !assert.NoError(t, err) {
				return
			}

			lines := strings.Split(strings.TrimSpace(out), "\n")
			if !assert.Len(t, lines, 4) {
				return
			}
			assert.True(t, strings.HasPrefix(lines[0], "METHOD"))
			assert.Contains(t, lines[1], "/users/me")
			assert.Contains(t, lines[2], "/users/{id}")
			assert.Contains(t, lines[3], "/static/{file..}")
			assert.Contains(t, lines[3], "FileServer(public)")
		})
	})
}

func TestServeCmd(t *testing.T) {
	t.Run("will pass the flags to the runner", func(t *testing.T) {
		t.Run("if definitions are repeated", func(t *testing.T) {
			var captured ServeConfig
			serveRunner = func(_ context.Context, cfg ServeConfig) error {
				captured = cfg
				return nil
			}
			t.Cleanup(func() { serveRunner = runServe })

			_, err := execute("serve", "-c", "gateway.yaml", "--definition", "a.yaml", "--definition", "b.yaml")
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, "gateway.yaml", captured.ConfigPath)
			assert.Equal(t, []string{"a.yaml", "b.yaml"}, captured.Definitions)
		})
	})
}
