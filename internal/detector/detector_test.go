// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package detector

import (
	"errors"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceName(t *testing.T) {
	t.Run("will use the configured name", func(t *testing.T) {
		t.Run("if it is not empty", func(t *testing.T) {
			name := serviceName("apigw", func() (string, error) { return "/bin/other", nil })
			assert.Equal(t, "apigw", name)
		})
	})

	t.Run("will fall back to the executable", func(t *testing.T) {
		t.Run("if no name is configured", func(t *testing.T) {
			name := serviceName("", func() (string, error) { return "/usr/local/bin/apigw", nil })
			assert.Equal(t, "unknown_service:apigw", name)
		})

		t.Run("if the executable cannot be found", func(t *testing.T) {
			name := serviceName("", func() (string, error) { return "", errors.New("no executable") })
			assert.Equal(t, "unknown_service:go", name)
		})
	})
}

func TestServiceVersion(t *testing.T) {
	t.Run("will use the configured version", func(t *testing.T) {
		t.Run("if it is not empty", func(t *testing.T) {
			v := serviceVersion("v1.2.3", func() (*debug.BuildInfo, bool) { return nil, false })
			assert.Equal(t, "v1.2.3", v)
		})
	})

	t.Run("will fall back to build info", func(t *testing.T) {
		t.Run("if no version is configured", func(t *testing.T) {
			v := serviceVersion("", func() (*debug.BuildInfo, bool) {
				return &debug.BuildInfo{Main: debug.Module{Version: "v0.4.0"}}, true
			})
			assert.Equal(t, "v0.4.0", v)
		})

		t.Run("and report a development build if none is available", func(t *testing.T) {
			v := serviceVersion("", func() (*debug.BuildInfo, bool) { return nil, false })
			assert.Equal(t, "(devel)", v)
		})
	})

	t.Run("will detect a resource", func(t *testing.T) {
		t.Run("with the service version attribute", func(t *testing.T) {
			r, err := ServiceVersion("v9").Detect(t.Context())
			if !assert.NoError(t, err) {
				return
			}
			v, ok := r.Set().Value("service.version")
			if !assert.True(t, ok) {
				return
			}
			assert.Equal(t, "v9", v.AsString())
		})
	})
}
