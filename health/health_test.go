// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func healthy(context.Context) (bool, error)   { return true, nil }
func unhealthy(context.Context) (bool, error) { return false, nil }

func TestAndMonitor_Healthy(t *testing.T) {
	t.Run("will return unhealthy", func(t *testing.T) {
		t.Run("if at least one monitor is unhealthy", func(t *testing.T) {
			var a, b Binary
			a.MarkHealthy()

			ok, err := And(&a, &b).Healthy(t.Context())
			if !assert.NoError(t, err) {
				return
			}
			assert.False(t, ok)
		})

		t.Run("if a monitor returns an error", func(t *testing.T) {
			checkErr := errors.New("upstream unreachable")

			ok, err := And(MonitorFunc(healthy), MonitorFunc(func(context.Context) (bool, error) {
				return true, checkErr
			})).Healthy(t.Context())
			if !assert.ErrorIs(t, err, checkErr) {
				return
			}
			assert.False(t, ok)
		})
	})

	t.Run("will return healthy", func(t *testing.T) {
		t.Run("if every monitor is healthy", func(t *testing.T) {
			var a Binary
			a.MarkHealthy()

			ok, err := And(&a, MonitorFunc(healthy)).Healthy(t.Context())
			if !assert.NoError(t, err) {
				return
			}
			assert.True(t, ok)
		})
	})
}

func TestHandler(t *testing.T) {
	t.Run("will respond with 200", func(t *testing.T) {
		t.Run("if the monitor is healthy", func(t *testing.T) {
			var b Binary
			b.MarkHealthy()

			w := httptest.NewRecorder()
			Handler(&b).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			var status Status
			if !assert.NoError(t, json.NewDecoder(w.Body).Decode(&status)) {
				return
			}
			assert.True(t, status.Healthy)
		})
	})

	t.Run("will respond with 503", func(t *testing.T) {
		t.Run("if the monitor reports an error", func(t *testing.T) {
			m := MonitorFunc(func(context.Context) (bool, error) { return true, errors.New("not ready") })

			w := httptest.NewRecorder()
			Handler(m).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			var status Status
			if !assert.NoError(t, json.NewDecoder(w.Body).Decode(&status)) {
				return
			}
			assert.False(t, status.Healthy)
			assert.Equal(t, "not ready", status.Error)
		})
	})
}
