// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gateway

import (
	"context"
	"net/http"

	"github.com/z5labs/apigw/health"

	"github.com/go-chi/chi/v5"
)

// NewMux mounts every gateway under its prefix and adds the
// liveness and readiness endpoints. Readiness reports ready.
func NewMux(ready health.Monitor, gateways ...*Gateway) *chi.Mux {
	mux := chi.NewMux()

	live := health.MonitorFunc(func(context.Context) (bool, error) {
		return true, nil
	})
	mux.Method(http.MethodGet, "/health/liveness", health.Handler(live))
	mux.Method(http.MethodGet, "/health/readiness", health.Handler(ready))

	for _, gw := range gateways {
		prefix := gw.Prefix()
		if prefix == "" {
			mux.Mount("/", gw)
			continue
		}
		mux.Mount(prefix, http.StripPrefix(prefix, gw))
	}
	return mux
}
