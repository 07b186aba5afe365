// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health reports whether the gateway is able to serve traffic.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Monitor represents anything which can report its current state of health.
type Monitor interface {
	Healthy(context.Context) (bool, error)
}

// MonitorFunc adapts a function to the [Monitor] interface.
type MonitorFunc func(context.Context) (bool, error)

// Healthy implements the [Monitor] interface.
func (f MonitorFunc) Healthy(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Binary is a [Monitor] with two states. It is safe for concurrent use
// and its zero value is unhealthy.
type Binary struct {
	healthy atomic.Bool
}

// MarkUnhealthy
func (b *Binary) MarkUnhealthy() {
	b.healthy.Store(false)
}

// MarkHealthy
func (b *Binary) MarkHealthy() {
	b.healthy.Store(true)
}

// Healthy implements the [Monitor] interface.
func (b *Binary) Healthy(context.Context) (bool, error) {
	return b.healthy.Load(), nil
}

// AndMonitor is healthy only when all of its monitors are. It stops at
// the first unhealthy monitor or error.
type AndMonitor []Monitor

// And
func And(ms ...Monitor) AndMonitor {
	return AndMonitor(ms)
}

// Healthy implements the [Monitor] interface.
func (am AndMonitor) Healthy(ctx context.Context) (bool, error) {
	for _, m := range am {
		healthy, err := m.Healthy(ctx)
		if !healthy || err != nil {
			return false, err
		}
	}
	return true, nil
}

// Status is the body written by [Handler].
type Status struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Handler serves the state of m as JSON, responding with
// 200 when healthy and 503 otherwise.
func Handler(m Monitor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthy, err := m.Healthy(r.Context())

		status := Status{Healthy: healthy && err == nil}
		if err != nil {
			status.Error = err.Error()
		}

		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})
}
