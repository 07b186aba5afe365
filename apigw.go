// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package apigw provides the base config and logging shared by
// every part of the API gateway.
package apigw

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a structured logger which is bridged to the
// global OpenTelemetry log provider.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// LogHandler returns the [slog.Handler] backing [Logger].
func LogHandler(name string) slog.Handler {
	return otelslog.NewHandler(name)
}
