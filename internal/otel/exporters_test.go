// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/log/logtest"
)

func TestSlogExporter_Export(t *testing.T) {
	t.Run("will write a json line", func(t *testing.T) {
		t.Run("with the message, logger name and attributes", func(t *testing.T) {
			var buf bytes.Buffer
			exp := &slogExporter{handler: slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})}

			factory := logtest.RecordFactory{
				Severity:             log.SeverityWarn,
				Body:                 log.StringValue("route not found"),
				InstrumentationScope: &instrumentation.Scope{Name: "github.com/z5labs/apigw/gateway"},
				Attributes: []log.KeyValue{
					log.String("path", "/users"),
					log.Int64("status", 404),
				},
			}

			err := exp.Export(t.Context(), []sdklog.Record{factory.NewRecord()})
			if !assert.NoError(t, err) {
				return
			}

			var line map[string]any
			if !assert.NoError(t, json.Unmarshal(buf.Bytes(), &line)) {
				return
			}
			assert.Equal(t, "route not found", line["msg"])
			assert.Equal(t, "WARN", line["level"])
			assert.Equal(t, "github.com/z5labs/apigw/gateway", line["logger"])
			assert.Equal(t, "/users", line["path"])
			assert.EqualValues(t, 404, line["status"])
			assert.NotContains(t, line, "otel")
		})
	})
}
