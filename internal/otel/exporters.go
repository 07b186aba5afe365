// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
)

type noopSpanExporter struct{}

func (noopSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }
func (noopSpanExporter) Shutdown(context.Context) error                          { return nil }

type noopMetricExporter struct{}

func (noopMetricExporter) Temporality(k metric.InstrumentKind) metricdata.Temporality {
	return metric.DefaultTemporalitySelector(k)
}

func (noopMetricExporter) Aggregation(k metric.InstrumentKind) metric.Aggregation {
	return metric.DefaultAggregationSelector(k)
}

func (noopMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }
func (noopMetricExporter) ForceFlush(context.Context) error                          { return nil }
func (noopMetricExporter) Shutdown(context.Context) error                            { return nil }

// slogExporter writes log records through a local slog.Handler. It is
// used whenever logs are not shipped over OTLP.
type slogExporter struct {
	handler slog.Handler
}

func (e *slogExporter) Export(ctx context.Context, records []sdklog.Record) error {
	const offset = log.SeverityDebug - log.Severity(slog.LevelDebug)

	for _, record := range records {
		sr := slog.NewRecord(
			record.Timestamp(),
			slog.Level(record.Severity()-offset),
			record.Body().AsString(),
			0,
		)
		sr.AddAttrs(slog.String("logger", record.InstrumentationScope().Name))

		record.WalkAttributes(func(kv log.KeyValue) bool {
			sr.AddAttrs(slog.Attr{Key: kv.Key, Value: slogValue(kv.Value)})
			return true
		})

		if record.TraceID().IsValid() {
			sr.AddAttrs(slog.Group(
				"otel",
				slog.String("trace_id", record.TraceID().String()),
				slog.String("span_id", record.SpanID().String()),
			))
		}

		err := e.handler.Handle(ctx, sr)
		if err != nil {
			return err
		}
	}
	return nil
}

func slogValue(v log.Value) slog.Value {
	switch v.Kind() {
	case log.KindBool:
		return slog.BoolValue(v.AsBool())
	case log.KindInt64:
		return slog.Int64Value(v.AsInt64())
	case log.KindFloat64:
		return slog.Float64Value(v.AsFloat64())
	case log.KindString:
		return slog.StringValue(v.AsString())
	case log.KindBytes:
		return slog.AnyValue(v.AsBytes())
	case log.KindSlice:
		items := v.AsSlice()
		vals := make([]any, len(items))
		for i, item := range items {
			vals[i] = slogValue(item).Any()
		}
		return slog.AnyValue(vals)
	case log.KindMap:
		kvs := v.AsMap()
		attrs := make([]slog.Attr, len(kvs))
		for i, kv := range kvs {
			attrs[i] = slog.Attr{Key: kv.Key, Value: slogValue(kv.Value)}
		}
		return slog.GroupValue(attrs...)
	default:
		return slog.StringValue(v.String())
	}
}

func (e *slogExporter) ForceFlush(context.Context) error { return nil }
func (e *slogExporter) Shutdown(context.Context) error   { return nil }
