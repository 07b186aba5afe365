// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otel installs the global OpenTelemetry providers used by the gateway.
package otel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/z5labs/apigw/concurrent"
	"github.com/z5labs/apigw/config"
	"github.com/z5labs/apigw/internal/detector"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Initialize builds the trace, metric and log providers described by cfg
// and registers them globally. Signals sharing an OTLP gRPC target share
// a single client connection.
func Initialize(ctx context.Context, cfg config.OTel) error {
	r, err := resource.Detect(
		ctx,
		detector.TelemetrySDK(),
		detector.Host(),
		detector.ServiceName(cfg.Resource.ServiceName),
		detector.ServiceVersion(cfg.Resource.ServiceVersion),
	)
	if err != nil {
		return err
	}

	conns := &connPool{
		cache: concurrent.NewCache[string, *grpc.ClientConn](),
	}

	err = initTracing(ctx, cfg.Trace, r, conns)
	if err != nil {
		return err
	}
	err = initMetrics(ctx, cfg.Metric, r, conns)
	if err != nil {
		return err
	}
	return initLogging(ctx, cfg.Log, r, conns)
}

type connPool struct {
	cache *concurrent.Cache[string, *grpc.ClientConn]
}

func (p *connPool) dial(target string) (*grpc.ClientConn, error) {
	return p.cache.GetOr(target, func() (*grpc.ClientConn, error) {
		return grpc.NewClient(
			target,
			// TODO: support secure transport credentials
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	})
}

// UnknownOTLPConnTypeError is returned for an OTLP transport other than http or grpc.
type UnknownOTLPConnTypeError struct {
	Type config.OTLPConnType
}

func (e UnknownOTLPConnTypeError) Error() string {
	return fmt.Sprintf("unknown otlp conn type: %q", e.Type)
}

// UnknownSpanProcessorTypeError
type UnknownSpanProcessorTypeError struct {
	Type config.SpanProcessorType
}

func (e UnknownSpanProcessorTypeError) Error() string {
	return fmt.Sprintf("unknown span processor type: %q", e.Type)
}

// UnknownMetricReaderTypeError
type UnknownMetricReaderTypeError struct {
	Type config.MetricReaderType
}

func (e UnknownMetricReaderTypeError) Error() string {
	return fmt.Sprintf("unknown metric reader type: %q", e.Type)
}

// UnknownLogProcessorTypeError
type UnknownLogProcessorTypeError struct {
	Type config.LogProcessorType
}

func (e UnknownLogProcessorTypeError) Error() string {
	return fmt.Sprintf("unknown log processor type: %q", e.Type)
}

func initTracing(ctx context.Context, cfg config.Trace, r *resource.Resource, conns *connPool) error {
	var sp trace.SpanProcessor
	switch cfg.Processor.Type {
	case config.BatchSpanProcessorType:
		exp, err := spanExporter(ctx, cfg.Exporter, conns)
		if err != nil {
			return err
		}
		sp = trace.NewBatchSpanProcessor(
			exp,
			trace.WithBatchTimeout(cfg.Processor.Batch.ExportInterval),
			trace.WithMaxExportBatchSize(cfg.Processor.Batch.MaxSize),
		)
	default:
		return UnknownSpanProcessorTypeError{Type: cfg.Processor.Type}
	}

	tp := trace.NewTracerProvider(
		trace.WithSpanProcessor(sp),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.Sampling.Ratio))),
		trace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	return nil
}

func spanExporter(ctx context.Context, cfg config.Exporter, conns *connPool) (trace.SpanExporter, error) {
	if cfg.Type != config.OTLPExporterType {
		return noopSpanExporter{}, nil
	}

	switch cfg.OTLP.Type {
	case config.OTLPGRPC:
		cc, err := conns.dial(cfg.OTLP.Target)
		if err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(cc))
	case config.OTLPHTTP:
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTLP.Target))
	default:
		return nil, UnknownOTLPConnTypeError{Type: cfg.OTLP.Type}
	}
}

func initMetrics(ctx context.Context, cfg config.Metric, r *resource.Resource, conns *connPool) error {
	var reader metric.Reader
	switch cfg.Reader.Type {
	case config.PeriodicReaderType:
		exp, err := metricExporter(ctx, cfg.Exporter, conns)
		if err != nil {
			return err
		}
		reader = metric.NewPeriodicReader(
			exp,
			metric.WithInterval(cfg.Reader.Periodic.ExportInterval),
			metric.WithProducer(runtime.NewProducer()),
		)
	default:
		return UnknownMetricReaderTypeError{Type: cfg.Reader.Type}
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(r),
	)
	otel.SetMeterProvider(mp)

	return runtime.Start(
		runtime.WithMinimumReadMemStatsInterval(time.Second),
	)
}

func metricExporter(ctx context.Context, cfg config.Exporter, conns *connPool) (metric.Exporter, error) {
	if cfg.Type != config.OTLPExporterType {
		return noopMetricExporter{}, nil
	}

	switch cfg.OTLP.Type {
	case config.OTLPGRPC:
		cc, err := conns.dial(cfg.OTLP.Target)
		if err != nil {
			return nil, err
		}
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(cc))
	case config.OTLPHTTP:
		return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.OTLP.Target))
	default:
		return nil, UnknownOTLPConnTypeError{Type: cfg.OTLP.Type}
	}
}

func initLogging(ctx context.Context, cfg config.Log, r *resource.Resource, conns *connPool) error {
	exp, err := logExporter(ctx, cfg.Exporter, conns)
	if err != nil {
		return err
	}

	var lp log.Processor
	switch cfg.Processor.Type {
	case config.SimpleLogProcessorType:
		lp = log.NewSimpleProcessor(exp)
	case config.BatchLogProcessorType:
		lp = log.NewBatchProcessor(
			exp,
			log.WithExportInterval(cfg.Processor.Batch.ExportInterval),
			log.WithExportMaxBatchSize(cfg.Processor.Batch.MaxSize),
		)
	default:
		return UnknownLogProcessorTypeError{Type: cfg.Processor.Type}
	}

	provider := log.NewLoggerProvider(
		log.WithProcessor(newFilteringProcessor(lp, cfg.Levels)),
		log.WithResource(r),
	)
	global.SetLoggerProvider(provider)
	return nil
}

func logExporter(ctx context.Context, cfg config.Exporter, conns *connPool) (log.Exporter, error) {
	if cfg.Type != config.OTLPExporterType {
		return &slogExporter{
			handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		}, nil
	}

	switch cfg.OTLP.Type {
	case config.OTLPGRPC:
		cc, err := conns.dial(cfg.OTLP.Target)
		if err != nil {
			return nil, err
		}
		return otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(cc))
	case config.OTLPHTTP:
		return otlploghttp.New(ctx, otlploghttp.WithEndpoint(cfg.OTLP.Target))
	default:
		return nil, UnknownOTLPConnTypeError{Type: cfg.OTLP.Type}
	}
}
