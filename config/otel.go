// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config defines the telemetry configuration of the gateway.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Resource describes the service which emits telemetry.
type Resource struct {
	ServiceName    string `config:"service_name"`
	ServiceVersion string `config:"service_version"`
}

// Batch
type Batch struct {
	ExportInterval time.Duration `config:"export_interval"`
	MaxSize        int           `config:"max_size"`
}

// OTLPConnType selects the OTLP transport.
type OTLPConnType string

const (
	OTLPHTTP OTLPConnType = "http"
	OTLPGRPC OTLPConnType = "grpc"
)

// OTLP
type OTLP struct {
	Type   OTLPConnType `config:"type"`
	Target string       `config:"target"`
}

// ExporterType selects where a signal is exported to. Any type other
// than [OTLPExporterType] discards traces and metrics and writes logs
// as JSON to stdout.
type ExporterType string

const (
	NoneExporterType ExporterType = "none"
	OTLPExporterType ExporterType = "otlp"
)

// SpanProcessorType
type SpanProcessorType string

const (
	BatchSpanProcessorType SpanProcessorType = "batch"
)

// SpanProcessor
type SpanProcessor struct {
	Type  SpanProcessorType `config:"type"`
	Batch Batch             `config:"batch"`
}

// SpanSampling
type SpanSampling struct {
	Ratio float64 `config:"ratio"`
}

// Exporter
type Exporter struct {
	Type ExporterType `config:"type"`
	OTLP OTLP         `config:"otlp"`
}

// Trace
type Trace struct {
	Processor SpanProcessor `config:"processor"`
	Sampling  SpanSampling  `config:"sampling"`
	Exporter  Exporter      `config:"exporter"`
}

// MetricReaderType
type MetricReaderType string

const (
	PeriodicReaderType MetricReaderType = "periodic"
)

// PeriodicReader
type PeriodicReader struct {
	ExportInterval time.Duration `config:"export_interval"`
}

// MetricReader
type MetricReader struct {
	Type     MetricReaderType `config:"type"`
	Periodic PeriodicReader   `config:"periodic"`
}

// Metric
type Metric struct {
	Reader   MetricReader `config:"reader"`
	Exporter Exporter     `config:"exporter"`
}

// LogProcessorType
type LogProcessorType string

const (
	SimpleLogProcessorType LogProcessorType = "simple"
	BatchLogProcessorType  LogProcessorType = "batch"
)

// LogProcessor
type LogProcessor struct {
	Type  LogProcessorType `config:"type"`
	Batch Batch            `config:"batch"`
}

// Log configures log export.
//
// Levels maps logger names to a minimum level (debug, info, warn or error).
// Names match by prefix, so "github.com/z5labs/apigw" also covers
// "github.com/z5labs/apigw/gateway".
type Log struct {
	Processor LogProcessor      `config:"processor"`
	Exporter  Exporter          `config:"exporter"`
	Levels    map[string]string `config:"levels"`
}

// OTel
type OTel struct {
	Resource Resource `config:"resource"`
	Trace    Trace    `config:"trace"`
	Metric   Metric   `config:"metric"`
	Log      Log      `config:"log"`
}

// MissingOTLPTargetError is returned when an OTLP exporter has no target.
type MissingOTLPTargetError struct {
	Signal string
}

func (e MissingOTLPTargetError) Error() string {
	return fmt.Sprintf("otlp %s exporter requires a target", e.Signal)
}

// Validate checks that every OTLP exporter is fully configured.
func (cfg OTel) Validate() error {
	var errs []error
	check := func(signal string, exp Exporter) {
		if exp.Type == OTLPExporterType && exp.OTLP.Target == "" {
			errs = append(errs, MissingOTLPTargetError{Signal: signal})
		}
	}
	check("trace", cfg.Trace.Exporter)
	check("metric", cfg.Metric.Exporter)
	check("log", cfg.Log.Exporter)
	return errors.Join(errs...)
}
