// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package detector provides the resource detectors describing a gateway process.
package detector

import (
	"context"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.opentelemetry.io/otel/sdk"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

type telemetrySDK struct{}

// TelemetrySDK describes the OpenTelemetry SDK in use.
func TelemetrySDK() resource.Detector {
	return telemetrySDK{}
}

func (telemetrySDK) Detect(context.Context) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.TelemetrySDKName("opentelemetry"),
		semconv.TelemetrySDKLanguageGo,
		semconv.TelemetrySDKVersion(sdk.Version()),
	), nil
}

// Host
func Host() resource.Detector {
	return resource.StringDetector(semconv.SchemaURL, semconv.HostNameKey, os.Hostname)
}

// ServiceName uses name, falling back to the executable name.
func ServiceName(name string) resource.Detector {
	return resource.StringDetector(semconv.SchemaURL, semconv.ServiceNameKey, func() (string, error) {
		return serviceName(name, os.Executable), nil
	})
}

func serviceName(name string, executable func() (string, error)) string {
	if name != "" {
		return name
	}
	exe, err := executable()
	if err != nil {
		return "unknown_service:go"
	}
	return "unknown_service:" + filepath.Base(exe)
}

// ServiceVersion uses version, falling back to the main module version
// recorded in the binary's build info.
func ServiceVersion(version string) resource.Detector {
	return resource.StringDetector(semconv.SchemaURL, semconv.ServiceVersionKey, func() (string, error) {
		return serviceVersion(version, debug.ReadBuildInfo), nil
	})
}

func serviceVersion(version string, buildInfo func() (*debug.BuildInfo, bool)) string {
	if version != "" {
		return version
	}
	info, ok := buildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}
	return info.Main.Version
}
