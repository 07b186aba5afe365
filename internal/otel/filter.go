// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type levelRule struct {
	prefix string
	min    log.Severity
}

// levelFilter drops records whose severity is below the minimum configured
// for the longest logger name prefix matching their instrumentation scope.
// Loggers without a matching rule are never filtered.
type levelFilter struct {
	inner sdklog.Processor
	rules []levelRule
}

func newFilteringProcessor(inner sdklog.Processor, levels map[string]string) sdklog.Processor {
	if len(levels) == 0 {
		return inner
	}

	rules := make([]levelRule, 0, len(levels))
	for name, lvl := range levels {
		rules = append(rules, levelRule{prefix: name, min: parseLogLevel(lvl)})
	}
	slices.SortFunc(rules, func(a, b levelRule) int {
		return cmp.Compare(len(b.prefix), len(a.prefix))
	})

	return &levelFilter{
		inner: inner,
		rules: rules,
	}
}

// parseLogLevel maps debug, info, warn(ing) and error onto their severity.
// Anything else is treated as debug.
func parseLogLevel(level string) log.Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "info":
		return log.SeverityInfo
	case "warn", "warning":
		return log.SeverityWarn
	case "error":
		return log.SeverityError
	default:
		return log.SeverityDebug
	}
}

func (f *levelFilter) minimum(name string) (log.Severity, bool) {
	for _, r := range f.rules {
		if strings.HasPrefix(name, r.prefix) {
			return r.min, true
		}
	}
	return 0, false
}

// OnEmit implements sdklog.Processor.
func (f *levelFilter) OnEmit(ctx context.Context, record *sdklog.Record) error {
	floor, ok := f.minimum(record.InstrumentationScope().Name)
	if ok && record.Severity() < floor {
		return nil
	}
	return f.inner.OnEmit(ctx, record)
}

// Shutdown implements sdklog.Processor.
func (f *levelFilter) Shutdown(ctx context.Context) error {
	return f.inner.Shutdown(ctx)
}

// ForceFlush implements sdklog.Processor.
func (f *levelFilter) ForceFlush(ctx context.Context) error {
	return f.inner.ForceFlush(ctx)
}
