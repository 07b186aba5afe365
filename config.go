// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package apigw

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"os"

	"github.com/z5labs/apigw/config"
	"github.com/z5labs/apigw/internal/otel"

	bedrockcfg "github.com/z5labs/bedrock/config"
)

// ConfigSource standardizes the template for gateway configuration.
// The [io.Reader] is expected to be YAML with support for Go templating.
// Two template functions are supported:
//   - env - substitutes an environment variable, or nil if it is unset
//   - default - uses a default value in case the original value is nil
func ConfigSource(r io.Reader) bedrockcfg.Source {
	return bedrockcfg.FromYaml(
		bedrockcfg.RenderTextTemplate(
			r,
			bedrockcfg.TemplateFunc("env", func(key string) any {
				v, ok := os.LookupEnv(key)
				if ok {
					return v
				}
				return nil
			}),
			bedrockcfg.TemplateFunc("default", func(def, v any) any {
				if v == nil {
					return def
				}
				return v
			}),
		),
	)
}

//go:embed default_config.yaml
var defaultConfig []byte

// DefaultConfig returns the default config source which corresponds to the [Config] type.
func DefaultConfig() bedrockcfg.Source {
	return ConfigSource(bytes.NewReader(defaultConfig))
}

// Config defines the telemetry configuration common to every gateway process.
type Config struct {
	OTel config.OTel `config:"otel"`
}

// InitializeOTel implements the [appbuilder.OTelInitializer] interface.
func (cfg Config) InitializeOTel(ctx context.Context) error {
	err := cfg.OTel.Validate()
	if err != nil {
		return err
	}
	return otel.Initialize(ctx, cfg.OTel)
}
