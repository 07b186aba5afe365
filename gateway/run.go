// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gateway

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"syscall"
	"time"

	"github.com/z5labs/apigw"
	"github.com/z5labs/apigw/definition"
	"github.com/z5labs/apigw/health"
	"github.com/z5labs/apigw/internal"
	"github.com/z5labs/apigw/internal/httpserver"
	"github.com/z5labs/apigw/openapi"

	"github.com/z5labs/bedrock"
	"github.com/z5labs/bedrock/app"
	"github.com/z5labs/bedrock/appbuilder"
	"github.com/z5labs/bedrock/config"
	"github.com/z5labs/bedrock/lifecycle"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//go:embed default_config.yaml
var defaultConfig []byte

// Config is the configuration of a gateway process.
type Config struct {
	apigw.Config `config:",squash"`

	HTTP struct {
		Port     uint                `config:"port"`
		Timeouts httpserver.Timeouts `config:"timeouts"`
	} `config:"http"`

	Gateway struct {
		// Mount is the path every definition is served under,
		// each at Mount joined with its id.
		Mount       string            `config:"mount"`
		Definitions []string          `config:"definitions"`
		Sandbox     string            `config:"sandbox"`
		Upstreams   map[string]string `config:"upstreams"`
		Executor    struct {
			URL     string        `config:"url"`
			Timeout time.Duration `config:"timeout"`
		} `config:"executor"`
	} `config:"gateway"`

	OpenAPI struct {
		OAuth2 struct {
			AuthorizationURL string   `config:"authorization_url"`
			TokenURL         string   `config:"token_url"`
			Scopes           []string `config:"scopes"`
		} `config:"oauth2"`
	} `config:"openapi"`
}

// Listener opens the TCP listener the gateway is served on.
func (c Config) Listener(ctx context.Context) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", c.HTTP.Port))
}

func (c Config) executor() *HTTPExecutor {
	if c.Gateway.Executor.URL == "" {
		return nil
	}
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   c.Gateway.Executor.Timeout,
	}
	return NewHTTPExecutor(c.Gateway.Executor.URL, WithHTTPClient(client))
}

// options translates the config into the [Option]s shared by every gateway.
func (c Config) options(exec *HTTPExecutor) []Option {
	opts := []Option{
		Sandbox(c.Gateway.Sandbox),
		Upstreams(c.Gateway.Upstreams),
	}
	if exec != nil {
		opts = append(opts, WithInvoker(exec))
	}

	oauth := c.OpenAPI.OAuth2
	if oauth.AuthorizationURL != "" || oauth.TokenURL != "" {
		opts = append(opts, WithConvertOptions(openapi.WithOAuth2(openapi.OAuth2{
			AuthorizationURL: oauth.AuthorizationURL,
			TokenURL:         oauth.TokenURL,
			Scopes:           oauth.Scopes,
		})))
	}
	return opts
}

// DuplicatePrefixError is returned when two definitions share a mount path.
type DuplicatePrefixError struct {
	Prefix string
}

func (e DuplicatePrefixError) Error() string {
	return fmt.Sprintf("more than one api definition is mounted at %s", e.Prefix)
}

// BuildHandler loads every configured definition and serves them behind
// a single mux. Readiness is reported once all gateways are built and,
// if an executor is configured, while it reports ready as well.
func BuildHandler(ctx context.Context, cfg Config) (http.Handler, error) {
	defs, err := definition.LoadAll(ctx, cfg.Gateway.Definitions...)
	if err != nil {
		return nil, err
	}

	exec := cfg.executor()
	log := apigw.Logger(instrumentationName)
	seen := make(map[string]struct{}, len(defs))
	gateways := make([]*Gateway, 0, len(defs))
	for _, def := range defs {
		prefix := path.Join("/", cfg.Gateway.Mount, def.ID)
		if _, ok := seen[prefix]; ok {
			return nil, DuplicatePrefixError{Prefix: prefix}
		}
		seen[prefix] = struct{}{}

		gw, err := New(def, append(cfg.options(exec), Prefix(prefix))...)
		if err != nil {
			return nil, fmt.Errorf("api definition %s: %w", def.ID, err)
		}
		gateways = append(gateways, gw)

		log.InfoContext(
			ctx,
			"mounted api definition",
			slog.String("id", def.ID),
			slog.String("version", def.Version),
			slog.String("prefix", prefix),
			slog.Int("routes", len(def.Routes)),
		)
	}

	var ready health.Binary
	ready.MarkHealthy()
	if lc, ok := lifecycle.FromContext(ctx); ok {
		lc.OnPostRun(lifecycle.HookFunc(func(context.Context) error {
			ready.MarkUnhealthy()
			return nil
		}))
	}

	var readiness health.Monitor = &ready
	if exec != nil {
		readiness = health.And(&ready, exec)
	}
	return NewMux(readiness, gateways...), nil
}

// Run reads the config, layered over the embedded defaults, builds the
// handler with build and serves it until the process is interrupted.
// Panics are recovered and the OTel SDK is initialized and shut down
// around the server.
func Run(r io.Reader, build func(context.Context, Config) (http.Handler, error)) error {
	cfg := config.MultiSource(
		apigw.DefaultConfig(),
		apigw.ConfigSource(bytes.NewReader(defaultConfig)),
		apigw.ConfigSource(r),
	)

	builder := appbuilder.FromConfig(
		appbuilder.LifecycleContext(
			appbuilder.OTel(
				appbuilder.Recover(
					bedrock.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (bedrock.App, error) {
						h, err := build(ctx, cfg)
						if err != nil {
							return nil, err
						}

						ls, err := cfg.Listener(ctx)
						if err != nil {
							return nil, err
						}

						srv := httpserver.NewApp(
							ls,
							otelhttp.NewHandler(h, "apigw", otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents)),
							httpserver.ErrorLog(apigw.LogHandler(instrumentationName)),
							httpserver.WithTimeouts(cfg.HTTP.Timeouts),
						)
						lc, _ := lifecycle.FromContext(ctx)
						lc.OnPostRun(lifecycle.HookFunc(srv.Shutdown))

						var base bedrock.App = srv
						base = app.Recover(base)
						base = app.InterruptOn(base, os.Kill, os.Interrupt, syscall.SIGTERM)
						return base, nil
					}),
				),
			),
			&lifecycle.Context{},
		),
	)

	err := internal.Run[config.Source](context.Background(), cfg, builder)
	if err == nil {
		return nil
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{}))
	log.Error("failed to run gateway", slog.Any("error", err))
	return err
}
