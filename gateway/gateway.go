// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gateway serves an API definition over HTTP by dispatching each
// matched route to its binding.
package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"path"
	"strings"

	"github.com/z5labs/apigw"
	"github.com/z5labs/apigw/binding"
	"github.com/z5labs/apigw/concurrent"
	"github.com/z5labs/apigw/definition"
	"github.com/z5labs/apigw/openapi"
	"github.com/z5labs/apigw/router"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/z5labs/apigw/gateway"

// Options
type Options struct {
	prefix    string
	upstreams map[string]string
	sandbox   string
	invoker   Invoker
	transport http.RoundTripper
	convert   []openapi.ConvertOption
}

// Option
type Option func(*Options)

// Prefix is the path the gateway is mounted under. Requests reaching
// [Gateway.ServeHTTP] must already have it stripped.
func Prefix(p string) Option {
	return func(o *Options) {
		o.prefix = p
	}
}

// Upstreams names the destinations of proxy bindings.
func Upstreams(m map[string]string) Option {
	return func(o *Options) {
		o.upstreams = m
	}
}

// Sandbox is the directory file server roots are relative to.
func Sandbox(dir string) Option {
	return func(o *Options) {
		o.sandbox = dir
	}
}

// WithInvoker sets the executor of worker and function bindings.
func WithInvoker(inv Invoker) Option {
	return func(o *Options) {
		o.invoker = inv
	}
}

// WithTransport replaces the transport of http and proxy bindings.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) {
		o.transport = rt
	}
}

// WithConvertOptions customizes the OpenAPI document of the gateway.
func WithConvertOptions(opts ...openapi.ConvertOption) Option {
	return func(o *Options) {
		o.convert = append(o.convert, opts...)
	}
}

type document struct {
	contentType string
	body        []byte
}

// Gateway is an [http.Handler] for a single API definition.
type Gateway struct {
	def       definition.ApiDefinition
	prefix    string
	routes    *router.Registry
	doc       *openapi3.Spec
	docs      map[string]document
	upstreams map[string]string
	sandbox   string
	invoker   Invoker
	transport http.RoundTripper
	proxies   *concurrent.Cache[string, *httputil.ReverseProxy]

	tracer    trace.Tracer
	log       *slog.Logger
	matched   metric.Int64Counter
	unmatched metric.Int64Counter
}

// New validates def and prepares it for serving.
func New(def definition.ApiDefinition, opts ...Option) (*Gateway, error) {
	o := &Options{
		sandbox:   ".",
		transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	for _, opt := range opts {
		opt(o)
	}

	routes, err := router.Build(def)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimSuffix(o.prefix, "/")
	convert := o.convert
	if prefix != "" {
		convert = append([]openapi.ConvertOption{openapi.WithServerURL(prefix)}, convert...)
	}
	doc := openapi.Convert(def, convert...)

	docs, err := renderDocuments(doc, routes.Routes())
	if err != nil {
		return nil, err
	}

	meter := otel.Meter(instrumentationName)
	matched, err := meter.Int64Counter(
		"apigw.gateway.requests.matched",
		metric.WithDescription("Requests which matched a route."),
	)
	if err != nil {
		return nil, err
	}
	unmatched, err := meter.Int64Counter(
		"apigw.gateway.requests.unmatched",
		metric.WithDescription("Requests which matched no route."),
	)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		def:       def,
		prefix:    prefix,
		routes:    routes,
		doc:       doc,
		docs:      docs,
		upstreams: o.upstreams,
		sandbox:   o.sandbox,
		invoker:   o.invoker,
		transport: o.transport,
		proxies:   concurrent.NewCache[string, *httputil.ReverseProxy](),
		tracer:    otel.Tracer(instrumentationName),
		log:       apigw.Logger(instrumentationName),
		matched:   matched,
		unmatched: unmatched,
	}
	return g, nil
}

// renderDocuments encodes doc once for every swagger ui spec path.
// A path ending in .yaml or .yml is served as YAML.
func renderDocuments(doc *openapi3.Spec, routes []*definition.Route) (map[string]document, error) {
	docs := make(map[string]document)
	for _, route := range routes {
		ui, ok := route.Binding.(binding.SwaggerUI)
		if !ok {
			continue
		}
		if _, ok := docs[ui.SpecPath]; ok {
			continue
		}

		switch path.Ext(ui.SpecPath) {
		case ".yaml", ".yml":
			b, err := openapi.MarshalYAML(doc)
			if err != nil {
				return nil, err
			}
			docs[ui.SpecPath] = document{contentType: "application/yaml", body: b}
		default:
			b, err := openapi.MarshalJSON(doc)
			if err != nil {
				return nil, err
			}
			docs[ui.SpecPath] = document{contentType: "application/json", body: b}
		}
	}
	return docs, nil
}

// Definition returns the API definition being served.
func (g *Gateway) Definition() definition.ApiDefinition {
	return g.def
}

// Prefix returns the mount path of the gateway, without a trailing slash.
func (g *Gateway) Prefix() string {
	return g.prefix
}

// Document returns the OpenAPI document describing the gateway.
func (g *Gateway) Document() *openapi3.Spec {
	return g.doc
}

// ServeHTTP implements the [http.Handler] interface.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := g.tracer.Start(r.Context(), "Gateway.ServeHTTP")
	defer span.End()
	r = r.WithContext(ctx)

	var err error
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		g.writeProblem(w, r, err)
	}()
	defer try.Recover(&err)

	err = g.serve(w, r)
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	method, err := definition.ParseMethod(r.Method)
	if err == nil {
		m, ok := g.routes.Match(method, r.URL.Path)
		if ok {
			kind := m.Route.Binding.Kind()
			g.matched.Add(ctx, 1, metric.WithAttributes(
				attribute.String("http.request.method", string(method)),
				attribute.String("apigw.binding", string(kind)),
			))
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.String("http.route", m.Route.Path.String()),
				attribute.String("apigw.binding", string(kind)),
			)
			return g.dispatch(w, r, m)
		}
	}

	if doc, ok := g.docs[r.URL.Path]; ok && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		w.Header().Set("Content-Type", doc.contentType)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Write(doc.body)
		return nil
	}

	g.unmatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.request.method", r.Method),
	))

	allowed := g.routes.Allowed(r.URL.Path)
	if len(allowed) == 0 {
		return newProblem(http.StatusNotFound, "no route matches "+r.URL.Path)
	}
	return methodNotAllowed{
		Problem: newProblem(http.StatusMethodNotAllowed, r.Method+" is not allowed for "+r.URL.Path),
		allowed: allowed,
	}
}
