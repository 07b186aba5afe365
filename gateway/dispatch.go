// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/z5labs/apigw/binding"
	"github.com/z5labs/apigw/router"

	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the idempotency key of a worker invocation.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxBodyBytes = 10 << 20

func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request, m router.RouteMatch) error {
	spanCtx, span := g.tracer.Start(r.Context(), "Gateway.dispatch")
	defer span.End()
	r = r.WithContext(spanCtx)

	switch b := m.Route.Binding.(type) {
	case binding.Http:
		return g.forward(w, r, b.Upstream, r.URL.Path)
	case binding.Proxy:
		target, ok := g.upstreams[b.Destination]
		if !ok {
			return newProblem(http.StatusBadGateway, fmt.Sprintf("proxy destination %q is not configured", b.Destination))
		}
		p := r.URL.Path
		if name, ok := m.Route.Path.CatchAll(); ok {
			p = "/" + m.Params[name]
		}
		return g.forward(w, r, target, p)
	case binding.Worker:
		return g.invokeWorker(w, r, m, b)
	case binding.Default:
		return g.callFunction(w, r, b)
	case binding.FileServer:
		return g.serveFile(w, r, m, b)
	case binding.SwaggerUI:
		return g.serveSwaggerUI(w, b)
	default:
		return binding.UnknownKindError{Kind: string(m.Route.Binding.Kind())}
	}
}

type forwardPathKey struct{}

func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, target, p string) error {
	rp, err := g.reverseProxy(target)
	if err != nil {
		return err
	}

	ctx := context.WithValue(r.Context(), forwardPathKey{}, p)
	rp.ServeHTTP(w, r.WithContext(ctx))
	return nil
}

func (g *Gateway) reverseProxy(target string) (*httputil.ReverseProxy, error) {
	return g.proxies.GetOr(target, func() (*httputil.ReverseProxy, error) {
		u, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("upstream must be an absolute url: %q", target)
		}

		rp := &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				if p, ok := pr.In.Context().Value(forwardPathKey{}).(string); ok {
					pr.Out.URL.Path = p
					pr.Out.URL.RawPath = ""
				}
				pr.SetURL(u)
				pr.SetXForwarded()
			},
			Transport: g.transport,
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				g.log.ErrorContext(r.Context(), "upstream request failed", slog.String("upstream", target), slog.Any("error", err))
				g.writeProblem(w, r, newProblem(http.StatusBadGateway, "upstream request failed"))
			},
		}
		return rp, nil
	})
}

// readJSONBody returns nil for an empty body.
func readJSONBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, newProblem(http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
		}
		return nil, err
	}

	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}
	if !json.Valid(b) {
		return nil, newProblem(http.StatusBadRequest, "request body is not valid json")
	}
	return b, nil
}

func (g *Gateway) requireInvoker(kind binding.Kind) error {
	if g.invoker != nil {
		return nil
	}
	return newProblem(http.StatusNotImplemented, fmt.Sprintf("no executor is configured for %s bindings", kind))
}

func (g *Gateway) invokeWorker(w http.ResponseWriter, r *http.Request, m router.RouteMatch, b binding.Worker) error {
	err := g.requireInvoker(b.Kind())
	if err != nil {
		return err
	}

	body, err := readJSONBody(w, r)
	if err != nil {
		return err
	}

	key := r.Header.Get(IdempotencyKeyHeader)
	if key == "" {
		key = uuid.NewString()
	}

	res, err := g.invoker.InvokeWorker(r.Context(), WorkerInvocation{
		Component:      b.Component,
		Worker:         b.Worker,
		Function:       b.Function,
		IdempotencyKey: key,
		Method:         r.Method,
		Path:           r.URL.Path,
		PathParams:     m.Params,
		Query:          r.URL.Query(),
		Body:           body,
	})
	if err != nil {
		return err
	}

	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set(IdempotencyKeyHeader, key)
	if len(res.Body) > 0 && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}

	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(res.Body)
	return nil
}

func (g *Gateway) callFunction(w http.ResponseWriter, r *http.Request, b binding.Default) error {
	err := g.requireInvoker(b.Kind())
	if err != nil {
		return err
	}

	body, err := readJSONBody(w, r)
	if err != nil {
		return err
	}

	var input any
	if body != nil {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		err = dec.Decode(&input)
		if err != nil {
			return newProblem(http.StatusBadRequest, "request body is not valid json")
		}
	}

	err = b.InputType.Check(input)
	if err != nil {
		return err
	}

	output, err := g.invoker.CallFunction(r.Context(), FunctionCall{
		Function: b.FunctionName,
		Input:    input,
	})
	if err != nil {
		return err
	}

	err = b.OutputType.Check(output)
	if err != nil {
		g.log.ErrorContext(r.Context(), "function returned an unexpected output", slog.String("function", b.FunctionName), slog.Any("error", err))
		return newProblem(http.StatusBadGateway, fmt.Sprintf("function %s returned output which is not a %s", b.FunctionName, b.OutputType))
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(output)
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to write function output", slog.Any("error", err))
	}
	return nil
}

func (g *Gateway) serveFile(w http.ResponseWriter, r *http.Request, m router.RouteMatch, b binding.FileServer) error {
	name, _ := m.Route.Path.CatchAll()
	rel, err := binding.SafeJoin(m.Params[name])
	if err != nil {
		return err
	}

	fsys := os.DirFS(filepath.Join(g.sandbox, b.RootDir))

	info, err := fs.Stat(fsys, rel)
	if err == nil && info.IsDir() {
		rel = path.Join(rel, "index.html")
		info, err = fs.Stat(fsys, rel)
	}
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return newProblem(http.StatusNotFound, "file not found")
	}
	if err != nil {
		return err
	}

	http.ServeFileFS(w, r, fsys, rel)
	return nil
}

var swaggerPage = template.Must(template.New("swagger-ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <title>{{.Title}}</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
        window.onload = function () {
            window.ui = SwaggerUIBundle({
                url: {{.SpecURL}},
                dom_id: '#swagger-ui',
                presets: [SwaggerUIBundle.presets.apis],
            });
        };
    </script>
</body>
</html>
`))

func (g *Gateway) serveSwaggerUI(w http.ResponseWriter, b binding.SwaggerUI) error {
	var buf bytes.Buffer
	err := swaggerPage.Execute(&buf, struct {
		Title   string
		SpecURL string
	}{
		Title:   g.def.Name,
		SpecURL: g.prefix + b.SpecPath,
	})
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
	return nil
}
