// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WorkerInvocation is a single request for a worker function.
type WorkerInvocation struct {
	Component      string              `json:"component"`
	Worker         string              `json:"worker,omitempty"`
	Function       string              `json:"function"`
	IdempotencyKey string              `json:"idempotency_key"`
	Method         string              `json:"method"`
	Path           string              `json:"path"`
	PathParams     map[string]string   `json:"path_params"`
	Query          map[string][]string `json:"query,omitempty"`
	Body           json.RawMessage     `json:"body,omitempty"`
}

// WorkerResult is the response of a worker. A zero Status is treated as 200.
type WorkerResult struct {
	Status  int               `json:"status,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// FunctionCall invokes a typed function. Input has already been
// checked against the input type of the route.
type FunctionCall struct {
	Function string `json:"function"`
	Input    any    `json:"input"`
}

// Invoker executes worker and function bindings.
type Invoker interface {
	InvokeWorker(context.Context, WorkerInvocation) (*WorkerResult, error)
	CallFunction(context.Context, FunctionCall) (any, error)
}

// ExecutorError is returned when the executor responds with a non 2xx status.
type ExecutorError struct {
	Status int
	Body   string
}

func (e ExecutorError) Error() string {
	return fmt.Sprintf("executor responded with status %d: %s", e.Status, e.Body)
}

// ExecutorUnavailableError is returned when the executor could not be
// reached or its response could not be decoded.
type ExecutorUnavailableError struct {
	Endpoint string
	Cause    error
}

func (e ExecutorUnavailableError) Error() string {
	return fmt.Sprintf("executor endpoint %s unavailable: %s", e.Endpoint, e.Cause)
}

func (e ExecutorUnavailableError) Unwrap() error {
	return e.Cause
}

// HTTPExecutor is an [Invoker] which posts invocations as JSON to a remote
// worker executor. Workers are invoked at {BaseURL}/v1/workers/invoke and
// functions are called at {BaseURL}/v1/functions/call.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// HTTPExecutorOption
type HTTPExecutorOption func(*HTTPExecutor)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) HTTPExecutorOption {
	return func(e *HTTPExecutor) {
		e.client = c
	}
}

// NewHTTPExecutor
func NewHTTPExecutor(baseURL string, opts ...HTTPExecutorOption) *HTTPExecutor {
	e := &HTTPExecutor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InvokeWorker implements the [Invoker] interface.
func (e *HTTPExecutor) InvokeWorker(ctx context.Context, inv WorkerInvocation) (*WorkerResult, error) {
	var res WorkerResult
	err := e.post(ctx, "/v1/workers/invoke", inv, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type functionOutput struct {
	Output any `json:"output"`
}

// CallFunction implements the [Invoker] interface.
func (e *HTTPExecutor) CallFunction(ctx context.Context, call FunctionCall) (any, error) {
	var out functionOutput
	err := e.post(ctx, "/v1/functions/call", call, &out)
	if err != nil {
		return nil, err
	}
	return out.Output, nil
}

func (e *HTTPExecutor) post(ctx context.Context, endpoint string, in, out any) (err error) {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return ExecutorUnavailableError{Endpoint: endpoint, Cause: err}
	}
	defer try.Close(&err, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ExecutorError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	err = dec.Decode(out)
	if err != nil {
		return ExecutorUnavailableError{Endpoint: endpoint, Cause: err}
	}
	return nil
}

// Healthy reports whether the executor answers {BaseURL}/health/readiness
// with a 2xx status.
func (e *HTTPExecutor) Healthy(ctx context.Context) (_ bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health/readiness", nil)
	if err != nil {
		return false, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false, ExecutorUnavailableError{Endpoint: "/health/readiness", Cause: err}
	}
	defer try.Close(&err, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}
