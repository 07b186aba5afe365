// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/z5labs/apigw/binding"
	"github.com/z5labs/apigw/definition"
)

// ProblemContentType is the media type of every error response.
const ProblemContentType = "application/problem+json"

// Problem is an RFC 7807 problem details document. It is
// returned by dispatchers to control the error response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func (p Problem) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

func newProblem(status int, detail string) Problem {
	return Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// methodNotAllowed carries the methods which do match the path.
type methodNotAllowed struct {
	Problem
	allowed []definition.Method
}

// problemFor maps err onto the problem returned to the client. Only
// errors produced by the gateway itself expose their message.
func problemFor(err error) Problem {
	var mna methodNotAllowed
	if errors.As(err, &mna) {
		return mna.Problem
	}

	var p Problem
	if errors.As(err, &p) {
		return p
	}

	var mismatch binding.TypeMismatchError
	if errors.As(err, &mismatch) {
		return newProblem(http.StatusBadRequest, mismatch.Error())
	}

	if errors.Is(err, binding.ErrPathTraversal) {
		return newProblem(http.StatusForbidden, "path escapes the served directory")
	}

	var execErr ExecutorError
	if errors.As(err, &execErr) {
		return newProblem(http.StatusBadGateway, "executor request failed")
	}

	var unavailable ExecutorUnavailableError
	if errors.As(err, &unavailable) {
		return newProblem(http.StatusBadGateway, "executor unavailable")
	}

	return newProblem(http.StatusInternalServerError, "An internal server error occurred.")
}

func (g *Gateway) writeProblem(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	p := problemFor(err)
	if p.Instance == "" {
		p.Instance = r.URL.Path
	}

	var mna methodNotAllowed
	if errors.As(err, &mna) {
		allow := make([]string, len(mna.allowed))
		for i, m := range mna.allowed {
			allow[i] = string(m)
		}
		w.Header().Set("Allow", strings.Join(allow, ", "))
	}

	if p.Status >= http.StatusInternalServerError {
		g.log.ErrorContext(ctx, "failed to handle request", slog.String("path", r.URL.Path), slog.Any("error", err))
	} else {
		g.log.DebugContext(ctx, "rejected request", slog.String("path", r.URL.Path), slog.Int("status", p.Status), slog.Any("error", err))
	}

	w.Header().Set("Content-Type", ProblemContentType)
	w.WriteHeader(p.Status)
	encErr := json.NewEncoder(w).Encode(p)
	if encErr != nil {
		g.log.ErrorContext(ctx, "failed to encode problem details", slog.Any("error", encErr))
	}
}
