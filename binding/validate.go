// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package binding

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/z5labs/apigw/pathtmpl"
)

// ContractError is returned by [Validate] when a binding cannot serve
// the path template it is attached to.
type ContractError struct {
	Kind   Kind
	Reason string
}

func (e ContractError) Error() string {
	return fmt.Sprintf("invalid %s binding: %s", e.Kind, e.Reason)
}

// Validate checks the parameter contract between b and the template t.
func Validate(b Binding, t pathtmpl.Template) error {
	switch v := b.(type) {
	case Http:
		return validateHttp(v)
	case Worker:
		if v.Component == "" {
			return ContractError{Kind: KindWorker, Reason: "component must not be empty"}
		}
		if v.Function == "" {
			return ContractError{Kind: KindWorker, Reason: "function must not be empty"}
		}
		return nil
	case Proxy:
		if v.Destination == "" {
			return ContractError{Kind: KindProxy, Reason: "destination must not be empty"}
		}
		return nil
	case Default:
		return validateDefault(v)
	case FileServer:
		return validateFileServer(v, t)
	case SwaggerUI:
		if !strings.HasPrefix(v.SpecPath, "/") {
			return ContractError{Kind: KindSwaggerUI, Reason: fmt.Sprintf("spec path %q must be absolute", v.SpecPath)}
		}
		return nil
	case nil:
		return ContractError{Kind: "", Reason: "binding is missing"}
	default:
		return UnknownKindError{Kind: fmt.Sprintf("%T", b)}
	}
}

func validateHttp(v Http) error {
	u, err := url.Parse(v.Upstream)
	if err != nil {
		return ContractError{Kind: KindHttp, Reason: fmt.Sprintf("upstream %q is not a url: %s", v.Upstream, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ContractError{Kind: KindHttp, Reason: fmt.Sprintf("upstream %q must use http or https", v.Upstream)}
	}
	if u.Host == "" {
		return ContractError{Kind: KindHttp, Reason: fmt.Sprintf("upstream %q must have a host", v.Upstream)}
	}
	return nil
}

func validateDefault(v Default) error {
	if v.FunctionName == "" {
		return ContractError{Kind: KindDefault, Reason: "function name must not be empty"}
	}
	err := v.InputType.Resolve()
	if err != nil {
		return ContractError{Kind: KindDefault, Reason: fmt.Sprintf("input type: %s", err)}
	}
	err = v.OutputType.Resolve()
	if err != nil {
		return ContractError{Kind: KindDefault, Reason: fmt.Sprintf("output type: %s", err)}
	}
	return nil
}

func validateFileServer(v FileServer, t pathtmpl.Template) error {
	var catchAlls int
	for _, seg := range t.Segments() {
		if _, ok := seg.(pathtmpl.CatchAll); ok {
			catchAlls++
		}
	}
	if catchAlls != 1 {
		return ContractError{
			Kind:   KindFileServer,
			Reason: fmt.Sprintf("path %s must end with exactly one catch-all parameter", t),
		}
	}

	if v.RootDir == "" {
		return ContractError{Kind: KindFileServer, Reason: "root dir must not be empty"}
	}
	if path.IsAbs(v.RootDir) {
		return ContractError{Kind: KindFileServer, Reason: fmt.Sprintf("root dir %q must be relative", v.RootDir)}
	}
	for _, part := range strings.Split(v.RootDir, "/") {
		if part == ".." {
			return ContractError{Kind: KindFileServer, Reason: fmt.Sprintf("root dir %q escapes the sandbox", v.RootDir)}
		}
	}
	return nil
}
