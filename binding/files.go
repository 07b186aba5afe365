// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package binding

import (
	"errors"
	"strings"
)

// ErrPathTraversal is returned by [SafeJoin] when a path tries to leave its root.
var ErrPathTraversal = errors.New("path traversal is not allowed")

// SafeJoin normalizes the catch-all remainder of a [FileServer] request into
// a slash separated path relative to the binding root. Empty and "." segments
// are dropped and any ".." segment is rejected.
func SafeJoin(rel string) (string, error) {
	parts := strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/")
	clean := parts[:0]
	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			return "", ErrPathTraversal
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return ".", nil
	}
	return strings.Join(clean, "/"), nil
}
