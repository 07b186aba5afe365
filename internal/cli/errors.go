// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cli

import (
	"errors"
	"fmt"
)

// ErrUsage matches every error caused by invalid command line input.
var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// ViolationsError is returned by validate when the document has violations.
type ViolationsError struct {
	Count int
}

func (e ViolationsError) Error() string {
	return fmt.Sprintf("document has %d violation(s)", e.Count)
}
