// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package internal

import (
	"context"
	"fmt"

	"github.com/z5labs/bedrock"
)

// BuildError wraps a failure to build the app, as opposed to one
// returned while it runs.
type BuildError struct {
	Err error
}

func (e BuildError) Error() string {
	return fmt.Sprintf("failed to build app: %s", e.Err)
}

func (e BuildError) Unwrap() error {
	return e.Err
}

// Run builds the app from src and runs it until ctx is done or the app returns.
func Run[T any](ctx context.Context, src T, builder bedrock.AppBuilder[T]) error {
	app, err := builder.Build(ctx, src)
	if err != nil {
		return BuildError{Err: err}
	}
	return app.Run(ctx)
}
