// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/z5labs/bedrock"
)

type appFunc func(context.Context) error

func (f appFunc) Run(ctx context.Context) error {
	return f(ctx)
}

func TestRun(t *testing.T) {
	t.Run("will return a BuildError", func(t *testing.T) {
		t.Run("if the builder fails", func(t *testing.T) {
			buildErr := errors.New("failed to build")
			builder := bedrock.AppBuilderFunc[string](func(ctx context.Context, src string) (bedrock.App, error) {
				return nil, buildErr
			})

			err := Run(t.Context(), "cfg", builder)

			var be BuildError
			if !assert.ErrorAs(t, err, &be) {
				return
			}
			assert.ErrorIs(t, err, buildErr)
		})
	})

	t.Run("will return the app error", func(t *testing.T) {
		t.Run("unwrapped", func(t *testing.T) {
			appErr := errors.New("failed to run")
			var got string
			builder := bedrock.AppBuilderFunc[string](func(ctx context.Context, src string) (bedrock.App, error) {
				got = src
				return appFunc(func(context.Context) error { return appErr }), nil
			})

			err := Run(t.Context(), "cfg", builder)

			assert.Equal(t, appErr, err)
			assert.Equal(t, "cfg", got)
		})
	})
}
