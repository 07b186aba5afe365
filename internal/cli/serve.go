// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/z5labs/apigw/gateway"

	"github.com/spf13/cobra"
	"github.com/z5labs/sdk-go/try"
)

// ServeConfig captures the inputs of the serve command.
type ServeConfig struct {
	ConfigPath  string
	Definitions []string
}

var serveRunner = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve API definitions over HTTP",
		Example: strings.TrimSpace(`  apigw serve --config gateway.yaml
  apigw serve --definition shop.yaml --definition files.yaml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ServeConfig{}
			cfg.ConfigPath, _ = cmd.Flags().GetString("config")
			cfg.Definitions, _ = cmd.Flags().GetStringArray("definition")
			return serveRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "Gateway config file (YAML, Go templated)")
	flags.StringArray("definition", nil, "API definition file served in addition to the configured ones")

	return cmd
}

func runServe(ctx context.Context, cfg ServeConfig) (err error) {
	var r io.Reader = strings.NewReader("")
	if cfg.ConfigPath != "" {
		f, openErr := os.Open(cfg.ConfigPath)
		if openErr != nil {
			return openErr
		}
		defer try.Close(&err, f)
		r = f
	}

	return gateway.Run(r, func(ctx context.Context, c gateway.Config) (http.Handler, error) {
		c.Gateway.Definitions = append(c.Gateway.Definitions, cfg.Definitions...)
		return gateway.BuildHandler(ctx, c)
	})
}
