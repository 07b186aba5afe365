// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/z5labs/apigw/definition"
	"github.com/z5labs/apigw/openapi"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ConvertConfig captures the inputs of the convert command.
type ConvertConfig struct {
	Definition string
	Format     string
	Out        string
	ServerURL  string
	OAuth2     *openapi.OAuth2
}

var convertRunner = runConvert

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an API definition into an OpenAPI document",
		Example: strings.TrimSpace(`  apigw convert --definition shop.yaml
  apigw convert --definition shop.yaml --format json --out openapi.json \
    --oauth2-authorization-url https://auth.example.com/authorize \
    --oauth2-token-url https://auth.example.com/token`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConvertConfig(cmd)
			if err != nil {
				return err
			}
			return convertRunner(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("definition", "", "API definition file to convert")
	flags.String("format", "yaml", "Output format (json|yaml)")
	flags.String("out", "", "Output file (stdout when omitted)")
	flags.String("server-url", "", "Server url declared by the document")
	flags.String("oauth2-authorization-url", "", "Authorization url of the OAuth2 security scheme")
	flags.String("oauth2-token-url", "", "Token url of the OAuth2 security scheme")
	flags.StringSlice("oauth2-scopes", nil, "Scopes of the OAuth2 security scheme (defaults to read,write)")

	return cmd
}

func resolveConvertConfig(cmd *cobra.Command) (*ConvertConfig, error) {
	def, err := requireFlag(cmd, "definition")
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	cfg := &ConvertConfig{Definition: def}
	cfg.Format, _ = flags.GetString("format")
	cfg.Out, _ = flags.GetString("out")
	cfg.ServerURL, _ = flags.GetString("server-url")

	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format != "json" && cfg.Format != "yaml" {
		return nil, newUsageError("--format must be json or yaml, got %q\n\n%s", cfg.Format, cmd.UsageString())
	}

	cfg.OAuth2, err = resolveOAuth2(flags)
	if err != nil {
		return nil, newUsageError("%v\n\n%s", err, cmd.UsageString())
	}
	return cfg, nil
}

func resolveOAuth2(flags *pflag.FlagSet) (*openapi.OAuth2, error) {
	authURL, _ := flags.GetString("oauth2-authorization-url")
	tokenURL, _ := flags.GetString("oauth2-token-url")
	scopes, _ := flags.GetStringSlice("oauth2-scopes")

	if authURL == "" && tokenURL == "" {
		if len(scopes) > 0 {
			return nil, errOAuth2Incomplete
		}
		return nil, nil
	}
	if authURL == "" || tokenURL == "" {
		return nil, errOAuth2Incomplete
	}
	return &openapi.OAuth2{
		AuthorizationURL: authURL,
		TokenURL:         tokenURL,
		Scopes:           scopes,
	}, nil
}

var errOAuth2Incomplete = usageError{msg: "--oauth2-authorization-url and --oauth2-token-url must be set together"}

func runConvert(ctx context.Context, stdout io.Writer, cfg *ConvertConfig) error {
	def, err := definition.Load(cfg.Definition)
	if err != nil {
		return err
	}
	err = def.Validate()
	if err != nil {
		return err
	}

	var opts []openapi.ConvertOption
	if cfg.ServerURL != "" {
		opts = append(opts, openapi.WithServerURL(cfg.ServerURL))
	}
	if cfg.OAuth2 != nil {
		opts = append(opts, openapi.WithOAuth2(*cfg.OAuth2))
	}
	doc := openapi.Convert(def, opts...)

	var b []byte
	switch cfg.Format {
	case "json":
		b, err = openapi.MarshalJSON(doc)
	default:
		b, err = openapi.MarshalYAML(doc)
	}
	if err != nil {
		return err
	}

	if cfg.Out == "" {
		_, err = stdout.Write(b)
		return err
	}
	return os.WriteFile(cfg.Out, b, 0o644)
}
