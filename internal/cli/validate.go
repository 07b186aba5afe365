// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/z5labs/apigw/openapi"

	"github.com/spf13/cobra"
	"github.com/z5labs/sdk-go/try"
)

// ValidateConfig captures the inputs of the validate command.
type ValidateConfig struct {
	Document         string
	Strict           bool
	ValidateExamples bool
	Conformance      bool
}

var validateRunner = runValidate

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the path parameters, examples and security of an OpenAPI document",
		Example: strings.TrimSpace(`  apigw validate --document openapi.yaml
  apigw validate --document openapi.json --strict --conformance`),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := requireFlag(cmd, "document")
			if err != nil {
				return err
			}

			cfg := &ValidateConfig{Document: doc}
			cfg.Strict, _ = cmd.Flags().GetBool("strict")
			cfg.ValidateExamples, _ = cmd.Flags().GetBool("validate-examples")
			cfg.Conformance, _ = cmd.Flags().GetBool("conformance")
			return validateRunner(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("document", "", "OpenAPI document to validate (JSON or YAML)")
	flags.Bool("strict", false, "Also report declared path parameters missing from the path")
	flags.Bool("validate-examples", true, "Check component schema examples against their types")
	flags.Bool("conformance", false, "Also run the full OpenAPI 3 standards validation")

	return cmd
}

func runValidate(ctx context.Context, stdout io.Writer, cfg *ValidateConfig) (err error) {
	f, err := os.Open(cfg.Document)
	if err != nil {
		return err
	}
	defer try.Close(&err, f)

	doc, err := openapi.Decode(f)
	if err != nil {
		return err
	}

	v := openapi.NewValidator(
		openapi.StrictMode(cfg.Strict),
		openapi.ValidateExamples(cfg.ValidateExamples),
	)

	count := 0
	verr := v.Validate(doc)
	var violations openapi.ValidationErrors
	if errors.As(verr, &violations) {
		for _, violation := range violations {
			fmt.Fprintln(stdout, violation.Error())
		}
		count += len(violations)
	} else if verr != nil {
		return verr
	}

	if cfg.Conformance {
		cerr := openapi.CheckConformance(ctx, doc)
		if cerr != nil {
			fmt.Fprintln(stdout, cerr.Error())
			count++
		}
	}

	if count > 0 {
		return ViolationsError{Count: count}
	}
	fmt.Fprintf(stdout, "%s: ok\n", cfg.Document)
	return nil
}
