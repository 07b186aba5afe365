// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cli implements the apigw command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the apigw command line.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "apigw",
		Short:         "Serve, convert and validate API definitions",
		Long:          "apigw routes HTTP requests onto the bindings of API definitions and translates those definitions to and from OpenAPI.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	for _, sub := range []*cobra.Command{
		newServeCmd(),
		newConvertCmd(),
		newValidateCmd(),
		newRoutesCmd(),
	} {
		sub.SetFlagErrorFunc(flagError)
		cmd.AddCommand(sub)
	}
	cmd.SetFlagErrorFunc(flagError)

	return cmd
}

func flagError(c *cobra.Command, err error) error {
	return newUsageError("%v\n\n%s", err, c.UsageString())
}

func requireFlag(cmd *cobra.Command, name string) (string, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", newUsageError("--%s is required\n\n%s", name, cmd.UsageString())
	}
	return v, nil
}
