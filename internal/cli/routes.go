// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/z5labs/apigw/binding"
	"github.com/z5labs/apigw/definition"
	"github.com/z5labs/apigw/router"

	"github.com/spf13/cobra"
)

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table of an API definition in match priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := requireFlag(cmd, "definition")
			if err != nil {
				return err
			}

			def, err := definition.Load(path)
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), def)
		},
	}

	cmd.Flags().String("definition", "", "API definition file")

	return cmd
}

func printRoutes(w io.Writer, def definition.ApiDefinition) error {
	reg, err := router.Build(def)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tBINDING")
	for _, route := range reg.Routes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", route.Method, route.Path, binding.String(route.Binding))
	}
	return tw.Flush()
}
