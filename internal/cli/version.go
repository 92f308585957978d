package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lpm/internal/app"
	"lpm/internal/core"
)

func newVersionCommand(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Parse and compare version strings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "parse <text>",
		Short: "Show the format, canonical form and safe name of a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := versionService(state).ParseVersion(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format: %s\n", info.Format)
			fmt.Fprintf(out, "canonical: %s\n", info.Canonical)
			fmt.Fprintf(out, "safe name: %s\n", info.SafeName)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Order two versions of the same format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := versionService(state).CompareVersions(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", result.Left.Canonical, orderSymbol(result.Order), result.Right.Canonical)
			return nil
		},
	})
	return cmd
}

// versionService needs no package database.
func versionService(state *rootState) app.Service {
	return app.Service{Settings: state.settings, Registry: core.NewDefaultRegistry()}
}

func orderSymbol(order int) string {
	switch {
	case order < 0:
		return "<"
	case order > 0:
		return ">"
	default:
		return "=="
	}
}
