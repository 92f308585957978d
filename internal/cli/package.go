package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"lpm/internal/app"
	"lpm/internal/types"
)

func newInstallCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "install <name> <version>",
		Short: "Create the install directory of a package",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				result, err := service.Install(ctx, packageArgs(args))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s installing at %s\n", result.Package, result.Path)
				return nil
			})
		},
	}
}

func newStatusCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "status <name> <version> [status]",
		Short: "Show a package or move it to a later status",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				out := cmd.OutOrStdout()
				if len(args) == 3 {
					info, err := service.SetStatus(ctx, app.StatusRequest{
						Package: packageArgs(args),
						Status:  types.PackageStatus(args[2]),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s %s\n", info.Package, info.Status)
					return nil
				}
				info, err := service.Describe(ctx, packageArgs(args))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "package: %s\n", info.Package)
				fmt.Fprintf(out, "status: %s\n", info.Status)
				fmt.Fprintf(out, "path: %s\n", info.InstallPath)
				printList(out, "dependencies", refStrings(info.Dependencies))
				printList(out, "bin dirs", info.BinDirs)
				printList(out, "lib dirs", info.LibDirs)
				printList(out, "binaries", info.Binaries)
				return nil
			})
		},
	}
}

func newApplyCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <manifest.yaml>",
		Short: "Record the metadata of a package manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				result, err := service.Apply(ctx, app.ApplyRequest{ManifestPath: args[0]})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s: %d dependencies, %d variables, %d bin dirs, %d lib dirs, %d binaries\n",
					result.Package, result.Dependencies, result.Variables, result.BinDirs, result.LibDirs, result.Binaries)
				return nil
			})
		},
	}
}

func newActivateCommand(state *rootState) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "activate <name> <version>",
		Short: "Print shell exports for a package environment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				result, err := service.Activate(ctx, app.ActivateRequest{
					Package: packageArgs(args),
					Scope:   types.Scope(scope),
				})
				if err != nil {
					return err
				}
				printExports(cmd, result.Variables)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", string(types.ScopeRun), "Environment scope (build or run)")
	return cmd
}

func packageArgs(args []string) app.PackageRequest {
	return app.PackageRequest{Name: args[0], Version: args[1]}
}

func printExports(cmd *cobra.Command, variables map[string]string) {
	for _, name := range slices.Sorted(maps.Keys(variables)) {
		fmt.Fprintf(cmd.OutOrStdout(), "export %s=%s\n", name, shellQuote(variables[name]))
	}
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(out, "%s: none\n", title)
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "- %s\n", item)
	}
}

func refStrings(refs []types.PackageRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.String())
	}
	return out
}
