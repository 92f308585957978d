package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lpm/internal/app"
)

func newDependencyCommand(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage dependency edges of a package",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <version> <dep-name> <dep-version>",
		Short: "Record a dependency edge",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return service.AddDependency(ctx, dependencyArgs(args))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name> <version> <dep-name> <dep-version>",
		Short: "Drop a dependency edge",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return service.RemoveDependency(ctx, dependencyArgs(args))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ls <name> <version>",
		Short: "List dependency edges",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				deps, err := service.Dependencies(ctx, packageArgs(args))
				if err != nil {
					return err
				}
				for _, dep := range deps {
					fmt.Fprintln(cmd.OutOrStdout(), dep.String())
				}
				return nil
			})
		},
	})
	return cmd
}

func dependencyArgs(args []string) app.DependencyRequest {
	return app.DependencyRequest{
		Package:    packageArgs(args),
		Dependency: app.PackageRequest{Name: args[2], Version: args[3]},
	}
}

func newDirCommand(state *rootState) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "dir",
		Short: "Manage registered bin and lib directories",
	}
	cmd.PersistentFlags().StringVar(&kind, "kind", string(app.DirKindBin), "Directory kind (bin or lib)")
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <version> <dir>",
		Short: "Register a directory",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return service.AddDir(ctx, app.DirRequest{Package: packageArgs(args), Kind: app.DirKind(kind), Dir: args[2]})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name> <version> <dir>",
		Short: "Unregister a directory",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return service.RemoveDir(ctx, app.DirRequest{Package: packageArgs(args), Kind: app.DirKind(kind), Dir: args[2]})
			})
		},
	})
	return cmd
}

func newBinaryCommand(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "binary",
		Short: "Manage exported binaries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <version> <binary>",
		Short: "Export a binary",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return service.AddBinary(ctx, app.BinaryRequest{Package: packageArgs(args), Name: args[2]})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name> <version> <binary>",
		Short: "Stop exporting a binary",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return service.RemoveBinary(ctx, app.BinaryRequest{Package: packageArgs(args), Name: args[2]})
			})
		},
	})
	return cmd
}
