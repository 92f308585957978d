package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lpm/internal/app"
	"lpm/internal/types"
)

type envOptions struct {
	Scope     string
	Mode      string
	Separator string
}

func newEnvCommand(state *rootState) *cobra.Command {
	opts := &envOptions{}
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage build and run environment variables",
	}
	cmd.PersistentFlags().StringVar(&opts.Scope, "scope", string(types.ScopeRun), "Environment scope (build or run)")

	declare := &cobra.Command{
		Use:   "declare <name> <version> <variable> [values...]",
		Short: "Declare a variable with a composition mode",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return service.DeclareEnv(ctx, app.EnvDeclareRequest{
					Package:   packageArgs(args),
					Scope:     types.Scope(opts.Scope),
					Name:      args[2],
					Mode:      types.EnvMode(opts.Mode),
					Values:    args[3:],
					Separator: opts.Separator,
				})
			})
		},
	}
	declare.Flags().StringVar(&opts.Mode, "mode", string(types.EnvModeAppend), "Composition mode (append, prepend or overwrite)")
	declare.Flags().StringVar(&opts.Separator, "separator", types.DefaultSeparator, "Value separator for append and prepend")
	valueArgs(declare)
	cmd.AddCommand(declare)

	cmd.AddCommand(envValueCommand(state, opts, "add", "Append or prepend a value", app.Service.AddEnvValue))
	cmd.AddCommand(envValueCommand(state, opts, "set", "Replace the value of an overwrite variable", app.Service.SetEnvValue))

	cmd.AddCommand(valueArgs(&cobra.Command{
		Use:   "rm <name> <version> <variable> [value]",
		Short: "Remove one value, or clear an overwrite variable",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 4 {
				value = args[3]
			}
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return service.RemoveEnvValue(ctx, app.EnvValueRequest{
					Package: packageArgs(args),
					Scope:   types.Scope(opts.Scope),
					Name:    args[2],
					Value:   value,
				})
			})
		},
	}))
	cmd.AddCommand(&cobra.Command{
		Use:   "undeclare <name> <version> <variable>",
		Short: "Remove a variable from the scope",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return service.UndeclareEnv(ctx, envVariableArgs(opts, args))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <name> <version> <variable>",
		Short: "Print the composed value of a variable",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				value, err := service.GetEnv(ctx, envVariableArgs(opts, args))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <name> <version>",
		Short: "Print every variable of the scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				result, err := service.Activate(ctx, app.ActivateRequest{
					Package: packageArgs(args),
					Scope:   types.Scope(opts.Scope),
				})
				if err != nil {
					return err
				}
				printExports(cmd, result.Variables)
				return nil
			})
		},
	})
	return cmd
}

func envValueCommand(state *rootState, opts *envOptions, use string, short string, apply func(app.Service, context.Context, app.EnvValueRequest) error) *cobra.Command {
	return valueArgs(&cobra.Command{
		Use:   use + " <name> <version> <variable> <value>",
		Short: short,
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withService(cmd, func(ctx context.Context, service app.Service) error {
				return apply(service, ctx, app.EnvValueRequest{
					Package: packageArgs(args),
					Scope:   types.Scope(opts.Scope),
					Name:    args[2],
					Value:   args[3],
				})
			})
		},
	})
}

// valueArgs stops flag parsing at the first positional argument so values
// such as "-O2" reach the command untouched. Flags go before the package.
func valueArgs(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func envVariableArgs(opts *envOptions, args []string) app.EnvVariableRequest {
	return app.EnvVariableRequest{
		Package: packageArgs(args),
		Scope:   types.Scope(opts.Scope),
		Name:    args[2],
	}
}
