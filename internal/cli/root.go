package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lpm/internal/app"
	"lpm/internal/config"
	"lpm/internal/types"
)

// version is set at build time via ldflags.
var version = "dev"

type RootConfig struct {
	ConfigFile string
	LogLevel   string
	DataDir    string
}

type rootState struct {
	cfg      RootConfig
	settings config.Settings
}

func Execute() {
	root := newRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	state := &rootState{}
	cmd := &cobra.Command{
		Use:          "lpm",
		Short:        "Local package manager metadata tool",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd, state.cfg)
			if err != nil {
				return err
			}
			state.settings = settings
			setupLogging(settings.LogLevel)
			cmd.SetContext(log.Logger.WithContext(contextOf(cmd)))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&state.cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&state.cfg.LogLevel, "log-level", "info", "Log level")
	cmd.PersistentFlags().StringVar(&state.cfg.DataDir, "data-dir", "", "Override locations.dataDir")

	cmd.AddCommand(newVersionCommand(state))
	cmd.AddCommand(newInstallCommand(state))
	cmd.AddCommand(newStatusCommand(state))
	cmd.AddCommand(newDependencyCommand(state))
	cmd.AddCommand(newEnvCommand(state))
	cmd.AddCommand(newDirCommand(state))
	cmd.AddCommand(newBinaryCommand(state))
	cmd.AddCommand(newApplyCommand(state))
	cmd.AddCommand(newActivateCommand(state))
	return cmd
}

// loadSettings layers the defaults, <confDir>/config.yaml when present, the
// --config file and finally explicit flags.
func loadSettings(cmd *cobra.Command, cfg RootConfig) (config.Settings, error) {
	tree := config.New()
	defaultFile := filepath.Join(tree.GetString("locations.confDir"), "config.yaml")
	if _, err := os.Stat(defaultFile); err == nil {
		if err := tree.MergeFile(defaultFile); err != nil {
			return config.Settings{}, err
		}
	}
	if cfg.ConfigFile != "" {
		if err := tree.MergeFile(cfg.ConfigFile); err != nil {
			return config.Settings{}, err
		}
	}
	overrides := map[string]any{}
	if cfg.DataDir != "" {
		overrides["locations"] = map[string]any{"dataDir": cfg.DataDir}
	}
	if flagChanged(cmd, "log-level") {
		overrides["log_level"] = cfg.LogLevel
	}
	tree.MergeMap(overrides)
	return tree.Settings()
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// withService opens the package database for the duration of fn.
func (s *rootState) withService(cmd *cobra.Command, fn func(ctx context.Context, service app.Service) error) error {
	ctx := contextOf(cmd)
	service, err := app.NewService(ctx, s.settings)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := service.Close(); cerr != nil {
			log.Ctx(ctx).Warn().Err(cerr).Msg("failed to close package database")
		}
	}()
	return fn(ctx, service)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func exitCodeForError(err error) int {
	var (
		parseErr      *types.VersionParseError
		fsErr         *types.FilesystemError
		modeErr       *types.EnvironmentModeError
		notFoundErr   *types.NotFoundError
		duplicateErr  *types.DuplicateError
		persistentErr *types.PersistenceError
	)
	switch {
	case errors.As(err, &parseErr), errors.As(err, &duplicateErr):
		return 2
	case errors.As(err, &fsErr):
		return 3
	case errors.As(err, &modeErr):
		return 4
	case errors.As(err, &notFoundErr):
		return 5
	case errors.As(err, &persistentErr):
		return 6
	}
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodeNotFound:
		return 5
	case errbuilder.CodeInternal:
		return 6
	default:
		return 1
	}
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
