// Package cmd defines the CLI commands of the trademark harvester.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/app"
	"github.com/JakeFAU/trademark-harvester/internal/config"
	"github.com/JakeFAU/trademark-harvester/internal/logging"
)

// configKeyAnnotation marks a flag as an override for a config key.
const configKeyAnnotation = "harvester_config_key"

const closeTimeout = 10 * time.Second

type appKeyType struct{}

var appKey appKeyType

// newApp is the application factory, replaced in tests.
var newApp = func(cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(cfg, logger)
}

type rootState struct {
	cfgFile string
	app     *app.App
}

// newRootCmd creates the root command and its subcommands. The built App is
// kept in state so Execute can close it even when a subcommand fails.
func newRootCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Harvest trademark records, their images, and model descriptions.",
		Long: `harvester pulls daily trademark records from a remote API in bounded
concurrent batches, aggregates them into one JSON artifact, downloads the
referenced images at most once, builds a labelled dataset, and queries a
local inference endpoint over it.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			cfg, err := config.Load(state.cfgFile, flagBindings(cmd))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				File:        cfg.Logging.File,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			state.app = a
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&state.cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newAssetsCmd())
	cmd.AddCommand(newDatasetCmd())
	cmd.AddCommand(newExtractCmd())
	return cmd
}

// Execute runs the CLI until completion or SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := &rootState{}
	err := newRootCmd(state).ExecuteContext(ctx)
	if state.app != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if cerr := state.app.Close(closeCtx); cerr != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", cerr)
		}
		cancel()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// bindFlag ties a local flag to a config key so viper resolves it with the
// usual precedence.
func bindFlag(cmd *cobra.Command, flag, key string) {
	cobra.CheckErr(cmd.Flags().SetAnnotation(flag, configKeyAnnotation, []string{key}))
}

func flagBindings(cmd *cobra.Command) map[string]*pflag.Flag {
	out := make(map[string]*pflag.Flag)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys := f.Annotations[configKeyAnnotation]; len(keys) == 1 {
			out[keys[0]] = f
		}
	})
	return out
}
