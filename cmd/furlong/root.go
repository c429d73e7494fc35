package main

import (
	"context"

	"github.com/spf13/cobra"

	service "github.com/okian/furlong/internal/app"
	"github.com/okian/furlong/internal/bootstrap"
	"github.com/okian/furlong/internal/config"
	"github.com/okian/furlong/pkg/logger"
)

var version = "dev"

// globals are the flags shared by every subcommand.
type globals struct {
	manifest string
	tier     string
	logLevel string
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:   "furlong",
		Short: "Furlong - ensemble ranking of race entries",
		Long: `Furlong scores race entries with every model in a manifest, fuses the
scores, ranks runners within each race and attaches a confidence and a
betting signal.

The offline commands use the same configuration as the server: defaults,
then the YAML file named by FURLONG_CONFIG, then FURLONG_* variables.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&g.manifest, "manifest", "", "Model manifest (overrides manifest_path)")
	cmd.PersistentFlags().StringVar(&g.tier, "tier", "", "Subscription tier to rank as (default: default_tier)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level written to stderr")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithLevel(g.logLevel))
	}

	cmd.AddCommand(newRankCommand(g))
	cmd.AddCommand(newStreakCommand(g))
	cmd.AddCommand(newModelsCommand(g))
	cmd.AddCommand(newLoadtestCommand(g))

	return cmd
}

// config loads the layered configuration and applies flag overrides.
func (g *globals) config() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if g.manifest != "" {
		cfg.ManifestPath = g.manifest
	}
	return cfg, nil
}

// startService starts a ranking service for one offline command.
func (g *globals) startService(ctx context.Context) (*service.Service, func(), error) {
	cfg, err := g.config()
	if err != nil {
		return nil, nil, err
	}
	return bootstrap.Service(ctx, cfg, logger.Get())
}
