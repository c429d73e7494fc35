package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/furlong/internal/loadtest"
	"github.com/okian/furlong/pkg/logger"
)

// Default load test settings.
const (
	defaultRaces         = 500
	defaultRunners       = 10
	defaultRacesPerBatch = 5
	defaultTimeout       = 30 * time.Second
	defaultRunTimeout    = 10 * time.Minute
)

func newLoadtestCommand(g *globals) *cobra.Command {
	cfg := &loadtest.Config{}
	var runTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Post synthetic race cards to a running server and verify the rankings",
		Long: `Generate random race cards, post them to /v1/rank concurrently and check
every response: one group per race, ranks 1..N in score order, confidence in
[0, 1] and known signals. Exits non-zero on any inconsistency.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Tier = g.tier
			ctx := cmd.Context()
			if runTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runTimeout)
				defer cancel()
			}
			stats, err := loadtest.Run(ctx, cfg, logger.Get().Named("loadtest"))
			if stats != nil {
				fmt.Fprintln(cmd.OutOrStdout(), stats.Summary())
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	cmd.Flags().IntVar(&cfg.Races, "races", defaultRaces, "Race cards to generate")
	cmd.Flags().IntVar(&cfg.RunnersPerRace, "runners", defaultRunners, "Entries per race")
	cmd.Flags().IntVar(&cfg.RacesPerBatch, "batch", defaultRacesPerBatch, "Races per request")
	cmd.Flags().IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "Concurrent requests")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "Per-request timeout")
	cmd.Flags().DurationVar(&runTimeout, "run-timeout", defaultRunTimeout, "Overall time limit")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 0, "Generator seed (0 picks one)")
	cmd.Flags().StringVar(&cfg.OutputFile, "output", "", "Save generated cards to this file")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "Log every failed batch")

	return cmd
}
