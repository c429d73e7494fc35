package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/validation"
)

func newStreakCommand(g *globals) *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "streak FILE",
		Short: "Estimate the chance of one selection per race winning every leg",
		Long: `Read one selected entry per race from FILE (or stdin when FILE is "-"),
in race order, and print the streak probability.

FILE holds either {"races": [...]} or a bare array of entries. Exactly
streak_length entries are required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			races, err := parseStreak(raw)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, closeSvc, err := g.startService(ctx)
			if err != nil {
				return err
			}
			defer closeSvc()

			res, err := svc.Streak(ctx, g.tier, races)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res, compact)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Print JSON on one line")

	return cmd
}

func parseStreak(raw []byte) ([]model.RawEntry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		trimmed = append(append([]byte(`{"races":`), trimmed...), '}')
	}
	if err := validation.JSON(validation.Streak, trimmed); err != nil {
		return nil, err
	}
	var req struct {
		Races []model.RawEntry `json:"races"`
	}
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, fmt.Errorf("decode streak: %w", err)
	}
	return req.Races, nil
}
