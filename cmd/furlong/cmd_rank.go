package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/domain/types"
	"github.com/okian/furlong/internal/validation"
)

type rankOptions struct {
	predict   bool
	threshold float64
	impute    bool
	compact   bool
}

func newRankCommand(g *globals) *cobra.Command {
	opts := &rankOptions{}
	cmd := &cobra.Command{
		Use:   "rank FILE",
		Short: "Rank a batch of race entries offline",
		Long: `Rank the entries in FILE (or stdin when FILE is "-") with the models in
the manifest and print the result as JSON.

FILE holds either a request body as accepted by POST /v1/rank
({"entries": [...], "confidence_threshold": 0.7}) or a bare array of entries.
The configured max_batch_size applies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, g, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.predict, "predict", false, "Classify each entry instead of ranking within races")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Confidence threshold override in (0, 1]")
	cmd.Flags().BoolVar(&opts.impute, "impute", false, "Fill missing attributes from the rest of the batch")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Print JSON on one line")

	return cmd
}

type batchFile struct {
	Entries   []model.RawEntry `json:"entries"`
	Threshold float64          `json:"confidence_threshold"`
	Impute    bool             `json:"impute"`
}

func runRank(cmd *cobra.Command, g *globals, opts *rankOptions, path string) error {
	raw, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	req, err := parseBatch(raw)
	if err != nil {
		return err
	}
	batchOpts := types.BatchOptions{Threshold: req.Threshold, Impute: req.Impute || opts.impute}
	if opts.threshold != 0 {
		batchOpts.Threshold = opts.threshold
	}

	ctx := cmd.Context()
	svc, closeSvc, err := g.startService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	var res *types.Result
	if opts.predict {
		res, err = svc.Predict(ctx, g.tier, req.Entries, batchOpts)
	} else {
		res, err = svc.Rank(ctx, g.tier, req.Entries, batchOpts)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res, opts.compact)
}

// parseBatch accepts a request object or a bare array of entries.
func parseBatch(raw []byte) (*batchFile, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		trimmed = append(append([]byte(`{"entries":`), trimmed...), '}')
	}
	if err := validation.JSON(validation.Batch, trimmed); err != nil {
		return nil, err
	}
	var req batchFile
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return &req, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func printJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
