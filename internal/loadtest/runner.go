package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

const progressInterval = time.Second

// Run executes a complete load test: health check, card generation,
// concurrent submission with per-response verification, and an optional dump
// of the generated cards. It fails if any response was inconsistent or if
// every batch failed.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting furlong load test",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("races", cfg.Races),
		logger.Int("runners_per_race", cfg.RunnersPerRace),
		logger.Int("races_per_batch", cfg.RacesPerBatch),
		logger.Int("workers", cfg.Workers),
		logger.String("tier", cfg.Tier))

	client := NewClient(cfg.BaseURL, cfg.Tier, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, err
	}

	cards := NewGenerator(cfg.Seed).Cards(cfg.Races, cfg.RunnersPerRace)
	stats.RacesGenerated = len(cards)

	if err := submit(ctx, cfg, client, cards, stats, log); err != nil {
		return stats, err
	}

	if cfg.OutputFile != "" {
		if err := saveCards(cfg.OutputFile, cards); err != nil {
			log.Warn(ctx, "failed to save cards", logger.Error(err))
		} else {
			log.Info(ctx, "cards saved", logger.String("path", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)

	switch {
	case stats.Violations > 0:
		return stats, fmt.Errorf("%w: %d violations", ErrInconsistent, stats.Violations)
	case stats.BatchesSubmitted > 0 && stats.BatchesFailed == stats.BatchesSubmitted:
		return stats, errors.New("every batch failed")
	}
	return stats, nil
}

// submit posts cards in batches with at most cfg.Workers requests in flight.
func submit(ctx context.Context, cfg *Config, client *Client, cards []Card, stats *Stats, log logger.Logger) error {
	var submitted, ok, degraded, failed, violations atomic.Int64
	batches := chunk(cards, cfg.RacesPerBatch)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info(ctx, "progress",
					logger.Int("submitted", int(submitted.Load())),
					logger.Int("total", len(batches)),
					logger.Int("failed", int(failed.Load())))
			}
		}
	}()

	for _, batch := range batches {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res, err := client.Rank(gctx, flatten(batch))
			submitted.Add(1)
			if err != nil {
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "batch failed", logger.Error(err))
				}
				return nil
			}
			if res.Degraded() {
				degraded.Add(1)
			} else {
				ok.Add(1)
			}
			if err := Verify(batch, res); err != nil {
				violations.Add(1)
				log.Error(gctx, "inconsistent ranking", logger.String("batch_id", res.BatchID), logger.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()
	close(done)

	stats.BatchesSubmitted = int(submitted.Load())
	stats.BatchesOK = int(ok.Load())
	stats.BatchesDegraded = int(degraded.Load())
	stats.BatchesFailed = int(failed.Load())
	stats.Violations = int(violations.Load())
	return err
}

func chunk(cards []Card, size int) [][]Card {
	var out [][]Card
	for start := 0; start < len(cards); start += size {
		end := min(start+size, len(cards))
		out = append(out, cards[start:end])
	}
	return out
}

func flatten(cards []Card) []model.RawEntry {
	var entries []model.RawEntry
	for _, c := range cards {
		entries = append(entries, c.Entries...)
	}
	return entries
}

func saveCards(path string, cards []Card) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cards: %w", err)
	}
	return os.WriteFile(path, raw, filePermission)
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.RacesGenerated) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("races", stats.RacesGenerated),
		logger.Int("batches_submitted", stats.BatchesSubmitted),
		logger.Int("batches_ok", stats.BatchesOK),
		logger.Int("batches_degraded", stats.BatchesDegraded),
		logger.Int("batches_failed", stats.BatchesFailed),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("races_per_second", perSecond))
}

// Summary renders stats for terminal output.
func (s *Stats) Summary() string {
	return fmt.Sprintf("races=%d batches=%d ok=%d degraded=%d failed=%d violations=%d duration=%s",
		s.RacesGenerated, s.BatchesSubmitted, s.BatchesOK, s.BatchesDegraded, s.BatchesFailed, s.Violations,
		s.Duration.Round(time.Millisecond))
}
