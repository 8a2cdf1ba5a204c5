package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/newsletter-sieve/internal/config"
	"github.com/mikey/newsletter-sieve/internal/core"
	"github.com/mikey/newsletter-sieve/internal/di"
	"github.com/mikey/newsletter-sieve/internal/scheduler"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build application: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(func(
		cfg *config.Config,
		logger *zap.Logger,
		service *core.FilterService,
		source core.MessageSource,
		store core.ReputationStore,
	) error {
		defer logger.Sync()
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close reputation store", zap.Error(err))
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		job := func(ctx context.Context) error {
			return runBatch(ctx, cfg, logger, service, source)
		}

		schedCfg := cfg.GetSchedule()
		if !schedCfg.Enabled {
			return job(ctx)
		}

		sched := scheduler.New(schedCfg.Hour, schedCfg.Minute, job, logger)
		sched.Start(ctx)
		return nil
	})
	if err != nil {
		fmt.Printf("Run failed: %v\n", err)
		os.Exit(1)
	}
}

// runBatch fetches recent messages, filters them and exports the
// decision log for the run.
func runBatch(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	service *core.FilterService,
	source core.MessageSource,
) error {
	imapCfg := cfg.GetIMAP()
	startTime := time.Now()

	msgs, err := source.FetchSince(ctx, imapCfg.SinceDays, imapCfg.Limit)
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}
	if len(msgs) == 0 {
		logger.Info("No messages found", zap.Int("since_days", imapCfg.SinceDays))
		return nil
	}

	result, err := service.FilterBatch(ctx, msgs)
	if err != nil {
		return fmt.Errorf("filtering batch: %w", err)
	}

	logger.Info("Batch run completed",
		zap.String("run_id", result.RunID),
		zap.Int("fetched", len(msgs)),
		zap.Int("kept", len(result.Kept)),
		zap.Duration("duration", time.Since(startTime)))

	exportCfg := cfg.GetExport()
	if !exportCfg.Enabled {
		return nil
	}

	doc, err := core.ExportLog(result.Decisions, time.Now())
	if err != nil {
		return fmt.Errorf("serializing decision log: %w", err)
	}
	path := filepath.Join(exportCfg.Dir,
		fmt.Sprintf("decision_log_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("writing decision log: %w", err)
	}
	logger.Info("Decision log exported", zap.String("path", path))

	return nil
}
