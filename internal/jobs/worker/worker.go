// Package worker runs the background side of ingestion: a small pool of
// goroutines claiming queued sources off the database, plus periodic
// retention and rate-counter sweeps.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/niyahq/niya-backend/internal/platform/envutil"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/repos"
	"github.com/niyahq/niya-backend/internal/services"
	"github.com/niyahq/niya-backend/internal/types"
)

const failureMessageMaxLen = 500

type Worker struct {
	log        *logger.Logger
	sourceRepo repos.SourceRepo
	ingestion  services.IngestionService
	rateLimit  services.RateLimitService
	analytics  services.AnalyticsService
}

func NewWorker(
	baseLog *logger.Logger,
	sourceRepo repos.SourceRepo,
	ingestion services.IngestionService,
	rateLimit services.RateLimitService,
	analytics services.AnalyticsService,
) *Worker {
	return &Worker{
		log:        baseLog.With("component", "IngestionWorker"),
		sourceRepo: sourceRepo,
		ingestion:  ingestion,
		rateLimit:  rateLimit,
		analytics:  analytics,
	}
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := envutil.GetEnvAsInt("WORKER_CONCURRENCY", 4, w.log)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting ingestion worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
	go w.runSweeps(ctx)
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			source, err := w.sourceRepo.ClaimNextUploaded(ctx, nil)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Warn("ClaimNextUploaded failed", "worker_id", workerID, "error", err)
				}
				continue
			}
			if source == nil {
				continue
			}
			w.processClaimed(ctx, workerID, source)
		}
	}
}

// processClaimed runs the pipeline for one source, converting any failure
// (including panics and cancellation) into a failed status on the row so
// the operator can see what happened.
func (w *Worker) processClaimed(ctx context.Context, workerID int, source *types.Source) {
	log := w.log.With("worker_id", workerID, "source_id", source.ID, "bot_id", source.BotID)
	log.Info("Processing source", "type", source.Type, "name", source.Name)

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Ingestion panic", "panic", r)
				runErr = fmt.Errorf("panic during ingestion")
			}
		}()
		runErr = w.ingestion.ProcessSource(ctx, source)
	}()

	if runErr == nil {
		return
	}

	message := runErr.Error()
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		message = "cancelled"
	}
	if len(message) > failureMessageMaxLen {
		message = message[:failureMessageMaxLen]
	}
	log.Warn("Ingestion failed", "error", runErr)

	// Use a fresh context so shutdown still records the failure.
	markCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.sourceRepo.MarkFailed(markCtx, nil, source.ID, message); err != nil {
		log.Error("Marking source failed did not persist", "error", err)
	}
}

// runSweeps drops stale rate-counter windows every hour and purges query
// logs past each bot's retention window once a day.
func (w *Worker) runSweeps(ctx context.Context) {
	hourly := time.NewTicker(time.Hour)
	daily := time.NewTicker(24 * time.Hour)
	defer hourly.Stop()
	defer daily.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-hourly.C:
			if removed, err := w.rateLimit.Sweep(ctx); err != nil {
				w.log.Warn("Rate counter sweep failed", "error", err)
			} else if removed > 0 {
				w.log.Debug("Rate counter sweep done", "removed", removed)
			}
		case <-daily.C:
			if removed, err := w.analytics.PurgeExpired(ctx); err != nil {
				w.log.Warn("Query log retention purge failed", "error", err)
			} else if removed > 0 {
				w.log.Info("Query log retention purge done", "removed", removed)
			}
		}
	}
}
