// Package worker runs background reconciliation so a user's points stay
// fresh even when they never press the sync button.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mergequest/mergequest/internal/repository"
	"github.com/mergequest/mergequest/internal/service"
)

// SyncWorker periodically reconciles users whose last sync is stale.
//
// Each tick picks the users least recently synced (never-synced users
// first) and runs a normal sync pass for each. Per-user failures are
// logged and do not stop the batch, and a failed attempt still updates
// the user's sync time so repeat offenders rotate to the back of the
// queue instead of being retried first on every tick.
type SyncWorker struct {
	users     repository.UserRepository
	sync      *service.SyncService
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	scheduler gocron.Scheduler
}

// NewSyncWorker creates a worker that every interval syncs up to batchSize
// users whose last sync is older than the interval.
func NewSyncWorker(
	users repository.UserRepository,
	sync *service.SyncService,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *SyncWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &SyncWorker{
		users:     users,
		sync:      sync,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Start schedules the periodic job and returns. Call Stop on shutdown.
func (w *SyncWorker) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	w.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.runBatch),
	)
	if err != nil {
		return err
	}

	sched.Start()
	w.logger.Info("background sync worker started",
		slog.Duration("interval", w.interval),
		slog.Int("batch_size", w.batchSize),
	)
	return nil
}

// Stop shuts the scheduler down, waiting for a running batch to finish.
func (w *SyncWorker) Stop() error {
	if w.scheduler == nil {
		return nil
	}
	return w.scheduler.Shutdown()
}

func (w *SyncWorker) runBatch() {
	ctx := context.Background()
	cutoff := time.Now().Add(-w.interval)

	stale, err := w.users.ListSyncedBefore(ctx, cutoff, w.batchSize)
	if err != nil {
		w.logger.Error("sync worker: listing stale users failed", slog.String("error", err.Error()))
		return
	}
	if len(stale) == 0 {
		return
	}

	w.logger.Info("sync worker: starting batch", slog.Int("users", len(stale)))
	for _, user := range stale {
		if _, err := w.sync.Sync(ctx, user.GitHubID); err != nil {
			// Common and expected: the user revoked the OAuth grant. Record
			// the attempt anyway — a failing user who kept a stale
			// LastSyncedAt would sit at the front of the oldest-first queue
			// on every tick and crowd out healthy users.
			w.logger.Warn("sync worker: user sync failed",
				slog.String("user", user.GitHubID),
				slog.String("error", err.Error()),
			)
			if terr := w.users.TouchSyncedAt(ctx, user.ID, time.Now().UTC()); terr != nil {
				w.logger.Error("sync worker: failed to record sync attempt",
					slog.String("user", user.GitHubID),
					slog.String("error", terr.Error()),
				)
			}
		}
	}
}
