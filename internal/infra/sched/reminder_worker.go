package sched

import (
	"context"
	"errors"
	"time"

	"recharge-platform/internal/domain"
	"recharge-platform/internal/infra/metrics"
	"recharge-platform/internal/infra/redis"
	"recharge-platform/internal/usecase"

	"github.com/rs/zerolog"
)

const sweepLockKey = "reminder:sweep"

// ReminderWorker drives the expiry-reminder sweep on a fixed tick. The use
// case serializes sweeps in-process; the optional locker extends that
// exclusion across replicas.
type ReminderWorker struct {
	interval   time.Duration
	reminderUC usecase.ReminderUseCase
	locker     redis.Locker // nil when running single-instance
	log        *zerolog.Logger
}

func NewReminderWorker(interval time.Duration, reminderUC usecase.ReminderUseCase, locker redis.Locker, logger *zerolog.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	compLog := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{
		interval:   interval,
		reminderUC: reminderUC,
		locker:     locker,
		log:        &compLog,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting reminder worker")
	// Run once on startup, then on every tick
	w.runSweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reminder worker")
			return ctx.Err()
		case <-ticker.C:
			w.runSweep(ctx)
		}
	}
}

func (w *ReminderWorker) runSweep(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
		if err != nil {
			if errors.Is(err, domain.ErrSweepInProgress) {
				w.log.Debug().Msg("sweep held by another instance, skipping tick")
			} else {
				w.log.Error().Err(err).Msg("sweep lock failed")
			}
			return
		}
		defer func() {
			if err := w.locker.Unlock(ctx, sweepLockKey, token); err != nil {
				w.log.Error().Err(err).Msg("sweep unlock failed")
			}
		}()
	}

	start := time.Now()
	sent, err := w.reminderUC.CheckAndSendExpiryReminders(ctx)
	metrics.ObserveSweepDuration(time.Since(start))
	if err != nil {
		if errors.Is(err, domain.ErrSweepInProgress) {
			w.log.Debug().Msg("previous sweep still running, skipping tick")
			return
		}
		w.log.Error().Err(err).Msg("reminder sweep failed")
	}
	if sent > 0 {
		w.log.Info().Int("count", sent).Msg("expiry reminders sent")
	}
}
