package sched

import (
	"context"
	"time"

	"recharge-platform/internal/infra/metrics"
	"recharge-platform/internal/usecase"

	"github.com/rs/zerolog"
)

// CodeExpiryWorker periodically flips overdue available codes to expired.
type CodeExpiryWorker struct {
	interval    time.Duration
	inventoryUC usecase.InventoryUseCase
	log         *zerolog.Logger
}

func NewCodeExpiryWorker(interval time.Duration, inventoryUC usecase.InventoryUseCase, logger *zerolog.Logger) *CodeExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	exprLog := logger.With().Str("component", "CodeExpiryWorker").Logger()
	return &CodeExpiryWorker{
		interval:    interval,
		inventoryUC: inventoryUC,
		log:         &exprLog,
	}
}

func (w *CodeExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting code expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping code expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.inventoryUC.ExpireOverdueCodes(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("code expiry sweep failed")
			}
			if n > 0 {
				metrics.IncCodesExpired(n)
				w.log.Info().Int("count", n).Msg("overdue codes expired")
			}
		}
	}
}
