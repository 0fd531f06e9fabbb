package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"recharge-platform/internal/domain"
	"recharge-platform/internal/domain/model"
	"recharge-platform/internal/domain/ports/adapter"
	"recharge-platform/internal/domain/ports/repository"
	"recharge-platform/internal/infra/logging"
	"recharge-platform/internal/infra/metrics"
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

type ReminderUseCase interface {
	// CheckAndSendExpiryReminders runs one sweep over approved purchases and
	// returns how many reminders were dispatched. Only one sweep may run at a
	// time; a second caller gets domain.ErrSweepInProgress.
	CheckAndSendExpiryReminders(ctx context.Context) (int, error)
}

type reminderUC struct {
	purchases   repository.PurchaseRepository
	plans       repository.PlanRepository
	messenger   adapter.Messenger
	sendTimeout time.Duration
	inFlight    atomic.Bool
	now         func() time.Time
	log         *zerolog.Logger
}

func NewReminderUseCase(
	purchases repository.PurchaseRepository,
	plans repository.PlanRepository,
	messenger adapter.Messenger,
	sendTimeout time.Duration,
	logger *zerolog.Logger,
) *reminderUC {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &reminderUC{
		purchases:   purchases,
		plans:       plans,
		messenger:   messenger,
		sendTimeout: sendTimeout,
		now:         time.Now,
		log:         logger,
	}
}

func (u *reminderUC) CheckAndSendExpiryReminders(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "ReminderUC.CheckAndSendExpiryReminders")()
	// A slow messenger call must not let two overlapping sweeps both observe
	// sent=false and double-send.
	if !u.inFlight.CompareAndSwap(false, true) {
		return 0, domain.ErrSweepInProgress
	}
	defer u.inFlight.Store(false)

	now := u.now()
	candidates, err := u.purchases.ListReminderCandidates(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, p := range candidates {
		stage, ok := model.StageForDaysUntilExpiry(p.DaysUntilExpiry(now))
		if !ok {
			continue
		}
		if p.ReminderSent(stage) {
			continue
		}

		pctx := logging.WithPurchaseID(ctx, p.ID)
		log := logging.With(pctx, u.log)

		plan, err := u.plans.FindByID(pctx, repository.NoTX, p.PlanID)
		if err != nil {
			if errors.Is(err, domain.ErrPlanNotFound) || errors.Is(err, domain.ErrNotFound) {
				log.Warn().Str("plan_id", p.PlanID).Msg("reminder skipped: plan no longer exists")
				continue
			}
			return sent, err
		}

		msg := formatReminder(stage, p, plan)
		sendCtx, cancel := context.WithTimeout(pctx, u.sendTimeout)
		res, sendErr := u.messenger.Send(sendCtx, p.Customer.Phone, msg)
		cancel()
		if sendErr != nil {
			// Leave the stage unsent so the next sweep retries.
			metrics.IncReminderFailed(string(stage))
			log.Error().Err(sendErr).Str("stage", string(stage)).Msg("reminder dispatch failed")
			continue
		}

		marked, err := u.purchases.MarkReminderSent(pctx, repository.NoTX, p.ID, stage, u.now(), res.MessageID)
		if err != nil {
			log.Error().Err(err).Str("stage", string(stage)).Msg("failed to record reminder")
			continue
		}
		if marked {
			metrics.IncReminderSent(string(stage))
			sent++
		}
	}
	return sent, nil
}

func formatReminder(stage model.ReminderStage, p *model.Purchase, plan *model.Plan) string {
	expiry := p.ExpiresAt.Format("02/01/2006")
	switch stage {
	case model.ReminderStage3Days:
		return fmt.Sprintf("Hi %s! Your %s recharge (%s) expires in 3 days, on %s.", p.Customer.Name, plan.AppName, p.RechargeCode, expiry)
	case model.ReminderStage1Day:
		return fmt.Sprintf("Hi %s! Your %s recharge (%s) expires tomorrow, on %s.", p.Customer.Name, plan.AppName, p.RechargeCode, expiry)
	default:
		return fmt.Sprintf("Hi %s! Your %s recharge (%s) expires today. Renew now to stay connected.", p.Customer.Name, plan.AppName, p.RechargeCode)
	}
}
