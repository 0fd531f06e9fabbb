package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"recharge-platform/internal/domain"
	"recharge-platform/internal/domain/model"
	"recharge-platform/internal/domain/ports/repository"
	"recharge-platform/internal/infra/logging"
	"recharge-platform/internal/infra/metrics"
)

// Compile-time check
var _ InventoryUseCase = (*inventoryUC)(nil)

// ImportResult reports an import batch: Inserted holds the newly created
// records; TotalCount counts submitted codes after empty-line filtering, so
// callers can report "InsertedCount imported, TotalCount-InsertedCount
// duplicates ignored".
type ImportResult struct {
	Inserted      []*model.RechargeCode
	InsertedCount int
	TotalCount    int
}

type InventoryUseCase interface {
	// ImportCodes normalizes and stores a batch of raw code strings for a
	// plan. Codes already present anywhere in the inventory are silently
	// skipped. Batches above the configured cap are rejected with
	// domain.ErrBatchTooLarge.
	ImportCodes(ctx context.Context, planID string, rawCodes []string) (*ImportResult, error)
	// CountByStatus reports the inventory per status for one plan.
	CountByStatus(ctx context.Context, planID string) (map[model.CodeStatus]int, error)
	// ExpireOverdueCodes flips available codes past their expiry to expired.
	ExpireOverdueCodes(ctx context.Context) (int, error)
}

type inventoryUC struct {
	codes    repository.RechargeCodeRepository
	plans    repository.PlanRepository
	batchCap int
	codeTTL  time.Duration
	now      func() time.Time
	log      *zerolog.Logger
}

func NewInventoryUseCase(codes repository.RechargeCodeRepository, plans repository.PlanRepository, batchCap int, codeTTL time.Duration, logger *zerolog.Logger) *inventoryUC {
	if batchCap <= 0 {
		batchCap = 1000
	}
	if codeTTL <= 0 {
		codeTTL = 30 * 24 * time.Hour
	}
	return &inventoryUC{
		codes:    codes,
		plans:    plans,
		batchCap: batchCap,
		codeTTL:  codeTTL,
		now:      time.Now,
		log:      logger,
	}
}

func (u *inventoryUC) ImportCodes(ctx context.Context, planID string, rawCodes []string) (*ImportResult, error) {
	defer logging.TraceDuration(u.log, "InventoryUC.ImportCodes")()
	if planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if len(rawCodes) > u.batchCap {
		return nil, domain.ErrBatchTooLarge
	}

	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}

	now := u.now()
	expires := now.Add(u.codeTTL)

	// Normalize, drop empties, and collapse in-batch duplicates keeping the
	// first occurrence. TotalCount counts codes after empty filtering only.
	seen := make(map[string]struct{}, len(rawCodes))
	var toInsert []*model.RechargeCode
	total := 0
	for _, raw := range rawCodes {
		canonical := model.NormalizeCode(raw)
		if canonical == "" {
			continue
		}
		total++
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		toInsert = append(toInsert, &model.RechargeCode{
			ID:        uuid.NewString(),
			Code:      canonical,
			Value:     plan.Value,
			Status:    model.CodeStatusAvailable,
			PlanID:    plan.ID,
			AppName:   plan.AppName,
			CreatedAt: now,
			ExpiresAt: expires,
		})
	}
	if total == 0 {
		return nil, domain.ErrEmptyBatch
	}

	inserted, err := u.codes.InsertIgnoreDuplicates(ctx, repository.NoTX, toInsert)
	if err != nil {
		return nil, err
	}

	metrics.IncCodesImported(plan.Name, len(inserted), total-len(inserted))
	logging.With(ctx, u.log).Info().
		Str("plan_id", planID).
		Int("inserted", len(inserted)).
		Int("total", total).
		Msg("codes imported")

	return &ImportResult{
		Inserted:      inserted,
		InsertedCount: len(inserted),
		TotalCount:    total,
	}, nil
}

func (u *inventoryUC) CountByStatus(ctx context.Context, planID string) (map[model.CodeStatus]int, error) {
	return u.codes.CountByStatus(ctx, repository.NoTX, planID)
}

func (u *inventoryUC) ExpireOverdueCodes(ctx context.Context) (int, error) {
	return u.codes.ExpireOverdue(ctx, repository.NoTX)
}
