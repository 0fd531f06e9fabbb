package repository

import (
	"context"

	"recharge-platform/internal/domain/model"
)

// RechargeCodeRepository is the port for the code inventory.
type RechargeCodeRepository interface {
	// InsertIgnoreDuplicates inserts the given codes, silently skipping any
	// whose canonical code string already exists anywhere in the inventory.
	// Returns the codes that were actually inserted.
	InsertIgnoreDuplicates(ctx context.Context, tx Tx, codes []*model.RechargeCode) ([]*model.RechargeCode, error)
	// AllocateOne atomically flips the oldest available code of the plan to
	// sold and returns it. Allocation order is FIFO by creation time (a stated
	// guarantee). Returns domain.ErrNotFound when the pool is exhausted.
	AllocateOne(ctx context.Context, tx Tx, planID string) (*model.RechargeCode, error)
	// AllocateByID atomically flips the specific code to sold. Returns
	// domain.ErrCodeNotFound if it does not exist and domain.ErrCodeNotAvailable
	// if it exists but is not available.
	AllocateByID(ctx context.Context, tx Tx, codeID string) (*model.RechargeCode, error)
	// FindByID loads a code regardless of status.
	FindByID(ctx context.Context, tx Tx, codeID string) (*model.RechargeCode, error)
	// CountByStatus returns status -> count for one plan.
	CountByStatus(ctx context.Context, tx Tx, planID string) (map[model.CodeStatus]int, error)
	// ExpireOverdue flips available codes whose expiry has passed to expired,
	// returning how many rows changed.
	ExpireOverdue(ctx context.Context, tx Tx) (int, error)
}
