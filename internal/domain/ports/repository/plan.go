package repository

import (
	"context"

	"recharge-platform/internal/domain/model"
)

// PlanRepository is the read-only collaborator for plan lookups. Plan CRUD is
// owned by the surrounding application.
type PlanRepository interface {
	// FindByID returns domain.ErrPlanNotFound if the plan does not exist.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
}
