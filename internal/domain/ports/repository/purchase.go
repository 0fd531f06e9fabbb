package repository

import (
	"context"
	"time"

	"recharge-platform/internal/domain/model"
)

// PurchaseRepository is the port for the purchase set. Purchases are created
// by the sale orchestrator and mutated in place by manual assignment and the
// reminder scheduler; they are never deleted.
type PurchaseRepository interface {
	// Save inserts or updates a purchase, reminder flags included.
	Save(ctx context.Context, tx Tx, p *model.Purchase) error
	// FindByID loads a purchase. Returns domain.ErrNotFound if missing.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Purchase, error)
	// ListPendingDelivery returns the delivery fallback queue: purchases in
	// pending_code_delivery, oldest first.
	ListPendingDelivery(ctx context.Context, tx Tx) ([]*model.Purchase, error)
	// ListReminderCandidates returns approved purchases with a delivered code
	// whose expiry is strictly after now.
	ListReminderCandidates(ctx context.Context, tx Tx, now time.Time) ([]*model.Purchase, error)
	// MarkReminderSent persists one stage as sent. The write is conditional on
	// the stage still being unsent; it returns false when another sweep got
	// there first.
	MarkReminderSent(ctx context.Context, tx Tx, purchaseID string, stage model.ReminderStage, sentAt time.Time, messageID string) (bool, error)
}
