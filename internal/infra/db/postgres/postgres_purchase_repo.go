package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"recharge-platform/internal/domain"
	"recharge-platform/internal/domain/model"
	"recharge-platform/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

// purchaseRepo implements the purchase set on Postgres.
// DB columns assumed for purchases: id TEXT PRIMARY KEY, customer_id,
// plan_id, reseller_id, recharge_code, assigned_code_id TEXT NULL,
// amount BIGINT, payment_method, payment_id, status,
// code_delivery_failure_reason, created_at TIMESTAMPTZ,
// approved_at TIMESTAMPTZ NULL, expires_at TIMESTAMPTZ,
// customer_name, customer_email, customer_phone.
// Reminder stages live in purchase_reminders (id, purchase_id, stage,
// sent_at, message_id) with UNIQUE (purchase_id, stage).
type purchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) repository.PurchaseRepository {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, customer_id, plan_id, reseller_id, recharge_code, assigned_code_id,
amount, payment_method, payment_id, status, code_delivery_failure_reason,
created_at, approved_at, expires_at, customer_name, customer_email, customer_phone`

func (r *purchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO purchases (` + purchaseColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (id) DO UPDATE SET
  recharge_code=$5, assigned_code_id=$6, status=$10,
  code_delivery_failure_reason=$11, approved_at=$13, expires_at=$14;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.CustomerID, p.PlanID, p.ResellerID, p.RechargeCode, p.AssignedCodeID,
		p.Amount, p.PaymentMethod, p.PaymentID, string(p.Status), p.CodeDeliveryFailureReason,
		p.CreatedAt, p.ApprovedAt, nullableTime(p.ExpiresAt), p.Customer.Name, p.Customer.Email, p.Customer.Phone,
	)
	if err != nil {
		return fmt.Errorf("postgres save purchase: %w", err)
	}

	// Reminder rows mirror the model: stages present and sent stay, everything
	// else is cleared (manual assignment resets the whole set).
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM purchase_reminders WHERE purchase_id=$1;`, p.ID); err != nil {
		return fmt.Errorf("postgres reset reminders: %w", err)
	}
	for stage, rec := range p.ExpiryReminders {
		if !rec.Sent {
			continue
		}
		const rq = `
INSERT INTO purchase_reminders (id, purchase_id, stage, sent_at, message_id)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (purchase_id, stage) DO NOTHING;`
		if _, err := execSQL(ctx, r.pool, tx, rq, uuid.NewString(), p.ID, string(stage), rec.SentAt, rec.MessageID); err != nil {
			return fmt.Errorf("postgres save reminder: %w", err)
		}
	}
	return nil
}

func (r *purchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := r.loadReminders(ctx, tx, map[string]*model.Purchase{p.ID: p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *purchaseRepo) ListPendingDelivery(ctx context.Context, tx repository.Tx) ([]*model.Purchase, error) {
	const q = `
SELECT ` + purchaseColumns + ` FROM purchases
 WHERE status='pending_code_delivery'
 ORDER BY created_at ASC;`
	return r.list(ctx, tx, q)
}

func (r *purchaseRepo) ListReminderCandidates(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Purchase, error) {
	const q = `
SELECT ` + purchaseColumns + ` FROM purchases
 WHERE status='approved' AND recharge_code <> '' AND expires_at > $1
 ORDER BY expires_at ASC;`
	return r.list(ctx, tx, q, now)
}

// MarkReminderSent lets the UNIQUE constraint on (purchase_id, stage) decide
// who records the stage: the insert that conflicts away reports false.
func (r *purchaseRepo) MarkReminderSent(ctx context.Context, tx repository.Tx, purchaseID string, stage model.ReminderStage, sentAt time.Time, messageID string) (bool, error) {
	const q = `
INSERT INTO purchase_reminders (id, purchase_id, stage, sent_at, message_id)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (purchase_id, stage) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, uuid.NewString(), purchaseID, string(stage), sentAt, messageID)
	if err != nil {
		return false, fmt.Errorf("postgres mark reminder: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *purchaseRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Purchase, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*model.Purchase)
	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		byID[p.ID] = p
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadReminders(ctx, tx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *purchaseRepo) loadReminders(ctx context.Context, tx repository.Tx, byID map[string]*model.Purchase) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	const q = `SELECT purchase_id, stage, sent_at, message_id FROM purchase_reminders WHERE purchase_id = ANY($1);`
	rows, err := queryRows(ctx, r.pool, tx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var purchaseID, stage, messageID string
		var sentAt time.Time
		if err := rows.Scan(&purchaseID, &stage, &sentAt, &messageID); err != nil {
			return domain.ErrReadDatabaseRow
		}
		if p, ok := byID[purchaseID]; ok {
			p.ExpiryReminders[model.ReminderStage(stage)] = model.ReminderRecord{
				Sent:      true,
				SentAt:    &sentAt,
				MessageID: messageID,
			}
		}
	}
	return rows.Err()
}

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	var p model.Purchase
	var status string
	var expiresAt *time.Time
	if err := row.Scan(
		&p.ID, &p.CustomerID, &p.PlanID, &p.ResellerID, &p.RechargeCode, &p.AssignedCodeID,
		&p.Amount, &p.PaymentMethod, &p.PaymentID, &status, &p.CodeDeliveryFailureReason,
		&p.CreatedAt, &p.ApprovedAt, &expiresAt, &p.Customer.Name, &p.Customer.Email, &p.Customer.Phone,
	); err != nil {
		return nil, err
	}
	p.Status = model.PurchaseStatus(status)
	if expiresAt != nil {
		p.ExpiresAt = *expiresAt
	}
	p.ExpiryReminders = model.NewReminderSet()
	return &p, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
