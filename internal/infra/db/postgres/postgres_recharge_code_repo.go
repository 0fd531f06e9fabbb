package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"recharge-platform/internal/domain"
	"recharge-platform/internal/domain/model"
	"recharge-platform/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.RechargeCodeRepository = (*rechargeCodeRepo)(nil)

// rechargeCodeRepo implements the code inventory on Postgres.
// DB columns assumed: id TEXT PRIMARY KEY, code TEXT UNIQUE, value BIGINT,
// status TEXT, plan_id TEXT, app_name TEXT, created_at TIMESTAMPTZ,
// sold_at TIMESTAMPTZ NULL, expires_at TIMESTAMPTZ.
type rechargeCodeRepo struct {
	pool *pgxpool.Pool
}

func NewRechargeCodeRepo(pool *pgxpool.Pool) repository.RechargeCodeRepository {
	return &rechargeCodeRepo{pool: pool}
}

const codeColumns = "id, code, value, status, plan_id, app_name, created_at, sold_at, expires_at"

// InsertIgnoreDuplicates relies on the UNIQUE constraint on code: the insert
// is "insert new, ignore existing", never an error for duplicates. RETURNING
// only yields the rows that were actually inserted.
func (r *rechargeCodeRepo) InsertIgnoreDuplicates(ctx context.Context, tx repository.Tx, codes []*model.RechargeCode) ([]*model.RechargeCode, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	q := "INSERT INTO recharge_codes (" + codeColumns + ") VALUES "
	args := make([]interface{}, 0, len(codes)*9)
	for i, c := range codes {
		if i > 0 {
			q += ","
		}
		base := i * 9
		q += fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9)
		args = append(args, c.ID, c.Code, c.Value, string(c.Status), c.PlanID, c.AppName, c.CreatedAt, c.SoldAt, c.ExpiresAt)
	}
	q += " ON CONFLICT (code) DO NOTHING RETURNING id;"

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres insert codes: %w", err)
	}
	defer rows.Close()

	insertedIDs := make(map[string]struct{}, len(codes))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		insertedIDs[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres insert codes: %w", err)
	}

	var inserted []*model.RechargeCode
	for _, c := range codes {
		if _, ok := insertedIDs[c.ID]; ok {
			inserted = append(inserted, c)
		}
	}
	return inserted, nil
}

// AllocateOne picks the oldest available code of the plan and flips it to
// sold in a single conditional update. FOR UPDATE SKIP LOCKED keeps two
// concurrent sale attempts from ever receiving the same row.
func (r *rechargeCodeRepo) AllocateOne(ctx context.Context, tx repository.Tx, planID string) (*model.RechargeCode, error) {
	const q = `
UPDATE recharge_codes SET status='sold', sold_at=$2
 WHERE id = (
       SELECT id FROM recharge_codes
        WHERE plan_id=$1 AND status='available'
        ORDER BY created_at, id
        LIMIT 1
          FOR UPDATE SKIP LOCKED
 )
RETURNING ` + codeColumns + `;`

	row, err := pickRow(ctx, r.pool, tx, q, planID, time.Now())
	if err != nil {
		return nil, err
	}
	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// AllocateByID flips the specific code to sold with the same atomicity
// guarantee as AllocateOne, scoped to the operator-picked id.
func (r *rechargeCodeRepo) AllocateByID(ctx context.Context, tx repository.Tx, codeID string) (*model.RechargeCode, error) {
	const q = `
UPDATE recharge_codes SET status='sold', sold_at=$2
 WHERE id=$1 AND status='available'
RETURNING ` + codeColumns + `;`

	row, err := pickRow(ctx, r.pool, tx, q, codeID, time.Now())
	if err != nil {
		return nil, err
	}
	c, err := scanCode(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Distinguish missing from not-available for reportable outcomes.
	if _, findErr := r.FindByID(ctx, tx, codeID); findErr != nil {
		if errors.Is(findErr, domain.ErrNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, findErr
	}
	return nil, domain.ErrCodeNotAvailable
}

func (r *rechargeCodeRepo) FindByID(ctx context.Context, tx repository.Tx, codeID string) (*model.RechargeCode, error) {
	const q = `SELECT ` + codeColumns + ` FROM recharge_codes WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, codeID)
	if err != nil {
		return nil, err
	}
	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *rechargeCodeRepo) CountByStatus(ctx context.Context, tx repository.Tx, planID string) (map[model.CodeStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM recharge_codes WHERE plan_id=$1 GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.CodeStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.CodeStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *rechargeCodeRepo) ExpireOverdue(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `UPDATE recharge_codes SET status='expired' WHERE status='available' AND expires_at <= $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, time.Now())
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func scanCode(row pgx.Row) (*model.RechargeCode, error) {
	var c model.RechargeCode
	var status string
	if err := row.Scan(&c.ID, &c.Code, &c.Value, &status, &c.PlanID, &c.AppName, &c.CreatedAt, &c.SoldAt, &c.ExpiresAt); err != nil {
		return nil, err
	}
	c.Status = model.CodeStatus(status)
	return &c, nil
}
