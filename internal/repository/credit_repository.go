package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

var creditColumns = []string{"id", "user_id", "absence_id", "expires_at", "used_at", "created_at"}

// CreditRepository кредиты на замену
type CreditRepository struct {
	*base.Repository
}

func NewCreditRepository(pool *pgxpool.Pool) *CreditRepository {
	return &CreditRepository{Repository: base.NewRepository(pool)}
}

func scanCredit(row rowScanner) (*model.ReplacementCredit, error) {
	var c model.ReplacementCredit
	if err := row.Scan(&c.ID, &c.UserID, &c.AbsenceID, &c.ExpiresAt, &c.UsedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create выпускает кредит; absence_id уникален
func (r *CreditRepository) Create(ctx context.Context, c *model.ReplacementCredit) error {
	q := base.Builder.Insert("replacement_credits").
		Columns("user_id", "absence_id", "expires_at").
		Values(c.UserID, c.AbsenceID, c.ExpiresAt).
		Suffix("RETURNING id, created_at")

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return fmt.Errorf("create credit: %w", err)
	}
	if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("create credit: %w", base.MapError(err))
	}
	return nil
}

// GetByID получает кредит; внутри транзакции блокирует строку
func (r *CreditRepository) GetByID(ctx context.Context, id int64) (*model.ReplacementCredit, error) {
	q := base.ForUpdate(ctx, base.Builder.Select(creditColumns...).From("replacement_credits").Where(squirrel.Eq{"id": id}))

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get credit: %w", err)
	}
	c, err := scanCredit(row)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credit: %w", base.MapError(err))
	}
	return c, nil
}

// MarkUsed гасит кредит, только если он не использован и не истёк к моменту at
func (r *CreditRepository) MarkUsed(ctx context.Context, id int64, at time.Time) (bool, error) {
	q := base.Builder.Update("replacement_credits").
		Set("used_at", at).
		Where(squirrel.Eq{"id": id, "used_at": nil}).
		Where(squirrel.Gt{"expires_at": at})

	affected, err := r.ExecAffected(ctx, q)
	if err != nil {
		return false, fmt.Errorf("mark credit used: %w", err)
	}
	return affected == 1, nil
}

// ClearUsed возвращает кредит в доступное состояние
func (r *CreditRepository) ClearUsed(ctx context.Context, id int64) error {
	q := base.Builder.Update("replacement_credits").
		Set("used_at", nil).
		Where(squirrel.Eq{"id": id})
	return execOne(ctx, r.Repository, q, "clear credit usage")
}

// ListAvailableByUser неиспользованные и не истёкшие кредиты, ближайшие к истечению первыми
func (r *CreditRepository) ListAvailableByUser(ctx context.Context, userID int64, now time.Time) ([]*model.ReplacementCredit, error) {
	q := base.Builder.Select(creditColumns...).
		From("replacement_credits").
		Where(squirrel.Eq{"user_id": userID, "used_at": nil}).
		Where(squirrel.Gt{"expires_at": now}).
		OrderBy("expires_at", "id")
	return r.list(ctx, q, "list available credits")
}

// ListExpiringBetween неиспользованные кредиты с from < expires_at <= to
func (r *CreditRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.ReplacementCredit, error) {
	q := base.Builder.Select(creditColumns...).
		From("replacement_credits").
		Where(squirrel.Eq{"used_at": nil}).
		Where(squirrel.Gt{"expires_at": from}).
		Where(squirrel.LtOrEq{"expires_at": to}).
		OrderBy("expires_at", "id")
	return r.list(ctx, q, "list expiring credits")
}

func (r *CreditRepository) list(ctx context.Context, q squirrel.SelectBuilder, op string) ([]*model.ReplacementCredit, error) {
	rows, err := r.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*model.ReplacementCredit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
