package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

// rowScanner общий интерфейс pgx.Row и pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// execOne выполняет команду, которая обязана затронуть ровно одну строку
func execOne(ctx context.Context, r *base.Repository, q squirrel.Sqlizer, op string) error {
	affected, err := r.ExecAffected(ctx, q)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, base.ErrNotFound)
	}
	return nil
}

// queryAll читает все строки запроса через scan
func queryAll[T any](ctx context.Context, r *base.Repository, q squirrel.Sqlizer, scan func(rowScanner) (*T, error), noun string) ([]*T, error) {
	rows, err := r.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", noun, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", noun, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", noun, err)
	}
	return out, nil
}

// onWeeklySlot ограничивает разовые занятости датами серии:
// тот же корт и день недели, дата в окне, пересечение по времени
func onWeeklySlot(q squirrel.SelectBuilder, dateColumn string, slot model.WeeklySlot) squirrel.SelectBuilder {
	q = q.Where(squirrel.Eq{"resource_id": slot.ResourceID}).
		Where(squirrel.GtOrEq{dateColumn: clock.TruncateDate(slot.From)}).
		Where(squirrel.Expr("EXTRACT(DOW FROM "+dateColumn+") = ?", int(slot.DayOfWeek))).
		Where(squirrel.Lt{"start_minute": slot.End}).
		Where(squirrel.Gt{"end_minute": slot.Start})
	if slot.Until != nil {
		q = q.Where(squirrel.LtOrEq{dateColumn: clock.TruncateDate(*slot.Until)})
	}
	return q
}
