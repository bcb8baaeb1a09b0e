package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

var recurringColumns = []string{
	"id", "group_id", "user_id", "resource_id", "weekday", "start_minute", "end_minute",
	"start_date", "end_date", "is_active", "created_at", "updated_at",
}

// RecurringBookingRepository еженедельные брони корта
type RecurringBookingRepository struct {
	*base.Repository
}

func NewRecurringBookingRepository(pool *pgxpool.Pool) *RecurringBookingRepository {
	return &RecurringBookingRepository{Repository: base.NewRepository(pool)}
}

func scanRecurring(row rowScanner) (*model.RecurringBooking, error) {
	var rb model.RecurringBooking
	var weekday int16
	err := row.Scan(
		&rb.ID,
		&rb.GroupID,
		&rb.UserID,
		&rb.ResourceID,
		&weekday,
		&rb.StartTime,
		&rb.EndTime,
		&rb.StartDate,
		&rb.EndDate,
		&rb.IsActive,
		&rb.CreatedAt,
		&rb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rb.DayOfWeek = time.Weekday(weekday)
	return &rb, nil
}

// Create создаёт запись серии на один день недели
func (r *RecurringBookingRepository) Create(ctx context.Context, rb *model.RecurringBooking) error {
	var endDate *time.Time
	if rb.EndDate != nil {
		d := clock.TruncateDate(*rb.EndDate)
		endDate = &d
	}

	q := base.Builder.Insert("recurring_bookings").
		Columns("group_id", "user_id", "resource_id", "weekday", "start_minute", "end_minute", "start_date", "end_date", "is_active").
		Values(rb.GroupID, rb.UserID, rb.ResourceID, int16(rb.DayOfWeek), rb.StartTime, rb.EndTime,
			clock.TruncateDate(rb.StartDate), endDate, rb.IsActive).
		Suffix("RETURNING id, created_at, updated_at")

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return fmt.Errorf("create recurring booking: %w", err)
	}
	if err := row.Scan(&rb.ID, &rb.CreatedAt, &rb.UpdatedAt); err != nil {
		return fmt.Errorf("create recurring booking: %w", base.MapError(err))
	}
	return nil
}

// GetByID получает запись серии по ID
func (r *RecurringBookingRepository) GetByID(ctx context.Context, id int64) (*model.RecurringBooking, error) {
	q := base.ForUpdate(ctx, base.Builder.Select(recurringColumns...).From("recurring_bookings").Where(squirrel.Eq{"id": id}))

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get recurring booking: %w", err)
	}
	rb, err := scanRecurring(row)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recurring booking: %w", base.MapError(err))
	}
	return rb, nil
}

// ListActiveForDate активные серии корта, действующие в date по дню недели и окну дат
func (r *RecurringBookingRepository) ListActiveForDate(ctx context.Context, resourceID int64, date time.Time) ([]*model.RecurringBooking, error) {
	d := clock.TruncateDate(date)
	q := base.Builder.Select(recurringColumns...).
		From("recurring_bookings").
		Where(squirrel.Eq{
			"resource_id": resourceID,
			"weekday":     int16(d.Weekday()),
			"is_active":   true,
		}).
		Where(squirrel.LtOrEq{"start_date": d}).
		Where(squirrel.Or{
			squirrel.Eq{"end_date": nil},
			squirrel.GtOrEq{"end_date": d},
		}).
		OrderBy("start_minute", "id")

	rows, err := r.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list recurring bookings: %w", err)
	}
	defer rows.Close()

	var out []*model.RecurringBooking
	for rows.Next() {
		rb, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring booking: %w", err)
		}
		out = append(out, rb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring bookings: %w", err)
	}
	return out, nil
}

// ListActiveForWeeklySlot активные серии того же дня недели, чьё окно
// пересекается с окном slot, а время с его временем
func (r *RecurringBookingRepository) ListActiveForWeeklySlot(ctx context.Context, slot model.WeeklySlot) ([]*model.RecurringBooking, error) {
	q := base.Builder.Select(recurringColumns...).
		From("recurring_bookings").
		Where(squirrel.Eq{
			"resource_id": slot.ResourceID,
			"weekday":     int16(slot.DayOfWeek),
			"is_active":   true,
		}).
		Where(squirrel.Or{
			squirrel.Eq{"end_date": nil},
			squirrel.GtOrEq{"end_date": clock.TruncateDate(slot.From)},
		}).
		Where(squirrel.Lt{"start_minute": slot.End}).
		Where(squirrel.Gt{"end_minute": slot.Start}).
		OrderBy("start_date", "id")
	if slot.Until != nil {
		q = q.Where(squirrel.LtOrEq{"start_date": clock.TruncateDate(*slot.Until)})
	}

	return queryAll(ctx, r.Repository, q, scanRecurring, "recurring bookings for weekly slot")
}

// Deactivate выключает серию, корт освобождается на все будущие даты
func (r *RecurringBookingRepository) Deactivate(ctx context.Context, id int64) error {
	q := base.Builder.Update("recurring_bookings").
		Set("is_active", false).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
	return execOne(ctx, r.Repository, q, "deactivate recurring booking")
}
