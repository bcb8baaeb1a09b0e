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

var bookingColumns = []string{
	"id", "user_id", "resource_id", "booking_date", "start_minute", "end_minute",
	"status", "payment_session_id", "cancelled_at", "created_at", "updated_at",
}

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

func scanBooking(row rowScanner) (*model.AdHocBooking, error) {
	var (
		b      model.AdHocBooking
		status string
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.ResourceID,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&status,
		&b.PaymentSessionID,
		&b.CancelledAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if b.Status, err = model.ParseBookingStatus(status); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create создаёт разовое бронирование
func (r *BookingRepository) Create(ctx context.Context, b *model.AdHocBooking) error {
	q := base.Builder.Insert("bookings").
		Columns("user_id", "resource_id", "booking_date", "start_minute", "end_minute", "status", "payment_session_id").
		Values(b.UserID, b.ResourceID, clock.TruncateDate(b.Date), b.StartTime, b.EndTime, b.Status, b.PaymentSessionID).
		Suffix("RETURNING id, created_at, updated_at")

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	if err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("create booking: %w", base.MapError(err))
	}
	return nil
}

// GetByID получает бронирование по ID; внутри транзакции блокирует строку
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.AdHocBooking, error) {
	q := base.ForUpdate(ctx, base.Builder.Select(bookingColumns...).From("bookings").Where(squirrel.Eq{"id": id}))
	return r.getOne(ctx, q, "get booking by id")
}

// GetByPaymentSessionID ищет бронирование по checkout-сессии оплаты
func (r *BookingRepository) GetByPaymentSessionID(ctx context.Context, paymentSessionID string) (*model.AdHocBooking, error) {
	q := base.Builder.Select(bookingColumns...).From("bookings").Where(squirrel.Eq{"payment_session_id": paymentSessionID})
	return r.getOne(ctx, q, "get booking by payment session")
}

func (r *BookingRepository) getOne(ctx context.Context, q squirrel.SelectBuilder, op string) (*model.AdHocBooking, error) {
	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b, err := scanBooking(row)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, base.MapError(err))
	}
	return b, nil
}

// ListActiveByResourceDate ожидающие и подтверждённые брони корта на дату
func (r *BookingRepository) ListActiveByResourceDate(ctx context.Context, resourceID int64, date time.Time) ([]*model.AdHocBooking, error) {
	q := base.Builder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{
			"resource_id":  resourceID,
			"booking_date": clock.TruncateDate(date),
			"status":       []model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed},
		}).
		OrderBy("start_minute", "id")

	rows, err := r.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.AdHocBooking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}

// ListActiveForWeeklySlot активные брони на любой из дат серии
func (r *BookingRepository) ListActiveForWeeklySlot(ctx context.Context, slot model.WeeklySlot) ([]*model.AdHocBooking, error) {
	q := onWeeklySlot(base.Builder.Select(bookingColumns...).From("bookings"), "booking_date", slot).
		Where(squirrel.Eq{"status": []model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed}}).
		OrderBy("booking_date", "start_minute", "id")

	return queryAll(ctx, r.Repository, q, scanBooking, "bookings for weekly slot")
}

// UpdateSlot переносит бронь на другой интервал
func (r *BookingRepository) UpdateSlot(ctx context.Context, id int64, slot model.Interval) error {
	q := base.Builder.Update("bookings").
		Set("resource_id", slot.ResourceID).
		Set("booking_date", clock.TruncateDate(slot.Date)).
		Set("start_minute", slot.Start).
		Set("end_minute", slot.End).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})

	return execOne(ctx, r.Repository, q, "update booking slot")
}

// UpdateStatus меняет статус; при отмене фиксирует момент отмены
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus, at time.Time) error {
	q := base.Builder.Update("bookings").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
	if status == model.BookingStatusCancelled {
		q = q.Set("cancelled_at", at)
	}

	return execOne(ctx, r.Repository, q, "update booking status")
}
