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

var replacementColumns = []string{"id", "user_id", "credit_id", "lesson_session_id", "status", "cancelled_at", "created_at"}

// ReplacementBookingRepository места в занятиях, полученные за кредиты
type ReplacementBookingRepository struct {
	*base.Repository
}

func NewReplacementBookingRepository(pool *pgxpool.Pool) *ReplacementBookingRepository {
	return &ReplacementBookingRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет запись. Частичные уникальные индексы по CONFIRMED не дают
// погасить один кредит дважды и записать пользователя на занятие повторно.
func (r *ReplacementBookingRepository) Create(ctx context.Context, b *model.ReplacementBooking) error {
	q := base.Builder.Insert("replacement_bookings").
		Columns("user_id", "credit_id", "lesson_session_id", "status").
		Values(b.UserID, b.CreditID, b.LessonSessionID, b.Status).
		Suffix("RETURNING id, created_at")

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return fmt.Errorf("create replacement booking: %w", err)
	}
	if err := row.Scan(&b.ID, &b.CreatedAt); err != nil {
		return fmt.Errorf("create replacement booking: %w", base.MapError(err))
	}
	return nil
}

func scanReplacement(row rowScanner) (*model.ReplacementBooking, error) {
	var b model.ReplacementBooking
	if err := row.Scan(&b.ID, &b.UserID, &b.CreditID, &b.LessonSessionID, &b.Status, &b.CancelledAt, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *ReplacementBookingRepository) GetByID(ctx context.Context, id int64) (*model.ReplacementBooking, error) {
	q := base.ForUpdate(ctx, base.Builder.Select(replacementColumns...).From("replacement_bookings").Where(squirrel.Eq{"id": id}))

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get replacement booking: %w", err)
	}

	b, err := scanReplacement(row)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get replacement booking: %w", base.MapError(err))
	}
	return b, nil
}

// ListConfirmedBySession подтверждённые замены в занятии, в транзакции под блокировкой
func (r *ReplacementBookingRepository) ListConfirmedBySession(ctx context.Context, sessionID int64) ([]*model.ReplacementBooking, error) {
	q := base.ForUpdate(ctx, base.Builder.Select(replacementColumns...).
		From("replacement_bookings").
		Where(squirrel.Eq{"lesson_session_id": sessionID, "status": model.ReplacementStatusConfirmed}).
		OrderBy("id"))
	return queryAll(ctx, r.Repository, q, scanReplacement, "replacement bookings")
}

// CountConfirmedBySession подтверждённые замены в занятии
func (r *ReplacementBookingRepository) CountConfirmedBySession(ctx context.Context, sessionID int64) (int, error) {
	q := base.Builder.Select("COUNT(*)").
		From("replacement_bookings").
		Where(squirrel.Eq{"lesson_session_id": sessionID, "status": model.ReplacementStatusConfirmed})

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count replacement bookings: %w", err)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count replacement bookings: %w", base.MapError(err))
	}
	return n, nil
}

// HasConfirmed есть ли у пользователя подтверждённая замена в занятии
func (r *ReplacementBookingRepository) HasConfirmed(ctx context.Context, userID, sessionID int64) (bool, error) {
	q := base.Builder.Select("1").
		Prefix("SELECT EXISTS (").
		From("replacement_bookings").
		Where(squirrel.Eq{
			"user_id":           userID,
			"lesson_session_id": sessionID,
			"status":            model.ReplacementStatusConfirmed,
		}).
		Suffix(")")

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return false, fmt.Errorf("check replacement booking: %w", err)
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check replacement booking: %w", base.MapError(err))
	}
	return exists, nil
}

// UpdateStatus меняет статус; при отмене фиксирует момент отмены
func (r *ReplacementBookingRepository) UpdateStatus(ctx context.Context, id int64, status model.ReplacementBookingStatus, at time.Time) error {
	q := base.Builder.Update("replacement_bookings").
		Set("status", status).
		Where(squirrel.Eq{"id": id})
	if status == model.ReplacementStatusCancelled {
		q = q.Set("cancelled_at", at)
	}
	return execOne(ctx, r.Repository, q, "update replacement booking status")
}
