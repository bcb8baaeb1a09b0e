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

var sessionColumns = []string{
	"id", "lesson_type_slug", "resource_id", "session_date", "start_minute", "end_minute",
	"status", "created_at", "updated_at",
}

// LessonSessionRepository занятия и записи учеников на них
type LessonSessionRepository struct {
	*base.Repository
}

func NewLessonSessionRepository(pool *pgxpool.Pool) *LessonSessionRepository {
	return &LessonSessionRepository{Repository: base.NewRepository(pool)}
}

func scanSession(row rowScanner) (*model.LessonSession, error) {
	var ls model.LessonSession
	err := row.Scan(
		&ls.ID,
		&ls.LessonTypeSlug,
		&ls.ResourceID,
		&ls.Date,
		&ls.StartTime,
		&ls.EndTime,
		&ls.Status,
		&ls.CreatedAt,
		&ls.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ls, nil
}

// Create создаёт занятие
func (r *LessonSessionRepository) Create(ctx context.Context, ls *model.LessonSession) error {
	q := base.Builder.Insert("lesson_sessions").
		Columns("lesson_type_slug", "resource_id", "session_date", "start_minute", "end_minute", "status").
		Values(ls.LessonTypeSlug, ls.ResourceID, clock.TruncateDate(ls.Date), ls.StartTime, ls.EndTime, ls.Status).
		Suffix("RETURNING id, created_at, updated_at")

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return fmt.Errorf("create lesson session: %w", err)
	}
	if err := row.Scan(&ls.ID, &ls.CreatedAt, &ls.UpdatedAt); err != nil {
		return fmt.Errorf("create lesson session: %w", base.MapError(err))
	}
	return nil
}

// GetByID получает занятие; внутри транзакции блокирует строку,
// поэтому параллельные записи на одно занятие выполняются по очереди
func (r *LessonSessionRepository) GetByID(ctx context.Context, id int64) (*model.LessonSession, error) {
	q := base.ForUpdate(ctx, base.Builder.Select(sessionColumns...).From("lesson_sessions").Where(squirrel.Eq{"id": id}))

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get lesson session: %w", err)
	}
	ls, err := scanSession(row)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson session: %w", base.MapError(err))
	}
	return ls, nil
}

// ListScheduledByResourceDate запланированные занятия корта на дату
func (r *LessonSessionRepository) ListScheduledByResourceDate(ctx context.Context, resourceID int64, date time.Time) ([]*model.LessonSession, error) {
	q := base.Builder.Select(sessionColumns...).
		From("lesson_sessions").
		Where(squirrel.Eq{
			"resource_id":  resourceID,
			"session_date": clock.TruncateDate(date),
			"status":       model.SessionStatusScheduled,
		}).
		OrderBy("start_minute", "id")

	rows, err := r.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list lesson sessions: %w", err)
	}
	defer rows.Close()

	var out []*model.LessonSession
	for rows.Next() {
		ls, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson session: %w", err)
		}
		out = append(out, ls)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lesson sessions: %w", err)
	}
	return out, nil
}

// ListScheduledForWeeklySlot запланированные занятия на любой из дат серии
func (r *LessonSessionRepository) ListScheduledForWeeklySlot(ctx context.Context, slot model.WeeklySlot) ([]*model.LessonSession, error) {
	q := onWeeklySlot(base.Builder.Select(sessionColumns...).From("lesson_sessions"), "session_date", slot).
		Where(squirrel.Eq{"status": model.SessionStatusScheduled}).
		OrderBy("session_date", "start_minute", "id")

	return queryAll(ctx, r.Repository, q, scanSession, "lesson sessions for weekly slot")
}

// UpdateSlot переносит занятие
func (r *LessonSessionRepository) UpdateSlot(ctx context.Context, id int64, slot model.Interval) error {
	q := base.Builder.Update("lesson_sessions").
		Set("resource_id", slot.ResourceID).
		Set("session_date", clock.TruncateDate(slot.Date)).
		Set("start_minute", slot.Start).
		Set("end_minute", slot.End).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
	return execOne(ctx, r.Repository, q, "update lesson session slot")
}

// UpdateStatus меняет статус занятия
func (r *LessonSessionRepository) UpdateStatus(ctx context.Context, id int64, status model.SessionStatus) error {
	q := base.Builder.Update("lesson_sessions").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
	return execOne(ctx, r.Repository, q, "update lesson session status")
}

// Enroll записывает ученика; повторная запись нарушает первичный ключ
func (r *LessonSessionRepository) Enroll(ctx context.Context, sessionID, userID int64) error {
	q := base.Builder.Insert("session_enrollments").
		Columns("lesson_session_id", "user_id").
		Values(sessionID, userID)

	if _, err := r.ExecAffected(ctx, q); err != nil {
		return fmt.Errorf("enroll student: %w", err)
	}
	return nil
}

// IsEnrolled записан ли ученик на занятие
func (r *LessonSessionRepository) IsEnrolled(ctx context.Context, sessionID, userID int64) (bool, error) {
	q := base.Builder.Select("1").
		Prefix("SELECT EXISTS (").
		From("session_enrollments").
		Where(squirrel.Eq{"lesson_session_id": sessionID, "user_id": userID}).
		Suffix(")")

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check enrollment: %w", base.MapError(err))
	}
	return exists, nil
}

// CountEnrolled число записанных учеников
func (r *LessonSessionRepository) CountEnrolled(ctx context.Context, sessionID int64) (int, error) {
	q := base.Builder.Select("COUNT(*)").
		From("session_enrollments").
		Where(squirrel.Eq{"lesson_session_id": sessionID})

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", base.MapError(err))
	}
	return n, nil
}
