package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

var absenceColumns = []string{
	"id", "user_id", "lesson_session_id", "type", "status", "reason", "applied_at", "lesson_date",
	"credit_awarded", "admin_notes", "reviewed_by", "reviewed_at", "created_at",
}

// AbsenceRepository заявки о пропусках
type AbsenceRepository struct {
	*base.Repository
}

func NewAbsenceRepository(pool *pgxpool.Pool) *AbsenceRepository {
	return &AbsenceRepository{Repository: base.NewRepository(pool)}
}

func scanAbsence(row rowScanner) (*model.Absence, error) {
	var a model.Absence
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.LessonSessionID,
		&a.Type,
		&a.Status,
		&a.Reason,
		&a.AppliedAt,
		&a.LessonDate,
		&a.CreditAwarded,
		&a.AdminNotes,
		&a.ReviewedBy,
		&a.ReviewedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create сохраняет заявку; вторая заявка на ту же пару (user, session) нарушает уникальность
func (r *AbsenceRepository) Create(ctx context.Context, a *model.Absence) error {
	q := base.Builder.Insert("absences").
		Columns("user_id", "lesson_session_id", "type", "status", "reason", "applied_at", "lesson_date", "credit_awarded").
		Values(a.UserID, a.LessonSessionID, a.Type, a.Status, a.Reason, a.AppliedAt, clock.TruncateDate(a.LessonDate), a.CreditAwarded).
		Suffix("RETURNING id, created_at")

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return fmt.Errorf("create absence: %w", err)
	}
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("create absence: %w", base.MapError(err))
	}
	return nil
}

func (r *AbsenceRepository) GetByID(ctx context.Context, id int64) (*model.Absence, error) {
	q := base.ForUpdate(ctx, base.Builder.Select(absenceColumns...).From("absences").Where(squirrel.Eq{"id": id}))
	return r.getOne(ctx, q, "get absence by id")
}

func (r *AbsenceRepository) GetByUserSession(ctx context.Context, userID, sessionID int64) (*model.Absence, error) {
	q := base.Builder.Select(absenceColumns...).
		From("absences").
		Where(squirrel.Eq{"user_id": userID, "lesson_session_id": sessionID})
	return r.getOne(ctx, q, "get absence by user and session")
}

func (r *AbsenceRepository) getOne(ctx context.Context, q squirrel.SelectBuilder, op string) (*model.Absence, error) {
	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a, err := scanAbsence(row)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, base.MapError(err))
	}
	return a, nil
}

// SaveReview обновляет только поля решения администратора
func (r *AbsenceRepository) SaveReview(ctx context.Context, a *model.Absence) error {
	q := base.Builder.Update("absences").
		Set("status", a.Status).
		Set("credit_awarded", a.CreditAwarded).
		Set("admin_notes", a.AdminNotes).
		Set("reviewed_by", a.ReviewedBy).
		Set("reviewed_at", a.ReviewedAt).
		Where(squirrel.Eq{"id": a.ID})
	return execOne(ctx, r.Repository, q, "save absence review")
}
