package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

// LessonTypeRepository каталог видов занятий
type LessonTypeRepository struct {
	*base.Repository
}

func NewLessonTypeRepository(pool *pgxpool.Pool) *LessonTypeRepository {
	return &LessonTypeRepository{Repository: base.NewRepository(pool)}
}

// GetBySlug получает вид занятия
func (r *LessonTypeRepository) GetBySlug(ctx context.Context, slug string) (*model.LessonType, error) {
	q := base.Builder.Select("slug", "name", "max_students", "is_active", "created_at").
		From("lesson_types").
		Where(squirrel.Eq{"slug": slug})

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get lesson type: %w", err)
	}

	var lt model.LessonType
	err = row.Scan(&lt.Slug, &lt.Name, &lt.MaxStudents, &lt.IsActive, &lt.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson type: %w", base.MapError(err))
	}
	return &lt, nil
}

// MaxStudentsFor вместимость одного занятия данного вида
func (r *LessonTypeRepository) MaxStudentsFor(ctx context.Context, slug string) (int, error) {
	lt, err := r.GetBySlug(ctx, slug)
	if err != nil {
		return 0, err
	}
	if lt == nil {
		return 0, fmt.Errorf("lesson type %q: %w", slug, base.ErrNotFound)
	}
	return lt.MaxStudents, nil
}
