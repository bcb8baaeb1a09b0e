package memory

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

type UserRepository struct{ s *Store }

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type LessonTypeRepository struct{ s *Store }

func (s *Store) LessonTypes() *LessonTypeRepository { return &LessonTypeRepository{s: s} }

func (r *LessonTypeRepository) GetBySlug(ctx context.Context, slug string) (*model.LessonType, error) {
	defer r.s.lock(ctx)()
	lt, ok := r.s.st.lessonTypes[slug]
	if !ok {
		return nil, nil
	}
	return &lt, nil
}

func (r *LessonTypeRepository) MaxStudentsFor(ctx context.Context, slug string) (int, error) {
	lt, err := r.GetBySlug(ctx, slug)
	if err != nil {
		return 0, err
	}
	if lt == nil {
		return 0, fmt.Errorf("%w: lesson type %q", base.ErrNotFound, slug)
	}
	return lt.MaxStudents, nil
}
