package memory

import (
	"context"
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

type LessonSessionRepository struct{ s *Store }

func (s *Store) LessonSessions() *LessonSessionRepository { return &LessonSessionRepository{s: s} }

func (r *LessonSessionRepository) Create(ctx context.Context, ls *model.LessonSession) error {
	defer r.s.lock(ctx)()
	now := r.s.now()
	ls.ID = r.s.nextID()
	ls.Date = clock.TruncateDate(ls.Date)
	ls.CreatedAt, ls.UpdatedAt = now, now
	r.s.st.sessions[ls.ID] = *ls
	return nil
}

func (r *LessonSessionRepository) GetByID(ctx context.Context, id int64) (*model.LessonSession, error) {
	defer r.s.lock(ctx)()
	ls, ok := r.s.st.sessions[id]
	if !ok {
		return nil, nil
	}
	return &ls, nil
}

func (r *LessonSessionRepository) ListScheduledByResourceDate(ctx context.Context, resourceID int64, date time.Time) ([]*model.LessonSession, error) {
	defer r.s.lock(ctx)()
	var out []*model.LessonSession
	for _, ls := range r.s.st.sessions {
		if ls.ResourceID == resourceID && clock.SameDate(ls.Date, date) && ls.IsScheduled() {
			ls := ls
			out = append(out, &ls)
		}
	}
	sortByID(out, func(ls *model.LessonSession) int64 { return ls.ID })
	return out, nil
}

// ListScheduledForWeeklySlot запланированные занятия на датах серии
func (r *LessonSessionRepository) ListScheduledForWeeklySlot(ctx context.Context, slot model.WeeklySlot) ([]*model.LessonSession, error) {
	defer r.s.lock(ctx)()
	var out []*model.LessonSession
	for _, ls := range r.s.st.sessions {
		if ls.ResourceID != slot.ResourceID || !ls.IsScheduled() {
			continue
		}
		if _, ok := slot.CommonDate(ls.Span()); ok {
			ls := ls
			out = append(out, &ls)
		}
	}
	sortByID(out, func(ls *model.LessonSession) int64 { return ls.ID })
	return out, nil
}

func (r *LessonSessionRepository) UpdateSlot(ctx context.Context, id int64, slot model.Interval) error {
	defer r.s.lock(ctx)()
	ls, ok := r.s.st.sessions[id]
	if !ok {
		return base.ErrNotFound
	}
	ls.ResourceID, ls.Date, ls.StartTime, ls.EndTime = slot.ResourceID, clock.TruncateDate(slot.Date), slot.Start, slot.End
	ls.UpdatedAt = r.s.now()
	r.s.st.sessions[id] = ls
	return nil
}

func (r *LessonSessionRepository) UpdateStatus(ctx context.Context, id int64, status model.SessionStatus) error {
	defer r.s.lock(ctx)()
	ls, ok := r.s.st.sessions[id]
	if !ok {
		return base.ErrNotFound
	}
	ls.Status = status
	ls.UpdatedAt = r.s.now()
	r.s.st.sessions[id] = ls
	return nil
}

func (r *LessonSessionRepository) Enroll(ctx context.Context, sessionID, userID int64) error {
	defer r.s.lock(ctx)()
	users, ok := r.s.st.enrollments[sessionID]
	if !ok {
		users = make(map[int64]struct{})
		r.s.st.enrollments[sessionID] = users
	}
	if _, exists := users[userID]; exists {
		return duplicate(base.ConstraintEnrollment)
	}
	users[userID] = struct{}{}
	return nil
}

func (r *LessonSessionRepository) IsEnrolled(ctx context.Context, sessionID, userID int64) (bool, error) {
	defer r.s.lock(ctx)()
	_, ok := r.s.st.enrollments[sessionID][userID]
	return ok, nil
}

func (r *LessonSessionRepository) CountEnrolled(ctx context.Context, sessionID int64) (int, error) {
	defer r.s.lock(ctx)()
	return len(r.s.st.enrollments[sessionID]), nil
}
