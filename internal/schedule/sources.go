package schedule

import (
	"context"
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/model"
)

// BookingLister активные разовые брони корта на дату
type BookingLister interface {
	ListActiveByResourceDate(ctx context.Context, resourceID int64, date time.Time) ([]*model.AdHocBooking, error)
	ListActiveForWeeklySlot(ctx context.Context, slot model.WeeklySlot) ([]*model.AdHocBooking, error)
}

// RecurringLister активные еженедельные брони, действующие в дату
type RecurringLister interface {
	ListActiveForDate(ctx context.Context, resourceID int64, date time.Time) ([]*model.RecurringBooking, error)
	ListActiveForWeeklySlot(ctx context.Context, slot model.WeeklySlot) ([]*model.RecurringBooking, error)
}

// SessionLister запланированные занятия корта на дату
type SessionLister interface {
	ListScheduledByResourceDate(ctx context.Context, resourceID int64, date time.Time) ([]*model.LessonSession, error)
	ListScheduledForWeeklySlot(ctx context.Context, slot model.WeeklySlot) ([]*model.LessonSession, error)
}

type bookingSource struct{ repo BookingLister }

// BookingSource источник разовых бронирований
func BookingSource(repo BookingLister) Source { return bookingSource{repo: repo} }

func (s bookingSource) Kind() model.CommitmentKind { return model.CommitmentBooking }

func (s bookingSource) CommitmentsOn(ctx context.Context, resourceID int64, date time.Time) ([]model.Commitment, error) {
	items, err := s.repo.ListActiveByResourceDate(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}
	return toCommitments(items), nil
}

type recurringSource struct{ repo RecurringLister }

// RecurringSource источник еженедельных бронирований, развёрнутых на конкретную дату
func RecurringSource(repo RecurringLister) Source { return recurringSource{repo: repo} }

func (s bookingSource) CommitmentsWeekly(ctx context.Context, slot model.WeeklySlot) ([]model.Commitment, error) {
	items, err := s.repo.ListActiveForWeeklySlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	return toCommitments(items), nil
}

func (s recurringSource) Kind() model.CommitmentKind { return model.CommitmentRecurringBooking }

func (s recurringSource) CommitmentsOn(ctx context.Context, resourceID int64, date time.Time) ([]model.Commitment, error) {
	items, err := s.repo.ListActiveForDate(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}
	return toCommitments(items), nil
}

type sessionSource struct{ repo SessionLister }

// SessionSource источник занятий
func SessionSource(repo SessionLister) Source { return sessionSource{repo: repo} }

func (s recurringSource) CommitmentsWeekly(ctx context.Context, slot model.WeeklySlot) ([]model.Commitment, error) {
	items, err := s.repo.ListActiveForWeeklySlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	return toCommitments(items), nil
}

func (s sessionSource) Kind() model.CommitmentKind { return model.CommitmentLessonSession }

func (s sessionSource) CommitmentsOn(ctx context.Context, resourceID int64, date time.Time) ([]model.Commitment, error) {
	items, err := s.repo.ListScheduledByResourceDate(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}
	return toCommitments(items), nil
}

func (s sessionSource) CommitmentsWeekly(ctx context.Context, slot model.WeeklySlot) ([]model.Commitment, error) {
	items, err := s.repo.ListScheduledForWeeklySlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	return toCommitments(items), nil
}

func toCommitments[T model.Commitment](items []T) []model.Commitment {
	out := make([]model.Commitment, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	return out
}
