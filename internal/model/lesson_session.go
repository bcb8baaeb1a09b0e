package model

import (
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// LessonSession конкретное занятие на корте
type LessonSession struct {
	ID             int64         `json:"id"`
	LessonTypeSlug string        `json:"lesson_type_slug"`
	ResourceID     int64         `json:"resource_id"`
	Date           time.Time     `json:"date"`
	StartTime      TimeOfDay     `json:"start_time"`
	EndTime        TimeOfDay     `json:"end_time"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// StartsAt момент начала занятия
func (s *LessonSession) StartsAt() time.Time {
	return clock.At(s.Date, int(s.StartTime))
}

// IsScheduled занимает ли занятие корт
func (s *LessonSession) IsScheduled() bool {
	return s.Status == SessionStatusScheduled
}

func (s *LessonSession) Ref() CommitmentRef {
	return CommitmentRef{Kind: CommitmentLessonSession, ID: s.ID}
}

func (s *LessonSession) Slot() Interval {
	return Interval{ResourceID: s.ResourceID, Date: s.Date, Start: s.StartTime, End: s.EndTime}
}

func (s *LessonSession) Span() (time.Time, *time.Time) {
	d := clock.TruncateDate(s.Date)
	return d, &d
}

func (s *LessonSession) Occupies(date time.Time) (Interval, bool) {
	if !s.IsScheduled() || !clock.SameDate(s.Date, date) {
		return Interval{}, false
	}
	return s.Slot(), true
}
