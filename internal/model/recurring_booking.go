package model

import (
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/google/uuid"
)

// RecurringBooking еженедельное бронирование корта
type RecurringBooking struct {
	ID         int64        `json:"id"`
	GroupID    uuid.UUID    `json:"group_id"` // серия, созданная одним запросом на несколько дней недели
	UserID     int64        `json:"user_id"`
	ResourceID int64        `json:"resource_id"`
	DayOfWeek  time.Weekday `json:"day_of_week"` // 0 = Sunday, 6 = Saturday
	StartTime  TimeOfDay    `json:"start_time"`
	EndTime    TimeOfDay    `json:"end_time"`
	StartDate  time.Time    `json:"start_date"`
	EndDate    *time.Time   `json:"end_date"` // nil = бессрочно
	IsActive   bool         `json:"is_active"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// CoversDate попадает ли date в окно действия и день недели
func (r *RecurringBooking) CoversDate(date time.Time) bool {
	if !r.IsActive || date.Weekday() != r.DayOfWeek {
		return false
	}
	d := clock.TruncateDate(date)
	if d.Before(clock.TruncateDate(r.StartDate)) {
		return false
	}
	if r.EndDate != nil && d.After(clock.TruncateDate(*r.EndDate)) {
		return false
	}
	return true
}

func (r *RecurringBooking) Ref() CommitmentRef {
	return CommitmentRef{Kind: CommitmentRecurringBooking, ID: r.ID}
}

func (r *RecurringBooking) Span() (time.Time, *time.Time) {
	return r.StartDate, r.EndDate
}

// Weekly слот серии
func (r *RecurringBooking) Weekly() WeeklySlot {
	return WeeklySlot{
		ResourceID: r.ResourceID,
		DayOfWeek:  r.DayOfWeek,
		Start:      r.StartTime,
		End:        r.EndTime,
		From:       r.StartDate,
		Until:      r.EndDate,
	}
}

func (r *RecurringBooking) Occupies(date time.Time) (Interval, bool) {
	if !r.CoversDate(date) {
		return Interval{}, false
	}
	return Interval{ResourceID: r.ResourceID, Date: clock.TruncateDate(date), Start: r.StartTime, End: r.EndTime}, true
}
