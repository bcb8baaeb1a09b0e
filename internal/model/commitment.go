package model

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
)

// CommitmentKind вид занятости корта
type CommitmentKind string

const (
	CommitmentBooking          CommitmentKind = "booking"
	CommitmentRecurringBooking CommitmentKind = "recurring_booking"
	CommitmentLessonSession    CommitmentKind = "lesson_session"
)

// Label человекочитаемое название вида занятости для сообщений об ошибках
func (k CommitmentKind) Label() string {
	switch k {
	case CommitmentBooking:
		return "a booking"
	case CommitmentRecurringBooking:
		return "a recurring booking"
	case CommitmentLessonSession:
		return "a lesson session"
	default:
		return "another commitment"
	}
}

// CommitmentRef ссылка на конкретную занятость
type CommitmentRef struct {
	Kind CommitmentKind
	ID   int64
}

func (r CommitmentRef) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.ID)
}

// Commitment любая сущность, занимающая корт на интервал в конкретную дату.
// Occupies возвращает интервал на date, если сущность в эту дату активна.
// Span окно дат, в которых сущность может занимать корт (until == nil: бессрочно).
type Commitment interface {
	Ref() CommitmentRef
	Occupies(date time.Time) (Interval, bool)
	Span() (from time.Time, until *time.Time)
}

// Interval полуоткрытый промежуток [Start, End) на корте ResourceID в дату Date
type Interval struct {
	ResourceID int64
	Date       time.Time
	Start      TimeOfDay
	End        TimeOfDay
}

// NewInterval создаёт интервал и проверяет его корректность
func NewInterval(resourceID int64, date time.Time, start, end TimeOfDay) (Interval, error) {
	iv := Interval{
		ResourceID: resourceID,
		Date:       clock.TruncateDate(date),
		Start:      start,
		End:        end,
	}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate отклоняет пустые и перевёрнутые интервалы
func (i Interval) Validate() error {
	if i.ResourceID <= 0 {
		return apperror.Validation("resourceId must be positive")
	}
	if i.Date.IsZero() {
		return apperror.Validation("date is required")
	}
	if !i.Start.Valid() || !i.End.Valid() || i.Start == MinutesPerDay {
		return apperror.Validation("time must be between 00:00 and 24:00")
	}
	if i.End <= i.Start {
		return apperror.Validation("endTime must be after startTime")
	}
	return nil
}

// Overlaps проверяет пересечение на том же корте в ту же дату.
// Интервалы полуоткрытые: встык (end == start) не пересекаются.
func (i Interval) Overlaps(o Interval) bool {
	if i.ResourceID != o.ResourceID || !clock.SameDate(i.Date, o.Date) {
		return false
	}
	return i.Start < o.End && i.End > o.Start
}

// StartsAt момент начала по часам площадки
func (i Interval) StartsAt() time.Time {
	return clock.At(i.Date, int(i.Start))
}

func (i Interval) String() string {
	return fmt.Sprintf("resource=%d %s %s-%s", i.ResourceID, i.Date.Format(clock.DateLayout), i.Start, i.End)
}
