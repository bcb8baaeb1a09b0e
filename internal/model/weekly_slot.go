package model

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
)

// WeeklySlot один и тот же интервал каждую неделю в день DayOfWeek
// на датах окна [From, Until]. Until == nil означает бессрочную серию.
type WeeklySlot struct {
	ResourceID int64
	DayOfWeek  time.Weekday
	Start      TimeOfDay
	End        TimeOfDay
	From       time.Time
	Until      *time.Time
}

func (w WeeklySlot) Validate() error {
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return apperror.Validation("invalid weekday %d", int(w.DayOfWeek))
	}
	if err := w.On(w.From).Validate(); err != nil {
		return err
	}
	if w.Until != nil && clock.TruncateDate(*w.Until).Before(clock.TruncateDate(w.From)) {
		return apperror.Validation("endDate must not be before startDate")
	}
	return nil
}

// On интервал слота в конкретную дату
func (w WeeklySlot) On(date time.Time) Interval {
	return Interval{ResourceID: w.ResourceID, Date: clock.TruncateDate(date), Start: w.Start, End: w.End}
}

// FirstDate первая дата серии; false, если в окне нет нужного дня недели
func (w WeeklySlot) FirstDate() (time.Time, bool) {
	return w.CommonDate(w.From, nil)
}

// CommonDate первая дата серии внутри окна [from, until]
func (w WeeklySlot) CommonDate(from time.Time, until *time.Time) (time.Time, bool) {
	lo := clock.TruncateDate(w.From)
	if f := clock.TruncateDate(from); f.After(lo) {
		lo = f
	}
	hi := w.Until
	if until != nil && (hi == nil || until.Before(*hi)) {
		hi = until
	}

	d := lo.AddDate(0, 0, (int(w.DayOfWeek)-int(lo.Weekday())+7)%7)
	if hi != nil && d.After(clock.TruncateDate(*hi)) {
		return time.Time{}, false
	}
	return d, true
}

func (w WeeklySlot) String() string {
	until := "open"
	if w.Until != nil {
		until = w.Until.Format(clock.DateLayout)
	}
	return fmt.Sprintf("resource=%d %s %s-%s from %s until %s",
		w.ResourceID, w.DayOfWeek, w.Start, w.End, w.From.Format(clock.DateLayout), until)
}
