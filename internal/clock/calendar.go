package clock

import (
	"fmt"
	"time"
)

// DateLayout формат календарной даты
const DateLayout = "2006-01-02"

// Zone фиксированный гражданский календарь площадки (UTC+8).
// Все календарные сравнения идут в нём, независимо от TZ сервера.
var Zone = time.FixedZone("UTC+8", 8*60*60)

// CivilDate возвращает дату YYYY-MM-DD, которую показывают часы площадки в момент t
func CivilDate(t time.Time) string {
	return t.In(Zone).Format(DateLayout)
}

// CalendarDayDiff возвращает число календарных дней между from и to.
// Каждый момент сначала приводится к дате UTC+8, разница считается между датами,
// поэтому 23:59 и 00:01 соседних дней дают ровно 1 день.
func CalendarDayDiff(from, to time.Time) int {
	f := DateOf(from)
	t := DateOf(to)
	return int(t.Sub(f).Hours() / 24)
}

// DateOf возвращает календарную дату момента t как полночь UTC.
// В таком виде даты хранятся в моделях и в колонках DATE.
func DateOf(t time.Time) time.Time {
	y, m, d := t.In(Zone).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TruncateDate отбрасывает время у даты, сохраняя год, месяц и день как есть
func TruncateDate(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// At собирает момент времени из календарной даты и минут от полуночи по часам площадки
func At(date time.Time, minutes int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Zone).Add(time.Duration(minutes) * time.Minute)
}

// AddCalendarDays прибавляет days календарных дней в календаре площадки
func AddCalendarDays(t time.Time, days int) time.Time {
	return t.In(Zone).AddDate(0, 0, days)
}

// SameDate сравнивает только год, месяц и день
func SameDate(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
