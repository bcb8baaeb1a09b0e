package model

import (
	"fmt"
	"time"
)

// TimeOfDay время внутри дня в минутах от полуночи по часам площадки
type TimeOfDay int

const (
	// MinutesPerDay верхняя граница TimeOfDay (24:00 допускается только как конец интервала)
	MinutesPerDay = 24 * 60

	timeLayout = "15:04"
)

// NewTimeOfDay собирает TimeOfDay из часов и минут
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay разбирает строку HH:MM
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if s == "24:00" {
		return MinutesPerDay, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Valid проверяет, что значение лежит в пределах суток
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
