package clock

import (
	"sync"
	"time"
)

// Clock источник текущего времени. Передаётся явно во все сервисы,
// чтобы границы 7/3 дней и 24 часов проверялись детерминированно.
type Clock interface {
	Now() time.Time
}

// Real системные часы для production
type Real struct{}

// Now возвращает текущее время
func (Real) Now() time.Time {
	return time.Now()
}

// Fixed часы для тестов: время меняется только вручную
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed создаёт часы, остановленные в момент t
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set переставляет часы
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance сдвигает часы вперёд на d
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
