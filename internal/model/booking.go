package model

import (
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает оплаты
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено, корт свободен
)

// ParseBookingStatus превращает строку в статус, отклоняя неизвестные значения
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return st, nil
	}
	return "", apperror.Validation("unknown booking status %q", s)
}

// AdHocBooking разовое бронирование корта
type AdHocBooking struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"user_id"`
	ResourceID       int64         `json:"resource_id"`
	Date             time.Time     `json:"date"`
	StartTime        TimeOfDay     `json:"start_time"`
	EndTime          TimeOfDay     `json:"end_time"`
	Status           BookingStatus `json:"status"`
	PaymentSessionID *string       `json:"payment_session_id"` // идентификатор checkout-сессии, уникален
	CancelledAt      *time.Time    `json:"cancelled_at"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// IsActive занимает ли бронирование корт
func (b *AdHocBooking) IsActive() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

func (b *AdHocBooking) Ref() CommitmentRef {
	return CommitmentRef{Kind: CommitmentBooking, ID: b.ID}
}

func (b *AdHocBooking) Slot() Interval {
	return Interval{ResourceID: b.ResourceID, Date: b.Date, Start: b.StartTime, End: b.EndTime}
}

func (b *AdHocBooking) Span() (time.Time, *time.Time) {
	d := clock.TruncateDate(b.Date)
	return d, &d
}

func (b *AdHocBooking) Occupies(date time.Time) (Interval, bool) {
	if !b.IsActive() || !clock.SameDate(b.Date, date) {
		return Interval{}, false
	}
	return b.Slot(), true
}
