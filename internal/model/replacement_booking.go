package model

import "time"

type ReplacementBookingStatus string

const (
	ReplacementStatusConfirmed ReplacementBookingStatus = "CONFIRMED"
	ReplacementStatusCancelled ReplacementBookingStatus = "CANCELLED"
	ReplacementStatusCompleted ReplacementBookingStatus = "COMPLETED"
)

// ReplacementBooking место в занятии, полученное за кредит
type ReplacementBooking struct {
	ID              int64                    `json:"id"`
	UserID          int64                    `json:"user_id"`
	CreditID        int64                    `json:"credit_id"` // уникален
	LessonSessionID int64                    `json:"lesson_session_id"`
	Status          ReplacementBookingStatus `json:"status"`
	CancelledAt     *time.Time               `json:"cancelled_at"`
	CreatedAt       time.Time                `json:"created_at"`
}

// CanBeCancelled отменить можно только подтверждённую запись
func (b *ReplacementBooking) CanBeCancelled() bool {
	return b.Status == ReplacementStatusConfirmed
}
