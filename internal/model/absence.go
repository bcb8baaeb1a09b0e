package model

import "time"

// AbsenceType категория пропуска
type AbsenceType string

const (
	AbsenceTypeApply      AbsenceType = "APPLY"       // заявлено за 7+ дней
	AbsenceTypeLateNotice AbsenceType = "LATE_NOTICE" // за 3-6 дней
	AbsenceTypeAbsent     AbsenceType = "ABSENT"      // меньше чем за 3 дня
	AbsenceTypeMedical    AbsenceType = "MEDICAL"     // по болезни, решает администратор
)

// AbsenceStatus состояние заявки о пропуске
type AbsenceStatus string

const (
	AbsenceStatusApproved      AbsenceStatus = "APPROVED"
	AbsenceStatusRecorded      AbsenceStatus = "RECORDED"
	AbsenceStatusPendingReview AbsenceStatus = "PENDING_REVIEW"
	AbsenceStatusReviewed      AbsenceStatus = "REVIEWED"
)

// Absence заявка ученика о пропуске занятия. Одна на пару (user, session).
// После разбора меняются только поля администратора.
type Absence struct {
	ID              int64         `json:"id"`
	UserID          int64         `json:"user_id"`
	LessonSessionID int64         `json:"lesson_session_id"`
	Type            AbsenceType   `json:"type"`
	Status          AbsenceStatus `json:"status"`
	Reason          string        `json:"reason"`
	AppliedAt       time.Time     `json:"applied_at"`
	LessonDate      time.Time     `json:"lesson_date"`

	CreditAwarded bool       `json:"credit_awarded"`
	AdminNotes    *string    `json:"admin_notes"`
	ReviewedBy    *int64     `json:"reviewed_by"`
	ReviewedAt    *time.Time `json:"reviewed_at"`

	CreatedAt time.Time `json:"created_at"`
}

// AwaitsReview ждёт ли заявка решения администратора
func (a *Absence) AwaitsReview() bool {
	return a.Status == AbsenceStatusPendingReview
}
