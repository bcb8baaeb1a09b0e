package base

import (
	"errors"
	"strings"
)

// ErrNotFound для запросов, возвращающих скаляр вместо сущности
var ErrNotFound = errors.New("repository: not found")

// Имена уникальных ограничений схемы. По ним сервисы различают причину ErrDuplicate.
const (
	ConstraintPaymentSession         = "bookings_payment_session_id_key"
	ConstraintAbsenceUserSession     = "absences_user_session_key"
	ConstraintCreditAbsence          = "replacement_credits_absence_id_key"
	ConstraintReplacementCredit      = "replacement_bookings_credit_confirmed_key"
	ConstraintReplacementUserSession = "replacement_bookings_user_session_confirmed_key"
	ConstraintEnrollment             = "session_enrollments_pkey"
)

// IsDuplicate нарушено ли конкретное уникальное ограничение
func IsDuplicate(err error, constraint string) bool {
	return errors.Is(err, ErrDuplicate) && strings.Contains(err.Error(), constraint)
}
