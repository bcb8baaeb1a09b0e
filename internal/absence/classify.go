// Package absence классифицирует заявки о пропуске по сроку подачи.
package absence

import (
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
)

const (
	// ApplyDays минимальный срок в календарных днях, при котором пропуск заранее согласован
	ApplyDays = 7
	// LateNoticeDays минимальный срок для позднего уведомления
	LateNoticeDays = 3
)

// Classify определяет категорию пропуска по разнице календарных дат UTC+8
// между подачей и занятием. MEDICAL сюда не попадает, его выставляет вызывающий.
func Classify(appliedAt, lessonAt time.Time) model.AbsenceType {
	days := clock.CalendarDayDiff(appliedAt, lessonAt)
	switch {
	case days >= ApplyDays:
		return model.AbsenceTypeApply
	case days >= LateNoticeDays:
		return model.AbsenceTypeLateNotice
	default:
		return model.AbsenceTypeAbsent
	}
}

// InitialStatus статус только что созданной заявки
func InitialStatus(t model.AbsenceType) model.AbsenceStatus {
	switch t {
	case model.AbsenceTypeApply:
		return model.AbsenceStatusApproved
	case model.AbsenceTypeMedical:
		return model.AbsenceStatusPendingReview
	default:
		return model.AbsenceStatusRecorded
	}
}

// GrantsCredit выдаётся ли кредит сразу при подаче
func GrantsCredit(status model.AbsenceStatus) bool {
	return status == model.AbsenceStatusApproved
}

// Decide категория и стартовый статус с учётом медицинской причины
func Decide(appliedAt, lessonAt time.Time, medical bool) (model.AbsenceType, model.AbsenceStatus) {
	t := model.AbsenceTypeMedical
	if !medical {
		t = Classify(appliedAt, lessonAt)
	}
	return t, InitialStatus(t)
}
