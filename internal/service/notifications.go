package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
)

// dispatcher отправляет уведомления после коммита. Ошибки доставки только логируются.
type dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
}

func newDispatcher(n Notifier, logger *zap.Logger) *dispatcher {
	return &dispatcher{notifier: n, logger: logger}
}

func (d *dispatcher) send(ctx context.Context, items ...model.Notification) int {
	if d == nil || d.notifier == nil {
		return 0
	}
	sent := 0
	for _, n := range items {
		if err := d.notifier.Notify(ctx, n); err != nil {
			d.logger.Warn("Failed to deliver notification",
				zap.Int64("user_id", n.UserID),
				zap.String("type", string(n.Type)),
				zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

func creditLink(creditID int64) string {
	return fmt.Sprintf("/credits/%d", creditID)
}

func creditIssuedNotice(c *model.ReplacementCredit) model.Notification {
	return model.Notification{
		UserID:  c.UserID,
		Type:    model.NotificationCreditIssued,
		Title:   "Replacement credit issued",
		Message: fmt.Sprintf("You received a replacement credit valid until %s.", clock.CivilDate(c.ExpiresAt)),
		Link:    creditLink(c.ID),
	}
}

func creditExpiringNotice(c *model.ReplacementCredit) model.Notification {
	return model.Notification{
		UserID:  c.UserID,
		Type:    model.NotificationCreditExpiring,
		Title:   "Replacement credit expiring soon",
		Message: fmt.Sprintf("Your replacement credit expires on %s. Book a replacement lesson before then.", clock.CivilDate(c.ExpiresAt)),
		Link:    creditLink(c.ID),
	}
}

func absenceNotice(a *model.Absence) model.Notification {
	n := model.Notification{
		UserID: a.UserID,
		Link:   fmt.Sprintf("/absences/%d", a.ID),
	}
	switch a.Status {
	case model.AbsenceStatusApproved:
		n.Type = model.NotificationAbsenceRecorded
		n.Title = "Absence approved"
		n.Message = fmt.Sprintf("Your absence for %s was approved in advance.", clock.CivilDate(a.LessonDate))
	case model.AbsenceStatusPendingReview:
		n.Type = model.NotificationAbsencePending
		n.Title = "Absence awaiting review"
		n.Message = fmt.Sprintf("Your medical absence for %s will be reviewed by an administrator.", clock.CivilDate(a.LessonDate))
	case model.AbsenceStatusReviewed:
		n.Type = model.NotificationAbsenceReviewed
		n.Title = "Absence reviewed"
		if a.CreditAwarded {
			n.Message = fmt.Sprintf("Your absence for %s was reviewed and a replacement credit was awarded.", clock.CivilDate(a.LessonDate))
		} else {
			n.Message = fmt.Sprintf("Your absence for %s was reviewed. No replacement credit was awarded.", clock.CivilDate(a.LessonDate))
		}
	default:
		n.Type = model.NotificationAbsenceRecorded
		n.Title = "Absence recorded"
		n.Message = fmt.Sprintf("Your absence for %s was recorded. Notice under 7 days does not earn a replacement credit.", clock.CivilDate(a.LessonDate))
	}
	return n
}

func replacementBookedNotice(b *model.ReplacementBooking, session *model.LessonSession) model.Notification {
	return model.Notification{
		UserID:  b.UserID,
		Type:    model.NotificationReplacementBooked,
		Title:   "Replacement lesson booked",
		Message: fmt.Sprintf("You are booked into the lesson on %s at %s.", clock.CivilDate(session.StartsAt()), session.StartTime),
		Link:    fmt.Sprintf("/replacements/%d", b.ID),
	}
}

func lessonCancelledNotice(b *model.ReplacementBooking, refunded bool) model.Notification {
	msg := "The lesson you booked as a replacement was cancelled. The credit had already expired and is not returned."
	if refunded {
		msg = "The lesson you booked as a replacement was cancelled and the credit was returned."
	}
	return model.Notification{
		UserID:  b.UserID,
		Type:    model.NotificationReplacementCancelled,
		Title:   "Replacement lesson cancelled",
		Message: msg,
		Link:    fmt.Sprintf("/replacements/%d", b.ID),
	}
}

func replacementCancelledNotice(b *model.ReplacementBooking, refunded bool) model.Notification {
	msg := "Your replacement booking was cancelled. Late cancellations and expired credits are not returned."
	if refunded {
		msg = "Your replacement booking was cancelled and the credit was returned."
	}
	return model.Notification{
		UserID:  b.UserID,
		Type:    model.NotificationReplacementCancelled,
		Title:   "Replacement booking cancelled",
		Message: msg,
		Link:    fmt.Sprintf("/replacements/%d", b.ID),
	}
}
