package model

// NotificationType тип уведомления пользователю
type NotificationType string

const (
	NotificationAbsenceRecorded      NotificationType = "ABSENCE_RECORDED"
	NotificationAbsencePending       NotificationType = "ABSENCE_PENDING_REVIEW"
	NotificationAbsenceReviewed      NotificationType = "ABSENCE_REVIEWED"
	NotificationCreditIssued         NotificationType = "CREDIT_ISSUED"
	NotificationCreditExpiring       NotificationType = "CREDIT_EXPIRING"
	NotificationReplacementBooked    NotificationType = "REPLACEMENT_BOOKED"
	NotificationReplacementCancelled NotificationType = "REPLACEMENT_CANCELLED"
)

// Notification сообщение для внешнего канала доставки
type Notification struct {
	UserID  int64
	Type    NotificationType
	Title   string
	Message string
	Link    string
}
