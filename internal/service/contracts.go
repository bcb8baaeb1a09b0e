package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
	"github.com/Freeeeeet/court_scheduler/internal/schedule"
)

// Transactor открывает транзакцию; вложенные вызовы присоединяются к внешней
type Transactor interface {
	WithTransaction(ctx context.Context, iso base.Isolation, fn func(ctx context.Context) error) error
}

// SlotReserver проверка занятости корта по схеме check -> transact -> re-check
type SlotReserver interface {
	FindConflict(ctx context.Context, candidate model.Interval, exclude *model.CommitmentRef) (*schedule.Conflict, error)
	Reserve(ctx context.Context, candidates []model.Interval, exclude *model.CommitmentRef, write func(ctx context.Context) error) error
	ReserveWeekly(ctx context.Context, slots []model.WeeklySlot, exclude *model.CommitmentRef, write func(ctx context.Context) error) error
}

type BookingRepository interface {
	Create(ctx context.Context, b *model.AdHocBooking) error
	GetByID(ctx context.Context, id int64) (*model.AdHocBooking, error)
	GetByPaymentSessionID(ctx context.Context, paymentSessionID string) (*model.AdHocBooking, error)
	UpdateSlot(ctx context.Context, id int64, slot model.Interval) error
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus, at time.Time) error
}

type RecurringBookingRepository interface {
	Create(ctx context.Context, rb *model.RecurringBooking) error
	GetByID(ctx context.Context, id int64) (*model.RecurringBooking, error)
	Deactivate(ctx context.Context, id int64) error
}

type LessonSessionRepository interface {
	Create(ctx context.Context, ls *model.LessonSession) error
	GetByID(ctx context.Context, id int64) (*model.LessonSession, error)
	UpdateSlot(ctx context.Context, id int64, slot model.Interval) error
	UpdateStatus(ctx context.Context, id int64, status model.SessionStatus) error
	Enroll(ctx context.Context, sessionID, userID int64) error
	IsEnrolled(ctx context.Context, sessionID, userID int64) (bool, error)
	CountEnrolled(ctx context.Context, sessionID int64) (int, error)
}

// LessonTypeCatalog каталог видов занятий
type LessonTypeCatalog interface {
	GetBySlug(ctx context.Context, slug string) (*model.LessonType, error)
	MaxStudentsFor(ctx context.Context, slug string) (int, error)
}

type AbsenceRepository interface {
	Create(ctx context.Context, a *model.Absence) error
	GetByID(ctx context.Context, id int64) (*model.Absence, error)
	GetByUserSession(ctx context.Context, userID, sessionID int64) (*model.Absence, error)
	SaveReview(ctx context.Context, a *model.Absence) error
}

type CreditRepository interface {
	Create(ctx context.Context, c *model.ReplacementCredit) error
	GetByID(ctx context.Context, id int64) (*model.ReplacementCredit, error)
	// MarkUsed условное обновление: true, только если кредит был доступен на момент at
	MarkUsed(ctx context.Context, id int64, at time.Time) (bool, error)
	ClearUsed(ctx context.Context, id int64) error
	ListAvailableByUser(ctx context.Context, userID int64, now time.Time) ([]*model.ReplacementCredit, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.ReplacementCredit, error)
}

type ReplacementBookingRepository interface {
	Create(ctx context.Context, b *model.ReplacementBooking) error
	GetByID(ctx context.Context, id int64) (*model.ReplacementBooking, error)
	CountConfirmedBySession(ctx context.Context, sessionID int64) (int, error)
	ListConfirmedBySession(ctx context.Context, sessionID int64) ([]*model.ReplacementBooking, error)
	HasConfirmed(ctx context.Context, userID, sessionID int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status model.ReplacementBookingStatus, at time.Time) error
}

// NotificationLog журнал отправленных уведомлений по кредитам
type NotificationLog interface {
	MarkSent(ctx context.Context, creditID int64, kind model.NotificationType, at time.Time) (bool, error)
}

// Notifier внешний канал доставки уведомлений
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Metrics счётчики доменных событий
type Metrics interface {
	ReplacementBooked(outcome string)
	CreditEvent(event string)
	SweepNotified(n int)
}

type nopMetrics struct{}

func (nopMetrics) ReplacementBooked(string) {}
func (nopMetrics) CreditEvent(string)       {}
func (nopMetrics) SweepNotified(int)        {}
