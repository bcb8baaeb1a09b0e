package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/court_scheduler/internal/schedule"
	"github.com/Freeeeeet/court_scheduler/internal/service"
)

const (
	court1 int64 = 1
	court2 int64 = 2
	court3 int64 = 3

	slugGroup   = "group-beginner"
	slugPrivate = "private"
)

// recordingNotifier запоминает уведомления; fail заставляет каждую доставку падать
type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
	fail bool
}

func (n *recordingNotifier) Notify(_ context.Context, msg model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("channel unavailable")
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) types() []model.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.NotificationType, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Type)
	}
	return out
}

type env struct {
	ctx      context.Context
	store    *memory.Store
	clock    *clock.Fixed
	notifier *recordingNotifier

	bookings     *service.BookingService
	lessons      *service.LessonService
	absences     *service.AbsenceService
	ledger       *service.CreditLedger
	replacements *service.ReplacementService
}

func newEnv(t *testing.T, now string) *env {
	t.Helper()

	clk := clock.NewFixed(mustTime(t, now))
	store := memory.New().WithClock(clk)
	notifier := &recordingNotifier{}
	logger := zap.NewNop()
	policy := service.DefaultPolicy()

	resolver := schedule.NewResolver(store, logger,
		schedule.BookingSource(store.Bookings()),
		schedule.RecurringSource(store.RecurringBookings()),
		schedule.SessionSource(store.LessonSessions()),
	)
	ledger := service.NewCreditLedger(store, store.Credits(), store.Notifications(), clk, policy, notifier, nil, logger)

	e := &env{
		ctx:      context.Background(),
		store:    store,
		clock:    clk,
		notifier: notifier,
		ledger:   ledger,
		bookings: service.NewBookingService(store, resolver, store.Bookings(), store.RecurringBookings(), clk, logger),
		lessons: service.NewLessonService(store, resolver, store.LessonSessions(), store.ReplacementBookings(),
			store.LessonTypes(), ledger, store.Credits(), clk, notifier, logger),
		absences: service.NewAbsenceService(store, store.Absences(), store.LessonSessions(), ledger, clk, notifier, logger),
		replacements: service.NewReplacementService(store, ledger, store.Credits(), store.Absences(),
			store.LessonSessions(), store.ReplacementBookings(), store.LessonTypes(), clk, policy, notifier, nil, logger),
	}

	store.AddLessonType(e.ctx, &model.LessonType{Slug: slugGroup, Name: "Group beginner", MaxStudents: 2, IsActive: true})
	store.AddLessonType(e.ctx, &model.LessonType{Slug: slugPrivate, Name: "Private", MaxStudents: 1, IsActive: true})
	return e
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := clock.ParseDate(s)
	require.NoError(t, err)
	return d
}

func tod(t *testing.T, s string) model.TimeOfDay {
	t.Helper()
	v, err := model.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func (e *env) slot(t *testing.T, resource int64, date, start, end string) service.SlotRequest {
	t.Helper()
	return service.SlotRequest{ResourceID: resource, Date: mustDate(t, date), Start: tod(t, start), End: tod(t, end)}
}

func (e *env) session(t *testing.T, slug string, resource int64, date, start, end string) *model.LessonSession {
	t.Helper()
	ls, err := e.lessons.CreateSession(e.ctx, slug, e.slot(t, resource, date, start, end))
	require.NoError(t, err)
	return ls
}

// creditFor записывает пользователя на занятие и подаёт заявку заранее, получая кредит
func (e *env) creditFor(t *testing.T, userID int64, origin *model.LessonSession) *model.ReplacementCredit {
	t.Helper()
	require.NoError(t, e.lessons.Enroll(e.ctx, origin.ID, userID))
	res, err := e.absences.SubmitAbsence(e.ctx, userID, origin.ID, false, "travel")
	require.NoError(t, err)
	require.NotNil(t, res.Credit)
	return res.Credit
}
