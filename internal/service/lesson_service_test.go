package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/service"
)

func TestCreateSessionValidatesLessonType(t *testing.T) {
	e := newEnv(t, now)
	e.store.AddLessonType(e.ctx, &model.LessonType{Slug: "retired", MaxStudents: 4})

	_, err := e.lessons.CreateSession(e.ctx, "unknown", e.slot(t, court1, "2026-03-04", "10:00", "11:00"))
	require.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = e.lessons.CreateSession(e.ctx, "retired", e.slot(t, court1, "2026-03-04", "10:00", "11:00"))
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = e.lessons.CreateSession(e.ctx, " ", e.slot(t, court1, "2026-03-04", "10:00", "11:00"))
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestEnrollRespectsCapacity(t *testing.T) {
	e := newEnv(t, now)
	ls := e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00")

	require.NoError(t, e.lessons.Enroll(e.ctx, ls.ID, 1))
	require.ErrorIs(t, e.lessons.Enroll(e.ctx, ls.ID, 1), apperror.ErrAlreadyBooked)
	require.NoError(t, e.lessons.Enroll(e.ctx, ls.ID, 2))
	require.ErrorIs(t, e.lessons.Enroll(e.ctx, ls.ID, 3), apperror.ErrSlotFull)

	n, err := e.store.LessonSessions().CountEnrolled(e.ctx, ls.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.ErrorIs(t, e.lessons.Enroll(e.ctx, 404, 1), apperror.ErrNotFound)
}

func TestRescheduleAndCancelLesson(t *testing.T) {
	e := newEnv(t, now)
	ls := e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00")
	_, err := e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{
		UserID: 9,
		Slot:   e.slot(t, court1, "2026-03-05", "10:00", "11:00"),
	})
	require.NoError(t, err)

	_, err = e.lessons.RescheduleLesson(e.ctx, ls.ID, e.slot(t, 0, "2026-03-05", "10:30", "11:30"))
	require.ErrorIs(t, err, apperror.ErrSlotConflict)
	assert.Contains(t, err.Error(), "a booking")

	moved, err := e.lessons.RescheduleLesson(e.ctx, ls.ID, e.slot(t, 0, "2026-03-04", "10:30", "11:30"))
	require.NoError(t, err)
	assert.Equal(t, tod(t, "10:30"), moved.StartTime)

	require.NoError(t, e.lessons.CancelSession(e.ctx, ls.ID))
	require.ErrorIs(t, e.lessons.CancelSession(e.ctx, ls.ID), apperror.ErrCannotCancel)

	_, err = e.lessons.RescheduleLesson(e.ctx, ls.ID, e.slot(t, 0, "2026-03-06", "10:00", "11:00"))
	require.ErrorIs(t, err, apperror.ErrSessionNotBookable)

	// отменённое занятие корт не занимает
	_, err = e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{
		UserID: 9,
		Slot:   e.slot(t, court1, "2026-03-04", "10:30", "11:30"),
	})
	require.NoError(t, err)
	require.ErrorIs(t, e.lessons.Enroll(e.ctx, ls.ID, 1), apperror.ErrSessionNotBookable)
}

func TestCancelSessionReleasesReplacements(t *testing.T) {
	e := newEnv(t, now)
	first := e.creditFor(t, 1, e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00"))

	e.clock.Set(mustTime(t, "2026-03-01T00:00:00Z"))
	second := e.creditFor(t, 2, e.session(t, slugGroup, court1, "2026-03-12", "10:00", "11:00"))
	target := e.session(t, slugGroup, court2, "2026-03-25", "10:00", "11:00")

	b1, err := e.replacements.Book(e.ctx, 1, first.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, b1.CreatedAt.Equal(e.clock.Now()))
	b2, err := e.replacements.Book(e.ctx, 2, second.ID, target.ID)
	require.NoError(t, err)

	// первый кредит истёк 2026-03-21, второй действует до 2026-03-31
	e.clock.Set(mustTime(t, "2026-03-22T00:00:00Z"))
	require.NoError(t, e.lessons.CancelSession(e.ctx, target.ID))

	for _, id := range []int64{b1.ID, b2.ID} {
		stored, err := e.store.ReplacementBookings().GetByID(e.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.ReplacementStatusCancelled, stored.Status)
		require.NotNil(t, stored.CancelledAt)
		assert.True(t, stored.CancelledAt.Equal(e.clock.Now()))
	}
	confirmed, err := e.store.ReplacementBookings().CountConfirmedBySession(e.ctx, target.ID)
	require.NoError(t, err)
	assert.Zero(t, confirmed)

	expired, err := e.store.Credits().GetByID(e.ctx, first.ID)
	require.NoError(t, err)
	assert.NotNil(t, expired.UsedAt)

	available, err := e.ledger.ListAvailable(e.ctx, 2)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, second.ID, available[0].ID)

	sent := e.notifier.sent
	require.GreaterOrEqual(t, len(sent), 2)
	tail := sent[len(sent)-2:]
	assert.Equal(t, model.NotificationReplacementCancelled, tail[0].Type)
	assert.Equal(t, int64(1), tail[0].UserID)
	assert.Contains(t, tail[0].Message, "not returned")
	assert.Equal(t, int64(2), tail[1].UserID)
	assert.Contains(t, tail[1].Message, "credit was returned")
}
