package service_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/service"
)

const now = "2026-02-19T00:00:00Z"

func TestCreateBookingConflictsAcrossKinds(t *testing.T) {
	e := newEnv(t, now)
	e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00")

	_, err := e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{
		UserID: 7,
		Slot:   e.slot(t, court1, "2026-03-04", "10:30", "11:30"),
	})
	require.ErrorIs(t, err, apperror.ErrSlotConflict)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "a lesson session")
	assert.Equal(t, string(model.CommitmentLessonSession), appErr.Details["conflictKind"])

	// встык не пересекается
	b, err := e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{
		UserID: 7,
		Slot:   e.slot(t, court1, "2026-03-04", "11:00", "12:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, b.Status)

	// другой корт свободен
	_, err = e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{
		UserID: 7,
		Slot:   e.slot(t, court2, "2026-03-04", "10:30", "11:30"),
	})
	require.NoError(t, err)
}

func TestCreateBookingConflictsWithRecurringWindow(t *testing.T) {
	e := newEnv(t, now)
	end := mustDate(t, "2026-03-11")
	_, err := e.bookings.CreateRecurringBooking(e.ctx, service.CreateRecurringInput{
		UserID:     3,
		ResourceID: court1,
		Weekdays:   []time.Weekday{time.Wednesday},
		Start:      tod(t, "18:00"),
		End:        tod(t, "19:30"),
		StartDate:  mustDate(t, "2026-02-25"),
		EndDate:    &end,
	})
	require.NoError(t, err)

	_, err = e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{
		UserID: 7,
		Slot:   e.slot(t, court1, "2026-03-04", "19:00", "20:00"),
	})
	require.ErrorIs(t, err, apperror.ErrSlotConflict)
	assert.Contains(t, err.Error(), "a recurring booking")

	// после endDate серия корт не занимает
	_, err = e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{
		UserID: 7,
		Slot:   e.slot(t, court1, "2026-03-18", "19:00", "20:00"),
	})
	require.NoError(t, err)

	// не тот день недели
	_, err = e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{
		UserID: 7,
		Slot:   e.slot(t, court1, "2026-03-05", "19:00", "20:00"),
	})
	require.NoError(t, err)
}

func TestCreateBookingRejectsInvalidInput(t *testing.T) {
	e := newEnv(t, now)

	tests := []struct {
		name string
		in   service.CreateBookingInput
	}{
		{"zero length", service.CreateBookingInput{UserID: 1, Slot: e.slot(t, court1, "2026-03-04", "10:00", "10:00")}},
		{"reversed", service.CreateBookingInput{UserID: 1, Slot: e.slot(t, court1, "2026-03-04", "11:00", "10:00")}},
		{"no resource", service.CreateBookingInput{UserID: 1, Slot: e.slot(t, 0, "2026-03-04", "10:00", "11:00")}},
		{"no user", service.CreateBookingInput{Slot: e.slot(t, court1, "2026-03-04", "10:00", "11:00")}},
		{"in the past", service.CreateBookingInput{UserID: 1, Slot: e.slot(t, court1, "2026-02-18", "10:00", "11:00")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.bookings.CreateBooking(e.ctx, tt.in)
			require.ErrorIs(t, err, apperror.ErrInvalidInput)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}

func TestConcurrentCreateBookingExactlyOneWins(t *testing.T) {
	e := newEnv(t, now)
	const workers = 8
	slot := e.slot(t, court1, "2026-03-04", "09:00", "10:00")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{UserID: user, Slot: slot})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperror.ErrSlotConflict):
				conflicts++
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestCreateBookingPaymentSessionIsIdempotent(t *testing.T) {
	e := newEnv(t, now)
	payment := "cs_test_42"
	in := service.CreateBookingInput{
		UserID:           5,
		Slot:             e.slot(t, court1, "2026-03-04", "09:00", "10:00"),
		PaymentSessionID: &payment,
	}

	first, err := e.bookings.CreateBooking(e.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, first.Status)

	second, err := e.bookings.CreateBooking(e.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var wg sync.WaitGroup
	ids := make([]int64, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := e.bookings.CreateBooking(e.ctx, in)
			if err == nil {
				ids[i] = b.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, first.ID, id)
	}
}

func TestRescheduleBookingIgnoresItself(t *testing.T) {
	e := newEnv(t, now)
	b, err := e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{
		UserID: 1,
		Slot:   e.slot(t, court1, "2026-03-04", "10:00", "11:00"),
	})
	require.NoError(t, err)
	e.session(t, slugGroup, court1, "2026-03-04", "12:00", "13:00")

	moved, err := e.bookings.RescheduleBooking(e.ctx, b.ID, e.slot(t, 0, "2026-03-04", "10:30", "11:30"))
	require.NoError(t, err)
	assert.Equal(t, tod(t, "10:30"), moved.StartTime)
	assert.Equal(t, court1, moved.ResourceID)

	_, err = e.bookings.RescheduleBooking(e.ctx, b.ID, e.slot(t, 0, "2026-03-04", "11:30", "12:30"))
	require.ErrorIs(t, err, apperror.ErrSlotConflict)

	stored, err := e.store.Bookings().GetByID(e.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, tod(t, "10:30"), stored.StartTime, "failed reschedule must not write")

	_, err = e.bookings.RescheduleBooking(e.ctx, 999, e.slot(t, 0, "2026-03-04", "15:00", "16:00"))
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCancelBookingReleasesSlot(t *testing.T) {
	e := newEnv(t, now)
	slot := e.slot(t, court1, "2026-03-04", "10:00", "11:00")
	b, err := e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{UserID: 1, Slot: slot})
	require.NoError(t, err)

	require.NoError(t, e.bookings.ConfirmBooking(e.ctx, b.ID))
	require.ErrorIs(t, e.bookings.ConfirmBooking(e.ctx, b.ID), apperror.ErrInvalidInput)

	conflict, err := e.bookings.CheckConflict(e.ctx, slot)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, b.Ref(), conflict.Ref)

	require.NoError(t, e.bookings.CancelBooking(e.ctx, b.ID))
	require.ErrorIs(t, e.bookings.CancelBooking(e.ctx, b.ID), apperror.ErrCannotCancel)

	conflict, err = e.bookings.CheckConflict(e.ctx, slot)
	require.NoError(t, err)
	assert.Nil(t, conflict)

	stored, err := e.store.Bookings().GetByID(e.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)
}

func TestCreateRecurringBookingChecksEveryOccurrence(t *testing.T) {
	e := newEnv(t, now)
	e.session(t, slugGroup, court1, "2026-03-18", "18:30", "19:30")

	end := mustDate(t, "2026-03-31")
	in := service.CreateRecurringInput{
		UserID:     3,
		ResourceID: court1,
		Weekdays:   []time.Weekday{time.Monday, time.Wednesday},
		Start:      tod(t, "18:00"),
		End:        tod(t, "19:00"),
		StartDate:  mustDate(t, "2026-03-01"),
		EndDate:    &end,
	}
	_, err := e.bookings.CreateRecurringBooking(e.ctx, in)
	require.ErrorIs(t, err, apperror.ErrSlotConflict)

	// ни одна запись серии не создана
	conflict, err := e.bookings.CheckConflict(e.ctx, e.slot(t, court1, "2026-03-02", "18:00", "19:00"))
	require.NoError(t, err)
	assert.Nil(t, conflict)

	in.ResourceID = court2
	series, err := e.bookings.CreateRecurringBooking(e.ctx, in)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, series[0].GroupID, series[1].GroupID)
	assert.Equal(t, time.Monday, series[0].DayOfWeek)
	assert.Equal(t, time.Wednesday, series[1].DayOfWeek)

	conflict, err = e.bookings.CheckConflict(e.ctx, e.slot(t, court2, "2026-03-02", "18:30", "18:45"))
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, model.CommitmentRecurringBooking, conflict.Ref.Kind)

	require.NoError(t, e.bookings.CancelRecurringBooking(e.ctx, series[0].ID))
	conflict, err = e.bookings.CheckConflict(e.ctx, e.slot(t, court2, "2026-03-02", "18:30", "18:45"))
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestOpenEndedRecurringBookingChecksFarFuture(t *testing.T) {
	e := newEnv(t, now)

	// понедельник через 21 неделю после начала серии
	_, err := e.bookings.CreateBooking(e.ctx, service.CreateBookingInput{UserID: 1, Slot: e.slot(t, court1, "2026-07-20", "18:00", "19:00")})
	require.NoError(t, err)
	e.session(t, slugGroup, court2, "2026-09-14", "18:30", "19:30")
	later := mustDate(t, "2027-03-01")
	_, err = e.bookings.CreateRecurringBooking(e.ctx, service.CreateRecurringInput{
		UserID: 2, ResourceID: court3, Weekdays: []time.Weekday{time.Monday},
		Start: tod(t, "17:30"), End: tod(t, "18:30"), StartDate: later,
	})
	require.NoError(t, err)

	open := func(resource int64, end *time.Time) service.CreateRecurringInput {
		return service.CreateRecurringInput{
			UserID:     3,
			ResourceID: resource,
			Weekdays:   []time.Weekday{time.Monday},
			Start:      tod(t, "18:00"),
			End:        tod(t, "19:00"),
			StartDate:  mustDate(t, "2026-02-23"),
			EndDate:    end,
		}
	}

	tests := []struct {
		name  string
		in    service.CreateRecurringInput
		label string
	}{
		{"booking in week 21", open(court1, nil), "a booking"},
		{"lesson in week 29", open(court2, nil), "a lesson session"},
		{"series starting a year later", open(court3, nil), "a recurring booking"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.bookings.CreateRecurringBooking(e.ctx, tt.in)
			require.ErrorIs(t, err, apperror.ErrSlotConflict)
			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Message, tt.label)
		})
	}

	// серия, закончившаяся до поздней серии, её не задевает
	end := mustDate(t, "2027-02-22")
	_, err = e.bookings.CreateRecurringBooking(e.ctx, open(court3, &end))
	require.NoError(t, err)

	// при этом ни одна из отклонённых серий не заняла корт
	conflict, err := e.bookings.CheckConflict(e.ctx, e.slot(t, court1, "2026-03-02", "18:00", "19:00"))
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCreateRecurringBookingValidation(t *testing.T) {
	e := newEnv(t, now)
	start := mustDate(t, "2026-03-10")
	before := mustDate(t, "2026-03-01")
	short := mustDate(t, "2026-03-11")

	tests := []struct {
		name string
		in   service.CreateRecurringInput
	}{
		{"no weekdays", service.CreateRecurringInput{UserID: 1, ResourceID: court1, Start: tod(t, "10:00"), End: tod(t, "11:00"), StartDate: start}},
		{"end before start", service.CreateRecurringInput{UserID: 1, ResourceID: court1, Weekdays: []time.Weekday{time.Monday}, Start: tod(t, "10:00"), End: tod(t, "11:00"), StartDate: start, EndDate: &before}},
		{"no matching date", service.CreateRecurringInput{UserID: 1, ResourceID: court1, Weekdays: []time.Weekday{time.Friday}, Start: tod(t, "10:00"), End: tod(t, "11:00"), StartDate: start, EndDate: &short}},
		{"zero length", service.CreateRecurringInput{UserID: 1, ResourceID: court1, Weekdays: []time.Weekday{time.Tuesday}, Start: tod(t, "10:00"), End: tod(t, "10:00"), StartDate: start}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.bookings.CreateRecurringBooking(e.ctx, tt.in)
			require.ErrorIs(t, err, apperror.ErrInvalidInput)
		})
	}
}
