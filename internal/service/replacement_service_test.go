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
)

func TestBookReplacement(t *testing.T) {
	e := newEnv(t, now)
	origin := e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00")
	credit := e.creditFor(t, 1, origin)
	target := e.session(t, slugGroup, court2, "2026-03-10", "10:00", "11:00")

	b, err := e.replacements.Book(e.ctx, 1, credit.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReplacementStatusConfirmed, b.Status)
	assert.Equal(t, credit.ID, b.CreditID)

	stored, err := e.store.Credits().GetByID(e.ctx, credit.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.UsedAt)
	assert.True(t, stored.UsedAt.Equal(e.clock.Now()))

	available, err := e.ledger.ListAvailable(e.ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, available)

	assert.Contains(t, e.notifier.types(), model.NotificationReplacementBooked)

	_, err = e.replacements.Book(e.ctx, 1, credit.ID, target.ID)
	require.ErrorIs(t, err, apperror.ErrCreditUnavailable)
}

func TestBookReplacementRejections(t *testing.T) {
	e := newEnv(t, now)
	origin := e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00")
	credit := e.creditFor(t, 1, origin)

	private := e.session(t, slugPrivate, court2, "2026-03-10", "10:00", "11:00")
	cancelled := e.session(t, slugGroup, court2, "2026-03-11", "10:00", "11:00")
	require.NoError(t, e.lessons.CancelSession(e.ctx, cancelled.ID))
	joined := e.session(t, slugGroup, court2, "2026-03-12", "10:00", "11:00")
	require.NoError(t, e.lessons.Enroll(e.ctx, joined.ID, 1))
	soon := e.session(t, slugGroup, court2, "2026-02-20", "10:00", "11:00")

	tests := []struct {
		name    string
		userID  int64
		session int64
		want    error
	}{
		{"other lesson type", 1, private.ID, apperror.ErrLessonTypeMismatch},
		{"cancelled session", 1, cancelled.ID, apperror.ErrSessionNotBookable},
		{"missing session", 1, 404, apperror.ErrNotFound},
		{"already enrolled", 1, joined.ID, apperror.ErrAlreadyBooked},
		{"credit of another user", 2, joined.ID, apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.replacements.Book(e.ctx, tt.userID, credit.ID, tt.session)
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("session already started", func(t *testing.T) {
		e.clock.Set(soon.StartsAt())
		_, err := e.replacements.Book(e.ctx, 1, credit.ID, soon.ID)
		require.ErrorIs(t, err, apperror.ErrSessionNotBookable)
	})

	stored, err := e.store.Credits().GetByID(e.ctx, credit.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.UsedAt, "rejected bookings must not consume the credit")
}

func TestBookReplacementCapacity(t *testing.T) {
	e := newEnv(t, now)
	origin := e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00")
	credit := e.creditFor(t, 1, origin)
	other := e.creditFor(t, 2, origin)

	full := e.session(t, slugGroup, court2, "2026-03-10", "10:00", "11:00")
	require.NoError(t, e.lessons.Enroll(e.ctx, full.ID, 11))
	require.NoError(t, e.lessons.Enroll(e.ctx, full.ID, 12))

	_, err := e.replacements.Book(e.ctx, 1, credit.ID, full.ID)
	require.ErrorIs(t, err, apperror.ErrSlotFull)
	assert.Contains(t, err.Error(), "no available slots")

	almost := e.session(t, slugGroup, court2, "2026-03-11", "10:00", "11:00")
	require.NoError(t, e.lessons.Enroll(e.ctx, almost.ID, 11))

	_, err = e.replacements.Book(e.ctx, 1, credit.ID, almost.ID)
	require.NoError(t, err)

	enrolled, err := e.store.LessonSessions().CountEnrolled(e.ctx, almost.ID)
	require.NoError(t, err)
	confirmed, err := e.store.ReplacementBookings().CountConfirmedBySession(e.ctx, almost.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, enrolled+confirmed)

	// замены занимают места так же, как записанные ученики
	_, err = e.replacements.Book(e.ctx, 2, other.ID, almost.ID)
	require.ErrorIs(t, err, apperror.ErrSlotFull)
	require.ErrorIs(t, e.lessons.Enroll(e.ctx, almost.ID, 13), apperror.ErrSlotFull)
}

func TestConcurrentRedemptionOfOneCredit(t *testing.T) {
	e := newEnv(t, now)
	origin := e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00")
	credit := e.creditFor(t, 1, origin)
	targets := []*model.LessonSession{
		e.session(t, slugGroup, court2, "2026-03-10", "10:00", "11:00"),
		e.session(t, slugGroup, court2, "2026-03-11", "10:00", "11:00"),
		e.session(t, slugGroup, court2, "2026-03-12", "10:00", "11:00"),
	}

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		succeeded   int
		unavailable int
	)
	for _, target := range targets {
		wg.Add(1)
		go func(sessionID int64) {
			defer wg.Done()
			_, err := e.replacements.Book(e.ctx, 1, credit.ID, sessionID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperror.ErrCreditUnavailable):
				unavailable++
			}
		}(target.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, len(targets)-1, unavailable)
}

func TestCancelReplacementRefundRule(t *testing.T) {
	tests := []struct {
		name         string
		hoursBefore  float64
		wantRefunded bool
	}{
		{"thirty hours before", 30, true},
		{"just over cutoff", 24.5, true},
		{"exactly at cutoff", 24, false},
		{"ten hours before", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, now)
			origin := e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00")
			credit := e.creditFor(t, 1, origin)
			target := e.session(t, slugGroup, court2, "2026-03-10", "10:00", "11:00")

			b, err := e.replacements.Book(e.ctx, 1, credit.ID, target.ID)
			require.NoError(t, err)

			e.clock.Set(target.StartsAt().Add(-time.Duration(tt.hoursBefore * float64(time.Hour))))
			res, err := e.replacements.Cancel(e.ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRefunded, res.Refunded)
			assert.Equal(t, model.ReplacementStatusCancelled, res.Booking.Status)

			stored, err := e.store.Credits().GetByID(e.ctx, credit.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRefunded, stored.UsedAt == nil)

			if tt.wantRefunded {
				again, err := e.replacements.Book(e.ctx, 1, credit.ID, target.ID)
				require.NoError(t, err)
				assert.NotEqual(t, b.ID, again.ID)
			}

			_, err = e.replacements.Cancel(e.ctx, b.ID)
			require.ErrorIs(t, err, apperror.ErrCannotCancel)
		})
	}
}

func TestCancelReplacementAfterCreditExpiry(t *testing.T) {
	e := newEnv(t, now)
	origin := e.session(t, slugGroup, court1, "2026-03-04", "10:00", "11:00")
	credit := e.creditFor(t, 1, origin)
	target := e.session(t, slugGroup, court2, "2026-03-28", "10:00", "11:00")

	b, err := e.replacements.Book(e.ctx, 1, credit.ID, target.ID)
	require.NoError(t, err)

	e.clock.Set(credit.ExpiresAt.Add(time.Hour))
	res, err := e.replacements.Cancel(e.ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, res.Refunded)

	_, err = e.replacements.Cancel(e.ctx, 404)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}
