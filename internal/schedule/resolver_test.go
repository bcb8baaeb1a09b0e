package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
	"github.com/Freeeeeet/court_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/court_scheduler/internal/schedule"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := clock.ParseDate(s)
	require.NoError(t, err)
	return d
}

func hm(t *testing.T, s string) model.TimeOfDay {
	t.Helper()
	v, err := model.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func interval(t *testing.T, resource int64, date, start, end string) model.Interval {
	t.Helper()
	iv, err := model.NewInterval(resource, day(t, date), hm(t, start), hm(t, end))
	require.NoError(t, err)
	return iv
}

type countingObserver struct{ kinds []string }

func (o *countingObserver) ConflictRejected(kind string) { o.kinds = append(o.kinds, kind) }

func seeded(t *testing.T) (*memory.Store, *schedule.Resolver) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Bookings().Create(ctx, &model.AdHocBooking{
		UserID: 1, ResourceID: 1, Date: day(t, "2026-03-04"),
		StartTime: hm(t, "08:00"), EndTime: hm(t, "09:00"), Status: model.BookingStatusConfirmed,
	}))
	require.NoError(t, store.Bookings().Create(ctx, &model.AdHocBooking{
		UserID: 1, ResourceID: 1, Date: day(t, "2026-03-04"),
		StartTime: hm(t, "12:00"), EndTime: hm(t, "13:00"), Status: model.BookingStatusCancelled,
	}))
	end := day(t, "2026-03-18")
	require.NoError(t, store.RecurringBookings().Create(ctx, &model.RecurringBooking{
		UserID: 2, ResourceID: 1, DayOfWeek: time.Wednesday,
		StartTime: hm(t, "18:00"), EndTime: hm(t, "19:00"),
		StartDate: day(t, "2026-03-01"), EndDate: &end, IsActive: true,
	}))
	require.NoError(t, store.LessonSessions().Create(ctx, &model.LessonSession{
		LessonTypeSlug: "group", ResourceID: 1, Date: day(t, "2026-03-04"),
		StartTime: hm(t, "10:00"), EndTime: hm(t, "11:00"), Status: model.SessionStatusScheduled,
	}))

	r := schedule.NewResolver(store, zap.NewNop(),
		schedule.BookingSource(store.Bookings()),
		schedule.RecurringSource(store.RecurringBookings()),
		schedule.SessionSource(store.LessonSessions()),
	)
	return store, r
}

func TestFindConflict(t *testing.T) {
	_, r := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		candidate model.Interval
		want      model.CommitmentKind
	}{
		{"overlaps booking", interval(t, 1, "2026-03-04", "08:30", "09:30"), model.CommitmentBooking},
		{"inside session", interval(t, 1, "2026-03-04", "10:15", "10:45"), model.CommitmentLessonSession},
		{"covers session", interval(t, 1, "2026-03-04", "09:30", "11:30"), model.CommitmentLessonSession},
		{"recurring occurrence", interval(t, 1, "2026-03-11", "18:30", "20:00"), model.CommitmentRecurringBooking},
		{"back to back after booking", interval(t, 1, "2026-03-04", "09:00", "10:00"), ""},
		{"back to back before session", interval(t, 1, "2026-03-04", "09:30", "10:00"), ""},
		{"cancelled booking frees slot", interval(t, 1, "2026-03-04", "12:00", "13:00"), ""},
		{"recurring outside window", interval(t, 1, "2026-03-25", "18:00", "19:00"), ""},
		{"recurring other weekday", interval(t, 1, "2026-03-05", "18:00", "19:00"), ""},
		{"other resource", interval(t, 2, "2026-03-04", "08:00", "11:00"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflict, err := r.FindConflict(ctx, tt.candidate, nil)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, conflict)
				return
			}
			require.NotNil(t, conflict)
			assert.Equal(t, tt.want, conflict.Ref.Kind)
		})
	}
}

func weekly(t *testing.T, resource int64, wd time.Weekday, start, end, from, until string) model.WeeklySlot {
	t.Helper()
	slot := model.WeeklySlot{ResourceID: resource, DayOfWeek: wd, Start: hm(t, start), End: hm(t, end), From: day(t, from)}
	if until != "" {
		u := day(t, until)
		slot.Until = &u
	}
	return slot
}

func TestFindWeeklyConflict(t *testing.T) {
	_, r := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name string
		slot model.WeeklySlot
		want model.CommitmentKind
	}{
		{"open series over booking", weekly(t, 1, time.Wednesday, "08:30", "09:30", "2026-03-01", ""), model.CommitmentBooking},
		{"open series over session", weekly(t, 1, time.Wednesday, "10:15", "10:45", "2026-02-01", ""), model.CommitmentLessonSession},
		{"series starting mid recurring window", weekly(t, 1, time.Wednesday, "18:30", "19:30", "2026-03-10", ""), model.CommitmentRecurringBooking},
		{"series after recurring window", weekly(t, 1, time.Wednesday, "18:00", "19:00", "2026-03-19", ""), ""},
		{"series ending before recurring window", weekly(t, 1, time.Wednesday, "18:00", "19:00", "2026-01-01", "2026-02-28"), ""},
		{"booking before series start", weekly(t, 1, time.Wednesday, "08:00", "09:00", "2026-03-05", ""), ""},
		{"other weekday", weekly(t, 1, time.Thursday, "08:00", "19:00", "2026-03-01", ""), ""},
		{"back to back", weekly(t, 1, time.Wednesday, "09:00", "10:00", "2026-03-01", ""), ""},
		{"cancelled booking", weekly(t, 1, time.Wednesday, "12:00", "13:00", "2026-03-01", ""), ""},
		{"other resource", weekly(t, 2, time.Wednesday, "08:00", "19:00", "2026-03-01", ""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflict, err := r.FindWeeklyConflict(ctx, tt.slot, nil)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, conflict)
				return
			}
			require.NotNil(t, conflict)
			assert.Equal(t, tt.want, conflict.Ref.Kind)
		})
	}
}

func TestReserveWeeklyRechecksInsideTransaction(t *testing.T) {
	store := memory.New()
	taken := interval(t, 1, "2026-09-02", "10:00", "11:00")
	src := &flakySource{taken: taken}
	r := schedule.NewResolver(store, zap.NewNop(), src)

	wrote := false
	write := func(context.Context) error {
		wrote = true
		return nil
	}
	err := r.ReserveWeekly(context.Background(),
		[]model.WeeklySlot{weekly(t, 1, time.Wednesday, "10:30", "11:30", "2026-03-04", "")}, nil, write)
	require.ErrorIs(t, err, apperror.ErrSlotConflict)
	assert.False(t, wrote)
	assert.Equal(t, 2, src.calls)

	err = r.ReserveWeekly(context.Background(), nil, nil, write)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestFindConflictRejectsInvalidInterval(t *testing.T) {
	_, r := seeded(t)
	_, err := r.FindConflict(context.Background(), model.Interval{
		ResourceID: 1, Date: day(t, "2026-03-04"), Start: hm(t, "10:00"), End: hm(t, "10:00"),
	}, nil)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestFindConflictExcludesRef(t *testing.T) {
	store, r := seeded(t)
	ctx := context.Background()

	sessions, err := store.LessonSessions().ListScheduledByResourceDate(ctx, 1, day(t, "2026-03-04"))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	ref := sessions[0].Ref()

	conflict, err := r.FindConflict(ctx, interval(t, 1, "2026-03-04", "10:30", "11:30"), &ref)
	require.NoError(t, err)
	assert.Nil(t, conflict)

	// исключается только сама занятость, остальные проверяются
	conflict, err = r.FindConflict(ctx, interval(t, 1, "2026-03-04", "08:30", "10:30"), &ref)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, model.CommitmentBooking, conflict.Ref.Kind)
}

func TestEnsureReportsKind(t *testing.T) {
	_, r := seeded(t)
	obs := &countingObserver{}
	r.WithObserver(obs)

	err := r.Ensure(context.Background(), interval(t, 1, "2026-03-18", "17:30", "18:30"), nil)
	require.ErrorIs(t, err, apperror.ErrSlotConflict)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "this time slot conflicts with a recurring booking", appErr.Message)
	assert.Equal(t, []string{string(model.CommitmentRecurringBooking)}, obs.kinds)
}

// flakySource пуст на первом чтении и возвращает занятость на последующих,
// имитируя запись конкурента между проверками
type flakySource struct {
	calls int
	taken model.Interval
}

type occupied struct{ iv model.Interval }

func (o occupied) Ref() model.CommitmentRef {
	return model.CommitmentRef{Kind: model.CommitmentBooking, ID: 77}
}

func (o occupied) Occupies(date time.Time) (model.Interval, bool) {
	return o.iv, clock.SameDate(o.iv.Date, date)
}

func (o occupied) Span() (time.Time, *time.Time) {
	return o.iv.Date, &o.iv.Date
}

func (s *flakySource) Kind() model.CommitmentKind { return model.CommitmentBooking }

func (s *flakySource) CommitmentsOn(context.Context, int64, time.Time) ([]model.Commitment, error) {
	s.calls++
	if s.calls == 1 {
		return nil, nil
	}
	return []model.Commitment{occupied{iv: s.taken}}, nil
}

func (s *flakySource) CommitmentsWeekly(ctx context.Context, slot model.WeeklySlot) ([]model.Commitment, error) {
	return s.CommitmentsOn(ctx, slot.ResourceID, slot.From)
}

func TestReserveRechecksInsideTransaction(t *testing.T) {
	store := memory.New()
	candidate := interval(t, 1, "2026-03-04", "10:00", "11:00")
	src := &flakySource{taken: candidate}
	r := schedule.NewResolver(store, zap.NewNop(), src)

	wrote := false
	err := r.Reserve(context.Background(), []model.Interval{candidate}, nil, func(context.Context) error {
		wrote = true
		return nil
	})
	require.ErrorIs(t, err, apperror.ErrSlotConflict)
	assert.False(t, wrote)
	assert.Equal(t, 2, src.calls)
}

type recordingTx struct{ isolation []base.Isolation }

func (tx *recordingTx) WithTransaction(ctx context.Context, iso base.Isolation, fn func(ctx context.Context) error) error {
	tx.isolation = append(tx.isolation, iso)
	return fn(ctx)
}

func TestReserveUsesSerializableTransaction(t *testing.T) {
	tx := &recordingTx{}
	r := schedule.NewResolver(tx, zap.NewNop())

	calls := 0
	err := r.Reserve(context.Background(), []model.Interval{interval(t, 1, "2026-03-04", "10:00", "11:00")}, nil,
		func(context.Context) error {
			calls++
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []base.Isolation{base.Serializable}, tx.isolation)

	err = r.Reserve(context.Background(), nil, nil, func(context.Context) error { return nil })
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}
