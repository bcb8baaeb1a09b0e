package memory

import (
	"context"
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

type BookingRepository struct{ s *Store }

func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s: s} }

func (r *BookingRepository) Create(ctx context.Context, b *model.AdHocBooking) error {
	defer r.s.lock(ctx)()
	if b.PaymentSessionID != nil {
		for _, existing := range r.s.st.bookings {
			if existing.PaymentSessionID != nil && *existing.PaymentSessionID == *b.PaymentSessionID {
				return duplicate(base.ConstraintPaymentSession)
			}
		}
	}
	now := r.s.now()
	b.ID = r.s.nextID()
	b.Date = clock.TruncateDate(b.Date)
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.st.bookings[b.ID] = *b
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.AdHocBooking, error) {
	defer r.s.lock(ctx)()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *BookingRepository) GetByPaymentSessionID(ctx context.Context, paymentSessionID string) (*model.AdHocBooking, error) {
	defer r.s.lock(ctx)()
	for _, b := range r.s.st.bookings {
		if b.PaymentSessionID != nil && *b.PaymentSessionID == paymentSessionID {
			return &b, nil
		}
	}
	return nil, nil
}

func (r *BookingRepository) ListActiveByResourceDate(ctx context.Context, resourceID int64, date time.Time) ([]*model.AdHocBooking, error) {
	defer r.s.lock(ctx)()
	var out []*model.AdHocBooking
	for _, b := range r.s.st.bookings {
		if b.ResourceID == resourceID && clock.SameDate(b.Date, date) && b.IsActive() {
			b := b
			out = append(out, &b)
		}
	}
	sortByID(out, func(b *model.AdHocBooking) int64 { return b.ID })
	return out, nil
}

// ListActiveForWeeklySlot активные брони, попадающие на даты серии
func (r *BookingRepository) ListActiveForWeeklySlot(ctx context.Context, slot model.WeeklySlot) ([]*model.AdHocBooking, error) {
	defer r.s.lock(ctx)()
	var out []*model.AdHocBooking
	for _, b := range r.s.st.bookings {
		if b.ResourceID != slot.ResourceID || !b.IsActive() {
			continue
		}
		if _, ok := slot.CommonDate(b.Span()); ok {
			b := b
			out = append(out, &b)
		}
	}
	sortByID(out, func(b *model.AdHocBooking) int64 { return b.ID })
	return out, nil
}

func (r *BookingRepository) UpdateSlot(ctx context.Context, id int64, slot model.Interval) error {
	defer r.s.lock(ctx)()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return base.ErrNotFound
	}
	b.ResourceID, b.Date, b.StartTime, b.EndTime = slot.ResourceID, clock.TruncateDate(slot.Date), slot.Start, slot.End
	b.UpdatedAt = r.s.now()
	r.s.st.bookings[id] = b
	return nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus, at time.Time) error {
	defer r.s.lock(ctx)()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return base.ErrNotFound
	}
	b.Status = status
	if status == model.BookingStatusCancelled {
		b.CancelledAt = &at
	}
	b.UpdatedAt = at
	r.s.st.bookings[id] = b
	return nil
}

type RecurringBookingRepository struct{ s *Store }

func (s *Store) RecurringBookings() *RecurringBookingRepository {
	return &RecurringBookingRepository{s: s}
}

func (r *RecurringBookingRepository) Create(ctx context.Context, rb *model.RecurringBooking) error {
	defer r.s.lock(ctx)()
	now := r.s.now()
	rb.ID = r.s.nextID()
	rb.CreatedAt, rb.UpdatedAt = now, now
	r.s.st.recurring[rb.ID] = *rb
	return nil
}

func (r *RecurringBookingRepository) GetByID(ctx context.Context, id int64) (*model.RecurringBooking, error) {
	defer r.s.lock(ctx)()
	rb, ok := r.s.st.recurring[id]
	if !ok {
		return nil, nil
	}
	return &rb, nil
}

func (r *RecurringBookingRepository) ListActiveForDate(ctx context.Context, resourceID int64, date time.Time) ([]*model.RecurringBooking, error) {
	defer r.s.lock(ctx)()
	var out []*model.RecurringBooking
	for _, rb := range r.s.st.recurring {
		if rb.ResourceID == resourceID && rb.CoversDate(date) {
			rb := rb
			out = append(out, &rb)
		}
	}
	sortByID(out, func(rb *model.RecurringBooking) int64 { return rb.ID })
	return out, nil
}

// ListActiveForWeeklySlot активные серии того же дня недели с пересекающимся окном
func (r *RecurringBookingRepository) ListActiveForWeeklySlot(ctx context.Context, slot model.WeeklySlot) ([]*model.RecurringBooking, error) {
	defer r.s.lock(ctx)()
	var out []*model.RecurringBooking
	for _, rb := range r.s.st.recurring {
		if rb.ResourceID != slot.ResourceID || !rb.IsActive || rb.DayOfWeek != slot.DayOfWeek {
			continue
		}
		if _, ok := slot.CommonDate(rb.Span()); ok {
			rb := rb
			out = append(out, &rb)
		}
	}
	sortByID(out, func(rb *model.RecurringBooking) int64 { return rb.ID })
	return out, nil
}

func (r *RecurringBookingRepository) Deactivate(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()
	rb, ok := r.s.st.recurring[id]
	if !ok {
		return base.ErrNotFound
	}
	rb.IsActive = false
	rb.UpdatedAt = r.s.now()
	r.s.st.recurring[id] = rb
	return nil
}
