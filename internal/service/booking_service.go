package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
	"github.com/Freeeeeet/court_scheduler/internal/schedule"
)

// BookingService разовые и еженедельные бронирования корта
type BookingService struct {
	tx        Transactor
	slots     SlotReserver
	bookings  BookingRepository
	recurring RecurringBookingRepository
	clock     clock.Clock
	logger    *zap.Logger
}

func NewBookingService(
	tx Transactor,
	slots SlotReserver,
	bookings BookingRepository,
	recurring RecurringBookingRepository,
	clk clock.Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:        tx,
		slots:     slots,
		bookings:  bookings,
		recurring: recurring,
		clock:     clk,
		logger:    logger,
	}
}

// SlotRequest запрашиваемый интервал корта
type SlotRequest struct {
	ResourceID int64
	Date       time.Time
	Start      model.TimeOfDay
	End        model.TimeOfDay
}

func (r SlotRequest) interval() (model.Interval, error) {
	return model.NewInterval(r.ResourceID, r.Date, r.Start, r.End)
}

// CheckConflict первая занятость, пересекающаяся с интервалом, или nil
func (s *BookingService) CheckConflict(ctx context.Context, req SlotRequest) (*schedule.Conflict, error) {
	iv, err := req.interval()
	if err != nil {
		return nil, err
	}
	conflict, err := s.slots.FindConflict(ctx, iv, nil)
	if err != nil {
		return nil, failure(s.logger, "check conflict", err)
	}
	return conflict, nil
}

// CreateBookingInput параметры разового бронирования
type CreateBookingInput struct {
	UserID           int64
	Slot             SlotRequest
	PaymentSessionID *string // checkout-сессия оплаты; повтор возвращает уже созданную бронь
}

// CreateBooking бронирует корт. Бронь с оплатой создаётся сразу подтверждённой
// и идемпотентна по PaymentSessionID.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.AdHocBooking, error) {
	if in.UserID <= 0 {
		return nil, apperror.Validation("userId is required")
	}
	iv, err := in.Slot.interval()
	if err != nil {
		return nil, err
	}
	if !iv.StartsAt().After(s.clock.Now()) {
		return nil, apperror.Validation("cannot book a time slot in the past")
	}

	status := model.BookingStatusPending
	if in.PaymentSessionID != nil {
		if *in.PaymentSessionID == "" {
			return nil, apperror.Validation("paymentSessionId must not be empty")
		}
		existing, err := s.bookings.GetByPaymentSessionID(ctx, *in.PaymentSessionID)
		if err != nil {
			return nil, failure(s.logger, "create booking", fmt.Errorf("get booking by payment session: %w", err))
		}
		if existing != nil {
			s.logger.Info("Duplicate payment session, returning existing booking",
				zap.Int64("booking_id", existing.ID),
				zap.String("payment_session_id", *in.PaymentSessionID))
			return existing, nil
		}
		status = model.BookingStatusConfirmed
	}

	booking := &model.AdHocBooking{
		UserID:           in.UserID,
		ResourceID:       iv.ResourceID,
		Date:             iv.Date,
		StartTime:        iv.Start,
		EndTime:          iv.End,
		Status:           status,
		PaymentSessionID: in.PaymentSessionID,
	}

	err = s.slots.Reserve(ctx, []model.Interval{iv}, nil, func(ctx context.Context) error {
		if err := s.bookings.Create(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		// параллельный повтор той же оплаты мог уже занять этот слот
		if in.PaymentSessionID != nil {
			existing, getErr := s.bookings.GetByPaymentSessionID(ctx, *in.PaymentSessionID)
			if getErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, failure(s.logger, "create booking", err)
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", booking.UserID),
		zap.String("slot", iv.String()),
		zap.String("status", string(booking.Status)))
	return booking, nil
}

// RescheduleBooking переносит активную бронь. Сама бронь при проверке не учитывается.
func (s *BookingService) RescheduleBooking(ctx context.Context, bookingID int64, to SlotRequest) (*model.AdHocBooking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, failure(s.logger, "reschedule booking", fmt.Errorf("get booking: %w", err))
	}
	if current == nil {
		return nil, apperror.NotFound("booking")
	}
	if to.ResourceID == 0 {
		to.ResourceID = current.ResourceID
	}
	iv, err := to.interval()
	if err != nil {
		return nil, err
	}
	if !iv.StartsAt().After(s.clock.Now()) {
		return nil, apperror.Validation("cannot move a booking into the past")
	}

	ref := current.Ref()
	var updated *model.AdHocBooking
	err = s.slots.Reserve(ctx, []model.Interval{iv}, &ref, func(ctx context.Context) error {
		b, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if b == nil {
			return apperror.NotFound("booking")
		}
		if !b.IsActive() {
			return apperror.Validation("a cancelled booking cannot be rescheduled")
		}
		if err := s.bookings.UpdateSlot(ctx, bookingID, iv); err != nil {
			return fmt.Errorf("update booking slot: %w", err)
		}
		b.ResourceID, b.Date, b.StartTime, b.EndTime = iv.ResourceID, iv.Date, iv.Start, iv.End
		updated = b
		return nil
	})
	if err != nil {
		return nil, failure(s.logger, "reschedule booking", err)
	}

	s.logger.Info("Booking rescheduled",
		zap.Int64("booking_id", bookingID),
		zap.String("slot", iv.String()))
	return updated, nil
}

// ConfirmBooking переводит ожидающую бронь в подтверждённую
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID int64) error {
	return s.changeStatus(ctx, bookingID, model.BookingStatusConfirmed, func(b *model.AdHocBooking) error {
		if b.Status != model.BookingStatusPending {
			return apperror.Validation("only a pending booking can be confirmed")
		}
		return nil
	})
}

// CancelBooking отменяет бронь и освобождает корт
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64) error {
	return s.changeStatus(ctx, bookingID, model.BookingStatusCancelled, func(b *model.AdHocBooking) error {
		if !b.IsActive() {
			return apperror.ErrCannotCancel
		}
		return nil
	})
}

func (s *BookingService) changeStatus(ctx context.Context, bookingID int64, status model.BookingStatus, allowed func(*model.AdHocBooking) error) error {
	now := s.clock.Now()
	err := s.tx.WithTransaction(ctx, base.ReadCommitted, func(ctx context.Context) error {
		b, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if b == nil {
			return apperror.NotFound("booking")
		}
		if err := allowed(b); err != nil {
			return err
		}
		if err := s.bookings.UpdateStatus(ctx, bookingID, status, now); err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		return nil
	})
	if err != nil {
		return failure(s.logger, "update booking status", err)
	}

	s.logger.Info("Booking status changed",
		zap.Int64("booking_id", bookingID),
		zap.String("status", string(status)))
	return nil
}

// CreateRecurringInput еженедельная серия на один или несколько дней недели
type CreateRecurringInput struct {
	UserID     int64
	ResourceID int64
	Weekdays   []time.Weekday
	Start      model.TimeOfDay
	End        model.TimeOfDay
	StartDate  time.Time
	EndDate    *time.Time
}

// CreateRecurringBooking создаёт по записи на каждый день недели с общим GroupID.
// Серия проверяется на пересечения по всем своим датам, включая бессрочный хвост.
func (s *BookingService) CreateRecurringBooking(ctx context.Context, in CreateRecurringInput) ([]*model.RecurringBooking, error) {
	weekdays, err := normalizeWeekdays(in.Weekdays)
	if err != nil {
		return nil, err
	}
	if in.UserID <= 0 {
		return nil, apperror.Validation("userId is required")
	}
	if in.StartDate.IsZero() {
		return nil, apperror.Validation("startDate is required")
	}
	startDate := clock.TruncateDate(in.StartDate)
	var endDate *time.Time
	if in.EndDate != nil {
		d := clock.TruncateDate(*in.EndDate)
		if d.Before(startDate) {
			return nil, apperror.Validation("endDate must not be before startDate")
		}
		endDate = &d
	}

	groupID := uuid.New()
	series := make([]*model.RecurringBooking, 0, len(weekdays))
	slots := make([]model.WeeklySlot, 0, len(weekdays))
	occurs := false
	for _, wd := range weekdays {
		rb := &model.RecurringBooking{
			GroupID:    groupID,
			UserID:     in.UserID,
			ResourceID: in.ResourceID,
			DayOfWeek:  wd,
			StartTime:  in.Start,
			EndTime:    in.End,
			StartDate:  startDate,
			EndDate:    endDate,
			IsActive:   true,
		}
		slot := rb.Weekly()
		if err := slot.Validate(); err != nil {
			return nil, err
		}
		if _, ok := slot.FirstDate(); ok {
			occurs = true
		}
		slots = append(slots, slot)
		series = append(series, rb)
	}
	if !occurs {
		return nil, apperror.Validation("the date range contains none of the requested weekdays")
	}

	err = s.slots.ReserveWeekly(ctx, slots, nil, func(ctx context.Context) error {
		for _, rb := range series {
			if err := s.recurring.Create(ctx, rb); err != nil {
				return fmt.Errorf("create recurring booking: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, failure(s.logger, "create recurring booking", err)
	}

	s.logger.Info("Recurring booking created",
		zap.String("group_id", groupID.String()),
		zap.Int64("user_id", in.UserID),
		zap.Int64("resource_id", in.ResourceID),
		zap.Int("weekdays", len(series)),
		zap.Bool("open_ended", endDate == nil))
	return series, nil
}

// CancelRecurringBooking деактивирует серию на один день недели
func (s *BookingService) CancelRecurringBooking(ctx context.Context, id int64) error {
	rb, err := s.recurring.GetByID(ctx, id)
	if err != nil {
		return failure(s.logger, "cancel recurring booking", fmt.Errorf("get recurring booking: %w", err))
	}
	if rb == nil {
		return apperror.NotFound("recurring booking")
	}
	if !rb.IsActive {
		return apperror.ErrCannotCancel
	}
	if err := s.recurring.Deactivate(ctx, id); err != nil {
		return failure(s.logger, "cancel recurring booking", fmt.Errorf("deactivate recurring booking: %w", err))
	}

	s.logger.Info("Recurring booking deactivated", zap.Int64("recurring_id", id))
	return nil
}

func normalizeWeekdays(in []time.Weekday) ([]time.Weekday, error) {
	if len(in) == 0 {
		return nil, apperror.Validation("at least one weekday is required")
	}
	seen := make(map[time.Weekday]bool, len(in))
	out := make([]time.Weekday, 0, len(in))
	for _, wd := range in {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, apperror.Validation("invalid weekday %d", int(wd))
		}
		if seen[wd] {
			continue
		}
		seen[wd] = true
		out = append(out, wd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
