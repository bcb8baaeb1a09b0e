package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

// ReplacementService запись на занятие за кредит и её отмена
type ReplacementService struct {
	tx           Transactor
	ledger       *CreditLedger
	credits      CreditRepository
	absences     AbsenceRepository
	sessions     LessonSessionRepository
	replacements ReplacementBookingRepository
	seats        seats
	clock        clock.Clock
	policy       Policy
	dispatch     *dispatcher
	metrics      Metrics
	logger       *zap.Logger
}

func NewReplacementService(
	tx Transactor,
	ledger *CreditLedger,
	credits CreditRepository,
	absences AbsenceRepository,
	sessions LessonSessionRepository,
	replacements ReplacementBookingRepository,
	catalog LessonTypeCatalog,
	clk clock.Clock,
	policy Policy,
	notifier Notifier,
	metrics Metrics,
	logger *zap.Logger,
) *ReplacementService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ReplacementService{
		tx:           tx,
		ledger:       ledger,
		credits:      credits,
		absences:     absences,
		sessions:     sessions,
		replacements: replacements,
		seats:        seats{sessions: sessions, replacements: replacements, catalog: catalog},
		clock:        clk,
		policy:       policy,
		dispatch:     newDispatcher(notifier, logger),
		metrics:      metrics,
		logger:       logger,
	}
}

// Book погашает кредит местом в занятии того же вида, что и пропущенное.
// Все проверки повторяются в сериализуемой транзакции перед записью.
func (s *ReplacementService) Book(ctx context.Context, userID, creditID, sessionID int64) (*model.ReplacementBooking, error) {
	now := s.clock.Now()

	if _, err := s.validate(ctx, userID, creditID, sessionID); err != nil {
		return nil, s.reject(userID, creditID, sessionID, err)
	}

	var (
		booking *model.ReplacementBooking
		session *model.LessonSession
	)
	err := s.tx.WithTransaction(ctx, base.Serializable, func(ctx context.Context) error {
		var err error
		session, err = s.validate(ctx, userID, creditID, sessionID)
		if err != nil {
			return err
		}

		booking = &model.ReplacementBooking{
			UserID:          userID,
			CreditID:        creditID,
			LessonSessionID: sessionID,
			Status:          model.ReplacementStatusConfirmed,
		}
		if err := s.replacements.Create(ctx, booking); err != nil {
			switch {
			case base.IsDuplicate(err, base.ConstraintReplacementCredit):
				return apperror.ErrCreditUnavailable
			case base.IsDuplicate(err, base.ConstraintReplacementUserSession):
				return apperror.ErrAlreadyBooked
			}
			return fmt.Errorf("create replacement booking: %w", err)
		}
		return s.ledger.Redeem(ctx, creditID)
	})
	if err != nil {
		return nil, s.reject(userID, creditID, sessionID, err)
	}

	s.metrics.ReplacementBooked("confirmed")
	s.logger.Info("Replacement booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", userID),
		zap.Int64("credit_id", creditID),
		zap.Int64("session_id", sessionID),
		zap.Time("at", now))
	s.dispatch.send(ctx, replacementBookedNotice(booking, session))
	return booking, nil
}

func (s *ReplacementService) reject(userID, creditID, sessionID int64, err error) error {
	err = failure(s.logger, "book replacement", err)
	s.metrics.ReplacementBooked(string(apperror.CodeOf(err)))
	if apperror.KindOf(err) != apperror.KindInternal {
		s.logger.Warn("Replacement booking rejected",
			zap.Int64("user_id", userID),
			zap.Int64("credit_id", creditID),
			zap.Int64("session_id", sessionID),
			zap.String("code", string(apperror.CodeOf(err))))
	}
	return err
}

// validate проверяет кредит, целевое занятие и наличие места
func (s *ReplacementService) validate(ctx context.Context, userID, creditID, sessionID int64) (*model.LessonSession, error) {
	now := s.clock.Now()

	credit, err := s.credits.GetByID(ctx, creditID)
	if err != nil {
		return nil, fmt.Errorf("get credit: %w", err)
	}
	if credit == nil || credit.UserID != userID {
		return nil, apperror.NotFound("credit")
	}
	if !credit.IsAvailable(now) {
		return nil, apperror.ErrCreditUnavailable
	}

	origin, err := s.originSession(ctx, credit)
	if err != nil {
		return nil, err
	}

	target, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if target == nil {
		return nil, apperror.NotFound("lesson session")
	}
	if !target.IsScheduled() || !target.StartsAt().After(now) {
		return nil, apperror.ErrSessionNotBookable
	}
	if target.LessonTypeSlug != origin.LessonTypeSlug {
		return nil, apperror.ErrLessonTypeMismatch
	}

	if err := s.seats.ensureFree(ctx, target, userID); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *ReplacementService) originSession(ctx context.Context, credit *model.ReplacementCredit) (*model.LessonSession, error) {
	a, err := s.absences.GetByID(ctx, credit.AbsenceID)
	if err != nil {
		return nil, fmt.Errorf("get absence: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("absence %d of credit %d: %w", credit.AbsenceID, credit.ID, base.ErrNotFound)
	}
	origin, err := s.sessions.GetByID(ctx, a.LessonSessionID)
	if err != nil {
		return nil, fmt.Errorf("get origin session: %w", err)
	}
	if origin == nil {
		return nil, fmt.Errorf("origin session %d: %w", a.LessonSessionID, base.ErrNotFound)
	}
	return origin, nil
}

// CancelResult итог отмены: вернулся ли кредит
type CancelResult struct {
	Booking  *model.ReplacementBooking
	Refunded bool
}

// Cancel отменяет подтверждённую запись. Кредит возвращается, только если
// до начала занятия больше RefundCutoff и сам кредит не истёк.
func (s *ReplacementService) Cancel(ctx context.Context, bookingID int64) (*CancelResult, error) {
	now := s.clock.Now()
	result := &CancelResult{}

	err := s.tx.WithTransaction(ctx, base.Serializable, func(ctx context.Context) error {
		result.Refunded = false

		booking, err := s.replacements.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get replacement booking: %w", err)
		}
		if booking == nil {
			return apperror.NotFound("replacement booking")
		}
		if !booking.CanBeCancelled() {
			return apperror.ErrCannotCancel
		}

		session, err := s.sessions.GetByID(ctx, booking.LessonSessionID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if session == nil {
			return fmt.Errorf("session %d: %w", booking.LessonSessionID, base.ErrNotFound)
		}
		credit, err := s.credits.GetByID(ctx, booking.CreditID)
		if err != nil {
			return fmt.Errorf("get credit: %w", err)
		}
		if credit == nil {
			return fmt.Errorf("credit %d: %w", booking.CreditID, base.ErrNotFound)
		}

		if err := s.replacements.UpdateStatus(ctx, booking.ID, model.ReplacementStatusCancelled, now); err != nil {
			return fmt.Errorf("cancel replacement booking: %w", err)
		}
		booking.Status = model.ReplacementStatusCancelled
		booking.CancelledAt = &now
		result.Booking = booking

		hoursUntil := session.StartsAt().Sub(now).Hours()
		if hoursUntil > s.policy.RefundCutoff.Hours() && !credit.IsExpired(now) {
			if err := s.ledger.Refund(ctx, credit.ID); err != nil {
				return err
			}
			result.Refunded = true
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrCannotCancel) {
			s.logger.Warn("Replacement booking is not cancellable", zap.Int64("booking_id", bookingID))
		}
		return nil, failure(s.logger, "cancel replacement", err)
	}

	s.metrics.ReplacementBooked("cancelled")
	s.logger.Info("Replacement booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Bool("refunded", result.Refunded))
	s.dispatch.send(ctx, replacementCancelledNotice(result.Booking, result.Refunded))
	return result, nil
}
