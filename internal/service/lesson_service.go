package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

// LessonService занятия на кортах и запись на них
type LessonService struct {
	tx           Transactor
	slots        SlotReserver
	sessions     LessonSessionRepository
	replacements ReplacementBookingRepository
	catalog      LessonTypeCatalog
	ledger       *CreditLedger
	credits      CreditRepository
	seats        seats
	clock        clock.Clock
	dispatch     *dispatcher
	logger       *zap.Logger
}

func NewLessonService(
	tx Transactor,
	slots SlotReserver,
	sessions LessonSessionRepository,
	replacements ReplacementBookingRepository,
	catalog LessonTypeCatalog,
	ledger *CreditLedger,
	credits CreditRepository,
	clk clock.Clock,
	notifier Notifier,
	logger *zap.Logger,
) *LessonService {
	return &LessonService{
		tx:           tx,
		slots:        slots,
		sessions:     sessions,
		replacements: replacements,
		catalog:      catalog,
		ledger:       ledger,
		credits:      credits,
		seats:        seats{sessions: sessions, replacements: replacements, catalog: catalog},
		clock:        clk,
		dispatch:     newDispatcher(notifier, logger),
		logger:       logger,
	}
}

// CreateSession планирует занятие, если корт свободен
func (s *LessonService) CreateSession(ctx context.Context, lessonTypeSlug string, slot SlotRequest) (*model.LessonSession, error) {
	lessonTypeSlug = strings.TrimSpace(lessonTypeSlug)
	if lessonTypeSlug == "" {
		return nil, apperror.Validation("lessonType is required")
	}
	iv, err := slot.interval()
	if err != nil {
		return nil, err
	}
	if !iv.StartsAt().After(s.clock.Now()) {
		return nil, apperror.Validation("cannot schedule a lesson in the past")
	}

	lt, err := s.catalog.GetBySlug(ctx, lessonTypeSlug)
	if err != nil {
		return nil, failure(s.logger, "create session", fmt.Errorf("get lesson type: %w", err))
	}
	if lt == nil {
		return nil, apperror.NotFound("lesson type")
	}
	if !lt.IsActive {
		return nil, apperror.Validation("lesson type %q is not active", lessonTypeSlug)
	}

	session := &model.LessonSession{
		LessonTypeSlug: lt.Slug,
		ResourceID:     iv.ResourceID,
		Date:           iv.Date,
		StartTime:      iv.Start,
		EndTime:        iv.End,
		Status:         model.SessionStatusScheduled,
	}
	err = s.slots.Reserve(ctx, []model.Interval{iv}, nil, func(ctx context.Context) error {
		if err := s.sessions.Create(ctx, session); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, failure(s.logger, "create session", err)
	}

	s.logger.Info("Lesson session created",
		zap.Int64("session_id", session.ID),
		zap.String("lesson_type", session.LessonTypeSlug),
		zap.String("slot", iv.String()))
	return session, nil
}

// RescheduleLesson переносит запланированное занятие
func (s *LessonService) RescheduleLesson(ctx context.Context, sessionID int64, to SlotRequest) (*model.LessonSession, error) {
	current, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, failure(s.logger, "reschedule lesson", fmt.Errorf("get session: %w", err))
	}
	if current == nil {
		return nil, apperror.NotFound("lesson session")
	}
	if to.ResourceID == 0 {
		to.ResourceID = current.ResourceID
	}
	iv, err := to.interval()
	if err != nil {
		return nil, err
	}
	if !iv.StartsAt().After(s.clock.Now()) {
		return nil, apperror.Validation("cannot move a lesson into the past")
	}

	ref := current.Ref()
	var updated *model.LessonSession
	err = s.slots.Reserve(ctx, []model.Interval{iv}, &ref, func(ctx context.Context) error {
		ls, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if ls == nil {
			return apperror.NotFound("lesson session")
		}
		if !ls.IsScheduled() {
			return apperror.ErrSessionNotBookable
		}
		if err := s.sessions.UpdateSlot(ctx, sessionID, iv); err != nil {
			return fmt.Errorf("update session slot: %w", err)
		}
		ls.ResourceID, ls.Date, ls.StartTime, ls.EndTime = iv.ResourceID, iv.Date, iv.Start, iv.End
		updated = ls
		return nil
	})
	if err != nil {
		return nil, failure(s.logger, "reschedule lesson", err)
	}

	s.logger.Info("Lesson session rescheduled",
		zap.Int64("session_id", sessionID),
		zap.String("slot", iv.String()))
	return updated, nil
}

// CancelSession отменяет занятие и освобождает корт. Подтверждённые замены
// отменяются в той же транзакции, неистёкшие кредиты возвращаются владельцам.
func (s *LessonService) CancelSession(ctx context.Context, sessionID int64) error {
	now := s.clock.Now()
	var notices []model.Notification

	err := s.tx.WithTransaction(ctx, base.Serializable, func(ctx context.Context) error {
		notices = notices[:0]

		ls, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if ls == nil {
			return apperror.NotFound("lesson session")
		}
		if !ls.IsScheduled() {
			return apperror.ErrCannotCancel
		}
		if err := s.sessions.UpdateStatus(ctx, sessionID, model.SessionStatusCancelled); err != nil {
			return fmt.Errorf("cancel session: %w", err)
		}

		bookings, err := s.replacements.ListConfirmedBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("list replacement bookings: %w", err)
		}
		for _, b := range bookings {
			refunded, err := s.releaseReplacement(ctx, b, now)
			if err != nil {
				return err
			}
			notices = append(notices, lessonCancelledNotice(b, refunded))
		}
		return nil
	})
	if err != nil {
		return failure(s.logger, "cancel session", err)
	}

	s.logger.Info("Lesson session cancelled",
		zap.Int64("session_id", sessionID),
		zap.Int("replacements_cancelled", len(notices)))
	s.dispatch.send(ctx, notices...)
	return nil
}

// releaseReplacement отменяет замену в отменённом занятии и возвращает кредит, если он не истёк
func (s *LessonService) releaseReplacement(ctx context.Context, b *model.ReplacementBooking, now time.Time) (bool, error) {
	if err := s.replacements.UpdateStatus(ctx, b.ID, model.ReplacementStatusCancelled, now); err != nil {
		return false, fmt.Errorf("cancel replacement booking: %w", err)
	}
	b.Status = model.ReplacementStatusCancelled
	b.CancelledAt = &now

	credit, err := s.credits.GetByID(ctx, b.CreditID)
	if err != nil {
		return false, fmt.Errorf("get credit: %w", err)
	}
	if credit == nil {
		return false, fmt.Errorf("credit %d: %w", b.CreditID, base.ErrNotFound)
	}
	if credit.IsExpired(now) {
		return false, nil
	}
	if err := s.ledger.Refund(ctx, credit.ID); err != nil {
		return false, err
	}
	return true, nil
}

// Enroll записывает ученика на занятие в пределах вместимости вида занятия
func (s *LessonService) Enroll(ctx context.Context, sessionID, userID int64) error {
	now := s.clock.Now()
	err := s.tx.WithTransaction(ctx, base.Serializable, func(ctx context.Context) error {
		ls, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if ls == nil {
			return apperror.NotFound("lesson session")
		}
		if !ls.IsScheduled() || !ls.StartsAt().After(now) {
			return apperror.ErrSessionNotBookable
		}
		if err := s.seats.ensureFree(ctx, ls, userID); err != nil {
			return err
		}
		if err := s.sessions.Enroll(ctx, sessionID, userID); err != nil {
			if base.IsDuplicate(err, base.ConstraintEnrollment) {
				return apperror.ErrAlreadyBooked
			}
			return fmt.Errorf("enroll: %w", err)
		}
		return nil
	})
	if err != nil {
		return failure(s.logger, "enroll", err)
	}

	s.logger.Info("Student enrolled",
		zap.Int64("session_id", sessionID),
		zap.Int64("user_id", userID))
	return nil
}
