package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/absence"
	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

// AbsenceService подача и разбор заявок о пропуске
type AbsenceService struct {
	tx       Transactor
	absences AbsenceRepository
	sessions LessonSessionRepository
	ledger   *CreditLedger
	clock    clock.Clock
	dispatch *dispatcher
	logger   *zap.Logger
}

func NewAbsenceService(
	tx Transactor,
	absences AbsenceRepository,
	sessions LessonSessionRepository,
	ledger *CreditLedger,
	clk clock.Clock,
	notifier Notifier,
	logger *zap.Logger,
) *AbsenceService {
	return &AbsenceService{
		tx:       tx,
		absences: absences,
		sessions: sessions,
		ledger:   ledger,
		clock:    clk,
		dispatch: newDispatcher(notifier, logger),
		logger:   logger,
	}
}

// AbsenceResult заявка и выданный по ней кредит (nil, если кредита нет)
type AbsenceResult struct {
	Absence *model.Absence
	Credit  *model.ReplacementCredit
}

// SubmitAbsence регистрирует пропуск. Категория считается по календарным дням
// UTC+8 до занятия; при APPLY кредит создаётся в той же транзакции.
func (s *AbsenceService) SubmitAbsence(ctx context.Context, userID, sessionID int64, medical bool, reason string) (*AbsenceResult, error) {
	now := s.clock.Now()
	reason = strings.TrimSpace(reason)
	if medical && reason == "" {
		return nil, apperror.Validation("reason is required for a medical absence")
	}

	if _, err := s.checkSubmission(ctx, userID, sessionID); err != nil {
		return nil, s.rejected(userID, sessionID, err)
	}

	result := &AbsenceResult{}
	err := s.tx.WithTransaction(ctx, base.Serializable, func(ctx context.Context) error {
		result.Credit = nil
		// категория и дата берутся из занятия, прочитанного в транзакции
		session, err := s.checkSubmission(ctx, userID, sessionID)
		if err != nil {
			return err
		}

		typ, status := absence.Decide(now, session.StartsAt(), medical)
		a := &model.Absence{
			UserID:          userID,
			LessonSessionID: sessionID,
			Type:            typ,
			Status:          status,
			Reason:          reason,
			AppliedAt:       now,
			LessonDate:      session.Date,
			CreditAwarded:   absence.GrantsCredit(status),
		}
		if err := s.absences.Create(ctx, a); err != nil {
			if base.IsDuplicate(err, base.ConstraintAbsenceUserSession) {
				return apperror.ErrDuplicateAbsence
			}
			return fmt.Errorf("create absence: %w", err)
		}
		result.Absence = a

		if a.CreditAwarded {
			credit, err := s.ledger.Issue(ctx, userID, a.ID, now)
			if err != nil {
				return err
			}
			result.Credit = credit
		}
		return nil
	})
	if err != nil {
		return nil, s.rejected(userID, sessionID, err)
	}

	s.logger.Info("Absence submitted",
		zap.Int64("absence_id", result.Absence.ID),
		zap.Int64("user_id", userID),
		zap.Int64("session_id", sessionID),
		zap.String("type", string(result.Absence.Type)),
		zap.String("status", string(result.Absence.Status)))

	s.dispatch.send(ctx, absenceNotice(result.Absence))
	if result.Credit != nil {
		s.dispatch.send(ctx, creditIssuedNotice(result.Credit))
	}
	return result, nil
}

// checkSubmission предусловия подачи: запись на занятие, занятие в будущем, заявки ещё нет
func (s *AbsenceService) checkSubmission(ctx context.Context, userID, sessionID int64) (*model.LessonSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, apperror.NotFound("lesson session")
	}

	enrolled, err := s.sessions.IsEnrolled(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, apperror.ErrNotEnrolled
	}
	if !session.StartsAt().After(s.clock.Now()) {
		return nil, apperror.ErrSessionInPast
	}

	existing, err := s.absences.GetByUserSession(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get absence: %w", err)
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateAbsence
	}
	return session, nil
}

func (s *AbsenceService) rejected(userID, sessionID int64, err error) error {
	err = failure(s.logger, "submit absence", err)
	if apperror.KindOf(err) != apperror.KindInternal {
		s.logger.Warn("Absence rejected",
			zap.Int64("user_id", userID),
			zap.Int64("session_id", sessionID),
			zap.String("code", string(apperror.CodeOf(err))))
	}
	return err
}

// ReviewAbsence решение администратора. Разбирается только заявка в
// статусе pending_review и только один раз.
func (s *AbsenceService) ReviewAbsence(ctx context.Context, absenceID, reviewerID int64, creditAwarded bool, notes string) (*AbsenceResult, error) {
	now := s.clock.Now()
	result := &AbsenceResult{}

	err := s.tx.WithTransaction(ctx, base.Serializable, func(ctx context.Context) error {
		result.Credit = nil

		a, err := s.absences.GetByID(ctx, absenceID)
		if err != nil {
			return fmt.Errorf("get absence: %w", err)
		}
		if a == nil {
			return apperror.NotFound("absence")
		}
		if !a.AwaitsReview() {
			return apperror.ErrAlreadyReviewed
		}

		a.Status = model.AbsenceStatusReviewed
		a.CreditAwarded = creditAwarded
		a.ReviewedBy = &reviewerID
		a.ReviewedAt = &now
		if notes = strings.TrimSpace(notes); notes != "" {
			a.AdminNotes = &notes
		}
		if err := s.absences.SaveReview(ctx, a); err != nil {
			return fmt.Errorf("save review: %w", err)
		}
		result.Absence = a

		if creditAwarded {
			credit, err := s.ledger.Issue(ctx, a.UserID, a.ID, now)
			if err != nil {
				return err
			}
			result.Credit = credit
		}
		return nil
	})
	if err != nil {
		return nil, failure(s.logger, "review absence", err)
	}

	s.logger.Info("Absence reviewed",
		zap.Int64("absence_id", absenceID),
		zap.Int64("reviewed_by", reviewerID),
		zap.Bool("credit_awarded", result.Absence.CreditAwarded))

	s.dispatch.send(ctx, absenceNotice(result.Absence))
	if result.Credit != nil {
		s.dispatch.send(ctx, creditIssuedNotice(result.Credit))
	}
	return result, nil
}
