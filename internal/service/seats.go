package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/model"
)

// seats считает занятые места занятия: записанные ученики плюс подтверждённые замены
type seats struct {
	sessions     LessonSessionRepository
	replacements ReplacementBookingRepository
	catalog      LessonTypeCatalog
}

// ensureFree проверяет, что пользователь ещё не в занятии и место есть
func (s seats) ensureFree(ctx context.Context, session *model.LessonSession, userID int64) error {
	enrolled, err := s.sessions.IsEnrolled(ctx, session.ID, userID)
	if err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if enrolled {
		return apperror.ErrAlreadyBooked
	}
	booked, err := s.replacements.HasConfirmed(ctx, userID, session.ID)
	if err != nil {
		return fmt.Errorf("check replacement booking: %w", err)
	}
	if booked {
		return apperror.ErrAlreadyBooked
	}

	occupied, err := s.occupied(ctx, session.ID)
	if err != nil {
		return err
	}
	capacity, err := s.catalog.MaxStudentsFor(ctx, session.LessonTypeSlug)
	if err != nil {
		return fmt.Errorf("get max students: %w", err)
	}
	if occupied >= capacity {
		return apperror.ErrSlotFull
	}
	return nil
}

func (s seats) occupied(ctx context.Context, sessionID int64) (int, error) {
	enrolled, err := s.sessions.CountEnrolled(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	replacements, err := s.replacements.CountConfirmedBySession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("count replacement bookings: %w", err)
	}
	return enrolled + replacements, nil
}
