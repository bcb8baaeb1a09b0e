// Package schedule проверяет, что корт в каждый момент занят не более чем одной занятостью.
package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

// Source один независимый источник занятостей корта.
// CommitmentsWeekly может вернуть лишнее: точную проверку делает резолвер.
type Source interface {
	Kind() model.CommitmentKind
	CommitmentsOn(ctx context.Context, resourceID int64, date time.Time) ([]model.Commitment, error)
	CommitmentsWeekly(ctx context.Context, slot model.WeeklySlot) ([]model.Commitment, error)
}

// Transactor открывает транзакцию с заданной изоляцией
type Transactor interface {
	WithTransaction(ctx context.Context, iso base.Isolation, fn func(ctx context.Context) error) error
}

// Observer получает уведомление о каждом отказе из-за пересечения
type Observer interface {
	ConflictRejected(kind string)
}

// Conflict первая найденная занятость, пересекающаяся с кандидатом
type Conflict struct {
	Ref      model.CommitmentRef
	Interval model.Interval
}

// AsError превращает конфликт в доменную ошибку с указанием вида занятости
func (c *Conflict) AsError() *apperror.Error {
	return apperror.SlotConflict(string(c.Ref.Kind), c.Ref.Kind.Label(), c.Ref.ID)
}

// Resolver ищет пересечения по всем источникам
type Resolver struct {
	tx       Transactor
	sources  []Source
	observer Observer
	logger   *zap.Logger
}

// NewResolver создаёт резолвер. Порядок источников определяет, какой конфликт будет найден первым.
func NewResolver(tx Transactor, logger *zap.Logger, sources ...Source) *Resolver {
	return &Resolver{
		tx:      tx,
		sources: sources,
		logger:  logger,
	}
}

// WithObserver подключает сбор метрик отказов
func (r *Resolver) WithObserver(o Observer) *Resolver {
	r.observer = o
	return r
}

// FindConflict возвращает первую активную занятость, пересекающуюся с candidate.
// exclude пропускает саму переносимую занятость.
func (r *Resolver) FindConflict(ctx context.Context, candidate model.Interval, exclude *model.CommitmentRef) (*Conflict, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	for _, src := range r.sources {
		commitments, err := src.CommitmentsOn(ctx, candidate.ResourceID, candidate.Date)
		if err != nil {
			return nil, fmt.Errorf("list %s commitments: %w", src.Kind(), err)
		}

		for _, c := range commitments {
			if exclude != nil && c.Ref() == *exclude {
				continue
			}
			existing, ok := c.Occupies(candidate.Date)
			if !ok {
				continue
			}
			if existing.Overlaps(candidate) {
				return &Conflict{Ref: c.Ref(), Interval: existing}, nil
			}
		}
	}

	return nil, nil
}

// FindWeeklyConflict ищет занятость, пересекающуюся с серией хотя бы в одну дату окна.
// Для бессрочной серии проверяются все будущие даты, а не фиксированный горизонт.
func (r *Resolver) FindWeeklyConflict(ctx context.Context, slot model.WeeklySlot, exclude *model.CommitmentRef) (*Conflict, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	for _, src := range r.sources {
		commitments, err := src.CommitmentsWeekly(ctx, slot)
		if err != nil {
			return nil, fmt.Errorf("list %s commitments: %w", src.Kind(), err)
		}

		for _, c := range commitments {
			if exclude != nil && c.Ref() == *exclude {
				continue
			}
			// при одинаковом дне недели и времени достаточно первой общей даты
			date, ok := slot.CommonDate(c.Span())
			if !ok {
				continue
			}
			existing, ok := c.Occupies(date)
			if !ok {
				continue
			}
			if existing.Overlaps(slot.On(date)) {
				return &Conflict{Ref: c.Ref(), Interval: existing}, nil
			}
		}
	}

	return nil, nil
}

// Ensure возвращает SlotConflict, если интервал занят
func (r *Resolver) Ensure(ctx context.Context, candidate model.Interval, exclude *model.CommitmentRef) error {
	conflict, err := r.FindConflict(ctx, candidate, exclude)
	if err != nil {
		return err
	}
	return r.reject(ctx, candidate.String(), conflict)
}

// EnsureWeekly возвращает SlotConflict, если серия пересекается с занятостью
func (r *Resolver) EnsureWeekly(ctx context.Context, slot model.WeeklySlot, exclude *model.CommitmentRef) error {
	conflict, err := r.FindWeeklyConflict(ctx, slot, exclude)
	if err != nil {
		return err
	}
	return r.reject(ctx, slot.String(), conflict)
}

func (r *Resolver) reject(ctx context.Context, candidate string, conflict *Conflict) error {
	if conflict == nil {
		return nil
	}

	r.logger.Warn("Slot conflict",
		zap.String("candidate", candidate),
		zap.String("conflict", conflict.Ref.String()),
		zap.Bool("in_transaction", base.IsInTransaction(ctx)))
	if r.observer != nil {
		r.observer.ConflictRejected(string(conflict.Ref.Kind))
	}
	return conflict.AsError()
}

// Reserve проверяет интервалы без блокировок, затем в сериализуемой транзакции
// проверяет их повторно и только после этого вызывает write.
// Конфликт на второй проверке откатывает транзакцию с той же ошибкой.
func (r *Resolver) Reserve(ctx context.Context, candidates []model.Interval, exclude *model.CommitmentRef, write func(ctx context.Context) error) error {
	if len(candidates) == 0 {
		return apperror.Validation("no time slot requested")
	}

	return r.reserve(ctx, func(ctx context.Context) error {
		for _, c := range candidates {
			if err := r.Ensure(ctx, c, exclude); err != nil {
				return err
			}
		}
		return nil
	}, write)
}

// ReserveWeekly то же, что Reserve, для еженедельных серий
func (r *Resolver) ReserveWeekly(ctx context.Context, slots []model.WeeklySlot, exclude *model.CommitmentRef, write func(ctx context.Context) error) error {
	if len(slots) == 0 {
		return apperror.Validation("no time slot requested")
	}

	return r.reserve(ctx, func(ctx context.Context) error {
		for _, s := range slots {
			if err := r.EnsureWeekly(ctx, s, exclude); err != nil {
				return err
			}
		}
		return nil
	}, write)
}

func (r *Resolver) reserve(ctx context.Context, check, write func(ctx context.Context) error) error {
	if err := check(ctx); err != nil {
		return err
	}

	return r.tx.WithTransaction(ctx, base.Serializable, func(txCtx context.Context) error {
		if err := check(txCtx); err != nil {
			return err
		}
		return write(txCtx)
	})
}
