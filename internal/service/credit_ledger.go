package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

// Policy сроки жизни кредита и правило возврата
type Policy struct {
	CreditValidityDays int           // срок действия кредита в календарных днях
	RefundCutoff       time.Duration // отмена раньше чем за это время возвращает кредит
	ExpiringWindow     time.Duration // окно уведомления "скоро истекает"
}

// DefaultPolicy 30 дней, 24 часа, 3 дня
func DefaultPolicy() Policy {
	return Policy{
		CreditValidityDays: 30,
		RefundCutoff:       24 * time.Hour,
		ExpiringWindow:     3 * 24 * time.Hour,
	}
}

// CreditLedger выдача, погашение и возврат кредитов на замену
type CreditLedger struct {
	tx            Transactor
	credits       CreditRepository
	notifications NotificationLog
	clock         clock.Clock
	policy        Policy
	dispatch      *dispatcher
	metrics       Metrics
	logger        *zap.Logger
}

func NewCreditLedger(
	tx Transactor,
	credits CreditRepository,
	notifications NotificationLog,
	clk clock.Clock,
	policy Policy,
	notifier Notifier,
	metrics Metrics,
	logger *zap.Logger,
) *CreditLedger {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &CreditLedger{
		tx:            tx,
		credits:       credits,
		notifications: notifications,
		clock:         clk,
		policy:        policy,
		dispatch:      newDispatcher(notifier, logger),
		metrics:       metrics,
		logger:        logger,
	}
}

// ExpiresAt срок действия кредита, выданного в момент from
func (l *CreditLedger) ExpiresAt(from time.Time) time.Time {
	return clock.AddCalendarDays(from, l.policy.CreditValidityDays)
}

// Issue создаёт кредит. Вызывается внутри транзакции, создающей основание кредита,
// поэтому сам транзакцию не открывает и уведомление не отправляет.
func (l *CreditLedger) Issue(ctx context.Context, userID, absenceID int64, from time.Time) (*model.ReplacementCredit, error) {
	credit := &model.ReplacementCredit{
		UserID:    userID,
		AbsenceID: absenceID,
		ExpiresAt: l.ExpiresAt(from),
	}
	if err := l.credits.Create(ctx, credit); err != nil {
		return nil, fmt.Errorf("create credit: %w", err)
	}

	l.metrics.CreditEvent("issued")
	l.logger.Info("Replacement credit issued",
		zap.Int64("credit_id", credit.ID),
		zap.Int64("user_id", userID),
		zap.Int64("absence_id", absenceID),
		zap.Time("expires_at", credit.ExpiresAt))
	return credit, nil
}

// Redeem помечает кредит использованным, если он всё ещё доступен
func (l *CreditLedger) Redeem(ctx context.Context, creditID int64) error {
	now := l.clock.Now()
	err := l.tx.WithTransaction(ctx, base.Serializable, func(ctx context.Context) error {
		ok, err := l.credits.MarkUsed(ctx, creditID, now)
		if err != nil {
			return fmt.Errorf("mark credit used: %w", err)
		}
		if !ok {
			return apperror.ErrCreditUnavailable
		}
		return nil
	})
	if err != nil {
		return failure(l.logger, "redeem credit", err)
	}

	l.metrics.CreditEvent("redeemed")
	return nil
}

// Refund возвращает кредит в доступное состояние
func (l *CreditLedger) Refund(ctx context.Context, creditID int64) error {
	if err := l.credits.ClearUsed(ctx, creditID); err != nil {
		return failure(l.logger, "refund credit", fmt.Errorf("clear credit usage: %w", err))
	}

	l.metrics.CreditEvent("refunded")
	l.logger.Info("Replacement credit refunded", zap.Int64("credit_id", creditID))
	return nil
}

// ListAvailable неиспользованные и не истёкшие кредиты пользователя, ближайшие к истечению первыми
func (l *CreditLedger) ListAvailable(ctx context.Context, userID int64) ([]*model.ReplacementCredit, error) {
	credits, err := l.credits.ListAvailableByUser(ctx, userID, l.clock.Now())
	if err != nil {
		return nil, failure(l.logger, "list credits", fmt.Errorf("list available credits: %w", err))
	}
	return credits, nil
}

// SweepExpiring уведомляет один раз о каждом неиспользованном кредите,
// истекающем в окне (now, now+ExpiringWindow]. Возвращает число отправленных.
func (l *CreditLedger) SweepExpiring(ctx context.Context) (int, error) {
	now := l.clock.Now()
	credits, err := l.credits.ListExpiringBetween(ctx, now, now.Add(l.policy.ExpiringWindow))
	if err != nil {
		return 0, failure(l.logger, "sweep credits", fmt.Errorf("list expiring credits: %w", err))
	}

	sent := 0
	for _, c := range credits {
		fresh, err := l.notifications.MarkSent(ctx, c.ID, model.NotificationCreditExpiring, now)
		if err != nil {
			l.logger.Error("Failed to record expiring notification",
				zap.Int64("credit_id", c.ID),
				zap.Error(err))
			continue
		}
		if !fresh {
			continue
		}
		sent += l.dispatch.send(ctx, creditExpiringNotice(c))
	}

	l.metrics.SweepNotified(sent)
	if sent > 0 {
		l.logger.Info("Expiring credit notifications sent",
			zap.Int("sent", sent),
			zap.Int("candidates", len(credits)))
	}
	return sent, nil
}
