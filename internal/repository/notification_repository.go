package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

// NotificationRepository журнал уведомлений по кредитам, уникальный по (credit_id, notification_type)
type NotificationRepository struct {
	*base.Repository
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{Repository: base.NewRepository(pool)}
}

// MarkSent записывает факт отправки; false если запись уже была
func (r *NotificationRepository) MarkSent(ctx context.Context, creditID int64, kind model.NotificationType, at time.Time) (bool, error) {
	q := base.Builder.Insert("credit_notifications").
		Columns("credit_id", "notification_type", "sent_at").
		Values(creditID, kind, at).
		Suffix("ON CONFLICT (credit_id, notification_type) DO NOTHING")

	affected, err := r.ExecAffected(ctx, q)
	if err != nil {
		return false, fmt.Errorf("mark notification sent: %w", err)
	}
	return affected == 1, nil
}
