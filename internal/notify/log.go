package notify

import (
	"context"

	"github.com/Freeeeeet/court_scheduler/internal/model"
	"go.uber.org/zap"
)

// Log пишет уведомления в лог. Используется, когда Telegram не настроен.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, n model.Notification) error {
	l.logger.Info("Notification",
		zap.Int64("user_id", n.UserID),
		zap.String("type", string(n.Type)),
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.String("link", n.Link))
	return nil
}
