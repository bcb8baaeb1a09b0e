package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Freeeeeet/court_scheduler/internal/apperror"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

// failure приводит ошибку к доменной: доменные проходят как есть,
// исчерпанные повторы сериализации становятся ConcurrentUpdate,
// остальное логируется и скрывается за Internal.
func failure(logger *zap.Logger, op string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, base.ErrSerialization) {
		logger.Warn("Concurrent update", zap.String("op", op), zap.Error(err))
		return apperror.ErrConcurrentUpdate.With(err)
	}
	logger.Error("Operation failed", zap.String("op", op), zap.Error(err))
	return apperror.Internal(err)
}
