package base

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Isolation уровень изоляции транзакции
type Isolation int

const (
	ReadCommitted Isolation = iota
	Serializable
)

func (i Isolation) String() string {
	if i == Serializable {
		return "serializable"
	}
	return "read committed"
}

type txKey struct{}

// WithTx кладёт транзакцию в контекст
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext достаёт транзакцию из контекста
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// IsInTransaction выполняется ли код внутри транзакции
func IsInTransaction(ctx context.Context) bool {
	_, ok := TxFromContext(ctx)
	return ok
}

// TxManager открывает транзакции над пулом и повторяет их при конфликте сериализации
type TxManager struct {
	pool       *pgxpool.Pool
	maxRetries uint64
	logger     *zap.Logger
}

// NewTxManager создаёт менеджер транзакций
func NewTxManager(pool *pgxpool.Pool, maxRetries uint64, logger *zap.Logger) *TxManager {
	return &TxManager{
		pool:       pool,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// WithTransaction выполняет fn в одной транзакции. Репозитории внутри fn
// берут транзакцию из контекста. Ошибка fn откатывает все записи.
// Вложенный вызов присоединяется к внешней транзакции.
func (m *TxManager) WithTransaction(ctx context.Context, iso Isolation, fn func(ctx context.Context) error) error {
	if IsInTransaction(ctx) {
		return fn(ctx)
	}

	backoff := retry.WithMaxRetries(m.maxRetries, retry.NewExponential(20*time.Millisecond))
	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := m.run(ctx, iso, fn)
		if errors.Is(err, ErrSerialization) {
			m.logger.Warn("Transaction serialization conflict, retrying",
				zap.Int("attempt", attempt),
				zap.String("isolation", iso.String()),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
}

func (m *TxManager) run(ctx context.Context, iso Isolation, fn func(ctx context.Context) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if iso == Serializable {
		opts.IsoLevel = pgx.Serializable
	}

	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WithTx(ctx, tx)); err != nil {
		return MapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", MapError(err))
	}
	return nil
}
