package base

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrDuplicate нарушение уникального ограничения
	ErrDuplicate = errors.New("repository: duplicate key")

	// ErrSerialization транзакция конфликтует с параллельной и должна быть повторена
	ErrSerialization = errors.New("repository: serialization failure")
)

// PostgreSQL коды ошибок, которые мы различаем
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Builder построитель запросов с плейсхолдерами $1, $2...
var Builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Querier общий интерфейс пула и транзакции
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository базовый репозиторий с общими методами
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый базовый репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool возвращает пул соединений
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// Executor возвращает транзакцию из контекста, если она есть, иначе пул
func (r *Repository) Executor(ctx context.Context) Querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.pool
}

// QueryRow выполняет собранный squirrel-запрос и возвращает одну строку
func (r *Repository) QueryRow(ctx context.Context, q squirrel.Sqlizer) (pgx.Row, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.Executor(ctx).QueryRow(ctx, sql, args...), nil
}

// Query выполняет запрос и возвращает множество строк
func (r *Repository) Query(ctx context.Context, q squirrel.Sqlizer) (pgx.Rows, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := r.Executor(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, MapError(err)
	}
	return rows, nil
}

// ExecAffected выполняет команду и возвращает количество затронутых строк
func (r *Repository) ExecAffected(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	tag, err := r.Executor(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, MapError(err)
	}
	return tag.RowsAffected(), nil
}

// ForUpdate добавляет блокировку строк, если запрос идёт внутри транзакции
func ForUpdate(ctx context.Context, q squirrel.SelectBuilder) squirrel.SelectBuilder {
	if IsInTransaction(ctx) {
		return q.Suffix("FOR UPDATE")
	}
	return q
}

// IsNotFound проверяет является ли ошибка "строка не найдена"
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// MapError переводит ошибки PostgreSQL в сентинелы репозитория
func MapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %s", ErrSerialization, pgErr.Message)
	}
	return err
}
