package base

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	dup := MapError(&pgconn.PgError{Code: "23505", ConstraintName: "replacement_bookings_credit_id_key"})
	assert.ErrorIs(t, dup, ErrDuplicate)
	assert.Contains(t, dup.Error(), "replacement_bookings_credit_id_key")

	ser := MapError(fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40001", Message: "could not serialize access"}))
	assert.ErrorIs(t, ser, ErrSerialization)

	other := errors.New("boom")
	assert.Same(t, other, MapError(other))
}

func TestBuilderUsesDollarPlaceholders(t *testing.T) {
	sql, args, err := ForUpdate(context.Background(), Builder.Select("id").From("bookings").Where("resource_id = ?", 3)).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM bookings WHERE resource_id = $1", sql)
	assert.Equal(t, []any{3}, args)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsInTransaction(context.Background()))
}
