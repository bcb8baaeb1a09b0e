package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	q := base.Builder.Select("id", "email", "name", "telegram_id", "is_admin", "created_at").
		From("users").
		Where(squirrel.Eq{"id": id})

	row, err := r.QueryRow(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	var user model.User
	err = row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.TelegramID,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by id: %w", base.MapError(err))
	}
	return &user, nil
}
