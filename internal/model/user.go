package model

import "time"

type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	TelegramID *int64    `json:"telegram_id"` // чат для уведомлений, nil если не привязан
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
}
