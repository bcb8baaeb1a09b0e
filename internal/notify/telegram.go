// Package notify доставляет уведомления пользователям.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ErrNoChat пользователь не привязал Telegram
var ErrNoChat = errors.New("user has no telegram chat")

// MessageSender часть *bot.Bot, нужная для отправки
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// UserLookup находит чат пользователя
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type Telegram struct {
	sender  MessageSender
	users   UserLookup
	baseURL string
	logger  *zap.Logger
}

// NewTelegram создаёт sink. baseURL добавляется к относительным ссылкам, может быть пустым.
func NewTelegram(sender MessageSender, users UserLookup, baseURL string, logger *zap.Logger) *Telegram {
	return &Telegram{
		sender:  sender,
		users:   users,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (t *Telegram) Notify(ctx context.Context, n model.Notification) error {
	user, err := t.users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", n.UserID, err)
	}
	if user == nil || user.TelegramID == nil {
		t.logger.Debug("Skipping notification, no telegram chat",
			zap.Int64("user_id", n.UserID),
			zap.String("type", string(n.Type)))
		return ErrNoChat
	}

	_, err = t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    *user.TelegramID,
		Text:      t.render(n),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func (t *Telegram) render(n model.Notification) string {
	var sb strings.Builder
	sb.WriteString("<b>")
	sb.WriteString(html.EscapeString(n.Title))
	sb.WriteString("</b>\n\n")
	sb.WriteString(html.EscapeString(n.Message))
	if n.Link != "" {
		link := n.Link
		if t.baseURL != "" && strings.HasPrefix(link, "/") {
			link = t.baseURL + link
		}
		sb.WriteString("\n\n")
		sb.WriteString(html.EscapeString(link))
	}
	return sb.String()
}
