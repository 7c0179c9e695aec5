package notifications

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zatekoja/serviceportal/internal/domain/providers"
	"github.com/zatekoja/serviceportal/pkg/config"
)

// TelegramSender posts notifications to a single Telegram chat
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ providers.Notifier = (*TelegramSender)(nil)

// NewTelegramSender authenticates the bot token against the Bot API
func NewTelegramSender(cfg config.TelegramConfig) (*TelegramSender, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set")
	}

	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("connecting Telegram bot: %w", err)
	}

	return &TelegramSender{bot: bot, chatID: cfg.ChatID}, nil
}

// Notify sends text as a message to the configured chat
func (s *TelegramSender) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("sending Telegram message: %w", err)
	}
	return nil
}

// BotName is the username the token belongs to
func (s *TelegramSender) BotName() string {
	return s.bot.Self.UserName
}
