package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/takax-network/takax/internal/domain"
)

// BotConfig configures the channel bot.
type BotConfig struct {
	Token    string
	Endpoint string // Bot API endpoint format; empty uses api.telegram.org
	Timeout  time.Duration
}

// Bot sends channel messages through the Telegram Bot API.
type Bot struct {
	api *tgbotapi.BotAPI
	log *logrus.Entry
}

var _ domain.ChatSender = (*Bot)(nil)

// NewBot connects to the Bot API and verifies the token with getMe.
func NewBot(cfg BotConfig, log *logrus.Entry) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token not configured")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	log.WithField("bot", api.Self.UserName).Info("telegram bot connected")
	return &Bot{api: api, log: log}, nil
}

// Username is the bot's @handle without the @.
func (b *Bot) Username() string { return b.api.Self.UserName }

// SendMessage posts text to chatID.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}
