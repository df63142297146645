// Package notify pushes operational alerts to the admin Telegram chat:
// rejected stock transactions and out-of-tolerance measurements.
package notify

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier interface {
	Notify(text string)
}

type Telegram struct {
	api       *tgbotapi.BotAPI
	log       *slog.Logger
	adminChat int64
}

func NewTelegram(token string, adminChatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{api: api, log: log, adminChat: adminChatID}, nil
}

func (t *Telegram) Notify(text string) {
	msg := tgbotapi.NewMessage(t.adminChat, text)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send failed", "err", err)
	}
}

// Nop is used when alerting is disabled in config.
type Nop struct{}

func (Nop) Notify(string) {}
