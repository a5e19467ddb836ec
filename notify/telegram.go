package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects longer messages
const maxMessageLen = 4096

// Notifier delivers a run report somewhere a human will see it
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Nop drops every message
type Nop struct{}

// Notify implements Notifier
func (Nop) Notify(ctx context.Context, title, body string) error { return nil }

// Telegram posts reports to a single chat
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects to the Bot API with token
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, chatID, tgbotapi.APIEndpoint)
}

// NewTelegramWithEndpoint is NewTelegram against a custom Bot API server
func NewTelegramWithEndpoint(token string, chatID int64, endpoint string) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram token and chat id are both required")
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	slog.Debug("authorized telegram bot", "account", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Notify implements Notifier
func (t *Telegram) Notify(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, part := range splitMessage(FormatMessage(title, body), maxMessageLen) {
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
	}
	return nil
}

// FormatMessage renders a bold title over an escaped body for HTML parse mode
func FormatMessage(title, body string) string {
	return fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(body))
}

// splitMessage splits a message into chunks of at most maxLen runes,
// breaking on newlines where possible
func splitMessage(text string, maxLen int) []string {
	if len([]rune(text)) <= maxLen {
		return []string{text}
	}

	var parts []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			parts = append(parts, strings.TrimRight(string(current), "\n"))
			current = current[:0]
		}
	}

	for _, line := range strings.Split(text, "\n") {
		r := []rune(line)
		if len(current)+len(r)+1 > maxLen {
			flush()
		}
		// a single line longer than a message is cut hard
		for len(r) > maxLen {
			parts = append(parts, string(r[:maxLen]))
			r = r[maxLen:]
		}
		current = append(current, r...)
		current = append(current, '\n')
	}
	flush()

	return parts
}
