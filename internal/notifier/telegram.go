// Package notifier sends trade notifications and answers chat commands over Telegram.
package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"PresenceTrader/internal/executor"
	"PresenceTrader/internal/model"
)

var log = logrus.WithField("component", "notifier")

// TelegramNotifier sends HTML messages to a single chat via the Telegram Bot API.
type TelegramNotifier struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	maxRetries int
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 30 * time.Second, Transport: transport}
	return newTelegramNotifier(botToken, chatID, tgbotapi.APIEndpoint, client)
}

func newTelegramNotifier(botToken, chatID, endpoint string, client tgbotapi.HTTPClient) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Infof("telegram bot authorised as @%s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: id, maxRetries: 2}, nil
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	return t.sendTo(t.chatID, text)
}

func (t *TelegramNotifier) sendTo(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Warnf("telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// NotifyExecution reports a submitted or rejected order.
func (t *TelegramNotifier) NotifyExecution(exec executor.Execution) error {
	return t.Send(FormatExecution(exec))
}

// NotifyError reports the first error of a failure streak.
func (t *TelegramNotifier) NotifyError(err error) error {
	return t.Send(FormatError(err))
}

// NotifySummary sends the periodic account summary, retrying on failure.
func (t *TelegramNotifier) NotifySummary(ctx context.Context, acct model.AccountSnapshot, holdings []model.Holding) error {
	return t.SendWithRetry(ctx, FormatSummary(acct, holdings), t.maxRetries)
}
