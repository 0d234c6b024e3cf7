package notifier

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandHandler is called with a command name (without the slash) and
// returns the HTML reply, or "" for no reply.
type CommandHandler func(ctx context.Context, command string) string

// ListenForCommands long-polls for updates and answers commands sent from the
// configured chat. It blocks until ctx is cancelled.
func (t *TelegramNotifier) ListenForCommands(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			log.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() {
				continue
			}
			if msg.Chat == nil || msg.Chat.ID != t.chatID {
				log.Warnf("ignoring /%s from unknown chat", msg.Command())
				continue
			}
			log.Infof("received command: /%s", msg.Command())
			if reply := handler(ctx, msg.Command()); reply != "" {
				if err := t.sendTo(msg.Chat.ID, reply); err != nil {
					log.Errorf("send reply: %v", err)
				}
			}
		}
	}
}
