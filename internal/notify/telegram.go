package notify

import (
	"context"
	"fmt"
	"time"

	"job-scorer/internal/models"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// TelegramNotifier pushes freshly inserted notifications to an operations
// chat. Delivery is best effort: the notification row in Postgres is the
// durable record, this channel only surfaces it.
type TelegramNotifier struct {
	bot    *tele.Bot
	chat   *tele.Chat
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("telegram notifier initialized", zap.Int64("chat_id", chatID))

	return &TelegramNotifier{
		bot:    b,
		chat:   &tele.Chat{ID: chatID},
		logger: logger,
	}, nil
}

// Notify sends one notification to the configured chat. Errors are logged
// and swallowed.
func (t *TelegramNotifier) Notify(_ context.Context, n *models.Notification) {
	if _, err := t.bot.Send(t.chat, FormatNotification(n)); err != nil {
		t.logger.Error("failed to send telegram notification",
			zap.String("account_id", n.AccountID),
			zap.String("dedupe_key", n.DedupeKey),
			zap.Error(err),
		)
	}
}

// FormatNotification renders a notification as a plain-text chat message.
func FormatNotification(n *models.Notification) string {
	return fmt.Sprintf("🔔 %s\n\n%s\n\nAccount: %s", n.Title, n.Message, n.AccountID)
}
