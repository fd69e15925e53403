package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"apicatalog/internal/crawler"
	"apicatalog/internal/linkcheck"
)

// TelegramNotifier sends batch reports to a Telegram chat. It is send-only;
// no updates are polled.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token string, chatID int64, log *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}, nil
}

// CrawlReport sends the crawl batch summary.
func (n *TelegramNotifier) CrawlReport(_ context.Context, stats *crawler.Stats) error {
	return n.send(FormatCrawlReport(stats))
}

// LinkCheckReport sends the list of changed or failing entries; a fully-ok
// run sends nothing.
func (n *TelegramNotifier) LinkCheckReport(_ context.Context, results []linkcheck.Result) error {
	text := FormatLinkCheckReport(results)
	if text == "" {
		return nil
	}
	return n.send(text)
}

func (n *TelegramNotifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
