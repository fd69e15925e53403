// Command linkcheck verifies stored documentation URLs and records
// redirects, content drift, and breakage.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"apicatalog/internal/config"
	"apicatalog/internal/linkcheck"
	"apicatalog/internal/logging"
	"apicatalog/internal/metrics"
	"apicatalog/internal/notify"
	"apicatalog/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("load config", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	checker := linkcheck.New(store, http.DefaultClient, cfg.LinkCheckTimeout, log)
	notifier := newNotifier(cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	results, err := checker.Run(ctx, linkcheck.Options{Limit: cfg.LinkCheckLimit})
	if err != nil {
		log.Error("link check failed", "error", err)
		os.Exit(1)
	}

	if err := notifier.LinkCheckReport(ctx, results); err != nil {
		log.Error("send link check report", "error", err)
	}
	if err := metrics.Push(cfg.PushgatewayURL, "linkcheck"); err != nil {
		log.Error("push metrics", "error", err)
	}
}

func newNotifier(cfg *config.Config, log *slog.Logger) notify.Notifier {
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		n, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, log)
		if err == nil {
			return n
		}
		log.Warn("telegram notifier unavailable", "error", err)
	}
	return notify.NewLogNotifier(log)
}
