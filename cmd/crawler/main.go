// Command crawler runs one re-crawl batch over the stalest catalog entries.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"apicatalog/internal/analyzer"
	"apicatalog/internal/config"
	"apicatalog/internal/crawler"
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

	var a crawler.ItemAnalyzer
	if cfg.GeminiAPIKey != "" {
		a = analyzer.New(&http.Client{Timeout: 30 * time.Second}, cfg.GeminiAPIKey)
	}

	engine := crawler.NewChromeEngine(cfg.PageLoadTimeout)
	parser := crawler.NewParser(a, log)
	sched := crawler.NewScheduler(store, log)
	runner := crawler.NewRunner(engine, parser, sched, cfg.CrawlConcurrency, log)

	notifier := newNotifier(cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats, err := runner.Run(ctx, cfg.CrawlBatchSize)
	if err != nil {
		log.Error("crawl batch failed", "error", err)
		os.Exit(1)
	}

	if err := notifier.CrawlReport(ctx, stats); err != nil {
		log.Error("send crawl report", "error", err)
	}
	if err := metrics.Push(cfg.PushgatewayURL, "crawler"); err != nil {
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
