// Command discovery runs one discovery batch: poll enabled sources, extract
// API product candidates, and persist new provisional catalog entries.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"apicatalog/internal/analyzer"
	"apicatalog/internal/config"
	"apicatalog/internal/discovery"
	"apicatalog/internal/feed"
	"apicatalog/internal/logging"
	"apicatalog/internal/metrics"
	"apicatalog/internal/model"
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

	httpClient := &http.Client{Timeout: 30 * time.Second}

	var a discovery.Analyzer
	if cfg.GeminiAPIKey != "" {
		a = analyzer.New(httpClient, cfg.GeminiAPIKey)
	} else {
		log.Warn("GEMINI_API_KEY not set, discovery will not extract candidates")
	}

	clients := map[model.SourceKind]feed.Client{
		model.KindRSS:    feed.NewRSSClient(httpClient),
		model.KindGitHub: feed.NewGitHubClient(httpClient, cfg.GitHubToken),
	}

	coord := discovery.New(store, clients, a,
		cfg.DiscoveryMinConfidence, cfg.DiscoveryPerSourceCap, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	summary, err := coord.Run(ctx, cfg.DiscoveryMaxItems)
	if err != nil {
		log.Error("discovery run failed", "error", err)
		os.Exit(1)
	}

	for _, r := range summary.Results {
		log.Info("discovery result", "name", r.Name, "status", r.Status)
	}
	log.Info("discovery finished",
		"processed", summary.ProcessedCount, "created", summary.CreatedCount)

	if err := metrics.Push(cfg.PushgatewayURL, "discovery"); err != nil {
		log.Error("push metrics", "error", err)
	}
}
