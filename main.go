package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"campus-assistant/config"
	"campus-assistant/knowledge"
	"campus-assistant/llmclient"
	"campus-assistant/metrics"
	"campus-assistant/rag"
	"campus-assistant/search"
	"campus-assistant/web"
	"campus-assistant/web/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	loader, err := knowledge.NewLoader(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize corpus loader", zap.Error(err))
	}

	opts := search.Options{Threshold: cfg.MatchThreshold, TokenErrorRatio: search.DefaultOptions().TokenErrorRatio}
	retriever, err := rag.NewRetriever(loader, opts, rag.LimitsFromConfig(cfg), cfg.QueryCacheSize, m, logger)
	if err != nil {
		logger.Fatal("Failed to build search indexes", zap.Error(err), zap.String("data_dir", cfg.DataDir))
	}

	llm := llmclient.New(cfg, logger)
	chat := services.NewChatService(retriever, llm, cfg.LLMRequestTimeout, m, logger)
	webServer := web.NewServer(cfg, chat, retriever, m, registry, logger)

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.WatchCorpora {
		watcher := knowledge.NewWatcher(cfg.DataDir, func() {
			if err := retriever.Reload(); err != nil {
				logger.Error("Corpus reload failed, keeping previous indexes", zap.Error(err))
			}
		}, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("Corpus watcher stopped", zap.Error(err))
			}
		}()
	}

	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting campus assistant", zap.String("port", port), zap.String("llm_host", cfg.LLMHost))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
