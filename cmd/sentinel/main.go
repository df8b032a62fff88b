package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"LevelSentinel/internal/collector"
	"LevelSentinel/internal/config"
	"LevelSentinel/internal/logger"
	"LevelSentinel/internal/notifier"
	"LevelSentinel/internal/recorder"
	"LevelSentinel/internal/scheduler"
	"LevelSentinel/internal/strategy"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Env); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Infof("LevelSentinel starting...")

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config validation: %v", err)
	}
	engineCfg, err := cfg.Analysis.EngineConfig()
	if err != nil {
		logger.Fatalf("analysis config: %v", err)
	}

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "vstrader":
		fetcher = collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	logger.Infof("data source: %s, %s bars over %s", fetcher.Name(), cfg.DataSource.Interval, cfg.DataSource.Period)

	engine := strategy.NewEngine(engineCfg, logger.Get().With("component", "engine"))
	col := collector.NewCollector(fetcher, engine, cfg.DataSource.Interval, cfg.DataSource.Period)

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			logger.Warnf("init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, tn, rec, cfg.DataSource.Symbols)
	if err := sched.Register(cfg.Schedule.AnalysisCron); err != nil {
		logger.Fatalf("register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	logger.Infof("telegram polling started")

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Infof("RUN_ON_START enabled, running analysis now")
		go sched.RunNow()
	}

	logger.Infof("LevelSentinel is running for %v. Press Ctrl+C to stop.", cfg.DataSource.Symbols)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("shutdown signal received, stopping...")
	cancel()
	logger.Infof("LevelSentinel stopped")
}
