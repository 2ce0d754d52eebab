package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"bulletin_scraper/internal/config"
	"bulletin_scraper/internal/report"
	"bulletin_scraper/internal/search"
	"bulletin_scraper/internal/service"
	"bulletin_scraper/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	apply := flag.Bool("apply", false, "delete the duplicates instead of only reporting them")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	logger := setupLogger("warn")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var indexer service.Indexer
	if cfg.Search.Enabled {
		idx, err := search.New(search.Config{
			Addresses: cfg.Search.Addresses,
			Index:     cfg.Search.Index,
			Username:  cfg.Search.Username,
			Password:  cfg.Search.Password,
		}, logger)
		if err != nil {
			logger.Error("failed to create search client", "error", err)
			os.Exit(1)
		}
		indexer = idx
	}

	sweeper := service.NewSweepService(
		postgres.NewItemStore(db),
		postgres.NewTransactionManager(db),
		indexer,
		cfg.Dedupe.Threshold,
		logger,
	)

	result, err := sweeper.Sweep(ctx, *apply)
	if err != nil {
		logger.Error("duplicate sweep failed", "error", err)
		os.Exit(1)
	}

	report.NewPrinter(os.Stdout).Duplicates(result)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
