package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"bulletin_scraper/internal/api"
	"bulletin_scraper/internal/archive"
	"bulletin_scraper/internal/cache"
	"bulletin_scraper/internal/config"
	"bulletin_scraper/internal/headline"
	"bulletin_scraper/internal/publisher"
	"bulletin_scraper/internal/scheduler"
	"bulletin_scraper/internal/search"
	"bulletin_scraper/internal/service"
	"bulletin_scraper/internal/source/bulletin"
	"bulletin_scraper/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	resetSeen := flag.Bool("reset-seen", false, "clear the seen-item cache before starting")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once, *resetSeen, logger); err != nil {
		logger.Error("scraper stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, once, resetSeen bool, logger *slog.Logger) error {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	logger.Info("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)

	itemStore := postgres.NewItemStore(db)
	runStore := postgres.NewRunStore(db)
	txManager := postgres.NewTransactionManager(db)

	seen, err := cache.New(ctx, cache.Config{
		Driver:   cfg.Cache.Driver,
		RedisURL: cfg.Redis.URL,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cfg.Cache.TTL,
		Capacity: cfg.Cache.Capacity,
	})
	if err != nil {
		return err
	}
	defer seen.Close()
	logger.Info("seen cache ready", "driver", cfg.Cache.Driver, "ttl", cfg.Cache.TTL)

	if resetSeen {
		if err := seen.Clear(ctx); err != nil {
			return err
		}
		logger.Info("seen cache cleared")
	}

	pub, err := publisher.New(cfg.Publisher.Driver,
		publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		},
		publisher.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic},
		logger,
	)
	if err != nil {
		return err
	}
	var itemPublisher service.Publisher
	if pub != nil {
		defer pub.Close()
		itemPublisher = pub
	}

	var indexer service.Indexer
	if cfg.Search.Enabled {
		idx, err := search.New(search.Config{
			Addresses: cfg.Search.Addresses,
			Index:     cfg.Search.Index,
			Username:  cfg.Search.Username,
			Password:  cfg.Search.Password,
		}, logger)
		if err != nil {
			return err
		}
		if err := idx.Ping(ctx); err != nil {
			logger.Warn("elasticsearch not reachable at startup", "error", err)
		}
		indexer = idx
	}

	var snapshots bulletin.Snapshotter
	if cfg.Archive.Enabled {
		s3, err := archive.NewS3(ctx, archive.Config{
			Bucket:          cfg.Archive.Bucket,
			Prefix:          cfg.Archive.Prefix,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			UsePathStyle:    cfg.Archive.UsePathStyle,
		}, logger)
		if err != nil {
			return err
		}
		snapshots = s3
	}

	var headlines service.HeadlineGenerator
	if cfg.Headline.Endpoint != "" {
		headlines = headline.New(headline.Config{
			Endpoint:   cfg.Headline.Endpoint,
			Timeout:    cfg.Headline.Timeout,
			MaxRetries: cfg.Headline.Retries(),
			RetryDelay: cfg.Headline.RetryDelay,
			Workers:    cfg.Headline.Workers,
		}, logger)
	}

	source := bulletin.New(bulletin.Config{
		URL:          cfg.Source.URL,
		Timeout:      cfg.Source.Timeout,
		RetryCount:   cfg.Source.Retry.MaxAttempts - 1,
		RetryWait:    cfg.Source.Retry.InitialBackoff,
		RetryMaxWait: cfg.Source.Retry.MaxBackoff,
		UserAgent:    cfg.Source.UserAgent,
	}, snapshots, logger)

	pipeline := service.NewPipelineService(
		source,
		itemStore,
		runStore,
		txManager,
		headlines,
		seen,
		itemPublisher,
		indexer,
		logger,
		cfg.Pipeline,
		cfg.Dedupe,
	)
	runner := service.NewExclusiveRunner(pipeline)

	if once || (!cfg.HTTP.Enabled && !cfg.Schedule.Enabled) {
		_, err := runner.Run(ctx, service.RunRequest{GenerateHeadlines: cfg.Pipeline.GenerateHeadlines})
		return err
	}

	sweeper := service.NewSweepService(itemStore, txManager, indexer, cfg.Dedupe.Threshold, logger)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Enabled {
		server := api.NewServer(api.Deps{
			Runner:  runner,
			Runs:    runStore,
			Items:   itemStore,
			Sweeper: sweeper,
			DB:      db,
		}, logger)

		httpServer := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           server.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
		}

		g.Go(func() error {
			logger.Info("api server starting", "addr", cfg.HTTP.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if cfg.Schedule.Enabled {
		loc, err := time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return err
		}
		sched, err := scheduler.NewScheduler(runner, scheduler.Config{
			Interval:          cfg.Schedule.Interval,
			DailyAt:           cfg.Schedule.DailyAt,
			Location:          loc,
			MaxItems:          cfg.Schedule.MaxItems,
			GenerateHeadlines: cfg.Pipeline.GenerateHeadlines,
			RunTimeout:        cfg.Schedule.RunTimeout,
		}, logger)
		if err != nil {
			return err
		}

		g.Go(func() error {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	logger.Info("starting bulletin scraper",
		"source", source.Name(),
		"url", cfg.Source.URL,
		"schedule", cfg.Schedule.Enabled,
		"http", cfg.HTTP.Enabled,
		"publisher", cfg.Publisher.Driver,
	)

	return g.Wait()
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
