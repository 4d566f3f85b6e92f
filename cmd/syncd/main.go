package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"article_sync/internal/config"
	"article_sync/internal/crypto"
	"article_sync/internal/migrate"
	"article_sync/internal/notify"
	"article_sync/internal/remote/github"
	"article_sync/internal/server/httpapi"
	"article_sync/internal/service"
	"article_sync/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if err := migrate.Up(context.Background(), db.DB); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// Initialize RabbitMQ notifier
	rabbitMQ, err := notify.NewRabbitMQ(notify.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Initialize stores
	articleStore := postgres.NewArticleStore(db)
	historyStore := postgres.NewSyncHistoryStore(db)
	credentialStore := postgres.NewCredentialStore(db)
	txManager := postgres.NewTransactionManager(db)

	vault, err := crypto.NewVault(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to initialize vault", "error", err)
		os.Exit(1)
	}

	clientFactory := github.NewFactory(github.Config{
		APIBaseURL: cfg.GitHub.APIBaseURL,
		Owner:      cfg.GitHub.Owner,
		Repo:       cfg.GitHub.Repo,
		Branch:     cfg.GitHub.Branch,
		Timeout:    cfg.GitHub.Timeout,
	}, credentialStore, vault, logger)

	syncService := service.NewSyncService(
		articleStore,
		historyStore,
		remoteFactory{clientFactory},
		txManager,
		rabbitMQ,
		logger,
	)

	server := httpapi.NewServer(httpapi.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, syncService, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting article sync service",
		"addr", cfg.Server.Addr,
		"repo", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo,
		"branch", cfg.GitHub.Branch,
	)

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// remoteFactory adapts the concrete github factory to the service interface.
type remoteFactory struct {
	factory *github.Factory
}

func (f remoteFactory) ClientFor(ctx context.Context, userID string) (service.RemoteClient, error) {
	client, err := f.factory.ClientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return client, nil
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
