package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/events"
	"github.com/api-sage/stable-wallet/src/internal/adapter/http/controller"
	"github.com/api-sage/stable-wallet/src/internal/adapter/http/middleware"
	"github.com/api-sage/stable-wallet/src/internal/adapter/http/router"
	"github.com/api-sage/stable-wallet/src/internal/adapter/ratelimit"
	"github.com/api-sage/stable-wallet/src/internal/adapter/repository/memory"
	"github.com/api-sage/stable-wallet/src/internal/adapter/repository/pebblestore"
	"github.com/api-sage/stable-wallet/src/internal/adapter/repository/postgres"
	"github.com/api-sage/stable-wallet/src/internal/adapter/repository/snapshot"
	"github.com/api-sage/stable-wallet/src/internal/config"
	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/api-sage/stable-wallet/src/internal/logger"
	"github.com/api-sage/stable-wallet/src/internal/metrics"
	"github.com/api-sage/stable-wallet/src/internal/security"
	"github.com/api-sage/stable-wallet/src/internal/usecase/services"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", err, nil)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(logger.New(os.Stdout, cfg.LogLevel, cfg.ServiceName, cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := newPublisher(cfg, m)
	if err != nil {
		return err
	}
	defer publisher.Close()

	limiter, closeLimiter, err := newLoginLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	settings := services.LedgerSettings{
		FiatToStable:     cfg.FiatToStableRate,
		StableToFiat:     cfg.StableToFiatRate,
		FiatScale:        cfg.FiatScale,
		StableScale:      cfg.StableScale,
		WithdrawalPolicy: cfg.WithdrawalPolicy,
		TransferMode:     cfg.TransferMode,
	}
	emitter := events.NewEmitter(publisher, cfg.KafkaTopic)
	hasher := security.NewPasswordHasher()
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL, cfg.ServiceName)

	accountService := services.NewAccountService(store, hasher, settings, emitter, m)
	transferService := services.NewTransferService(store, settings, emitter, m)
	authService := services.NewAuthService(store, hasher, tokens, limiter, m)

	handler := router.New(
		controller.NewAccountController(accountService),
		controller.NewAuthController(authService),
		controller.NewTransferController(transferService),
		controller.NewAdminController(transferService, accountService),
		controller.NewHealthController(store),
		middleware.BearerAuth(authService),
		middleware.BasicAuth(cfg.ChannelID, cfg.ChannelKey),
		m,
		cfg.CORSAllowedOrigins,
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", logger.Fields{
			"addr":         cfg.HTTPAddr,
			"store":        cfg.StoreDriver,
			"transferMode": string(cfg.TransferMode),
			"withdrawal":   string(cfg.WithdrawalPolicy),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("http server shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (domain.LedgerStore, error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.NewLedgerStore(), nil
	case "file":
		store, err := snapshot.NewFileStore(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		return store, nil
	case "pebble":
		store, err := pebblestore.Open(cfg.PebbleDir)
		if err != nil {
			return nil, fmt.Errorf("open pebble store: %w", err)
		}
		return store, nil
	case "postgres":
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		db, err := postgres.Open(migrateCtx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.RunMigrations(migrateCtx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("initial migrations completed successfully", nil)
		return postgres.NewLedgerStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func newPublisher(cfg config.Config, m *metrics.Metrics) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("ledger events disabled, no kafka brokers configured", nil)
		return events.NopPublisher{}, nil
	}
	producer, err := events.NewSyncProducer(cfg.KafkaBrokers, m)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

func newLoginLimiter(ctx context.Context, cfg config.Config) (ratelimit.Limiter, func(), error) {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemory(cfg.LoginRateLimit, cfg.LoginRateWindow), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	limiter := ratelimit.NewRedisLimiter(client, cfg.LoginRateLimit, cfg.LoginRateWindow, "")
	return limiter, func() { _ = client.Close() }, nil
}
