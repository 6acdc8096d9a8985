package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/veritas-erp/veritas-erp/internal/app"
	"github.com/veritas-erp/veritas-erp/internal/audit"
	audithttp "github.com/veritas-erp/veritas-erp/internal/audit/http"
	"github.com/veritas-erp/veritas-erp/internal/ledger/accounts"
	"github.com/veritas-erp/veritas-erp/internal/ledger/vouchers"
	"github.com/veritas-erp/veritas-erp/internal/observability"
	"github.com/veritas-erp/veritas-erp/internal/platform/cache"
	"github.com/veritas-erp/veritas-erp/internal/platform/db"
	"github.com/veritas-erp/veritas-erp/internal/reports"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			_ = redisClient.Close()
		}()
	}

	metrics := observability.NewMetrics()
	recorder := audit.NewRecorder(pool)

	accountsService := accounts.NewService(accounts.NewRepository(pool), recorder)
	vouchersService := vouchers.NewService(vouchers.NewRepository(pool, recorder))
	auditService := audit.NewService(audit.NewRepository(pool))
	reportsService := reports.NewService(
		reports.NewRepository(pool),
		reports.NewCache(redisClient, cfg.ReportCacheTTL),
	)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accounts.NewHandler(logger, accountsService),
		VouchersHandler: vouchers.NewHandler(logger, vouchersService),
		AuditHandler:    audithttp.NewHandler(logger, auditService),
		ReportsHandler:  reports.NewHandler(logger, reportsService),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped cleanly")
}
