package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/finbook/ledger/internal/config"
	"github.com/finbook/ledger/internal/db"
	"github.com/finbook/ledger/internal/domain"
	"github.com/finbook/ledger/internal/events"
	"github.com/finbook/ledger/internal/httpapi"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("database ready")

	accountRepo := db.NewAccountRepository(pool.Pool)
	transactionRepo := db.NewTransactionRepository(pool.Pool)
	txManager := db.NewTransactionManager(pool.Pool)

	var publisher domain.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		p, err := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey, logger)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
		logger.Info("event publisher connected", zap.String("exchange", cfg.RabbitMQ.Exchange))
	}

	policy := domain.Policy{
		CreditOverdraw:    cfg.Ledger.CreditOverdraw,
		ReferenceAttempts: cfg.Ledger.ReferenceAttempts,
	}

	accountService := domain.NewAccountService(accountRepo, transactionRepo, policy)
	ledgerService := domain.NewLedgerService(accountRepo, transactionRepo, txManager, publisher, policy)
	statsService := domain.NewStatisticsService(accountRepo, transactionRepo)
	queryService := domain.NewQueryService(accountRepo, transactionRepo)

	handler := httpapi.NewHandler(accountService, ledgerService, statsService, queryService)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpapi.NewRouter(handler, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

