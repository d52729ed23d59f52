// Package main запускает HTTP-сервер сервиса coinledger.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lonelytx/coinledger-system/internal/config"
	"github.com/lonelytx/coinledger-system/internal/handler"
	"github.com/lonelytx/coinledger-system/internal/middleware"
	"github.com/lonelytx/coinledger-system/internal/notify"
	"github.com/lonelytx/coinledger-system/internal/repository"
	"github.com/lonelytx/coinledger-system/internal/service"
	"github.com/lonelytx/coinledger-system/internal/verifier"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewFileRepository(cfg.DataDir)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}

	var verifierClient service.Verifier
	if cfg.VerifierAddress != "" {
		verifierClient = verifier.NewClient(cfg.VerifierAddress, cfg.VerifierToken)
	}

	var notifier service.Notifier
	if cfg.NotifyAddress != "" {
		notifier = notify.NewWebhook(cfg.NotifyAddress)
	}

	svc := service.NewService(repo, verifierClient, notifier, service.Config{
		Packs:         config.DefaultPacks(),
		ClaimCooldown: cfg.ClaimCooldown,
	}, logger)
	defer svc.Close()

	adminAuth := middleware.NewAdminAuth(cfg.AdminToken)
	h := handler.NewHandler(svc, logger, adminAuth)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting coinledger server", "addr", cfg.RunAddress, "data_dir", cfg.DataDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
