package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ortiqov/contract_bot/internal/app"
	"github.com/ortiqov/contract_bot/internal/config"
	"github.com/ortiqov/contract_bot/internal/controller"
	"github.com/ortiqov/contract_bot/internal/form"
	"github.com/ortiqov/contract_bot/internal/pdfapi"
	"github.com/ortiqov/contract_bot/internal/repository"
	"github.com/ortiqov/contract_bot/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting contract bot",
		zap.String("environment", cfg.Environment),
		zap.Duration("pdf_timeout", cfg.PDFTimeout),
		zap.Duration("session_ttl", cfg.SessionTTL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	contractRepo := repository.NewContractRepository(pool, logger)
	pdfClient := pdfapi.NewClient(cfg.PDFEndpoint, cfg.PDFTimeout, logger)

	machine := form.NewMachine()
	registry := form.NewRegistry()
	contractService := service.NewContractService(machine, pdfClient, contractRepo, logger)

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	botController := controller.NewBotController(b, registry, machine, contractService, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Fatal("Failed to register handlers", zap.Error(err))
	}

	janitor := app.NewJanitor(registry, cfg.SessionTTL, logger)
	janitor.Start(ctx)
	defer janitor.Stop()

	botController.Start(ctx)

	logger.Info("Bot stopped")
}
