package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/billtrackerhq/billtracker-backend/internal/api"
	"github.com/billtrackerhq/billtracker-backend/internal/auth"
	"github.com/billtrackerhq/billtracker-backend/internal/config"
	"github.com/billtrackerhq/billtracker-backend/internal/database"
	"github.com/billtrackerhq/billtracker-backend/internal/extraction"
	"github.com/billtrackerhq/billtracker-backend/internal/ingest"
	"github.com/billtrackerhq/billtracker-backend/internal/logger"
	"github.com/billtrackerhq/billtracker-backend/internal/notify"
	"github.com/billtrackerhq/billtracker-backend/internal/reminder"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/billtrackerhq/billtracker-backend/internal/scheduler"
	"github.com/billtrackerhq/billtracker-backend/internal/storage"
	"github.com/billtrackerhq/billtracker-backend/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	fileStorage, err := storage.NewLocalStorage(cfg.UploadPath)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	billRepo := repository.NewBillRepository(db, fileStorage)

	// Extraction is optional; without an API key bills keep their
	// defaults and manual edits fill the gaps.
	var extractor extraction.Client
	if cfg.GeminiAPIKey != "" {
		extractor, err = extraction.NewGeminiClient(context.Background(),
			cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ExtractTimeout, log)
		if err != nil {
			return fmt.Errorf("failed to initialize extraction client: %w", err)
		}
		defer extractor.Close()
	} else {
		log.Warn("GEMINI_API_KEY not set, invoice field extraction disabled")
	}

	hub := websocket.NewHub(log)
	go hub.Run()

	dispatcher := notify.NewDispatcher(notify.NewShoutrrrSender(), cfg.NotifyURL, log)

	ingestJob := ingest.NewJob(ingest.Config{
		Users:      userRepo,
		Bills:      billRepo,
		Store:      fileStorage,
		Extractor:  extractor,
		Dispatcher: dispatcher,
		Hub:        hub,
		Source:     ingest.NewIMAPSource(log),
		LegacyBox: ingest.Mailbox{
			Server:   cfg.IMAPServer,
			Username: cfg.IMAPUser,
			Password: cfg.IMAPPassword,
		},
		LegacyOwner: cfg.IMAPOwnerEmail,
		Logger:      log,
	})
	reminderJob := reminder.NewJob(billRepo, dispatcher, hub, log)

	sched := scheduler.New(log)
	if err := sched.Add("mailbox-ingest", cfg.IngestSchedule, ingestJob); err != nil {
		return err
	}
	if err := sched.Add("due-reminder", cfg.ReminderSchedule, reminderJob); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration, cfg.JWTRefreshExp)

	e := api.NewRouter(&api.RouterConfig{
		DB:             db,
		FileStorage:    fileStorage,
		Logger:         log,
		JWTManager:     jwtManager,
		Extractor:      extractor,
		Dispatcher:     dispatcher,
		Hub:            hub,
		AllowedOrigins: strings.Split(cfg.AllowedOrigins, ","),
		AppEnv:         cfg.AppEnv,
		RateLimit:      cfg.RateLimitRequests,
		RateBurst:      cfg.RateLimitBurst,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Info("starting HTTP server", slog.String("addr", addr))
		if err := e.Start(addr); err != nil {
			log.Info("HTTP server stopped", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	log.Info("server stopped")
	return nil
}
