package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/example/staff-dashboard/internal/application"
	"github.com/example/staff-dashboard/internal/channels"
	"github.com/example/staff-dashboard/internal/config"
	httptransport "github.com/example/staff-dashboard/internal/http"
	"github.com/example/staff-dashboard/internal/identity"
	"github.com/example/staff-dashboard/internal/logging"
	"github.com/example/staff-dashboard/internal/persistence/stores"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("dashboard backend stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	ctx = logging.ContextWithLogger(ctx, logger)

	documents, err := stores.OpenDocuments(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() {
		if cerr := documents.Close(); cerr != nil {
			logger.Error("failed to close document store", "error", cerr)
		}
	}()

	repo := application.NewDocumentRepository(documents, logger)
	locks, lockCloser, err := stores.OpenLocks(ctx, cfg, repo)
	if err != nil {
		return fmt.Errorf("open lock store: %w", err)
	}
	defer func() {
		if cerr := lockCloser.Close(); cerr != nil {
			logger.Error("failed to close lock store", "error", cerr)
		}
	}()

	verifier, err := identity.NewVerifier(ctx, identity.VerifierOptions{
		JWKSURL:         cfg.JWKSURL,
		Audience:        cfg.GoogleClientID,
		RefreshInterval: cfg.JWKSRefresh,
		Leeway:          cfg.TokenLeeway,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("identity verifier: %w", err)
	}

	now := time.Now
	tokens, err := identity.NewTokenIssuer(cfg.SessionSecret, "staff-dashboard", cfg.SessionTTL, now)
	if err != nil {
		return err
	}

	registry := channels.Default()
	directory := application.NewDirectory(repo, cfg.DirectoryCacheSize, cfg.DirectoryCacheTTL)
	newID := uuid.NewString

	authService := application.NewAuthService(verifier, tokens, directory, logger)
	peopleService := application.NewPeopleService(repo, directory, registry, now, logger)
	shiftService := application.NewShiftService(repo, repo, directory, registry, newID, now, logger)
	timeOffService := application.NewTimeOffService(repo, directory, newID, now, logger)
	reportService := application.NewReportService(repo, repo, directory, registry, time.Local)
	lockService := application.NewLockService(locks, cfg.LockTTL, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, logger),
		People:        httptransport.NewPeopleHandler(peopleService, logger),
		Shifts:        httptransport.NewShiftHandler(shiftService, logger),
		TimeOff:       httptransport.NewTimeOffHandler(timeOffService, logger),
		Reports:       httptransport.NewReportHandler(reportService, registry, now, logger),
		Locks:         httptransport.NewLockHandler(lockService, logger),
		Sessions:      authService,
		SignInLimiter: httptransport.NewRateLimiter(cfg.SignInRate, cfg.SignInBurst, 10*time.Minute, logger),
		Health: func(r *http.Request) error {
			return documents.Ping(r.Context())
		},
		Middleware: []func(http.Handler) http.Handler{
			httptransport.Metrics(),
			httptransport.RequestLogger(logger),
		},
	})

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("dashboard API listening", "addr", server.Addr, "store", cfg.Store, "lock_store", cfg.LockStore)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
