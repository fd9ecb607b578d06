package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/movie-catalog/internal/auth"
	"github.com/Clark-Hu/movie-catalog/internal/catalog"
	"github.com/Clark-Hu/movie-catalog/internal/config"
	httpserver "github.com/Clark-Hu/movie-catalog/internal/http"
	"github.com/Clark-Hu/movie-catalog/internal/logging"
	"github.com/Clark-Hu/movie-catalog/internal/repository"
	"github.com/Clark-Hu/movie-catalog/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(logging.Options{})
		bootLogger.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With().Str("service", "movie-catalog").Logger()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	if cfg.DBAutoMigrate {
		if _, err := st.Migrate(dbCtx); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, time.Duration(cfg.TokenTTLSecs)*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("init token verifier")
	}

	svc := catalog.NewFromRepository(repository.New(st), catalog.Options{
		RecentReleaseWindowDays: cfg.RecentReleaseWindowDays,
		Logger:                  logger,
	})
	server := httpserver.New(cfg, st, svc, tokens, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}
