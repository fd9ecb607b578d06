package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-catalog/internal/catalog"
	"github.com/Clark-Hu/movie-catalog/internal/config"
	"github.com/Clark-Hu/movie-catalog/internal/logging"
	"github.com/Clark-Hu/movie-catalog/internal/repository"
	"github.com/Clark-Hu/movie-catalog/internal/store"
)

type commandContext struct {
	envFileFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(envFileFlag *string) *commandContext {
	return &commandContext{envFileFlag: envFileFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFileFlag != nil {
			if path := strings.TrimSpace(*c.envFileFlag); path != "" {
				if err := os.Setenv("ENV_FILE", path); err != nil {
					c.configErr = fmt.Errorf("set ENV_FILE: %w", err)
					return
				}
			}
		}
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg config.Config) zerolog.Logger {
	return logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With().Str("service", "catalog-cli").Logger()
}

// withStore opens the database for the duration of fn.
func (c *commandContext) withStore(ctx context.Context, fn func(cfg config.Config, st *store.Store, logger zerolog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.logger(cfg)

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	return fn(cfg, st, logger)
}

// withService opens the database, applies pending migrations when DB_AUTO_MIGRATE is set
// and hands fn a catalog service.
func (c *commandContext) withService(ctx context.Context, fn func(svc *catalog.Service) error) error {
	return c.withStore(ctx, func(cfg config.Config, st *store.Store, logger zerolog.Logger) error {
		if cfg.DBAutoMigrate {
			if _, err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
		}
		svc := catalog.NewFromRepository(repository.New(st), catalog.Options{
			RecentReleaseWindowDays: cfg.RecentReleaseWindowDays,
			Logger:                  logger,
		})
		return fn(svc)
	})
}
