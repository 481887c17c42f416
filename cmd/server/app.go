package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rileydk/Pomodoro/internal/config"
	"github.com/Rileydk/Pomodoro/internal/db"
	"github.com/Rileydk/Pomodoro/internal/preference"
	"github.com/Rileydk/Pomodoro/internal/reminder"
	"github.com/Rileydk/Pomodoro/internal/repository"
	"github.com/Rileydk/Pomodoro/internal/service"
	"github.com/Rileydk/Pomodoro/internal/session"
	"github.com/Rileydk/Pomodoro/internal/storage"
	"github.com/Rileydk/Pomodoro/internal/storage/bolt"
	"github.com/Rileydk/Pomodoro/internal/storage/memory"
	"github.com/Rileydk/Pomodoro/internal/storage/redis"
)

// app holds the stores and services shared by the server and CLI commands.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	prefs       *preference.Store
	reports     *service.ReportService
	broadcaster *session.Broadcaster
	auth        *service.AuthService

	closers []func() error
}

func openApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	prefStore, recordStore, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc, err := cfg.Reports.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.broadcaster = session.NewBroadcaster(logger)
	a.prefs = preference.New(prefStore, logger)
	a.reports = service.NewReportService(recordStore, service.ReportOptions{
		Location:        loc,
		MaxTries:        uint(cfg.Reports.RetryMaxTries),
		InitialInterval: config.ParseDuration(cfg.Reports.RetryInitialInterval, 100*time.Millisecond),
		OnRecorded:      a.broadcaster.Recorded,
		Logger:          logger,
	})
	a.auth = service.NewAuthService(
		cfg.Auth.JWTSecret,
		config.ParseDuration(cfg.Auth.TokenTTL, 720*time.Hour),
		cfg.Auth.PairingCode,
	)
	return a, nil
}

// startEngine builds the session engine. Only the server does this, since
// constructing an engine discards any leftover resume checkpoint.
func (a *app) startEngine(ctx context.Context) (*session.Engine, error) {
	reminders := reminder.NewLocal(a.broadcaster.Notify, a.logger)
	engine, err := session.NewEngine(ctx, session.Options{
		Preferences: a.prefs,
		Recorder:    a.reports,
		Reminders:   reminders,
		Observer:    a.broadcaster,
		Logger:      a.logger,
		AppName:     a.cfg.Session.AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session engine: %w", err)
	}
	return engine, nil
}

func (a *app) openStores(ctx context.Context) (storage.PreferenceStore, storage.RecordStore, error) {
	storageCfg := a.cfg.Storage

	var (
		database   *sql.DB
		redisStore *redis.Store
		memStore   *memory.Store
	)

	sqliteDB := func() (*sql.DB, error) {
		if database != nil {
			return database, nil
		}
		opened, err := db.OpenSQLite(storageCfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		a.closers = append(a.closers, opened.Close)
		if _, err := db.RunMigrations(ctx, opened, storageCfg.MigrationsDir, a.logger); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		database = opened
		a.logger.Info().Str("path", storageCfg.SQLitePath).Msg("SQLite storage initialized")
		return database, nil
	}
	redisClient := func() (*redis.Store, error) {
		if redisStore != nil {
			return redisStore, nil
		}
		opened, err := redis.Open(storageCfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis: %w", err)
		}
		a.closers = append(a.closers, opened.Close)
		redisStore = opened
		a.logger.Info().
			Str("host", storageCfg.Redis.Host).
			Int("port", storageCfg.Redis.Port).
			Msg("Redis storage initialized")
		return redisStore, nil
	}
	memoryStore := func() *memory.Store {
		if memStore == nil {
			memStore = memory.NewStore()
			a.logger.Warn().Msg("Using in-memory storage, data is lost on exit")
		}
		return memStore
	}

	var prefs storage.PreferenceStore
	switch storageCfg.Preferences {
	case "sqlite":
		database, err := sqliteDB()
		if err != nil {
			return nil, nil, err
		}
		prefs = repository.NewPreferenceRepository(database)
	case "bolt":
		store, err := bolt.Open(storageCfg.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bolt: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		prefs = store
	case "redis":
		store, err := redisClient()
		if err != nil {
			return nil, nil, err
		}
		prefs = store
	case "memory":
		prefs = memoryStore()
	default:
		return nil, nil, fmt.Errorf("unsupported preferences backend %q", storageCfg.Preferences)
	}

	var records storage.RecordStore
	switch storageCfg.Records {
	case "sqlite":
		database, err := sqliteDB()
		if err != nil {
			return nil, nil, err
		}
		records = repository.NewRecordRepository(database)
	case "redis":
		store, err := redisClient()
		if err != nil {
			return nil, nil, err
		}
		records = store.Records()
	case "memory":
		records = memoryStore()
	default:
		return nil, nil, fmt.Errorf("unsupported records backend %q", storageCfg.Records)
	}

	return prefs, records, nil
}

func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close storage")
	}
}
