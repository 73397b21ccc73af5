package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jobsync-engine/internal/config"
	"jobsync-engine/internal/events"
	"jobsync-engine/internal/ingest"
	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/reconcile"
	"jobsync-engine/internal/scrape"
	"jobsync-engine/internal/store"
)

// app is everything a subcommand needs once config, logging and the
// store are up.
type app struct {
	cfg     config.Config
	cfgPath string
	log     logger.Logger
	db      *store.DB
}

func (a *app) Close() error { return a.db.Close() }

func loadConfig(f *rootFlags) (config.Config, string, error) {
	dataDir := f.dataDir
	if dataDir == "" {
		dataDir = os.Getenv("JOBSYNC_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "."
	}

	path := f.configPath
	if path == "" {
		p, err := config.EnsureUserConfig(dataDir)
		if err != nil {
			return config.Config{}, "", fmt.Errorf("config bootstrap failed: %w", err)
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, path, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := config.OverlayCompanies(&cfg, filepath.Join(filepath.Dir(path), "companies.yml")); err != nil {
		return cfg, path, fmt.Errorf("companies overlay: %w", err)
	}
	if f.configPath == "" || cfg.App.DataDir == "" {
		cfg.App.DataDir = dataDir
	}
	cfg.ApplyEnv(os.Getenv)
	if f.dataDir != "" {
		cfg.App.DataDir = f.dataDir
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logJSON {
		cfg.Log.JSON = true
	}
	return cfg, path, nil
}

func bootstrap(ctx context.Context, f *rootFlags) (*app, error) {
	cfg, path, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		log.Warn("config", "warning", w)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return nil, err
	}
	db, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, cfgPath: path, log: log, db: db}, nil
}

func openStore(ctx context.Context, cfg config.Config, log logger.Logger) (*store.DB, error) {
	driver, err := store.ParseDriver(cfg.Store.Driver)
	if err != nil {
		return nil, err
	}
	dsn := strings.TrimSpace(cfg.Store.DSN)
	if dsn == "" && driver == store.DriverSQLite {
		dsn = filepath.Join(cfg.App.DataDir, "jobsync.db")
	}

	db, err := store.Open(ctx, store.Config{Driver: driver, DSN: dsn, MaxOpenConns: cfg.Store.MaxOpenConns})
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("store ready", "driver", string(driver))
	return db, nil
}

func (a *app) newRunner(hub *events.Hub) *ingest.Runner {
	return ingest.NewRunner(ingest.Options{
		Adapters:     scrape.Adapters(a.cfg, a.log),
		Syncer:       reconcile.New(a.db, reconcile.WithLogger(a.log)),
		Filter:       scrape.NewFilter(a.cfg),
		Hub:          hub,
		Log:          a.log,
		LockPath:     filepath.Join(a.cfg.App.DataDir, "jobsync.lock"),
		FetchTimeout: a.cfg.FetchTimeout(),
		SyncTimeout:  a.cfg.SyncTimeout(),
	})
}
