package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/pricefit/config"
	"github.com/YuminosukeSato/pricefit/dataset"
	"github.com/YuminosukeSato/pricefit/pipeline"
	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/pkg/log"
	"github.com/YuminosukeSato/pricefit/store"
)

// app holds everything built from a Config.
type app struct {
	cfg     config.Config
	logger  log.Logger
	store   store.Store
	files   *store.FileStore
	cache   *store.CachedStore
	session *pipeline.Session
	closers []io.Closer
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func setupLogger(cfg config.LogConfig) (log.Logger, io.Closer, error) {
	logger, out, err := log.New(log.Options{
		Level:      cfg.Level,
		Backend:    cfg.Backend,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "setup logger")
	}
	log.SetLogger(logger)
	return logger, out, nil
}

func openStore(cfg config.StoreConfig, a *app) error {
	var st store.Store
	switch cfg.Backend {
	case config.BackendMemory:
		st = store.NewMemoryStore()
	case config.BackendFile:
		fs, err := store.NewFileStore(cfg.Path)
		if err != nil {
			return err
		}
		a.files = fs
		st = fs
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrap(err, "create sqlite directory")
			}
		}
		sq, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sq)
		st = sq
	default:
		return errors.NewValidationError("store.backend", "unknown backend", cfg.Backend)
	}
	if cfg.CacheSize > 0 {
		c, err := store.NewCachedStore(st, cfg.CacheSize)
		if err != nil {
			return err
		}
		a.cache = c
		st = c
	}
	a.store = st
	return nil
}

func newApp(cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	logger, out, err := setupLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	a.closers = append(a.closers, out)

	if err := openStore(cfg.Store, a); err != nil {
		_ = a.Close()
		return nil, err
	}

	src := &dataset.CSVSource{
		Path:          cfg.Data.CSV,
		FeatureColumn: cfg.Data.FeatureColumn,
		LabelColumn:   cfg.Data.LabelColumn,
	}
	a.session, err = pipeline.NewSession(src, a.store, pipeline.Options{
		Key:    cfg.Store.Key,
		Train:  cfg.Training,
		Logger: logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// watch reloads the session whenever another process saves to the file store.
func (a *app) watch(ctx context.Context) {
	if !a.cfg.Store.Watch || a.files == nil {
		return
	}
	go func() {
		err := store.Watch(ctx, a.files, a.logger, func(key string) {
			if a.cache != nil {
				a.cache.Invalidate(key)
			}
			if _, err := a.session.Reload(ctx, key); err != nil && !errors.Is(err, errors.ErrNotFound) {
				a.logger.Warn("Reload after change failed", err, log.StoreKeyKey, key)
			}
		})
		if err != nil {
			a.logger.Error("Model watcher stopped", err)
		}
	}()
}
