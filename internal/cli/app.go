package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rcliao/sorma/internal/assistant"
	"github.com/rcliao/sorma/internal/auth"
	"github.com/rcliao/sorma/internal/config"
	"github.com/rcliao/sorma/internal/llm"
	"github.com/rcliao/sorma/internal/memory"
	"github.com/rcliao/sorma/internal/metrics"
	"github.com/rcliao/sorma/internal/model"
	"github.com/rcliao/sorma/internal/store"
)

// app is the wired component graph shared by the commands.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	backend    store.Backend
	metrics    *metrics.Metrics
	mem        *memory.Store
	gate       *auth.Gate
	models     *llm.Selector
	asst       *assistant.Assistant
}

func openApp(ctx context.Context) (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, path)
}

func newApp(ctx context.Context, cfg *config.Config, path string) (*app, error) {
	logger := slog.Default()

	backend, err := store.Open(store.Options{
		Kind:        cfg.Storage.Backend,
		DataDir:     cfg.DataDir,
		RedisAddr:   cfg.Storage.RedisAddr,
		RedisPrefix: cfg.Storage.RedisPrefix,
	})
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	mem := memory.New(backend, memory.Config{
		ShortTermLimit: cfg.Memory.ShortTermLimit,
		LongTermLimit:  cfg.Memory.LongTermLimit,
		Logger:         logger,
		OnWriteError:   m.RecordStorageError,
	})

	owner, err := loadOwner(ctx, backend, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	gate := auth.NewGate(cfg.Owner.ApplyTo(owner), backend, logger)
	if !gate.HasProfile() {
		logger.Warn("no owner profile; every request will be denied (run `sorma owner init`)")
	}

	models := newSelector(cfg, logger)
	a := &app{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		backend:    backend,
		metrics:    m,
		mem:        mem,
		gate:       gate,
		models:     models,
	}
	a.asst = assistant.New(assistant.Options{
		Memory:       mem,
		Gate:         gate,
		Models:       models,
		Metrics:      m,
		Logger:       logger,
		ContextLimit: cfg.Memory.ContextLimit,
	})
	return a, nil
}

func (a *app) Close() error { return a.backend.Close() }

// loadOwner returns the stored profile, or nil when none has been saved.
func loadOwner(ctx context.Context, backend store.Backend, logger *slog.Logger) (*model.OwnerProfile, error) {
	owner, err := backend.LoadOwner(ctx)
	switch {
	case errors.Is(err, store.ErrOwnerNotFound):
		return nil, nil
	case errors.Is(err, store.ErrCorrupt):
		logger.Warn("owner profile unreadable, treating as absent", "error", err)
		return nil, nil
	case err != nil:
		return nil, err
	}
	return owner, nil
}

// newSelector builds the model backends in the configured preference order.
func newSelector(cfg *config.Config, logger *slog.Logger) *llm.Selector {
	var backends []llm.Backend
	for _, name := range cfg.Models.Prefer {
		switch llm.Kind(name) {
		case llm.KindLocal:
			backends = append(backends, llm.NewOllama(cfg.Models.Local.URL, cfg.Models.Local.Model, cfg.Models.Local.Timeout))
		case llm.KindCloud:
			backends = append(backends, llm.NewCloud(llm.CloudConfig{
				APIKey:    cfg.Models.Cloud.APIKey,
				Model:     cfg.Models.Cloud.Model,
				MaxTokens: cfg.Models.Cloud.MaxTokens,
				BaseURL:   cfg.Models.Cloud.BaseURL,
			}))
		}
	}
	return llm.NewSelector(logger, backends...)
}

// applyConfig re-seeds the owner from a reloaded configuration.
func (a *app) applyConfig(ctx context.Context, cfg *config.Config) {
	owner, err := loadOwner(ctx, a.backend, a.logger)
	if err != nil {
		a.logger.Warn("owner reload failed", "error", err)
		return
	}
	a.gate.SetProfile(cfg.Owner.ApplyTo(owner))
	a.logger.Info("owner profile reloaded", "owner", a.gate.OwnerName())
}
