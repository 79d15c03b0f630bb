// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jeranaias/llmchat/internal/api"
	"github.com/jeranaias/llmchat/internal/chat"
	"github.com/jeranaias/llmchat/internal/config"
	"github.com/jeranaias/llmchat/internal/logger"
	"github.com/jeranaias/llmchat/internal/session"
	"github.com/jeranaias/llmchat/internal/storage"
	"github.com/jeranaias/llmchat/internal/telemetry"
)

// =============================================================================
// CONFIG
// =============================================================================

// loadConfig reads the config file named by --config (or the default
// location) and applies the global flags on top.
func loadConfig(g *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFromPath(g.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if g.baseURL != "" {
		cfg.API.BaseURL = g.baseURL
	}
	if g.model != "" {
		cfg.API.DefaultModel = g.model
	}
	if g.store != "" {
		cfg.Storage.Backend = g.store
	}
	if g.dataDir != "" {
		cfg.Storage.DataDir = g.dataDir
	}
	if g.metricsAddr != "" {
		cfg.Metrics.Addr = g.metricsAddr
	}
	if g.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	config.SetGlobal(cfg)
	return cfg, nil
}

// =============================================================================
// APP
// =============================================================================

// app wires the layers one command needs: config, logging, storage, the
// session store, the transport and the orchestrator.
type app struct {
	cfg     *config.Config
	metrics *telemetry.Metrics
	store   *session.Store
	client  *api.Client
	orch    *chat.Orchestrator

	closeLog func() error
}

// openApp builds the app. fullscreen keeps logs off the terminal even in
// verbose mode.
func openApp(ctx context.Context, g *globalFlags, fullscreen bool) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}

	closeLog := logger.Init(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		File:    cfg.Log.File,
		DataDir: dataDir,
		Stderr:  g.verbose && !fullscreen,
	})

	p, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.Storage.Backend,
		DataDir:     dataDir,
		PostgresURL: cfg.Storage.PostgresURL,
		Logger:      slog.Default(),
	})
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	metrics := telemetry.New()
	store := session.Open(ctx, p,
		session.WithLogger(slog.Default()),
		session.WithSaveHook(metrics.ObserveSave),
	)

	client := api.NewClient(cfg.API.BaseURL,
		api.WithAPIKey(cfg.API.APIKey),
		api.WithListTimeout(cfg.API.ListTimeout()),
	)
	orch := chat.New(store, client,
		chat.WithTitleWords(cfg.Chat.TitleWords),
		chat.WithErrorMessage(cfg.Chat.ErrorMessage),
		chat.WithDefaultModel(cfg.API.DefaultModel),
		chat.WithPreferredModel(cfg.API.PreferredModel),
		chat.WithMetrics(metrics),
		chat.WithLogger(slog.Default()),
	)

	slog.Debug("llmchat started",
		"version", Version,
		"base_url", cfg.API.BaseURL,
		"store", cfg.Storage.Backend,
		"sessions", store.Len())

	return &app{
		cfg:      cfg,
		metrics:  metrics,
		store:    store,
		client:   client,
		orch:     orch,
		closeLog: closeLog,
	}, nil
}

// applyModelFlag selects --model for chatting commands. Listing commands
// leave the stored session models alone.
func (a *app) applyModelFlag(g *globalFlags) {
	if g.model != "" && g.model != a.orch.Model() {
		a.orch.SelectModel(g.model)
	}
}

// Close releases the store and the log file.
func (a *app) Close() error {
	return errors.Join(a.store.Close(), a.closeLog())
}
