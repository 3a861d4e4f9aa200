// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/moodchat/internal/config"
	"github.com/jeranaias/moodchat/internal/gateway"
	"github.com/jeranaias/moodchat/internal/guard"
	"github.com/jeranaias/moodchat/internal/persona"
	"github.com/jeranaias/moodchat/internal/relay"
	"github.com/jeranaias/moodchat/internal/server"
)

// ShutdownTimeout bounds the graceful shutdown of open streams.
const ShutdownTimeout = 10 * time.Second

// =============================================================================
// APP
// =============================================================================

// App is a fully wired server process.
type App struct {
	Persona *persona.Store
	Engine  *relay.Engine
	Server  *server.Server

	logger  *zap.Logger
	watcher *persona.Watcher
}

// Build wires the gateway, persona, guard, relay and server described by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	initial, err := StartupPersona(cfg.Persona)
	if err != nil {
		return nil, err
	}
	store := persona.NewStore(initial)

	gw, err := gateway.New(ctx, cfg.Gateway.ToGateway())
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	limits, err := cfg.Guard.ToGuard()
	if err != nil {
		return nil, fmt.Errorf("invalid guard config: %w", err)
	}
	patterns, err := guard.Compile(limits)
	if err != nil {
		return nil, err
	}

	engine := relay.New(relay.Options{
		Gateway:      gw,
		Persona:      store,
		Guard:        patterns,
		SharedBudget: cfg.Guard.SharedBudget,
		Logger:       logger.Named("relay"),
	})

	srv := server.New(engine, server.Options{
		Addr:         cfg.Server.Addr(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		CORS:         server.NewCORSConfig(cfg.Server.CORSOrigins),
		Logger:       logger.Named("http"),
	})

	app := &App{
		Persona: store,
		Engine:  engine,
		Server:  srv,
		logger:  logger,
	}

	if cfg.Persona.Watch && cfg.Persona.File != "" {
		app.watcher, err = persona.NewWatcher(cfg.Persona.File, store, logger.Named("persona"))
		if err != nil {
			return nil, err
		}
	}
	return app, nil
}

// StartupPersona returns the persona the process starts with: the persona
// file when set, else the configured initial text, else "" for the default.
func StartupPersona(cfg config.PersonaConfig) (string, error) {
	if cfg.File != "" {
		return persona.LoadFile(cfg.File)
	}
	if cfg.Initial != "" {
		return persona.Normalize(cfg.Initial), nil
	}
	return "", nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.watcher != nil {
		go a.watcher.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := a.Server.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil {
		err = errors.Join(err, serveErr)
	}
	a.logger.Info("SERVER_STOPPED", zap.Uint64("persona_changes", a.Persona.Changes()))
	return err
}

// Close releases the persona watcher.
func (a *App) Close() error {
	if a.watcher == nil {
		return nil
	}
	return a.watcher.Close()
}
