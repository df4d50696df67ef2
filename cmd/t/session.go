package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/basket/go-t/internal/audit"
	"github.com/basket/go-t/internal/config"
	"github.com/basket/go-t/internal/otel"
	"github.com/basket/go-t/internal/persistence"
	"github.com/basket/go-t/internal/shared"
	"github.com/basket/go-t/internal/telemetry"
)

// listFlags are the list-selection flags shared by the task and import commands.
type listFlags struct {
	list          string
	taskDir       string
	deleteIfEmpty bool
	debug         bool
}

// session is one invocation's configured list plus the logging, journal and
// telemetry behind it.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	list   *persistence.ListFile

	closers []func(context.Context) error
}

// openSession loads config, applies flag overrides and binds the selected
// list. The returned context carries the run id and list name.
func openSession(ctx context.Context, f listFlags) (context.Context, *session, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, nil, fmt.Errorf("load config: %w", err)
	}
	if f.taskDir != "" {
		cfg.TaskDir = f.taskDir
	}
	if f.list != "" {
		if err := config.ValidateListName(f.list); err != nil {
			return ctx, nil, fmt.Errorf("-list: %w", err)
		}
		cfg.DefaultList = f.list
	}
	if f.deleteIfEmpty {
		cfg.DeleteIfEmpty = true
	}

	s := &session{cfg: cfg}
	runID := shared.NewRunID()
	logger, closer, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel, f.debug, runID)
	if err != nil {
		return ctx, nil, fmt.Errorf("init logger: %w", err)
	}
	s.logger = logger
	s.closers = append(s.closers, func(context.Context) error { return closer.Close() })

	if cfg.Journal {
		if err := audit.Init(cfg.HomeDir); err != nil {
			logger.Warn("journal disabled", "error", err)
		} else {
			s.closers = append(s.closers, func(context.Context) error { return audit.Close() })
		}
	}

	provider, err := otel.Init(ctx, cfg.OTel)
	if err != nil {
		s.Close(ctx)
		return ctx, nil, fmt.Errorf("init telemetry: %w", err)
	}
	s.closers = append(s.closers, provider.Shutdown)

	list, err := persistence.NewListFile(cfg.TaskDir, cfg.DefaultList, persistence.Options{
		Atomic:        cfg.SaveMode == config.SaveAtomic,
		DeleteIfEmpty: cfg.DeleteIfEmpty,
		Logger:        logger,
		Telemetry:     provider,
	})
	if err != nil {
		s.Close(ctx)
		return ctx, nil, fmt.Errorf("open list: %w", err)
	}
	s.list = list

	ctx = shared.WithRunID(ctx, runID)
	ctx = shared.WithList(ctx, list.Name)
	logger.Debug("session opened",
		"list", list.Path(),
		"save_mode", cfg.SaveMode,
		"otel", cfg.OTel.Enabled,
	)
	return ctx, s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close(ctx context.Context) {
	// Shutdown must still flush spans after SIGINT cancelled ctx.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && s.logger != nil {
			s.logger.Warn("close failed", "error", err)
		}
	}
	s.closers = nil
}
