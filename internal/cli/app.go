// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring of the application core shared by every command.

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/askai/internal/config"
	"github.com/jeranaias/askai/internal/logging"
	"github.com/jeranaias/askai/internal/provider"
	"github.com/jeranaias/askai/internal/provider/backends"
	"github.com/jeranaias/askai/internal/session"
	"github.com/jeranaias/askai/internal/telemetry"
	"github.com/jeranaias/askai/internal/vault"
)

// App is the wired application core.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *provider.Registry
	Session  *session.Session

	// Vault is nil when vault.dir does not point at a directory.
	Vault *vault.Vault

	// Usage is nil when telemetry is disabled or the ledger cannot be opened.
	Usage *telemetry.UsageStore

	closers []func() error
}

// NewApp loads the configuration and builds the core for one command run.
func NewApp(args Args) (*App, error) {
	cfg, loadErr := config.Load()
	if cfg == nil {
		return nil, loadErr
	}
	if args.Provider != "" {
		name := strings.ToLower(strings.TrimSpace(args.Provider))
		cfg.Provider.Chat = name
		cfg.Provider.Completion = name
		if err := cfg.Validate(); err != nil {
			return nil, NewValidationErrorWithExample("provider", args.Provider, "unknown provider",
				"one of: "+strings.Join(provider.KnownNames, ", "))
		}
	}
	return newAppFromConfig(cfg, args, loadErr)
}

func newAppFromConfig(cfg *config.Config, args Args, loadErr error) (*App, error) {
	level := cfg.Log.Level
	if args.Verbose {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:  level,
		File:   cfg.Log.File,
		Pretty: cfg.Log.Pretty,
	})
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		closers: []func() error{closeLog},
	}
	if loadErr != nil {
		logger.Warn().Err(loadErr).Msg("config file ignored, using defaults")
	}

	doer := provider.NewHTTPDoer(provider.Limits{
		RequestsPerMinute: cfg.Limits.RequestsPerMinute,
		Burst:             cfg.Limits.Burst,
	}, logger)
	app.Registry = backends.NewRegistry(doer, logger)

	if v, err := vault.Open(cfg.Vault.Dir, cfg.Vault.Extensions, logger); err == nil {
		app.Vault = v
	} else {
		logger.Debug().Err(err).Str("dir", cfg.Vault.Dir).Msg("notes directory unavailable")
	}

	if cfg.Telemetry.Enabled {
		app.openUsage()
	}

	opts := session.Options{
		Registry: app.Registry,
		Config:   cfg,
		Logger:   logger,
		Persona:  cfg.Chat.Persona,
	}
	if app.Vault != nil {
		opts.Notes = app.Vault
	}
	if app.Usage != nil {
		opts.Recorder = app.Usage
	}
	app.Session = session.New(opts)
	return app, nil
}

func (a *App) openUsage() {
	path, err := a.Config.UsagePath()
	if err != nil {
		a.Logger.Warn().Err(err).Msg("usage ledger disabled")
		return
	}
	store, err := telemetry.OpenUsageStore(path)
	if err != nil {
		a.Logger.Warn().Err(err).Str("path", path).Msg("usage ledger disabled")
		return
	}
	a.Usage = store
	a.closers = append(a.closers, store.Close)
}

// RequireVault returns the vault or an error naming the missing directory.
func (a *App) RequireVault() (*vault.Vault, error) {
	if a.Vault == nil {
		return nil, &NotFoundError{Resource: "notes directory", ID: a.Config.Vault.Dir}
	}
	return a.Vault, nil
}

// Close releases the ledger and the log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// providerLabel describes a backend for banners and summaries.
func providerLabel(pc provider.ProviderConfig) string {
	if pc.Model == "" {
		return pc.Provider
	}
	return fmt.Sprintf("%s (%s)", pc.Provider, pc.Model)
}

// notice prints a dim line to stderr unless quiet.
func notice(quiet bool, format string, a ...interface{}) {
	if quiet {
		return
	}
	fmt.Fprintln(os.Stderr, DimStyle.Render(fmt.Sprintf(format, a...)))
}
