// Package app opens a settings store from a Config. It is shared by the
// server and the settingsctl CLI.
package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stevemurr/simple-settings-store/config"
	"github.com/stevemurr/simple-settings-store/schema"
	"github.com/stevemurr/simple-settings-store/settings"
	"github.com/stevemurr/simple-settings-store/store"
)

// App is an open settings store plus the backends it owns.
type App struct {
	Settings *settings.Store

	backends []store.Store
}

// Open creates the local and (unless disabled) sync backends under
// cfg.DataDir and a settings store over them.
func Open(cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	local, err := store.New(cfg.Backend, cfg.DataDir, settings.Local.String())
	if err != nil {
		return nil, fmt.Errorf("open local area (backend=%s): %w", cfg.Backend, err)
	}
	a.backends = append(a.backends, local)

	var sync store.Store
	if cfg.SyncEnabled() {
		sync, err = store.New(cfg.SyncBackend, cfg.DataDir, settings.Sync.String())
		if err != nil {
			a.closeBackends()
			return nil, fmt.Errorf("open sync area (backend=%s): %w", cfg.SyncBackend, err)
		}
		a.backends = append(a.backends, sync)
	}

	opts := []settings.Option{settings.WithLogger(log)}
	if cfg.SchemaFile != "" {
		reg, err := schema.LoadRegistry(cfg.SchemaFile)
		if err != nil {
			a.closeBackends()
			return nil, err
		}
		opts = append(opts, settings.WithSchemas(reg))
		log.Info().Str("file", cfg.SchemaFile).Int("schemas", len(reg)).Msg("schemas loaded")
	}

	a.Settings = settings.New(local, sync, opts...)
	return a, nil
}

// Close drains pending updates and closes every backend.
func (a *App) Close() error {
	err := a.Settings.Close()
	return errors.Join(err, a.closeBackends())
}

func (a *App) closeBackends() error {
	var errs []error
	for _, b := range a.backends {
		errs = append(errs, b.Close())
	}
	a.backends = nil
	return errors.Join(errs...)
}
