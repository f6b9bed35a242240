package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stevemurr/simple-settings-store/app"
	"github.com/stevemurr/simple-settings-store/config"
	"github.com/stevemurr/simple-settings-store/handler"
	"github.com/stevemurr/simple-settings-store/logging"
	"github.com/stevemurr/simple-settings-store/settings"
)

// newServer builds the HTTP server. Request contexts derive from ctx, so
// change streams end when ctx is cancelled.
func newServer(ctx context.Context, cfg config.Config, s *settings.Store, log zerolog.Logger) *http.Server {
	h := handler.New(s, log)
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.CORS(h, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		l := logging.New(logging.Options{})
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	a, err := app.Open(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open settings store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := newServer(ctx, cfg, a.Settings, log)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("store", cfg.Backend).
		Str("sync_store", cfg.SyncBackend).
		Str("data", cfg.DataDir).
		Msg("Simple Settings Store starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
	}

	if err := a.Close(); err != nil {
		log.Error().Err(err).Msg("close store")
	}
	log.Info().Msg("stopped")
}
