package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Banter/internal/adapters/http"
	"github.com/dkeye/Banter/internal/adapters/ws"
	"github.com/dkeye/Banter/internal/config"
	"github.com/dkeye/Banter/internal/core"
	"github.com/dkeye/Banter/internal/media"
	"github.com/dkeye/Banter/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	if err := st.SeedRooms(ctx, cfg.Rooms); err != nil {
		log.Fatal().Err(err).Msg("failed to seed rooms")
	}

	presence := core.NewPresenceRegistry()
	bcast := core.NewBroadcaster(presence)
	normalizer := media.NewNormalizer(cfg.MaxImageDim)
	sessions := core.NewSessionManager(presence, bcast, st, normalizer)
	limiter := ws.NewEventRateLimiter(cfg.EventRateLimit, cfg.EventRateWindow)
	ctl := ws.NewController(sessions, bcast, limiter, cfg.ReadLimit, cfg.SendBuffer, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, st, presence, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Banter server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
