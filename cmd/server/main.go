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

	router "github.com/dkeye/Gambit/internal/adapters/http"
	wsignal "github.com/dkeye/Gambit/internal/adapters/signal"
	"github.com/dkeye/Gambit/internal/app"
	"github.com/dkeye/Gambit/internal/app/orch"
	"github.com/dkeye/Gambit/internal/auth"
	"github.com/dkeye/Gambit/internal/config"
	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/logging"
	"github.com/dkeye/Gambit/internal/rules"
	"github.com/dkeye/Gambit/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Early logger so config loading can report.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.LoadAndWatch(func(next *config.Config) {
		logging.SetLevel(next.Log.Level)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logFile, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer logFile.Close()

	games, err := store.Open(store.Config{
		Driver:   cfg.Store.Driver,
		DSN:      cfg.Store.DSN,
		RedisURL: cfg.Store.RedisURL,
		TTL:      cfg.Store.TTL,
		LogLevel: cfg.Store.LogLevel,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer games.Close()

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Policy:   app.SimplePolicy{},
	}
	o.Rooms = core.NewRoomManager(ctx, sessionConfig(cfg), core.Deps{
		Rules:       rules.NewChess(),
		Broadcaster: o,
		Recorder:    games,
	})

	limiter := wsignal.NewRoomRateLimiter(cfg.RateLimit.Moves, cfg.RateLimit.Interval)
	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:   o,
		Signal: wsignal.NewSignalWSController(o, limiter, cfg.ReadLimit, cfg.PingPeriod),
		Auth:   auth.NewJWTManager(cfg.JWTSecret, 0),
		Games:  games,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Gambit server started")
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
	if err := o.Rooms.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("rooms did not stop in time")
	}
	log.Info().Msg("Server exited gracefully")
}

func sessionConfig(cfg *config.Config) core.Config {
	sc := core.DefaultConfig()
	sc.DisconnectGrace = cfg.Room.DisconnectGrace
	sc.AbandonTimeout = cfg.Room.AbandonTimeout
	sc.LobbyTimeout = cfg.Room.LobbyTimeout
	sc.DrainDelay = cfg.Room.DrainDelay
	sc.MaxSpectators = cfg.Room.MaxSpectators
	if cfg.Room.InboxSize > 0 {
		sc.InboxSize = cfg.Room.InboxSize
	}
	if cfg.Store.Timeout > 0 {
		sc.PersistTimeout = cfg.Store.Timeout
	}
	return sc
}
