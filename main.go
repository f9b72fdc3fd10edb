// main.go
//
// Entrypoint for the bullscows server.
// Responsibilities:
//   - Load configuration (.env + environment) and set the log level.
//   - Open the configured leaderboard backend (memory, sqlite, or redis).
//   - Keep a leaderboard view in sync and serve the HTTP API.
//   - Sweep abandoned matches in the background.
//   - Shut down gracefully on SIGINT/SIGTERM, stopping every live countdown.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/internal/config"
	"github.com/robalobadob/bullscows/internal/httpserver"
	"github.com/robalobadob/bullscows/internal/identity"
	"github.com/robalobadob/bullscows/internal/leaderboard"
	"github.com/robalobadob/bullscows/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, closeRecords, err := openLeaderboard(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.LeaderboardBackend).Msg("open leaderboard")
	}
	defer closeRecords()

	board, err := leaderboard.Watch(ctx, records)
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe leaderboard")
	}

	matches := store.NewMemoryStore()
	api := httpserver.New(cfg, matches, records, board, identity.NewIssuer(cfg.JWTSecret, cfg.TokenTTL))
	go api.Janitor(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Str("leaderboard", cfg.LeaderboardBackend).Msg("starting bullscows server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	matches.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

// openLeaderboard builds the configured record store. The returned func
// releases its connection.
func openLeaderboard(ctx context.Context, cfg *config.Config) (leaderboard.Store, func(), error) {
	switch cfg.LeaderboardBackend {
	case config.BackendMemory:
		return leaderboard.NewMemoryStore(), func() {}, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return leaderboard.NewRedisStore(rdb, ""), func() { _ = rdb.Close() }, nil

	default:
		db, err := openDB(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return leaderboard.NewSQLiteStore(db), func() { _ = db.Close() }, nil
	}
}
