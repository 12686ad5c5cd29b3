package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"tibia-tracker/internal/config"
	"tibia-tracker/internal/constants"
	fxmodules "tibia-tracker/internal/fx"
	"tibia-tracker/internal/metrics"
	"tibia-tracker/internal/middleware"
	"tibia-tracker/internal/scheduler"
	"tibia-tracker/internal/server"
	"tibia-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(runScheduler),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	trackerServer *server.TrackerServer,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID(logger))
	router.Use(metrics.Middleware)
	trackerServer.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: c.Handler(router),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

func runScheduler(
	lc fx.Lifecycle,
	sched *scheduler.Scheduler,
	scrapeSvc *service.ScrapeService,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sched.ScheduleDailyAt(cfg.ScrapeHour, cfg.ScrapeMinute, func(jobCtx context.Context) {
				if _, err := scrapeSvc.Run(jobCtx); err != nil {
					logger.Error().Err(err).Msg("scheduled scrape failed")
				}
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sched.Stop()
			return nil
		},
	})
}
