package fx

import (
	"tibia-tracker/internal/config"
	"tibia-tracker/internal/database"
	"tibia-tracker/internal/highscores"
	"tibia-tracker/internal/logger"
	"tibia-tracker/internal/repository"
	"tibia-tracker/internal/scheduler"
	"tibia-tracker/internal/server"
	"tibia-tracker/internal/service"

	"go.uber.org/fx"
)

func ProvideSnapshotStore(repo *repository.SnapshotRepository) service.SnapshotStore {
	return repo
}

func ProvideGainsStore(repo *repository.GainsRepository) service.GainsStore {
	return repo
}

func ProvideEntryFetcher(client *highscores.Client) service.EntryFetcher {
	return client
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewSnapshotRepository),
	fx.Provide(repository.NewGainsRepository),
	fx.Provide(ProvideSnapshotStore),
	fx.Provide(ProvideGainsStore),
	// highscores client
	fx.Provide(highscores.NewClient),
	fx.Provide(ProvideEntryFetcher),
	// svc
	fx.Provide(service.NewIngestService),
	fx.Provide(service.NewQueryService),
	fx.Provide(service.NewScrapeService),
	// scheduler
	fx.Provide(scheduler.New),
	// server
	fx.Provide(server.NewTrackerServer),
)
