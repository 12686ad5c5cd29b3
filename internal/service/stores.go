package service

import (
	"context"
	"time"

	"tibia-tracker/internal/domain"
)

// SnapshotStore is the slice of snapshot persistence the services consume.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *domain.Snapshot) error
	Latest(ctx context.Context) (*domain.Snapshot, error)
	PreviousTo(ctx context.Context, date time.Time) (*domain.Snapshot, error)
	Get(ctx context.Context, date time.Time) (*domain.Snapshot, error)
}

// GainsStore is the slice of gain-record persistence the services consume.
type GainsStore interface {
	Save(ctx context.Context, date time.Time, records []domain.DailyGainRecord) error
	GetByDate(ctx context.Context, date time.Time) ([]domain.DailyGainRecord, error)
	GetByPlayer(ctx context.Context, name string, until time.Time, days int) ([]domain.DailyGainRecord, error)
	GetByDateRange(ctx context.Context, from, to time.Time) ([]domain.DailyGainRecord, error)
}

// EntryFetcher pulls the current highscores standings from the game server.
type EntryFetcher interface {
	Fetch(ctx context.Context) ([]domain.PlayerRankEntry, error)
}
