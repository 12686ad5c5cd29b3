package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"tibia-tracker/internal/constants"
	"tibia-tracker/internal/domain"
	"tibia-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// ErrNoDataAvailable reports that nothing has been ingested yet. The HTTP
// layer renders it as an empty state, not a failure.
var ErrNoDataAvailable = errors.New("no data available")

// QueryService answers all read queries. It never blocks ingestion and never
// takes locks; every answer reflects the latest committed state.
type QueryService struct {
	snapshots  SnapshotStore
	dailyGains GainsStore
	logger     zerolog.Logger
}

func NewQueryService(snapshots SnapshotStore, dailyGains GainsStore, logger zerolog.Logger) *QueryService {
	return &QueryService{
		snapshots:  snapshots,
		dailyGains: dailyGains,
		logger:     logger,
	}
}

// CurrentRanking returns the most recent snapshot, entries in rank order.
func (s *QueryService) CurrentRanking(ctx context.Context) (*domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snapshot, err := s.snapshots.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoDataAvailable
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load latest snapshot")
		return nil, err
	}
	return snapshot, nil
}

// DailyGains returns the gain records for the given day, snapshot rank order.
// A zero date means today. An empty day is a valid empty answer.
func (s *QueryService) DailyGains(ctx context.Context, date time.Time) ([]domain.DailyGainRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if date.IsZero() {
		date = domain.Today()
	}

	records, err := s.dailyGains.GetByDate(ctx, domain.DateOf(date))
	if err != nil {
		s.logger.Error().Err(err).Str("date", domain.FormatDate(date)).Msg("failed to load daily gains")
		return nil, err
	}
	return records, nil
}

// PlayerHistory returns the player's gain records over the trailing window of
// the given length, oldest first. The window ends at the most recent ingested
// day, so a quiet tracker does not shrink everyone's history to nothing.
func (s *QueryService) PlayerHistory(ctx context.Context, name string, days int) ([]domain.DailyGainRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	days = clampDays(days, constants.DefaultHistoryDays)

	latest, err := s.snapshots.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("player", name).Msg("failed to anchor history window")
		return nil, err
	}

	records, err := s.dailyGains.GetByPlayer(ctx, name, latest.Date, days)
	if err != nil {
		s.logger.Error().Err(err).Str("player", name).Msg("failed to load player history")
		return nil, err
	}
	return records, nil
}

// TopGainers aggregates the trailing window per player and ranks by total
// experience gained, descending, ties broken by name. Totals are plain sums,
// so negative days drag a player down instead of disappearing.
func (s *QueryService) TopGainers(ctx context.Context, days, limit int) ([]domain.TopGainer, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	days = clampDays(days, constants.DefaultTopGainersDays)
	if limit <= 0 {
		limit = constants.DefaultTopGainersLimit
	}
	if limit > constants.MaxTopGainersLimit {
		limit = constants.MaxTopGainersLimit
	}

	latest, err := s.snapshots.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to anchor top gainers window")
		return nil, err
	}

	from := latest.Date.AddDate(0, 0, -(days - 1))
	records, err := s.dailyGains.GetByDateRange(ctx, from, latest.Date)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load gains window")
		return nil, err
	}

	totals := make(map[string]*domain.TopGainer)
	for _, record := range records {
		gainer, ok := totals[record.PlayerName]
		if !ok {
			gainer = &domain.TopGainer{Name: record.PlayerName}
			totals[record.PlayerName] = gainer
		}
		gainer.TotalExpGained += record.ExpGained
		gainer.TotalLevelsGained += record.LevelGained
		gainer.DaysTracked++
	}

	gainers := make([]domain.TopGainer, 0, len(totals))
	for _, gainer := range totals {
		gainer.AvgDailyExp = int64(math.Round(float64(gainer.TotalExpGained) / float64(gainer.DaysTracked)))
		gainers = append(gainers, *gainer)
	}

	sort.Slice(gainers, func(i, j int) bool {
		if gainers[i].TotalExpGained != gainers[j].TotalExpGained {
			return gainers[i].TotalExpGained > gainers[j].TotalExpGained
		}
		return gainers[i].Name < gainers[j].Name
	})

	if len(gainers) > limit {
		gainers = gainers[:limit]
	}
	return gainers, nil
}

func clampDays(days, fallback int) int {
	if days <= 0 {
		return fallback
	}
	if days > constants.MaxWindowDays {
		return constants.MaxWindowDays
	}
	return days
}
