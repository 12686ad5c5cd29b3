package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tibia-tracker/internal/constants"
	"tibia-tracker/internal/domain"
	"tibia-tracker/internal/gains"
	"tibia-tracker/internal/metrics"
	"tibia-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// IngestError wraps whatever failed a day's ingestion cycle. errors.Is and
// errors.As reach the cause.
type IngestError struct {
	Date time.Time
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingestion failed for %s: %v", domain.FormatDate(e.Date), e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// IngestService turns a day's scraped standings into a stored snapshot plus
// derived gain records. Both writes replace whatever the day already holds,
// so re-running a day converges instead of accumulating.
type IngestService struct {
	snapshots  SnapshotStore
	dailyGains GainsStore
	logger     zerolog.Logger
	inflight   singleflight.Group
}

func NewIngestService(snapshots SnapshotStore, dailyGains GainsStore, logger zerolog.Logger) *IngestService {
	return &IngestService{
		snapshots:  snapshots,
		dailyGains: dailyGains,
		logger:     logger,
	}
}

// Ingest validates and stores the snapshot for the given day, then computes
// and stores gains against the previous stored day. Concurrent calls for the
// same day collapse into one execution; late callers block and receive the
// first caller's result.
func (s *IngestService) Ingest(ctx context.Context, date time.Time, entries []domain.PlayerRankEntry) ([]domain.DailyGainRecord, error) {
	if date.IsZero() {
		return nil, &IngestError{Date: date, Err: fmt.Errorf("ingestion date is required")}
	}
	day := domain.DateOf(date)

	if err := validateEntries(entries); err != nil {
		return nil, &IngestError{Date: day, Err: err}
	}

	result, err, shared := s.inflight.Do(domain.FormatDate(day), func() (any, error) {
		return s.ingest(ctx, day, entries)
	})
	if err != nil {
		return nil, &IngestError{Date: day, Err: err}
	}
	if shared {
		s.logger.Debug().Str("date", domain.FormatDate(day)).Msg("joined in-flight ingestion")
	}

	records, _ := result.([]domain.DailyGainRecord)
	return records, nil
}

func (s *IngestService) ingest(ctx context.Context, day time.Time, entries []domain.PlayerRankEntry) ([]domain.DailyGainRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.logger.Info().
		Str("date", domain.FormatDate(day)).
		Int("players", len(entries)).
		Msg("ingesting snapshot")

	snapshot := &domain.Snapshot{
		Date:       day,
		CapturedAt: time.Now().UTC(),
		Entries:    entries,
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	previous, err := s.snapshots.PreviousTo(ctx, day)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info().
			Str("date", domain.FormatDate(day)).
			Msg("no previous snapshot, nothing to diff against")
		if err := s.dailyGains.Save(ctx, day, nil); err != nil {
			return nil, fmt.Errorf("failed to save daily gains: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load previous snapshot: %w", err)
	}

	records, err := gains.Compute(previous, snapshot)
	if err != nil {
		return nil, err
	}

	if err := s.dailyGains.Save(ctx, day, records); err != nil {
		return nil, fmt.Errorf("failed to save daily gains: %w", err)
	}

	metrics.GainRecordsComputed.Add(float64(len(records)))

	s.logger.Info().
		Str("date", domain.FormatDate(day)).
		Str("previous", domain.FormatDate(previous.Date)).
		Int("gain_records", len(records)).
		Msg("snapshot ingested")
	return records, nil
}

// validateEntries rejects malformed standings before anything touches
// storage. The calculator can then trust its input.
func validateEntries(entries []domain.PlayerRankEntry) error {
	names := make(map[string]struct{}, len(entries))
	ranks := make(map[int]struct{}, len(entries))

	for _, entry := range entries {
		if entry.Name == "" {
			return domain.NewDataIntegrityError("entry at rank %d has an empty name", entry.Rank)
		}
		if _, ok := names[entry.Name]; ok {
			return domain.NewDataIntegrityError("duplicate player %q", entry.Name)
		}
		names[entry.Name] = struct{}{}

		if entry.Rank <= 0 {
			return domain.NewDataIntegrityError("player %q has non-positive rank %d", entry.Name, entry.Rank)
		}
		if _, ok := ranks[entry.Rank]; ok {
			return domain.NewDataIntegrityError("duplicate rank %d held by %q", entry.Rank, entry.Name)
		}
		ranks[entry.Rank] = struct{}{}

		if entry.Level < 0 {
			return domain.NewDataIntegrityError("player %q has negative level %d", entry.Name, entry.Level)
		}
		if entry.Experience < 0 {
			return domain.NewDataIntegrityError("player %q has negative experience %d", entry.Name, entry.Experience)
		}
	}
	return nil
}
