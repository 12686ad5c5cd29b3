package service

import (
	"context"
	"fmt"
	"time"

	"tibia-tracker/internal/constants"
	"tibia-tracker/internal/domain"
	"tibia-tracker/internal/metrics"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type ScrapeResult struct {
	Date    time.Time
	Players int
	Gains   int
}

// ScrapeService runs one full tracking cycle: fetch the highscores page,
// ingest it as today's snapshot, store the derived gains. A failed fetch
// aborts the cycle without touching stored state.
type ScrapeService struct {
	fetcher  EntryFetcher
	ingest   *IngestService
	logger   zerolog.Logger
	inflight singleflight.Group
}

func NewScrapeService(fetcher EntryFetcher, ingest *IngestService, logger zerolog.Logger) *ScrapeService {
	return &ScrapeService{
		fetcher: fetcher,
		ingest:  ingest,
		logger:  logger,
	}
}

// Run executes one cycle. Overlapping calls collapse into a single fetch;
// late callers block and share its outcome.
func (s *ScrapeService) Run(ctx context.Context) (ScrapeResult, error) {
	result, err, shared := s.inflight.Do("scrape", func() (any, error) {
		return s.run(ctx)
	})
	if shared {
		s.logger.Debug().Msg("joined in-flight scrape cycle")
	}
	if err != nil {
		return ScrapeResult{}, err
	}
	return result.(ScrapeResult), nil
}

func (s *ScrapeService) run(ctx context.Context) (ScrapeResult, error) {
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, constants.ScrapeTimeout)
	defer cancel()

	s.logger.Info().Msg("starting scrape cycle")

	fetchCtx, fetchCancel := context.WithTimeout(ctx, constants.FetchTimeout)
	defer fetchCancel()

	entries, err := s.fetcher.Fetch(fetchCtx)
	if err != nil {
		metrics.ScrapeCycles.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Msg("scrape cycle failed to fetch highscores")
		return ScrapeResult{}, fmt.Errorf("failed to fetch highscores: %w", err)
	}

	day := domain.Today()
	records, err := s.ingest.Ingest(ctx, day, entries)
	if err != nil {
		metrics.ScrapeCycles.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("date", domain.FormatDate(day)).Msg("scrape cycle failed to ingest")
		return ScrapeResult{}, err
	}

	metrics.ScrapeCycles.WithLabelValues("success").Inc()
	metrics.ScrapeDuration.Observe(time.Since(started).Seconds())
	metrics.PlayersScraped.Set(float64(len(entries)))

	result := ScrapeResult{Date: day, Players: len(entries), Gains: len(records)}
	s.logger.Info().
		Str("date", domain.FormatDate(day)).
		Int("players", result.Players).
		Int("gain_records", result.Gains).
		Dur("took", time.Since(started)).
		Msg("scrape cycle completed")
	return result, nil
}

// RunAsync starts a cycle in the background and returns its run id right
// away. Callers observe completion through the query endpoints.
func (s *ScrapeService) RunAsync() (string, error) {
	runID, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate run id: %w", err)
	}

	logger := s.logger.With().Str("run_id", runID).Logger()

	g := new(errgroup.Group)
	g.Go(func() error {
		result, err := s.Run(context.Background())
		if err != nil {
			return err
		}
		logger.Info().
			Str("date", domain.FormatDate(result.Date)).
			Int("players", result.Players).
			Int("gain_records", result.Gains).
			Msg("manual scrape run completed")
		return nil
	})

	go func() {
		if err := g.Wait(); err != nil {
			logger.Error().Err(err).Msg("manual scrape run failed")
		}
	}()

	logger.Info().Msg("manual scrape run started")
	return runID, nil
}
