package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tibia-tracker/internal/constants"
	"tibia-tracker/internal/domain"
	"tibia-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const apiVersion = "1.0.0"

type TrackerServer struct {
	querySvc  *service.QueryService
	scrapeSvc *service.ScrapeService
	db        *sql.DB
}

func NewTrackerServer(querySvc *service.QueryService, scrapeSvc *service.ScrapeService, db *sql.DB) *TrackerServer {
	return &TrackerServer{querySvc: querySvc, scrapeSvc: scrapeSvc, db: db}
}

func (s *TrackerServer) RegisterRoutes(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/players", func(r chi.Router) {
		r.Get("/current", s.handleCurrentRanking)
		r.Get("/daily-gains", s.handleDailyGains)
		r.Get("/{playerName}/history", s.handlePlayerHistory)
	})

	r.Post("/scrape/manual", s.handleManualScrape)
	r.Get("/stats/top-gainers", s.handleTopGainers)
}

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

type playerEntry struct {
	Rank       int    `json:"rank"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Experience int64  `json:"experience"`
	Vocation   string `json:"vocation"`
}

type dailyGainEntry struct {
	Name              string `json:"name"`
	CurrentLevel      int    `json:"current_level"`
	CurrentExperience int64  `json:"current_experience"`
	ExpGainedToday    int64  `json:"exp_gained_today"`
	LevelGainedToday  int    `json:"level_gained_today"`
	Rank              int    `json:"rank"`
}

type historyEntry struct {
	Date        string `json:"date"`
	Level       int    `json:"level"`
	Experience  int64  `json:"experience"`
	ExpGained   int64  `json:"exp_gained"`
	LevelGained int    `json:"level_gained"`
}

type topGainerEntry struct {
	Name              string `json:"name"`
	TotalExpGained    int64  `json:"total_exp_gained"`
	TotalLevelsGained int    `json:"total_levels_gained"`
	DaysTracked       int    `json:"days_tracked"`
	AvgDailyExp       int64  `json:"avg_daily_exp"`
}

type scrapeAcceptedResponse struct {
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *TrackerServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, rootResponse{Message: "Tibia Tracker API", Version: apiVersion})
}

func (s *TrackerServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check failed to ping database")
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unreachable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *TrackerServer) handleCurrentRanking(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	snapshot, err := s.querySvc.CurrentRanking(r.Context())
	if errors.Is(err, service.ErrNoDataAvailable) {
		respondJSON(w, http.StatusOK, []playerEntry{})
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to load current ranking")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load current ranking"})
		return
	}

	entries := make([]playerEntry, 0, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		vocation := entry.Vocation
		if vocation == "" {
			vocation = "Unknown"
		}
		entries = append(entries, playerEntry{
			Rank:       entry.Rank,
			Name:       entry.Name,
			Level:      entry.Level,
			Experience: entry.Experience,
			Vocation:   vocation,
		})
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *TrackerServer) handleDailyGains(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var date time.Time
	if ds := r.URL.Query().Get("date"); ds != "" {
		parsed, err := domain.ParseDate(ds)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid date, expected YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	records, err := s.querySvc.DailyGains(r.Context(), date)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load daily gains")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load daily gains"})
		return
	}

	entries := make([]dailyGainEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, dailyGainEntry{
			Name:              record.PlayerName,
			CurrentLevel:      record.CurrentLevel,
			CurrentExperience: record.CurrentExperience,
			ExpGainedToday:    record.ExpGained,
			LevelGainedToday:  record.LevelGained,
			Rank:              record.Rank,
		})
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *TrackerServer) handlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	name := chi.URLParam(r, "playerName")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "player name is required"})
		return
	}

	days, ok := intQuery(w, r, "days")
	if !ok {
		return
	}

	records, err := s.querySvc.PlayerHistory(r.Context(), name, days)
	if err != nil {
		logger.Error().Err(err).Str("player", name).Msg("failed to load player history")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load player history"})
		return
	}

	entries := make([]historyEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, historyEntry{
			Date:        domain.FormatDate(record.Date),
			Level:       record.CurrentLevel,
			Experience:  record.CurrentExperience,
			ExpGained:   record.ExpGained,
			LevelGained: record.LevelGained,
		})
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *TrackerServer) handleManualScrape(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	runID, err := s.scrapeSvc.RunAsync()
	if err != nil {
		logger.Error().Err(err).Msg("failed to start manual scrape")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to start manual scrape"})
		return
	}

	respondJSON(w, http.StatusAccepted, scrapeAcceptedResponse{
		Message: "manual scrape started in background",
		RunID:   runID,
	})
}

func (s *TrackerServer) handleTopGainers(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	days, ok := intQuery(w, r, "days")
	if !ok {
		return
	}
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}

	gainers, err := s.querySvc.TopGainers(r.Context(), days, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load top gainers")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load top gainers"})
		return
	}

	entries := make([]topGainerEntry, 0, len(gainers))
	for _, gainer := range gainers {
		entries = append(entries, topGainerEntry{
			Name:              gainer.Name,
			TotalExpGained:    gainer.TotalExpGained,
			TotalLevelsGained: gainer.TotalLevelsGained,
			DaysTracked:       gainer.DaysTracked,
			AvgDailyExp:       gainer.AvgDailyExp,
		})
	}
	respondJSON(w, http.StatusOK, entries)
}

// intQuery reads an optional non-negative integer query parameter. Zero means
// absent; the services apply their own defaults.
func intQuery(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + key + " parameter"})
		return 0, false
	}
	return v, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
