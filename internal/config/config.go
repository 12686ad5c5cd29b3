package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	HighscoresURL string
	DBPath        string
	ServerPort    string
	LogLevel      string
	ScrapeAt      string // HH:MM, UTC
	ScrapeHour    int
	ScrapeMinute  int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		HighscoresURL: getEnv("HIGHSCORES_URL", "https://rexis.soerpg.com/sub.php?page=highscores"),
		DBPath:        getEnv("DB_PATH", "tibia_tracker.db"),
		ServerPort:    getEnv("SERVER_PORT", "8000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ScrapeAt:      getEnv("SCRAPE_AT", "00:01"),
	}

	if cfg.HighscoresURL == "" {
		return nil, fmt.Errorf("HIGHSCORES_URL is required")
	}

	at, err := time.Parse("15:04", cfg.ScrapeAt)
	if err != nil {
		return nil, fmt.Errorf("SCRAPE_AT must be HH:MM, got %q: %w", cfg.ScrapeAt, err)
	}
	cfg.ScrapeHour = at.Hour()
	cfg.ScrapeMinute = at.Minute()

	logger.Info().
		Str("highscores_url", cfg.HighscoresURL).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("scrape_at", cfg.ScrapeAt).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
