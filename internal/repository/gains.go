package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tibia-tracker/internal/constants"
	"tibia-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type GainsRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGainsRepository(sqlDB *sql.DB, logger zerolog.Logger) *GainsRepository {
	return &GainsRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Save replaces the gain records stored for the given day with the provided
// set. An empty set clears the day, which keeps re-ingestion idempotent.
func (r *GainsRepository) Save(ctx context.Context, date time.Time, records []domain.DailyGainRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("gains save", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	day := domain.FormatDate(date)

	if _, err := tx.ExecContext(ctx, "DELETE FROM daily_gains WHERE date = ?", day); err != nil {
		return persistErr("gains save", fmt.Errorf("failed to clear gains for %s: %w", day, err))
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_gains (date, name, rank, level, experience, start_level, start_experience, exp_gained, level_gained)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return persistErr("gains save", fmt.Errorf("failed to prepare gain insert: %w", err))
	}
	defer stmt.Close()

	for i := 0; i < len(records); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(records) {
			end = len(records)
		}

		for _, record := range records[i:end] {
			if _, err := stmt.ExecContext(ctx,
				day,
				record.PlayerName,
				int64(record.Rank),
				int64(record.CurrentLevel),
				record.CurrentExperience,
				int64(record.StartLevel),
				record.StartExperience,
				record.ExpGained,
				int64(record.LevelGained),
			); err != nil {
				return persistErr("gains save", fmt.Errorf("failed to insert gain for %s: %w", record.PlayerName, err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return persistErr("gains save", fmt.Errorf("failed to commit: %w", err))
	}

	r.logger.Debug().
		Str("date", day).
		Int("records", len(records)).
		Msg("daily gains saved")
	return nil
}

// GetByDate returns the day's gain records ordered by snapshot rank. An empty
// result is a valid answer, not an error.
func (r *GainsRepository) GetByDate(ctx context.Context, date time.Time) ([]domain.DailyGainRecord, error) {
	return r.query(ctx, "gains by date",
		`SELECT date, name, rank, level, experience, start_level, start_experience, exp_gained, level_gained
		 FROM daily_gains WHERE date = ? ORDER BY rank ASC`,
		domain.FormatDate(date))
}

// GetByPlayer returns the player's gain records inside the days-long window
// ending at the given day, oldest first. Unknown players yield an empty slice.
func (r *GainsRepository) GetByPlayer(ctx context.Context, name string, until time.Time, days int) ([]domain.DailyGainRecord, error) {
	from := domain.DateOf(until).AddDate(0, 0, -(days - 1))
	return r.query(ctx, "gains by player",
		`SELECT date, name, rank, level, experience, start_level, start_experience, exp_gained, level_gained
		 FROM daily_gains WHERE name = ? AND date >= ? AND date <= ? ORDER BY date ASC`,
		name, domain.FormatDate(from), domain.FormatDate(until))
}

// GetByDateRange returns every gain record with from <= date <= to, ordered
// by date then rank. It feeds the top-gainers aggregation.
func (r *GainsRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]domain.DailyGainRecord, error) {
	return r.query(ctx, "gains by range",
		`SELECT date, name, rank, level, experience, start_level, start_experience, exp_gained, level_gained
		 FROM daily_gains WHERE date >= ? AND date <= ? ORDER BY date ASC, rank ASC`,
		domain.FormatDate(from), domain.FormatDate(to))
}

func (r *GainsRepository) query(ctx context.Context, op, query string, args ...any) ([]domain.DailyGainRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr(op, fmt.Errorf("failed to query gains: %w", err))
	}
	defer rows.Close()

	var records []domain.DailyGainRecord
	for rows.Next() {
		record, err := scanGain(rows)
		if err != nil {
			return nil, persistErr(op, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(op, fmt.Errorf("failed to iterate gains: %w", err))
	}
	return records, nil
}

func scanGain(rows *sql.Rows) (domain.DailyGainRecord, error) {
	var (
		dateStr     string
		rank        int64
		level       int64
		startLevel  int64
		levelGained int64
		record      domain.DailyGainRecord
	)
	if err := rows.Scan(
		&dateStr,
		&record.PlayerName,
		&rank,
		&level,
		&record.CurrentExperience,
		&startLevel,
		&record.StartExperience,
		&record.ExpGained,
		&levelGained,
	); err != nil {
		return domain.DailyGainRecord{}, fmt.Errorf("failed to scan gain row: %w", err)
	}

	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return domain.DailyGainRecord{}, fmt.Errorf("stored date %q is malformed: %w", dateStr, err)
	}

	record.Date = date
	record.Rank = int(rank)
	record.CurrentLevel = int(level)
	record.StartLevel = int(startLevel)
	record.LevelGained = int(levelGained)
	return record, nil
}
