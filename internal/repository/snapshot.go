package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tibia-tracker/internal/constants"
	"tibia-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSnapshotRepository(sqlDB *sql.DB, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Save stores the snapshot for its calendar day, replacing any snapshot
// already stored for that day. The delete and all inserts run in one
// transaction, so readers never observe a partially written snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("snapshot save", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	date := domain.FormatDate(snapshot.Date)

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_entries WHERE date = ?", date); err != nil {
		return persistErr("snapshot save", fmt.Errorf("failed to clear entries for %s: %w", date, err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE date = ?", date); err != nil {
		return persistErr("snapshot save", fmt.Errorf("failed to clear snapshot for %s: %w", date, err))
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (date, captured_at) VALUES (?, ?)",
		date, snapshot.CapturedAt.UTC(),
	); err != nil {
		return persistErr("snapshot save", fmt.Errorf("failed to insert snapshot for %s: %w", date, err))
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshot_entries (date, rank, name, vocation, level, experience) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return persistErr("snapshot save", fmt.Errorf("failed to prepare entry insert: %w", err))
	}
	defer stmt.Close()

	for i := 0; i < len(snapshot.Entries); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(snapshot.Entries) {
			end = len(snapshot.Entries)
		}

		for _, entry := range snapshot.Entries[i:end] {
			if _, err := stmt.ExecContext(ctx,
				date,
				int64(entry.Rank),
				entry.Name,
				entry.Vocation,
				int64(entry.Level),
				entry.Experience,
			); err != nil {
				return persistErr("snapshot save", fmt.Errorf("failed to insert entry %s: %w", entry.Name, err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return persistErr("snapshot save", fmt.Errorf("failed to commit: %w", err))
	}

	r.logger.Debug().
		Str("date", date).
		Int("entries", len(snapshot.Entries)).
		Msg("snapshot saved")
	return nil
}

// Latest returns the most recent snapshot by date, or ErrNotFound when
// nothing has been ingested yet.
func (r *SnapshotRepository) Latest(ctx context.Context) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT date, captured_at FROM snapshots ORDER BY date DESC LIMIT 1")
	return r.scanSnapshot(ctx, "snapshot latest", row)
}

// PreviousTo returns the most recent snapshot strictly before the given day,
// or ErrNotFound when none exists.
func (r *SnapshotRepository) PreviousTo(ctx context.Context, date time.Time) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT date, captured_at FROM snapshots WHERE date < ? ORDER BY date DESC LIMIT 1",
		domain.FormatDate(date))
	return r.scanSnapshot(ctx, "snapshot previous", row)
}

// Get returns the snapshot for the exact day, or ErrNotFound.
func (r *SnapshotRepository) Get(ctx context.Context, date time.Time) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT date, captured_at FROM snapshots WHERE date = ?",
		domain.FormatDate(date))
	return r.scanSnapshot(ctx, "snapshot get", row)
}

func (r *SnapshotRepository) scanSnapshot(ctx context.Context, op string, row *sql.Row) (*domain.Snapshot, error) {
	var (
		dateStr    string
		capturedAt time.Time
	)
	err := row.Scan(&dateStr, &capturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr(op, fmt.Errorf("failed to scan snapshot row: %w", err))
	}

	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return nil, persistErr(op, fmt.Errorf("stored date %q is malformed: %w", dateStr, err))
	}

	entries, err := r.loadEntries(ctx, op, dateStr)
	if err != nil {
		return nil, err
	}

	return &domain.Snapshot{
		Date:       date,
		CapturedAt: capturedAt,
		Entries:    entries,
	}, nil
}

func (r *SnapshotRepository) loadEntries(ctx context.Context, op, date string) ([]domain.PlayerRankEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT rank, name, vocation, level, experience FROM snapshot_entries WHERE date = ? ORDER BY rank ASC",
		date)
	if err != nil {
		return nil, persistErr(op, fmt.Errorf("failed to query entries: %w", err))
	}
	defer rows.Close()

	var entries []domain.PlayerRankEntry
	for rows.Next() {
		var (
			rank  int64
			level int64
			entry domain.PlayerRankEntry
		)
		if err := rows.Scan(&rank, &entry.Name, &entry.Vocation, &level, &entry.Experience); err != nil {
			return nil, persistErr(op, fmt.Errorf("failed to scan entry row: %w", err))
		}
		entry.Rank = int(rank)
		entry.Level = int(level)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(op, fmt.Errorf("failed to iterate entries: %w", err))
	}
	return entries, nil
}
