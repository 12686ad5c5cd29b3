package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tibia-tracker/internal/constants"
	"tibia-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryFixture() (*QueryService, *fakeSnapshotStore, *fakeGainsStore) {
	snapshots := newFakeSnapshotStore()
	gainsStore := newFakeGainsStore()
	return NewQueryService(snapshots, gainsStore, zerolog.Nop()), snapshots, gainsStore
}

func seedSnapshot(t *testing.T, store *fakeSnapshotStore, date string, entries ...domain.PlayerRankEntry) {
	t.Helper()
	err := store.Save(context.Background(), &domain.Snapshot{
		Date:       day(date),
		CapturedAt: day(date).Add(time.Minute),
		Entries:    entries,
	})
	require.NoError(t, err)
}

func seedGains(t *testing.T, store *fakeGainsStore, date string, records ...domain.DailyGainRecord) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), day(date), records))
}

func gainRecord(date, name string, rank int, expGained int64, levelGained int) domain.DailyGainRecord {
	return domain.DailyGainRecord{
		Date:        day(date),
		PlayerName:  name,
		Rank:        rank,
		ExpGained:   expGained,
		LevelGained: levelGained,
	}
}

func TestCurrentRankingEmptyStore(t *testing.T) {
	svc, _, _ := newQueryFixture()

	_, err := svc.CurrentRanking(context.Background())
	assert.ErrorIs(t, err, ErrNoDataAvailable)
}

func TestCurrentRankingReturnsLatest(t *testing.T) {
	svc, snapshots, _ := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-01", entry(1, "Old", 100, 1000))
	seedSnapshot(t, snapshots, "2025-01-02", entry(1, "Alice", 101, 2000), entry(2, "Bob", 90, 900))

	snapshot, err := svc.CurrentRanking(context.Background())
	require.NoError(t, err)
	assert.Equal(t, day("2025-01-02"), snapshot.Date)
	require.Len(t, snapshot.Entries, 2)
	assert.Equal(t, "Alice", snapshot.Entries[0].Name)
}

func TestDailyGainsDefaultsToToday(t *testing.T) {
	svc, _, gainsStore := newQueryFixture()
	today := domain.FormatDate(domain.Today())
	seedGains(t, gainsStore, today, gainRecord(today, "Alice", 1, 500, 0))

	records, err := svc.DailyGains(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alice", records[0].PlayerName)
}

func TestDailyGainsEmptyDayIsValid(t *testing.T) {
	svc, _, _ := newQueryFixture()

	records, err := svc.DailyGains(context.Background(), day("2025-01-02"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDailyGainsRankOrder(t *testing.T) {
	svc, _, gainsStore := newQueryFixture()
	seedGains(t, gainsStore, "2025-01-02",
		gainRecord("2025-01-02", "Third", 3, 9_000, 0),
		gainRecord("2025-01-02", "First", 1, 100, 0),
		gainRecord("2025-01-02", "Second", 2, 5_000, 0),
	)

	records, err := svc.DailyGains(context.Background(), day("2025-01-02"))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "First", records[0].PlayerName)
	assert.Equal(t, "Second", records[1].PlayerName)
	assert.Equal(t, "Third", records[2].PlayerName)
}

func TestPlayerHistoryWindow(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-10", entry(1, "Alice", 110, 10_000))

	// ten days of records, only the trailing window must come back
	for i := 1; i <= 10; i++ {
		date := domain.FormatDate(day("2025-01-01").AddDate(0, 0, i-1))
		seedGains(t, gainsStore, date, gainRecord(date, "Alice", 1, int64(i*100), 0))
	}

	records, err := svc.PlayerHistory(context.Background(), "Alice", 7)
	require.NoError(t, err)
	require.Len(t, records, 7)

	assert.Equal(t, day("2025-01-04"), records[0].Date, "window starts seven days before the latest ingested day")
	assert.Equal(t, day("2025-01-10"), records[6].Date)
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].Date.Before(records[i].Date), "history must be ordered oldest first")
	}
}

func TestPlayerHistoryDefaultDays(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-10", entry(1, "Alice", 110, 10_000))
	for i := 1; i <= 10; i++ {
		date := domain.FormatDate(day("2025-01-01").AddDate(0, 0, i-1))
		seedGains(t, gainsStore, date, gainRecord(date, "Alice", 1, 100, 0))
	}

	records, err := svc.PlayerHistory(context.Background(), "Alice", 0)
	require.NoError(t, err)
	assert.Len(t, records, constants.DefaultHistoryDays)
}

func TestPlayerHistoryUnknownPlayer(t *testing.T) {
	svc, snapshots, _ := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-10", entry(1, "Alice", 110, 10_000))

	records, err := svc.PlayerHistory(context.Background(), "Nobody", 7)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPlayerHistoryEmptyStore(t *testing.T) {
	svc, _, _ := newQueryFixture()

	records, err := svc.PlayerHistory(context.Background(), "Alice", 7)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTopGainersAggregation(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-03", entry(1, "Alice", 103, 30_000))

	seedGains(t, gainsStore, "2025-01-01",
		gainRecord("2025-01-01", "Alice", 1, 1_000, 1),
		gainRecord("2025-01-01", "Bob", 2, 5_000, 0),
	)
	seedGains(t, gainsStore, "2025-01-02",
		gainRecord("2025-01-02", "Alice", 1, 2_000, 0),
		gainRecord("2025-01-02", "Bob", 2, 2_000, 1),
	)
	seedGains(t, gainsStore, "2025-01-03",
		gainRecord("2025-01-03", "Alice", 1, 3_000, 1),
	)

	gainers, err := svc.TopGainers(context.Background(), 3, 20)
	require.NoError(t, err)
	require.Len(t, gainers, 2)

	assert.Equal(t, "Bob", gainers[0].Name)
	assert.Equal(t, int64(7_000), gainers[0].TotalExpGained)
	assert.Equal(t, 1, gainers[0].TotalLevelsGained)
	assert.Equal(t, 2, gainers[0].DaysTracked)
	assert.Equal(t, int64(3_500), gainers[0].AvgDailyExp)

	assert.Equal(t, "Alice", gainers[1].Name)
	assert.Equal(t, int64(6_000), gainers[1].TotalExpGained)
	assert.Equal(t, 2, gainers[1].TotalLevelsGained)
	assert.Equal(t, 3, gainers[1].DaysTracked)
	assert.Equal(t, int64(2_000), gainers[1].AvgDailyExp)
}

func TestTopGainersNameTieBreak(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-01", entry(1, "Zed", 100, 1000))
	seedGains(t, gainsStore, "2025-01-01",
		gainRecord("2025-01-01", "Zed", 1, 1_000, 0),
		gainRecord("2025-01-01", "Ann", 2, 1_000, 0),
		gainRecord("2025-01-01", "Mid", 3, 1_000, 0),
	)

	gainers, err := svc.TopGainers(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, gainers, 3)
	assert.Equal(t, "Ann", gainers[0].Name)
	assert.Equal(t, "Mid", gainers[1].Name)
	assert.Equal(t, "Zed", gainers[2].Name)
}

func TestTopGainersWindowContainment(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-10", entry(1, "Alice", 110, 10_000))

	seedGains(t, gainsStore, "2025-01-01", gainRecord("2025-01-01", "Alice", 1, 1_000_000, 0))
	seedGains(t, gainsStore, "2025-01-10", gainRecord("2025-01-10", "Alice", 1, 500, 0))

	gainers, err := svc.TopGainers(context.Background(), 3, 20)
	require.NoError(t, err)
	require.Len(t, gainers, 1)
	assert.Equal(t, int64(500), gainers[0].TotalExpGained, "records outside the window must not leak in")
	assert.Equal(t, 1, gainers[0].DaysTracked)
}

func TestTopGainersWideningWindowMonotonic(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-05", entry(1, "Alice", 105, 5_000))
	for i := 1; i <= 5; i++ {
		date := domain.FormatDate(day("2025-01-01").AddDate(0, 0, i-1))
		seedGains(t, gainsStore, date, gainRecord(date, "Alice", 1, int64(i*10), 0))
	}

	narrow, err := svc.TopGainers(context.Background(), 1, 20)
	require.NoError(t, err)
	wide, err := svc.TopGainers(context.Background(), 5, 20)
	require.NoError(t, err)

	require.Len(t, narrow, 1)
	require.Len(t, wide, 1)
	assert.GreaterOrEqual(t, wide[0].TotalExpGained, narrow[0].TotalExpGained,
		"a wider window over non-negative days can only grow the total")
}

func TestTopGainersNegativeTotalsIncluded(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-01", entry(1, "Rollback", 100, 1000))
	seedGains(t, gainsStore, "2025-01-01",
		gainRecord("2025-01-01", "Rollback", 1, -5_000, -1),
		gainRecord("2025-01-01", "Gainer", 2, 100, 0),
	)

	gainers, err := svc.TopGainers(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, gainers, 2)
	assert.Equal(t, "Gainer", gainers[0].Name)
	assert.Equal(t, "Rollback", gainers[1].Name)
	assert.Equal(t, int64(-5_000), gainers[1].TotalExpGained)
}

func TestTopGainersAverageRounding(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-02", entry(1, "Alice", 100, 1000))
	seedGains(t, gainsStore, "2025-01-01", gainRecord("2025-01-01", "Alice", 1, 100, 0))
	seedGains(t, gainsStore, "2025-01-02", gainRecord("2025-01-02", "Alice", 1, 101, 0))

	gainers, err := svc.TopGainers(context.Background(), 2, 20)
	require.NoError(t, err)
	require.Len(t, gainers, 1)
	assert.Equal(t, int64(101), gainers[0].AvgDailyExp, "201/2 rounds half away from zero")
}

func TestTopGainersLimitClamped(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-01", entry(1, "P000", 100, 1000))

	records := make([]domain.DailyGainRecord, 0, constants.MaxTopGainersLimit+20)
	for i := 0; i < constants.MaxTopGainersLimit+20; i++ {
		records = append(records, gainRecord("2025-01-01", fmt.Sprintf("P%03d", i), i+1, int64(i), 0))
	}
	seedGains(t, gainsStore, "2025-01-01", records...)

	gainers, err := svc.TopGainers(context.Background(), 1, constants.MaxTopGainersLimit+50)
	require.NoError(t, err)
	assert.Len(t, gainers, constants.MaxTopGainersLimit)
}

func TestTopGainersDefaultLimit(t *testing.T) {
	svc, snapshots, gainsStore := newQueryFixture()
	seedSnapshot(t, snapshots, "2025-01-01", entry(1, "P000", 100, 1000))

	records := make([]domain.DailyGainRecord, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, gainRecord("2025-01-01", fmt.Sprintf("P%03d", i), i+1, int64(i), 0))
	}
	seedGains(t, gainsStore, "2025-01-01", records...)

	gainers, err := svc.TopGainers(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, gainers, constants.DefaultTopGainersLimit)
}

func TestTopGainersEmptyStore(t *testing.T) {
	svc, _, _ := newQueryFixture()

	gainers, err := svc.TopGainers(context.Background(), 7, 20)
	require.NoError(t, err)
	assert.Empty(t, gainers)
}
