package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"tibia-tracker/internal/domain"
	"tibia-tracker/internal/repository"
)

// fakeSnapshotStore implements SnapshotStore in memory for testing
type fakeSnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]*domain.Snapshot
	saveCalls int
	saveDelay time.Duration
	saveErr   error
	loadErr   error
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{snapshots: make(map[string]*domain.Snapshot)}
}

func (f *fakeSnapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if f.saveDelay > 0 {
		time.Sleep(f.saveDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saveCalls++

	copied := *snapshot
	copied.Entries = append([]domain.PlayerRankEntry(nil), snapshot.Entries...)
	f.snapshots[domain.FormatDate(snapshot.Date)] = &copied
	return nil
}

func (f *fakeSnapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}

	best := ""
	for date := range f.snapshots {
		if date > best {
			best = date
		}
	}
	if best == "" {
		return nil, repository.ErrNotFound
	}
	return f.snapshots[best], nil
}

func (f *fakeSnapshotStore) PreviousTo(ctx context.Context, date time.Time) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}

	limit := domain.FormatDate(date)
	best := ""
	for stored := range f.snapshots {
		if stored < limit && stored > best {
			best = stored
		}
	}
	if best == "" {
		return nil, repository.ErrNotFound
	}
	return f.snapshots[best], nil
}

func (f *fakeSnapshotStore) Get(ctx context.Context, date time.Time) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}

	snapshot, ok := f.snapshots[domain.FormatDate(date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return snapshot, nil
}

// fakeGainsStore implements GainsStore in memory for testing
type fakeGainsStore struct {
	mu        sync.Mutex
	byDate    map[string][]domain.DailyGainRecord
	saveCalls int
	saveErr   error
	loadErr   error
}

func newFakeGainsStore() *fakeGainsStore {
	return &fakeGainsStore{byDate: make(map[string][]domain.DailyGainRecord)}
}

func (f *fakeGainsStore) Save(ctx context.Context, date time.Time, records []domain.DailyGainRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saveCalls++
	f.byDate[domain.FormatDate(date)] = append([]domain.DailyGainRecord(nil), records...)
	return nil
}

func (f *fakeGainsStore) GetByDate(ctx context.Context, date time.Time) ([]domain.DailyGainRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}

	records := append([]domain.DailyGainRecord(nil), f.byDate[domain.FormatDate(date)]...)
	sort.Slice(records, func(i, j int) bool { return records[i].Rank < records[j].Rank })
	return records, nil
}

func (f *fakeGainsStore) GetByPlayer(ctx context.Context, name string, until time.Time, days int) ([]domain.DailyGainRecord, error) {
	from := domain.DateOf(until).AddDate(0, 0, -(days - 1))
	records, err := f.GetByDateRange(ctx, from, until)
	if err != nil {
		return nil, err
	}

	var filtered []domain.DailyGainRecord
	for _, record := range records {
		if record.PlayerName == name {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

func (f *fakeGainsStore) GetByDateRange(ctx context.Context, from, to time.Time) ([]domain.DailyGainRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}

	fromStr, toStr := domain.FormatDate(from), domain.FormatDate(to)
	var records []domain.DailyGainRecord
	for date, dayRecords := range f.byDate {
		if date >= fromStr && date <= toStr {
			records = append(records, dayRecords...)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].Rank < records[j].Rank
	})
	return records, nil
}

// fakeFetcher implements EntryFetcher for testing
type fakeFetcher struct {
	mu      sync.Mutex
	entries []domain.PlayerRankEntry
	err     error
	delay   time.Duration
	calls   int
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]domain.PlayerRankEntry, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.PlayerRankEntry(nil), f.entries...), nil
}

func (f *fakeFetcher) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
