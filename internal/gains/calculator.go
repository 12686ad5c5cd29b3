// Package gains derives day-over-day player progress from two consecutive
// highscores snapshots. It is pure computation: no storage, no clock, no
// side effects.
package gains

import (
	"tibia-tracker/internal/domain"
)

// Compute diffs the current snapshot against the previous one and returns one
// gain record per player present in both. Players appearing only in current
// have no baseline and are skipped; players appearing only in previous
// dropped off the highscores and are omitted. Deltas are signed and never
// clamped, so experience rollbacks show up as negative gains. Output order
// follows the current snapshot's entry order.
//
// Duplicate player names in either snapshot violate the model and fail the
// whole computation.
func Compute(previous, current *domain.Snapshot) ([]domain.DailyGainRecord, error) {
	baseline := make(map[string]domain.PlayerRankEntry, len(previous.Entries))
	for _, entry := range previous.Entries {
		if _, ok := baseline[entry.Name]; ok {
			return nil, domain.NewDataIntegrityError("duplicate player %q in snapshot %s", entry.Name, domain.FormatDate(previous.Date))
		}
		baseline[entry.Name] = entry
	}

	seen := make(map[string]struct{}, len(current.Entries))
	records := make([]domain.DailyGainRecord, 0, len(current.Entries))
	for _, entry := range current.Entries {
		if _, ok := seen[entry.Name]; ok {
			return nil, domain.NewDataIntegrityError("duplicate player %q in snapshot %s", entry.Name, domain.FormatDate(current.Date))
		}
		seen[entry.Name] = struct{}{}

		start, ok := baseline[entry.Name]
		if !ok {
			continue
		}

		records = append(records, domain.DailyGainRecord{
			Date:              current.Date,
			PlayerName:        entry.Name,
			Rank:              entry.Rank,
			CurrentLevel:      entry.Level,
			CurrentExperience: entry.Experience,
			StartLevel:        start.Level,
			StartExperience:   start.Experience,
			ExpGained:         entry.Experience - start.Experience,
			LevelGained:       entry.Level - start.Level,
		})
	}

	return records, nil
}
