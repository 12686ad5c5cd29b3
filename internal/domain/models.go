package domain

import (
	"time"
)

type PlayerRankEntry struct {
	Rank       int    // position on the highscores page, 1 is best
	Name       string // unique within a snapshot
	Vocation   string
	Level      int
	Experience int64
}

type Snapshot struct {
	Date       time.Time // calendar day, midnight UTC, one snapshot per day
	CapturedAt time.Time
	Entries    []PlayerRankEntry // page order, rank ascending
}

type DailyGainRecord struct {
	Date              time.Time
	PlayerName        string
	Rank              int // rank in the day's snapshot
	CurrentLevel      int
	CurrentExperience int64
	StartLevel        int
	StartExperience   int64
	ExpGained         int64 // signed, rollbacks stay negative
	LevelGained       int
}

type TopGainer struct {
	Name              string
	TotalExpGained    int64
	TotalLevelsGained int
	DaysTracked       int
	AvgDailyExp       int64
}
