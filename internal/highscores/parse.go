package highscores

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"tibia-tracker/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// The page renders the ranking as a table with class Table3. Cell layout per
// row: 0 rank ("1."), 1 flag image, 2 player name inside an anchor,
// 3 vocation, 4 level, 5 experience with thousands separators.
const (
	tableSelector = "table.Table3"
	minRowCells   = 6
)

// Parse extracts rank entries from a highscores page. Rows that do not parse
// are skipped with a warning so one mangled row cannot sink a whole scrape.
func Parse(r io.Reader, logger zerolog.Logger) ([]domain.PlayerRankEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse highscores html: %w", err)
	}

	table := doc.Find(tableSelector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("highscores table %q not found in page", tableSelector)
	}

	var entries []domain.PlayerRankEntry
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}

		entry, err := parseRow(row)
		if err != nil {
			logger.Warn().Err(err).Int("row", i).Msg("skipping malformed highscores row")
			return
		}
		entries = append(entries, entry)
	})

	return entries, nil
}

func parseRow(row *goquery.Selection) (domain.PlayerRankEntry, error) {
	cells := row.Find("td")
	if cells.Length() < minRowCells {
		return domain.PlayerRankEntry{}, fmt.Errorf("expected at least %d cells, got %d", minRowCells, cells.Length())
	}

	rankText := strings.ReplaceAll(cellText(cells, 0), ".", "")
	rank, err := strconv.Atoi(rankText)
	if err != nil {
		return domain.PlayerRankEntry{}, fmt.Errorf("bad rank %q: %w", rankText, err)
	}
	if rank <= 0 {
		return domain.PlayerRankEntry{}, fmt.Errorf("non-positive rank %d", rank)
	}

	nameCell := cells.Eq(2)
	name := strings.TrimSpace(nameCell.Find("a").First().Text())
	if name == "" {
		name = strings.TrimSpace(nameCell.Text())
	}
	if name == "" {
		return domain.PlayerRankEntry{}, fmt.Errorf("empty player name at rank %d", rank)
	}

	level, err := strconv.Atoi(cellText(cells, 4))
	if err != nil {
		return domain.PlayerRankEntry{}, fmt.Errorf("bad level for %q: %w", name, err)
	}

	expText := digitsOnly(cellText(cells, 5))
	experience, err := strconv.ParseInt(expText, 10, 64)
	if err != nil {
		return domain.PlayerRankEntry{}, fmt.Errorf("bad experience for %q: %w", name, err)
	}

	return domain.PlayerRankEntry{
		Rank:       rank,
		Name:       name,
		Vocation:   cellText(cells, 3),
		Level:      level,
		Experience: experience,
	}, nil
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
