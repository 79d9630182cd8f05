package nfl

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nealgriffin/gridiron/internal/logger"
	"github.com/nealgriffin/gridiron/pkg/transport"
)

const (
	nflverseReleaseURL = "https://github.com/nflverse/nflverse-data/releases/tag/player_stats"
	nflverseStatsURL   = "https://github.com/nflverse/nflverse-data/releases/download/player_stats/player_stats_%d.csv"
	nflverseGamesURL   = "https://github.com/nflverse/nfldata/raw/master/data/games.csv"
)

// Provider supplies raw stat and schedule rows for import
type Provider interface {
	WeeklyStats(season int) ([]Row, error)
	Schedules() ([]Row, error)
}

// NflverseProvider fetches the published nflverse CSV dumps, caching each
// download on disk so repeated runs in a week cost one fetch
type NflverseProvider struct {
	cachePath string
}

func NewNflverseProvider(cachePath string) *NflverseProvider {
	return &NflverseProvider{cachePath: cachePath}
}

// fetchCached returns the body at url, reading the cache file when present
// and writing it after a successful fetch
func (p *NflverseProvider) fetchCached(url, cacheFile string) (string, error) {
	path := filepath.Join(p.cachePath, cacheFile)
	if data, err := os.ReadFile(path); err == nil {
		logger.Debug("Using cached download", path)
		return string(data), nil
	}

	body, err := transport.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if err := os.MkdirAll(p.cachePath, 0o755); err == nil {
		if err := os.WriteFile(path, body, 0o644); err != nil {
			logger.Warn("Failed to cache download", path, err)
		}
	}
	return string(body), nil
}

// statsURL discovers the per-season stats asset from the release page,
// falling back to the conventional download path when the page is
// unreachable or the asset is not linked
func (p *NflverseProvider) statsURL(season int) string {
	fallback := fmt.Sprintf(nflverseStatsURL, season)

	page, err := transport.Get(nflverseReleaseURL)
	if err != nil {
		logger.Debug("Release page unreachable, using conventional asset path", err)
		return fallback
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		return fallback
	}

	asset := fmt.Sprintf("player_stats_%d.csv", season)
	found := fallback
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !strings.HasSuffix(href, asset) {
			return true
		}
		if strings.HasPrefix(href, "/") {
			href = "https://github.com" + href
		}
		found = href
		return false
	})
	return found
}

// WeeklyStats returns the raw per-player weekly stat rows for one season
func (p *NflverseProvider) WeeklyStats(season int) ([]Row, error) {
	body, err := p.fetchCached(p.statsURL(season), fmt.Sprintf("player_stats_%d.csv", season))
	if err != nil {
		return nil, err
	}
	rows, err := ParseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stats for season %d: %w", season, err)
	}
	logger.Info("Fetched weekly stats", "season", season, "rows", len(rows))
	return rows, nil
}

// Schedules returns the full raw schedule table, all seasons
func (p *NflverseProvider) Schedules() ([]Row, error) {
	body, err := p.fetchCached(nflverseGamesURL, "games.csv")
	if err != nil {
		return nil, err
	}
	rows, err := ParseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedules: %w", err)
	}
	logger.Info("Fetched schedules", "rows", len(rows))
	return rows, nil
}

// ParseCSV converts CSV text into rows, inferring cell types. Empty cells and
// the NA marker become nil so they persist as NULL.
func ParseCSV(body string) ([]Row, error) {
	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, ErrEmptyInput
	}

	header := records[0]
	out := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if i >= len(record) {
				row[col] = nil
				continue
			}
			row[col] = parseCell(record[i])
		}
		out = append(out, row)
	}
	return out, nil
}

func parseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

/////////////////////////////////////////////////////////////////////////
////// Staging import
/////////////////////////////////////////////////////////////////////////

// ImportSeasons pulls each configured season's stats and the schedule table
// into the staging tables. Rows whose (season, week) is already staged are
// skipped, so re-running an import only appends the weeks that appeared since
// the last run.
func ImportSeasons(store *Store, provider Provider, cfg Config) error {
	wanted := make(map[int]bool, len(cfg.Seasons))
	for _, s := range cfg.Seasons {
		wanted[s] = true
	}

	staged, err := store.SeasonWeekKeys(cfg.StagingStatsTable)
	if err != nil {
		return err
	}
	for _, season := range cfg.Seasons {
		raw, err := provider.WeeklyStats(season)
		if err != nil {
			return err
		}
		fresh := filterStaged(raw, staged)
		if len(fresh) == 0 {
			logger.Debug("No new stat weeks for season", season)
			continue
		}
		if err := store.WriteRaw(cfg.StagingStatsTable, fresh, Append); err != nil {
			return err
		}
		logger.Info("Staged weekly stats", "season", season, "new rows", len(fresh))
	}

	stagedGames, err := store.SeasonWeekKeys(cfg.StagingSchedulesTable)
	if err != nil {
		return err
	}
	raw, err := provider.Schedules()
	if err != nil {
		return err
	}
	var fresh []Row
	for _, row := range raw {
		if !wanted[asInt(row["season"])] {
			continue
		}
		key := SeasonWeek{
			Season: asInt(row["season"]),
			Week:   asInt(row["week"]),
		}
		if !stagedGames[key] {
			fresh = append(fresh, row)
		}
	}
	if len(fresh) > 0 {
		if err := store.WriteRaw(cfg.StagingSchedulesTable, fresh, Append); err != nil {
			return err
		}
	}
	logger.Info("Staged schedules", "new rows", len(fresh))
	return nil
}

func filterStaged(raw []Row, staged map[SeasonWeek]bool) []Row {
	var out []Row
	for _, row := range raw {
		key := SeasonWeek{
			Season: asInt(row["season"]),
			Week:   asInt(row["week"]),
		}
		if !staged[key] {
			out = append(out, row)
		}
	}
	return out
}
