package nfl

import (
	"time"

	"github.com/nealgriffin/gridiron/internal/logger"
)

func asPersistables[T Persistable](in []T) []Persistable {
	out := make([]Persistable, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// seasonsPredicate matches rows belonging to any configured season
func seasonsPredicate(seasons []int) Predicate {
	terms := make([]Predicate, 0, len(seasons))
	for _, s := range seasons {
		terms = append(terms, Eq("season", s))
	}
	return Or(terms...)
}

// scheduleInclude keeps the configured seasons, trimming the current season
// to the weeks that have actually started. Schedules list the whole season
// up front, so without the week bound a game months away would land in the
// normalized tables alongside played ones.
func scheduleInclude(cfg Config, now time.Time) Predicate {
	return And(
		seasonsPredicate(cfg.Seasons),
		Or(
			Lt("season", cfg.CurrentSeason),
			Le("week", cfg.ElapsedWeek(now)),
		),
	)
}

// Transform rebuilds the normalized tables from staging: team-week stat
// lines, the schedule, the joined game table, and the join's missing-record
// audit trail. Each table is replaced atomically, so a failed transform
// leaves the previous tables intact.
func Transform(store *Store, cfg Config) error {
	rawStats, err := store.ReadRaw(cfg.StagingStatsTable, nil)
	if err != nil {
		return err
	}
	stats, err := NormalizeWeeklyStats(rawStats, cfg.StagingStatsTable)
	if err != nil {
		return err
	}
	if err := store.ReplaceAll(&TeamWeekStat{}, asPersistables(stats)); err != nil {
		return err
	}

	rawSchedules, err := store.ReadRaw(cfg.StagingSchedulesTable, nil)
	if err != nil {
		return err
	}
	games, err := NormalizeSchedule(rawSchedules, scheduleInclude(cfg, time.Now()), cfg.StagingSchedulesTable)
	if err != nil {
		return err
	}
	if err := store.ReplaceAll(&ScheduleGame{}, asPersistables(games)); err != nil {
		return err
	}

	rows, missing, err := BuildGameTable(games, stats)
	if err != nil {
		return err
	}
	if err := store.ReplaceAll(&GameFeatureRow{}, asPersistables(rows)); err != nil {
		return err
	}

	missingRows := make([]Row, len(missing))
	for i, m := range missing {
		missingRows[i] = m.AsRow()
	}
	if err := store.WriteRaw(cfg.MissingRecordsTable, missingRows, Replace, missingRecordColumns...); err != nil {
		return err
	}

	logger.Highlight("Transform complete",
		"team weeks", len(stats), "games", len(games), "unmatched sides", len(missing))
	return nil
}

// Run executes the full pipeline: import the configured seasons into staging,
// rebuild the normalized tables, then replay the season as a backtest
func Run(store *Store, provider Provider, cfg Config) (*BacktestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ImportSeasons(store, provider, cfg); err != nil {
		return nil, err
	}
	if err := Transform(store, cfg); err != nil {
		return nil, err
	}
	return RunBacktest(store, cfg)
}
