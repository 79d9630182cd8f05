package nfl

import (
	"fmt"

	"github.com/nealgriffin/gridiron/internal/logger"
)

// GameFeatureRow is one game with both teams' weekly stat lines joined on,
// home columns suffixed _home and away columns _away. The join is a left
// join: every schedule row survives, and the matched flags record whether a
// stat line was found for each side.
type GameFeatureRow struct {
	ScheduleGame

	HomeStats TeamWeekStat `embed:"_home"`
	AwayStats TeamWeekStat `embed:"_away"`

	HomeStatsMatched int `column:"stats_matched_home" dbtype:"INTEGER"`
	AwayStatsMatched int `column:"stats_matched_away" dbtype:"INTEGER"`
}

func (r *GameFeatureRow) GetTableName() string {
	return "base_model"
}

func (r *GameFeatureRow) GetPrimaryKey() map[string]any {
	return map[string]any{"game_id": r.GameID}
}

func (r *GameFeatureRow) InitDefaults() {
	r.ScheduleGame.InitDefaults()
}

// MissingRecord notes one side of a game the stat join could not match, so a
// run can be audited for coverage gaps afterwards
type MissingRecord struct {
	GameID string
	Season int
	Week   int
	Team   string
	Side   string
}

func (m MissingRecord) AsRow() Row {
	return Row{
		"game_id": m.GameID,
		"season":  m.Season,
		"week":    m.Week,
		"team":    m.Team,
		"side":    m.Side,
	}
}

// missingRecordColumns keeps the audit table's schema stable even when a
// transform finds no gaps and there are no rows to infer it from
var missingRecordColumns = []string{"game_id", "season", "week", "team", "side"}

type statKey struct {
	team       string
	season     int
	seasonType string
	week       int
}

// BuildGameTable joins each game onto its teams' stat lines for the same
// season and week. The stat side of the join must be unique per team-week: a
// duplicate would silently fan a game out into multiple rows, so it is a hard
// error instead.
func BuildGameTable(games []*ScheduleGame, stats []*TeamWeekStat) ([]*GameFeatureRow, []MissingRecord, error) {
	if len(games) == 0 {
		return nil, nil, ErrEmptyInput
	}

	byKey := make(map[statKey]*TeamWeekStat, len(stats))
	for _, stat := range stats {
		key := statKey{team: stat.Team, season: stat.Season, seasonType: stat.SeasonType, week: stat.Week}
		if _, dup := byKey[key]; dup {
			return nil, nil, &DataIntegrityError{
				Table:  stat.GetTableName(),
				Key:    fmt.Sprintf("%s/%d/%s/w%d", key.team, key.season, key.seasonType, key.week),
				Reason: "duplicate team-week stat line would fan out the game join",
			}
		}
		byKey[key] = stat
	}

	rows := make([]*GameFeatureRow, 0, len(games))
	var missing []MissingRecord

	for _, game := range games {
		row := &GameFeatureRow{ScheduleGame: *game}

		if stat, ok := byKey[statKey{team: game.HomeTeam, season: game.Season, seasonType: game.SeasonType, week: game.Week}]; ok {
			row.HomeStats = *stat
			row.HomeStatsMatched = 1
		} else {
			missing = append(missing, MissingRecord{
				GameID: game.GameID, Season: game.Season, Week: game.Week,
				Team: game.HomeTeam, Side: "home",
			})
		}

		if stat, ok := byKey[statKey{team: game.AwayTeam, season: game.Season, seasonType: game.SeasonType, week: game.Week}]; ok {
			row.AwayStats = *stat
			row.AwayStatsMatched = 1
		} else {
			missing = append(missing, MissingRecord{
				GameID: game.GameID, Season: game.Season, Week: game.Week,
				Team: game.AwayTeam, Side: "away",
			})
		}

		rows = append(rows, row)
	}

	if len(missing) > 0 {
		logger.Warn("Game table join left sides unmatched", "games", len(rows), "unmatched", len(missing))
	} else {
		logger.Info("Built game table", "games", len(rows))
	}
	return rows, missing, nil
}
