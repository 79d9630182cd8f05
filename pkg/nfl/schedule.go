package nfl

import (
	"math"
	"sort"

	"github.com/nealgriffin/gridiron/internal/logger"
)

// Outcome values for ScheduleGame. Unplayed games carry OutcomeUnknown, never
// zero: zero means the home side lost.
const (
	OutcomeUnknown  = -1
	OutcomeHomeLoss = 0
	OutcomeHomeWin  = 1
)

// ScheduleGame is one scheduled game, played or not. Scores of unplayed games
// are -1 and the outcome is OutcomeUnknown; absent betting market numbers are
// NaN, which the store persists as NULL.
type ScheduleGame struct {
	GameID     string `column:"game_id" dbtype:"TEXT" primary:"true"`
	Season     int    `column:"season" dbtype:"INTEGER" index:"true"`
	SeasonType string `column:"season_type" dbtype:"TEXT"`
	Week       int    `column:"week" dbtype:"INTEGER" index:"true"`
	HomeTeam   string `column:"home_team" dbtype:"TEXT" index:"true"`
	AwayTeam   string `column:"away_team" dbtype:"TEXT" index:"true"`

	HomeScore int `column:"home_score" dbtype:"INTEGER"`
	AwayScore int `column:"away_score" dbtype:"INTEGER"`

	HomeRest int `column:"home_rest" dbtype:"INTEGER"`
	AwayRest int `column:"away_rest" dbtype:"INTEGER"`

	// Betting market fields pass through from the raw schedule untouched
	AwayMoneyline  float64 `column:"away_moneyline" dbtype:"REAL"`
	HomeMoneyline  float64 `column:"home_moneyline" dbtype:"REAL"`
	SpreadLine     float64 `column:"spread_line" dbtype:"REAL"`
	AwaySpreadOdds float64 `column:"away_spread_odds" dbtype:"REAL"`
	HomeSpreadOdds float64 `column:"home_spread_odds" dbtype:"REAL"`
	TotalLine      float64 `column:"total_line" dbtype:"REAL"`
	UnderOdds      float64 `column:"under_odds" dbtype:"REAL"`
	OverOdds       float64 `column:"over_odds" dbtype:"REAL"`

	DivGame int `column:"div_game" dbtype:"INTEGER"`

	// Result columns, valid only once the game is played
	Outcome     int     `column:"outcome" dbtype:"INTEGER"`
	ScoreDiff   float64 `column:"score_diff" dbtype:"REAL"`
	TotalPoints float64 `column:"total_points" dbtype:"REAL"`
}

// NewScheduleGame returns a game with the unplayed/absent sentinels set
func NewScheduleGame() *ScheduleGame {
	g := &ScheduleGame{}
	g.InitDefaults()
	return g
}

// InitDefaults presets the sentinel values a NULL column should leave behind
func (g *ScheduleGame) InitDefaults() {
	g.HomeScore = -1
	g.AwayScore = -1
	g.Outcome = OutcomeUnknown
	g.AwayMoneyline = math.NaN()
	g.HomeMoneyline = math.NaN()
	g.SpreadLine = math.NaN()
	g.AwaySpreadOdds = math.NaN()
	g.HomeSpreadOdds = math.NaN()
	g.TotalLine = math.NaN()
	g.UnderOdds = math.NaN()
	g.OverOdds = math.NaN()
	g.ScoreDiff = math.NaN()
	g.TotalPoints = math.NaN()
}

func (g *ScheduleGame) GetTableName() string {
	return "schedules"
}

func (g *ScheduleGame) GetPrimaryKey() map[string]any {
	return map[string]any{"game_id": g.GameID}
}

// Played reports whether both scores are recorded
func (g *ScheduleGame) Played() bool {
	return g.HomeScore >= 0 && g.AwayScore >= 0
}

// setFloat leaves the NaN sentinel in place when the raw value is null
func setFloat(dest *float64, v any) {
	if v != nil {
		*dest = asFloat(v)
	}
}

// NormalizeSchedule converts raw schedule rows into ScheduleGames, folding
// playoff game types into POST and filling result columns for played games.
// Only rows matching the include predicate are kept; a nil predicate keeps
// everything. A game type outside the mapping is a hard error rather than a
// silent default, since a misfiled playoff game would poison season_type.
func NormalizeSchedule(raw []Row, include Predicate, stagingTable string) ([]*ScheduleGame, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyInput
	}

	var out []*ScheduleGame
	for _, row := range raw {
		if include != nil && !include.Matches(row) {
			continue
		}

		rawType := asString(row["game_type"])
		if rawType == "" {
			rawType = asString(row["season_type"])
		}
		seasonType, ok := GameTypeMapping[rawType]
		if !ok {
			return nil, &DataIntegrityError{
				Table:  stagingTable,
				Key:    asString(row["game_id"]),
				Column: "game_type",
				Reason: "unmapped game type " + rawType,
			}
		}

		g := NewScheduleGame()
		g.GameID = asString(row["game_id"])
		g.Season = asInt(row["season"])
		g.SeasonType = seasonType
		g.Week = asInt(row["week"])
		g.HomeTeam = asString(row["home_team"])
		g.AwayTeam = asString(row["away_team"])
		g.HomeRest = asInt(row["home_rest"])
		g.AwayRest = asInt(row["away_rest"])
		g.DivGame = asInt(row["div_game"])

		setFloat(&g.AwayMoneyline, row["away_moneyline"])
		setFloat(&g.HomeMoneyline, row["home_moneyline"])
		setFloat(&g.SpreadLine, row["spread_line"])
		setFloat(&g.AwaySpreadOdds, row["away_spread_odds"])
		setFloat(&g.HomeSpreadOdds, row["home_spread_odds"])
		setFloat(&g.TotalLine, row["total_line"])
		setFloat(&g.UnderOdds, row["under_odds"])
		setFloat(&g.OverOdds, row["over_odds"])

		if row["home_score"] != nil && row["away_score"] != nil {
			g.HomeScore = asInt(row["home_score"])
			g.AwayScore = asInt(row["away_score"])
			if g.HomeScore > g.AwayScore {
				g.Outcome = OutcomeHomeWin
			} else {
				g.Outcome = OutcomeHomeLoss
			}
			g.ScoreDiff = float64(g.HomeScore - g.AwayScore)
			g.TotalPoints = float64(g.HomeScore + g.AwayScore)
		}

		out = append(out, g)
	}

	if len(out) == 0 {
		if include != nil {
			logger.Warn("Schedule filter matched no rows", include.String())
		}
		return nil, ErrEmptyInput
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		return a.GameID < b.GameID
	})

	logger.Info("Normalized schedule", "raw rows", len(raw), "games", len(out))
	return out, nil
}
