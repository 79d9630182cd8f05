package nfl

import (
	"sort"

	"github.com/nealgriffin/gridiron/internal/logger"
)

// TeamWeekStat is one team's aggregated stat line for one week of one season,
// built by summing the raw per-player rows. The agg tag names the rolling
// aggregation each stat gets when it becomes a lag-window feature.
type TeamWeekStat struct {
	Team       string `column:"recent_team" dbtype:"TEXT" primary:"true"`
	Season     int    `column:"season" dbtype:"INTEGER" primary:"true" index:"true"`
	SeasonType string `column:"season_type" dbtype:"TEXT"`
	Week       int    `column:"week" dbtype:"INTEGER" primary:"true" index:"true"`

	// Volume stats carry game-to-game signal in their level, so they roll up
	// as averages. Sacks are fractional in the raw data (half-sacks).
	PassingYards   float64 `column:"passing_yards" dbtype:"REAL" agg:"mean"`
	RushingYards   float64 `column:"rushing_yards" dbtype:"REAL" agg:"mean"`
	Sacks          float64 `column:"sacks" dbtype:"REAL" agg:"mean"`
	Carries        float64 `column:"carries" dbtype:"REAL" agg:"mean"`
	ReceivingYards float64 `column:"receiving_yards" dbtype:"REAL" agg:"mean"`

	// Target and reception counts are spiky, so the median resists blowout
	// games skewing the window
	Targets    float64 `column:"targets" dbtype:"REAL" agg:"median"`
	Receptions float64 `column:"receptions" dbtype:"REAL" agg:"median"`

	// Scoring events are rare counts and accumulate over the window
	PassingTDs      float64 `column:"passing_tds" dbtype:"REAL" agg:"sum"`
	RushingTDs      float64 `column:"rushing_tds" dbtype:"REAL" agg:"sum"`
	ReceivingTDs    float64 `column:"receiving_tds" dbtype:"REAL" agg:"sum"`
	Interceptions   float64 `column:"interceptions" dbtype:"REAL" agg:"sum"`
	RushingFumbles  float64 `column:"rushing_fumbles" dbtype:"REAL" agg:"sum"`
	SpecialTeamsTDs float64 `column:"special_teams_tds" dbtype:"REAL" agg:"sum"`

	Passing2Pt float64 `column:"passing_2pt_conversions" dbtype:"REAL"`
	Rushing2Pt float64 `column:"rushing_2pt_conversions" dbtype:"REAL"`

	// Derived offensive totals
	Touchdowns        float64 `column:"touchdowns" dbtype:"REAL"`
	TwoPointPoints    float64 `column:"two_point_conversions" dbtype:"REAL"`
	TotalScore        float64 `column:"total_score" dbtype:"REAL" agg:"mean"`
	TotalYardsOffense float64 `column:"total_yards_offense" dbtype:"REAL" agg:"mean"`
	TurnoversOffense  float64 `column:"turnovers_offense" dbtype:"REAL" agg:"sum"`
}

func (t *TeamWeekStat) GetTableName() string {
	return "weekly_scores"
}

func (t *TeamWeekStat) GetPrimaryKey() map[string]any {
	return map[string]any{
		"recent_team": t.Team,
		"season":      t.Season,
		"week":        t.Week,
	}
}

// Derive fills the computed offensive totals from the summed base stats.
// Receiving touchdowns are the other side of passing touchdowns and are
// excluded from the scoring total to avoid double counting.
func (t *TeamWeekStat) Derive() {
	t.Touchdowns = 6 * (t.PassingTDs + t.RushingTDs + t.SpecialTeamsTDs)
	t.TwoPointPoints = 2 * (t.Passing2Pt + t.Rushing2Pt)
	t.TotalScore = t.Touchdowns + t.TwoPointPoints
	t.TotalYardsOffense = t.PassingYards + t.RushingYards
	t.TurnoversOffense = t.Interceptions + t.RushingFumbles
}

// statAccumulators maps whitelist stat columns onto TeamWeekStat fields
var statAccumulators = map[string]func(*TeamWeekStat, float64){
	"passing_yards":           func(t *TeamWeekStat, v float64) { t.PassingYards += v },
	"rushing_yards":           func(t *TeamWeekStat, v float64) { t.RushingYards += v },
	"passing_tds":             func(t *TeamWeekStat, v float64) { t.PassingTDs += v },
	"rushing_tds":             func(t *TeamWeekStat, v float64) { t.RushingTDs += v },
	"interceptions":           func(t *TeamWeekStat, v float64) { t.Interceptions += v },
	"sacks":                   func(t *TeamWeekStat, v float64) { t.Sacks += v },
	"rushing_fumbles":         func(t *TeamWeekStat, v float64) { t.RushingFumbles += v },
	"receiving_tds":           func(t *TeamWeekStat, v float64) { t.ReceivingTDs += v },
	"special_teams_tds":       func(t *TeamWeekStat, v float64) { t.SpecialTeamsTDs += v },
	"carries":                 func(t *TeamWeekStat, v float64) { t.Carries += v },
	"targets":                 func(t *TeamWeekStat, v float64) { t.Targets += v },
	"receptions":              func(t *TeamWeekStat, v float64) { t.Receptions += v },
	"receiving_yards":         func(t *TeamWeekStat, v float64) { t.ReceivingYards += v },
	"passing_2pt_conversions": func(t *TeamWeekStat, v float64) { t.Passing2Pt += v },
	"rushing_2pt_conversions": func(t *TeamWeekStat, v float64) { t.Rushing2Pt += v },
}

// NormalizeWeeklyStats folds raw per-player weekly stat rows into one stat
// line per team-week. Null stat values count as zero; a whitelist column
// missing from the input entirely is a data integrity error, since a silently
// absent stat would zero a whole feature.
func NormalizeWeeklyStats(raw []Row, stagingTable string) ([]*TeamWeekStat, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyInput
	}

	present := make(map[string]bool)
	for _, row := range raw {
		for k := range row {
			present[k] = true
		}
	}
	for _, col := range WeeklyStatsColumns {
		if !present[col] {
			return nil, &DataIntegrityError{
				Table:  stagingTable,
				Column: col,
				Reason: "required column absent from raw input",
			}
		}
	}

	type teamWeekKey struct {
		team       string
		season     int
		seasonType string
		week       int
	}
	groups := make(map[teamWeekKey]*TeamWeekStat)
	var order []teamWeekKey

	for _, row := range raw {
		key := teamWeekKey{
			team:       asString(row["recent_team"]),
			season:     asInt(row["season"]),
			seasonType: asString(row["season_type"]),
			week:       asInt(row["week"]),
		}
		stat, ok := groups[key]
		if !ok {
			stat = &TeamWeekStat{
				Team:       key.team,
				Season:     key.season,
				Week:       key.week,
				SeasonType: asString(row["season_type"]),
			}
			groups[key] = stat
			order = append(order, key)
		}
		for col, accumulate := range statAccumulators {
			if v := row[col]; v != nil {
				accumulate(stat, asFloat(v))
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.season != b.season {
			return a.season < b.season
		}
		if a.week != b.week {
			return a.week < b.week
		}
		return a.team < b.team
	})

	out := make([]*TeamWeekStat, 0, len(order))
	for _, key := range order {
		stat := groups[key]
		stat.Derive()
		out = append(out, stat)
	}

	logger.Info("Normalized weekly stats", "rows", len(raw), "team weeks", len(out))
	return out, nil
}
