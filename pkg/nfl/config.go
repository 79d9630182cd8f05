package nfl

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every tunable of the pipeline. It is an immutable value:
// there is no package-level instance, and every stage receives the snapshot it
// should run with. Backtest iterations derive their own snapshot via ForWeek.
type Config struct {
	// Season scope
	Seasons         []int     `yaml:"seasons"`
	CurrentSeason   int       `yaml:"current_season"`
	SeasonStartDate time.Time `yaml:"season_start_date"`

	// Week boundary: train on week <= TrainingCutoffWeek, predict TargetWeek
	TargetWeek         int `yaml:"target_week"`
	TrainingCutoffWeek int `yaml:"training_cutoff_week"`

	// Backtest scope: 18 regular season weeks plus up to 4 playoff weeks
	BacktestWeeks int `yaml:"backtest_weeks"`

	// Storage
	DBPath    string `yaml:"db_path"`
	CachePath string `yaml:"cache_path"`

	// Names of the schemaless tables written through the raw store surface.
	// The typed tables (weekly_scores, schedules, base_model, model_artifacts)
	// name themselves.
	StagingStatsTable     string `yaml:"staging_stats_table"`
	StagingSchedulesTable string `yaml:"staging_schedules_table"`
	TrainingMatrixTable   string `yaml:"training_matrix_table"`
	PredictionsTable      string `yaml:"predictions_table"`
	MissingRecordsTable   string `yaml:"missing_records_table"`
}

// DefaultConfig returns the standard configuration
func DefaultConfig() Config {
	return Config{
		Seasons:         []int{2024, 2023, 2022, 2021, 2020, 2019, 2018},
		CurrentSeason:   2024,
		SeasonStartDate: time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC),

		TargetWeek:         17,
		TrainingCutoffWeek: 16,
		BacktestWeeks:      22,

		DBPath:    "nfl_data.db",
		CachePath: ".gridiron/cache",

		StagingStatsTable:     "stg_weekly_stats",
		StagingSchedulesTable: "stg_schedules",
		TrainingMatrixTable:   "x_training",
		PredictionsTable:      "game_predictions",
		MissingRecordsTable:   "missing_records",
	}
}

// LoadConfig reads YAML overrides on top of the defaults. An empty path
// returns the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that would corrupt a run. The cutoff/target
// ordering is the central leakage guard: cutoff at or past the target would
// let future results into training.
func (c Config) Validate() error {
	if c.TrainingCutoffWeek >= c.TargetWeek {
		return &ConfigError{
			Field: "training_cutoff_week",
			Reason: fmt.Sprintf("cutoff week %d must be strictly before target week %d",
				c.TrainingCutoffWeek, c.TargetWeek),
		}
	}
	if c.TargetWeek < 1 {
		return &ConfigError{Field: "target_week", Reason: "must be at least 1"}
	}
	if c.CurrentSeason == 0 {
		return &ConfigError{Field: "current_season", Reason: "not set"}
	}
	if c.SeasonStartDate.IsZero() {
		return &ConfigError{Field: "season_start_date", Reason: "not set"}
	}
	if c.DBPath == "" {
		return &ConfigError{Field: "db_path", Reason: "not set"}
	}
	return nil
}

// ForWeek derives the snapshot a backtest iteration runs with: predict the
// given week, train on everything up to the week before it.
func (c Config) ForWeek(week int) Config {
	out := c
	out.TargetWeek = week
	out.TrainingCutoffWeek = week - 1
	return out
}

// ElapsedWeek computes the currently elapsed real-world week of the season:
// max(1, ceil(days_since_start / 7))
func (c Config) ElapsedWeek(now time.Time) int {
	days := int(now.Sub(c.SeasonStartDate).Hours() / 24)
	week := days / 7
	if days%7 != 0 {
		week++
	}
	if week < 1 {
		week = 1
	}
	return week
}

// GameTypeMapping folds raw schedule game types into the two season types the
// model understands. Playoff sub-types all collapse to POST. Anything not in
// this table is a hard error, never a silent default.
var GameTypeMapping = map[string]string{
	"REG":  "REG",
	"POST": "POST",
	"WC":   "POST",
	"DIV":  "POST",
	"CON":  "POST",
	"SB":   "POST",
}

// SeasonTypeCode is the single categorical encoding table shared by the
// training and prediction feature paths
var SeasonTypeCode = map[string]float64{
	"REG":  0,
	"POST": 1,
}

// WeeklyStatsColumns is the whitelist of raw per-player weekly stat columns
// the normalizer keeps, key columns first
var WeeklyStatsColumns = []string{
	"recent_team", "season", "season_type", "week",
	"passing_yards", "rushing_yards", "passing_tds",
	"rushing_tds", "interceptions", "sacks",
	"rushing_fumbles", "receiving_tds", "special_teams_tds",
	"carries", "targets", "receptions", "receiving_yards",
	"passing_2pt_conversions", "rushing_2pt_conversions",
}

// ScheduleColumns is the whitelist of raw schedule columns kept by the
// schedule normalizer; betting market fields pass through unmodified
var ScheduleColumns = []string{
	"game_id", "season", "season_type", "week",
	"home_team", "away_team", "home_score", "away_score",
	"away_rest", "home_rest", "away_moneyline",
	"home_moneyline", "spread_line", "away_spread_odds",
	"home_spread_odds", "total_line", "under_odds",
	"over_odds", "div_game",
}

// TrainingColumns is the fixed, ordered feature schema the classifier trains
// and predicts on. Order matters: the weight vector is positional.
var TrainingColumns = []string{
	"home_score", "away_score", "away_rest", "home_rest",
	"away_moneyline", "home_moneyline", "spread_line",
	"away_spread_odds", "home_spread_odds", "total_line",
	"under_odds", "over_odds", "div_game",
	"passing_yards_home", "rushing_yards_home", "sacks_home",
	"carries_home", "targets_home", "receptions_home",
	"passing_tds_home", "rushing_tds_home", "receiving_tds_home",
	"interceptions_home", "rushing_fumbles_home", "special_teams_tds_home",
	"receiving_yards_home",
	"passing_yards_away", "rushing_yards_away", "sacks_away",
	"carries_away", "targets_away", "receptions_away",
	"passing_tds_away", "rushing_tds_away", "receiving_tds_away",
	"interceptions_away", "rushing_fumbles_away", "special_teams_tds_away",
	"receiving_yards_away",
	"total_score_away", "total_score_home",
	"total_yards_offense_away", "total_yards_offense_home",
	"turnovers_offense_away", "turnovers_offense_home",
	"season_type",
}
