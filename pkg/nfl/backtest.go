package nfl

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nealgriffin/gridiron/internal/logger"
)

// WeekResult summarizes one backtest iteration
type WeekResult struct {
	Week            int
	Skipped         bool
	Reason          string
	TrainRows       int
	PredictRows     int
	HoldoutAccuracy float64
	Accuracy        float64
	Correct         int
	Scored          int
}

// BacktestResult aggregates a full season replay
type BacktestResult struct {
	Season  int
	Weeks   []WeekResult
	Correct int
	Scored  int
}

// Accuracy is the realized hit rate over every scored prediction of the run
func (r *BacktestResult) Accuracy() float64 {
	if r.Scored == 0 {
		return math.NaN()
	}
	return float64(r.Correct) / float64(r.Scored)
}

// weekRun holds everything one iteration produces for persistence
type weekRun struct {
	result      WeekResult
	artifact    *ModelArtifact
	training    []Row
	predictions []Row
}

// runWeek trains a model as of the target week's boundary and predicts the
// target week. Rows beyond the boundary never reach the model: the partition
// predicates are the only thing that touches week numbers.
func runWeek(store *Store, cfg Config, rows []*GameFeatureRow) (*weekRun, error) {
	window, err := NewTrainingWindow(cfg)
	if err != nil {
		return nil, err
	}

	run := &weekRun{result: WeekResult{
		Week:            cfg.TargetWeek,
		HoldoutAccuracy: math.NaN(),
		Accuracy:        math.NaN(),
	}}

	train, predict := window.Partition(rows)
	run.result.TrainRows = len(train)
	run.result.PredictRows = len(predict)

	trainMatrix, err := FeaturizeTraining(train)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			run.result.Skipped = true
			run.result.Reason = "no training rows"
			return run, nil
		}
		return nil, err
	}
	if len(predict) == 0 {
		run.result.Skipped = true
		run.result.Reason = "no games in target week"
		return run, nil
	}

	clf, imputer, holdoutAcc, err := TrainWithHoldout(trainMatrix, 0.1)
	if err != nil {
		return nil, err
	}
	run.result.HoldoutAccuracy = holdoutAcc

	lag := LagWindow(cfg.CurrentSeason, cfg.TargetWeek)
	statRows, err := store.FindWhere(&TeamWeekStat{}, LagPredicate(lag))
	if err != nil {
		return nil, err
	}
	stats := make([]*TeamWeekStat, len(statRows))
	for i, s := range statRows {
		stats[i] = s.(*TeamWeekStat)
	}
	rolling, err := RollingFeatures(stats, lag)
	if err != nil {
		return nil, err
	}

	predictMatrix, err := FeaturizePredict(predict, rolling)
	if err != nil {
		return nil, err
	}
	imputer.Transform(predictMatrix)

	for i, game := range predict {
		proba := clf.PredictProba(predictMatrix.X[i])
		predicted := clf.Predict(predictMatrix.X[i])

		prediction := Row{
			"game_id":           game.GameID,
			"season":            game.Season,
			"week":              game.Week,
			"home_team":         game.HomeTeam,
			"away_team":         game.AwayTeam,
			"home_win_prob":     proba,
			"predicted_outcome": predicted,
		}
		if game.Outcome != OutcomeUnknown {
			correct := 0
			if predicted == game.Outcome {
				correct = 1
				run.result.Correct++
			}
			run.result.Scored++
			prediction["actual_outcome"] = game.Outcome
			prediction["correct"] = correct
		} else {
			prediction["actual_outcome"] = nil
			prediction["correct"] = nil
		}
		run.predictions = append(run.predictions, prediction)
	}
	if run.result.Scored > 0 {
		run.result.Accuracy = float64(run.result.Correct) / float64(run.result.Scored)
	}

	for _, row := range trainMatrix.AsRows() {
		row["target_week"] = cfg.TargetWeek
		run.training = append(run.training, row)
	}

	artifact := &ModelArtifact{
		Season:          cfg.CurrentSeason,
		TargetWeek:      cfg.TargetWeek,
		TrainedAt:       time.Now().UTC(),
		TrainRows:       len(trainMatrix.X),
		HoldoutAccuracy: holdoutAcc,
	}
	if err := artifact.Encode(clf, imputer); err != nil {
		return nil, err
	}
	run.artifact = artifact
	return run, nil
}

// persistWeek writes one iteration's outputs. Any failure here aborts the
// whole run: a half-persisted backtest is worse than none.
func persistWeek(store *Store, cfg Config, run *weekRun, reset bool) error {
	mode := Append
	if reset {
		mode = Replace
	}
	if err := store.WriteRaw(cfg.TrainingMatrixTable, run.training, mode); err != nil {
		return err
	}
	if err := store.WriteRaw(cfg.PredictionsTable, run.predictions, mode); err != nil {
		return err
	}
	if err := store.CreateTable(run.artifact); err != nil {
		return err
	}
	return store.Save(run.artifact)
}

// RunBacktest replays the current season week by week: for each week it
// trains on everything before that week and predicts the week itself, exactly
// as a live run at that point in the season would have. Weeks with nothing to
// train on or predict are logged and skipped; storage failures abort.
func RunBacktest(store *Store, cfg Config) (*BacktestResult, error) {
	gameRows, err := store.FindWhere(&GameFeatureRow{}, nil)
	if err != nil {
		return nil, err
	}
	if len(gameRows) == 0 {
		return nil, fmt.Errorf("game table is empty: %w", ErrEmptyInput)
	}
	rows := make([]*GameFeatureRow, len(gameRows))
	for i, r := range gameRows {
		rows[i] = r.(*GameFeatureRow)
	}

	result := &BacktestResult{Season: cfg.CurrentSeason}
	first := true

	for week := 1; week <= cfg.BacktestWeeks; week++ {
		wcfg := cfg.ForWeek(week)
		logger.Highlight("Backtesting week", week, "of season", cfg.CurrentSeason)

		run, err := runWeek(store, wcfg, rows)
		if err != nil {
			return nil, fmt.Errorf("backtest failed at week %d: %w", week, err)
		}
		if run.result.Skipped {
			logger.Warn("Skipping week", week, run.result.Reason)
			result.Weeks = append(result.Weeks, run.result)
			continue
		}

		if err := persistWeek(store, wcfg, run, first); err != nil {
			return nil, fmt.Errorf("failed to persist week %d: %w", week, err)
		}
		first = false

		result.Weeks = append(result.Weeks, run.result)
		result.Correct += run.result.Correct
		result.Scored += run.result.Scored

		logger.Info("Week complete", "week", week,
			"predicted", run.result.PredictRows, "accuracy", run.result.Accuracy)
	}

	logger.Highlight("Backtest complete",
		"season", result.Season, "scored", result.Scored, "accuracy", result.Accuracy())
	return result, nil
}

// PredictWeek runs a single train/predict pass for the configured target
// week, appending to the persisted outputs rather than resetting them
func PredictWeek(store *Store, cfg Config) (*WeekResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gameRows, err := store.FindWhere(&GameFeatureRow{}, nil)
	if err != nil {
		return nil, err
	}
	rows := make([]*GameFeatureRow, len(gameRows))
	for i, r := range gameRows {
		rows[i] = r.(*GameFeatureRow)
	}

	run, err := runWeek(store, cfg, rows)
	if err != nil {
		return nil, err
	}
	if run.result.Skipped {
		logger.Warn("Nothing to predict", run.result.Reason)
		return &run.result, nil
	}
	if err := persistWeek(store, cfg, run, false); err != nil {
		return nil, err
	}
	return &run.result, nil
}
