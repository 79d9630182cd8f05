package nfl

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/nealgriffin/gridiron/internal/logger"
)

// TrainingWindow is the leakage boundary of one modelling pass: train on
// everything through CutoffWeek of the current season (earlier seasons in
// full), predict exactly TargetWeek. The two partitions can never overlap
// because the cutoff is strictly before the target.
type TrainingWindow struct {
	CurrentSeason int
	CutoffWeek    int
	TargetWeek    int
}

// NewTrainingWindow builds the window from a validated config snapshot
func NewTrainingWindow(cfg Config) (*TrainingWindow, error) {
	if cfg.TrainingCutoffWeek >= cfg.TargetWeek {
		return nil, &ConfigError{
			Field: "training_cutoff_week",
			Reason: fmt.Sprintf("cutoff week %d must be strictly before target week %d",
				cfg.TrainingCutoffWeek, cfg.TargetWeek),
		}
	}
	return &TrainingWindow{
		CurrentSeason: cfg.CurrentSeason,
		CutoffWeek:    cfg.TrainingCutoffWeek,
		TargetWeek:    cfg.TargetWeek,
	}, nil
}

// TrainPredicate selects completed history: every earlier season in full,
// plus the current season through the cutoff week
func (w *TrainingWindow) TrainPredicate() Predicate {
	return Or(
		Lt("season", w.CurrentSeason),
		And(Eq("season", w.CurrentSeason), Le("week", w.CutoffWeek)),
	)
}

// PredictPredicate selects exactly the target week of the current season
func (w *TrainingWindow) PredictPredicate() Predicate {
	return And(Eq("season", w.CurrentSeason), Eq("week", w.TargetWeek))
}

// Partition splits game rows into the training and prediction sets. Rows in
// neither set (current-season weeks between cutoff and target, or beyond) are
// dropped.
func (w *TrainingWindow) Partition(rows []*GameFeatureRow) (train, predict []*GameFeatureRow) {
	trainPred := w.TrainPredicate()
	predictPred := w.PredictPredicate()
	for _, row := range rows {
		values := ColumnValues(row)
		switch {
		case trainPred.Matches(values):
			train = append(train, row)
		case predictPred.Matches(values):
			predict = append(predict, row)
		}
	}
	// Holdout evaluation slices the most recent games off the tail, so the
	// training partition must be chronological regardless of how the rows
	// came out of the database.
	sort.SliceStable(train, func(i, j int) bool {
		if train[i].Season != train[j].Season {
			return train[i].Season < train[j].Season
		}
		if train[i].Week != train[j].Week {
			return train[i].Week < train[j].Week
		}
		return train[i].GameID < train[j].GameID
	})
	logger.Debug("Partitioned game rows",
		"train", len(train), "predict", len(predict), "target week", w.TargetWeek)
	return train, predict
}

/////////////////////////////////////////////////////////////////////////
////// Rolling form features
/////////////////////////////////////////////////////////////////////////

func mean(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func median(vs []float64) float64 {
	sorted := append([]float64{}, vs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sum(vs []float64) float64 {
	total := 0.0
	for _, v := range vs {
		total += v
	}
	return total
}

var aggregators = map[string]func([]float64) float64{
	"mean":   mean,
	"median": median,
	"sum":    sum,
}

// RollingFeatures aggregates each team's stat lines from the lag window into
// one value per aggregated stat column, using the aggregation the stat's agg
// tag names. Teams with no stat line in the window are absent from the result
// and fall through to imputation downstream.
func RollingFeatures(stats []*TeamWeekStat, window []SeasonWeek) (map[string]map[string]float64, error) {
	inWindow := make(map[SeasonWeek]bool, len(window))
	for _, sw := range window {
		inWindow[sw] = true
	}

	perTeam := make(map[string]map[string][]float64)
	fields := tableFields(reflect.TypeOf(TeamWeekStat{}))

	for _, stat := range stats {
		if !inWindow[SeasonWeek{Season: stat.Season, Week: stat.Week}] {
			continue
		}
		samples, ok := perTeam[stat.Team]
		if !ok {
			samples = make(map[string][]float64)
			perTeam[stat.Team] = samples
		}
		v := reflect.ValueOf(stat).Elem()
		for _, f := range fields {
			if f.agg == "" {
				continue
			}
			samples[f.column] = append(samples[f.column], fieldValue(v, f.path).Float())
		}
	}

	out := make(map[string]map[string]float64, len(perTeam))
	for team, samples := range perTeam {
		features := make(map[string]float64, len(samples))
		for _, f := range fields {
			if f.agg == "" {
				continue
			}
			vs := samples[f.column]
			if len(vs) == 0 {
				continue
			}
			aggregate, ok := aggregators[f.agg]
			if !ok {
				return nil, fmt.Errorf("unknown aggregation %q on column %s", f.agg, f.column)
			}
			features[f.column] = aggregate(vs)
		}
		out[team] = features
	}
	return out, nil
}
