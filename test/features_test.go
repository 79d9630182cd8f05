package test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nealgriffin/gridiron/pkg/nfl"
)

func featureRow(t *testing.T, season, week int, home, away string, homeScore, awayScore int) *nfl.GameFeatureRow {
	t.Helper()
	games, stats := buildFixtures(t,
		[]nfl.Row{
			statRow(home, season, week, map[string]any{"passing_yards": 280.0}),
			statRow(away, season, week, map[string]any{"passing_yards": 140.0}),
		},
		[]nfl.Row{scheduleRow(season, week, home, away, homeScore, awayScore)},
	)
	rows, _, err := nfl.BuildGameTable(games, stats)
	require.NoError(t, err)
	return rows[0]
}

func columnIndex(t *testing.T, m *nfl.FeatureMatrix, col string) int {
	t.Helper()
	for i, c := range m.Columns {
		if c == col {
			return i
		}
	}
	t.Fatalf("column %s not in matrix", col)
	return -1
}

func TestFeaturizeTrainingLabelsAndOrder(t *testing.T) {
	rows := []*nfl.GameFeatureRow{
		featureRow(t, 2024, 1, "AAA", "BBB", 30, 10),
		featureRow(t, 2024, 2, "BBB", "AAA", 7, 24),
	}

	m, err := nfl.FeaturizeTraining(rows)
	require.NoError(t, err)
	require.Len(t, m.X, 2)
	assert.Equal(t, nfl.TrainingColumns, m.Columns)
	assert.Equal(t, []float64{1, 0}, m.Y)

	i := columnIndex(t, m, "passing_yards_home")
	assert.Equal(t, 280.0, m.X[0][i])
	assert.Equal(t, 30.0, m.X[0][columnIndex(t, m, "home_score")])
}

func TestFeaturizeTrainingSkipsUnplayed(t *testing.T) {
	played := featureRow(t, 2024, 1, "AAA", "BBB", 30, 10)
	unplayed := featureRow(t, 2024, 2, "BBB", "AAA", 30, 10)
	unplayed.HomeScore = -1
	unplayed.AwayScore = -1
	unplayed.Outcome = nfl.OutcomeUnknown

	m, err := nfl.FeaturizeTraining([]*nfl.GameFeatureRow{played, unplayed})
	require.NoError(t, err)
	assert.Len(t, m.X, 1, "An unknown outcome must not be labelled as a loss")
}

func TestFeaturizeTrainingUnmatchedSideIsMissing(t *testing.T) {
	row := featureRow(t, 2024, 1, "AAA", "BBB", 30, 10)
	row.AwayStatsMatched = 0

	m, err := nfl.FeaturizeTraining([]*nfl.GameFeatureRow{row})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(m.X[0][columnIndex(t, m, "passing_yards_away")]),
		"Unmatched stats should be missing, not zero")
	assert.False(t, math.IsNaN(m.X[0][columnIndex(t, m, "passing_yards_home")]))
}

func TestFeaturizePredictUsesRollingForm(t *testing.T) {
	row := featureRow(t, 2024, 5, "AAA", "BBB", 30, 10)
	rolling := map[string]map[string]float64{
		"AAA": {"passing_yards": 222.0, "total_score": 21.0},
	}

	m, err := nfl.FeaturizePredict([]*nfl.GameFeatureRow{row}, rolling)
	require.NoError(t, err)

	assert.Equal(t, 222.0, m.X[0][columnIndex(t, m, "passing_yards_home")],
		"Prediction features come from the lag window, not the game itself")
	assert.Equal(t, 0.0, m.X[0][columnIndex(t, m, "home_score")])
	assert.Equal(t, 0.0, m.X[0][columnIndex(t, m, "away_score")])
	assert.True(t, math.IsNaN(m.X[0][columnIndex(t, m, "passing_yards_away")]),
		"A team with no rolling form is missing and falls to the imputer")
	assert.Nil(t, m.Y)
}

func TestSeasonTypeEncodingConsistent(t *testing.T) {
	reg := featureRow(t, 2024, 1, "AAA", "BBB", 30, 10)
	post := featureRow(t, 2024, 19, "AAA", "BBB", 30, 10)
	post.SeasonType = "POST"

	train, err := nfl.FeaturizeTraining([]*nfl.GameFeatureRow{reg, post})
	require.NoError(t, err)
	predict, err := nfl.FeaturizePredict([]*nfl.GameFeatureRow{reg, post}, nil)
	require.NoError(t, err)

	i := columnIndex(t, train, "season_type")
	assert.Equal(t, 0.0, train.X[0][i])
	assert.Equal(t, 1.0, train.X[1][i])
	assert.Equal(t, train.X[0][i], predict.X[0][i], "Both paths must share one encoding")
	assert.Equal(t, train.X[1][i], predict.X[1][i])
}

func TestImputerFillsWithTrainingMeans(t *testing.T) {
	m := &nfl.FeatureMatrix{
		Columns: []string{"a", "b"},
		GameIDs: []string{"g1", "g2", "g3"},
		X: [][]float64{
			{1, 10},
			{3, math.NaN()},
			{math.NaN(), 20},
		},
	}

	imp := nfl.FitImputer(m)
	imp.Transform(m)

	assert.Equal(t, 2.0, m.X[2][0])
	assert.Equal(t, 15.0, m.X[1][1])
	assert.Equal(t, 1.0, m.X[0][0], "Observed values stay untouched")
}

func TestTrainWithHoldoutFitsImputerOnHeadOnly(t *testing.T) {
	m := &nfl.FeatureMatrix{
		Columns: []string{"a"},
		GameIDs: []string{"g1", "g2", "g3", "g4"},
		X: [][]float64{
			{1},
			{math.NaN()},
			{3},
			{100},
		},
		Y: []float64{0, 1, 0, 1},
	}

	_, imp, _, err := nfl.TrainWithHoldout(m, 0.25)
	require.NoError(t, err)

	// the tail row {100} is evaluation-only, so the imputed mean must come
	// from the head alone
	assert.Equal(t, 2.0, imp.Means[0])
	assert.Equal(t, 2.0, m.X[1][0], "Gaps fill with the head mean")
}

func TestLogisticClassifierLearnsSeparableData(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		v := float64(i%2)*10 - 5 // -5 or +5
		X = append(X, []float64{v, -v})
		if v > 0 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	clf := nfl.NewLogisticClassifier()
	require.NoError(t, clf.Fit(X, y))

	assert.Equal(t, nfl.OutcomeHomeWin, clf.Predict([]float64{6, -6}))
	assert.Equal(t, nfl.OutcomeHomeLoss, clf.Predict([]float64{-6, 6}))
	assert.Equal(t, 1.0, clf.Accuracy(X, y))
	assert.Greater(t, clf.PredictProba([]float64{6, -6}), 0.9)
}

func TestLogisticClassifierDeterministic(t *testing.T) {
	X := [][]float64{{1, 2}, {2, 1}, {-1, -2}, {-2, -1}}
	y := []float64{1, 1, 0, 0}

	a := nfl.NewLogisticClassifier()
	b := nfl.NewLogisticClassifier()
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.Weights, b.Weights, "Training must be reproducible")
	assert.Equal(t, a.Bias, b.Bias)
}

func TestModelArtifactRoundTrip(t *testing.T) {
	clf := nfl.NewLogisticClassifier()
	require.NoError(t, clf.Fit([][]float64{{1}, {-1}, {2}, {-2}}, []float64{1, 0, 1, 0}))
	imp := &nfl.Imputer{Columns: []string{"a"}, Means: []float64{0.5}}

	artifact := &nfl.ModelArtifact{Season: 2024, TargetWeek: 7}
	require.NoError(t, artifact.Encode(clf, imp))

	gotClf, gotImp, err := artifact.Decode()
	require.NoError(t, err)
	assert.Equal(t, clf.Weights, gotClf.Weights)
	assert.Equal(t, imp.Means, gotImp.Means)
	assert.Equal(t, clf.Predict([]float64{1.5}), gotClf.Predict([]float64{1.5}))
}
