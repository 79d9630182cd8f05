package test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nealgriffin/gridiron/pkg/nfl"
)

func TestLagWindowEarlySeasonReachesBack(t *testing.T) {
	assert.Equal(t, []nfl.SeasonWeek{{Season: 2023, Week: 16}, {Season: 2023, Week: 17}, {Season: 2023, Week: 18}},
		nfl.LagWindow(2024, 1))
	assert.Equal(t, []nfl.SeasonWeek{{Season: 2023, Week: 17}, {Season: 2023, Week: 18}, {Season: 2024, Week: 1}},
		nfl.LagWindow(2024, 2))
	assert.Equal(t, []nfl.SeasonWeek{{Season: 2023, Week: 18}, {Season: 2024, Week: 1}, {Season: 2024, Week: 2}},
		nfl.LagWindow(2024, 3))
}

func TestLagWindowMidSeason(t *testing.T) {
	window := nfl.LagWindow(2024, 10)
	assert.Equal(t, []nfl.SeasonWeek{{Season: 2024, Week: 7}, {Season: 2024, Week: 8}, {Season: 2024, Week: 9}}, window)
	for _, sw := range window {
		assert.Less(t, sw.Week, 10, "A lag window must never touch the target week or beyond")
	}
}

func TestTrainingWindowRejectsLeakyCutoff(t *testing.T) {
	cfg := nfl.DefaultConfig()
	cfg.TargetWeek = 10
	cfg.TrainingCutoffWeek = 10

	_, err := nfl.NewTrainingWindow(cfg)
	var confErr *nfl.ConfigError
	require.ErrorAs(t, err, &confErr)
}

func TestPartitionBoundaries(t *testing.T) {
	cfg := nfl.DefaultConfig()
	cfg.CurrentSeason = 2024
	cfg.TargetWeek = 5
	cfg.TrainingCutoffWeek = 4
	window, err := nfl.NewTrainingWindow(cfg)
	require.NoError(t, err)

	var rows []*nfl.GameFeatureRow
	add := func(season, week int) *nfl.GameFeatureRow {
		row := &nfl.GameFeatureRow{}
		row.InitDefaults()
		row.GameID = scheduleRow(season, week, "AAA", "BBB", 1, 0)["game_id"].(string)
		row.Season = season
		row.Week = week
		rows = append(rows, row)
		return row
	}
	add(2023, 18) // earlier season, any week
	add(2024, 4)  // at the cutoff
	add(2024, 5)  // the target
	add(2024, 6)  // future

	train, predict := window.Partition(rows)
	require.Len(t, train, 2)
	require.Len(t, predict, 1)
	assert.Equal(t, 5, predict[0].Week)
	for _, r := range train {
		if r.Season == 2024 {
			assert.LessOrEqual(t, r.Week, 4, "Training rows must stay behind the cutoff")
		}
	}
}

func TestPartitionOrdersTrainingChronologically(t *testing.T) {
	cfg := nfl.DefaultConfig()
	cfg.CurrentSeason = 2024
	cfg.TargetWeek = 6
	cfg.TrainingCutoffWeek = 5
	window, err := nfl.NewTrainingWindow(cfg)
	require.NoError(t, err)

	var rows []*nfl.GameFeatureRow
	add := func(season, week int) {
		row := &nfl.GameFeatureRow{}
		row.InitDefaults()
		row.GameID = scheduleRow(season, week, "AAA", "BBB", 1, 0)["game_id"].(string)
		row.Season = season
		row.Week = week
		rows = append(rows, row)
	}
	// deliberately shuffled: the database gives no ordering guarantee, and
	// holdout evaluation slices the tail off the training partition
	add(2024, 5)
	add(2023, 18)
	add(2024, 1)
	add(2023, 2)

	train, _ := window.Partition(rows)
	require.Len(t, train, 4)
	for i := 1; i < len(train); i++ {
		prev, cur := train[i-1], train[i]
		ordered := prev.Season < cur.Season ||
			(prev.Season == cur.Season && prev.Week <= cur.Week)
		assert.True(t, ordered, "Training rows must come out in season/week order")
	}
	assert.Equal(t, 2023, train[0].Season)
	assert.Equal(t, 2, train[0].Week)
	assert.Equal(t, 5, train[3].Week)
}

func TestRollingFeaturesPerAggregation(t *testing.T) {
	window := nfl.LagWindow(2024, 5) // weeks 2, 3, 4

	var stats []*nfl.TeamWeekStat
	for week, yards := range map[int]float64{2: 100, 3: 200, 4: 330} {
		stats = append(stats, &nfl.TeamWeekStat{
			Team: "AAA", Season: 2024, Week: week, SeasonType: "REG",
			PassingYards: yards,
			Targets:      float64(week * 10),
			PassingTDs:   2,
		})
	}
	// outside the window, must be ignored
	stats = append(stats, &nfl.TeamWeekStat{
		Team: "AAA", Season: 2024, Week: 5, SeasonType: "REG", PassingYards: 9999,
	})

	rolling, err := nfl.RollingFeatures(stats, window)
	require.NoError(t, err)
	form := rolling["AAA"]
	require.NotNil(t, form)

	assert.InDelta(t, 210.0, form["passing_yards"], 1e-9, "passing_yards rolls up as a mean")
	assert.InDelta(t, 30.0, form["targets"], 1e-9, "targets roll up as a median")
	assert.InDelta(t, 6.0, form["passing_tds"], 1e-9, "passing_tds roll up as a sum")
}

func TestRollingFeaturesUnknownTeamAbsent(t *testing.T) {
	rolling, err := nfl.RollingFeatures(nil, nfl.LagWindow(2024, 5))
	require.NoError(t, err)
	assert.NotContains(t, rolling, "ZZZ")
}
