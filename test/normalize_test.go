package test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nealgriffin/gridiron/pkg/nfl"
)

func TestNormalizeWeeklyStatsSumsPlayers(t *testing.T) {
	raw := []nfl.Row{
		statRow("AAA", 2024, 3, map[string]any{"passing_yards": 250.0, "passing_tds": 2.0, "sacks": 1.5}),
		statRow("AAA", 2024, 3, map[string]any{"rushing_yards": 90.0, "rushing_tds": 1.0, "sacks": 0.5}),
		statRow("BBB", 2024, 3, map[string]any{"passing_yards": 180.0}),
	}

	stats, err := nfl.NormalizeWeeklyStats(raw, "stg_weekly_stats")
	require.NoError(t, err)
	require.Len(t, stats, 2, "Two teams should yield two stat lines")

	aaa := stats[0]
	assert.Equal(t, "AAA", aaa.Team)
	assert.Equal(t, 250.0, aaa.PassingYards)
	assert.Equal(t, 90.0, aaa.RushingYards)
	assert.Equal(t, 2.0, aaa.Sacks, "Half sacks should sum across players")

	// 2 passing + 1 rushing TD, no two point conversions
	assert.Equal(t, 18.0, aaa.Touchdowns)
	assert.Equal(t, 18.0, aaa.TotalScore)
	assert.Equal(t, 340.0, aaa.TotalYardsOffense)
}

func TestNormalizeWeeklyStatsNullCountsAsZero(t *testing.T) {
	row := statRow("AAA", 2024, 1, nil)
	row["passing_yards"] = nil

	stats, err := nfl.NormalizeWeeklyStats([]nfl.Row{row}, "stg_weekly_stats")
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats[0].PassingYards)
}

func TestNormalizeWeeklyStatsMissingColumn(t *testing.T) {
	row := statRow("AAA", 2024, 1, nil)
	delete(row, "interceptions")

	_, err := nfl.NormalizeWeeklyStats([]nfl.Row{row}, "stg_weekly_stats")
	var integrity *nfl.DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "interceptions", integrity.Column)
}

func TestNormalizeWeeklyStatsEmptyInput(t *testing.T) {
	_, err := nfl.NormalizeWeeklyStats(nil, "stg_weekly_stats")
	assert.ErrorIs(t, err, nfl.ErrEmptyInput)
}

func TestNormalizeScheduleOutcomes(t *testing.T) {
	raw := []nfl.Row{
		scheduleRow(2024, 1, "AAA", "BBB", 27, 20),
		scheduleRow(2024, 1, "CCC", "DDD", 10, 31),
		scheduleRow(2024, 2, "BBB", "AAA", nil, nil), // not yet played
	}

	games, err := nfl.NormalizeSchedule(raw, nil, "stg_schedules")
	require.NoError(t, err)
	require.Len(t, games, 3)

	assert.Equal(t, nfl.OutcomeHomeWin, games[0].Outcome)
	assert.Equal(t, 7.0, games[0].ScoreDiff)
	assert.Equal(t, 47.0, games[0].TotalPoints)

	assert.Equal(t, nfl.OutcomeHomeLoss, games[1].Outcome)

	unplayed := games[2]
	assert.Equal(t, nfl.OutcomeUnknown, unplayed.Outcome, "Unplayed games must never look like a home loss")
	assert.Equal(t, -1, unplayed.HomeScore)
	assert.Equal(t, -1, unplayed.AwayScore)
	assert.True(t, math.IsNaN(unplayed.ScoreDiff))
}

func TestNormalizeSchedulePlayoffTypesCollapse(t *testing.T) {
	for _, gt := range []string{"WC", "DIV", "CON", "SB", "POST"} {
		row := scheduleRow(2024, 19, "AAA", "BBB", 21, 14)
		row["game_type"] = gt
		games, err := nfl.NormalizeSchedule([]nfl.Row{row}, nil, "stg_schedules")
		require.NoError(t, err)
		assert.Equal(t, "POST", games[0].SeasonType, "Game type %s should map to POST", gt)
	}
}

func TestNormalizeScheduleUnmappedGameType(t *testing.T) {
	row := scheduleRow(2024, 1, "AAA", "BBB", 21, 14)
	row["game_type"] = "PRE"

	_, err := nfl.NormalizeSchedule([]nfl.Row{row}, nil, "stg_schedules")
	var integrity *nfl.DataIntegrityError
	require.ErrorAs(t, err, &integrity, "Unmapped game types must fail, not default")
}

func TestNormalizeScheduleIncludeFilter(t *testing.T) {
	raw := []nfl.Row{
		scheduleRow(2024, 1, "AAA", "BBB", 27, 20),
		scheduleRow(2017, 1, "CCC", "DDD", 10, 31),
	}

	games, err := nfl.NormalizeSchedule(raw, nfl.Eq("season", 2024), "stg_schedules")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, 2024, games[0].Season)

	_, err = nfl.NormalizeSchedule(raw, nfl.Eq("season", 1999), "stg_schedules")
	assert.True(t, errors.Is(err, nfl.ErrEmptyInput), "A filter matching nothing should report empty input")
}
