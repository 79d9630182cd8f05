package test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nealgriffin/gridiron/pkg/nfl"
)

func buildFixtures(t *testing.T, statRows, gameRows []nfl.Row) ([]*nfl.ScheduleGame, []*nfl.TeamWeekStat) {
	t.Helper()
	stats, err := nfl.NormalizeWeeklyStats(statRows, "stg_weekly_stats")
	require.NoError(t, err)
	games, err := nfl.NormalizeSchedule(gameRows, nil, "stg_schedules")
	require.NoError(t, err)
	return games, stats
}

func TestBuildGameTableJoinsBothSides(t *testing.T) {
	games, stats := buildFixtures(t,
		[]nfl.Row{
			statRow("AAA", 2024, 1, map[string]any{"passing_yards": 300.0}),
			statRow("BBB", 2024, 1, map[string]any{"passing_yards": 150.0}),
		},
		[]nfl.Row{scheduleRow(2024, 1, "AAA", "BBB", 27, 20)},
	)

	rows, missing, err := nfl.BuildGameTable(games, stats)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, missing)

	row := rows[0]
	assert.Equal(t, 1, row.HomeStatsMatched)
	assert.Equal(t, 1, row.AwayStatsMatched)
	assert.Equal(t, 300.0, row.HomeStats.PassingYards)
	assert.Equal(t, 150.0, row.AwayStats.PassingYards)

	// the flattened view carries the suffixed columns the model trains on
	values := nfl.ColumnValues(row)
	assert.Equal(t, 300.0, values["passing_yards_home"])
	assert.Equal(t, 150.0, values["passing_yards_away"])
	assert.NotContains(t, values, "recent_team_home", "Join key echoes should be dropped")
	assert.NotContains(t, values, "season_home")
}

func TestBuildGameTablePreservesEveryGame(t *testing.T) {
	games, stats := buildFixtures(t,
		[]nfl.Row{statRow("AAA", 2024, 1, nil)},
		[]nfl.Row{
			scheduleRow(2024, 1, "AAA", "BBB", 27, 20),
			scheduleRow(2024, 1, "CCC", "DDD", 14, 17),
		},
	)

	rows, missing, err := nfl.BuildGameTable(games, stats)
	require.NoError(t, err)
	assert.Len(t, rows, len(games), "Unmatched stat lines must not drop games")

	// BBB, CCC and DDD have no stat lines
	require.Len(t, missing, 3)
	assert.Equal(t, 0, rows[0].AwayStatsMatched)
	assert.Equal(t, 0, rows[1].HomeStatsMatched)
	assert.Equal(t, 0, rows[1].AwayStatsMatched)
}

func TestBuildGameTableDuplicateStatLine(t *testing.T) {
	games, stats := buildFixtures(t,
		[]nfl.Row{statRow("AAA", 2024, 1, nil), statRow("BBB", 2024, 1, nil)},
		[]nfl.Row{scheduleRow(2024, 1, "AAA", "BBB", 27, 20)},
	)
	stats = append(stats, stats[0]) // fabricate a duplicate team-week

	_, _, err := nfl.BuildGameTable(games, stats)
	var integrity *nfl.DataIntegrityError
	require.ErrorAs(t, err, &integrity, "A duplicate stat line would fan out the join and must fail")
}
