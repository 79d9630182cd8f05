package test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nealgriffin/gridiron/pkg/nfl"
)

func TestPredicateSQLIsParameterized(t *testing.T) {
	pred := nfl.Or(
		nfl.Lt("season", 2024),
		nfl.And(nfl.Eq("season", 2024), nfl.Le("week", 16)),
	)

	sql, args := pred.SQL()
	assert.Equal(t, "(season < ? OR (season = ? AND week <= ?))", sql)
	assert.Equal(t, []any{2024, 2024, 16}, args)
}

func TestPredicateMatchesMirrorsSQL(t *testing.T) {
	pred := nfl.Or(
		nfl.Lt("season", 2024),
		nfl.And(nfl.Eq("season", 2024), nfl.Le("week", 16)),
	)

	assert.True(t, pred.Matches(nfl.Row{"season": 2023, "week": 18}))
	assert.True(t, pred.Matches(nfl.Row{"season": 2024, "week": 16}))
	assert.False(t, pred.Matches(nfl.Row{"season": 2024, "week": 17}))
	assert.False(t, pred.Matches(nfl.Row{"season": 2025, "week": 1}))
}

func TestPredicateComparisonOperators(t *testing.T) {
	row := nfl.Row{"week": 10}
	assert.True(t, nfl.Ge("week", 10).Matches(row))
	assert.True(t, nfl.Gt("week", 9).Matches(row))
	assert.True(t, nfl.Ne("week", 9).Matches(row))
	assert.False(t, nfl.Ne("week", 10).Matches(row))
	assert.False(t, nfl.Gt("week", 10).Matches(row))
}

func TestPredicateStringComparisons(t *testing.T) {
	pred := nfl.Eq("home_team", "AAA")
	assert.True(t, pred.Matches(nfl.Row{"home_team": "AAA"}))
	assert.False(t, pred.Matches(nfl.Row{"home_team": "BBB"}))
}

func TestPredicateMissingColumnNeverMatches(t *testing.T) {
	// mirrors SQL NULL semantics: no comparison against a missing value holds
	assert.False(t, nfl.Eq("week", 1).Matches(nfl.Row{}))
	assert.False(t, nfl.Ne("week", 1).Matches(nfl.Row{"week": nil}))
	assert.False(t, nfl.Lt("week", 99).Matches(nfl.Row{"week": nil}))
}

func TestPredicateStringRendering(t *testing.T) {
	pred := nfl.And(nfl.Eq("season", 2024), nfl.Eq("week", 17))
	require.Contains(t, pred.String(), "season = 2024")
	require.Contains(t, pred.String(), "week = 17")
}
