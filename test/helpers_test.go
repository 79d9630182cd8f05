package test

import (
	"fmt"

	"github.com/nealgriffin/gridiron/pkg/nfl"
)

// statRow builds a raw per-player weekly stat row with every whitelist column
// present, zeroed unless overridden
func statRow(team string, season, week int, overrides map[string]any) nfl.Row {
	row := nfl.Row{
		"recent_team": team,
		"season":      season,
		"season_type": "REG",
		"week":        week,
		"player_name": "someone", // extra columns should be ignored
	}
	for _, col := range []string{
		"passing_yards", "rushing_yards", "passing_tds", "rushing_tds",
		"interceptions", "sacks", "rushing_fumbles", "receiving_tds",
		"special_teams_tds", "carries", "targets", "receptions",
		"receiving_yards", "passing_2pt_conversions", "rushing_2pt_conversions",
	} {
		row[col] = 0.0
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

// scheduleRow builds a raw schedule row. Nil scores mean the game is unplayed.
func scheduleRow(season, week int, home, away string, homeScore, awayScore any) nfl.Row {
	return nfl.Row{
		"game_id":    fmt.Sprintf("%d_%02d_%s_%s", season, week, away, home),
		"season":     season,
		"game_type":  "REG",
		"week":       week,
		"home_team":  home,
		"away_team":  away,
		"home_score": homeScore,
		"away_score": awayScore,
		"home_rest":  7,
		"away_rest":  7,
		"div_game":   0,
	}
}

// seedSeason stages one synthetic season in which the first listed home team
// always beats its visitor by a wide margin, so outcomes are learnable
func seedSeason(season, weeks int) (stats []nfl.Row, games []nfl.Row) {
	type matchup struct {
		home, away           string
		homeScore, awayScore int
	}
	matchups := []matchup{
		{"AAA", "BBB", 30, 10},
		{"CCC", "DDD", 13, 27},
	}
	for week := 1; week <= weeks; week++ {
		for _, m := range matchups {
			games = append(games, scheduleRow(season, week, m.home, m.away, m.homeScore, m.awayScore))
			for _, side := range []struct {
				team  string
				score int
			}{{m.home, m.homeScore}, {m.away, m.awayScore}} {
				stats = append(stats, statRow(side.team, season, week, map[string]any{
					"passing_yards": float64(side.score) * 8,
					"rushing_yards": float64(side.score) * 4,
					"passing_tds":   float64(side.score) / 10,
					"carries":       20.0,
					"targets":       30.0,
					"receptions":    18.0,
				}))
			}
		}
	}
	return stats, games
}
