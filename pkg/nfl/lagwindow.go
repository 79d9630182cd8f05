package nfl

// SeasonWeek identifies one week of one season
type SeasonWeek struct {
	Season int
	Week   int
}

// LagWindow returns the three completed weeks whose stat lines feed the
// rolling features for the given target week. Early-season weeks reach back
// into the tail of the previous season so the window is always three weeks
// deep.
func LagWindow(season, week int) []SeasonWeek {
	prev := season - 1
	switch week {
	case 1:
		return []SeasonWeek{{prev, 16}, {prev, 17}, {prev, 18}}
	case 2:
		return []SeasonWeek{{prev, 17}, {prev, 18}, {season, 1}}
	case 3:
		return []SeasonWeek{{prev, 18}, {season, 1}, {season, 2}}
	default:
		return []SeasonWeek{{season, week - 3}, {season, week - 2}, {season, week - 1}}
	}
}

// LagPredicate expresses a lag window as a storage filter
func LagPredicate(window []SeasonWeek) Predicate {
	terms := make([]Predicate, 0, len(window))
	for _, sw := range window {
		terms = append(terms, And(Eq("season", sw.Season), Eq("week", sw.Week)))
	}
	return Or(terms...)
}
