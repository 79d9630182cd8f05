package nfl

import (
	"math"
	"reflect"
)

// FeatureMatrix is a dense numeric view of game rows over the fixed
// TrainingColumns schema. Missing values are NaN until the imputer runs.
type FeatureMatrix struct {
	Columns []string
	GameIDs []string
	X       [][]float64
	Y       []float64
}

// statColumns returns every suffixed stat column of an embedded side, with
// the unsuffixed base name alongside
func statColumns(suffix string) map[string]string {
	out := make(map[string]string)
	for _, f := range tableFields(reflect.TypeOf(TeamWeekStat{})) {
		out[f.column+suffix] = f.column
	}
	return out
}

func featurizeValues(values map[string]any) ([]float64, error) {
	row := make([]float64, len(TrainingColumns))
	for i, col := range TrainingColumns {
		if col == "season_type" {
			st := asString(values[col])
			code, ok := SeasonTypeCode[st]
			if !ok {
				return nil, &DataIntegrityError{
					Table:  "base_model",
					Column: col,
					Reason: "unencodable season type " + st,
				}
			}
			row[i] = code
			continue
		}
		v, ok := values[col]
		if !ok || v == nil {
			row[i] = math.NaN()
			continue
		}
		row[i] = asFloat(v)
	}
	return row, nil
}

// FeaturizeTraining builds the labelled training matrix from played games.
// Unplayed rows that slipped into the partition are skipped rather than
// labelled: an unknown outcome is not a home loss. Sides the stat join could
// not match contribute NaN, not zero, so the imputer sees them as missing.
func FeaturizeTraining(rows []*GameFeatureRow) (*FeatureMatrix, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	homeStats := statColumns("_home")
	awayStats := statColumns("_away")

	m := &FeatureMatrix{Columns: TrainingColumns}
	for _, r := range rows {
		if r.Outcome == OutcomeUnknown {
			continue
		}
		values := ColumnValues(r)
		if r.HomeStatsMatched == 0 {
			for col := range homeStats {
				values[col] = math.NaN()
			}
		}
		if r.AwayStatsMatched == 0 {
			for col := range awayStats {
				values[col] = math.NaN()
			}
		}
		x, err := featurizeValues(values)
		if err != nil {
			return nil, err
		}
		m.GameIDs = append(m.GameIDs, r.GameID)
		m.X = append(m.X, x)
		m.Y = append(m.Y, float64(r.Outcome))
	}
	if len(m.X) == 0 {
		return nil, ErrEmptyInput
	}
	return m, nil
}

// FeaturizePredict builds the unlabelled matrix for target-week games. The
// games have not been played when the prediction is made, so nothing from the
// game itself may enter the features: the scores are zeroed and every
// aggregated stat column is replaced by the team's rolling lag-window value.
// Teams with no rolling entry contribute NaN and fall to the imputer.
func FeaturizePredict(rows []*GameFeatureRow, rolling map[string]map[string]float64) (*FeatureMatrix, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	homeStats := statColumns("_home")
	awayStats := statColumns("_away")

	m := &FeatureMatrix{Columns: TrainingColumns}
	for _, r := range rows {
		values := ColumnValues(r)
		values["home_score"] = 0
		values["away_score"] = 0

		substitute := func(side map[string]string, team string) {
			form := rolling[team]
			for suffixed, base := range side {
				if form != nil {
					if v, ok := form[base]; ok {
						values[suffixed] = v
						continue
					}
				}
				values[suffixed] = math.NaN()
			}
		}
		substitute(homeStats, r.HomeTeam)
		substitute(awayStats, r.AwayTeam)

		x, err := featurizeValues(values)
		if err != nil {
			return nil, err
		}
		m.GameIDs = append(m.GameIDs, r.GameID)
		m.X = append(m.X, x)
	}
	return m, nil
}

// AsRows renders the matrix for raw-table persistence, one map per game with
// the label attached when present
func (m *FeatureMatrix) AsRows() []Row {
	out := make([]Row, 0, len(m.X))
	for i, x := range m.X {
		row := make(Row, len(m.Columns)+2)
		row["game_id"] = m.GameIDs[i]
		for j, col := range m.Columns {
			if math.IsNaN(x[j]) {
				row[col] = nil
			} else {
				row[col] = x[j]
			}
		}
		if m.Y != nil {
			row["outcome"] = m.Y[i]
		}
		out = append(out, row)
	}
	return out
}

/////////////////////////////////////////////////////////////////////////
////// Imputation
/////////////////////////////////////////////////////////////////////////

// Imputer fills missing feature values with the column means observed on the
// training matrix. It is fitted on training data only and reused unchanged on
// prediction rows, so the prediction pass learns nothing new.
type Imputer struct {
	Columns []string  `json:"columns"`
	Means   []float64 `json:"means"`
}

// FitImputer computes per-column means over the non-missing training values.
// A column with no observed value at all imputes to zero.
func FitImputer(m *FeatureMatrix) *Imputer {
	means := make([]float64, len(m.Columns))
	for j := range m.Columns {
		total, n := 0.0, 0
		for i := range m.X {
			if v := m.X[i][j]; !math.IsNaN(v) {
				total += v
				n++
			}
		}
		if n > 0 {
			means[j] = total / float64(n)
		}
	}
	return &Imputer{Columns: append([]string{}, m.Columns...), Means: means}
}

// Transform replaces NaN entries in place
func (imp *Imputer) Transform(m *FeatureMatrix) {
	for i := range m.X {
		for j := range m.X[i] {
			if math.IsNaN(m.X[i][j]) {
				m.X[i][j] = imp.Means[j]
			}
		}
	}
}
