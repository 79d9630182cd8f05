package nfl

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nealgriffin/gridiron/internal/logger"
)

// Classifier is a binary home-win model over feature vectors
type Classifier interface {
	Fit(X [][]float64, y []float64) error
	PredictProba(x []float64) float64
	Predict(x []float64) int
}

// LogisticClassifier is a logistic regression trained by full-batch gradient
// descent. Training is deterministic: no shuffling, no random init, so a
// backtest run is exactly reproducible. Inputs are standardized internally
// against the training distribution.
type LogisticClassifier struct {
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	L2           float64 `json:"l2"`

	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	FeatureMeans []float64 `json:"feature_means"`
	FeatureStds  []float64 `json:"feature_stds"`
}

func NewLogisticClassifier() *LogisticClassifier {
	return &LogisticClassifier{
		LearningRate: 0.1,
		Epochs:       500,
		L2:           1e-3,
	}
}

func sigmoid(z float64) float64 {
	if z < -30 {
		return 0
	}
	if z > 30 {
		return 1
	}
	return 1 / (1 + math.Exp(-z))
}

func (c *LogisticClassifier) standardize(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - c.FeatureMeans[j]) / c.FeatureStds[j]
	}
	return out
}

// Fit trains weights from scratch. Labels must be 0 or 1.
func (c *LogisticClassifier) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return ErrEmptyInput
	}
	if len(X) != len(y) {
		return fmt.Errorf("feature rows %d do not match labels %d", len(X), len(y))
	}

	n := len(X)
	d := len(X[0])

	c.FeatureMeans = make([]float64, d)
	c.FeatureStds = make([]float64, d)
	for j := 0; j < d; j++ {
		total := 0.0
		for i := 0; i < n; i++ {
			total += X[i][j]
		}
		c.FeatureMeans[j] = total / float64(n)

		variance := 0.0
		for i := 0; i < n; i++ {
			diff := X[i][j] - c.FeatureMeans[j]
			variance += diff * diff
		}
		c.FeatureStds[j] = math.Sqrt(variance / float64(n))
		if c.FeatureStds[j] == 0 {
			c.FeatureStds[j] = 1
		}
	}

	scaled := make([][]float64, n)
	for i := range X {
		scaled[i] = c.standardize(X[i])
	}

	c.Weights = make([]float64, d)
	c.Bias = 0

	gradW := make([]float64, d)
	for epoch := 0; epoch < c.Epochs; epoch++ {
		for j := range gradW {
			gradW[j] = 0
		}
		gradB := 0.0
		for i := 0; i < n; i++ {
			z := c.Bias
			for j := 0; j < d; j++ {
				z += c.Weights[j] * scaled[i][j]
			}
			residual := sigmoid(z) - y[i]
			for j := 0; j < d; j++ {
				gradW[j] += residual * scaled[i][j]
			}
			gradB += residual
		}
		for j := 0; j < d; j++ {
			c.Weights[j] = c.Weights[j] - c.LearningRate*(gradW[j]/float64(n)+c.L2*c.Weights[j])
		}
		c.Bias -= c.LearningRate * gradB / float64(n)
	}
	return nil
}

// PredictProba returns the home-win probability
func (c *LogisticClassifier) PredictProba(x []float64) float64 {
	z := c.Bias
	scaled := c.standardize(x)
	for j := range c.Weights {
		z += c.Weights[j] * scaled[j]
	}
	return sigmoid(z)
}

// Predict returns OutcomeHomeWin or OutcomeHomeLoss
func (c *LogisticClassifier) Predict(x []float64) int {
	if c.PredictProba(x) >= 0.5 {
		return OutcomeHomeWin
	}
	return OutcomeHomeLoss
}

// Accuracy scores the classifier against labelled rows
func (c *LogisticClassifier) Accuracy(X [][]float64, y []float64) float64 {
	if len(X) == 0 {
		return math.NaN()
	}
	correct := 0
	for i := range X {
		if float64(c.Predict(X[i])) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

// TrainWithHoldout imputes and fits on the head of the matrix and reports
// accuracy on the held-out tail. Rows come in season/week order, so the tail
// is the most recent slice of history. The imputer is fitted on the head
// alone and then applied to the whole matrix, keeping the holdout score
// strictly out of sample; the fitted imputer is returned for use at predict
// time. Too few rows to split trains on everything and reports NaN.
func TrainWithHoldout(m *FeatureMatrix, holdoutFraction float64) (*LogisticClassifier, *Imputer, float64, error) {
	clf := NewLogisticClassifier()

	holdout := int(float64(len(m.X)) * holdoutFraction)
	if holdout < 1 || len(m.X)-holdout < 2 {
		imputer := FitImputer(m)
		imputer.Transform(m)
		if err := clf.Fit(m.X, m.Y); err != nil {
			return nil, nil, 0, err
		}
		return clf, imputer, math.NaN(), nil
	}

	split := len(m.X) - holdout
	head := &FeatureMatrix{Columns: m.Columns, GameIDs: m.GameIDs[:split], X: m.X[:split], Y: m.Y[:split]}
	imputer := FitImputer(head)
	imputer.Transform(m)

	if err := clf.Fit(m.X[:split], m.Y[:split]); err != nil {
		return nil, nil, 0, err
	}
	accuracy := clf.Accuracy(m.X[split:], m.Y[split:])
	logger.Info("Trained classifier", "train rows", split, "holdout rows", holdout, "holdout accuracy", accuracy)
	return clf, imputer, accuracy, nil
}

/////////////////////////////////////////////////////////////////////////
////// Persisted model artifacts
/////////////////////////////////////////////////////////////////////////

// modelPayload is the serialized form of a fitted model and its imputer
type modelPayload struct {
	Classifier *LogisticClassifier `json:"classifier"`
	Imputer    *Imputer            `json:"imputer"`
	Columns    []string            `json:"columns"`
}

// ModelArtifact is one backtest week's fitted model, stored alongside enough
// metadata to audit the run
type ModelArtifact struct {
	Season          int       `column:"season" dbtype:"INTEGER" primary:"true"`
	TargetWeek      int       `column:"target_week" dbtype:"INTEGER" primary:"true"`
	TrainedAt       time.Time `column:"trained_at" dbtype:"TEXT"`
	TrainRows       int       `column:"train_rows" dbtype:"INTEGER"`
	HoldoutAccuracy float64   `column:"holdout_accuracy" dbtype:"REAL"`
	Payload         string    `column:"payload" dbtype:"TEXT"`
}

func (a *ModelArtifact) GetTableName() string {
	return "model_artifacts"
}

func (a *ModelArtifact) GetPrimaryKey() map[string]any {
	return map[string]any{"season": a.Season, "target_week": a.TargetWeek}
}

func (a *ModelArtifact) InitDefaults() {
	a.HoldoutAccuracy = math.NaN()
}

// Encode stores the fitted model and imputer as the artifact payload
func (a *ModelArtifact) Encode(clf *LogisticClassifier, imp *Imputer) error {
	data, err := json.Marshal(modelPayload{Classifier: clf, Imputer: imp, Columns: TrainingColumns})
	if err != nil {
		return fmt.Errorf("failed to encode model payload: %w", err)
	}
	a.Payload = string(data)
	return nil
}

// Decode recovers the fitted model and imputer from the payload
func (a *ModelArtifact) Decode() (*LogisticClassifier, *Imputer, error) {
	var payload modelPayload
	if err := json.Unmarshal([]byte(a.Payload), &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to decode model payload for season %d week %d: %w",
			a.Season, a.TargetWeek, err)
	}
	if payload.Classifier == nil || payload.Imputer == nil {
		return nil, nil, fmt.Errorf("model payload for season %d week %d is incomplete", a.Season, a.TargetWeek)
	}
	return payload.Classifier, payload.Imputer, nil
}
