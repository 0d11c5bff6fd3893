// Package classifier fits an L2-regularized logistic regression on matchup
// feature differences.
package classifier

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/bracket-forecast/internal/features"
	"github.com/yourusername/bracket-forecast/internal/leakage"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// Config holds classifier parameters
type Config struct {
	Features      []string `json:"features"`
	C             float64  `json:"c"`
	MaxIterations int      `json:"max_iterations"`
	Standardize   bool     `json:"standardize"`
}

// DefaultConfig returns the default classifier parameters
func DefaultConfig() Config {
	return Config{
		Features:      []string{"elo_diff", "adj_o_diff", "adj_d_diff", "tempo_diff"},
		C:             1.0,
		MaxIterations: 200,
		Standardize:   true,
	}
}

// TrainingRow is one labeled matchup. Outcome is 1 when team A won.
type TrainingRow struct {
	GameID  string        `json:"game_id"`
	Date    time.Time     `json:"date"`
	Outcome float64       `json:"outcome"`
	Diff    features.Diff `json:"diff"`
}

// Model is a fitted logistic regression
type Model struct {
	Features  []string  `json:"features"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Means     []float64 `json:"means,omitempty"`
	Stds      []float64 `json:"stds,omitempty"`
	Cutoff    time.Time `json:"cutoff"`
	Rows      int       `json:"rows"`
}

// Fit trains a model on rows dated on or before cutoff. A row dated after the
// cutoff fails the whole fit.
func Fit(rows []TrainingRow, cutoff time.Time, cfg Config) (*Model, error) {
	if len(cfg.Features) == 0 {
		return nil, ErrNoFeatures
	}
	if len(rows) == 0 {
		return nil, ErrNoTrainingRows
	}
	if cfg.C <= 0 {
		return nil, fmt.Errorf("classifier C must be positive, got %v", cfg.C)
	}

	n, k := len(rows), len(cfg.Features)
	x := make([][]float64, n)
	y := make([]float64, n)
	for i, row := range rows {
		if err := leakage.CheckRecord(leakage.RecordTraining+" "+row.GameID, row.Date, cutoff); err != nil {
			return nil, err
		}
		if row.Outcome != 0 && row.Outcome != 1 {
			return nil, fmt.Errorf("%w: row %s has %v", ErrInvalidOutcome, row.GameID, row.Outcome)
		}
		if missing := row.Diff.Missing(cfg.Features); len(missing) > 0 {
			return nil, &models.MissingFeatureError{TeamID: row.GameID, Columns: missing}
		}
		x[i] = make([]float64, k)
		for j, name := range cfg.Features {
			x[i][j] = row.Diff[name]
		}
		y[i] = row.Outcome
	}

	model := &Model{
		Features: append([]string(nil), cfg.Features...),
		Cutoff:   cutoff,
		Rows:     n,
	}
	if cfg.Standardize {
		model.Means, model.Stds = standardize(x, k)
	}

	params, err := minimize(x, y, cfg)
	if err != nil {
		return nil, err
	}
	model.Weights = params[:k]
	model.Intercept = params[k]
	return model, nil
}

// Predict returns the probability that team A wins. Every model column must be
// present in diff.
func (m *Model) Predict(diff features.Diff) (float64, error) {
	if missing := diff.Missing(m.Features); len(missing) > 0 {
		return 0, &models.MissingFeatureError{Columns: missing}
	}
	z := m.Intercept
	for j, name := range m.Features {
		v := diff[name]
		if len(m.Stds) == len(m.Features) {
			v = (v - m.Means[j]) / m.Stds[j]
		}
		z += m.Weights[j] * v
	}
	return models.ClampProbability(sigmoid(z)), nil
}

// standardize scales each column of x in place and returns the column stats.
// Constant columns keep a unit scale.
func standardize(x [][]float64, k int) ([]float64, []float64) {
	means := make([]float64, k)
	stds := make([]float64, k)
	col := make([]float64, len(x))
	for j := 0; j < k; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		means[j], stds[j] = mean, std
		for i := range x {
			x[i][j] = (x[i][j] - mean) / std
		}
	}
	return means, stds
}

// minimize fits weights and intercept by minimising
// 0.5*||theta||^2 + C * sum(logloss). The intercept is penalized too, which
// keeps the fit bounded when every row has the same label.
func minimize(x [][]float64, y []float64, cfg Config) ([]float64, error) {
	k := len(cfg.Features)
	z := make([]float64, len(x))

	linear := func(theta []float64) {
		for i, row := range x {
			z[i] = floats.Dot(theta[:k], row) + theta[k]
		}
	}

	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			linear(theta)
			loss := 0.0
			for i := range x {
				// log(1+e^z) - y*z, written to avoid overflow
				loss += softplus(z[i]) - y[i]*z[i]
			}
			return 0.5*floats.Dot(theta, theta) + cfg.C*loss
		},
		Grad: func(grad, theta []float64) {
			linear(theta)
			copy(grad, theta)
			for i, row := range x {
				r := cfg.C * (sigmoid(z[i]) - y[i])
				floats.AddScaled(grad[:k], r, row)
				grad[k] += r
			}
		},
	}

	settings := optimize.Settings{
		GradientThreshold: 1e-8,
		MajorIterations:   cfg.MaxIterations,
	}

	result, err := optimize.Minimize(problem, make([]float64, k+1), &settings, &optimize.BFGS{})
	// Line search failures close to the optimum still leave a usable point.
	if result == nil || !finite(result.X) {
		if err == nil {
			err = ErrNotConverged
		}
		return nil, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	return append([]float64(nil), result.X...), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func finite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
