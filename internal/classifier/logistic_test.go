package classifier

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/bracket-forecast/internal/features"
	"github.com/yourusername/bracket-forecast/internal/models"
)

var cutoff = time.Date(2019, time.March, 17, 0, 0, 0, 0, time.UTC)

// syntheticRows draws rows where team A wins more often the larger its
// strength advantage.
func syntheticRows(n int, seed int64) []TrainingRow {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]TrainingRow, 0, n)
	start := time.Date(2018, time.November, 6, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		strength := rng.NormFloat64() * 10
		noise := rng.NormFloat64() * 2
		outcome := 0.0
		if rng.Float64() < 1/(1+math.Exp(-strength/5)) {
			outcome = 1
		}
		rows = append(rows, TrainingRow{
			GameID:  "g",
			Date:    start.AddDate(0, 0, i%120),
			Outcome: outcome,
			Diff: features.Diff{
				"adj_o_diff": strength,
				"noise_diff": noise,
			},
		})
	}
	return rows
}

func testConfig() Config {
	return Config{
		Features:      []string{"adj_o_diff", "noise_diff"},
		C:             1.0,
		MaxIterations: 200,
		Standardize:   true,
	}
}

func TestFit_LearnsDirection(t *testing.T) {
	model, err := Fit(syntheticRows(600, 7), cutoff, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 600, model.Rows)
	assert.Greater(t, model.Weights[0], 0.0)
	assert.Greater(t, model.Weights[0], 2*math.Abs(model.Weights[1]))

	strong, err := model.Predict(features.Diff{"adj_o_diff": 15, "noise_diff": 0})
	require.NoError(t, err)
	weak, err := model.Predict(features.Diff{"adj_o_diff": -15, "noise_diff": 0})
	require.NoError(t, err)

	assert.Greater(t, strong, 0.5)
	assert.Less(t, weak, 0.5)
	assert.Greater(t, strong, 0.0)
	assert.Less(t, strong, 1.0)
}

func TestFit_Deterministic(t *testing.T) {
	rows := syntheticRows(200, 11)

	first, err := Fit(rows, cutoff, testConfig())
	require.NoError(t, err)
	second, err := Fit(rows, cutoff, testConfig())
	require.NoError(t, err)

	assert.Equal(t, first.Weights, second.Weights)
	assert.Equal(t, first.Intercept, second.Intercept)
}

func TestFit_SingleClassStaysBounded(t *testing.T) {
	rows := syntheticRows(50, 3)
	for i := range rows {
		rows[i].Outcome = 1
	}

	model, err := Fit(rows, cutoff, testConfig())
	require.NoError(t, err)

	p, err := model.Predict(features.Diff{"adj_o_diff": 0, "noise_diff": 0})
	require.NoError(t, err)
	assert.Greater(t, p, 0.5)
	assert.Less(t, p, 1.0)
}

func TestFit_RejectsRowAfterCutoff(t *testing.T) {
	rows := syntheticRows(20, 5)
	rows[7].Date = cutoff.AddDate(0, 0, 1)

	_, err := Fit(rows, cutoff, testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrLeakage))
}

func TestFit_InvalidInput(t *testing.T) {
	_, err := Fit(nil, cutoff, testConfig())
	assert.True(t, errors.Is(err, ErrNoTrainingRows))

	cfg := testConfig()
	cfg.Features = nil
	_, err = Fit(syntheticRows(5, 1), cutoff, cfg)
	assert.True(t, errors.Is(err, ErrNoFeatures))

	rows := syntheticRows(5, 1)
	rows[2].Outcome = 0.5
	_, err = Fit(rows, cutoff, testConfig())
	assert.True(t, errors.Is(err, ErrInvalidOutcome))

	rows = syntheticRows(5, 1)
	delete(rows[3].Diff, "noise_diff")
	_, err = Fit(rows, cutoff, testConfig())
	assert.True(t, errors.Is(err, models.ErrMissingFeature))
}

func TestPredict_MissingFeature(t *testing.T) {
	model, err := Fit(syntheticRows(100, 2), cutoff, testConfig())
	require.NoError(t, err)

	_, err = model.Predict(features.Diff{"adj_o_diff": 3})
	require.Error(t, err)

	var missing *models.MissingFeatureError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"noise_diff"}, missing.Columns)
}

func TestPredict_WithoutStandardization(t *testing.T) {
	cfg := testConfig()
	cfg.Standardize = false

	model, err := Fit(syntheticRows(300, 9), cutoff, cfg)
	require.NoError(t, err)
	assert.Empty(t, model.Stds)

	p, err := model.Predict(features.Diff{"adj_o_diff": 10, "noise_diff": 0})
	require.NoError(t, err)
	assert.Greater(t, p, 0.5)
}
