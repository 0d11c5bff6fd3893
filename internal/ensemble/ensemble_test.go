package ensemble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/bracket-forecast/internal/models"
)

func TestBlend_EqualWeights(t *testing.T) {
	p, err := Blend(map[models.Source]float64{
		models.SourceRating:     0.6,
		models.SourceClassifier: 0.8,
	}, nil, MethodWeighted)

	require.NoError(t, err)
	assert.InDelta(t, 0.70, p, 1e-12)
}

func TestBlend_Weights(t *testing.T) {
	estimates := map[models.Source]float64{
		models.SourceRating:     0.6,
		models.SourceClassifier: 0.8,
		models.SourcePrior:      0.5,
	}

	tests := []struct {
		name    string
		weights map[models.Source]float64
		want    float64
	}{
		{
			name:    "unnormalized weights are rescaled",
			weights: map[models.Source]float64{models.SourceRating: 3, models.SourceClassifier: 1, models.SourcePrior: 0},
			want:    0.65,
		},
		{
			name:    "source without weight is excluded",
			weights: map[models.Source]float64{models.SourceRating: 1, models.SourceClassifier: 1},
			want:    0.70,
		},
		{
			name:    "weight for missing source is dropped",
			weights: map[models.Source]float64{models.SourceRating: 1, models.SourcePrior: 1, "elo_plus": 5},
			want:    0.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Blend(estimates, tt.weights, MethodWeighted)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, p, 1e-12)
		})
	}
}

func TestBlend_Errors(t *testing.T) {
	estimates := map[models.Source]float64{models.SourceRating: 0.6}

	_, err := Blend(estimates, nil, "stacking")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknownMethod))
	var unknown *models.UnknownMethodError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "stacking", unknown.Method)

	_, err = Blend(estimates, map[models.Source]float64{models.SourceRating: -1}, MethodWeighted)
	assert.True(t, errors.Is(err, ErrNegativeWeight))

	_, err = Blend(estimates, map[models.Source]float64{models.SourcePrior: 1}, MethodWeighted)
	assert.True(t, errors.Is(err, ErrZeroWeight))

	_, err = Blend(nil, nil, MethodWeighted)
	assert.True(t, errors.Is(err, ErrNoEstimates))
}

func TestBlend_Clamped(t *testing.T) {
	p, err := Blend(map[models.Source]float64{models.SourceRating: 1}, nil, MethodWeighted)
	require.NoError(t, err)
	assert.Equal(t, 1-models.ProbabilityEpsilon, p)
}

func TestNormalize(t *testing.T) {
	w, err := Normalize(map[models.Source]float64{models.SourceRating: 2, models.SourcePrior: 2}, []models.Source{models.SourceRating, models.SourcePrior})
	require.NoError(t, err)
	assert.Equal(t, 0.5, w[models.SourceRating])

	w, err = Normalize(nil, []models.Source{models.SourceRating, models.SourceClassifier, models.SourcePrior})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, w[models.SourcePrior], 1e-12)
}

func TestFallbackWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights map[models.Source]float64
		want    map[models.Source]float64
	}{
		{
			name:    "uniform stays uniform",
			weights: nil,
			want:    nil,
		},
		{
			name:    "classifier only",
			weights: map[models.Source]float64{models.SourceClassifier: 1},
			want:    map[models.Source]float64{models.SourcePrior: 1},
		},
		{
			name:    "prior left out",
			weights: map[models.Source]float64{models.SourceClassifier: 0.5, models.SourceRating: 0.5},
			want:    map[models.Source]float64{models.SourceRating: 0.5, models.SourcePrior: 0.5},
		},
		{
			name:    "prior already weighted",
			weights: map[models.Source]float64{models.SourceClassifier: 0.5, models.SourceRating: 0.3, models.SourcePrior: 0.2},
			want:    map[models.Source]float64{models.SourceRating: 0.3, models.SourcePrior: 0.7},
		},
		{
			name:    "all zero",
			weights: map[models.Source]float64{models.SourceRating: 0},
			want:    map[models.Source]float64{models.SourceRating: 0, models.SourcePrior: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackWeights(tt.weights)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackWeights_BlendUsesPrior(t *testing.T) {
	estimates := map[models.Source]float64{models.SourceRating: 0.6, models.SourcePrior: 0.4}

	p, err := Blend(estimates, FallbackWeights(map[models.Source]float64{models.SourceClassifier: 1}), MethodWeighted)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, p, 1e-12)

	p, err = Blend(estimates, FallbackWeights(map[models.Source]float64{models.SourceClassifier: 0.5, models.SourceRating: 0.5}), MethodWeighted)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)
}

func TestCanonicalAndOrient(t *testing.T) {
	first, second, swapped := Canonical("unc", "duke")
	assert.Equal(t, "duke", first)
	assert.Equal(t, "unc", second)
	assert.True(t, swapped)

	_, _, swapped = Canonical("duke", "unc")
	assert.False(t, swapped)

	p := 0.63
	assert.Equal(t, p, Orient("duke", "unc", p))
	assert.InDelta(t, 1.0, Orient("duke", "unc", p)+Orient("unc", "duke", p), 1e-12)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.True(t, errors.Is(Config{Method: "median"}.Validate(), models.ErrUnknownMethod))
	assert.True(t, errors.Is(Config{Method: MethodWeighted, Weights: map[models.Source]float64{"x": -2}}.Validate(), ErrNegativeWeight))
}
