package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/bracket-forecast/internal/calibration"
	"github.com/yourusername/bracket-forecast/internal/config"
	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/featurestore"
	"github.com/yourusername/bracket-forecast/internal/models"
)

var cutoff2019 = dates.SelectionSunday(2019)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testStore() *featurestore.Memory {
	return featurestore.NewMemoryFromFixture(featurestore.Synthetic(featurestore.SyntheticOptions{
		Seasons:         []int{2018, 2019},
		Teams:           8,
		GamesPerDay:     2,
		TournamentGames: 12,
		Seed:            7,
	}))
}

func trainArtifact(t *testing.T, store featurestore.Reader, settings Settings) *Artifact {
	t.Helper()
	artifact, err := NewTrainer(store, settings, quietLogger()).Train(context.Background(), TrainRequest{
		Seasons: []int{2018, 2019},
		Cutoff:  cutoff2019,
	})
	require.NoError(t, err)
	return artifact
}

func TestTrain(t *testing.T) {
	artifact := trainArtifact(t, testStore(), DefaultSettings())

	assert.Equal(t, []int{2018, 2019}, artifact.Seasons)
	assert.True(t, artifact.Cutoff.Equal(cutoff2019))
	assert.Equal(t, "forecast-"+dates.FormatDate(cutoff2019), artifact.Name)
	require.NotNil(t, artifact.Classifier)
	assert.Len(t, artifact.Classifier.Weights, len(DefaultSettings().Classifier.Features))
	assert.False(t, artifact.Classifier.Cutoff.After(cutoff2019))
	assert.Equal(t, calibration.MethodIsotonic, artifact.Calibration.Method())
}

func TestTrain_InvalidRequests(t *testing.T) {
	trainer := NewTrainer(testStore(), DefaultSettings(), quietLogger())
	ctx := context.Background()

	_, err := trainer.Train(ctx, TrainRequest{Cutoff: cutoff2019})
	assert.ErrorIs(t, err, ErrNoSeasons)

	_, err = trainer.Train(ctx, TrainRequest{Seasons: []int{2018}})
	assert.ErrorIs(t, err, ErrNoCutoff)

	// 2020 starts after the cutoff
	_, err = trainer.Train(ctx, TrainRequest{Seasons: []int{2019, 2020}, Cutoff: cutoff2019})
	assert.ErrorIs(t, err, models.ErrLeakage)

	settings := DefaultSettings()
	settings.Ensemble.Method = "stacking"
	_, err = NewTrainer(testStore(), settings, quietLogger()).Train(ctx, TrainRequest{Seasons: []int{2018}, Cutoff: cutoff2019})
	assert.ErrorIs(t, err, models.ErrUnknownMethod)
}

func TestTrain_Deterministic(t *testing.T) {
	store := testStore()
	first := trainArtifact(t, store, DefaultSettings())
	second := trainArtifact(t, store, DefaultSettings())

	assert.Equal(t, first.Classifier.Weights, second.Classifier.Weights)
	assert.Equal(t, first.Classifier.Intercept, second.Classifier.Intercept)
	x1, y1 := first.Calibration.Knots()
	x2, y2 := second.Calibration.Knots()
	assert.Equal(t, x1, x2)
	assert.Equal(t, y1, y2)
}

func TestPredictMatchup_Complement(t *testing.T) {
	store := testStore()
	artifact := trainArtifact(t, store, DefaultSettings())
	predictor := NewPredictor(store, quietLogger(), time.Minute, 2)
	ctx := context.Background()
	asOf := cutoff2019.AddDate(0, 0, 1)

	teams := []string{"T00", "T03", "T04", "T07"}
	for _, a := range teams {
		for _, b := range teams {
			if a == b {
				continue
			}
			pab, err := predictor.PredictMatchup(ctx, artifact, a, b, asOf, true)
			require.NoError(t, err)
			pba, err := predictor.PredictMatchup(ctx, artifact, b, a, asOf, true)
			require.NoError(t, err)

			assert.InDelta(t, 1.0, pab+pba, 1e-9, "%s vs %s", a, b)
			assert.Greater(t, pab, 0.0)
			assert.Less(t, pab, 1.0)
		}
	}

	strong, err := predictor.PredictMatchup(ctx, artifact, "T07", "T00", asOf, true)
	require.NoError(t, err)
	assert.Greater(t, strong, 0.5)
}

func TestPredict_HomeAdvantage(t *testing.T) {
	store := testStore()
	settings := DefaultSettings()
	settings.CalibrationMethod = calibration.MethodNone
	artifact := trainArtifact(t, store, settings)
	predictor := NewPredictor(store, quietLogger(), time.Minute, 1)
	asOf := cutoff2019.AddDate(0, 0, 1)

	neutral, err := predictor.Predict(context.Background(), artifact, "T03", "T04", asOf, true)
	require.NoError(t, err)
	home, err := predictor.Predict(context.Background(), artifact, "T03", "T04", asOf, false)
	require.NoError(t, err)

	assert.Greater(t, home.Sources[models.SourceRating], neutral.Sources[models.SourceRating])
	assert.Contains(t, home.Sources, models.SourceClassifier)
	assert.False(t, home.Fallback)
}

func TestPrediction_Reversed(t *testing.T) {
	store := testStore()
	artifact := trainArtifact(t, store, DefaultSettings())
	predictor := NewPredictor(store, quietLogger(), time.Minute, 1)
	asOf := cutoff2019.AddDate(0, 0, 1)

	ab, err := predictor.Predict(context.Background(), artifact, "T02", "T05", asOf, true)
	require.NoError(t, err)
	ba, err := predictor.Predict(context.Background(), artifact, "T05", "T02", asOf, true)
	require.NoError(t, err)

	reversed := ab.Reversed()
	assert.Equal(t, "T05", reversed.TeamA)
	assert.Equal(t, "T02", reversed.TeamB)
	assert.InDelta(t, ba.Probability, reversed.Probability, 1e-9)
	assert.InDelta(t, ba.Sources[models.SourceRating], reversed.Sources[models.SourceRating], 1e-9)
}

func TestPredict_RejectsArtifactFromTheFuture(t *testing.T) {
	store := testStore()
	artifact := trainArtifact(t, store, DefaultSettings())
	predictor := NewPredictor(store, quietLogger(), time.Minute, 1)

	_, err := predictor.PredictMatchup(context.Background(), artifact, "T01", "T02", cutoff2019.AddDate(0, 0, -1), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrLeakage)

	var le *models.LeakageError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Record, "artifact")
}

func TestPredict_Errors(t *testing.T) {
	store := testStore()
	predictor := NewPredictor(store, quietLogger(), time.Minute, 1)
	ctx := context.Background()

	_, err := predictor.PredictMatchup(ctx, nil, "T01", "T02", cutoff2019, true)
	assert.ErrorIs(t, err, ErrNilArtifact)

	artifact := trainArtifact(t, store, DefaultSettings())
	_, err = predictor.PredictMatchup(ctx, artifact, "T01", "T01", cutoff2019, true)
	assert.ErrorIs(t, err, ErrSameTeam)
}

func TestPredict_MissingFeatureFallback(t *testing.T) {
	store := testStore()
	store.AddGames(models.Game{
		ID: "new-1", Season: 2019, Date: dates.MustParseDate("2019-01-05"),
		HomeTeamID: "NEW", AwayTeamID: "T00", HomeScore: 60, AwayScore: 50,
	})
	asOf := cutoff2019.AddDate(0, 0, 1)
	ctx := context.Background()

	artifact := trainArtifact(t, store, DefaultSettings())
	predictor := NewPredictor(store, quietLogger(), time.Minute, 1)

	pred, err := predictor.Predict(ctx, artifact, "NEW", "T05", asOf, true)
	require.NoError(t, err)
	assert.True(t, pred.Fallback)
	assert.NotContains(t, pred.Sources, models.SourceClassifier)
	assert.Contains(t, pred.Sources, models.SourcePrior)

	reversed, err := predictor.PredictMatchup(ctx, artifact, "T05", "NEW", asOf, true)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pred.Probability+reversed, 1e-9)

	artifact.Ensemble.FallbackToPrior = false
	strict := NewPredictor(store, quietLogger(), time.Minute, 1)
	_, err = strict.PredictMatchup(ctx, artifact, "NEW", "T05", asOf, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingFeature)
}

// futureFeatures stamps every feature vector a year after the requested date.
type futureFeatures struct {
	featurestore.Reader
}

func (f futureFeatures) Features(ctx context.Context, season int, asOf time.Time) (map[string]models.FeatureVector, error) {
	vectors, err := f.Reader.Features(ctx, season, asOf)
	if err != nil {
		return nil, err
	}
	for team, fv := range vectors {
		fv.AsOf = asOf.AddDate(1, 0, 0)
		vectors[team] = fv
	}
	return vectors, nil
}

func TestTrain_RejectsFutureFeatures(t *testing.T) {
	_, err := NewTrainer(futureFeatures{testStore()}, DefaultSettings(), quietLogger()).Train(context.Background(), TrainRequest{
		Seasons: []int{2018, 2019},
		Cutoff:  cutoff2019,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrLeakage)

	var le *models.LeakageError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Record, "feature")
}

func TestPredict_RejectsFutureFeatures(t *testing.T) {
	artifact := trainArtifact(t, testStore(), DefaultSettings())
	predictor := NewPredictor(futureFeatures{testStore()}, quietLogger(), time.Minute, 1)

	_, err := predictor.PredictMatchup(context.Background(), artifact, "T01", "T02", cutoff2019, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrLeakage)
}

func TestPredict_FallbackWeightsIncludePrior(t *testing.T) {
	tests := []struct {
		name    string
		weights map[models.Source]float64
		raw     func(sources map[models.Source]float64) float64
	}{
		{
			name:    "classifier only",
			weights: map[models.Source]float64{models.SourceClassifier: 1},
			raw: func(sources map[models.Source]float64) float64 {
				return sources[models.SourcePrior]
			},
		},
		{
			name:    "classifier and rating",
			weights: map[models.Source]float64{models.SourceClassifier: 0.5, models.SourceRating: 0.5},
			raw: func(sources map[models.Source]float64) float64 {
				return (sources[models.SourceRating] + sources[models.SourcePrior]) / 2
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testStore()
			store.AddGames(models.Game{
				ID: "new-1", Season: 2019, Date: dates.MustParseDate("2019-01-05"),
				HomeTeamID: "NEW", AwayTeamID: "T00", HomeScore: 60, AwayScore: 50,
			})
			settings := DefaultSettings()
			settings.Ensemble.Weights = tt.weights

			artifact := trainArtifact(t, store, settings)
			predictor := NewPredictor(store, quietLogger(), time.Minute, 1)

			pred, err := predictor.Predict(context.Background(), artifact, "NEW", "T05", cutoff2019.AddDate(0, 0, 1), true)
			require.NoError(t, err)
			assert.True(t, pred.Fallback)
			assert.NotEqual(t, pred.Sources[models.SourceRating], pred.Sources[models.SourcePrior])
			assert.InDelta(t, tt.raw(pred.Sources), pred.Raw, 1e-9)
		})
	}
}

func TestPredict_SnapshotPerInstant(t *testing.T) {
	store := testStore()
	artifact := trainArtifact(t, store, DefaultSettings())
	gameDay := cutoff2019.AddDate(0, 0, 1)
	store.AddGames(models.Game{
		ID: "late-1", Season: 2019, Date: gameDay.Add(12 * time.Hour), Neutral: true,
		HomeTeamID: "T01", AwayTeamID: "T02", HomeScore: 90, AwayScore: 40,
	})
	predictor := NewPredictor(store, quietLogger(), time.Minute, 1)
	ctx := context.Background()

	before, err := predictor.Predict(ctx, artifact, "T01", "T02", gameDay.Add(6*time.Hour), true)
	require.NoError(t, err)
	after, err := predictor.Predict(ctx, artifact, "T01", "T02", gameDay.Add(18*time.Hour), true)
	require.NoError(t, err)
	assert.Greater(t, after.Sources[models.SourceRating], before.Sources[models.SourceRating],
		"the later instant sees the midday win")
}

func TestArtifact_RoundTrip(t *testing.T) {
	store := testStore()
	artifact := trainArtifact(t, store, DefaultSettings())
	path := filepath.Join(t.TempDir(), "artifacts", artifact.FileName())

	require.NoError(t, SaveArtifact(path, artifact))
	loaded, err := LoadArtifact(path)
	require.NoError(t, err)

	original, err := json.Marshal(artifact)
	require.NoError(t, err)
	again, err := json.Marshal(loaded)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(original, again))

	predictor := NewPredictor(store, quietLogger(), time.Minute, 1)
	asOf := cutoff2019.AddDate(0, 0, 2)
	want, err := predictor.PredictMatchup(context.Background(), artifact, "T02", "T06", asOf, false)
	require.NoError(t, err)
	got, err := predictor.PredictMatchup(context.Background(), loaded, "T02", "T06", asOf, false)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	rec, err := loaded.Record()
	require.NoError(t, err)
	assert.Equal(t, artifact.ID, rec.ID)
	fromRec, err := ArtifactFromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, artifact.Classifier.Weights, fromRec.Classifier.Weights)
}

func fourTeamBracket() *models.Bracket {
	return &models.Bracket{
		Season: 2019,
		Name:   "final four",
		Nodes: []models.BracketNode{
			{ID: "s1", TeamID: "T07", Seed: 1},
			{ID: "s4", TeamID: "T01", Seed: 4},
			{ID: "s2", TeamID: "T05", Seed: 2},
			{ID: "s3", TeamID: "T03", Seed: 3},
			{ID: "semi-1", Round: 1, Children: []string{"s1", "s4"}},
			{ID: "semi-2", Round: 1, Children: []string{"s2", "s3"}},
			{ID: "final", Round: 2, Children: []string{"semi-1", "semi-2"}},
		},
	}
}

func TestSimulateBracket(t *testing.T) {
	store := testStore()
	artifact := trainArtifact(t, store, DefaultSettings())
	ctx := context.Background()
	asOf := cutoff2019.AddDate(0, 0, 1)

	first, err := NewPredictor(store, quietLogger(), time.Minute, 1).SimulateBracket(ctx, artifact, fourTeamBracket(), asOf, 1000, 42)
	require.NoError(t, err)
	second, err := NewPredictor(store, quietLogger(), time.Minute, 4).SimulateBracket(ctx, artifact, fourTeamBracket(), asOf, 1000, 42)
	require.NoError(t, err)
	assert.Equal(t, first.Champion, second.Champion)
	assert.Equal(t, first.Reach, second.Reach)

	total := 0.0
	for _, team := range first.Teams() {
		total += first.ChampionProbability(team)
	}
	assert.InDelta(t, 1.0, total, 1e-12)
	assert.Greater(t, first.ChampionProbability("T07"), first.ChampionProbability("T01"))
}

func TestSimulateBracket_Errors(t *testing.T) {
	store := testStore()
	artifact := trainArtifact(t, store, DefaultSettings())
	predictor := NewPredictor(store, quietLogger(), time.Minute, 1)
	ctx := context.Background()
	asOf := cutoff2019.AddDate(0, 0, 1)

	bad := fourTeamBracket()
	bad.Nodes[6].Children = []string{"semi-1", "missing"}
	_, err := predictor.SimulateBracket(ctx, artifact, bad, asOf, 100, 1)
	assert.ErrorIs(t, err, models.ErrMalformedBracket)

	wrongSeason := fourTeamBracket()
	wrongSeason.Season = 2018
	_, err = predictor.SimulateBracket(ctx, artifact, wrongSeason, asOf, 100, 1)
	assert.Error(t, err)

	_, err = predictor.SimulateBracket(ctx, artifact, fourTeamBracket(), cutoff2019.AddDate(0, 0, -3), 100, 1)
	assert.ErrorIs(t, err, models.ErrLeakage)
}

func TestOpeningBook_Carryover(t *testing.T) {
	store := testStore()
	ctx := context.Background()
	upTo := dates.MustParseDate("2018-11-01")

	settings := DefaultSettings()
	book, err := openingBook(ctx, store, settings.Rating, 2019, upTo)
	require.NoError(t, err)
	assert.Equal(t, settings.Rating.Baseline, book.Rating("T07"))

	settings.Rating.PreseasonRegress = 0.5
	book, err = openingBook(ctx, store, settings.Rating, 2019, upTo)
	require.NoError(t, err)
	assert.Greater(t, book.Rating("T07"), settings.Rating.Baseline)
	assert.Less(t, book.Rating("T00"), settings.Rating.Baseline)
}

func TestRatingProbability_Complement(t *testing.T) {
	cfg := DefaultSettings().Rating
	for _, home := range []string{"", "A", "B"} {
		pab := ratingProbability(1550, 1480, "A", home, cfg)
		pba := ratingProbability(1480, 1550, "B", home, cfg)
		assert.InDelta(t, 1.0, pab+pba, 1e-12, "home=%q", home)
	}
	assert.Equal(t, 70.0+cfg.HomeAdv, eloDiff(1550, 1480, "A", "A", cfg))
	assert.Equal(t, 70.0-cfg.HomeAdv, eloDiff(1550, 1480, "A", "B", cfg))
	assert.False(t, math.IsNaN(eloDiff(1550, 1480, "A", "", cfg)))
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Rating:      config.RatingConfig{KBase: 20, HomeAdv: 50, Baseline: 1500, Scale: 400, PreseasonRegress: 1},
		Classifier:  config.ClassifierConfig{Features: []string{"elo_diff"}, C: 0.5, MaxIterations: 50, Standardize: true},
		Prior:       config.PriorConfig{Strength: 5},
		Ensemble:    config.EnsembleConfig{Method: "weighted", Weights: map[string]float64{"rating": 2, "prior": 1}, FallbackToPrior: true},
		Calibration: config.CalibrationConfig{Method: "none"},
		Simulation:  config.SimulationConfig{Trials: 500, Seed: 9, Workers: 3},
	}

	s, err := SettingsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 20.0, s.Rating.KBase)
	assert.Equal(t, 2.0, s.Ensemble.Weights[models.SourceRating])
	assert.Equal(t, uint64(9), s.Simulation.Seed)

	cfg.Calibration.Method = "platt"
	_, err = SettingsFromConfig(cfg)
	assert.ErrorIs(t, err, models.ErrUnknownMethod)
}
