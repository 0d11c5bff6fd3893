package forecast

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/bracket-forecast/internal/calibration"
	"github.com/yourusername/bracket-forecast/internal/classifier"
	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/ensemble"
	"github.com/yourusername/bracket-forecast/internal/featurestore"
	"github.com/yourusername/bracket-forecast/internal/features"
	"github.com/yourusername/bracket-forecast/internal/leakage"
	"github.com/yourusername/bracket-forecast/internal/logger"
	"github.com/yourusername/bracket-forecast/internal/metrics"
	"github.com/yourusername/bracket-forecast/internal/models"
	"github.com/yourusername/bracket-forecast/internal/prior"
)

// minCalibrationLabels is the smallest tournament-window label set the
// calibrator is fitted on before it falls back to every training game.
const minCalibrationLabels = 20

// TrainRequest selects the data of a training run
type TrainRequest struct {
	Name    string
	Seasons []int
	Cutoff  time.Time
}

// TrainStats summarizes the data a training run consumed
type TrainStats struct {
	Games             int
	Rows              int
	SkippedGames      int
	CalibrationLabels int
}

// Trainer fits artifacts from the feature store
type Trainer struct {
	reader   featurestore.Reader
	settings Settings
	logger   *logrus.Logger
	flog     *logger.ForecastLogger
}

// NewTrainer creates a new trainer
func NewTrainer(reader featurestore.Reader, settings Settings, log *logrus.Logger) *Trainer {
	return &Trainer{
		reader:   reader,
		settings: settings,
		logger:   log,
		flog:     logger.NewForecastLogger(log),
	}
}

// sample is one training game seen from the home side with each source's
// pre-game estimate
type sample struct {
	gameID     string
	date       time.Time
	home       string
	away       string
	homeWon    bool
	ratingP    float64
	priorP     float64
	diff       features.Diff
	tournament bool
}

// Train fits every sub-model on games dated on or before req.Cutoff
func (t *Trainer) Train(ctx context.Context, req TrainRequest) (*Artifact, error) {
	start := time.Now()
	artifact, stats, err := t.train(ctx, req)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordTraining("error", duration.Seconds())
		if errors.Is(err, models.ErrLeakage) {
			t.flog.LogLeakage(err)
		}
		return nil, err
	}

	metrics.RecordTraining("success", duration.Seconds())
	metrics.UpdateArtifactCutoff(float64(artifact.Cutoff.Unix()))
	t.flog.LogTraining(artifact.Seasons, artifact.Cutoff, stats.Games, stats.Rows, stats.CalibrationLabels, duration)
	if stats.SkippedGames > 0 {
		t.logger.WithField("skipped_games", stats.SkippedGames).Warn("Games without feature vectors were left out of classifier training")
	}
	return artifact, nil
}

func (t *Trainer) train(ctx context.Context, req TrainRequest) (*Artifact, TrainStats, error) {
	var stats TrainStats
	if err := t.settings.Validate(); err != nil {
		return nil, stats, err
	}
	if len(req.Seasons) == 0 {
		return nil, stats, ErrNoSeasons
	}
	if req.Cutoff.IsZero() {
		return nil, stats, ErrNoCutoff
	}

	seasons := uniqueSorted(req.Seasons)
	var samples []sample
	for _, season := range seasons {
		if err := leakage.CheckRecord(fmt.Sprintf("%s %d", leakage.RecordSeason, season), dates.SeasonStart(season), req.Cutoff); err != nil {
			return nil, stats, err
		}
		upTo := dates.SeasonEnd(season)
		if upTo.After(req.Cutoff) {
			upTo = req.Cutoff
		}
		seasonSamples, err := t.collect(ctx, season, upTo)
		if err != nil {
			return nil, stats, err
		}
		samples = append(samples, seasonSamples...)
	}
	stats.Games = len(samples)

	rows := make([]classifier.TrainingRow, 0, 2*len(samples))
	for _, s := range samples {
		if s.diff == nil || len(s.diff.Missing(t.settings.Classifier.Features)) > 0 {
			stats.SkippedGames++
			continue
		}
		outcome := 0.0
		if s.homeWon {
			outcome = 1
		}
		rows = append(rows,
			classifier.TrainingRow{GameID: s.gameID, Date: s.date, Outcome: outcome, Diff: s.diff},
			classifier.TrainingRow{GameID: s.gameID, Date: s.date, Outcome: 1 - outcome, Diff: s.diff.Reverse()},
		)
	}
	stats.Rows = len(rows)
	if len(rows) == 0 {
		return nil, stats, fmt.Errorf("seasons %v before %s: %w", seasons, dates.FormatDate(req.Cutoff), classifier.ErrNoTrainingRows)
	}

	model, err := classifier.Fit(rows, req.Cutoff, t.settings.Classifier)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to fit classifier: %w", err)
	}

	calMap, labels, err := t.calibrate(samples, model, req.Cutoff)
	if err != nil {
		return nil, stats, err
	}
	stats.CalibrationLabels = labels

	name := req.Name
	if name == "" {
		name = "forecast-" + dates.FormatDate(req.Cutoff)
	}
	return &Artifact{
		ID:          uuid.New(),
		Name:        name,
		Cutoff:      req.Cutoff,
		Seasons:     seasons,
		TrainedAt:   time.Now().UTC(),
		Rating:      t.settings.Rating,
		Classifier:  model,
		Prior:       t.settings.Prior,
		Ensemble:    t.settings.Ensemble,
		Calibration: calMap,
	}, stats, nil
}

// collect walks a season in order, recording every source's estimate before
// each game is folded in
func (t *Trainer) collect(ctx context.Context, season int, upTo time.Time) ([]sample, error) {
	book, err := openingBook(ctx, t.reader, t.settings.Rating, season, upTo)
	if err != nil {
		return nil, err
	}
	games, err := t.reader.Games(ctx, season, upTo)
	if err != nil {
		return nil, fmt.Errorf("failed to read season %d games: %w", season, err)
	}

	tracker := prior.NewTracker(upTo, t.settings.Prior)
	selection := dates.SelectionSunday(season)
	vectorsByDate := make(map[string]map[string]models.FeatureVector)

	samples := make([]sample, 0, len(games))
	for i := range games {
		g := games[i]
		home := g.HomeTeamID
		if g.Neutral {
			home = ""
		}

		// Features are read as of the day before so a game never informs itself.
		asOf := g.Date.AddDate(0, 0, -1)
		key := dates.FormatDate(asOf)
		vectors, ok := vectorsByDate[key]
		if !ok {
			if vectors, err = t.reader.Features(ctx, season, asOf); err != nil {
				return nil, fmt.Errorf("failed to read season %d features: %w", season, err)
			}
			if err := leakage.CheckFeatures(vectors, asOf); err != nil {
				return nil, err
			}
			vectorsByDate[key] = vectors
		}

		rHome, rAway := book.Rating(g.HomeTeamID), book.Rating(g.AwayTeamID)
		diff, err := matchupDiff(vectors, g.HomeTeamID, g.AwayTeamID,
			eloDiff(rHome, rAway, g.HomeTeamID, home, t.settings.Rating))
		if err != nil && !errors.Is(err, models.ErrMissingFeature) {
			return nil, err
		}

		samples = append(samples, sample{
			gameID:     g.ID,
			date:       g.Date,
			home:       g.HomeTeamID,
			away:       g.AwayTeamID,
			homeWon:    g.HomeWon(),
			ratingP:    ratingProbability(rHome, rAway, g.HomeTeamID, home, t.settings.Rating),
			priorP:     tracker.Predict(g.HomeTeamID, g.AwayTeamID),
			diff:       diff,
			tournament: g.Date.After(selection),
		})

		if err := book.Apply(g); err != nil {
			return nil, err
		}
		if err := tracker.Observe(g); err != nil {
			return nil, err
		}
	}
	return samples, nil
}

// calibrate fits the calibration map on canonical-direction blended
// estimates of tournament-window games, or of every game when the window is
// too small
func (t *Trainer) calibrate(samples []sample, model *classifier.Model, cutoff time.Time) (*calibration.Map, int, error) {
	if t.settings.CalibrationMethod == calibration.MethodNone {
		return calibration.Identity(), 0, nil
	}

	var labeled []sample
	for _, s := range samples {
		if s.tournament {
			labeled = append(labeled, s)
		}
	}
	if len(labeled) < minCalibrationLabels {
		labeled = samples
	}

	raw := make([]float64, 0, len(labeled))
	outcomes := make([]float64, 0, len(labeled))
	for _, s := range labeled {
		if err := leakage.CheckRecord(leakage.RecordLabel+" "+s.gameID, s.date, cutoff); err != nil {
			return nil, 0, err
		}
		p, y, err := t.canonicalSample(s, model)
		if err != nil {
			return nil, 0, err
		}
		raw = append(raw, p)
		outcomes = append(outcomes, y)
	}

	calMap, err := calibration.Fit(raw, outcomes, t.settings.CalibrationMethod)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fit calibration: %w", err)
	}
	return calMap, len(raw), nil
}

// canonicalSample blends a sample from the canonical team's side and returns
// the raw estimate with the matching 0/1 outcome
func (t *Trainer) canonicalSample(s sample, model *classifier.Model) (float64, float64, error) {
	_, _, swapped := ensemble.Canonical(s.home, s.away)

	ratingP, priorP, diff := s.ratingP, s.priorP, s.diff
	outcome := 0.0
	if s.homeWon {
		outcome = 1
	}
	if swapped {
		ratingP, priorP, outcome = 1-ratingP, 1-priorP, 1-outcome
		if diff != nil {
			diff = diff.Reverse()
		}
	}

	estimates := map[models.Source]float64{
		models.SourceRating: ratingP,
		models.SourcePrior:  priorP,
	}
	if diff != nil {
		p, err := model.Predict(diff)
		switch {
		case err == nil:
			estimates[models.SourceClassifier] = p
		case !errors.Is(err, models.ErrMissingFeature):
			return 0, 0, err
		}
	}

	weights := t.settings.Ensemble.Weights
	if _, ok := estimates[models.SourceClassifier]; !ok {
		weights = ensemble.FallbackWeights(weights)
	}
	p, err := ensemble.Blend(estimates, weights, t.settings.Ensemble.Method)
	if err != nil {
		return 0, 0, err
	}
	return p, outcome, nil
}

func uniqueSorted(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
