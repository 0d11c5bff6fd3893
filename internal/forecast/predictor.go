package forecast

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/ensemble"
	"github.com/yourusername/bracket-forecast/internal/featurestore"
	"github.com/yourusername/bracket-forecast/internal/leakage"
	"github.com/yourusername/bracket-forecast/internal/logger"
	"github.com/yourusername/bracket-forecast/internal/metrics"
	"github.com/yourusername/bracket-forecast/internal/models"
	"github.com/yourusername/bracket-forecast/internal/prior"
	"github.com/yourusername/bracket-forecast/internal/rating"
	"github.com/yourusername/bracket-forecast/internal/simulation"
)

// Prediction is a matchup estimate with the per-source inputs behind it
type Prediction struct {
	TeamA   string    `json:"team_a"`
	TeamB   string    `json:"team_b"`
	AsOf    time.Time `json:"asof"`
	Neutral bool      `json:"neutral"`
	// Sources are each estimator's probability that TeamA wins.
	Sources     map[models.Source]float64 `json:"sources"`
	Raw         float64                   `json:"raw"`
	Probability float64                   `json:"probability"`
	Fallback    bool                      `json:"fallback"`
}

// Reversed returns the same estimate from TeamB's side
func (p *Prediction) Reversed() *Prediction {
	sources := make(map[models.Source]float64, len(p.Sources))
	for src, v := range p.Sources {
		sources[src] = 1 - v
	}
	return &Prediction{
		TeamA:       p.TeamB,
		TeamB:       p.TeamA,
		AsOf:        p.AsOf,
		Neutral:     p.Neutral,
		Sources:     sources,
		Raw:         1 - p.Raw,
		Probability: 1 - p.Probability,
		Fallback:    p.Fallback,
	}
}

// snapshot is the read-only state of one season as of a date
type snapshot struct {
	season  int
	asOf    time.Time
	book    *rating.Book
	tracker *prior.Tracker
	vectors map[string]models.FeatureVector
}

// Predictor serves matchup and bracket forecasts from a trained artifact
type Predictor struct {
	reader    featurestore.Reader
	logger    *logrus.Logger
	flog      *logger.ForecastLogger
	snapshots *cache.Cache
	ttl       time.Duration
	workers   int
}

// NewPredictor creates a predictor. Season snapshots are cached for ttl.
func NewPredictor(reader featurestore.Reader, log *logrus.Logger, ttl time.Duration, workers int) *Predictor {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Predictor{
		reader:    reader,
		logger:    log,
		flog:      logger.NewForecastLogger(log),
		snapshots: cache.New(ttl, ttl*2),
		ttl:       ttl,
		workers:   workers,
	}
}

// PredictMatchup returns the calibrated probability that teamA beats teamB as
// of asOf. teamA is the home side unless neutral. PredictMatchup(a, b) and
// PredictMatchup(b, a) always sum to one.
func (p *Predictor) PredictMatchup(ctx context.Context, artifact *Artifact, teamA, teamB string, asOf time.Time, neutral bool) (float64, error) {
	pred, err := p.Predict(ctx, artifact, teamA, teamB, asOf, neutral)
	if err != nil {
		return 0, err
	}
	return pred.Probability, nil
}

// Predict is PredictMatchup with the per-source breakdown
func (p *Predictor) Predict(ctx context.Context, artifact *Artifact, teamA, teamB string, asOf time.Time, neutral bool) (*Prediction, error) {
	if teamA == teamB {
		return nil, fmt.Errorf("%w: %s", ErrSameTeam, teamA)
	}
	snap, err := p.prepare(ctx, artifact, asOf)
	if err != nil {
		return nil, err
	}

	for _, team := range []string{teamA, teamB} {
		if !snap.book.Known(team) {
			p.flog.LogInsufficientData(team, snap.season)
		}
	}

	home := ""
	if !neutral {
		home = teamA
	}
	first, second, swapped := ensemble.Canonical(teamA, teamB)
	est, err := p.canonical(artifact, snap, first, second, home)
	if err != nil {
		return nil, err
	}

	pred := &Prediction{
		TeamA:       teamA,
		TeamB:       teamB,
		AsOf:        asOf,
		Neutral:     neutral,
		Sources:     make(map[models.Source]float64, len(est.sources)),
		Raw:         orient(est.raw, swapped),
		Probability: orient(est.calibrated, swapped),
		Fallback:    est.fallback,
	}
	logged := make(map[string]float64, len(est.sources))
	for source, v := range est.sources {
		pred.Sources[source] = orient(v, swapped)
		logged[string(source)] = pred.Sources[source]
	}
	metrics.RecordPrediction(string(models.SourceCalibrated))
	p.flog.LogPrediction(teamA, teamB, asOf, logged, pred.Probability)
	return pred, nil
}

// SimulateBracket simulates the bracket with every pairing estimated at a
// neutral site as of asOf
func (p *Predictor) SimulateBracket(ctx context.Context, artifact *Artifact, bracket *models.Bracket, asOf time.Time, trials int, seed uint64) (*simulation.Result, error) {
	start := time.Now()
	if err := simulation.Validate(bracket); err != nil {
		return nil, err
	}
	snap, err := p.prepare(ctx, artifact, asOf)
	if err != nil {
		return nil, err
	}
	if bracket.Season != 0 && bracket.Season != snap.season {
		return nil, fmt.Errorf("bracket is for season %d but %s falls in season %d",
			bracket.Season, dates.FormatDate(asOf), snap.season)
	}

	for _, node := range bracket.Nodes {
		if node.TeamID != "" && !snap.book.Known(node.TeamID) {
			p.flog.LogInsufficientData(node.TeamID, snap.season)
		}
	}

	probFn := func(teamA, teamB string) (float64, error) {
		first, second, swapped := ensemble.Canonical(teamA, teamB)
		est, err := p.canonical(artifact, snap, first, second, "")
		if err != nil {
			return 0, err
		}
		return orient(est.calibrated, swapped), nil
	}

	cfg := simulation.Config{Trials: trials, Seed: seed, Workers: p.workers}
	result, err := simulation.Simulate(ctx, bracket, probFn, cfg)
	if err != nil {
		return nil, err
	}

	favorite, prob := favoriteOf(result)
	p.flog.LogSimulation(bracket.Name, len(result.Champion), trials, seed, favorite, prob, time.Since(start))
	return result, nil
}

// prepare checks the artifact against asOf and returns the season snapshot
func (p *Predictor) prepare(ctx context.Context, artifact *Artifact, asOf time.Time) (*snapshot, error) {
	if artifact == nil {
		return nil, ErrNilArtifact
	}
	if err := leakage.CheckRecord(leakage.RecordArtifact+" "+artifact.ID.String(), artifact.Cutoff, asOf); err != nil {
		p.flog.LogLeakage(err)
		return nil, err
	}
	snap, err := p.snapshot(ctx, artifact, asOf)
	if err != nil {
		if errors.Is(err, models.ErrLeakage) {
			p.flog.LogLeakage(err)
		}
		return nil, err
	}
	return snap, nil
}

func (p *Predictor) snapshot(ctx context.Context, artifact *Artifact, asOf time.Time) (*snapshot, error) {
	season := dates.SeasonOf(asOf)
	key := fmt.Sprintf("%s:%d:%s", artifact.ID, season, asOf.UTC().Format(time.RFC3339Nano))
	if v, found := p.snapshots.Get(key); found {
		return v.(*snapshot), nil
	}

	book, games, err := seasonBook(ctx, p.reader, artifact.Rating, season, asOf)
	if err != nil {
		return nil, err
	}
	tracker, err := prior.Fold(games, asOf, artifact.Prior)
	if err != nil {
		return nil, err
	}
	vectors, err := p.reader.Features(ctx, season, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to read season %d features: %w", season, err)
	}
	if err := leakage.CheckFeatures(vectors, asOf); err != nil {
		return nil, err
	}

	snap := &snapshot{season: season, asOf: asOf, book: book, tracker: tracker, vectors: vectors}
	p.snapshots.Set(key, snap, p.ttl)
	return snap, nil
}

// estimate is a canonical-direction estimate
type estimate struct {
	sources    map[models.Source]float64
	raw        float64
	calibrated float64
	fallback   bool
}

// canonical estimates P(first beats second); first must sort before second
func (p *Predictor) canonical(artifact *Artifact, snap *snapshot, first, second, home string) (*estimate, error) {
	rFirst, rSecond := snap.book.Rating(first), snap.book.Rating(second)
	est := &estimate{
		sources: map[models.Source]float64{
			models.SourceRating: ratingProbability(rFirst, rSecond, first, home, artifact.Rating),
			models.SourcePrior:  snap.tracker.Predict(first, second),
		},
	}

	if artifact.Classifier != nil {
		diff, err := matchupDiff(snap.vectors, first, second, eloDiff(rFirst, rSecond, first, home, artifact.Rating))
		var cp float64
		if err == nil {
			cp, err = artifact.Classifier.Predict(diff)
		}
		switch {
		case err == nil:
			est.sources[models.SourceClassifier] = cp
		case errors.Is(err, models.ErrMissingFeature) && artifact.Ensemble.FallbackToPrior:
			est.fallback = true
			metrics.RecordPriorFallback()
			p.flog.LogFallback(first, second, err)
		default:
			return nil, err
		}
	}

	weights := artifact.Ensemble.Weights
	if _, ok := est.sources[models.SourceClassifier]; !ok {
		weights = ensemble.FallbackWeights(weights)
	}
	raw, err := ensemble.Blend(est.sources, weights, artifact.Ensemble.Method)
	if err != nil {
		return nil, err
	}
	est.raw = raw
	est.calibrated = raw
	if artifact.Calibration != nil {
		est.calibrated = models.ClampProbability(artifact.Calibration.Apply(raw))
	}
	return est, nil
}

func orient(p float64, swapped bool) float64 {
	if swapped {
		return 1 - p
	}
	return p
}

// favoriteOf returns the most frequent champion, ties broken by team ID
func favoriteOf(r *simulation.Result) (string, float64) {
	teams := r.Teams()
	sort.Strings(teams)
	best, bestCount := "", -1
	for _, team := range teams {
		if c := r.Champion[team]; c > bestCount {
			best, bestCount = team, c
		}
	}
	if best == "" {
		return "", 0
	}
	return best, r.ChampionProbability(best)
}
