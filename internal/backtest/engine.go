package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/evaluation"
	"github.com/yourusername/bracket-forecast/internal/featurestore"
	"github.com/yourusername/bracket-forecast/internal/forecast"
	"github.com/yourusername/bracket-forecast/internal/logger"
	"github.com/yourusername/bracket-forecast/internal/metrics"
	"github.com/yourusername/bracket-forecast/internal/models"
	"github.com/yourusername/bracket-forecast/internal/simulation"
)

// SeasonResult is the evaluation of one backtested season
type SeasonResult struct {
	Fold
	ArtifactID uuid.UUID `json:"artifact_id"`
	Games      int       `json:"games"`
	Brier      float64   `json:"brier"`
	LogLoss    float64   `json:"log_loss"`
	// AUC is nil when the evaluated games hold a single outcome class.
	AUC         *float64                 `json:"auc,omitempty"`
	Reliability []evaluation.Bucket      `json:"reliability,omitempty"`
	Bracket     *evaluation.BracketScore `json:"bracket,omitempty"`
	MaxPoints   int                      `json:"max_points,omitempty"`
	Champion    string                   `json:"champion,omitempty"`
	// ChampionProbability is the simulated title chance of Champion.
	ChampionProbability float64 `json:"champion_probability,omitempty"`
}

// Engine runs backtests
type Engine struct {
	config   BacktestConfig
	reader   featurestore.Reader
	settings forecast.Settings
	logger   *logrus.Logger
	flog     *logger.ForecastLogger
}

// NewEngine creates a new backtesting engine
func NewEngine(cfg BacktestConfig, reader featurestore.Reader, settings forecast.Settings, log *logrus.Logger) (*Engine, error) {
	if reader == nil {
		return nil, errors.New("feature store reader is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		config:   cfg,
		reader:   reader,
		settings: settings,
		logger:   log,
		flog:     logger.NewForecastLogger(log),
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() BacktestConfig {
	return e.config
}

// Run plans the folds and evaluates each season in order
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	result, err := e.run(ctx)
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.RecordBacktestRun(e.config.Protocol, status)
	return result, err
}

func (e *Engine) run(ctx context.Context) (*Result, error) {
	folds, err := Plan(e.config)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:         uuid.New(),
		Protocol:      e.config.Protocol,
		ScoringSystem: e.config.ScoringSystem,
		StartedAt:     time.Now().UTC(),
	}
	e.logger.WithFields(logrus.Fields{
		"run_id":   result.RunID,
		"protocol": e.config.Protocol,
		"folds":    len(folds),
	}).Info("Starting backtest")

	for _, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		season, err := e.RunSeason(ctx, fold)
		if err != nil {
			return nil, fmt.Errorf("season %d: %w", fold.Season, err)
		}
		result.Seasons = append(result.Seasons, *season)
	}

	result.Summary = Summarize(result.Seasons)
	result.CompletedAt = time.Now().UTC()
	return result, nil
}

// RunSeason trains on the fold's seasons, forecasts every game of the test
// season played after the cutoff and scores the forecasts. Outcomes are only
// read here, as labels.
func (e *Engine) RunSeason(ctx context.Context, fold Fold) (*SeasonResult, error) {
	trainer := forecast.NewTrainer(e.reader, e.settings, e.logger)
	artifact, err := trainer.Train(ctx, forecast.TrainRequest{
		Name:    fmt.Sprintf("backtest-%d", fold.Season),
		Seasons: fold.Train,
		Cutoff:  fold.Cutoff,
	})
	if err != nil {
		return nil, err
	}

	games, err := e.reader.Games(ctx, fold.Season, dates.SeasonEnd(fold.Season))
	if err != nil {
		return nil, fmt.Errorf("failed to read season %d games: %w", fold.Season, err)
	}
	var test []models.Game
	for _, g := range games {
		if g.Date.After(fold.Cutoff) {
			test = append(test, g)
		}
	}

	out := &SeasonResult{Fold: fold, ArtifactID: artifact.ID, Games: len(test)}
	predictor := forecast.NewPredictor(e.reader, e.logger, 0, e.settings.Simulation.Workers)

	if len(test) > 0 {
		p := make([]float64, len(test))
		y := make([]float64, len(test))
		for i, g := range test {
			if p[i], err = predictor.PredictMatchup(ctx, artifact, g.HomeTeamID, g.AwayTeamID, fold.Cutoff, g.Neutral); err != nil {
				return nil, fmt.Errorf("game %s: %w", g.ID, err)
			}
			if g.HomeWon() {
				y[i] = 1
			}
		}

		scores, err := evaluation.Score(p, y)
		if err != nil {
			return nil, err
		}
		out.Brier, out.LogLoss = scores.Brier, scores.LogLoss
		if !math.IsNaN(scores.AUC) {
			auc := scores.AUC
			out.AUC = &auc
		}
		if out.Reliability, err = evaluation.Reliability(p, y, e.config.ReliabilityBuckets); err != nil {
			return nil, err
		}
	} else {
		e.logger.WithField("season", fold.Season).Warn("No games after the cutoff to evaluate")
	}

	if err := e.scoreBracket(ctx, predictor, artifact, fold, test, out); err != nil {
		return nil, err
	}

	e.record(out)
	return out, nil
}

// scoreBracket simulates the season's bracket file, when there is one, and
// scores the most likely consistent picks against the realized winners
func (e *Engine) scoreBracket(ctx context.Context, predictor *forecast.Predictor, artifact *forecast.Artifact, fold Fold, games []models.Game, out *SeasonResult) error {
	if e.config.BracketDir == "" {
		return nil
	}
	path := filepath.Join(e.config.BracketDir, strconv.Itoa(fold.Season)+".json")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	bracket, err := simulation.LoadBracket(path)
	if err != nil {
		return err
	}

	sim := e.settings.Simulation
	res, err := predictor.SimulateBracket(ctx, artifact, bracket, fold.Cutoff, sim.Trials, sim.Seed)
	if err != nil {
		return err
	}
	picks := res.Picks()
	score := evaluation.ScoreBracket(bracket, picks, RealizedWinners(bracket, games), e.config.Points)
	out.Bracket = &score
	out.MaxPoints = evaluation.MaxPoints(bracket, e.config.Points)
	out.Champion = picks[res.Root]
	out.ChampionProbability = res.ChampionProbability(out.Champion)
	return nil
}

func (e *Engine) record(s *SeasonResult) {
	season := strconv.Itoa(s.Season)
	auc := math.NaN()
	if s.AUC != nil {
		auc = *s.AUC
	}
	points := 0
	if s.Bracket != nil {
		points = s.Bracket.Points
		metrics.RecordBracketPoints(season, e.config.ScoringSystem, float64(points))
	}
	if s.Games > 0 {
		metrics.RecordSeasonScore(season, "brier", s.Brier)
		metrics.RecordSeasonScore(season, "log_loss", s.LogLoss)
		if s.AUC != nil {
			metrics.RecordSeasonScore(season, "auc", auc)
		}
	}
	e.flog.LogBacktestSeason(s.Season, s.Train, s.Games, s.Brier, s.LogLoss, auc, points)
}
