package logger

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// ForecastLogger provides dedicated logging for training, prediction and simulation.
type ForecastLogger struct {
	*logrus.Entry
}

// NewForecastLogger creates a new forecast logger.
func NewForecastLogger(baseLogger *logrus.Logger) *ForecastLogger {
	return &ForecastLogger{
		Entry: baseLogger.WithField("component", "forecast"),
	}
}

// LogTraining logs a completed training run.
func (fl *ForecastLogger) LogTraining(seasons []int, cutoff time.Time, games, rows, calibrationLabels int, duration time.Duration) {
	fl.WithFields(logrus.Fields{
		"seasons":            seasons,
		"cutoff":             cutoff.Format(dateLayout),
		"games":              games,
		"training_rows":      rows,
		"calibration_labels": calibrationLabels,
		"duration_ms":        duration.Milliseconds(),
	}).Info("Training completed")
}

// LogPrediction logs a single matchup estimate with its per-source inputs.
func (fl *ForecastLogger) LogPrediction(teamA, teamB string, asOf time.Time, sources map[string]float64, probability float64) {
	fl.WithFields(logrus.Fields{
		"team_a":      teamA,
		"team_b":      teamB,
		"asof":        asOf.Format(dateLayout),
		"sources":     sources,
		"probability": probability,
	}).Debug("Matchup predicted")
}

// LogFallback logs a prediction answered by the prior because a feature was missing.
func (fl *ForecastLogger) LogFallback(teamA, teamB string, reason error) {
	fl.WithFields(logrus.Fields{
		"team_a": teamA,
		"team_b": teamB,
		"reason": reason.Error(),
	}).Warn("Falling back to prior estimate")
}

// LogInsufficientData logs a team rated from the baseline because it has no games.
func (fl *ForecastLogger) LogInsufficientData(teamID string, season int) {
	fl.WithFields(logrus.Fields{
		"team_id": teamID,
		"season":  season,
	}).Warn("No games before cutoff, using baseline rating")
}

// LogSimulation logs a completed bracket simulation.
func (fl *ForecastLogger) LogSimulation(bracket string, teams int, trials int, seed uint64, favorite string, favoriteProbability float64, duration time.Duration) {
	fl.WithFields(logrus.Fields{
		"bracket":              bracket,
		"teams":                teams,
		"trials":               trials,
		"seed":                 seed,
		"favorite":             favorite,
		"favorite_probability": favoriteProbability,
		"duration_ms":          duration.Milliseconds(),
	}).Info("Bracket simulation completed")
}

// LogLeakage logs a rejected record dated after the cutoff.
func (fl *ForecastLogger) LogLeakage(err error) {
	fl.WithField("error", err.Error()).Error("Temporal leakage rejected")
}

// LogBacktestSeason logs one evaluated season of a backtest. An undefined
// (NaN) AUC is left out.
func (fl *ForecastLogger) LogBacktestSeason(season int, trainSeasons []int, games int, brier, logLoss, auc float64, bracketPoints int) {
	fields := logrus.Fields{
		"season":         season,
		"train_seasons":  trainSeasons,
		"games":          games,
		"brier":          brier,
		"log_loss":       logLoss,
		"bracket_points": bracketPoints,
	}
	if !math.IsNaN(auc) {
		fields["auc"] = auc
	}
	fl.WithFields(fields).Info("Backtest season evaluated")
}
