// Package metrics defines backtesting-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bracket_forecast",
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by protocol and status",
	}, []string{"protocol", "status"})
)

// Backtest gauge vectors
var (
	BacktestSeasonScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bracket_forecast",
		Name:      "backtest_season_score",
		Help:      "Probability score of each backtested season by metric",
	}, []string{"season", "metric"})
	BacktestBracketPoints = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bracket_forecast",
		Name:      "backtest_bracket_points",
		Help:      "Bracket points earned by the simulated picks of each backtested season",
	}, []string{"season", "system"})
)

// RecordBacktestRun records a backtest run event.
// protocol should be one of: "expanding", "fixed"
// status should be one of: "success", "failure"
func RecordBacktestRun(protocol, status string) {
	BacktestRunsTotal.WithLabelValues(protocol, status).Inc()
}

// RecordSeasonScore records a probability score for a backtested season.
func RecordSeasonScore(season, metric string, score float64) {
	BacktestSeasonScore.WithLabelValues(season, metric).Set(score)
}

// RecordBracketPoints records the bracket points for a backtested season.
func RecordBracketPoints(season, system string, points float64) {
	BacktestBracketPoints.WithLabelValues(season, system).Set(points)
}
