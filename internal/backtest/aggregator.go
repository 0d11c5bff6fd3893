package backtest

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Result is a complete backtest run
type Result struct {
	RunID         uuid.UUID      `json:"run_id"`
	Protocol      string         `json:"protocol"`
	ScoringSystem string         `json:"scoring_system"`
	Seasons       []SeasonResult `json:"seasons"`
	Summary       Summary        `json:"summary"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at"`
}

// Summary averages the per-season results. Seasons without games, without an
// AUC or without a bracket are left out of the matching mean.
type Summary struct {
	Seasons          int      `json:"seasons"`
	Games            int      `json:"games"`
	MeanBrier        float64  `json:"mean_brier"`
	MeanLogLoss      float64  `json:"mean_log_loss"`
	MeanAUC          *float64 `json:"mean_auc,omitempty"`
	MeanPoints       *float64 `json:"mean_points,omitempty"`
	BestBrierSeason  int      `json:"best_brier_season,omitempty"`
	WorstBrierSeason int      `json:"worst_brier_season,omitempty"`
}

// Summarize aggregates season results
func Summarize(seasons []SeasonResult) Summary {
	s := Summary{Seasons: len(seasons)}

	var brier, logLoss, auc, points []float64
	bestBrier, worstBrier := math.Inf(1), math.Inf(-1)
	for _, r := range seasons {
		s.Games += r.Games
		if r.Games == 0 {
			continue
		}
		brier = append(brier, r.Brier)
		logLoss = append(logLoss, r.LogLoss)
		if r.AUC != nil {
			auc = append(auc, *r.AUC)
		}
		if r.Bracket != nil {
			points = append(points, float64(r.Bracket.Points))
		}
		if r.Brier < bestBrier {
			bestBrier, s.BestBrierSeason = r.Brier, r.Season
		}
		if r.Brier > worstBrier {
			worstBrier, s.WorstBrierSeason = r.Brier, r.Season
		}
	}

	if len(brier) > 0 {
		s.MeanBrier = stat.Mean(brier, nil)
		s.MeanLogLoss = stat.Mean(logLoss, nil)
	}
	if len(auc) > 0 {
		m := stat.Mean(auc, nil)
		s.MeanAUC = &m
	}
	if len(points) > 0 {
		m := stat.Mean(points, nil)
		s.MeanPoints = &m
	}
	return s
}
