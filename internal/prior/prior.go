// Package prior implements the Beta-style Bayesian win-rate estimator used as
// the fallback anchor of the ensemble.
package prior

import (
	"fmt"
	"time"

	"github.com/yourusername/bracket-forecast/internal/leakage"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// Neutral is the prior win probability of a team with no evidence
const Neutral = 0.5

// Config holds prior parameters
type Config struct {
	// Strength is the pseudo-count weight of the prior against one game.
	Strength float64 `json:"strength"`
}

// DefaultConfig returns the default prior parameters
func DefaultConfig() Config {
	return Config{Strength: 10}
}

// Prior returns the starting win probability for a team. Features do not
// move the anchor yet.
func Prior(_ models.FeatureVector, _ Config) float64 {
	return Neutral
}

// Update folds one outcome (1 win, 0 loss) into a prior
func Update(prior, outcome, strength float64) float64 {
	return (prior*strength + outcome) / (strength + 1)
}

// Log5 combines two independent win rates into the probability that A beats B
func Log5(pA, pB float64) float64 {
	num := pA * (1 - pB)
	den := num + pB*(1-pA)
	if den == 0 {
		return Neutral
	}
	return num / den
}

// Tracker keeps one posterior per team for a season
type Tracker struct {
	cfg        Config
	cutoff     time.Time
	posteriors map[string]float64
	games      map[string]int
}

// NewTracker creates a tracker that rejects games after cutoff
func NewTracker(cutoff time.Time, cfg Config) *Tracker {
	return &Tracker{
		cfg:        cfg,
		cutoff:     cutoff,
		posteriors: make(map[string]float64),
		games:      make(map[string]int),
	}
}

// Fold applies every game to a fresh tracker
func Fold(games []models.Game, cutoff time.Time, cfg Config) (*Tracker, error) {
	if cfg.Strength < 0 {
		return nil, fmt.Errorf("prior strength cannot be negative, got %v", cfg.Strength)
	}
	tracker := NewTracker(cutoff, cfg)
	for i := range games {
		if err := tracker.Observe(games[i]); err != nil {
			return nil, err
		}
	}
	return tracker, nil
}

// Observe updates both teams' posteriors with a game result
func (t *Tracker) Observe(g models.Game) error {
	if err := leakage.CheckRecord(leakage.RecordGame+" "+g.ID, g.Date, t.cutoff); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	t.posteriors[g.Winner()] = Update(t.Posterior(g.Winner()), 1, t.cfg.Strength)
	t.posteriors[g.Loser()] = Update(t.Posterior(g.Loser()), 0, t.cfg.Strength)
	t.games[g.Winner()]++
	t.games[g.Loser()]++
	return nil
}

// Posterior returns the team's current win rate estimate
func (t *Tracker) Posterior(teamID string) float64 {
	if p, ok := t.posteriors[teamID]; ok {
		return p
	}
	return Neutral
}

// Games returns how many games the team has contributed
func (t *Tracker) Games(teamID string) int {
	return t.games[teamID]
}

// Predict returns the log5 probability that team A beats team B
func (t *Tracker) Predict(teamA, teamB string) float64 {
	return models.ClampProbability(Log5(t.Posterior(teamA), t.Posterior(teamB)))
}

// Posteriors returns a copy of every team's posterior
func (t *Tracker) Posteriors() map[string]float64 {
	out := make(map[string]float64, len(t.posteriors))
	for id, p := range t.posteriors {
		out[id] = p
	}
	return out
}

// Restore builds a tracker from persisted posteriors
func Restore(posteriors map[string]float64, cutoff time.Time, cfg Config) *Tracker {
	t := NewTracker(cutoff, cfg)
	for id, p := range posteriors {
		t.posteriors[id] = p
	}
	return t
}
