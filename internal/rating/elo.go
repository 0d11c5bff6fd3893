// Package rating implements the sequential Elo strength model.
package rating

import (
	"fmt"
	"math"

	"github.com/yourusername/bracket-forecast/internal/models"
)

// Config holds the Elo parameters
type Config struct {
	// KBase scales every rating change.
	KBase float64 `json:"k_base"`
	// HomeAdv is added to the home side's rating difference on non-neutral courts.
	HomeAdv float64 `json:"home_adv"`
	// Baseline is the rating of a team the first time it is seen in a season.
	Baseline float64 `json:"baseline"`
	// Scale is the logistic divisor of the rating difference.
	Scale float64 `json:"scale"`
	// PreseasonRegress is the fraction of the gap to Baseline removed when a
	// rating carries over into the next season. 1 resets every team.
	PreseasonRegress float64 `json:"preseason_regress"`
}

// DefaultConfig returns the standard college basketball parameters
func DefaultConfig() Config {
	return Config{
		KBase:            30,
		HomeAdv:          40,
		Baseline:         1500,
		Scale:            400,
		PreseasonRegress: 1,
	}
}

// Validate validates rating parameters
func (c Config) Validate() error {
	if c.KBase <= 0 {
		return fmt.Errorf("%w: k_base must be positive", ErrInvalidConfig)
	}
	if c.HomeAdv < 0 {
		return fmt.Errorf("%w: home_adv cannot be negative", ErrInvalidConfig)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive", ErrInvalidConfig)
	}
	if c.PreseasonRegress < 0 || c.PreseasonRegress > 1 {
		return fmt.Errorf("%w: preseason_regress must be between 0 and 1", ErrInvalidConfig)
	}
	return nil
}

// Expected returns the expected score of team A against team B. Team A is
// the home side when neutral is false.
func Expected(ratingA, ratingB float64, neutral bool, cfg Config) float64 {
	diff := ratingA - ratingB
	if !neutral {
		diff += cfg.HomeAdv
	}
	return 1 / (1 + math.Pow(10, -diff/cfg.Scale))
}

// Delta returns the rating change for team A after the game. Team B changes
// by exactly the negated amount.
func Delta(ratingA, ratingB float64, aWon, neutral bool, cfg Config) float64 {
	actual := 0.0
	if aWon {
		actual = 1.0
	}
	return cfg.KBase * (actual - Expected(ratingA, ratingB, neutral, cfg))
}

// Update applies one game result and returns both new ratings
func Update(ratingA, ratingB float64, aWon, neutral bool, cfg Config) (float64, float64) {
	delta := Delta(ratingA, ratingB, aWon, neutral, cfg)
	return ratingA + delta, ratingB - delta
}

// Predict returns the probability that team A beats team B. The home-court
// term only applies when the caller says the game is not neutral.
func Predict(ratingA, ratingB float64, neutral bool, cfg Config) float64 {
	return models.ClampProbability(Expected(ratingA, ratingB, neutral, cfg))
}
