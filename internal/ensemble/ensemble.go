// Package ensemble blends per-source win probabilities into one estimate.
package ensemble

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yourusername/bracket-forecast/internal/models"
)

// MethodWeighted is the weighted arithmetic mean of source probabilities
const MethodWeighted = "weighted"

var (
	// ErrNoEstimates indicates nothing to blend
	ErrNoEstimates = errors.New("no estimates to blend")

	// ErrNegativeWeight indicates a weight below zero
	ErrNegativeWeight = errors.New("ensemble weight cannot be negative")

	// ErrZeroWeight indicates the usable weights sum to zero
	ErrZeroWeight = errors.New("ensemble weights sum to zero")
)

// Config holds the blend parameters
type Config struct {
	Method string `json:"method"`
	// Weights per source; empty means uniform.
	Weights map[models.Source]float64 `json:"weights,omitempty"`
	// FallbackToPrior drops the classifier when a feature is missing and
	// blends with FallbackWeights.
	FallbackToPrior bool `json:"fallback_to_prior"`
}

// DefaultConfig returns a uniform weighted blend with prior fallback
func DefaultConfig() Config {
	return Config{Method: MethodWeighted, FallbackToPrior: true}
}

// Validate checks the method and weights without blending
func (c Config) Validate() error {
	if c.Method != MethodWeighted {
		return &models.UnknownMethodError{Kind: "ensemble", Method: c.Method}
	}
	for source, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("%w: %s=%v", ErrNegativeWeight, source, w)
		}
	}
	return nil
}

// Blend combines the estimates. Sources without an estimate are ignored and
// the remaining weights re-normalized; a source with an estimate but no
// configured weight gets none when weights are configured.
func Blend(estimates map[models.Source]float64, weights map[models.Source]float64, method string) (float64, error) {
	if method != MethodWeighted {
		return 0, &models.UnknownMethodError{Kind: "ensemble", Method: method}
	}
	if len(estimates) == 0 {
		return 0, ErrNoEstimates
	}

	sources := make([]models.Source, 0, len(estimates))
	for source := range estimates {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	total, blended := 0.0, 0.0
	for _, source := range sources {
		w := 1.0
		if len(weights) > 0 {
			w = weights[source]
		}
		if w < 0 {
			return 0, fmt.Errorf("%w: %s=%v", ErrNegativeWeight, source, w)
		}
		total += w
		blended += w * estimates[source]
	}
	if total == 0 {
		return 0, ErrZeroWeight
	}
	return models.ClampProbability(blended / total), nil
}

// FallbackWeights returns the weights for a blend made without the
// classifier: its weight moves to the prior, so the prior always takes part
// once the configured weights are non-empty. Empty weights stay uniform.
func FallbackWeights(weights map[models.Source]float64) map[models.Source]float64 {
	if len(weights) == 0 {
		return weights
	}
	out := make(map[models.Source]float64, len(weights))
	total := 0.0
	for source, w := range weights {
		if source == models.SourceClassifier {
			continue
		}
		out[source] = w
		total += w
	}
	out[models.SourcePrior] += weights[models.SourceClassifier]
	total += weights[models.SourceClassifier]
	if total == 0 {
		out[models.SourcePrior] = 1
	}
	return out
}

// Normalize returns weights scaled to sum to one over the given sources
func Normalize(weights map[models.Source]float64, sources []models.Source) (map[models.Source]float64, error) {
	out := make(map[models.Source]float64, len(sources))
	total := 0.0
	for _, source := range sources {
		w := 1.0
		if len(weights) > 0 {
			w = weights[source]
		}
		if w < 0 {
			return nil, fmt.Errorf("%w: %s=%v", ErrNegativeWeight, source, w)
		}
		out[source] = w
		total += w
	}
	if total == 0 {
		return nil, ErrZeroWeight
	}
	for source := range out {
		out[source] /= total
	}
	return out, nil
}

// Canonical orders a matchup so the lexicographically smaller ID comes first.
// swapped reports whether the order changed.
func Canonical(teamA, teamB string) (first, second string, swapped bool) {
	if teamB < teamA {
		return teamB, teamA, true
	}
	return teamA, teamB, false
}

// Orient turns a canonical-direction probability into P(teamA beats teamB)
func Orient(teamA, teamB string, pCanonical float64) float64 {
	if _, _, swapped := Canonical(teamA, teamB); swapped {
		return 1 - pCanonical
	}
	return pCanonical
}
