package models

import "time"

// ProbabilityEpsilon bounds probabilities away from exactly 0 and 1
const ProbabilityEpsilon = 1e-6

// Source identifies which estimator produced a probability
type Source string

// Estimator sources
const (
	SourceRating     Source = "rating"
	SourceClassifier Source = "classifier"
	SourcePrior      Source = "prior"
	SourceEnsemble   Source = "ensemble"
	SourceCalibrated Source = "calibrated"
)

// PairwiseEstimate is the probability that TeamA beats TeamB as of Cutoff
type PairwiseEstimate struct {
	TeamA       string    `json:"team_a"`
	TeamB       string    `json:"team_b"`
	Cutoff      time.Time `json:"cutoff"`
	Probability float64   `json:"probability"`
	Source      Source    `json:"source"`
}

// Complement returns the estimate for the reversed matchup
func (e PairwiseEstimate) Complement() PairwiseEstimate {
	return PairwiseEstimate{
		TeamA:       e.TeamB,
		TeamB:       e.TeamA,
		Cutoff:      e.Cutoff,
		Probability: 1 - e.Probability,
		Source:      e.Source,
	}
}

// ClampProbability keeps p inside [ProbabilityEpsilon, 1-ProbabilityEpsilon]
func ClampProbability(p float64) float64 {
	if p != p {
		return 0.5
	}
	if p < ProbabilityEpsilon {
		return ProbabilityEpsilon
	}
	if p > 1-ProbabilityEpsilon {
		return 1 - ProbabilityEpsilon
	}
	return p
}
