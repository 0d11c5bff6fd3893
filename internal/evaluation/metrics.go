// Package evaluation scores probability forecasts and bracket picks.
package evaluation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// LogLossEpsilon bounds predictions away from 0 and 1 inside LogLoss
const LogLossEpsilon = 1e-15

var (
	// ErrLengthMismatch indicates predictions and outcomes of different lengths
	ErrLengthMismatch = errors.New("predictions and outcomes differ in length")

	// ErrEmpty indicates no samples to score
	ErrEmpty = errors.New("no samples to score")
)

// Scores summarizes a set of probability forecasts
type Scores struct {
	N       int     `json:"n"`
	Brier   float64 `json:"brier"`
	LogLoss float64 `json:"log_loss"`
	// AUC is NaN when only one class is present.
	AUC float64 `json:"auc"`
}

func check(p, y []float64) error {
	if len(p) != len(y) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(p), len(y))
	}
	if len(p) == 0 {
		return ErrEmpty
	}
	return nil
}

// BrierScore returns the mean squared error of the predictions
func BrierScore(p, y []float64) (float64, error) {
	if err := check(p, y); err != nil {
		return 0, err
	}
	diff := make([]float64, len(p))
	floats.SubTo(diff, p, y)
	return floats.Dot(diff, diff) / float64(len(p)), nil
}

// LogLoss returns the mean negative log-likelihood of the outcomes
func LogLoss(p, y []float64) (float64, error) {
	if err := check(p, y); err != nil {
		return 0, err
	}
	total := 0.0
	for i := range p {
		q := math.Min(math.Max(p[i], LogLossEpsilon), 1-LogLossEpsilon)
		total -= y[i]*math.Log(q) + (1-y[i])*math.Log(1-q)
	}
	return total / float64(len(p)), nil
}

// AUC returns the area under the ROC curve, or NaN when y holds one class
func AUC(p, y []float64) (float64, error) {
	if err := check(p, y); err != nil {
		return 0, err
	}

	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })

	scores := make([]float64, len(p))
	classes := make([]bool, len(p))
	positives := 0
	for k, i := range idx {
		scores[k] = p[i]
		classes[k] = y[i] == 1
		if classes[k] {
			positives++
		}
	}
	if positives == 0 || positives == len(p) {
		return math.NaN(), nil
	}

	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// Score computes every forecast metric at once
func Score(p, y []float64) (Scores, error) {
	brier, err := BrierScore(p, y)
	if err != nil {
		return Scores{}, err
	}
	logLoss, err := LogLoss(p, y)
	if err != nil {
		return Scores{}, err
	}
	auc, err := AUC(p, y)
	if err != nil {
		return Scores{}, err
	}
	return Scores{N: len(p), Brier: brier, LogLoss: logLoss, AUC: auc}, nil
}

// Bucket is one row of a reliability table
type Bucket struct {
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	ObservedRate  float64 `json:"observed_rate"`
}

// Reliability groups predictions into n equal-width buckets over [0,1] and
// returns the non-empty ones
func Reliability(p, y []float64, n int) ([]Bucket, error) {
	if err := check(p, y); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 10
	}
	sumP := make([]float64, n)
	sumY := make([]float64, n)
	count := make([]int, n)
	for i := range p {
		b := int(p[i] * float64(n))
		if b >= n {
			b = n - 1
		}
		if b < 0 {
			b = 0
		}
		sumP[b] += p[i]
		sumY[b] += y[i]
		count[b]++
	}

	var buckets []Bucket
	width := 1 / float64(n)
	for b := 0; b < n; b++ {
		if count[b] == 0 {
			continue
		}
		buckets = append(buckets, Bucket{
			Lower:         float64(b) * width,
			Upper:         float64(b+1) * width,
			Count:         count[b],
			MeanPredicted: sumP[b] / float64(count[b]),
			ObservedRate:  sumY[b] / float64(count[b]),
		})
	}
	return buckets, nil
}
