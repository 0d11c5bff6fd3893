// Package calibration maps raw ensemble probabilities onto observed win rates.
package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/bracket-forecast/internal/models"
)

// Calibration methods
const (
	MethodIsotonic = "isotonic"
	MethodNone     = "none"
)

var (
	// ErrLengthMismatch indicates predictions and outcomes of different lengths
	ErrLengthMismatch = errors.New("predictions and outcomes differ in length")

	// ErrNoSamples indicates an empty calibration set
	ErrNoSamples = errors.New("no calibration samples")
)

// Map is a fitted monotone calibration function. It never changes after Fit,
// so concurrent readers need no locking.
type Map struct {
	method string
	// knots are non-decreasing in both coordinates.
	xs []float64
	ys []float64
}

// Identity returns the passthrough map
func Identity() *Map {
	return &Map{method: MethodNone}
}

// ValidateMethod reports whether method is a known calibration method
func ValidateMethod(method string) error {
	switch method {
	case MethodIsotonic, MethodNone:
		return nil
	default:
		return &models.UnknownMethodError{Kind: "calibration", Method: method}
	}
}

// Fit builds a map from raw probabilities and 0/1 outcomes
func Fit(raw, outcomes []float64, method string) (*Map, error) {
	if err := ValidateMethod(method); err != nil {
		return nil, err
	}
	if method == MethodNone {
		return Identity(), nil
	}
	if len(raw) != len(outcomes) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(raw), len(outcomes))
	}
	if len(raw) == 0 {
		return nil, ErrNoSamples
	}
	xs, ys := isotonic(raw, outcomes)
	return &Map{method: MethodIsotonic, xs: xs, ys: ys}, nil
}

// Method returns the calibration method
func (m *Map) Method() string {
	return m.method
}

// Apply returns the calibrated probability. Inputs outside the fitted range
// take the boundary values; inputs between knots are interpolated linearly.
func (m *Map) Apply(p float64) float64 {
	if m.method == MethodNone || len(m.xs) == 0 || math.IsNaN(p) {
		return models.ClampProbability(p)
	}
	n := len(m.xs)
	if p <= m.xs[0] {
		return models.ClampProbability(m.ys[0])
	}
	if p >= m.xs[n-1] {
		return models.ClampProbability(m.ys[n-1])
	}
	i := sort.SearchFloat64s(m.xs, p)
	if m.xs[i] == p {
		return models.ClampProbability(m.ys[i])
	}
	x0, x1 := m.xs[i-1], m.xs[i]
	y0, y1 := m.ys[i-1], m.ys[i]
	return models.ClampProbability(y0 + (y1-y0)*(p-x0)/(x1-x0))
}

// Knots returns copies of the map's breakpoints
func (m *Map) Knots() ([]float64, []float64) {
	return append([]float64(nil), m.xs...), append([]float64(nil), m.ys...)
}

type mapJSON struct {
	Method string    `json:"method"`
	X      []float64 `json:"x,omitempty"`
	Y      []float64 `json:"y,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(mapJSON{Method: m.method, X: m.xs, Y: m.ys})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw mapJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := ValidateMethod(raw.Method); err != nil {
		return err
	}
	if len(raw.X) != len(raw.Y) {
		return fmt.Errorf("%w: %d knots vs %d values", ErrLengthMismatch, len(raw.X), len(raw.Y))
	}
	for i := 1; i < len(raw.X); i++ {
		if raw.X[i] < raw.X[i-1] || raw.Y[i] < raw.Y[i-1] {
			return fmt.Errorf("calibration knots are not monotone at %d", i)
		}
	}
	m.method, m.xs, m.ys = raw.Method, raw.X, raw.Y
	return nil
}

type block struct {
	sum    float64
	weight float64
	minX   float64
	maxX   float64
}

func (b block) mean() float64 {
	return b.sum / b.weight
}

// isotonic runs pool adjacent violators over the samples sorted by raw value
// and returns each pooled block's end points.
func isotonic(raw, outcomes []float64) ([]float64, []float64) {
	idx := make([]int, len(raw))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return raw[idx[a]] < raw[idx[b]] })

	blocks := make([]block, 0, len(raw))
	for _, i := range idx {
		x := raw[i]
		// equal inputs always share a block
		if n := len(blocks); n > 0 && blocks[n-1].maxX == x {
			blocks[n-1].sum += outcomes[i]
			blocks[n-1].weight++
		} else {
			blocks = append(blocks, block{sum: outcomes[i], weight: 1, minX: x, maxX: x})
		}
		for n := len(blocks); n > 1 && blocks[n-2].mean() >= blocks[n-1].mean(); n = len(blocks) {
			last := blocks[n-1]
			prev := &blocks[n-2]
			prev.sum += last.sum
			prev.weight += last.weight
			prev.maxX = last.maxX
			blocks = blocks[:n-1]
		}
	}

	xs := make([]float64, 0, 2*len(blocks))
	ys := make([]float64, 0, 2*len(blocks))
	for _, b := range blocks {
		y := b.mean()
		xs = append(xs, b.minX)
		ys = append(ys, y)
		if b.maxX > b.minX {
			xs = append(xs, b.maxX)
			ys = append(ys, y)
		}
	}
	return xs, ys
}
