// Package features builds pairwise matchup features from per-team vectors.
package features

import (
	"math"
	"sort"
	"strings"

	"github.com/yourusername/bracket-forecast/internal/models"
)

// Suffix marks a differenced column
const Suffix = "_diff"

// StyleContrast is the name of the style contrast column
const StyleContrast = "style_contrast"

// Diff is a named set of pairwise feature values, team A minus team B
type Diff map[string]float64

// HeadToHead returns the elementwise difference of the numeric columns both
// teams carry. Labels are never differenced.
func HeadToHead(a, b models.FeatureVector) Diff {
	diff := make(Diff, len(a.Values))
	for name, va := range a.Values {
		vb, ok := b.Values[name]
		if !ok {
			continue
		}
		diff[name+Suffix] = va - vb
	}
	return diff
}

// Contrast sums the absolute numeric differences between the two teams
func Contrast(a, b models.FeatureVector) float64 {
	total := 0.0
	for name, va := range a.Values {
		if vb, ok := b.Values[name]; ok {
			total += math.Abs(va - vb)
		}
	}
	return total
}

// Matchup is HeadToHead plus the style contrast column
func Matchup(a, b models.FeatureVector) Diff {
	diff := HeadToHead(a, b)
	diff[StyleContrast] = Contrast(a, b)
	return diff
}

// Reverse returns the diff seen from team B's side. Differenced columns flip
// sign; symmetric columns such as style contrast are kept.
func (d Diff) Reverse() Diff {
	out := make(Diff, len(d))
	for name, v := range d {
		if strings.HasSuffix(name, Suffix) {
			out[name] = -v
		} else {
			out[name] = v
		}
	}
	return out
}

// Missing returns the requested columns absent from the diff, sorted
func (d Diff) Missing(columns []string) []string {
	var missing []string
	for _, name := range columns {
		if v, ok := d[name]; !ok || math.IsNaN(v) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Names returns the diff's column names, sorted
func (d Diff) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
