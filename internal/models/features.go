package models

import (
	"sort"
	"time"
)

// FeatureVector holds a team's named features as of a given date
type FeatureVector struct {
	TeamID string             `db:"team_id" json:"team_id" validate:"required"`
	Season int                `db:"season" json:"season" validate:"required,gt=0"`
	AsOf   time.Time          `db:"asof_date" json:"asof_date" validate:"required"`
	Values map[string]float64 `json:"values"`
	// Labels carries non-numeric columns; they never take part in differencing.
	Labels map[string]string `json:"labels,omitempty"`
}

// Value returns a numeric feature and whether it is present
func (f FeatureVector) Value(name string) (float64, bool) {
	v, ok := f.Values[name]
	return v, ok
}

// Columns returns the numeric column names in sorted order
func (f FeatureVector) Columns() []string {
	cols := make([]string, 0, len(f.Values))
	for name := range f.Values {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}
