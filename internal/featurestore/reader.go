// Package featurestore reads historical games and per-team features.
package featurestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/yourusername/bracket-forecast/internal/models"
)

// Reader is the only data dependency of the engine
type Reader interface {
	// Games returns the season's games dated on or before upTo, in
	// chronological (date, seq) order.
	Games(ctx context.Context, season int, upTo time.Time) ([]models.Game, error)
	// Features returns each team's latest feature vector dated on or before asOf.
	Features(ctx context.Context, season int, asOf time.Time) (map[string]models.FeatureVector, error)
}

// Fixture is the JSON interchange format for games and features
type Fixture struct {
	Teams    []models.Team          `json:"teams,omitempty"`
	Games    []models.Game          `json:"games"`
	Features []models.FeatureVector `json:"features"`
}

// LoadFixture reads a fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// metricRow is one stored (team, metric) value at an as-of date
type metricRow struct {
	teamID string
	asOf   time.Time
	metric string
	value  *float64
	label  *string
}

// pivot assembles metric rows into feature vectors
func pivot(season int, rows []metricRow) map[string]models.FeatureVector {
	out := make(map[string]models.FeatureVector)
	for _, r := range rows {
		fv, ok := out[r.teamID]
		if !ok {
			fv = models.FeatureVector{
				TeamID: r.teamID,
				Season: season,
				AsOf:   r.asOf,
				Values: make(map[string]float64),
			}
		}
		switch {
		case r.value != nil:
			fv.Values[r.metric] = *r.value
		case r.label != nil:
			if fv.Labels == nil {
				fv.Labels = make(map[string]string)
			}
			fv.Labels[r.metric] = *r.label
		}
		out[r.teamID] = fv
	}
	return out
}

// flatten turns a feature vector into metric rows for storage
func flatten(fv models.FeatureVector) []metricRow {
	rows := make([]metricRow, 0, len(fv.Values)+len(fv.Labels))
	for name, v := range fv.Values {
		v := v
		rows = append(rows, metricRow{teamID: fv.TeamID, asOf: fv.AsOf, metric: name, value: &v})
	}
	for name, l := range fv.Labels {
		l := l
		rows = append(rows, metricRow{teamID: fv.TeamID, asOf: fv.AsOf, metric: name, label: &l})
	}
	return rows
}
