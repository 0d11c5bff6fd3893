// Package leakage enforces the temporal-validity invariant: no record dated
// after an as-of cutoff may feed an estimate for that cutoff.
package leakage

import (
	"strings"
	"time"

	"github.com/yourusername/bracket-forecast/internal/metrics"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// Record kinds used for error messages and metric labels
const (
	RecordGame     = "game"
	RecordFeature  = "feature"
	RecordTraining = "training_row"
	RecordLabel    = "calibration_label"
	RecordArtifact = "artifact"
	RecordSeason   = "season"
)

// Check fails with a *models.LeakageError when recordDate is after cutoff.
func Check(recordDate, cutoff time.Time) error {
	return CheckRecord("record", recordDate, cutoff)
}

// CheckRecord is Check with a record description for the error and metrics.
func CheckRecord(record string, recordDate, cutoff time.Time) error {
	if !recordDate.After(cutoff) {
		return nil
	}
	metrics.RecordLeakageViolation(kindOf(record))
	return &models.LeakageError{Record: record, RecordDate: recordDate, Cutoff: cutoff}
}

// CheckGames checks every game against cutoff and returns the first violation.
func CheckGames(games []models.Game, cutoff time.Time) error {
	for i := range games {
		if err := CheckRecord(RecordGame+" "+games[i].ID, games[i].Date, cutoff); err != nil {
			return err
		}
	}
	return nil
}

// CheckFeatures checks every feature vector's as-of date against cutoff.
func CheckFeatures(vectors map[string]models.FeatureVector, cutoff time.Time) error {
	for teamID, fv := range vectors {
		if err := CheckRecord(RecordFeature+" "+teamID, fv.AsOf, cutoff); err != nil {
			return err
		}
	}
	return nil
}

// kindOf keeps metric label cardinality bounded by dropping record IDs.
func kindOf(record string) string {
	if kind, _, ok := strings.Cut(record, " "); ok {
		return kind
	}
	return record
}
