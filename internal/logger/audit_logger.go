package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides a dedicated audit trail for trained artifacts.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogArtifactSaved logs a persisted artifact.
func (al *AuditLogger) LogArtifactSaved(artifactID, name, location string, cutoff time.Time, seasons []int) {
	al.WithFields(logrus.Fields{
		"artifact_id": artifactID,
		"name":        name,
		"location":    location,
		"cutoff":      cutoff.Format(dateLayout),
		"seasons":     seasons,
	}).Info("Artifact saved")
}

// LogArtifactActivated logs the artifact that now serves predictions.
func (al *AuditLogger) LogArtifactActivated(artifactID, name string, cutoff time.Time) {
	al.WithFields(logrus.Fields{
		"artifact_id": artifactID,
		"name":        name,
		"cutoff":      cutoff.Format(dateLayout),
	}).Info("Artifact activated")
}

// LogRetrainFailure logs a scheduled retraining that did not produce an artifact.
func (al *AuditLogger) LogRetrainFailure(schedule string, err error) {
	al.WithFields(logrus.Fields{
		"schedule": schedule,
		"error":    err.Error(),
	}).Error("Scheduled retraining failed")
}
