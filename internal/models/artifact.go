package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ArtifactRecord is the persisted form of a trained forecasting artifact
type ArtifactRecord struct {
	ID        uuid.UUID       `db:"id" json:"id" validate:"required"`
	Name      string          `db:"name" json:"name" validate:"required"`
	Cutoff    time.Time       `db:"cutoff" json:"cutoff" validate:"required"`
	Seasons   []int           `db:"seasons" json:"seasons" validate:"required,min=1"`
	Payload   json.RawMessage `db:"payload" json:"payload" validate:"required"`
	TrainedAt time.Time       `db:"trained_at" json:"trained_at" validate:"required"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// IsActive checks if the artifact is the one serving predictions
func (a *ArtifactRecord) IsActive() bool {
	return a.Active
}
