package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// ArtifactRepository defines the interface for trained artifact storage
type ArtifactRepository interface {
	Create(ctx context.Context, artifact *models.ArtifactRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ArtifactRecord, error)
	GetActive(ctx context.Context) (*models.ArtifactRecord, error)
	GetByName(ctx context.Context, name string) ([]*models.ArtifactRecord, error)
	List(ctx context.Context, limit int) ([]*models.ArtifactRecord, error)
	SetActive(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
