package repository

import (
	"fmt"

	"github.com/yourusername/bracket-forecast/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Artifact ArtifactRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Artifact: NewPostgresArtifactRepository(db),
	}, nil
}

// NewFileRepositories backs every repository with files under dir
func NewFileRepositories(dir string) (*Repositories, error) {
	artifacts, err := NewFileArtifactRepository(dir)
	if err != nil {
		return nil, err
	}
	return &Repositories{Artifact: artifacts}, nil
}
