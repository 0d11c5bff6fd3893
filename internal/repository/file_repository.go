package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// FileArtifactRepository stores artifact records as JSON files in a directory.
// It serves single-node deployments that run without PostgreSQL.
type FileArtifactRepository struct {
	dir string
	mu  sync.Mutex
}

// NewFileArtifactRepository creates the directory if needed
func NewFileArtifactRepository(dir string) (*FileArtifactRepository, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &FileArtifactRepository{dir: dir}, nil
}

// Create writes a new artifact record
func (r *FileArtifactRepository) Create(ctx context.Context, artifact *models.ArtifactRecord) error {
	if err := validateRecord(artifact); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.path(artifact.ID)
	if _, err := os.Stat(path); err == nil {
		return models.ErrDuplicateKey
	}

	stored := *artifact
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if err := r.write(&stored); err != nil {
		return err
	}
	if stored.Active {
		return r.activate(artifact.ID)
	}
	return nil
}

// GetByID reads a single artifact record
func (r *FileArtifactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ArtifactRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(r.path(id))
}

// GetActive returns the newest active artifact
func (r *FileArtifactRepository) GetActive(ctx context.Context) (*models.ArtifactRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.all()
	if err != nil {
		return nil, err
	}
	for _, artifact := range all {
		if artifact.Active {
			return artifact, nil
		}
	}
	return nil, models.ErrNotFound
}

// GetByName returns every version of a named artifact, newest first
func (r *FileArtifactRepository) GetByName(ctx context.Context, name string) ([]*models.ArtifactRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.all()
	if err != nil {
		return nil, err
	}
	var out []*models.ArtifactRecord
	for _, artifact := range all {
		if artifact.Name == name {
			out = append(out, artifact)
		}
	}
	return out, nil
}

// List returns up to limit artifacts, newest first
func (r *FileArtifactRepository) List(ctx context.Context, limit int) ([]*models.ArtifactRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.all()
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// SetActive marks an artifact active and deactivates all others
func (r *FileArtifactRepository) SetActive(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.read(r.path(id)); err != nil {
		return err
	}
	return r.activate(id)
}

// Delete removes an artifact record
func (r *FileArtifactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

func (r *FileArtifactRepository) activate(id uuid.UUID) error {
	all, err := r.all()
	if err != nil {
		return err
	}
	for _, artifact := range all {
		want := artifact.ID == id
		if artifact.Active == want {
			continue
		}
		artifact.Active = want
		if err := r.write(artifact); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileArtifactRepository) all() ([]*models.ArtifactRecord, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	var out []*models.ArtifactRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".record.json") {
			continue
		}
		artifact, err := r.read(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, artifact)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TrainedAt.Equal(out[j].TrainedAt) {
			return out[i].TrainedAt.After(out[j].TrainedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *FileArtifactRepository) read(path string) (*models.ArtifactRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var artifact models.ArtifactRecord
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return &artifact, nil
}

func (r *FileArtifactRepository) write(artifact *models.ArtifactRecord) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	tmp := r.path(artifact.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, r.path(artifact.ID)); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

func (r *FileArtifactRepository) path(id uuid.UUID) string {
	return filepath.Join(r.dir, id.String()+".record.json")
}
