package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/bracket-forecast/internal/database"
	"github.com/yourusername/bracket-forecast/internal/models"
)

const artifactColumns = `id, name, cutoff, seasons, payload, trained_at, active, created_at`

// PostgresArtifactRepository implements ArtifactRepository for PostgreSQL
type PostgresArtifactRepository struct {
	db *database.DB
}

// NewPostgresArtifactRepository creates a new artifact repository
func NewPostgresArtifactRepository(db *database.DB) ArtifactRepository {
	return &PostgresArtifactRepository{db: db}
}

// Create inserts a trained artifact
func (r *PostgresArtifactRepository) Create(ctx context.Context, artifact *models.ArtifactRecord) error {
	if err := validateRecord(artifact); err != nil {
		return err
	}

	query := `
		INSERT INTO artifacts (id, name, cutoff, seasons, payload, trained_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.db.GetPool().Exec(ctx, query,
		artifact.ID, artifact.Name, artifact.Cutoff, artifact.Seasons, artifact.Payload, artifact.TrainedAt, artifact.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrDuplicateKey
	}

	return nil
}

// GetByID retrieves an artifact by ID
func (r *PostgresArtifactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ArtifactRecord, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE id = $1`

	artifact, err := scanArtifact(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	return artifact, nil
}

// GetActive retrieves the artifact currently serving predictions
func (r *PostgresArtifactRepository) GetActive(ctx context.Context) (*models.ArtifactRecord, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM artifacts
		WHERE active = true
		ORDER BY trained_at DESC
		LIMIT 1
	`

	artifact, err := scanArtifact(r.db.GetPool().QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active artifact: %w", err)
	}

	return artifact, nil
}

// GetByName retrieves every version of a named artifact, newest first
func (r *PostgresArtifactRepository) GetByName(ctx context.Context, name string) ([]*models.ArtifactRecord, error) {
	query := `
		SELECT ` + artifactColumns + `
		FROM artifacts
		WHERE name = $1
		ORDER BY trained_at DESC
	`

	return r.query(ctx, query, name)
}

// List retrieves the most recently trained artifacts
func (r *PostgresArtifactRepository) List(ctx context.Context, limit int) ([]*models.ArtifactRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + artifactColumns + `
		FROM artifacts
		ORDER BY trained_at DESC
		LIMIT $1
	`

	return r.query(ctx, query, limit)
}

// SetActive marks an artifact active and deactivates all others
func (r *PostgresArtifactRepository) SetActive(ctx context.Context, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "UPDATE artifacts SET active = false WHERE id != $1 AND active = true", id); err != nil {
			return fmt.Errorf("failed to deactivate artifacts: %w", err)
		}
		if _, err := tx.Exec(ctx, "UPDATE artifacts SET active = true WHERE id = $1", id); err != nil {
			return fmt.Errorf("failed to activate artifact: %w", err)
		}
		return nil
	})
}

// Delete removes an artifact
func (r *PostgresArtifactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.GetPool().Exec(ctx, "DELETE FROM artifacts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PostgresArtifactRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.ArtifactRecord, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.ArtifactRecord
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, rows.Err()
}

func scanArtifact(row pgx.Row) (*models.ArtifactRecord, error) {
	artifact := &models.ArtifactRecord{}
	err := row.Scan(
		&artifact.ID, &artifact.Name, &artifact.Cutoff, &artifact.Seasons, &artifact.Payload,
		&artifact.TrainedAt, &artifact.Active, &artifact.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

var recordValidator = validator.New()

func validateRecord(artifact *models.ArtifactRecord) error {
	if artifact == nil {
		return fmt.Errorf("artifact record is required")
	}
	if err := recordValidator.Struct(artifact); err != nil {
		return fmt.Errorf("invalid artifact record: %w", err)
	}
	return nil
}
