package repository

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/bracket-forecast/internal/config"
	"github.com/yourusername/bracket-forecast/internal/database"
	"github.com/yourusername/bracket-forecast/internal/models"
)

const skipIntegrationMsg = "Integration test - set BRACKET_TEST_PG_HOST to run against PostgreSQL"

func newRecord(name string, trainedAt time.Time) *models.ArtifactRecord {
	return &models.ArtifactRecord{
		ID:        uuid.New(),
		Name:      name,
		Cutoff:    time.Date(2019, 3, 17, 0, 0, 0, 0, time.UTC),
		Seasons:   []int{2017, 2018, 2019},
		Payload:   json.RawMessage(`{"name":"` + name + `"}`),
		TrainedAt: trainedAt,
	}
}

func exerciseArtifactRepository(t *testing.T, repo ArtifactRepository) {
	ctx := context.Background()
	base := time.Date(2019, 3, 18, 12, 0, 0, 0, time.UTC)

	first := newRecord("forecast-2019-03-17", base)
	second := newRecord("forecast-2019-03-17", base.Add(time.Hour))
	other := newRecord("backtest-2018", base.Add(-time.Hour))

	for _, rec := range []*models.ArtifactRecord{first, second, other} {
		require.NoError(t, repo.Create(ctx, rec))
	}
	assert.ErrorIs(t, repo.Create(ctx, first), models.ErrDuplicateKey)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Name, got.Name)
	assert.Equal(t, []int{2017, 2018, 2019}, got.Seasons)
	assert.JSONEq(t, string(first.Payload), string(got.Payload))
	assert.True(t, first.Cutoff.Equal(got.Cutoff))

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.GetActive(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, repo.SetActive(ctx, first.ID))
	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	require.NoError(t, repo.SetActive(ctx, other.ID))
	active, err = repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, other.ID, active.ID)

	refreshed, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsActive())

	assert.ErrorIs(t, repo.SetActive(ctx, uuid.New()), models.ErrNotFound)

	versions, err := repo.GetByName(ctx, "forecast-2019-03-17")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, second.ID, versions[0].ID)
	assert.Equal(t, first.ID, versions[1].ID)

	listed, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)

	require.NoError(t, repo.Delete(ctx, second.ID))
	assert.ErrorIs(t, repo.Delete(ctx, second.ID), models.ErrNotFound)

	listed, err = repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestFileArtifactRepository(t *testing.T) {
	repos, err := NewFileRepositories(t.TempDir())
	require.NoError(t, err)
	exerciseArtifactRepository(t, repos.Artifact)
}

func TestFileArtifactRepository_CreateActiveDeactivatesOthers(t *testing.T) {
	repo, err := NewFileArtifactRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	old := newRecord("a", time.Date(2018, 3, 12, 0, 0, 0, 0, time.UTC))
	old.Active = true
	require.NoError(t, repo.Create(ctx, old))

	fresh := newRecord("b", time.Date(2019, 3, 18, 0, 0, 0, 0, time.UTC))
	fresh.Active = true
	require.NoError(t, repo.Create(ctx, fresh))

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, active.ID)

	got, err := repo.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestFileArtifactRepository_RejectsInvalidRecords(t *testing.T) {
	repo, err := NewFileArtifactRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, repo.Create(ctx, nil))

	missingSeasons := newRecord("x", time.Now())
	missingSeasons.Seasons = nil
	assert.Error(t, repo.Create(ctx, missingSeasons))

	missingID := newRecord("x", time.Now())
	missingID.ID = uuid.Nil
	assert.Error(t, repo.Create(ctx, missingID))

	_, err = NewFileArtifactRepository("")
	assert.Error(t, err)
}

func TestNewRepositories_RequiresDatabase(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)
}

func TestPostgresArtifactRepository(t *testing.T) {
	host := os.Getenv("BRACKET_TEST_PG_HOST")
	if host == "" {
		t.Skip(skipIntegrationMsg)
	}
	port, _ := strconv.Atoi(os.Getenv("BRACKET_TEST_PG_PORT"))
	if port == 0 {
		port = 5432
	}

	cfg := &config.Config{Database: config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     os.Getenv("BRACKET_TEST_PG_NAME"),
		User:     os.Getenv("BRACKET_TEST_PG_USER"),
		Password: os.Getenv("BRACKET_TEST_PG_PASSWORD"),
		SSLMode:  "disable",
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Initialize(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(ctx, "TRUNCATE artifacts")
	require.NoError(t, err)

	repos, err := NewRepositories(db)
	require.NoError(t, err)
	exerciseArtifactRepository(t, repos.Artifact)
}
