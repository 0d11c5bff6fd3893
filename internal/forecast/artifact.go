// Package forecast trains artifacts and serves matchup and bracket forecasts.
package forecast

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/bracket-forecast/internal/calibration"
	"github.com/yourusername/bracket-forecast/internal/classifier"
	"github.com/yourusername/bracket-forecast/internal/config"
	"github.com/yourusername/bracket-forecast/internal/ensemble"
	"github.com/yourusername/bracket-forecast/internal/models"
	"github.com/yourusername/bracket-forecast/internal/prior"
	"github.com/yourusername/bracket-forecast/internal/rating"
	"github.com/yourusername/bracket-forecast/internal/simulation"
)

// Artifact holds every sub-model's parameters and the calibration map. It is
// read-only once trained.
type Artifact struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Cutoff      time.Time         `json:"cutoff"`
	Seasons     []int             `json:"seasons"`
	TrainedAt   time.Time         `json:"trained_at"`
	Rating      rating.Config     `json:"rating"`
	Classifier  *classifier.Model `json:"classifier"`
	Prior       prior.Config      `json:"prior"`
	Ensemble    ensemble.Config   `json:"ensemble"`
	Calibration *calibration.Map  `json:"calibration"`
}

// Settings are the hyperparameters of a training run
type Settings struct {
	Rating            rating.Config
	Classifier        classifier.Config
	Prior             prior.Config
	Ensemble          ensemble.Config
	CalibrationMethod string
	Simulation        simulation.Config
}

// DefaultSettings returns every component's defaults
func DefaultSettings() Settings {
	return Settings{
		Rating:            rating.DefaultConfig(),
		Classifier:        classifier.DefaultConfig(),
		Prior:             prior.DefaultConfig(),
		Ensemble:          ensemble.DefaultConfig(),
		CalibrationMethod: calibration.MethodIsotonic,
		Simulation:        simulation.DefaultConfig(),
	}
}

// SettingsFromConfig maps the application configuration onto component settings
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	s := Settings{
		Rating: rating.Config{
			KBase:            cfg.Rating.KBase,
			HomeAdv:          cfg.Rating.HomeAdv,
			Baseline:         cfg.Rating.Baseline,
			Scale:            cfg.Rating.Scale,
			PreseasonRegress: cfg.Rating.PreseasonRegress,
		},
		Classifier: classifier.Config{
			Features:      append([]string(nil), cfg.Classifier.Features...),
			C:             cfg.Classifier.C,
			MaxIterations: cfg.Classifier.MaxIterations,
			Standardize:   cfg.Classifier.Standardize,
		},
		Prior: prior.Config{Strength: cfg.Prior.Strength},
		Ensemble: ensemble.Config{
			Method:          cfg.Ensemble.Method,
			FallbackToPrior: cfg.Ensemble.FallbackToPrior,
		},
		CalibrationMethod: cfg.Calibration.Method,
		Simulation: simulation.Config{
			Trials:  cfg.Simulation.Trials,
			Seed:    cfg.Simulation.Seed,
			Workers: cfg.Simulation.Workers,
		},
	}
	if len(cfg.Ensemble.Weights) > 0 {
		s.Ensemble.Weights = make(map[models.Source]float64, len(cfg.Ensemble.Weights))
		for name, w := range cfg.Ensemble.Weights {
			s.Ensemble.Weights[models.Source(name)] = w
		}
	}
	return s, s.Validate()
}

// Validate checks every component's settings
func (s Settings) Validate() error {
	if err := s.Rating.Validate(); err != nil {
		return err
	}
	if err := s.Ensemble.Validate(); err != nil {
		return err
	}
	if err := calibration.ValidateMethod(s.CalibrationMethod); err != nil {
		return err
	}
	if len(s.Classifier.Features) == 0 {
		return classifier.ErrNoFeatures
	}
	if s.Prior.Strength < 0 {
		return fmt.Errorf("prior strength cannot be negative, got %v", s.Prior.Strength)
	}
	return nil
}

// SaveArtifact writes the artifact as indented JSON
func SaveArtifact(path string, a *Artifact) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create artifact dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads an artifact written by SaveArtifact
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	if a.Calibration == nil {
		a.Calibration = calibration.Identity()
	}
	return &a, nil
}

// Record converts the artifact into its persisted form
func (a *Artifact) Record() (*models.ArtifactRecord, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact: %w", err)
	}
	return &models.ArtifactRecord{
		ID:        a.ID,
		Name:      a.Name,
		Cutoff:    a.Cutoff,
		Seasons:   append([]int(nil), a.Seasons...),
		Payload:   payload,
		TrainedAt: a.TrainedAt,
	}, nil
}

// ArtifactFromRecord decodes a persisted artifact
func ArtifactFromRecord(rec *models.ArtifactRecord) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(rec.Payload, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", rec.ID, err)
	}
	if a.Calibration == nil {
		a.Calibration = calibration.Identity()
	}
	return &a, nil
}

// FileName returns a stable file name for the artifact
func (a *Artifact) FileName() string {
	return fmt.Sprintf("%s-%s.json", a.Cutoff.Format("2006-01-02"), a.ID)
}
