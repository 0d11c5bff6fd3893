// Package config provides configuration management for the bracket forecasting engine.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database"`
	FeatureStore FeatureStoreConfig `mapstructure:"feature_store" validate:"required"`
	Rating       RatingConfig       `mapstructure:"rating" validate:"required"`
	Classifier   ClassifierConfig   `mapstructure:"classifier" validate:"required"`
	Prior        PriorConfig        `mapstructure:"prior"`
	Ensemble     EnsembleConfig     `mapstructure:"ensemble" validate:"required"`
	Calibration  CalibrationConfig  `mapstructure:"calibration" validate:"required"`
	Simulation   SimulationConfig   `mapstructure:"simulation" validate:"required"`
	Training     TrainingConfig     `mapstructure:"training"`
	Backtest     BacktestConfig     `mapstructure:"backtest"`
	Scoring      ScoringConfig      `mapstructure:"scoring"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Schedule     ScheduleConfig     `mapstructure:"schedule"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration. It is only
// required when the feature store or artifact repository uses PostgreSQL.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// FeatureStoreConfig selects where games and team features are read from
type FeatureStoreConfig struct {
	Driver          string `mapstructure:"driver" validate:"required,oneof=memory postgres sqlite"`
	Path            string `mapstructure:"path"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// RatingConfig represents Elo parameters
type RatingConfig struct {
	KBase            float64 `mapstructure:"k_base" validate:"required,gt=0"`
	HomeAdv          float64 `mapstructure:"home_adv" validate:"gte=0"`
	Baseline         float64 `mapstructure:"baseline" validate:"required"`
	Scale            float64 `mapstructure:"scale" validate:"required,gt=0"`
	PreseasonRegress float64 `mapstructure:"preseason_regress" validate:"gte=0,lte=1"`
}

// ClassifierConfig represents logistic regression parameters
type ClassifierConfig struct {
	Features      []string `mapstructure:"features" validate:"required,min=1,dive,required"`
	C             float64  `mapstructure:"c" validate:"required,gt=0"`
	MaxIterations int      `mapstructure:"max_iterations" validate:"required,gt=0"`
	Standardize   bool     `mapstructure:"standardize"`
}

// PriorConfig represents Bayesian prior parameters
type PriorConfig struct {
	Strength float64 `mapstructure:"strength" validate:"gte=0"`
}

// EnsembleConfig represents blend parameters
type EnsembleConfig struct {
	Method          string             `mapstructure:"method" validate:"required,ensemblemethod"`
	Weights         map[string]float64 `mapstructure:"weights" validate:"dive,gte=0"`
	FallbackToPrior bool               `mapstructure:"fallback_to_prior"`
}

// CalibrationConfig represents calibration parameters
type CalibrationConfig struct {
	Method string `mapstructure:"method" validate:"required,calibrationmethod"`
}

// SimulationConfig represents Monte Carlo parameters
type SimulationConfig struct {
	Trials  int    `mapstructure:"trials" validate:"required,gt=0"`
	Seed    uint64 `mapstructure:"seed"`
	Workers int    `mapstructure:"workers" validate:"gte=0"`
}

// TrainingConfig selects the seasons and cutoff of a training run
type TrainingConfig struct {
	Seasons []int  `mapstructure:"seasons" validate:"dive,gt=0"`
	Cutoff  string `mapstructure:"cutoff" validate:"omitempty,datetime"`
}

// BacktestConfig represents season-by-season evaluation settings
type BacktestConfig struct {
	Protocol      string `mapstructure:"protocol" validate:"omitempty,protocol"`
	Seasons       []int  `mapstructure:"seasons" validate:"dive,gt=0"`
	Window        int    `mapstructure:"window" validate:"gte=0"`
	ScoringSystem string `mapstructure:"scoring_system"`
	BracketDir    string `mapstructure:"bracket_dir"`
	ExportDir     string `mapstructure:"export_dir"`
}

// ScoringConfig maps a scoring system name to its per-round points
type ScoringConfig struct {
	Systems map[string][]int `mapstructure:"systems"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// ScheduleConfig represents the retraining schedule
type ScheduleConfig struct {
	RetrainCron string `mapstructure:"retrain_cron"`
	ArtifactDir string `mapstructure:"artifact_dir"`
	Activate    bool   `mapstructure:"activate"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesPostgres reports whether any component needs the database
func (c *Config) UsesPostgres() bool {
	return c.FeatureStore.Driver == "postgres"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// TrainingCutoff returns the parsed training cutoff, or the zero time when unset
func (c *Config) TrainingCutoff() (time.Time, error) {
	if c.Training.Cutoff == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, c.Training.Cutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid training cutoff: %w", err)
	}
	return t, nil
}

// ScoringPoints returns the per-round points of the named system. An unknown
// or empty name yields nil, which scores one point per correct pick.
func (c *Config) ScoringPoints(system string) []int {
	return c.Scoring.Systems[system]
}

// CacheTTL returns the feature cache lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.FeatureStore.CacheTTLSeconds) * time.Second
}
