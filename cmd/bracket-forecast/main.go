// Package main provides the bracket-forecast command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/bracket-forecast/internal/config"
	"github.com/yourusername/bracket-forecast/internal/database"
	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/featurestore"
	"github.com/yourusername/bracket-forecast/internal/forecast"
	"github.com/yourusername/bracket-forecast/internal/logger"
	"github.com/yourusername/bracket-forecast/internal/metrics"
	"github.com/yourusername/bracket-forecast/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	logLevel   string
	log        *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newPredictCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newInitDBCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newVersionCmd())
}

var rootCmd = &cobra.Command{
	Use:           "bracket-forecast",
	Short:         "Forecast single-elimination tournaments",
	Long:          `Trains matchup models on historical games, forecasts matchups and simulates brackets without reading data dated after the forecast date.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		metrics.InitRegistry()
		return nil
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context) error {
	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if enabled, region, secretName := config.SecretsSettingsFromEnv(); enabled {
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, loaded, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if logLevel != "" {
		loaded.App.LogLevel = logLevel
	}
	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = loaded
	log = logger.NewLoggerFor(cfg.App.LogLevel, cfg.App.Environment)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bracket-forecast %s (%s)\n", Version, GitCommit)
		},
	}
}

func settings() (forecast.Settings, error) {
	return forecast.SettingsFromConfig(cfg)
}

func openStore(ctx context.Context) (*featurestore.Store, error) {
	store, err := featurestore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature store: %w", err)
	}
	return store, nil
}

// openRepositories stores artifacts in PostgreSQL when the feature store
// already uses it, and in the artifact directory otherwise.
// The returned DB is nil when artifacts live on disk.
func openRepositories(ctx context.Context) (*repository.Repositories, *database.DB, func(), error) {
	if cfg.UsesPostgres() {
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		repos, err := repository.NewRepositories(db)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return repos, db, db.Close, nil
	}

	repos, err := repository.NewFileRepositories(filepath.Join(cfg.Schedule.ArtifactDir, "records"))
	if err != nil {
		return nil, nil, nil, err
	}
	return repos, nil, func() {}, nil
}

// resolveArtifact loads the artifact at path, or the active one when path is empty
func resolveArtifact(ctx context.Context, path string) (*forecast.Artifact, error) {
	if path != "" {
		return forecast.LoadArtifact(path)
	}

	repos, _, closeRepos, err := openRepositories(ctx)
	if err != nil {
		return nil, err
	}
	defer closeRepos()

	rec, err := repos.Artifact.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("no --artifact given and no active artifact: %w", err)
	}
	return forecast.ArtifactFromRecord(rec)
}

func parseDateFlag(name, value string) (time.Time, error) {
	t, err := dates.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}

func parseSeasons(raw []string) ([]int, error) {
	var seasons []int
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if lo, hi, ok := strings.Cut(part, "-"); ok {
				start, err1 := strconv.Atoi(lo)
				end, err2 := strconv.Atoi(hi)
				if err1 != nil || err2 != nil || end < start {
					return nil, fmt.Errorf("invalid season range %q", part)
				}
				for s := start; s <= end; s++ {
					seasons = append(seasons, s)
				}
				continue
			}
			season, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid season %q", part)
			}
			seasons = append(seasons, season)
		}
	}
	return seasons, nil
}

func newPredictor(store *featurestore.Store) *forecast.Predictor {
	return forecast.NewPredictor(store, log, cfg.CacheTTL(), cfg.Simulation.Workers)
}
