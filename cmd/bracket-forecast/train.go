package main

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/bracket-forecast/internal/forecast"
	"github.com/yourusername/bracket-forecast/internal/logger"
)

func newTrainCmd() *cobra.Command {
	var (
		seasonsRaw []string
		cutoffRaw  string
		name       string
		output     string
		activate   bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train an artifact on seasons up to a cutoff date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			seasons, err := parseSeasons(seasonsRaw)
			if err != nil {
				return err
			}
			if len(seasons) == 0 {
				seasons = cfg.Training.Seasons
			}

			cutoff, err := cfg.TrainingCutoff()
			if err != nil {
				return err
			}
			if cutoffRaw != "" {
				if cutoff, err = parseDateFlag("cutoff", cutoffRaw); err != nil {
					return err
				}
			}

			s, err := settings()
			if err != nil {
				return err
			}
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			artifact, err := forecast.NewTrainer(store, s, log).Train(ctx, forecast.TrainRequest{
				Name:    name,
				Seasons: seasons,
				Cutoff:  cutoff,
			})
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(cfg.Schedule.ArtifactDir, artifact.FileName())
			}
			if err := forecast.SaveArtifact(output, artifact); err != nil {
				return err
			}

			audit := logger.NewAuditLogger(log)
			audit.LogArtifactSaved(artifact.ID.String(), artifact.Name, output, artifact.Cutoff, artifact.Seasons)

			repos, _, closeRepos, err := openRepositories(ctx)
			if err != nil {
				return err
			}
			defer closeRepos()

			rec, err := artifact.Record()
			if err != nil {
				return err
			}
			if err := repos.Artifact.Create(ctx, rec); err != nil {
				return fmt.Errorf("failed to store artifact: %w", err)
			}
			if activate {
				if err := repos.Artifact.SetActive(ctx, artifact.ID); err != nil {
					return err
				}
				audit.LogArtifactActivated(artifact.ID.String(), artifact.Name, artifact.Cutoff)
			}

			log.WithFields(logrus.Fields{
				"artifact_id": artifact.ID,
				"path":        output,
				"active":      activate,
			}).Info("Training complete")
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&seasonsRaw, "seasons", nil, "Seasons to train on, e.g. 2015-2019 or 2017,2018")
	cmd.Flags().StringVar(&cutoffRaw, "cutoff", "", "Cutoff date YYYY-MM-DD; no data after it is read")
	cmd.Flags().StringVar(&name, "name", "", "Artifact name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Artifact output path")
	cmd.Flags().BoolVar(&activate, "activate", true, "Mark the artifact active for predict and simulate")
	return cmd
}
