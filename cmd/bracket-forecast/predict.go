package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPredictCmd() *cobra.Command {
	var (
		artifactPath string
		asOfRaw      string
		home         string
		neutral      bool
	)

	cmd := &cobra.Command{
		Use:   "predict TEAM_A TEAM_B",
		Short: "Estimate the probability that TEAM_A beats TEAM_B",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			teamA, teamB := args[0], args[1]

			asOf, err := parseDateFlag("asof", asOfRaw)
			if err != nil {
				return err
			}

			// The rating model treats teamA as home when the game is not neutral.
			if !neutral && home != "" && home != teamA {
				if home != teamB {
					return fmt.Errorf("--home must be %s or %s", teamA, teamB)
				}
				teamA, teamB = teamB, teamA
			}

			artifact, err := resolveArtifact(ctx, artifactPath)
			if err != nil {
				return err
			}
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			predictor := newPredictor(store)
			prediction, err := predictor.Predict(ctx, artifact, teamA, teamB, asOf, neutral)
			if err != nil {
				return err
			}
			if teamA != args[0] {
				prediction = prediction.Reversed()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(prediction)
		},
	}

	cmd.Flags().StringVarP(&artifactPath, "artifact", "a", "", "Artifact file; defaults to the active artifact")
	cmd.Flags().StringVar(&asOfRaw, "asof", "", "Forecast date YYYY-MM-DD")
	cmd.Flags().StringVar(&home, "home", "", "Home team when the game is not neutral; defaults to TEAM_A")
	cmd.Flags().BoolVar(&neutral, "neutral", true, "Neutral-site game")
	cmd.MarkFlagRequired("asof")
	return cmd
}
