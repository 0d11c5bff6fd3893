package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/bracket-forecast/internal/backtest"
)

func newBacktestCmd() *cobra.Command {
	var (
		protocol   string
		seasonsRaw []string
		window     int
		system     string
		bracketDir string
		exportDir  string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Train and score the pipeline season by season",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			seasons, err := parseSeasons(seasonsRaw)
			if err != nil {
				return err
			}
			if len(seasons) > 0 {
				cfg.Backtest.Seasons = seasons
			}
			if protocol != "" {
				cfg.Backtest.Protocol = protocol
			}
			if cmd.Flags().Changed("window") {
				cfg.Backtest.Window = window
			}
			if system != "" {
				cfg.Backtest.ScoringSystem = system
			}
			if bracketDir != "" {
				cfg.Backtest.BracketDir = bracketDir
			}
			if exportDir != "" {
				cfg.Backtest.ExportDir = exportDir
			}

			btConfig, err := backtest.FromConfig(cfg)
			if err != nil {
				return fmt.Errorf("invalid backtest configuration: %w", err)
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

			engine, err := backtest.NewEngine(btConfig, store, s, log)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"protocol": btConfig.Protocol,
				"seasons":  btConfig.Seasons,
			}).Info("Starting backtest")

			result, err := engine.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), backtest.GenerateConsoleReport(result))

			if btConfig.ExportDir != "" {
				jsonPath, csvPath := backtest.ExportPaths(btConfig.ExportDir, result)
				if err := backtest.ExportToJSON(result, jsonPath); err != nil {
					return err
				}
				if err := backtest.GenerateCSVExport(result, csvPath); err != nil {
					return err
				}
				log.WithFields(logrus.Fields{"json": jsonPath, "csv": csvPath}).Info("Backtest exported")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&protocol, "protocol", "", "expanding, fixed or loso")
	cmd.Flags().StringSliceVar(&seasonsRaw, "seasons", nil, "Seasons to evaluate, e.g. 2012-2019")
	cmd.Flags().IntVar(&window, "window", 0, "Training seasons for the fixed protocol")
	cmd.Flags().StringVar(&system, "scoring", "", "Bracket scoring system name")
	cmd.Flags().StringVar(&bracketDir, "brackets", "", "Directory of <season>.json bracket files")
	cmd.Flags().StringVar(&exportDir, "export", "", "Directory for JSON and CSV exports")
	return cmd
}
