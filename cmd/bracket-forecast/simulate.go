package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/simulation"
)

type simulationReport struct {
	Bracket string             `json:"bracket"`
	Season  int                `json:"season"`
	AsOf    string             `json:"asof"`
	Trials  int                `json:"trials"`
	Seed    uint64             `json:"seed"`
	Teams   []teamOutlook      `json:"teams"`
	Picks   map[string]string  `json:"picks"`
	Result  *simulation.Result `json:"result"`
}

type teamOutlook struct {
	TeamID   string          `json:"team_id"`
	Reach    map[int]float64 `json:"reach"`
	Champion float64         `json:"champion"`
}

func newSimulateCmd() *cobra.Command {
	var (
		artifactPath string
		bracketPath  string
		asOfRaw      string
		trials       int
		seed         uint64
		output       string
		top          int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run Monte Carlo trials of a bracket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			bracket, err := simulation.LoadBracket(bracketPath)
			if err != nil {
				return err
			}

			asOf := dates.SelectionSunday(bracket.Season)
			if asOfRaw != "" {
				if asOf, err = parseDateFlag("asof", asOfRaw); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("trials") {
				trials = cfg.Simulation.Trials
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Simulation.Seed
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

			result, err := newPredictor(store).SimulateBracket(ctx, artifact, bracket, asOf, trials, seed)
			if err != nil {
				return err
			}

			report := buildSimulationReport(bracketPath, bracket.Season, asOf, result)
			if output != "" {
				if err := writeJSON(output, report); err != nil {
					return err
				}
			}
			printSimulationReport(cmd.OutOrStdout(), report, top)
			return nil
		},
	}

	cmd.Flags().StringVarP(&artifactPath, "artifact", "a", "", "Artifact file; defaults to the active artifact")
	cmd.Flags().StringVarP(&bracketPath, "bracket", "b", "", "Bracket JSON file")
	cmd.Flags().StringVar(&asOfRaw, "asof", "", "Forecast date YYYY-MM-DD; defaults to the season's Selection Sunday")
	cmd.Flags().IntVar(&trials, "trials", 10000, "Number of trials")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the full result as JSON")
	cmd.Flags().IntVar(&top, "top", 16, "Teams to print")
	cmd.MarkFlagRequired("bracket")
	return cmd
}

func buildSimulationReport(path string, season int, asOf time.Time, result *simulation.Result) *simulationReport {
	report := &simulationReport{
		Bracket: filepath.Base(path),
		Season:  season,
		AsOf:    dates.FormatDate(asOf),
		Trials:  result.Trials,
		Seed:    result.Seed,
		Picks:   result.Picks(),
		Result:  result,
	}
	for _, team := range result.Teams() {
		outlook := teamOutlook{
			TeamID:   team,
			Reach:    make(map[int]float64, len(result.Rounds)),
			Champion: result.ChampionProbability(team),
		}
		for _, round := range result.Rounds {
			outlook.Reach[round] = result.ReachProbability(team, round)
		}
		report.Teams = append(report.Teams, outlook)
	}
	sort.SliceStable(report.Teams, func(i, j int) bool {
		return report.Teams[i].Champion > report.Teams[j].Champion
	})
	return report
}

func printSimulationReport(w io.Writer, report *simulationReport, top int) {
	fmt.Fprintf(w, "\nBracket %s (season %d) as of %s: %d trials, seed %d\n\n",
		report.Bracket, report.Season, report.AsOf, report.Trials, report.Seed)

	fmt.Fprintf(w, "%-12s", "Team")
	for _, round := range report.Result.Rounds {
		fmt.Fprintf(w, " %8s", fmt.Sprintf("R%d", round))
	}
	fmt.Fprintf(w, " %8s\n", "Champ")

	for i, team := range report.Teams {
		if top > 0 && i >= top {
			break
		}
		fmt.Fprintf(w, "%-12s", team.TeamID)
		for _, round := range report.Result.Rounds {
			fmt.Fprintf(w, " %7.1f%%", team.Reach[round]*100)
		}
		fmt.Fprintf(w, " %7.1f%%\n", team.Champion*100)
	}
	fmt.Fprintln(w)
}

func writeJSON(path string, v interface{}) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
