package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats a backtest for terminal output
func GenerateConsoleReport(result *Result) string {
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Protocol: %s\n", result.Protocol))
	builder.WriteString(fmt.Sprintf("Scoring: %s\n\n", result.ScoringSystem))
	builder.WriteString(fmt.Sprintf("%-8s %-18s %6s %8s %8s %8s %10s\n", "season", "trained on", "games", "brier", "logloss", "auc", "points"))
	for _, s := range result.Seasons {
		auc, points := "n/a", "-"
		if s.AUC != nil {
			auc = fmt.Sprintf("%.4f", *s.AUC)
		}
		if s.Bracket != nil {
			points = fmt.Sprintf("%d/%d", s.Bracket.Points, s.MaxPoints)
		}
		builder.WriteString(fmt.Sprintf("%-8d %-18s %6d %8.4f %8.4f %8s %10s\n",
			s.Season, seasonRange(s.Train), s.Games, s.Brier, s.LogLoss, auc, points))
	}

	sum := result.Summary
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Mean Brier: %.4f\n", sum.MeanBrier))
	builder.WriteString(fmt.Sprintf("Mean Log Loss: %.4f\n", sum.MeanLogLoss))
	if sum.MeanAUC != nil {
		builder.WriteString(fmt.Sprintf("Mean AUC: %.4f\n", *sum.MeanAUC))
	}
	if sum.MeanPoints != nil {
		builder.WriteString(fmt.Sprintf("Mean Bracket Points: %.1f\n", *sum.MeanPoints))
	}
	return builder.String()
}

// GenerateCSVExport exports one row per season for spreadsheets
func GenerateCSVExport(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	var builder strings.Builder
	builder.WriteString("season,train_seasons,games,brier,log_loss,auc,bracket_points,max_points\n")
	for _, s := range result.Seasons {
		auc, points := "", ""
		if s.AUC != nil {
			auc = fmt.Sprintf("%.6f", *s.AUC)
		}
		if s.Bracket != nil {
			points = fmt.Sprintf("%d", s.Bracket.Points)
		}
		builder.WriteString(fmt.Sprintf("%d,%s,%d,%.6f,%.6f,%s,%s,%d\n",
			s.Season, seasonRange(s.Train), s.Games, s.Brier, s.LogLoss, auc, points, s.MaxPoints))
	}
	return os.WriteFile(outputPath, []byte(builder.String()), 0o644)
}

// ExportToJSON writes the full result to outputPath
func ExportToJSON(result *Result, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// ExportPaths returns the JSON and CSV paths of a run under dir
func ExportPaths(dir string, result *Result) (jsonPath, csvPath string) {
	base := fmt.Sprintf("backtest-%s-%s", result.Protocol, result.RunID)
	return filepath.Join(dir, base+".json"), filepath.Join(dir, base+".csv")
}

func seasonRange(seasons []int) string {
	switch len(seasons) {
	case 0:
		return "-"
	case 1:
		return fmt.Sprintf("%d", seasons[0])
	default:
		return fmt.Sprintf("%d-%d", seasons[0], seasons[len(seasons)-1])
	}
}
