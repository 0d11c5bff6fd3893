package backtest

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/evaluation"
	"github.com/yourusername/bracket-forecast/internal/featurestore"
	"github.com/yourusername/bracket-forecast/internal/forecast"
	"github.com/yourusername/bracket-forecast/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testStore() *featurestore.Memory {
	store := featurestore.NewMemoryFromFixture(featurestore.Synthetic(featurestore.SyntheticOptions{
		Seasons:         []int{2017, 2018, 2019},
		Teams:           8,
		GamesPerDay:     2,
		TournamentGames: 8,
		Seed:            11,
	}))
	store.AddGames(tournamentGames()...)
	return store
}

// tournamentGames is a four-team bracket played out in 2019
func tournamentGames() []models.Game {
	semis := dates.SelectionSunday(2019).AddDate(0, 0, 12)
	final := semis.AddDate(0, 0, 2)
	return []models.Game{
		{ID: "semi-a", Season: 2019, Date: semis, HomeTeamID: "T07", AwayTeamID: "T01", HomeScore: 80, AwayScore: 61, Neutral: true},
		{ID: "semi-b", Season: 2019, Date: semis, HomeTeamID: "T05", AwayTeamID: "T02", HomeScore: 58, AwayScore: 66, Neutral: true},
		{ID: "final", Season: 2019, Date: final, HomeTeamID: "T07", AwayTeamID: "T02", HomeScore: 71, AwayScore: 64, Neutral: true},
	}
}

func testBracket() *models.Bracket {
	return &models.Bracket{
		Season: 2019,
		Name:   "final four",
		Nodes: []models.BracketNode{
			{ID: "a1", TeamID: "T07", Seed: 1},
			{ID: "a2", TeamID: "T01", Seed: 4},
			{ID: "b1", TeamID: "T05", Seed: 2},
			{ID: "b2", TeamID: "T02", Seed: 3},
			{ID: "semi-a", Round: 1, Children: []string{"a1", "a2"}},
			{ID: "semi-b", Round: 1, Children: []string{"b1", "b2"}},
			{ID: "final", Round: 2, Children: []string{"semi-a", "semi-b"}},
		},
	}
}

func testSettings() forecast.Settings {
	settings := forecast.DefaultSettings()
	settings.Simulation.Trials = 500
	settings.Simulation.Workers = 2
	return settings
}

func TestEngine_RunExpanding(t *testing.T) {
	bracketDir := t.TempDir()
	data, err := json.Marshal(testBracket())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(bracketDir, "2019.json"), data, 0o644))

	cfg := BacktestConfig{
		Protocol:           ProtocolExpanding,
		Seasons:            []int{2017, 2018, 2019},
		ScoringSystem:      "espn",
		Points:             evaluation.ESPNPoints,
		BracketDir:         bracketDir,
		ReliabilityBuckets: 5,
	}
	engine, err := NewEngine(cfg, testStore(), testSettings(), quietLogger())
	require.NoError(t, err)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Seasons, 2)

	first := result.Seasons[0]
	assert.Equal(t, 2018, first.Season)
	assert.Equal(t, []int{2017}, first.Train)
	assert.Equal(t, 8, first.Games)
	assert.Nil(t, first.Bracket, "no bracket file for 2018")
	assert.Greater(t, first.Brier, 0.0)
	assert.Less(t, first.Brier, 1.0)

	second := result.Seasons[1]
	assert.Equal(t, 2019, second.Season)
	assert.Equal(t, 11, second.Games)
	require.NotNil(t, second.Bracket)
	assert.Equal(t, 3, second.Bracket.Games)
	assert.Equal(t, 10+10+20, second.MaxPoints)
	assert.NotEmpty(t, second.Champion)
	assert.Greater(t, second.ChampionProbability, 0.0)

	assert.Equal(t, 2, result.Summary.Seasons)
	assert.Equal(t, 19, result.Summary.Games)
	assert.InDelta(t, (first.Brier+second.Brier)/2, result.Summary.MeanBrier, 1e-12)
	require.NotNil(t, result.Summary.MeanPoints)
	assert.Equal(t, float64(second.Bracket.Points), *result.Summary.MeanPoints)
}

func TestEngine_LOSOFails(t *testing.T) {
	engine, err := NewEngine(BacktestConfig{Protocol: ProtocolLOSO, Seasons: []int{2018, 2019}}, testStore(), testSettings(), quietLogger())
	require.NoError(t, err)

	_, err = engine.Run(context.Background())
	assert.ErrorIs(t, err, models.ErrLeakage)
}

func TestEngine_Cancelled(t *testing.T) {
	engine, err := NewEngine(BacktestConfig{Protocol: ProtocolExpanding, Seasons: []int{2018, 2019}}, testStore(), testSettings(), quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRealizedWinners(t *testing.T) {
	truth := RealizedWinners(testBracket(), tournamentGames())
	assert.Equal(t, map[string]string{
		"semi-a": "T07",
		"semi-b": "T02",
		"final":  "T07",
	}, truth)

	partial := RealizedWinners(testBracket(), tournamentGames()[:1])
	assert.Equal(t, map[string]string{"semi-a": "T07"}, partial)
}

func TestSummarize(t *testing.T) {
	auc := 0.7
	seasons := []SeasonResult{
		{Fold: Fold{Season: 2018}, Games: 10, Brier: 0.20, LogLoss: 0.60, AUC: &auc},
		{Fold: Fold{Season: 2019}, Games: 10, Brier: 0.10, LogLoss: 0.40, Bracket: &evaluation.BracketScore{Points: 50}},
		{Fold: Fold{Season: 2020}},
	}
	sum := Summarize(seasons)

	assert.Equal(t, 3, sum.Seasons)
	assert.Equal(t, 20, sum.Games)
	assert.InDelta(t, 0.15, sum.MeanBrier, 1e-12)
	assert.InDelta(t, 0.50, sum.MeanLogLoss, 1e-12)
	require.NotNil(t, sum.MeanAUC)
	assert.InDelta(t, 0.7, *sum.MeanAUC, 1e-12)
	require.NotNil(t, sum.MeanPoints)
	assert.Equal(t, 50.0, *sum.MeanPoints)
	assert.Equal(t, 2019, sum.BestBrierSeason)
	assert.Equal(t, 2018, sum.WorstBrierSeason)
}

func TestReports(t *testing.T) {
	auc := 0.66
	result := &Result{
		Protocol:      ProtocolExpanding,
		ScoringSystem: "espn",
		Seasons: []SeasonResult{
			{Fold: Fold{Season: 2019, Train: []int{2017, 2018}}, Games: 4, Brier: 0.2, LogLoss: 0.6, AUC: &auc},
		},
	}
	result.Summary = Summarize(result.Seasons)

	report := GenerateConsoleReport(result)
	assert.Contains(t, report, "2017-2018")
	assert.Contains(t, report, "0.6600")

	dir := t.TempDir()
	jsonPath, csvPath := ExportPaths(dir, result)
	require.NoError(t, ExportToJSON(result, jsonPath))
	require.NoError(t, GenerateCSVExport(result, csvPath))

	csv, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	assert.Len(t, lines, 2)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2019, decoded.Seasons[0].Season)
}
