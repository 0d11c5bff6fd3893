package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/bracket-forecast/internal/forecast"
)

func TestParseSeasons(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    []int
		wantErr bool
	}{
		{name: "empty", raw: nil, want: nil},
		{name: "list", raw: []string{"2017,2019"}, want: []int{2017, 2019}},
		{name: "range", raw: []string{"2016-2018"}, want: []int{2016, 2017, 2018}},
		{name: "mixed flags", raw: []string{"2012", "2015-2016"}, want: []int{2012, 2015, 2016}},
		{name: "reversed range", raw: []string{"2019-2017"}, wantErr: true},
		{name: "not a number", raw: []string{"twenty"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSeasons(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

const testConfig = `app:
  name: bracket-forecast
  environment: development
  log_level: error
feature_store:
  driver: memory
  path: %DIR%/fixture.json
  cache_ttl_seconds: 60
training:
  seasons: [2018, 2019]
  cutoff: "2019-03-17"
simulation:
  trials: 200
  seed: 9
  workers: 2
schedule:
  artifact_dir: %DIR%/artifacts
`

const testBracketJSON = `{
  "season": 2019,
  "name": "final four",
  "nodes": [
    {"id": "a1", "round": 0, "team_id": "T07", "seed": 1},
    {"id": "a2", "round": 0, "team_id": "T01", "seed": 4},
    {"id": "b1", "round": 0, "team_id": "T05", "seed": 2},
    {"id": "b2", "round": 0, "team_id": "T02", "seed": 3},
    {"id": "semi-a", "round": 1, "children": ["a1", "a2"]},
    {"id": "semi-b", "round": 1, "children": ["b1", "b2"]},
    {"id": "final", "round": 2, "children": ["semi-a", "semi-b"]}
  ]
}`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "bracket-forecast %v", args)
	return out.String()
}

func TestCommands_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := bytes.ReplaceAll([]byte(testConfig), []byte("%DIR%"), []byte(dir))
	require.NoError(t, os.WriteFile(configPath, content, 0o644))

	bracketPath := filepath.Join(dir, "bracket.json")
	require.NoError(t, os.WriteFile(bracketPath, []byte(testBracketJSON), 0o644))

	execute(t, "init-db", "-c", configPath, "--synthetic", "--seasons", "2018-2019", "--teams", "8", "--seed", "3")
	_, err := os.Stat(filepath.Join(dir, "fixture.json"))
	require.NoError(t, err)

	artifactPath := filepath.Join(dir, "model.json")
	out := execute(t, "train", "-c", configPath, "-o", artifactPath)
	assert.Contains(t, out, artifactPath)

	artifact, err := forecast.LoadArtifact(artifactPath)
	require.NoError(t, err)
	assert.Equal(t, []int{2018, 2019}, artifact.Seasons)

	out = execute(t, "predict", "-c", configPath, "--asof", "2019-03-18", "T06", "T01")
	var prediction forecast.Prediction
	require.NoError(t, json.Unmarshal([]byte(out), &prediction))
	assert.Equal(t, "T06", prediction.TeamA)
	assert.Greater(t, prediction.Probability, 0.0)
	assert.Less(t, prediction.Probability, 1.0)

	out = execute(t, "simulate", "-c", configPath, "-a", artifactPath, "-b", bracketPath)
	assert.Contains(t, out, "Champ")
	assert.Contains(t, out, "200 trials, seed 9")
}
