package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/models"
)

func TestPlan_Expanding(t *testing.T) {
	folds, err := Plan(BacktestConfig{Protocol: ProtocolExpanding, Seasons: []int{2019, 2017, 2018}})
	require.NoError(t, err)
	require.Len(t, folds, 2)

	assert.Equal(t, 2018, folds[0].Season)
	assert.Equal(t, []int{2017}, folds[0].Train)
	assert.Equal(t, 2019, folds[1].Season)
	assert.Equal(t, []int{2017, 2018}, folds[1].Train)
	assert.True(t, folds[1].Cutoff.Equal(dates.SelectionSunday(2019)))
}

func TestPlan_Fixed(t *testing.T) {
	folds, err := Plan(BacktestConfig{Protocol: ProtocolFixed, Seasons: []int{2016, 2017, 2018, 2019}, Window: 2})
	require.NoError(t, err)
	require.Len(t, folds, 2)
	for _, f := range folds {
		assert.Equal(t, []int{2016, 2017}, f.Train)
	}
	assert.Equal(t, 2018, folds[0].Season)
	assert.Equal(t, 2019, folds[1].Season)

	_, err = Plan(BacktestConfig{Protocol: ProtocolFixed, Seasons: []int{2018, 2019}, Window: 2})
	assert.Error(t, err)
}

func TestPlan_TrainsOnlyOnEarlierSeasons(t *testing.T) {
	for _, protocol := range []string{ProtocolExpanding, ProtocolFixed} {
		folds, err := Plan(BacktestConfig{Protocol: protocol, Seasons: []int{2015, 2016, 2017, 2018, 2019}, Window: 3})
		require.NoError(t, err)
		for _, f := range folds {
			for _, s := range f.Train {
				assert.Less(t, s, f.Season, "%s fold %d", protocol, f.Season)
			}
		}
	}
}

func TestPlan_LOSORefused(t *testing.T) {
	_, err := Plan(BacktestConfig{Protocol: ProtocolLOSO, Seasons: []int{2018, 2019}})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrLeakage)
}

func TestBacktestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  BacktestConfig
	}{
		{name: "unknown protocol", cfg: BacktestConfig{Protocol: "random", Seasons: []int{2018, 2019}}},
		{name: "one season", cfg: BacktestConfig{Protocol: ProtocolExpanding, Seasons: []int{2019}}},
		{name: "fixed without window", cfg: BacktestConfig{Protocol: ProtocolFixed, Seasons: []int{2018, 2019}}},
		{name: "negative points", cfg: BacktestConfig{Protocol: ProtocolExpanding, Seasons: []int{2018, 2019}, Points: []int{1, -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
	assert.NoError(t, BacktestConfig{Protocol: ProtocolLOSO, Seasons: []int{2018, 2019}}.Validate())
}
