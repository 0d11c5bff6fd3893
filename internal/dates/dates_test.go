package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionSunday(t *testing.T) {
	tests := []struct {
		season int
		want   string
	}{
		{2019, "2019-03-17"},
		{2021, "2021-03-14"},
		{2023, "2023-03-12"},
		{2024, "2024-03-17"},
		{2025, "2025-03-16"},
	}

	for _, tt := range tests {
		got := SelectionSunday(tt.season)
		assert.Equal(t, tt.want, FormatDate(got))
		assert.Equal(t, time.Sunday, got.Weekday())
	}
}

func TestSeasonOf(t *testing.T) {
	assert.Equal(t, 2019, SeasonOf(MustParseDate("2018-11-06")))
	assert.Equal(t, 2019, SeasonOf(MustParseDate("2019-03-17")))
	assert.Equal(t, 2019, SeasonOf(MustParseDate("2019-07-31")))
	assert.Equal(t, 2020, SeasonOf(MustParseDate("2019-08-01")))
}

func TestSeasonBounds(t *testing.T) {
	for _, season := range []int{2019, 2024} {
		assert.Equal(t, season, SeasonOf(SeasonStart(season)))
		assert.Equal(t, season, SeasonOf(SeasonEnd(season)))
		assert.True(t, SelectionSunday(season).Before(SeasonEnd(season)))
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2019-03-17")
	require.NoError(t, err)
	assert.Equal(t, "2019-03-17", FormatDate(d))

	_, err = ParseDate("03/17/2019")
	assert.Error(t, err)

	assert.Panics(t, func() { MustParseDate("nope") })
}
