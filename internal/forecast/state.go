package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/featurestore"
	"github.com/yourusername/bracket-forecast/internal/features"
	"github.com/yourusername/bracket-forecast/internal/models"
	"github.com/yourusername/bracket-forecast/internal/rating"
)

// EloDiffFeature is the rating difference column fed to the classifier
const EloDiffFeature = "elo_diff"

// openingBook returns the season's book before its first game. When the
// rating config keeps part of last season's strength, the previous season is
// folded and carried over.
func openingBook(ctx context.Context, reader featurestore.Reader, cfg rating.Config, season int, upTo time.Time) (*rating.Book, error) {
	if cfg.PreseasonRegress >= 1 {
		return rating.NewBook(season, upTo, cfg), nil
	}

	prevEnd := dates.SeasonEnd(season - 1)
	if prevEnd.After(upTo) {
		prevEnd = upTo
	}
	prevGames, err := reader.Games(ctx, season-1, prevEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to read season %d games: %w", season-1, err)
	}
	if len(prevGames) == 0 {
		return rating.NewBook(season, upTo, cfg), nil
	}
	prev, err := rating.Fold(prevGames, season-1, prevEnd, cfg)
	if err != nil {
		return nil, err
	}
	return prev.Carryover(season, upTo), nil
}

// seasonBook folds a season's games dated on or before upTo
func seasonBook(ctx context.Context, reader featurestore.Reader, cfg rating.Config, season int, upTo time.Time) (*rating.Book, []models.Game, error) {
	book, err := openingBook(ctx, reader, cfg, season, upTo)
	if err != nil {
		return nil, nil, err
	}
	games, err := reader.Games(ctx, season, upTo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read season %d games: %w", season, err)
	}
	for i := range games {
		if err := book.Apply(games[i]); err != nil {
			return nil, nil, err
		}
	}
	return book, games, nil
}

// eloDiff is team A's rating edge including home advantage. home is the home
// team's ID, or empty at a neutral site.
func eloDiff(ratingA, ratingB float64, teamA, home string, cfg rating.Config) float64 {
	diff := ratingA - ratingB
	switch home {
	case "":
	case teamA:
		diff += cfg.HomeAdv
	default:
		diff -= cfg.HomeAdv
	}
	return diff
}

// ratingProbability is P(team A beats team B) with home taken into account
func ratingProbability(ratingA, ratingB float64, teamA, home string, cfg rating.Config) float64 {
	switch home {
	case "":
		return rating.Predict(ratingA, ratingB, true, cfg)
	case teamA:
		return rating.Predict(ratingA, ratingB, false, cfg)
	default:
		return 1 - rating.Predict(ratingB, ratingA, false, cfg)
	}
}

// matchupDiff builds the classifier input for team A against team B. The
// error is a *models.MissingFeatureError naming the team without a vector.
func matchupDiff(vectors map[string]models.FeatureVector, teamA, teamB string, elo float64) (features.Diff, error) {
	a, ok := vectors[teamA]
	if !ok {
		return nil, &models.MissingFeatureError{TeamID: teamA}
	}
	b, ok := vectors[teamB]
	if !ok {
		return nil, &models.MissingFeatureError{TeamID: teamB}
	}
	diff := features.Matchup(a, b)
	diff[EloDiffFeature] = elo
	return diff, nil
}
