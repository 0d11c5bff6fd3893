package featurestore

import (
	"context"
	"time"

	"github.com/yourusername/bracket-forecast/internal/leakage"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// Guarded wraps a Reader and rejects any record dated after the requested
// date. A misbehaving backend surfaces as a *models.LeakageError instead of
// silently contaminating an estimate.
type Guarded struct {
	next Reader
}

// NewGuarded wraps next
func NewGuarded(next Reader) *Guarded {
	return &Guarded{next: next}
}

// Games implements Reader
func (g *Guarded) Games(ctx context.Context, season int, upTo time.Time) ([]models.Game, error) {
	games, err := g.next.Games(ctx, season, upTo)
	if err != nil {
		return nil, err
	}
	if err := leakage.CheckGames(games, upTo); err != nil {
		return nil, err
	}
	return games, nil
}

// Features implements Reader
func (g *Guarded) Features(ctx context.Context, season int, asOf time.Time) (map[string]models.FeatureVector, error) {
	vectors, err := g.next.Features(ctx, season, asOf)
	if err != nil {
		return nil, err
	}
	if err := leakage.CheckFeatures(vectors, asOf); err != nil {
		return nil, err
	}
	return vectors, nil
}
