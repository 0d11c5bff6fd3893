package featurestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/bracket-forecast/internal/models"
)

// Memory is an in-memory Reader backed by fixture data
type Memory struct {
	mu       sync.RWMutex
	games    map[int][]models.Game
	features map[int]map[string][]models.FeatureVector
	nextSeq  int64
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		games:    make(map[int][]models.Game),
		features: make(map[int]map[string][]models.FeatureVector),
	}
}

// NewMemoryFromFixture creates a store holding the fixture's data
func NewMemoryFromFixture(f *Fixture) *Memory {
	m := NewMemory()
	m.AddGames(f.Games...)
	m.AddFeatures(f.Features...)
	return m
}

// AddGames stores games. Games without a Seq are numbered in insertion order.
func (m *Memory) AddGames(games ...models.Game) {
	m.mu.Lock()
	defer m.mu.Unlock()

	touched := make(map[int]bool)
	for _, g := range games {
		m.nextSeq++
		if g.Seq == 0 {
			g.Seq = m.nextSeq
		}
		m.games[g.Season] = append(m.games[g.Season], g)
		touched[g.Season] = true
	}
	for season := range touched {
		models.SortGames(m.games[season])
	}
}

// AddFeatures stores feature vectors
func (m *Memory) AddFeatures(vectors ...models.FeatureVector) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, fv := range vectors {
		bySeason, ok := m.features[fv.Season]
		if !ok {
			bySeason = make(map[string][]models.FeatureVector)
			m.features[fv.Season] = bySeason
		}
		list := append(bySeason[fv.TeamID], fv)
		sort.SliceStable(list, func(i, j int) bool { return list[i].AsOf.Before(list[j].AsOf) })
		bySeason[fv.TeamID] = list
	}
}

// Games implements Reader
func (m *Memory) Games(ctx context.Context, season int, upTo time.Time) ([]models.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Game
	for _, g := range m.games[season] {
		if g.Date.After(upTo) {
			break
		}
		out = append(out, g)
	}
	return out, nil
}

// Features implements Reader
func (m *Memory) Features(ctx context.Context, season int, asOf time.Time) (map[string]models.FeatureVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]models.FeatureVector)
	for teamID, list := range m.features[season] {
		idx := sort.Search(len(list), func(i int) bool { return list[i].AsOf.After(asOf) })
		if idx == 0 {
			continue
		}
		out[teamID] = list[idx-1]
	}
	return out, nil
}

// Seasons returns the seasons with at least one game, sorted
func (m *Memory) Seasons() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seasons := make([]int, 0, len(m.games))
	for s := range m.games {
		seasons = append(seasons, s)
	}
	sort.Ints(seasons)
	return seasons
}
