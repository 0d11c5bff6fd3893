package rating

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/bracket-forecast/internal/leakage"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// Checkpoint is a team's rating after a game
type Checkpoint struct {
	Date   time.Time `json:"date"`
	Rating float64   `json:"rating"`
	GameID string    `json:"game_id"`
}

// Book tracks every team's rating trajectory for one season
type Book struct {
	cfg     Config
	season  int
	cutoff  time.Time
	seeds   map[string]float64
	history map[string][]Checkpoint
	last    *models.Game
	applied int
}

// NewBook creates an empty rating book. Games dated after cutoff are rejected.
func NewBook(season int, cutoff time.Time, cfg Config) *Book {
	return &Book{
		cfg:     cfg,
		season:  season,
		cutoff:  cutoff,
		seeds:   make(map[string]float64),
		history: make(map[string][]Checkpoint),
	}
}

// Fold applies games in order and returns the resulting book
func Fold(games []models.Game, season int, cutoff time.Time, cfg Config) (*Book, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	book := NewBook(season, cutoff, cfg)
	for i := range games {
		if err := book.Apply(games[i]); err != nil {
			return nil, err
		}
	}
	return book, nil
}

// Apply folds one game into the book
func (b *Book) Apply(g models.Game) error {
	if err := leakage.CheckRecord(leakage.RecordGame+" "+g.ID, g.Date, b.cutoff); err != nil {
		return err
	}
	if g.Season != b.season {
		return fmt.Errorf("%w: game %s is season %d, book is %d", ErrSeasonMismatch, g.ID, g.Season, b.season)
	}
	if err := g.Validate(); err != nil {
		return err
	}
	if b.last != nil && g.Before(b.last) {
		return fmt.Errorf("%w: game %s (%s) after game %s (%s)", ErrNotChronological,
			g.ID, g.Date.Format("2006-01-02"), b.last.ID, b.last.Date.Format("2006-01-02"))
	}

	home := b.Rating(g.HomeTeamID)
	away := b.Rating(g.AwayTeamID)
	newHome, newAway := Update(home, away, g.HomeWon(), g.Neutral, b.cfg)

	b.history[g.HomeTeamID] = append(b.history[g.HomeTeamID], Checkpoint{Date: g.Date, Rating: newHome, GameID: g.ID})
	b.history[g.AwayTeamID] = append(b.history[g.AwayTeamID], Checkpoint{Date: g.Date, Rating: newAway, GameID: g.ID})

	game := g
	b.last = &game
	b.applied++
	return nil
}

// Season returns the book's season
func (b *Book) Season() int {
	return b.season
}

// GamesApplied returns the number of games folded so far
func (b *Book) GamesApplied() int {
	return b.applied
}

// Config returns the parameters the book was built with
func (b *Book) Config() Config {
	return b.cfg
}

// Known reports whether the team has played at least one game
func (b *Book) Known(teamID string) bool {
	return len(b.history[teamID]) > 0
}

// Rating returns the team's latest rating, or its starting rating if unseen
func (b *Book) Rating(teamID string) float64 {
	checkpoints := b.history[teamID]
	if len(checkpoints) == 0 {
		return b.start(teamID)
	}
	return checkpoints[len(checkpoints)-1].Rating
}

// RatingAsOf returns the rating from the latest checkpoint dated on or before date
func (b *Book) RatingAsOf(teamID string, date time.Time) float64 {
	checkpoints := b.history[teamID]
	idx := sort.Search(len(checkpoints), func(i int) bool {
		return checkpoints[i].Date.After(date)
	})
	if idx == 0 {
		return b.start(teamID)
	}
	return checkpoints[idx-1].Rating
}

// History returns a copy of the team's checkpoints
func (b *Book) History(teamID string) []Checkpoint {
	return append([]Checkpoint(nil), b.history[teamID]...)
}

// Teams returns every team with a rating, sorted
func (b *Book) Teams() []string {
	seen := make(map[string]struct{}, len(b.history)+len(b.seeds))
	for id := range b.history {
		seen[id] = struct{}{}
	}
	for id := range b.seeds {
		seen[id] = struct{}{}
	}
	teams := make([]string, 0, len(seen))
	for id := range seen {
		teams = append(teams, id)
	}
	sort.Strings(teams)
	return teams
}

// Snapshot returns every team's rating as of date
func (b *Book) Snapshot(date time.Time) map[string]float64 {
	out := make(map[string]float64)
	for _, id := range b.Teams() {
		out[id] = b.RatingAsOf(id, date)
	}
	return out
}

// Predict returns the probability that team A beats team B using ratings as of date
func (b *Book) Predict(teamA, teamB string, date time.Time, neutral bool) float64 {
	return Predict(b.RatingAsOf(teamA, date), b.RatingAsOf(teamB, date), neutral, b.cfg)
}

// Carryover starts the next season's book from this one's final ratings,
// regressed toward the baseline by cfg.PreseasonRegress.
func (b *Book) Carryover(season int, cutoff time.Time) *Book {
	next := NewBook(season, cutoff, b.cfg)
	keep := 1 - b.cfg.PreseasonRegress
	if keep == 0 {
		return next
	}
	for _, id := range b.Teams() {
		next.seeds[id] = b.cfg.Baseline + keep*(b.Rating(id)-b.cfg.Baseline)
	}
	return next
}

func (b *Book) start(teamID string) float64 {
	if seed, ok := b.seeds[teamID]; ok {
		return seed
	}
	return b.cfg.Baseline
}
