package models

import (
	"fmt"
	"sort"
	"time"
)

// Game represents a completed historical game between two teams
type Game struct {
	ID         string    `db:"id" json:"id" validate:"required"`
	Season     int       `db:"season" json:"season" validate:"required,gt=0"`
	Date       time.Time `db:"date" json:"date" validate:"required"`
	HomeTeamID string    `db:"home_team_id" json:"home_team_id" validate:"required"`
	AwayTeamID string    `db:"away_team_id" json:"away_team_id" validate:"required,nefield=HomeTeamID"`
	HomeScore  int       `db:"home_score" json:"home_score" validate:"gte=0"`
	AwayScore  int       `db:"away_score" json:"away_score" validate:"gte=0"`
	Neutral    bool      `db:"neutral" json:"neutral"`
	// Seq breaks ties between games sharing a date; it is the insertion order.
	Seq int64 `db:"seq" json:"seq"`
}

// HomeWon reports whether the home (first) team won
func (g *Game) HomeWon() bool {
	return g.HomeScore > g.AwayScore
}

// Winner returns the winning team ID
func (g *Game) Winner() string {
	if g.HomeWon() {
		return g.HomeTeamID
	}
	return g.AwayTeamID
}

// Loser returns the losing team ID
func (g *Game) Loser() string {
	if g.HomeWon() {
		return g.AwayTeamID
	}
	return g.HomeTeamID
}

// Involves reports whether the team played in the game
func (g *Game) Involves(teamID string) bool {
	return g.HomeTeamID == teamID || g.AwayTeamID == teamID
}

// Validate checks the invariants every game must satisfy before it is used
func (g *Game) Validate() error {
	if g.HomeTeamID == "" || g.AwayTeamID == "" {
		return fmt.Errorf("game %s: both team ids are required", g.ID)
	}
	if g.HomeTeamID == g.AwayTeamID {
		return fmt.Errorf("game %s: team %s cannot play itself", g.ID, g.HomeTeamID)
	}
	if g.HomeScore == g.AwayScore {
		return fmt.Errorf("game %s: tied score %d-%d is not a valid result", g.ID, g.HomeScore, g.AwayScore)
	}
	return nil
}

// Before reports whether g is ordered before other
func (g *Game) Before(other *Game) bool {
	if !g.Date.Equal(other.Date) {
		return g.Date.Before(other.Date)
	}
	return g.Seq < other.Seq
}

// SortGames orders games chronologically using Seq as the stable tie-breaker
func SortGames(games []Game) {
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].Before(&games[j])
	})
}
