package evaluation

import (
	"sort"

	"github.com/yourusername/bracket-forecast/internal/models"
)

// ESPNPoints is the per-round point table of the standard bracket challenge
var ESPNPoints = []int{10, 20, 40, 80, 160, 320}

// BracketScore is the result of scoring picks against realized winners
type BracketScore struct {
	Points  int         `json:"points"`
	Correct int         `json:"correct"`
	Games   int         `json:"games"`
	ByRound map[int]int `json:"by_round"`
}

// ScoreBracket awards points for every game node whose pick matches the
// realized winner. points[k] is the value of the k-th game round, the last
// entry repeating for deeper rounds; an empty table gives one point per pick.
// Leaves and byes are not games and score nothing.
func ScoreBracket(bracket *models.Bracket, picks, truth map[string]string, points []int) BracketScore {
	score := BracketScore{ByRound: make(map[int]int)}

	var gameRounds []int
	seen := make(map[int]bool)
	for _, node := range bracket.Nodes {
		if len(node.Children) == 2 && !seen[node.Round] {
			seen[node.Round] = true
			gameRounds = append(gameRounds, node.Round)
		}
	}
	sort.Ints(gameRounds)
	rank := make(map[int]int, len(gameRounds))
	for i, r := range gameRounds {
		rank[r] = i
	}

	for _, node := range bracket.Nodes {
		if len(node.Children) != 2 {
			continue
		}
		winner, played := truth[node.ID]
		if !played {
			continue
		}
		score.Games++
		if picks[node.ID] != winner {
			continue
		}
		value := 1
		if len(points) > 0 {
			k := rank[node.Round]
			if k >= len(points) {
				k = len(points) - 1
			}
			value = points[k]
		}
		score.Correct++
		score.Points += value
		score.ByRound[node.Round] += value
	}
	return score
}

// MaxPoints returns the score of a perfect bracket
func MaxPoints(bracket *models.Bracket, points []int) int {
	truth := make(map[string]string)
	for _, node := range bracket.Nodes {
		if len(node.Children) == 2 {
			truth[node.ID] = "x"
		}
	}
	return ScoreBracket(bracket, truth, truth, points).Points
}
