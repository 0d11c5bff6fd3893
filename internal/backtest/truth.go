package backtest

import (
	"sort"

	"github.com/yourusername/bracket-forecast/internal/models"
)

// RealizedWinners walks the bracket bottom-up and matches each two-team node
// against the played games to find who actually won it. Nodes whose game is
// not found are left out, and so is everything above them.
func RealizedWinners(bracket *models.Bracket, games []models.Game) map[string]string {
	played := make(map[[2]string]string, len(games))
	for i := range games {
		played[pairKey(games[i].HomeTeamID, games[i].AwayTeamID)] = games[i].Winner()
	}

	nodes := make(map[string]models.BracketNode, len(bracket.Nodes))
	for _, n := range bracket.Nodes {
		nodes[n.ID] = n
	}
	order := append([]models.BracketNode(nil), bracket.Nodes...)
	sort.SliceStable(order, func(i, j int) bool { return order[i].Round < order[j].Round })

	occupant := make(map[string]string, len(order))
	truth := make(map[string]string)
	for _, n := range order {
		switch len(n.Children) {
		case 0:
			occupant[n.ID] = n.TeamID
		case 1:
			if team, ok := occupant[n.Children[0]]; ok {
				occupant[n.ID] = team
			}
		case 2:
			a, okA := occupant[n.Children[0]]
			b, okB := occupant[n.Children[1]]
			if !okA || !okB {
				continue
			}
			if winner, ok := played[pairKey(a, b)]; ok {
				occupant[n.ID] = winner
				truth[n.ID] = winner
			}
		}
	}
	return truth
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
