package simulation

import (
	"sort"
)

// Result aggregates the counts of a simulation run
type Result struct {
	Trials int    `json:"trials"`
	Seed   uint64 `json:"seed"`
	Root   string `json:"root"`
	Rounds []int  `json:"rounds"`
	// Reach counts, per team and round, the trials in which the team held a
	// node of that round.
	Reach map[string]map[int]int `json:"reach"`
	// Champion counts the trials each team won the root.
	Champion map[string]int `json:"champion"`
	// Occupants counts, per node, the trials each team held it.
	Occupants map[string]map[string]int `json:"occupants"`
	// Children lists each node's child node IDs so decoded results can
	// still build picks.
	Children map[string][]string `json:"children"`
}

func newResult(t *tree, rounds []int, c *counts, cfg Config) *Result {
	nTeams, nRounds := len(t.teams), len(rounds)
	r := &Result{
		Trials:    cfg.Trials,
		Seed:      cfg.Seed,
		Root:      t.ids[t.root],
		Rounds:    rounds,
		Reach:     make(map[string]map[int]int, nTeams),
		Champion:  make(map[string]int, nTeams),
		Occupants: make(map[string]map[string]int, len(t.ids)),
		Children:  make(map[string][]string, len(t.ids)),
	}

	for team, id := range t.teams {
		reach := make(map[int]int)
		for ri, round := range rounds {
			if v := c.reach[team*nRounds+ri]; v > 0 {
				reach[round] = v
			}
		}
		r.Reach[id] = reach
		r.Champion[id] = c.champion[team]
	}

	for node, id := range t.ids {
		occ := make(map[string]int)
		for _, team := range t.under[node] {
			if v := c.occupants[node*nTeams+team]; v > 0 {
				occ[t.teams[team]] = v
			}
		}
		r.Occupants[id] = occ

		kids := make([]string, 0, len(t.children[node]))
		for _, k := range t.children[node] {
			kids = append(kids, t.ids[k])
		}
		r.Children[id] = kids
	}
	return r
}

// Teams returns every team in the bracket, sorted
func (r *Result) Teams() []string {
	teams := make([]string, 0, len(r.Champion))
	for id := range r.Champion {
		teams = append(teams, id)
	}
	sort.Strings(teams)
	return teams
}

// ReachProbability returns the share of trials in which team held a node of round
func (r *Result) ReachProbability(team string, round int) float64 {
	return float64(r.Reach[team][round]) / float64(r.Trials)
}

// ChampionProbability returns the share of trials team won the bracket
func (r *Result) ChampionProbability(team string) float64 {
	return float64(r.Champion[team]) / float64(r.Trials)
}

// OccupantProbability returns the share of trials team held node
func (r *Result) OccupantProbability(node, team string) float64 {
	return float64(r.Occupants[node][team]) / float64(r.Trials)
}

// Picks returns a consistent bracket: each node picks whichever of its
// children's picks held it more often. Ties go to the first child.
func (r *Result) Picks() map[string]string {
	picks := make(map[string]string, len(r.Occupants))
	r.pick(r.Root, picks)
	return picks
}

func (r *Result) pick(node string, picks map[string]string) string {
	kids := r.Children[node]
	var best string
	switch len(kids) {
	case 0:
		for team := range r.Occupants[node] {
			best = team
		}
	case 1:
		best = r.pick(kids[0], picks)
	default:
		left := r.pick(kids[0], picks)
		right := r.pick(kids[1], picks)
		best = left
		if r.Occupants[node][right] > r.Occupants[node][left] {
			best = right
		}
	}
	picks[node] = best
	return best
}
