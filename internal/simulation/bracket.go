package simulation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/bracket-forecast/internal/models"
)

// tree is a validated bracket in index form
type tree struct {
	ids      []string
	rounds   []int
	children [][]int
	// leafTeam holds the team index of a leaf, -1 for internal nodes.
	leafTeam []int
	// order lists node indices children-first, ending at the root.
	order []int
	root  int
	teams []string
	// under holds the team indices that can reach each node.
	under [][]int
}

func malformed(nodeID, format string, args ...interface{}) error {
	return &models.MalformedBracketError{NodeID: nodeID, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that the bracket is a single well-formed elimination tree
func Validate(b *models.Bracket) error {
	_, err := compile(b)
	return err
}

// LoadBracket reads and validates a bracket definition from a JSON file
func LoadBracket(path string) (*models.Bracket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bracket file: %w", err)
	}
	defer f.Close()
	return ParseBracket(f)
}

// ParseBracket decodes and validates a JSON bracket definition
func ParseBracket(r io.Reader) (*models.Bracket, error) {
	var b models.Bracket
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bracket: %w", err)
	}
	if err := validator.New().Struct(&b); err != nil {
		return nil, malformed("", "%v", err)
	}
	if err := Validate(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

func compile(b *models.Bracket) (*tree, error) {
	if b == nil || len(b.Nodes) == 0 {
		return nil, malformed("", "bracket has no nodes")
	}

	n := len(b.Nodes)
	t := &tree{
		ids:      make([]string, n),
		rounds:   make([]int, n),
		children: make([][]int, n),
		leafTeam: make([]int, n),
		under:    make([][]int, n),
	}
	index := make(map[string]int, n)
	for i, node := range b.Nodes {
		if node.ID == "" {
			return nil, malformed("", "node %d has no id", i)
		}
		if _, dup := index[node.ID]; dup {
			return nil, malformed(node.ID, "duplicate node id")
		}
		index[node.ID] = i
		t.ids[i] = node.ID
		t.rounds[i] = node.Round
	}

	teamIndex := make(map[string]int)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}
	for i, node := range b.Nodes {
		t.leafTeam[i] = -1
		switch {
		case len(node.Children) == 0:
			if node.TeamID == "" {
				return nil, malformed(node.ID, "node has neither children nor a team")
			}
			if _, dup := teamIndex[node.TeamID]; dup {
				return nil, malformed(node.ID, "team %s appears in more than one leaf", node.TeamID)
			}
			teamIndex[node.TeamID] = len(t.teams)
			t.leafTeam[i] = len(t.teams)
			t.teams = append(t.teams, node.TeamID)
		case len(node.Children) > 2:
			return nil, malformed(node.ID, "node has %d children", len(node.Children))
		case node.TeamID != "":
			return nil, malformed(node.ID, "internal node cannot carry team %s", node.TeamID)
		}

		for _, childID := range node.Children {
			c, ok := index[childID]
			if !ok {
				return nil, malformed(node.ID, "child %s does not exist", childID)
			}
			if c == i {
				return nil, malformed(node.ID, "node is its own child")
			}
			if parent[c] != -1 {
				return nil, malformed(childID, "node is reachable from both %s and %s", t.ids[parent[c]], node.ID)
			}
			parent[c] = i
			t.children[i] = append(t.children[i], c)
		}
	}

	t.root = -1
	for i := range parent {
		if parent[i] != -1 {
			continue
		}
		if t.root != -1 {
			return nil, malformed(t.ids[i], "second root besides %s", t.ids[t.root])
		}
		t.root = i
	}
	if t.root == -1 {
		return nil, malformed("", "bracket has no root")
	}

	if err := t.walk(); err != nil {
		return nil, err
	}
	if len(t.order) != n {
		visited := make([]bool, n)
		for _, i := range t.order {
			visited[i] = true
		}
		for i := range visited {
			if !visited[i] {
				return nil, malformed(t.ids[i], "node is not reachable from root %s", t.ids[t.root])
			}
		}
	}
	return t, nil
}

// walk fills order and under with an explicit stack so deep chains of byes
// cannot exhaust the goroutine stack.
func (t *tree) walk() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(t.ids))

	type frame struct {
		node int
		next int
	}
	stack := []frame{{node: t.root}}
	state[t.root] = visiting
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(t.children[top.node]) {
			c := t.children[top.node][top.next]
			top.next++
			switch state[c] {
			case visiting:
				return malformed(t.ids[c], "bracket contains a cycle")
			case done:
				return malformed(t.ids[c], "node is reachable twice")
			}
			if t.rounds[c] >= t.rounds[top.node] {
				return malformed(t.ids[top.node], "round %d does not exceed child %s round %d",
					t.rounds[top.node], t.ids[c], t.rounds[c])
			}
			state[c] = visiting
			stack = append(stack, frame{node: c})
			continue
		}

		node := top.node
		stack = stack[:len(stack)-1]
		state[node] = done
		t.order = append(t.order, node)
		if team := t.leafTeam[node]; team >= 0 {
			t.under[node] = []int{team}
			continue
		}
		under := make([]int, 0)
		for _, c := range t.children[node] {
			under = append(under, t.under[c]...)
		}
		sort.Ints(under)
		t.under[node] = under
	}
	return nil
}

// roundList returns the distinct rounds in ascending order
func (t *tree) roundList() []int {
	seen := make(map[int]struct{})
	for _, r := range t.rounds {
		seen[r] = struct{}{}
	}
	rounds := make([]int, 0, len(seen))
	for r := range seen {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)
	return rounds
}
