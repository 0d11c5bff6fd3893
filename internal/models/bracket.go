package models

// BracketNode is one slot in a single-elimination bracket. Leaves carry a
// team; internal nodes reference one (bye) or two child node IDs.
type BracketNode struct {
	ID       string   `json:"id" validate:"required"`
	Round    int      `json:"round" validate:"gte=0"`
	Region   string   `json:"region,omitempty"`
	Slot     int      `json:"slot"`
	Children []string `json:"children,omitempty"`
	TeamID   string   `json:"team_id,omitempty"`
	Seed     int      `json:"seed,omitempty"`
}

// IsLeaf reports whether the node is an entry slot
func (n *BracketNode) IsLeaf() bool {
	return len(n.Children) == 0 && n.TeamID != ""
}

// IsBye reports whether the node has a single child
func (n *BracketNode) IsBye() bool {
	return len(n.Children) == 1
}

// Bracket is a static, externally supplied elimination tree
type Bracket struct {
	Season int           `json:"season"`
	Name   string        `json:"name,omitempty"`
	Nodes  []BracketNode `json:"nodes" validate:"required,min=1,dive"`
}
