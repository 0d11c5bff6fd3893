package models

// Team represents a team within a single season
type Team struct {
	ID     string `db:"team_id" json:"id" validate:"required"`
	Season int    `db:"season" json:"season" validate:"required,gt=0"`
	Name   string `db:"name" json:"name" validate:"required"`
}
