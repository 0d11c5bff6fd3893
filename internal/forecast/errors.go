package forecast

import "errors"

var (
	// ErrNoSeasons indicates a training request without seasons
	ErrNoSeasons = errors.New("no training seasons requested")

	// ErrNoCutoff indicates a training request without a cutoff
	ErrNoCutoff = errors.New("training cutoff is required")

	// ErrSameTeam indicates a matchup of a team against itself
	ErrSameTeam = errors.New("a team cannot play itself")

	// ErrNilArtifact indicates a prediction without a trained artifact
	ErrNilArtifact = errors.New("artifact is nil")
)
