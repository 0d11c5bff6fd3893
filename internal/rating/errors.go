package rating

import "errors"

var (
	// ErrNotChronological indicates a game older than one already applied
	ErrNotChronological = errors.New("game not in chronological order")

	// ErrSeasonMismatch indicates a game from a different season than the book
	ErrSeasonMismatch = errors.New("game season does not match rating book")

	// ErrInvalidConfig indicates rating parameters that cannot produce ratings
	ErrInvalidConfig = errors.New("invalid rating config")
)
