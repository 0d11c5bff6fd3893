package classifier

import "errors"

var (
	// ErrNoFeatures indicates a classifier configured without feature columns
	ErrNoFeatures = errors.New("classifier has no feature columns")

	// ErrNoTrainingRows indicates an empty training set
	ErrNoTrainingRows = errors.New("no training rows")

	// ErrInvalidOutcome indicates a training label other than 0 or 1
	ErrInvalidOutcome = errors.New("training outcome must be 0 or 1")

	// ErrNotConverged indicates the optimizer produced unusable parameters
	ErrNotConverged = errors.New("classifier fit did not converge")
)
