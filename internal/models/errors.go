package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Custom errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key violation")
	ErrLeakage          = errors.New("record dated after cutoff")
	ErrMissingFeature   = errors.New("missing feature")
	ErrUnknownMethod    = errors.New("unknown method")
	ErrMalformedBracket = errors.New("malformed bracket")
	ErrInsufficientData = errors.New("insufficient data")
)

const dateLayout = "2006-01-02"

// LeakageError reports a dated record that crosses the as-of cutoff
type LeakageError struct {
	Record     string
	RecordDate time.Time
	Cutoff     time.Time
}

func (e *LeakageError) Error() string {
	return fmt.Sprintf("leakage: %s dated %s is after cutoff %s",
		e.Record, e.RecordDate.Format(dateLayout), e.Cutoff.Format(dateLayout))
}

// Is matches ErrLeakage
func (e *LeakageError) Is(target error) bool {
	return target == ErrLeakage
}

// MissingFeatureError reports feature columns that are absent for a team
type MissingFeatureError struct {
	TeamID  string
	Columns []string
}

func (e *MissingFeatureError) Error() string {
	if e.TeamID == "" {
		return fmt.Sprintf("missing feature columns [%s]", strings.Join(e.Columns, ", "))
	}
	if len(e.Columns) == 0 {
		return fmt.Sprintf("no feature vector for team %s", e.TeamID)
	}
	return fmt.Sprintf("team %s is missing feature columns [%s]", e.TeamID, strings.Join(e.Columns, ", "))
}

// Is matches ErrMissingFeature
func (e *MissingFeatureError) Is(target error) bool {
	return target == ErrMissingFeature
}

// UnknownMethodError reports an unsupported combination or calibration method
type UnknownMethodError struct {
	Kind   string
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown %s method %q", e.Kind, e.Method)
}

// Is matches ErrUnknownMethod
func (e *UnknownMethodError) Is(target error) bool {
	return target == ErrUnknownMethod
}

// MalformedBracketError reports a bracket that cannot be simulated
type MalformedBracketError struct {
	NodeID string
	Reason string
}

func (e *MalformedBracketError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("malformed bracket: %s", e.Reason)
	}
	return fmt.Sprintf("malformed bracket: node %s: %s", e.NodeID, e.Reason)
}

// Is matches ErrMalformedBracket
func (e *MalformedBracketError) Is(target error) bool {
	return target == ErrMalformedBracket
}

// InsufficientDataError reports a team with no history before the cutoff.
// It is a warning: estimators fall back to baseline values.
type InsufficientDataError struct {
	TeamID string
	Season int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("team %s has no history in season %d", e.TeamID, e.Season)
}

// Is matches ErrInsufficientData
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
