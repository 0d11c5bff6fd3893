// Package backtest evaluates the forecasting pipeline season by season.
package backtest

import (
	"errors"
	"fmt"

	"github.com/yourusername/bracket-forecast/internal/config"
	"github.com/yourusername/bracket-forecast/internal/evaluation"
)

// Protocols
const (
	ProtocolExpanding = "expanding"
	ProtocolFixed     = "fixed"
	ProtocolLOSO      = "loso"
)

// BacktestConfig holds the settings of a backtest run
type BacktestConfig struct {
	Protocol      string
	Seasons       []int
	Window        int
	ScoringSystem string
	Points        []int
	BracketDir    string
	ExportDir     string
	// ReliabilityBuckets is the number of equal-width reliability buckets.
	ReliabilityBuckets int
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.Config) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, errors.New("config is required")
	}
	system := cfg.Backtest.ScoringSystem
	points := cfg.ScoringPoints(system)
	if system == "" {
		system = "espn"
		points = evaluation.ESPNPoints
	}

	bt := BacktestConfig{
		Protocol:           cfg.Backtest.Protocol,
		Seasons:            append([]int(nil), cfg.Backtest.Seasons...),
		Window:             cfg.Backtest.Window,
		ScoringSystem:      system,
		Points:             points,
		BracketDir:         cfg.Backtest.BracketDir,
		ExportDir:          cfg.Backtest.ExportDir,
		ReliabilityBuckets: 10,
	}
	if bt.Protocol == "" {
		bt.Protocol = ProtocolExpanding
	}
	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	switch b.Protocol {
	case ProtocolExpanding, ProtocolFixed, ProtocolLOSO:
	default:
		return fmt.Errorf("unknown backtest protocol %q", b.Protocol)
	}
	if len(b.Seasons) < 2 {
		return fmt.Errorf("backtest needs at least two seasons, got %d", len(b.Seasons))
	}
	if b.Protocol == ProtocolFixed && (b.Window <= 0 || b.Window >= len(b.Seasons)) {
		return fmt.Errorf("fixed window must be between 1 and %d, got %d", len(b.Seasons)-1, b.Window)
	}
	for _, p := range b.Points {
		if p < 0 {
			return fmt.Errorf("scoring system %s has negative points", b.ScoringSystem)
		}
	}
	return nil
}
