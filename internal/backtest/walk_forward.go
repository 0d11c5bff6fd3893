package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/bracket-forecast/internal/dates"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// Fold is one backtested season and the seasons its artifact is trained on
type Fold struct {
	Season int       `json:"season"`
	Train  []int     `json:"train_seasons"`
	Cutoff time.Time `json:"cutoff"`
}

// Plan lays out the folds of a protocol. Every fold trains strictly on
// seasons before the one it tests and uses Selection Sunday as the cutoff.
func Plan(cfg BacktestConfig) ([]Fold, error) {
	seasons := append([]int(nil), cfg.Seasons...)
	sort.Ints(seasons)

	var folds []Fold
	switch cfg.Protocol {
	case ProtocolExpanding:
		for i := 1; i < len(seasons); i++ {
			folds = append(folds, newFold(seasons[i], seasons[:i]))
		}
	case ProtocolFixed:
		if cfg.Window <= 0 || cfg.Window >= len(seasons) {
			return nil, fmt.Errorf("fixed window must be between 1 and %d, got %d", len(seasons)-1, cfg.Window)
		}
		for _, season := range seasons[cfg.Window:] {
			folds = append(folds, newFold(season, seasons[:cfg.Window]))
		}
	case ProtocolLOSO:
		return nil, fmt.Errorf("protocol %s trains on seasons after the test cutoff: %w", ProtocolLOSO, models.ErrLeakage)
	default:
		return nil, fmt.Errorf("unknown backtest protocol %q", cfg.Protocol)
	}
	return folds, nil
}

func newFold(season int, train []int) Fold {
	return Fold{
		Season: season,
		Train:  append([]int(nil), train...),
		Cutoff: dates.SelectionSunday(season),
	}
}
