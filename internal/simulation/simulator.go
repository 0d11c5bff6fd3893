// Package simulation runs Monte Carlo trials of a single-elimination bracket.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/bracket-forecast/internal/metrics"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// ErrInvalidTrials indicates a non-positive trial count
var ErrInvalidTrials = errors.New("trials must be positive")

// ProbabilityFunc returns the probability that teamA beats teamB at a
// neutral site
type ProbabilityFunc func(teamA, teamB string) (float64, error)

// Config configures a simulation run
type Config struct {
	Trials  int    `json:"trials"`
	Seed    uint64 `json:"seed"`
	Workers int    `json:"workers"`
}

// DefaultConfig returns the default simulation parameters
func DefaultConfig() Config {
	return Config{Trials: 10000, Seed: 42, Workers: 4}
}

// counts holds one worker's tallies
type counts struct {
	// reach[team*len(rounds)+roundIdx]
	reach    []int
	champion []int
	// occupants[node*len(teams)+team]
	occupants []int
}

func newCounts(nodes, teams, rounds int) *counts {
	return &counts{
		reach:     make([]int, teams*rounds),
		champion:  make([]int, teams),
		occupants: make([]int, nodes*teams),
	}
}

func (c *counts) add(other *counts) {
	for i, v := range other.reach {
		c.reach[i] += v
	}
	for i, v := range other.champion {
		c.champion[i] += v
	}
	for i, v := range other.occupants {
		c.occupants[i] += v
	}
}

// Simulate validates the bracket, evaluates every possible pairing once and
// runs cfg.Trials independent trials. Trial i draws from a stream derived from
// (cfg.Seed, i) only, so the result does not depend on cfg.Workers.
func Simulate(ctx context.Context, bracket *models.Bracket, probFn ProbabilityFunc, cfg Config) (*Result, error) {
	start := time.Now()
	result, err := simulate(ctx, bracket, probFn, cfg)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordSimulation(status, time.Since(start).Seconds())
	return result, err
}

func simulate(ctx context.Context, bracket *models.Bracket, probFn ProbabilityFunc, cfg Config) (*Result, error) {
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTrials, cfg.Trials)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > cfg.Trials {
		workers = cfg.Trials
	}

	t, err := compile(bracket)
	if err != nil {
		return nil, err
	}
	table, err := buildTable(t, probFn)
	if err != nil {
		return nil, err
	}

	rounds := t.roundList()
	roundIdx := make(map[int]int, len(rounds))
	for i, r := range rounds {
		roundIdx[r] = i
	}
	nodeRound := make([]int, len(t.ids))
	for i, r := range t.rounds {
		nodeRound[i] = roundIdx[r]
	}

	nTeams, nNodes, nRounds := len(t.teams), len(t.ids), len(rounds)
	perWorker := make([]*counts, workers)
	chunk := (cfg.Trials + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		first := w * chunk
		last := first + chunk
		if last > cfg.Trials {
			last = cfg.Trials
		}
		perWorker[w] = newCounts(nNodes, nTeams, nRounds)
		g.Go(func() error {
			c := perWorker[w]
			occupant := make([]int, nNodes)
			alive := make([]bool, nTeams*nRounds)
			for i := first; i < last; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				runTrial(t, table, trialRNG(cfg.Seed, uint64(i)), occupant)
				for k := range alive {
					alive[k] = false
				}
				for node, team := range occupant {
					c.occupants[node*nTeams+team]++
					alive[team*nRounds+nodeRound[node]] = true
				}
				for k, ok := range alive {
					if ok {
						c.reach[k]++
					}
				}
				c.champion[occupant[t.root]]++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newCounts(nNodes, nTeams, nRounds)
	for _, c := range perWorker {
		total.add(c)
	}
	return newResult(t, rounds, total, cfg), nil
}

// runTrial fills occupant with the team index holding each node
func runTrial(t *tree, table *pairTable, rng *rand.Rand, occupant []int) {
	for _, node := range t.order {
		if team := t.leafTeam[node]; team >= 0 {
			occupant[node] = team
			continue
		}
		kids := t.children[node]
		if len(kids) == 1 {
			occupant[node] = occupant[kids[0]]
			continue
		}
		a, b := occupant[kids[0]], occupant[kids[1]]
		if rng.Float64() < table.get(a, b) {
			occupant[node] = a
		} else {
			occupant[node] = b
		}
	}
}

// trialRNG returns the random stream of one trial
func trialRNG(seed, trial uint64) *rand.Rand {
	return rand.New(rand.NewPCG(splitmix64(seed^splitmix64(trial)), splitmix64(trial+seed)))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// pairTable is a dense, read-only matrix of P(row beats column)
type pairTable struct {
	n int
	p []float64
}

func (pt *pairTable) get(a, b int) float64 {
	return pt.p[a*pt.n+b]
}

// buildTable evaluates probFn once for every pair that can meet, which is
// exactly the pairs split across the two children of some node.
func buildTable(t *tree, probFn ProbabilityFunc) (*pairTable, error) {
	n := len(t.teams)
	pt := &pairTable{n: n, p: make([]float64, n*n)}
	for node, kids := range t.children {
		if len(kids) != 2 {
			continue
		}
		for _, a := range t.under[kids[0]] {
			for _, b := range t.under[kids[1]] {
				p, err := probFn(t.teams[a], t.teams[b])
				if err != nil {
					return nil, fmt.Errorf("matchup %s vs %s at node %s: %w", t.teams[a], t.teams[b], t.ids[node], err)
				}
				if math.IsNaN(p) || p < 0 || p > 1 {
					return nil, fmt.Errorf("matchup %s vs %s: probability %v outside [0,1]", t.teams[a], t.teams[b], p)
				}
				p = models.ClampProbability(p)
				pt.p[a*n+b] = p
				pt.p[b*n+a] = 1 - p
			}
		}
	}
	return pt, nil
}
