// Package pagerank iterates base qualities and inbound-link weights to a
// fixed point:
//
//	r(p) = (1-f)·q(p) + f·Σ_s w(p,s)·r(s)
//
// Rounds are synchronous. Every round is computed from the previous round
// only, and a round is never read before all of its scores are written.
package pagerank

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"web_ranker/internal/linkgraph"
)

const (
	DefaultDamping   = 0.7
	DefaultMaxRounds = 1000

	// a round changed if any score moved by more than epsilonScale/N
	epsilonScale = 0.01
)

var ErrInvalidDamping = errors.New("damping must be within [0,1]")

type Options struct {
	Damping float64
	// MaxRounds caps the iteration; <= 0 means DefaultMaxRounds.
	MaxRounds int
	// Workers > 1 splits each round across goroutines.
	Workers int
	Logger  *zerolog.Logger
}

type Entry struct {
	Name  string
	Score float64
}

// Result holds the scores of the last completed round.
type Result struct {
	Scores    map[string]float64
	Rounds    int
	Converged bool
	Epsilon   float64
}

// Ranking sorts the scores descending, ties broken by name.
func (r *Result) Ranking() []Entry {
	entries := make([]Entry, 0, len(r.Scores))
	for name, score := range r.Scores {
		entries = append(entries, Entry{Name: name, Score: score})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return entries
}

// round is one immutable generation of scores.
type round struct {
	n      int
	scores []float64
}

// Compute runs the iteration until no score moves by more than 0.01/N.
// If MaxRounds is exhausted first, the last round is returned with
// Converged=false and no error. On cancellation, checked between rounds,
// the last completed round is returned together with ctx.Err().
func Compute(ctx context.Context, g *linkgraph.Graph, opts Options) (*Result, error) {
	if opts.Damping < 0 || opts.Damping > 1 || math.IsNaN(opts.Damping) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDamping, opts.Damping)
	}
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	n := g.Len()
	if n == 0 {
		return &Result{Scores: map[string]float64{}, Converged: true}, nil
	}
	epsilon := epsilonScale / float64(n)

	cur := round{scores: make([]float64, n)}
	for i := range cur.scores {
		cur.scores[i] = g.QualityAt(i)
	}

	converged := false
	for cur.n < maxRounds {
		if err := ctx.Err(); err != nil {
			return newResult(g, cur, false, epsilon), err
		}

		next, err := step(ctx, g, cur, opts.Damping, opts.Workers)
		if err != nil {
			return newResult(g, cur, false, epsilon), err
		}

		changed := false
		maxDelta := 0.0
		for i := range next.scores {
			d := math.Abs(next.scores[i] - cur.scores[i])
			maxDelta = max(maxDelta, d)
			if d > epsilon {
				changed = true
			}
		}
		cur = next

		logger.Debug().Int("round", cur.n).Float64("max_delta", maxDelta).Msg("pagerank round")

		if !changed {
			converged = true
			break
		}
	}

	if !converged {
		logger.Warn().
			Int("rounds", cur.n).
			Float64("epsilon", epsilon).
			Msg("pagerank hit the round cap before converging; returning last round")
	}

	return newResult(g, cur, converged, epsilon), nil
}

func newResult(g *linkgraph.Graph, r round, converged bool, epsilon float64) *Result {
	scores := make(map[string]float64, len(r.scores))
	for i, s := range r.scores {
		scores[g.Name(i)] = s
	}
	return &Result{Scores: scores, Rounds: r.n, Converged: converged, Epsilon: epsilon}
}

// step computes the next round from cur. Targets are independent within a
// round; errgroup.Wait is the barrier before the round is published.
func step(ctx context.Context, g *linkgraph.Graph, cur round, f float64, workers int) (round, error) {
	n := len(cur.scores)
	next := make([]float64, n)

	danglingMass := 0.0
	for _, src := range g.DanglingNodes() {
		danglingMass += cur.scores[src]
	}
	danglingMass /= float64(n)

	score := func(lo, hi int) {
		for p := lo; p < hi; p++ {
			sum := danglingMass
			for _, e := range g.InboundAt(p) {
				sum += e.Weight * cur.scores[e.Node]
			}
			next[p] = (1-f)*g.QualityAt(p) + f*sum
		}
	}

	if workers <= 1 || n < 2*workers {
		score(0, n)
		return round{n: cur.n + 1, scores: next}, nil
	}

	// a cancelled round is dropped whole; the caller keeps cur
	eg, gctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score(lo, hi)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return cur, err
	}
	return round{n: cur.n + 1, scores: next}, nil
}
