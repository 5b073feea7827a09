package pagerank

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web_ranker/internal/linkgraph"
	"web_ranker/internal/models"
)

func TestTwoNodeCycleConvergesToHalf(t *testing.T) {
	g, err := linkgraph.FromWeights(
		map[string]float64{"A": 0.5, "B": 0.5},
		map[string]map[string]float64{"A": {"B": 1}, "B": {"A": 1}},
	)
	require.NoError(t, err)

	res, err := Compute(context.Background(), g, Options{Damping: 0.7})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.InDelta(t, 0.5, res.Scores["A"], 1e-9)
	assert.InDelta(t, 0.5, res.Scores["B"], 1e-9)
	assert.Equal(t, 1, res.Rounds)
}

func TestDanglingSinkScoresHighest(t *testing.T) {
	third := 1.0 / 3.0
	g, err := linkgraph.FromWeights(
		map[string]float64{"A": third, "B": third, "C": third},
		map[string]map[string]float64{"B": {"A": 1}, "C": {"A": 1}},
	)
	require.NoError(t, err)

	res, err := Compute(context.Background(), g, Options{Damping: 0.7})
	require.NoError(t, err)
	require.True(t, res.Converged)

	assert.Greater(t, res.Scores["A"], res.Scores["B"])
	assert.Greater(t, res.Scores["A"], res.Scores["C"])
	assert.InDelta(t, res.Scores["B"], res.Scores["C"], 1e-12)

	// the dangling mass is redistributed, so the total stays 1
	total := res.Scores["A"] + res.Scores["B"] + res.Scores["C"]
	assert.InDelta(t, 1.0, total, 0.01)
}

func TestFixedPointHolds(t *testing.T) {
	g := buildSample(t)
	res, err := Compute(context.Background(), g, Options{Damping: 0.7})
	require.NoError(t, err)
	require.True(t, res.Converged)

	// one more application of the update moves no score by more than a few epsilons
	for _, name := range g.Names() {
		q, _ := g.Quality(name)
		sum := 0.0
		for src, w := range g.Inbound(name) {
			sum += w * res.Scores[src]
		}
		want := 0.3*q + 0.7*sum
		assert.InDelta(t, want, res.Scores[name], 3*res.Epsilon, name)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	g := buildLarge(t, 64)

	seq, err := Compute(context.Background(), g, Options{Damping: 0.85})
	require.NoError(t, err)
	par, err := Compute(context.Background(), g, Options{Damping: 0.85, Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, seq.Rounds, par.Rounds)
	for name, s := range seq.Scores {
		assert.InDelta(t, s, par.Scores[name], 1e-15, name)
	}
}

func TestParallelStepStopsOnCancel(t *testing.T) {
	g := buildLarge(t, 64)
	cur := round{scores: make([]float64, g.Len())}
	for i := range cur.scores {
		cur.scores[i] = g.QualityAt(i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := step(ctx, g, cur, 0.85, 4)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, got.n)
	assert.Equal(t, cur.scores, got.scores)

	got, err = step(context.Background(), g, cur, 0.85, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, got.n)
}

func TestRoundCapReturnsBestEffort(t *testing.T) {
	// weights far from row-stochastic with f=1 never settle
	g, err := linkgraph.FromWeights(
		map[string]float64{"A": 0.5, "B": 0.5},
		map[string]map[string]float64{"A": {"B": 2}, "B": {"A": 2}},
	)
	require.NoError(t, err)

	res, err := Compute(context.Background(), g, Options{Damping: 1, MaxRounds: 10})
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 10, res.Rounds)
	assert.Greater(t, res.Scores["A"], 0.5)
}

func TestCancellationBetweenRounds(t *testing.T) {
	g := buildSample(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Compute(ctx, g, Options{Damping: 0.7})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Rounds)
	assert.Equal(t, g.Qualities(), res.Scores)
}

func TestInvalidDamping(t *testing.T) {
	g := buildSample(t)
	for _, f := range []float64{-0.1, 1.5} {
		_, err := Compute(context.Background(), g, Options{Damping: f})
		assert.ErrorIs(t, err, ErrInvalidDamping)
	}
}

func TestEmptyGraph(t *testing.T) {
	g, err := linkgraph.Build(nil)
	require.NoError(t, err)
	res, err := Compute(context.Background(), g, Options{Damping: 0.7})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Empty(t, res.Scores)
	assert.Empty(t, res.Ranking())
}

func TestRankingOrder(t *testing.T) {
	res := &Result{Scores: map[string]float64{"b": 0.2, "a": 0.2, "c": 0.6}}
	assert.Equal(t, []Entry{{"c", 0.6}, {"a", 0.2}, {"b", 0.2}}, res.Ranking())
}

func TestZeroDampingReturnsQualities(t *testing.T) {
	g := buildSample(t)
	res, err := Compute(context.Background(), g, Options{Damping: 0})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	for name, q := range g.Qualities() {
		assert.InDelta(t, q, res.Scores[name], 1e-15)
	}
}

func buildSample(t *testing.T) *linkgraph.Graph {
	t.Helper()
	g, err := linkgraph.Build([]linkgraph.Input{
		{Name: "a", WordCount: 100, Anchors: []models.Anchor{{Target: "b", Highlighted: true}, {Target: "c"}}},
		{Name: "b", WordCount: 50, Anchors: []models.Anchor{{Target: "c"}}},
		{Name: "c", WordCount: 400},
		{Name: "d", WordCount: 20, Anchors: []models.Anchor{{Target: "a"}, {Target: "c"}}},
	})
	require.NoError(t, err)
	return g
}

func buildLarge(t *testing.T, n int) *linkgraph.Graph {
	t.Helper()
	inputs := make([]linkgraph.Input, n)
	for i := range inputs {
		var out []models.Anchor
		if i%7 != 0 {
			out = []models.Anchor{
				{Target: fmt.Sprintf("doc%03d", (i*3+1)%n)},
				{Target: fmt.Sprintf("doc%03d", (i+5)%n), Highlighted: i%2 == 0},
			}
		}
		inputs[i] = linkgraph.Input{Name: fmt.Sprintf("doc%03d", i), WordCount: 10 + i*3, Anchors: out}
	}
	g, err := linkgraph.Build(inputs)
	require.NoError(t, err)
	return g
}
