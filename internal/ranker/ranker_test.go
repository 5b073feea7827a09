package ranker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web_ranker/internal/cluster"
)

func TestRankCluster(t *testing.T) {
	names := []string{"X", "Y", "Z"}
	uf := cluster.New(3)
	uf.Union(1, 0)
	uf.Union(2, 1)

	clusters, err := Rank(uf, names, map[string]float64{"X": 0.9, "Y": 0.5, "Z": 0.1}, 0)
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	c := clusters[0]
	assert.Equal(t, Authority{Name: "X", Score: 0.9}, c.Authoritative)
	assert.Equal(t, []string{"X", "Z"}, c.Duplicates["Y"])
	assert.Equal(t, []string{"X", "Y"}, c.Duplicates["Z"])
	assert.Equal(t, []string{"Y", "Z"}, c.Duplicates["X"])
	assert.Equal(t, "Y,Z", c.Annotation())
	assert.Equal(t, []string{"X", "Y", "Z"}, c.Members)
	assert.Equal(t, 0, c.ID)
}

func TestSingletonHasNoDuplicates(t *testing.T) {
	uf := cluster.New(2)
	clusters, err := Rank(uf, []string{"a", "b"}, map[string]float64{"a": 0.3, "b": 0.7}, 5)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	for _, c := range clusters {
		assert.True(t, c.Singleton())
		assert.Empty(t, c.Annotation())
		assert.Empty(t, c.Duplicates[c.Authoritative.Name])
	}
	assert.Equal(t, "a", clusters[0].Authoritative.Name)
	assert.Equal(t, "b", clusters[1].Authoritative.Name)
}

func TestDuplicateListCappedAtLimit(t *testing.T) {
	n := 9
	names := make([]string, n)
	scores := make(map[string]float64, n)
	uf := cluster.New(n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("d%d", i)
		scores[names[i]] = float64(i) / 10
		if i > 0 {
			uf.Union(0, i)
		}
	}

	clusters, err := Rank(uf, names, scores, 0)
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	c := clusters[0]
	assert.Equal(t, "d8", c.Authoritative.Name)
	assert.Equal(t, []string{"d7", "d6", "d5", "d4", "d3"}, c.Duplicates["d8"])
	assert.Equal(t, []string{"d8", "d7", "d6", "d5", "d4"}, c.Duplicates["d0"])
	for name, dups := range c.Duplicates {
		assert.LessOrEqual(t, len(dups), DefaultLimit)
		assert.NotContains(t, dups, name)
	}

	clusters, err = Rank(uf, names, scores, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d7", "d6"}, clusters[0].Duplicates["d8"])
}

func TestTieBreaks(t *testing.T) {
	names := []string{"m", "k", "z"}
	uf := cluster.New(3)
	uf.Union(0, 1)
	uf.Union(0, 2)

	clusters, err := Rank(uf, names, map[string]float64{"m": 0.4, "k": 0.4, "z": 0.4}, 0)
	require.NoError(t, err)

	c := clusters[0]
	// the first member in ID order wins an exact tie
	assert.Equal(t, "m", c.Authoritative.Name)
	// duplicates on equal scores are ordered by name
	assert.Equal(t, []string{"k", "z"}, c.Duplicates["m"])
	assert.Equal(t, []string{"k", "m"}, c.Duplicates["z"])
}

func TestClustersPartitionNames(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}
	scores := map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3, "d": 0.25, "e": 0.15}
	uf := cluster.New(5)
	uf.Union(0, 3)
	uf.Union(4, 2)

	clusters, err := Rank(uf, names, scores, 0)
	require.NoError(t, err)
	require.Len(t, clusters, 3)

	seen := map[string]bool{}
	for _, c := range clusters {
		for _, m := range c.Members {
			assert.False(t, seen[m])
			seen[m] = true
		}
	}
	assert.Len(t, seen, len(names))

	assert.Equal(t, "d", clusters[0].Authoritative.Name)
	assert.Equal(t, "b", clusters[1].Authoritative.Name)
	assert.Equal(t, "c", clusters[2].Authoritative.Name)
	assert.Equal(t, "e", clusters[2].Annotation())
}

func TestMissingScore(t *testing.T) {
	uf := cluster.New(2)
	_, err := Rank(uf, []string{"a", "b"}, map[string]float64{"a": 1}, 0)
	assert.ErrorIs(t, err, ErrMissingScore)
}

func TestNameCountMismatch(t *testing.T) {
	uf := cluster.New(3)
	_, err := Rank(uf, []string{"a"}, map[string]float64{"a": 1}, 0)
	assert.Error(t, err)
}

type fixedPartition [][]int

func (f fixedPartition) Components() [][]int { return f }

func (f fixedPartition) Len() int {
	n := 0
	for _, c := range f {
		n += len(c)
	}
	return n
}

func TestRankFollowsPartitionComponents(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	scores := map[string]float64{"a": 0.1, "b": 0.4, "c": 0.3, "d": 0.2}

	clusters, err := Rank(fixedPartition{{0, 2}, {1, 3}}, names, scores, 0)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Equal(t, []string{"a", "c"}, clusters[0].Members)
	assert.Equal(t, "c", clusters[0].Authoritative.Name)
	assert.Equal(t, 1, clusters[1].ID)
	assert.Equal(t, "b", clusters[1].Authoritative.Name)
	assert.Equal(t, "d", clusters[1].Annotation())
}
