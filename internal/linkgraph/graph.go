// Package linkgraph turns documents and their outbound anchors into base
// qualities and a weighted inbound-link table.
package linkgraph

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"web_ranker/internal/models"
	"web_ranker/internal/utils"
)

var (
	ErrEmptyDocument    = errors.New("document has no words")
	ErrDuplicateName    = errors.New("duplicate document name")
	ErrDegenerateCorpus = errors.New("document qualities sum to zero")
	ErrUnknownDocument  = errors.New("unknown document")
)

const (
	plainAnchorScore       = 1.0
	highlightedAnchorScore = 2.0
)

// Input describes one document of the corpus.
type Input struct {
	Name      string
	WordCount int
	Anchors   []models.Anchor
}

// Edge is one weighted link, seen from the node that owns the edge list.
type Edge struct {
	Node   int
	Weight float64
}

// Graph is immutable once built. Nodes are indexed by the sorted document names.
// Dangling sources are kept apart from the explicit edges: each of them links
// to every node with weight 1/N.
type Graph struct {
	names    []string
	index    map[string]int
	quality  []float64
	inbound  [][]Edge
	outbound [][]Edge
	dangling []int
}

// Build computes normalized qualities (log2 of the word count, scaled to sum
// to 1) and per-source normalized anchor weights.
func Build(inputs []Input) (*Graph, error) {
	names := make([]string, len(inputs))
	for i, in := range inputs {
		if in.WordCount < 1 {
			return nil, fmt.Errorf("%w: %q", ErrEmptyDocument, in.Name)
		}
		names[i] = in.Name
	}
	index, names, err := indexNames(names)
	if err != nil {
		return nil, err
	}

	quality := make([]float64, len(names))
	sum := 0.0
	for _, in := range inputs {
		q := math.Log2(float64(in.WordCount))
		quality[index[in.Name]] = q
		sum += q
	}
	if len(names) > 0 && sum <= 0 {
		return nil, ErrDegenerateCorpus
	}
	for i := range quality {
		quality[i] /= sum
	}

	out := make([]map[int]float64, len(names))
	for _, in := range inputs {
		src := index[in.Name]
		acc := make(map[int]float64)
		total := 0.0
		for _, a := range in.Anchors {
			target, ok := index[utils.Basename(a.Target)]
			if !ok {
				continue
			}
			score := plainAnchorScore
			if a.Highlighted {
				score = highlightedAnchorScore
			}
			acc[target] += score
			total += score
		}
		if total == 0 {
			continue
		}
		for target, score := range acc {
			acc[target] = score / total
		}
		out[src] = acc
	}

	return newGraph(names, index, quality, out), nil
}

// FromWeights builds a graph from explicit qualities and per-source weights.
// Sources without weights are dangling. Weights are taken as given, so a
// caller can describe tables that are not row-stochastic.
func FromWeights(qualities map[string]float64, weights map[string]map[string]float64) (*Graph, error) {
	names := make([]string, 0, len(qualities))
	for name := range qualities {
		names = append(names, name)
	}
	index, names, err := indexNames(names)
	if err != nil {
		return nil, err
	}

	quality := make([]float64, len(names))
	for name, q := range qualities {
		quality[index[name]] = q
	}

	out := make([]map[int]float64, len(names))
	for source, targets := range weights {
		src, ok := index[source]
		if !ok {
			return nil, fmt.Errorf("%w: source %q", ErrUnknownDocument, source)
		}
		if len(targets) == 0 {
			continue
		}
		acc := make(map[int]float64, len(targets))
		for target, w := range targets {
			t, ok := index[target]
			if !ok {
				return nil, fmt.Errorf("%w: target %q", ErrUnknownDocument, target)
			}
			acc[t] = w
		}
		out[src] = acc
	}

	return newGraph(names, index, quality, out), nil
}

func indexNames(names []string) (map[string]int, []string, error) {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	index := make(map[string]int, len(sorted))
	for i, name := range sorted {
		if _, dup := index[name]; dup {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		index[name] = i
	}
	return index, sorted, nil
}

func newGraph(names []string, index map[string]int, quality []float64, out []map[int]float64) *Graph {
	g := &Graph{
		names:    names,
		index:    index,
		quality:  quality,
		inbound:  make([][]Edge, len(names)),
		outbound: make([][]Edge, len(names)),
	}
	for src, targets := range out {
		if len(targets) == 0 {
			g.dangling = append(g.dangling, src)
			continue
		}
		for target, w := range targets {
			g.outbound[src] = append(g.outbound[src], Edge{Node: target, Weight: w})
			g.inbound[target] = append(g.inbound[target], Edge{Node: src, Weight: w})
		}
	}
	byNode := func(a, b Edge) int { return a.Node - b.Node }
	for i := range names {
		slices.SortFunc(g.inbound[i], byNode)
		slices.SortFunc(g.outbound[i], byNode)
	}
	return g
}

func (g *Graph) Len() int {
	return len(g.names)
}

// Names returns the document names in node order (sorted).
func (g *Graph) Names() []string {
	return slices.Clone(g.names)
}

func (g *Graph) Name(i int) string {
	return g.names[i]
}

func (g *Graph) Index(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

func (g *Graph) QualityAt(i int) float64 {
	return g.quality[i]
}

func (g *Graph) Quality(name string) (float64, bool) {
	i, ok := g.index[name]
	if !ok {
		return 0, false
	}
	return g.quality[i], true
}

// Qualities returns a copy of the base quality map.
func (g *Graph) Qualities() map[string]float64 {
	m := make(map[string]float64, len(g.names))
	for i, name := range g.names {
		m[name] = g.quality[i]
	}
	return m
}

// InboundAt returns the explicit inbound edges of node i, sorted by source.
// Contributions of dangling sources are not included; see DanglingNodes.
func (g *Graph) InboundAt(i int) []Edge {
	return g.inbound[i]
}

// DanglingNodes lists the sources with no resolvable outbound anchor.
func (g *Graph) DanglingNodes() []int {
	return g.dangling
}

func (g *Graph) IsDangling(name string) bool {
	i, ok := g.index[name]
	if !ok {
		return false
	}
	_, found := slices.BinarySearch(g.dangling, i)
	return found
}

// Inbound returns the full inbound-link table of target, dangling sources
// included: source name -> share of the source's outbound mass.
func (g *Graph) Inbound(target string) map[string]float64 {
	t, ok := g.index[target]
	if !ok {
		return nil
	}
	m := make(map[string]float64, len(g.inbound[t])+len(g.dangling))
	for _, e := range g.inbound[t] {
		m[g.names[e.Node]] = e.Weight
	}
	uniform := 1.0 / float64(len(g.names))
	for _, src := range g.dangling {
		m[g.names[src]] = uniform
	}
	return m
}

// Outbound returns the weights source contributes to each target.
func (g *Graph) Outbound(source string) map[string]float64 {
	s, ok := g.index[source]
	if !ok {
		return nil
	}
	if len(g.outbound[s]) == 0 {
		uniform := 1.0 / float64(len(g.names))
		m := make(map[string]float64, len(g.names))
		for _, name := range g.names {
			m[name] = uniform
		}
		return m
	}
	m := make(map[string]float64, len(g.outbound[s]))
	for _, e := range g.outbound[s] {
		m[g.names[e.Node]] = e.Weight
	}
	return m
}
