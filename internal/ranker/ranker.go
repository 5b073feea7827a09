// Package ranker picks one authoritative document per duplicate cluster and
// orders the remaining members by authority.
package ranker

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DefaultLimit is how many duplicates are kept per document.
const DefaultLimit = 5

var ErrMissingScore = errors.New("missing authority score")

// Partition lists clusters over dense document IDs, each as ascending IDs.
type Partition interface {
	Components() [][]int
	Len() int
}

type Authority struct {
	Name  string
	Score float64
}

type Cluster struct {
	// ID is the smallest member ID; stable for a fixed ID assignment.
	ID            int
	Members       []string
	Authoritative Authority
	// Duplicates holds, for every member, the other members by descending
	// authority (ties by name), at most the configured limit.
	Duplicates map[string][]string
}

// Annotation is the comma-joined duplicate list of the authoritative document.
func (c Cluster) Annotation() string {
	return strings.Join(c.Duplicates[c.Authoritative.Name], ",")
}

func (c Cluster) Singleton() bool {
	return len(c.Members) == 1
}

// Rank resolves each cluster of the partition. names maps ID to document
// name and must cover the partition. limit <= 0 means DefaultLimit.
func Rank(p Partition, names []string, scores map[string]float64, limit int) ([]Cluster, error) {
	if len(names) != p.Len() {
		return nil, fmt.Errorf("ranker: %d names for a partition of %d", len(names), p.Len())
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	groups := p.Components()
	clusters := make([]Cluster, 0, len(groups))
	for _, ids := range groups {
		c, err := rankCluster(ids, names, scores, limit)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, nil
}

func rankCluster(ids []int, names []string, scores map[string]float64, limit int) (Cluster, error) {
	members := make([]Authority, len(ids))
	for i, id := range ids {
		name := names[id]
		s, ok := scores[name]
		if !ok {
			return Cluster{}, fmt.Errorf("%w: %q", ErrMissingScore, name)
		}
		members[i] = Authority{Name: name, Score: s}
	}

	// members are in ascending ID order; the first maximum wins
	best := members[0]
	for _, m := range members[1:] {
		if m.Score > best.Score {
			best = m
		}
	}

	ordered := slices.Clone(members)
	slices.SortFunc(ordered, byAuthority)

	c := Cluster{
		ID:            ids[0],
		Members:       make([]string, len(members)),
		Authoritative: best,
		Duplicates:    make(map[string][]string, len(members)),
	}
	for i, m := range members {
		c.Members[i] = m.Name
	}
	for _, m := range members {
		dups := make([]string, 0, min(limit, len(ordered)-1))
		for _, o := range ordered {
			if len(dups) == limit {
				break
			}
			if o.Name != m.Name {
				dups = append(dups, o.Name)
			}
		}
		c.Duplicates[m.Name] = dups
	}
	return c, nil
}

func byAuthority(a, b Authority) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}
