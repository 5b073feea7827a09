// Package cluster partitions document IDs into duplicate clusters.
package cluster

import "fmt"

// UnionFind is a disjoint-set forest over the dense IDs 0..n-1.
// Union by size, path halving on Find. On equal sizes the root of the
// first argument to Union survives.
type UnionFind struct {
	parent []int
	size   []int
	count  int
}

func New(n int) *UnionFind {
	if n < 0 {
		panic(fmt.Sprintf("cluster: negative universe size %d", n))
	}
	uf := &UnionFind{
		parent: make([]int, n),
		size:   make([]int, n),
		count:  n,
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

// Len is the size of the universe.
func (uf *UnionFind) Len() int {
	return len(uf.parent)
}

// Count is the number of clusters.
func (uf *UnionFind) Count() int {
	return uf.count
}

func (uf *UnionFind) Find(a int) int {
	uf.check(a)
	for uf.parent[a] != a {
		uf.parent[a] = uf.parent[uf.parent[a]]
		a = uf.parent[a]
	}
	return a
}

func (uf *UnionFind) Connected(a, b int) bool {
	return uf.Find(a) == uf.Find(b)
}

// Union merges the clusters of a and b and reports whether they were separate.
func (uf *UnionFind) Union(a, b int) bool {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	uf.count--
	return true
}

// Size returns the number of members in a's cluster.
func (uf *UnionFind) Size(a int) int {
	return uf.size[uf.Find(a)]
}

// Components lists every cluster as ascending member IDs, ordered by the
// smallest member. Singletons are included.
func (uf *UnionFind) Components() [][]int {
	index := make(map[int]int, uf.count)
	components := make([][]int, 0, uf.count)
	for id := range uf.parent {
		root := uf.Find(id)
		i, ok := index[root]
		if !ok {
			i = len(components)
			index[root] = i
			components = append(components, make([]int, 0, uf.size[root]))
		}
		components[i] = append(components[i], id)
	}
	return components
}

func (uf *UnionFind) check(a int) {
	if a < 0 || a >= len(uf.parent) {
		panic(fmt.Sprintf("cluster: id %d out of range [0,%d)", a, len(uf.parent)))
	}
}
