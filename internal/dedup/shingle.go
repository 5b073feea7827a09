package dedup

import (
	"cmp"
	"context"
	"hash/fnv"
	"slices"
	"strings"
)

const (
	DefaultShingleSize = 4
	DefaultThreshold   = 0.6
)

// Shingler compares every pair of documents by the Jaccard similarity of
// their word shingles. Pairs above Threshold are reported with A < B.
type Shingler struct {
	Size      int
	Threshold float64
}

func (s Shingler) Pairs(ctx context.Context, docs []Document) ([]Pair, error) {
	size := s.Size
	if size <= 0 {
		size = DefaultShingleSize
	}
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	sorted := slices.Clone(docs)
	slices.SortFunc(sorted, func(a, b Document) int { return cmp.Compare(a.Name, b.Name) })

	sets := make([]map[uint64]struct{}, len(sorted))
	for i, d := range sorted {
		sets[i] = Shingles(d.Text, size)
	}

	var pairs []Pair
	for i := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(sorted); j++ {
			if Jaccard(sets[i], sets[j]) > threshold {
				pairs = append(pairs, Pair{A: sorted[i].Name, B: sorted[j].Name})
			}
		}
	}
	return pairs, nil
}

// Shingles hashes every run of size consecutive words. Texts shorter than
// size produce one shingle of all their words.
func Shingles(text string, size int) map[uint64]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[uint64]struct{})
	if len(words) == 0 {
		return set
	}
	if len(words) < size {
		set[hashWords(words)] = struct{}{}
		return set
	}
	for i := 0; i+size <= len(words); i++ {
		set[hashWords(words[i:i+size])] = struct{}{}
	}
	return set
}

func hashWords(words []string) uint64 {
	h := fnv.New64a()
	for i, w := range words {
		if i > 0 {
			h.Write([]byte{' '})
		}
		h.Write([]byte(w))
	}
	return h.Sum64()
}

// Jaccard of two empty sets is 0.
func Jaccard(a, b map[uint64]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
