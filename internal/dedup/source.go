// Package dedup supplies near-duplicate pairs for the clusterer. Pairs come
// from a fixed list, a pairs file, an external detector or the built-in
// shingle comparison.
package dedup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Document is what a detector sees: the name used for pairing and the
// normalized text.
type Document struct {
	Name string
	Text string
}

// Pair names two documents that should end up in the same cluster.
type Pair struct {
	A string
	B string
}

type Source interface {
	Pairs(ctx context.Context, docs []Document) ([]Pair, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, docs []Document) ([]Pair, error)

func (f SourceFunc) Pairs(ctx context.Context, docs []Document) ([]Pair, error) {
	return f(ctx, docs)
}

// StaticPairs returns the same pairs on every run.
type StaticPairs []Pair

func (s StaticPairs) Pairs(context.Context, []Document) ([]Pair, error) {
	return []Pair(s), nil
}

// None reports no duplicates.
var None = StaticPairs(nil)

// ParsePairs reads "a,b" lines. Blank lines are skipped; anything else that
// is not exactly two non-empty names is an error.
func ParsePairs(r io.Reader) ([]Pair, error) {
	var pairs []Pair
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("pairs line %d: expected two names, got %q", line, text)
		}
		a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if a == "" || b == "" {
			return nil, fmt.Errorf("pairs line %d: empty name in %q", line, text)
		}
		pairs = append(pairs, Pair{A: a, B: b})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pairs: %w", err)
	}
	return pairs, nil
}

// PairsFile reads pairs from a file on every call.
type PairsFile struct {
	Path string
}

func (p PairsFile) Pairs(context.Context, []Document) ([]Pair, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open pairs file: %w", err)
	}
	defer f.Close()
	return ParsePairs(f)
}
