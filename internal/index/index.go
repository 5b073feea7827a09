// Package index holds the search index the ranking run feeds: authoritative
// documents only, each annotated with its ranked duplicates.
package index

import (
	"context"

	"web_ranker/internal/models"
)

// Indexer receives the full set of entries of one run and replaces whatever
// it held before.
type Indexer interface {
	Index(ctx context.Context, entries []models.IndexEntry) error
}

// Hit is one search result.
type Hit struct {
	models.IndexEntry
	IndexedAt int64
}
