// Package corpus loads the raw documents a ranking run works on.
package corpus

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"web_ranker/internal/models"
)

type Source interface {
	Load(ctx context.Context) ([]models.RawDocument, error)
}

// Static serves a fixed set of documents.
type Static []models.RawDocument

func (s Static) Load(context.Context) ([]models.RawDocument, error) {
	return slices.Clone(s), nil
}

// uniqueNames keeps the first document for every name and warns about the rest.
func uniqueNames(docs []models.RawDocument, logger zerolog.Logger) []models.RawDocument {
	seen := make(map[string]string, len(docs))
	out := docs[:0]
	for _, d := range docs {
		if first, ok := seen[d.Name]; ok {
			logger.Warn().
				Str("name", d.Name).
				Str("kept", first).
				Str("dropped", d.URL).
				Msg("duplicate document name")
			continue
		}
		seen[d.Name] = d.URL
		out = append(out, d)
	}
	return out
}
