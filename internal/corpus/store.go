package corpus

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"web_ranker/internal/models"
	"web_ranker/internal/utils"
)

// DocumentLoader returns crawled pages, for example from the documents collection.
type DocumentLoader interface {
	LoadDocuments(ctx context.Context) ([]models.Document, error)
}

// Store turns stored crawl records into raw documents named after the last
// segment of their normalized URL.
type Store struct {
	Loader DocumentLoader
	Logger zerolog.Logger
}

func (s Store) Load(ctx context.Context) ([]models.RawDocument, error) {
	stored, err := s.Loader.LoadDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored documents: %w", err)
	}

	docs := make([]models.RawDocument, 0, len(stored))
	for _, d := range stored {
		ref := d.NormalizedURL
		if ref == "" {
			ref = d.URL
		}
		name := documentName(ref)
		if name == "" {
			s.Logger.Warn().Str("url", d.URL).Msg("stored document has no usable name")
			continue
		}
		docs = append(docs, models.RawDocument{
			Name:        name,
			URL:         d.URL,
			ContentType: "text/html; charset=utf-8",
			Content:     []byte(d.HTMLContent),
		})
	}

	s.Logger.Info().Int("documents", len(docs)).Msg("stored corpus loaded")
	return uniqueNames(docs, s.Logger), nil
}

// documentName is the basename of a URL; a bare host or directory maps to index.html.
func documentName(ref string) string {
	if ref == "" {
		return ""
	}
	if name := utils.Basename(ref); name != "" {
		return name
	}
	return "index.html"
}
