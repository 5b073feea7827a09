package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"web_ranker/internal/cluster"
	"web_ranker/internal/corpus"
	"web_ranker/internal/dedup"
	"web_ranker/internal/index"
	"web_ranker/internal/linkgraph"
	"web_ranker/internal/markup"
	"web_ranker/internal/models"
	"web_ranker/internal/pagerank"
	"web_ranker/internal/ranker"
	"web_ranker/internal/utils"
)

const topEntries = 10

var ErrEmptyCorpus = errors.New("corpus has no rankable documents")

// RankStore keeps per-document ranks and a history of runs.
type RankStore interface {
	SaveRanks(ctx context.Context, records []models.RankRecord) error
	SaveRunHistory(ctx context.Context, run *models.RunHistory) error
}

// Pipeline is one ranking run: load, normalize, cluster duplicates, rank,
// and hand the authoritative documents to the indexer.
type Pipeline struct {
	Corpus     corpus.Source
	Normalizer markup.Normalizer
	Duplicates dedup.Source
	Indexer    index.Indexer
	// Ranks is optional.
	Ranks         RankStore
	PageRank      pagerank.Options
	MaxDuplicates int
	Logger        zerolog.Logger
}

type Report struct {
	RunID     string
	Documents int
	Skipped   int
	Clusters  int
	Indexed   int
	Rounds    int
	Converged bool
	Top       []pagerank.Entry
}

type document struct {
	raw   models.RawDocument
	page  *models.Page
	words int
}

func (p *Pipeline) Run(ctx context.Context) (report *Report, err error) {
	started := time.Now()
	report = &Report{RunID: uuid.NewString()}
	logger := p.Logger.With().Str("run_id", report.RunID).Logger()

	if p.Ranks != nil {
		defer func() {
			p.saveHistory(ctx, logger, report, started, err)
		}()
	}

	logger.Info().Msg("ranking run started")

	docs, skipped, err := p.load(ctx, logger)
	if err != nil {
		return report, err
	}
	report.Documents = len(docs)
	report.Skipped = len(skipped)
	if len(docs) == 0 {
		return report, ErrEmptyCorpus
	}

	names := make([]string, len(docs))
	ids := make(map[string]int, len(docs))
	for id, d := range docs {
		names[id] = d.raw.Name
		ids[d.raw.Name] = id
	}

	uf, err := p.cluster(ctx, logger, docs, ids, skipped)
	if err != nil {
		return report, err
	}

	inputs := make([]linkgraph.Input, len(docs))
	for i, d := range docs {
		inputs[i] = linkgraph.Input{Name: d.raw.Name, WordCount: d.words, Anchors: d.page.Anchors}
	}
	graph, err := linkgraph.Build(inputs)
	if err != nil {
		return report, fmt.Errorf("build link graph: %w", err)
	}

	opts := p.PageRank
	opts.Logger = &logger
	result, err := pagerank.Compute(ctx, graph, opts)
	if err != nil {
		return report, fmt.Errorf("pagerank: %w", err)
	}
	report.Rounds = result.Rounds
	report.Converged = result.Converged
	ranking := result.Ranking()
	report.Top = ranking[:min(topEntries, len(ranking))]

	logger.Info().
		Int("rounds", result.Rounds).
		Bool("converged", result.Converged).
		Int("dangling", len(graph.DanglingNodes())).
		Msg("pagerank finished")

	clusters, err := ranker.Rank(uf, names, result.Scores, p.MaxDuplicates)
	if err != nil {
		return report, fmt.Errorf("rank clusters: %w", err)
	}
	report.Clusters = len(clusters)

	entries := make([]models.IndexEntry, 0, len(clusters))
	for _, c := range clusters {
		d := docs[ids[c.Authoritative.Name]]
		entries = append(entries, models.IndexEntry{
			Name:       d.raw.Name,
			URL:        d.raw.URL,
			Title:      d.page.Title,
			Body:       d.page.Body,
			Authority:  c.Authoritative.Score,
			Duplicates: c.Duplicates[c.Authoritative.Name],
			RunID:      report.RunID,
		})
	}
	if err := p.Indexer.Index(ctx, entries); err != nil {
		return report, fmt.Errorf("index: %w", err)
	}
	report.Indexed = len(entries)

	if p.Ranks != nil {
		records := rankRecords(clusters, graph, result.Scores, report.RunID)
		if err := p.Ranks.SaveRanks(ctx, records); err != nil {
			return report, fmt.Errorf("save ranks: %w", err)
		}
	}

	logger.Info().
		Int("documents", report.Documents).
		Int("skipped", report.Skipped).
		Int("clusters", report.Clusters).
		Int("indexed", report.Indexed).
		Dur("took", time.Since(started)).
		Msg("ranking run finished")

	return report, nil
}

// load returns the rankable documents sorted by name, plus the names of
// those dropped for having no words or unparsable markup.
func (p *Pipeline) load(ctx context.Context, logger zerolog.Logger) ([]document, map[string]bool, error) {
	raw, err := p.Corpus.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load corpus: %w", err)
	}
	slices.SortFunc(raw, func(a, b models.RawDocument) int { return cmp.Compare(a.Name, b.Name) })

	skipped := make(map[string]bool)
	docs := make([]document, 0, len(raw))
	for i, r := range raw {
		if i > 0 && raw[i-1].Name == r.Name {
			return nil, nil, fmt.Errorf("%w: %q", linkgraph.ErrDuplicateName, r.Name)
		}

		words := utils.CountWords(string(r.Content))
		if words < 1 {
			logger.Warn().Str("name", r.Name).Msg("document has no words, skipping")
			skipped[r.Name] = true
			continue
		}

		page, err := p.Normalizer.Normalize(r.Content, r.ContentType, r.URL)
		if err != nil {
			logger.Warn().Err(err).Str("name", r.Name).Msg("cannot normalize document, skipping")
			skipped[r.Name] = true
			continue
		}
		docs = append(docs, document{raw: r, page: page, words: words})
	}
	return docs, skipped, nil
}

func (p *Pipeline) cluster(ctx context.Context, logger zerolog.Logger, docs []document, ids map[string]int, skipped map[string]bool) (*cluster.UnionFind, error) {
	uf := cluster.New(len(docs))
	if p.Duplicates == nil {
		return uf, nil
	}

	texts := make([]dedup.Document, len(docs))
	for i, d := range docs {
		texts[i] = dedup.Document{Name: d.raw.Name, Text: d.page.Body}
	}
	pairs, err := p.Duplicates.Pairs(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("duplicate pairs: %w", err)
	}

	for _, pair := range pairs {
		a, okA := ids[pair.A]
		b, okB := ids[pair.B]
		if okA && okB {
			uf.Union(a, b)
			continue
		}
		for _, name := range []string{pair.A, pair.B} {
			if _, ok := ids[name]; !ok && !skipped[name] {
				return nil, fmt.Errorf("duplicate pair %s,%s: %w: %q", pair.A, pair.B, linkgraph.ErrUnknownDocument, name)
			}
		}
		logger.Warn().Str("a", pair.A).Str("b", pair.B).Msg("duplicate pair names a skipped document, ignoring")
	}

	largest := 0
	for id := range docs {
		largest = max(largest, uf.Size(id))
	}
	logger.Info().
		Int("pairs", len(pairs)).
		Int("clusters", uf.Count()).
		Int("largest", largest).
		Msg("duplicates clustered")
	return uf, nil
}

func rankRecords(clusters []ranker.Cluster, g *linkgraph.Graph, scores map[string]float64, runID string) []models.RankRecord {
	now := time.Now().Unix()
	var records []models.RankRecord
	for _, c := range clusters {
		for _, name := range c.Members {
			q, _ := g.Quality(name)
			records = append(records, models.RankRecord{
				Name:          name,
				Score:         scores[name],
				Quality:       q,
				ClusterID:     c.ID,
				Authoritative: name == c.Authoritative.Name,
				RunID:         runID,
				UpdatedAt:     now,
			})
		}
	}
	return records
}

func (p *Pipeline) saveHistory(ctx context.Context, logger zerolog.Logger, report *Report, started time.Time, runErr error) {
	run := &models.RunHistory{
		ID:         report.RunID,
		StartedAt:  started.Unix(),
		FinishedAt: time.Now().Unix(),
		Documents:  report.Documents,
		Skipped:    report.Skipped,
		Clusters:   report.Clusters,
		Indexed:    report.Indexed,
		Rounds:     report.Rounds,
		Converged:  report.Converged,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// a cancelled run is still recorded
	if err := p.Ranks.SaveRunHistory(context.WithoutCancel(ctx), run); err != nil {
		logger.Error().Err(err).Msg("cannot save run history")
	}
}
