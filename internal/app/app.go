package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"web_ranker/internal/config"
	"web_ranker/internal/corpus"
	"web_ranker/internal/db"
	"web_ranker/internal/dedup"
	"web_ranker/internal/index"
	"web_ranker/internal/markup"
	"web_ranker/internal/pagerank"
)

// IndexerApp wires the ranking pipeline from config and runs it once or on
// a schedule.
type IndexerApp struct {
	config    *config.RankerConfig
	db        *db.MongoDB
	pipeline  *Pipeline
	scheduler *Scheduler
	closers   []io.Closer
	logger    zerolog.Logger
}

func NewIndexerApp(cfg *config.RankerConfig, logger zerolog.Logger) (*IndexerApp, error) {
	a := &IndexerApp{config: cfg, logger: logger}

	if cfg.NeedsMongo() {
		mongoDB, err := db.NewMongoDB(cfg.DB, logger)
		if err != nil {
			return nil, err
		}
		a.db = mongoDB
		a.closers = append(a.closers, mongoDB)
	}

	source, err := a.buildCorpus()
	if err != nil {
		a.Close()
		return nil, err
	}
	duplicates, err := a.buildDuplicates()
	if err != nil {
		a.Close()
		return nil, err
	}
	indexer, err := a.buildIndexer()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pipeline = &Pipeline{
		Corpus:     source,
		Normalizer: markup.Normalizer{UseReadability: cfg.Logic.UseReadability},
		Duplicates: duplicates,
		Indexer:    indexer,
		PageRank: pagerank.Options{
			Damping:   *cfg.Logic.Damping,
			MaxRounds: cfg.Logic.MaxRounds,
			Workers:   cfg.Logic.Workers,
		},
		MaxDuplicates: cfg.Logic.MaxDuplicates,
		Logger:        logger,
	}
	if cfg.Logic.SaveRanks && a.db != nil {
		a.pipeline.Ranks = a.db
	}

	return a, nil
}

func (a *IndexerApp) buildCorpus() (corpus.Source, error) {
	cfg := a.config.Corpus
	switch cfg.Type {
	case config.CorpusDir:
		return corpus.Dir{Root: cfg.Dir, Logger: a.logger}, nil
	case config.CorpusMongo:
		return corpus.Store{Loader: a.db, Logger: a.logger}, nil
	case config.CorpusCrawl:
		var saver corpus.Saver
		if cfg.Crawl.Persist {
			saver = a.db
		}
		return corpus.NewCrawler(corpus.CrawlOptions{
			StartURLs:       cfg.Crawl.StartURLs,
			FollowPatterns:  cfg.Crawl.FollowPatterns,
			ExcludePatterns: cfg.Crawl.ExcludePatterns,
			MaxDepth:        cfg.Crawl.MaxDepth,
			MaxPages:        cfg.Crawl.MaxPages,
			Parallelism:     cfg.Crawl.Parallelism,
			Delay:           time.Duration(cfg.Crawl.DelayMS) * time.Millisecond,
			UserAgent:       cfg.Crawl.UserAgent,
			SameHost:        cfg.Crawl.SameHost,
			RespectRobots:   cfg.Crawl.RespectRobots,
		}, saver, a.logger), nil
	}
	return nil, fmt.Errorf("%w: corpus type %q", config.ErrInvalidConfig, cfg.Type)
}

func (a *IndexerApp) buildDuplicates() (dedup.Source, error) {
	cfg := a.config.Dedup
	switch cfg.Type {
	case config.DedupShingle:
		return dedup.Shingler{Size: cfg.ShingleSize, Threshold: cfg.Threshold}, nil
	case config.DedupCommand:
		return dedup.Command{Path: cfg.Command, Args: cfg.Args, Logger: a.logger}, nil
	case config.DedupFile:
		return dedup.PairsFile{Path: cfg.PairsFile}, nil
	case config.DedupNone:
		return dedup.None, nil
	}
	return nil, fmt.Errorf("%w: dedup type %q", config.ErrInvalidConfig, cfg.Type)
}

func (a *IndexerApp) buildIndexer() (index.Indexer, error) {
	switch a.config.Index.Type {
	case config.IndexSQLite:
		store, err := index.NewSQLiteStore(a.config.Index.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case config.IndexMongo:
		return a.db, nil
	}
	return nil, fmt.Errorf("%w: index type %q", config.ErrInvalidConfig, a.config.Index.Type)
}

// RunOnce runs the pipeline and logs its report.
func (a *IndexerApp) RunOnce(ctx context.Context) (*Report, error) {
	report, err := a.pipeline.Run(ctx)
	if err != nil {
		a.logger.Error().Err(err).Str("run_id", report.RunID).Msg("ranking run failed")
		return report, err
	}

	for i, e := range report.Top {
		a.logger.Info().Int("rank", i+1).Str("name", e.Name).Float64("score", e.Score).Msg("top document")
	}

	if a.config.Index.Type == config.IndexMongo && a.db != nil {
		stats, err := a.db.GetIndexStats(ctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("can't read index stats")
		} else {
			a.logger.Info().Fields(stats).Msg("index stats")
		}
	}
	return report, nil
}

// Run ranks once, and with a schedule keeps re-ranking until SIGINT or SIGTERM.
func (a *IndexerApp) Run() error {
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			a.logger.Warn().Msg("interrupt received, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err := a.RunOnce(ctx)
	if a.config.Logic.Schedule == "" {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}

	a.scheduler = NewScheduler(a.logger)
	err = a.scheduler.Schedule(a.config.Logic.Schedule, func() {
		_, _ = a.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	a.scheduler.Start()
	a.logger.Info().Str("schedule", a.config.Logic.Schedule).Msg("scheduled re-ranking")

	<-ctx.Done()
	<-a.scheduler.Stop().Done()
	return nil
}

func (a *IndexerApp) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
