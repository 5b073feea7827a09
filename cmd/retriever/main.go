// Command retriever searches the SQLite index written by the indexer and
// prints every hit with the duplicates it stands for.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"web_ranker/internal/config"
	"web_ranker/internal/index"
	"web_ranker/internal/utils"
)

func main() {
	limit := flag.Int("n", index.DefaultSearchLimit, "maximum number of results")
	dbPath := flag.String("db", "", "index database (default from config)")
	flag.Parse()

	query := strings.Join(flag.Args(), " ")
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: retriever [-n N] [-db path] <query>")
		os.Exit(2)
	}

	path := *dbPath
	if path == "" {
		cfg, err := config.LoadConfig(config.GetConfigPath())
		if err != nil {
			fatalLog := utils.NewLogger("info", "console")
			fatalLog.Fatal().Err(err).Msg("can't load config")
		}
		path = cfg.Index.SQLitePath
	}

	store, err := index.NewSQLiteStore(path)
	if err != nil {
		fatalLog := utils.NewLogger("info", "console")
		fatalLog.Fatal().Err(err).Msg("can't open index")
	}
	defer store.Close()

	hits, err := store.Search(context.Background(), query, *limit)
	if err != nil {
		fatalLog := utils.NewLogger("info", "console")
		fatalLog.Fatal().Err(err).Msg("search failed")
	}

	fmt.Printf("Found %d documents for %q\n", len(hits), query)
	for i, h := range hits {
		fmt.Printf("%d. %s (%.6f)\n", i+1, h.Name, h.Authority)
		if h.Title != "" {
			fmt.Printf("   %s\n", h.Title)
		}
		if len(h.Duplicates) > 0 {
			fmt.Printf("   duplicates: %s\n", strings.Join(h.Duplicates, ", "))
		}
	}
}
