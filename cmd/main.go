package main

import (
	"os"

	"web_ranker/internal/app"
	"web_ranker/internal/config"
	"web_ranker/internal/utils"
)

func main() {
	cfg, err := config.LoadConfig(config.GetConfigPath())
	if err != nil {
		fatalLog := utils.NewLogger("info", "console")
		fatalLog.Fatal().Err(err).Msg("can't load config")
	}

	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)

	indexer, err := app.NewIndexerApp(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("can't start indexer")
	}

	if err := indexer.Run(); err != nil {
		logger.Error().Err(err).Msg("indexer stopped with error")
		os.Exit(1)
	}

	logger.Info().Msg("indexer finished")
}
