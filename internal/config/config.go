package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	CorpusDir   = "dir"
	CorpusMongo = "mongo"
	CorpusCrawl = "crawl"

	DedupShingle = "shingle"
	DedupCommand = "command"
	DedupFile    = "file"
	DedupNone    = "none"

	IndexSQLite = "sqlite"
	IndexMongo  = "mongo"
)

var ErrInvalidConfig = errors.New("invalid config")

type DBConfig struct {
	Connection  string `yaml:"connection"`
	Database    string `yaml:"database"`
	Collections struct {
		Documents string `yaml:"documents"`
		Ranks     string `yaml:"ranks"`
		Index     string `yaml:"index"`
		Runs      string `yaml:"runs"`
	} `yaml:"collections"`
}

type LogicConfig struct {
	// Damping left out means 0.7; an explicit 0 is kept.
	Damping        *float64 `yaml:"damping"`
	MaxRounds      int      `yaml:"max_rounds"`
	Workers        int      `yaml:"workers"`
	MaxDuplicates  int      `yaml:"max_duplicates"`
	UseReadability bool     `yaml:"use_readability"`
	SaveRanks      bool     `yaml:"save_ranks"`
	// Schedule is a cron spec; empty runs once and exits.
	Schedule string `yaml:"schedule"`
}

type CrawlConfig struct {
	StartURLs       []string `yaml:"start_urls"`
	FollowPatterns  []string `yaml:"follow_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
	MaxDepth        int      `yaml:"max_depth"`
	MaxPages        int      `yaml:"max_pages"`
	Parallelism     int      `yaml:"parallelism"`
	DelayMS         int      `yaml:"delay_ms"`
	UserAgent       string   `yaml:"user_agent"`
	SameHost        bool     `yaml:"same_host"`
	RespectRobots   bool     `yaml:"respect_robots"`
	// Persist stores crawled pages in the documents collection.
	Persist bool `yaml:"persist"`
}

type CorpusConfig struct {
	Type  string      `yaml:"type"`
	Dir   string      `yaml:"dir"`
	Crawl CrawlConfig `yaml:"crawl"`
}

type DedupConfig struct {
	Type        string   `yaml:"type"`
	ShingleSize int      `yaml:"shingle_size"`
	Threshold   float64  `yaml:"threshold"`
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"`
	PairsFile   string   `yaml:"pairs_file"`
}

type IndexConfig struct {
	Type       string `yaml:"type"`
	SQLitePath string `yaml:"sqlite_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RankerConfig struct {
	DB     DBConfig     `yaml:"db"`
	Logic  LogicConfig  `yaml:"logic"`
	Corpus CorpusConfig `yaml:"corpus"`
	Dedup  DedupConfig  `yaml:"dedup"`
	Index  IndexConfig  `yaml:"index"`
	Log    LogConfig    `yaml:"log"`
}

// GetConfigPath returns RANKER_CONFIG or config.yaml.
func GetConfigPath() string {
	if path := os.Getenv("RANKER_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}

// LoadConfig reads the YAML file, overlays .env and environment variables,
// fills defaults and validates the result.
func LoadConfig(path string) (*RankerConfig, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse is LoadConfig without the file and .env handling.
func Parse(data []byte) (*RankerConfig, error) {
	var cfg RankerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvironmentOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvironmentOverrides(cfg *RankerConfig) {
	if v := os.Getenv("RANKER_MONGO_URI"); v != "" {
		cfg.DB.Connection = v
	}
	if v := os.Getenv("RANKER_DATABASE"); v != "" {
		cfg.DB.Database = v
	}
	if v := os.Getenv("RANKER_SQLITE_PATH"); v != "" {
		cfg.Index.SQLitePath = v
	}
	if v := os.Getenv("RANKER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RANKER_SCHEDULE"); v != "" {
		cfg.Logic.Schedule = v
	}
}

func applyDefaults(cfg *RankerConfig) {
	if cfg.DB.Connection == "" {
		cfg.DB.Connection = "mongodb://localhost:27017"
	}
	if cfg.DB.Database == "" {
		cfg.DB.Database = "web_ranker"
	}
	if cfg.DB.Collections.Documents == "" {
		cfg.DB.Collections.Documents = "documents"
	}
	if cfg.DB.Collections.Ranks == "" {
		cfg.DB.Collections.Ranks = "ranks"
	}
	if cfg.DB.Collections.Index == "" {
		cfg.DB.Collections.Index = "index"
	}
	if cfg.DB.Collections.Runs == "" {
		cfg.DB.Collections.Runs = "runs"
	}

	if cfg.Logic.Damping == nil {
		damping := 0.7
		cfg.Logic.Damping = &damping
	}
	if cfg.Logic.MaxRounds == 0 {
		cfg.Logic.MaxRounds = 1000
	}
	if cfg.Logic.Workers == 0 {
		cfg.Logic.Workers = 1
	}
	if cfg.Logic.MaxDuplicates == 0 {
		cfg.Logic.MaxDuplicates = 5
	}

	if cfg.Corpus.Type == "" {
		cfg.Corpus.Type = CorpusDir
	}
	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = "corpus"
	}
	if cfg.Corpus.Crawl.MaxDepth == 0 {
		cfg.Corpus.Crawl.MaxDepth = 2
	}
	if cfg.Corpus.Crawl.MaxPages == 0 {
		cfg.Corpus.Crawl.MaxPages = 500
	}
	if cfg.Corpus.Crawl.Parallelism == 0 {
		cfg.Corpus.Crawl.Parallelism = 2
	}

	if cfg.Dedup.Type == "" {
		cfg.Dedup.Type = DedupShingle
	}
	if cfg.Dedup.ShingleSize == 0 {
		cfg.Dedup.ShingleSize = 4
	}
	if cfg.Dedup.Threshold == 0 {
		cfg.Dedup.Threshold = 0.6
	}

	if cfg.Index.Type == "" {
		cfg.Index.Type = IndexSQLite
	}
	if cfg.Index.SQLitePath == "" {
		cfg.Index.SQLitePath = "index.db"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func (c *RankerConfig) Validate() error {
	var problems []string
	if c.Logic.Damping == nil || *c.Logic.Damping < 0 || *c.Logic.Damping > 1 || math.IsNaN(*c.Logic.Damping) {
		problems = append(problems, "logic.damping must be within [0,1]")
	}
	if c.Logic.MaxRounds < 0 {
		problems = append(problems, "logic.max_rounds must not be negative")
	}
	if c.Logic.Workers < 1 {
		problems = append(problems, "logic.workers must be positive")
	}
	if c.Logic.MaxDuplicates < 1 {
		problems = append(problems, "logic.max_duplicates must be positive")
	}

	switch c.Corpus.Type {
	case CorpusDir, CorpusMongo:
	case CorpusCrawl:
		if len(c.Corpus.Crawl.StartURLs) == 0 {
			problems = append(problems, "corpus.crawl.start_urls is required for a crawl corpus")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown corpus.type %q", c.Corpus.Type))
	}

	switch c.Dedup.Type {
	case DedupShingle:
		if c.Dedup.Threshold <= 0 || c.Dedup.Threshold > 1 {
			problems = append(problems, "dedup.threshold must be within (0,1]")
		}
		if c.Dedup.ShingleSize < 1 {
			problems = append(problems, "dedup.shingle_size must be positive")
		}
	case DedupCommand:
		if c.Dedup.Command == "" {
			problems = append(problems, "dedup.command is required")
		}
	case DedupFile:
		if c.Dedup.PairsFile == "" {
			problems = append(problems, "dedup.pairs_file is required")
		}
	case DedupNone:
	default:
		problems = append(problems, fmt.Sprintf("unknown dedup.type %q", c.Dedup.Type))
	}

	switch c.Index.Type {
	case IndexSQLite, IndexMongo:
	default:
		problems = append(problems, fmt.Sprintf("unknown index.type %q", c.Index.Type))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// NeedsMongo reports whether any configured component talks to MongoDB.
func (c *RankerConfig) NeedsMongo() bool {
	return c.Corpus.Type == CorpusMongo ||
		c.Index.Type == IndexMongo ||
		c.Logic.SaveRanks ||
		(c.Corpus.Type == CorpusCrawl && c.Corpus.Crawl.Persist)
}
