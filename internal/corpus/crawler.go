package corpus

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"

	"web_ranker/internal/models"
	"web_ranker/internal/utils"
)

const (
	DefaultMaxDepth = 2
	DefaultMaxPages = 500
	robotsTimeout   = 10 * time.Second
)

// Saver persists crawled pages, typically db.MongoDB.
type Saver interface {
	SaveDocument(doc *models.Document) error
}

type CrawlOptions struct {
	StartURLs       []string
	FollowPatterns  []string
	ExcludePatterns []string
	// MaxDepth counts link hops from a start URL.
	MaxDepth    int
	MaxPages    int
	Parallelism int
	Delay       time.Duration
	// UserAgent empty means a random browser agent per request.
	UserAgent     string
	SameHost      bool
	RespectRobots bool
}

// Crawler fetches a corpus over HTTP with colly. Anchors are followed
// breadth first within the depth limit; every HTML response becomes a
// document named after the last path segment of its URL.
type Crawler struct {
	Options CrawlOptions
	Saver   Saver
	Logger  zerolog.Logger

	client *http.Client
	hosts  map[string]bool

	mu     sync.Mutex
	robots map[string]*robotstxt.Group
	docs   []models.RawDocument
}

func NewCrawler(opts CrawlOptions, saver Saver, logger zerolog.Logger) *Crawler {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 2
	}
	return &Crawler{
		Options: opts,
		Saver:   saver,
		Logger:  logger,
		client:  &http.Client{Timeout: robotsTimeout},
	}
}

func (c *Crawler) Load(ctx context.Context) ([]models.RawDocument, error) {
	if len(c.Options.StartURLs) == 0 {
		return nil, fmt.Errorf("crawler: no start urls")
	}

	c.mu.Lock()
	c.docs = nil
	c.robots = make(map[string]*robotstxt.Group)
	c.mu.Unlock()

	c.hosts = make(map[string]bool)
	for _, start := range c.Options.StartURLs {
		u, err := url.Parse(start)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("crawler: bad start url %q", start)
		}
		c.hosts[u.Host] = true
	}

	collector, err := c.newCollector(ctx)
	if err != nil {
		return nil, err
	}

	for _, start := range c.Options.StartURLs {
		if !c.allowed(start) {
			c.Logger.Warn().Str("url", start).Msg("start url is not allowed, skipping")
			continue
		}
		if err := collector.Visit(start); err != nil {
			c.Logger.Warn().Err(err).Str("url", start).Msg("cannot visit start url")
		}
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	docs := c.docs
	c.docs = nil
	c.mu.Unlock()

	// async responses arrive in any order
	slices.SortFunc(docs, func(a, b models.RawDocument) int { return cmp.Compare(a.URL, b.URL) })

	c.Logger.Info().Int("documents", len(docs)).Msg("crawl finished")
	return uniqueNames(docs, c.Logger), nil
}

func (c *Crawler) newCollector(ctx context.Context) (*colly.Collector, error) {
	opts := []func(*colly.Collector){
		colly.Async(true),
		colly.MaxDepth(c.Options.MaxDepth + 1),
	}
	if c.Options.UserAgent != "" {
		opts = append(opts, colly.UserAgent(c.Options.UserAgent))
	}
	collector := colly.NewCollector(opts...)
	// robots.txt is checked by allowed() with a per-host group
	collector.IgnoreRobotsTxt = true
	if c.Options.UserAgent == "" {
		extensions.RandomUserAgent(collector)
	}

	err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.Options.Parallelism,
		Delay:       c.Options.Delay,
	})
	if err != nil {
		return nil, fmt.Errorf("crawler: limit rule: %w", err)
	}

	collector.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "html") {
			return
		}
		c.collect(r.Request.URL.String(), contentType, r.Body, r.StatusCode)
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if ctx.Err() != nil || c.full() {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" {
			return
		}
		if u, err := url.Parse(link); err == nil {
			u.Fragment = ""
			link = u.String()
		}
		if !c.allowed(link) {
			return
		}
		// already visited and max depth errors are expected here
		_ = e.Request.Visit(link)
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.Logger.Warn().Err(err).Str("url", r.Request.URL.String()).Int("status", r.StatusCode).Msg("fetch failed")
	})

	return collector, nil
}

func (c *Crawler) collect(pageURL, contentType string, body []byte, status int) {
	c.mu.Lock()
	if len(c.docs) >= c.Options.MaxPages {
		c.mu.Unlock()
		return
	}
	doc := models.RawDocument{
		Name:        documentName(pageURL),
		URL:         pageURL,
		ContentType: contentType,
		Content:     body,
	}
	c.docs = append(c.docs, doc)
	c.mu.Unlock()

	c.Logger.Debug().Str("url", pageURL).Str("name", doc.Name).Msg("page fetched")

	if c.Saver == nil {
		return
	}
	now := time.Now().Unix()
	html := string(body)
	record := &models.Document{
		URL:           pageURL,
		NormalizedURL: utils.NormalizeURL(pageURL),
		Source:        "crawler",
		HTMLContent:   html,
		ContentHash:   utils.ComputeContentHash(html),
		FirstScraped:  now,
		LastScraped:   now,
		ContentLength: len(body),
		StatusCode:    status,
		IsValid:       true,
	}
	if err := c.Saver.SaveDocument(record); err != nil {
		c.Logger.Error().Err(err).Str("url", pageURL).Msg("cannot save crawled page")
	}
}

func (c *Crawler) full() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs) >= c.Options.MaxPages
}

// allowed applies host, pattern and robots.txt rules to an absolute URL.
func (c *Crawler) allowed(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if c.Options.SameHost && !c.hosts[u.Host] {
		return false
	}
	if !utils.URLShouldBeFollowed(link, c.Options.FollowPatterns, c.Options.ExcludePatterns) {
		return false
	}
	if !c.Options.RespectRobots {
		return true
	}
	group := c.robotsGroup(u)
	if group == nil {
		return true
	}
	return group.Test(u.EscapedPath())
}

// robotsGroup fetches robots.txt once per host. A missing or broken file allows everything.
func (c *Crawler) robotsGroup(u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	c.mu.Lock()
	group, ok := c.robots[key]
	c.mu.Unlock()
	if ok {
		return group
	}

	group = c.fetchRobots(key)

	c.mu.Lock()
	c.robots[key] = group
	c.mu.Unlock()
	return group
}

func (c *Crawler) fetchRobots(base string) *robotstxt.Group {
	robotsURL := base + "/robots.txt"
	resp, err := c.client.Get(robotsURL)
	if err != nil {
		c.Logger.Warn().Err(err).Str("url", robotsURL).Msg("cannot fetch robots.txt, ignoring")
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		c.Logger.Warn().Err(err).Str("url", robotsURL).Msg("cannot parse robots.txt, ignoring")
		return nil
	}

	agent := c.Options.UserAgent
	if agent == "" {
		agent = "*"
	}
	c.Logger.Debug().Str("url", robotsURL).Msg("robots.txt loaded")
	return data.FindGroup(agent)
}
