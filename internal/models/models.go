package models

import "strings"

// RawDocument is one corpus entry before normalization.
type RawDocument struct {
	Name        string
	URL         string
	ContentType string
	Content     []byte
}

type Anchor struct {
	Target      string
	Highlighted bool
}

// Page is the normalized form of a document: readable text plus outbound anchors.
type Page struct {
	Title   string
	Body    string
	Anchors []Anchor
}

type ExtractedArticle struct {
	Title   string
	Text    string
	HTML    string
	Excerpt string
}

// Document is a crawled page as stored in the documents collection.
type Document struct {
	ID            string `bson:"_id,omitempty"`
	URL           string `bson:"url"`
	NormalizedURL string `bson:"normalized_url"`
	Source        string `bson:"source"`
	HTMLContent   string `bson:"html_content"`
	Title         string `bson:"title"`
	Content       string `bson:"content"`
	ContentHash   string `bson:"content_hash"`
	FirstScraped  int64  `bson:"first_scraped"`
	LastScraped   int64  `bson:"last_scraped"`
	ScrapedCount  int    `bson:"scraped_count"`
	ContentLength int    `bson:"content_length"`
	StatusCode    int    `bson:"status_code"`
	IsValid       bool   `bson:"is_valid"`
}

type RankRecord struct {
	Name          string  `bson:"name"`
	Score         float64 `bson:"score"`
	Quality       float64 `bson:"quality"`
	ClusterID     int     `bson:"cluster_id"`
	Authoritative bool    `bson:"authoritative"`
	RunID         string  `bson:"run_id"`
	UpdatedAt     int64   `bson:"updated_at"`
}

// IndexEntry is what gets handed to the search index: authoritative documents only.
type IndexEntry struct {
	Name       string   `bson:"name"`
	URL        string   `bson:"url"`
	Title      string   `bson:"title"`
	Body       string   `bson:"body"`
	Authority  float64  `bson:"authority"`
	Duplicates []string `bson:"duplicates"`
	RunID      string   `bson:"run_id"`
}

// DuplicatesField is the stored "duplicates" field: comma-joined names.
func (e IndexEntry) DuplicatesField() string {
	return strings.Join(e.Duplicates, ",")
}

type RunHistory struct {
	ID         string `bson:"_id"`
	StartedAt  int64  `bson:"started_at"`
	FinishedAt int64  `bson:"finished_at"`
	Documents  int    `bson:"documents"`
	Skipped    int    `bson:"skipped"`
	Clusters   int    `bson:"clusters"`
	Indexed    int    `bson:"indexed"`
	Rounds     int    `bson:"rounds"`
	Converged  bool   `bson:"converged"`
	Error      string `bson:"error,omitempty"`
}
