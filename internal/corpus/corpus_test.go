package corpus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web_ranker/internal/models"
)

func names(docs []models.RawDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	sort.Strings(out)
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDirLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.html"), "<p>a</p>")
	writeFile(t, filepath.Join(root, "sub", "b.HTM"), "<p>b</p>")
	writeFile(t, filepath.Join(root, "sub", "notes.txt"), "skip me")
	writeFile(t, filepath.Join(root, ".hidden", "c.html"), "<p>c</p>")
	writeFile(t, filepath.Join(root, ".d.html"), "<p>d</p>")
	// same name deeper in the tree: the first one walked wins
	writeFile(t, filepath.Join(root, "z", "a.html"), "<p>other a</p>")

	docs, err := Dir{Root: root, Logger: zerolog.Nop()}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html", "b.HTM"}, names(docs))
	for _, d := range docs {
		if d.Name == "a.html" {
			assert.Equal(t, "<p>a</p>", string(d.Content))
		}
	}
}

func TestDirMissingRoot(t *testing.T) {
	_, err := Dir{Root: filepath.Join(t.TempDir(), "nope"), Logger: zerolog.Nop()}.Load(context.Background())
	assert.Error(t, err)
}

type fakeLoader struct {
	docs []models.Document
	err  error
}

func (f fakeLoader) LoadDocuments(context.Context) ([]models.Document, error) {
	return f.docs, f.err
}

func TestStoreLoad(t *testing.T) {
	loader := fakeLoader{docs: []models.Document{
		{URL: "https://www.x.org/wiki/Go.html", NormalizedURL: "https://x.org/wiki/Go.html", HTMLContent: "<p>go</p>"},
		{URL: "https://x.org/docs/", HTMLContent: "<p>index</p>"},
		{URL: "https://y.org/Go.html?lang=en", NormalizedURL: "https://y.org/Go.html?lang=en", HTMLContent: "<p>dup</p>"},
	}}

	docs, err := Store{Loader: loader, Logger: zerolog.Nop()}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Go.html", docs[0].Name)
	assert.Equal(t, "<p>go</p>", string(docs[0].Content))
	assert.Equal(t, "index.html", docs[1].Name)

	_, err = Store{Loader: fakeLoader{err: fmt.Errorf("down")}, Logger: zerolog.Nop()}.Load(context.Background())
	assert.Error(t, err)
}

type recordingSaver struct {
	mu   sync.Mutex
	urls []string
}

func (s *recordingSaver) SaveDocument(doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, doc.URL)
	return nil
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/index.html":     `<html><body><a href="a.html">a</a> <b><a href="/docs/b.html#top">b</a></b> <a href="/private/c.html">c</a> <a href="/skip/e.html">e</a></body></html>`,
		"/a.html":         `<html><body><a href="/deep/d.html">d</a></body></html>`,
		"/docs/b.html":    `<html><body><a href="/index.html">home</a></body></html>`,
		"/private/c.html": `<html><body>secret</body></html>`,
		"/skip/e.html":    `<html><body>excluded</body></html>`,
		"/deep/d.html":    `<html><body><a href="/deeper/f.html">f</a></body></html>`,
		"/deeper/f.html":  `<html><body>too deep</body></html>`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlerFollowsRules(t *testing.T) {
	srv := newSite(t)
	saver := &recordingSaver{}

	c := NewCrawler(CrawlOptions{
		StartURLs:       []string{srv.URL + "/index.html"},
		ExcludePatterns: []string{`/skip/`},
		MaxDepth:        2,
		UserAgent:       "web_ranker-test",
		SameHost:        true,
		RespectRobots:   true,
	}, saver, zerolog.Nop())

	docs, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html", "b.html", "d.html", "index.html"}, names(docs))
	assert.Len(t, saver.urls, 4)
}

func TestCrawlerPageCapAndDepth(t *testing.T) {
	srv := newSite(t)

	c := NewCrawler(CrawlOptions{
		StartURLs: []string{srv.URL + "/index.html"},
		MaxDepth:  1,
		MaxPages:  2,
		UserAgent: "web_ranker-test",
	}, nil, zerolog.Nop())

	docs, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, d := range docs {
		assert.NotEqual(t, "d.html", d.Name)
	}
}

func TestCrawlerNeedsStartURLs(t *testing.T) {
	_, err := NewCrawler(CrawlOptions{}, nil, zerolog.Nop()).Load(context.Background())
	assert.Error(t, err)
}

func TestStaticIsACopy(t *testing.T) {
	s := Static{{Name: "a"}}
	docs, err := s.Load(context.Background())
	require.NoError(t, err)
	docs[0].Name = "b"
	assert.Equal(t, "a", s[0].Name)
}
