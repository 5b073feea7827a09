package utils

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBasename(t *testing.T) {
	cases := map[string]string{
		"www.x.com/y/z.html":            "z.html",
		"https://x.com/a/b.html?q=1":    "b.html",
		"https://x.com/a/b.html#top":    "b.html",
		"c.html":                        "c.html",
		"/docs/sub/d.htm":               "d.htm",
		`C:\corpus\e.html`:              "e.html",
		"https://x.com/dir/":            "",
		"  https://x.com/f.html  ":      "f.html",
		"https://x.com/g.html?x=a/b#c/": "g.html",
	}
	for in, want := range cases {
		assert.Equal(t, want, Basename(in), "Basename(%q)", in)
	}
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords(" \n\t "))
	assert.Equal(t, 3, CountWords("one  two\n\tthree"))
	assert.Equal(t, 2, CountWords("<p>hello</p> <b>world</b>"))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/a", NormalizeURL("https://www.example.com/a#frag"))
	assert.Equal(t, "https://example.com/a", NormalizeURL("//example.com/a"))
	assert.Equal(t, "a.html", NormalizeURL("a.html"))
}

func TestURLShouldBeFollowed(t *testing.T) {
	follow := []string{`/wiki/`}
	exclude := []string{`Special:`, `(`}

	assert.True(t, URLShouldBeFollowed("https://e.org/wiki/Go", follow, exclude))
	assert.False(t, URLShouldBeFollowed("https://e.org/wiki/Special:Random", follow, exclude))
	assert.False(t, URLShouldBeFollowed("https://e.org/about", follow, exclude))
	assert.True(t, URLShouldBeFollowed("https://e.org/about", nil, nil))
}

func TestComputeContentHash(t *testing.T) {
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", ComputeContentHash("hello"))
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Str("doc", "a.html").Msg("visible")
	assert.Contains(t, buf.String(), `"doc":"a.html"`)

	assert.Equal(t, zerolog.InfoLevel, newLogger(&buf, "bogus", "json").GetLevel())
}
