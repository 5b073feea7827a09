// Package markup normalizes raw HTML into title and body text plus the list
// of outbound anchors with their highlight flags.
package markup

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"web_ranker/internal/models"
)

// Normalizer turns raw markup into a models.Page. With UseReadability the
// title and body come from the readability article when it has text;
// anchors are always taken from the whole document.
type Normalizer struct {
	UseReadability bool
}

func (n Normalizer) Normalize(raw []byte, contentType, pageURL string) (*models.Page, error) {
	var r io.Reader = bytes.NewReader(raw)
	if decoded, err := charset.NewReader(r, contentType); err == nil {
		r = decoded
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode markup: %w", err)
	}

	root, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	page := &models.Page{Anchors: ExtractAnchors(root)}

	doc := goquery.NewDocumentFromNode(root)
	page.Title = extractTitle(doc)
	page.Body = extractBody(doc)

	if n.UseReadability {
		article, err := ExtractArticle(decoded, pageURL)
		if err == nil && article.Text != "" {
			if article.Title != "" {
				page.Title = article.Title
			}
			page.Body = article.Text
		}
	}

	return page, nil
}

// ExtractArticle runs readability over the markup and flattens the article to text.
func ExtractArticle(raw []byte, pageURL string) (*models.ExtractedArticle, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(bytes.NewReader(raw), parsedURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript, figure, aside").Remove()

	return &models.ExtractedArticle{
		Title:   collapse(article.Title),
		Text:    collapse(textOf(doc.Nodes...)),
		HTML:    article.Content,
		Excerpt: article.Excerpt,
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	if title := collapse(doc.Find("title").First().Text()); title != "" {
		return title
	}
	for _, heading := range []string{"h1", "h2", "h3"} {
		sel := doc.Find("body " + heading).First()
		if sel.Length() > 0 {
			return collapse(textOf(sel.Nodes...))
		}
	}
	return ""
}

func extractBody(doc *goquery.Document) string {
	body := doc.Find("body")
	body.Find("script, style, noscript").Remove()
	return collapse(textOf(body.Nodes...))
}

// textOf concatenates text nodes, with a space after every element so that
// adjacent block contents do not run together.
func textOf(nodes ...*html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(c.Data)
			case html.ElementNode, html.DocumentNode:
				walk(c)
				sb.WriteByte(' ')
			}
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findBody(root *html.Node) *html.Node {
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			return n
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return nil
}
