package reader

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Article is the readable part of a page.
type Article struct {
	Title    string
	Byline   string
	SiteName string
	// Text is the plain text of the article.
	Text string
	// Root is a parsed document whose body holds the article content.
	Root *html.Node
}

// Extract runs reader-mode extraction over body. Ruby annotations are removed
// first.
func Extract(body []byte, pageURL string) (*Article, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(body)), u)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	root, err := html.Parse(strings.NewReader("<html><head></head><body>" + article.Content + "</body></html>"))
	if err != nil {
		return nil, fmt.Errorf("parse article content: %w", err)
	}
	return &Article{
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Text:     article.TextContent,
		Root:     root,
	}, nil
}
