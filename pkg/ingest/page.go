package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/japaniel/lexilight/pkg/reader"
	"golang.org/x/net/html"
)

// Format selects how a highlighted page is written out.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts "html", "markdown" or "" (html).
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// LoadPage parses body into a Page. In reader mode only the extracted article
// is kept, so callers should not apply a content selector to it.
func LoadPage(body []byte, pageURL string, readerMode bool) (Page, error) {
	page := Page{URL: pageURL}
	if readerMode {
		article, err := reader.Extract(body, pageURL)
		if err != nil {
			return page, err
		}
		page.Title, page.SiteName, page.Doc = article.Title, article.SiteName, article.Root
		return page, nil
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return page, fmt.Errorf("parse html: %w", err)
	}
	page.Doc = doc
	page.Title = documentTitle(doc)
	return page, nil
}

// Render writes the page as a full HTML document, or its content root as markdown.
func Render(w io.Writer, p Page, f Format) error {
	if f == FormatMarkdown {
		out, err := reader.RenderMarkdown(highlight.ContentRoot(p.Doc))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out+"\n")
		return err
	}
	return html.Render(w, p.Doc)
}

// documentTitle returns the text of the first <title> element.
func documentTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := documentTitle(c); t != "" {
			return t
		}
	}
	return ""
}
