package reader

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/japaniel/lexilight/pkg/highlight"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// MarkdownRenderer converts highlighted trees to markdown, rendering every
// highlight as bold text.
type MarkdownRenderer struct {
	converter *md.Converter
}

// NewMarkdownRenderer creates a renderer with GitHub-flavored output.
func NewMarkdownRenderer() *MarkdownRenderer {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converter.AddRules(md.Rule{
		Filter: []string{"span"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			if !selec.HasClass(highlight.MarkerClass) {
				return nil
			}
			content = strings.TrimSpace(content)
			if content == "" {
				return md.String("")
			}
			return md.String(opt.StrongDelimiter + content + opt.StrongDelimiter)
		},
	})
	return &MarkdownRenderer{converter: converter}
}

// Render converts root to markdown.
func (r *MarkdownRenderer) Render(root *html.Node) (string, error) {
	if root == nil {
		return "", nil
	}
	var sb strings.Builder
	if err := html.Render(&sb, root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	out, err := r.converter.ConvertString(sb.String())
	if err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	out = excessiveLinesRe.ReplaceAllString(out, "\n\n\n")
	return strings.TrimSpace(out), nil
}

// RenderMarkdown is a convenience wrapper around a fresh MarkdownRenderer.
func RenderMarkdown(root *html.Node) (string, error) {
	return NewMarkdownRenderer().Render(root)
}
