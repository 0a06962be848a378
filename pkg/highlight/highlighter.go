package highlight

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Scope labels a pass by how its root was chosen.
type Scope string

const (
	ScopeFull    Scope = "full"
	ScopeSubtree Scope = "subtree"
)

// Result summarizes one pass.
type Result struct {
	Leaves   int            // eligible text leaves visited
	Replaced int            // leaves rewritten
	Spans    int            // spans created
	Counts   map[string]int // spans per word id
}

// Recorder observes completed passes. metrics.Recorder implements it.
type Recorder interface {
	ObservePass(scope Scope, res Result, elapsed time.Duration)
}

// Highlighter runs the compile -> scan -> splice pipeline. It holds no word
// state: every pass receives the word list it should use.
type Highlighter struct {
	// HugWhitespace keeps leading/trailing whitespace of a match outside its span.
	HugWhitespace bool
	// Logger is used for diagnostics. nil means no logging.
	Logger *log.Logger
	// Recorder, if set, is told about every pass that did work.
	Recorder Recorder
}

// New returns a Highlighter with default settings.
func New() *Highlighter {
	return &Highlighter{}
}

// Pass highlights every tracked word under root. An empty or nil word list is
// a no-op and leaves existing highlights in place.
func (h *Highlighter) Pass(root *html.Node, words WordList, scope Scope) Result {
	res := Result{Counts: map[string]int{}}
	if root == nil || len(words) == 0 {
		return res
	}
	start := time.Now()

	p, ok := Compile(words.Ordered())
	if !ok {
		return res
	}

	// Collect first: splicing replaces nodes and would break a walk in progress.
	leaves := TextLeaves(root)
	res.Leaves = len(leaves)
	for _, leaf := range leaves {
		if leaf.Parent == nil {
			if h.Logger != nil {
				h.Logger.Printf("highlight: skipping detached text node")
			}
			continue
		}
		spans, replaced := splice(leaf, p, h.HugWhitespace, res.Counts)
		if replaced {
			res.Replaced++
			res.Spans += spans
		}
	}

	if h.Logger != nil && res.Spans > 0 {
		h.Logger.Printf("highlight: %s pass wrapped %d matches in %d of %d text nodes", scope, res.Spans, res.Replaced, res.Leaves)
	}
	if h.Recorder != nil {
		h.Recorder.ObservePass(scope, res, time.Since(start))
	}
	return res
}

// ContentRoot returns the <body> element of a parsed document, or doc itself
// when there is none.
func ContentRoot(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	if body := findBody(doc); body != nil {
		return body
	}
	return doc
}

// SelectRoot returns the first element under doc matching the CSS selector,
// falling back to ContentRoot when the selector is empty or matches nothing.
func SelectRoot(doc *html.Node, selector string) (*html.Node, error) {
	if strings.TrimSpace(selector) == "" {
		return ContentRoot(doc), nil
	}
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("parse root selector %q: %w", selector, err)
	}
	if n := cascadia.Query(doc, sel); n != nil {
		return n, nil
	}
	return ContentRoot(doc), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
