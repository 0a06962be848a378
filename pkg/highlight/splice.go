package highlight

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LevelClass returns the presentation class for a level, e.g. "highlight-level-3".
func LevelClass(l Level) string {
	return fmt.Sprintf("highlight-level-%d", l.Effective())
}

// NewSpan builds the annotated element for one matched occurrence.
func NewSpan(text string, w TrackedWord) *html.Node {
	span := &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr: []html.Attribute{
			{Key: "class", Val: MarkerClass + " " + LevelClass(w.Level)},
			{Key: "title", Val: w.Definition},
		},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return span
}

// Splice rewrites leaf so every match of p is wrapped in a span. Leaves
// without matches, and leaves that are no longer attached, are left alone.
// It returns the spans created and whether leaf was replaced.
func Splice(leaf *html.Node, p *Pattern, hug bool) (int, bool) {
	return splice(leaf, p, hug, nil)
}

func splice(leaf *html.Node, p *Pattern, hug bool, counts map[string]int) (int, bool) {
	if leaf == nil || leaf.Type != html.TextNode || leaf.Parent == nil || p == nil {
		return 0, false
	}
	segs := p.Segments(leaf.Data, hug)
	if !HasSpans(segs) {
		return 0, false
	}

	nodes := make([]*html.Node, 0, len(segs))
	spans := 0
	for _, s := range segs {
		if s.Word == nil {
			nodes = append(nodes, &html.Node{Type: html.TextNode, Data: s.Text})
			continue
		}
		nodes = append(nodes, NewSpan(s.Text, *s.Word))
		spans++
		if counts != nil {
			counts[s.Word.ID]++
		}
	}

	replaceWith(leaf, nodes)
	return spans, true
}

// replaceWith swaps old for nodes in place. Callers hold the document lock,
// so no observer sees the intermediate state.
func replaceWith(old *html.Node, nodes []*html.Node) {
	parent := old.Parent
	for _, n := range nodes {
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
}
