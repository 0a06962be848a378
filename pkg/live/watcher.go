package live

import (
	"github.com/japaniel/lexilight/pkg/highlight"
	"golang.org/x/net/html"
)

// Roots returns the inserted subtrees worth a scoped pass. Only element nodes
// count; text inserted on its own waits for the next full pass. Insertions into
// skipped, editable or already highlighted containers are ignored, as are
// skipped elements themselves.
func Roots(ev Insertion) []*html.Node {
	if !acceptsParent(ev.Parent) {
		return nil
	}
	var roots []*html.Node
	for _, n := range ev.Nodes {
		if n == nil || n.Type != html.ElementNode {
			continue
		}
		if highlight.IsSkippedTag(n) || highlight.IsMarked(n) || highlight.IsEditable(n) {
			continue
		}
		roots = append(roots, n)
	}
	return roots
}

func acceptsParent(p *html.Node) bool {
	if p == nil {
		return false
	}
	for a := p; a != nil; a = a.Parent {
		if highlight.IsSkippedTag(a) || highlight.IsMarked(a) {
			return false
		}
	}
	return !highlight.IsEditable(p)
}

// pruneRoots drops roots that are detached from doc or nested inside another
// root in the same batch, keeping the first-seen order.
func pruneRoots(roots []*html.Node, attached func(*html.Node) bool) []*html.Node {
	set := make(map[*html.Node]bool, len(roots))
	for _, r := range roots {
		set[r] = true
	}
	out := make([]*html.Node, 0, len(roots))
	seen := make(map[*html.Node]bool, len(roots))
	for _, r := range roots {
		if seen[r] {
			continue
		}
		seen[r] = true
		if !attached(r) {
			continue
		}
		nested := false
		for a := r.Parent; a != nil; a = a.Parent {
			if set[a] {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, r)
		}
	}
	return out
}
