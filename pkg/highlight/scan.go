package highlight

import (
	"iter"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkerClass is stamped on every span the splicer creates. Text inside an
// element carrying it is never scanned again.
const MarkerClass = "highlighted-word"

// skipParents are containers whose text is never visible prose.
var skipParents = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Textarea: true,
	atom.Input:    true,
}

// IsSkippedTag reports whether n is an element whose text content is never
// highlighted.
func IsSkippedTag(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if n.DataAtom != 0 {
		return skipParents[n.DataAtom]
	}
	return skipParents[atom.Lookup([]byte(strings.ToLower(n.Data)))]
}

// IsEditable mirrors the browser's isContentEditable: the nearest ancestor
// with a contenteditable attribute decides.
func IsEditable(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		v, ok := attr(n, "contenteditable")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "true", "plaintext-only":
			return true
		case "false":
			return false
		}
	}
	return false
}

// IsMarked reports whether n is a span produced by a previous pass.
func IsMarked(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return HasClass(n, MarkerClass)
}

// Eligible reports whether a text leaf may be rewritten.
func Eligible(leaf *html.Node) bool {
	if leaf == nil || leaf.Type != html.TextNode {
		return false
	}
	parent := leaf.Parent
	if parent == nil {
		return false
	}
	if IsSkippedTag(parent) || IsMarked(parent) || IsEditable(parent) {
		return false
	}
	return true
}

// Leaves yields the eligible text leaves under root in document order. The
// sequence is lazy and can be ranged over more than once, but it must not be
// consumed while the tree is being rewritten; use TextLeaves for that.
func Leaves(root *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		if root == nil {
			return
		}
		walk(root, yield)
	}
}

func walk(n *html.Node, yield func(*html.Node) bool) bool {
	if n.Type == html.TextNode {
		if Eligible(n) && n.Data != "" {
			return yield(n)
		}
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, yield) {
			return false
		}
	}
	return true
}

// TextLeaves drains Leaves into a slice so callers can mutate the tree safely.
func TextLeaves(root *html.Node) []*html.Node {
	return slices.Collect(Leaves(root))
}

// HasClass reports whether n's class attribute contains class.
func HasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}
