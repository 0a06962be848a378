// Package live keeps a document highlighted while it changes: word list
// deliveries trigger full passes, and subtrees the host inserts get scoped
// passes, both coalesced by a debounce window.
package live

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Insertion describes nodes a host added under Parent.
type Insertion struct {
	Parent *html.Node
	Nodes  []*html.Node
	// Roots are the Nodes worth a scoped pass, computed under the document
	// lock so subscribers never walk the tree unlocked.
	Roots []*html.Node
}

// Document is a parsed page whose tree is only touched under its lock. Hosts
// mutate it through AppendChild/InsertBefore so subscribers hear about new
// subtrees; highlight passes run through Do and do not emit events.
type Document struct {
	mu   sync.Mutex
	root *html.Node

	subMu  sync.Mutex
	subs   map[int]func(Insertion)
	nextID int
}

// NewDocument wraps an already parsed tree.
func NewDocument(root *html.Node) *Document {
	return &Document{root: root, subs: make(map[int]func(Insertion))}
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return NewDocument(root), nil
}

// Do runs fn with exclusive access to the tree.
func (d *Document) Do(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// Subscribe registers fn for insertion events. The returned func removes it.
// fn runs after the insertion, outside the document lock; it must not walk the
// tree and should rely on Insertion.Roots instead.
func (d *Document) Subscribe(fn func(Insertion)) func() {
	d.subMu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	d.subMu.Unlock()
	return func() {
		d.subMu.Lock()
		delete(d.subs, id)
		d.subMu.Unlock()
	}
}

// AppendChild adds nodes as the last children of parent.
func (d *Document) AppendChild(parent *html.Node, nodes ...*html.Node) error {
	return d.insert(parent, nil, nodes)
}

// InsertBefore adds nodes to parent before ref.
func (d *Document) InsertBefore(parent, ref *html.Node, nodes ...*html.Node) error {
	return d.insert(parent, ref, nodes)
}

func (d *Document) insert(parent, ref *html.Node, nodes []*html.Node) error {
	if parent == nil {
		return fmt.Errorf("insert: nil parent")
	}
	d.mu.Lock()
	if !d.containsLocked(parent) {
		d.mu.Unlock()
		return fmt.Errorf("insert: parent is not attached to the document")
	}
	if ref != nil && ref.Parent != parent {
		d.mu.Unlock()
		return fmt.Errorf("insert: reference node is not a child of parent")
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		if ref == nil {
			parent.AppendChild(n)
		} else {
			parent.InsertBefore(n, ref)
		}
	}
	ev := Insertion{Parent: parent, Nodes: nodes}
	ev.Roots = Roots(ev)
	d.mu.Unlock()

	d.notify(ev)
	return nil
}

func (d *Document) notify(ev Insertion) {
	d.subMu.Lock()
	subs := make([]func(Insertion), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.subMu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Contains reports whether n is still attached to the document tree.
func (d *Document) Contains(n *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.containsLocked(n)
}

func (d *Document) containsLocked(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document, ignoring errors.
func (d *Document) String() string {
	var b strings.Builder
	_ = d.Render(&b)
	return b.String()
}

// ParseFragment parses markup in the context of parent, the way innerHTML would.
func ParseFragment(markup string, parent *html.Node) ([]*html.Node, error) {
	ctx := parent
	if ctx == nil || ctx.Type != html.ElementNode {
		ctx = &html.Node{Type: html.ElementNode, Data: "body"}
	}
	if ctx.DataAtom == 0 {
		// Hand-built elements often carry only Data; the parser insists the
		// two agree. Work on a copy so the caller's node is left alone.
		c := *ctx
		c.Data = strings.ToLower(c.Data)
		c.DataAtom = atom.Lookup([]byte(c.Data))
		ctx = &c
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}
