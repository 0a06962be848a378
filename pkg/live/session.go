package live

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/japaniel/lexilight/pkg/highlight"
	"golang.org/x/net/html"
)

// Options configures a Session.
type Options struct {
	// Window is the debounce quiet period. Zero means DefaultWindow.
	Window time.Duration
	// Selector limits passes to the first matching element. Empty means <body>.
	Selector string
	// OnPass is called after every pass, with the document lock held.
	OnPass func(scope highlight.Scope, res highlight.Result)
	Logger *log.Logger
}

// Session keeps one document highlighted as its word list changes and as the
// host inserts new content.
type Session struct {
	ID string

	doc  *Document
	hl   *highlight.Highlighter
	opts Options
	deb  *Debouncer

	mu           sync.Mutex
	words        highlight.WordList
	pendingFull  bool
	pendingRoots []*html.Node
	unsubscribe  func()
	closed       bool
}

// NewSession attaches a session to doc. Call Start to begin watching insertions.
func NewSession(doc *Document, hl *highlight.Highlighter, opts Options) *Session {
	if hl == nil {
		hl = highlight.New()
	}
	s := &Session{
		ID:   uuid.NewString(),
		doc:  doc,
		hl:   hl,
		opts: opts,
	}
	s.deb = NewDebouncer(opts.Window, s.run)
	return s
}

// Document returns the document the session highlights.
func (s *Session) Document() *Document { return s.doc }

// Start subscribes to insertion events.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil || s.closed {
		return
	}
	s.unsubscribe = s.doc.Subscribe(s.onInsert)
}

// Deliver replaces the word list and schedules a full pass. An empty list is
// ignored so highlights already on the page stay.
func (s *Session) Deliver(words highlight.WordList) {
	if len(words) == 0 {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.words = words
	s.pendingFull = true
	s.mu.Unlock()
	s.deb.Trigger()
}

// Words returns the latest delivered list.
func (s *Session) Words() highlight.WordList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.words
}

func (s *Session) onInsert(ev Insertion) {
	roots := ev.Roots
	if len(roots) == 0 {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pendingRoots = append(s.pendingRoots, roots...)
	s.mu.Unlock()
	s.deb.Trigger()
}

// Flush runs any scheduled pass immediately.
func (s *Session) Flush() bool {
	return s.deb.Flush()
}

// Close stops watching and cancels scheduled work.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.pendingRoots = nil
	s.pendingFull = false
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	s.deb.Stop()
}

func (s *Session) run() {
	s.mu.Lock()
	words := s.words
	full := s.pendingFull
	roots := s.pendingRoots
	s.pendingFull = false
	s.pendingRoots = nil
	s.mu.Unlock()

	if len(words) == 0 || (!full && len(roots) == 0) {
		return
	}

	s.doc.Do(func(doc *html.Node) {
		content, err := highlight.SelectRoot(doc, s.opts.Selector)
		if err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Printf("session %s: %v", s.ID, err)
			}
			content = highlight.ContentRoot(doc)
		}

		if full {
			s.pass(content, words, highlight.ScopeFull)
			return
		}
		inContent := func(n *html.Node) bool { return within(n, content) }
		for _, r := range pruneRoots(roots, inContent) {
			s.pass(r, words, highlight.ScopeSubtree)
		}
	})
}

func (s *Session) pass(root *html.Node, words highlight.WordList, scope highlight.Scope) {
	res := s.hl.Pass(root, words, scope)
	if s.opts.OnPass != nil {
		s.opts.OnPass(scope, res)
	}
}

// within reports whether n is root or one of its descendants.
func within(n, root *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}
