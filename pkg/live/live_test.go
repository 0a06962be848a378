package live

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type passLog struct {
	mu     sync.Mutex
	scopes []highlight.Scope
	spans  []int
}

func (p *passLog) record(scope highlight.Scope, res highlight.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scopes = append(p.scopes, scope)
	p.spans = append(p.spans, res.Spans)
}

func (p *passLog) snapshot() ([]highlight.Scope, []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]highlight.Scope(nil), p.scopes...), append([]int(nil), p.spans...)
}

func newDoc(t *testing.T, body string) *Document {
	t.Helper()
	d, err := Parse(strings.NewReader("<html><head></head><body>" + body + "</body></html>"))
	require.NoError(t, err)
	return d
}

func bodyOf(d *Document) *html.Node {
	var body *html.Node
	d.Do(func(root *html.Node) { body = highlight.ContentRoot(root) })
	return body
}

func words() highlight.WordList {
	return highlight.WordList{
		"1": {ID: "1", Word: "apple", Level: 2, Definition: "a fruit"},
	}
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { runs.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger()
	}
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, d.Pending())
}

func TestDebouncerFlushAndStop(t *testing.T) {
	var runs atomic.Int32
	d := NewDebouncer(time.Hour, func() { runs.Add(1) })

	assert.False(t, d.Flush())
	d.Trigger()
	assert.True(t, d.Pending())
	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), runs.Load())

	d.Trigger()
	d.Stop()
	d.Trigger()
	assert.False(t, d.Flush())
	assert.Equal(t, int32(1), runs.Load())
}

func TestDebouncerSerializesRuns(t *testing.T) {
	var active, overlaps, runs atomic.Int32
	var d *Debouncer
	d = NewDebouncer(5*time.Millisecond, func() {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		if runs.Add(1) == 1 {
			// A trigger during a run schedules the next cycle.
			d.Trigger()
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
	})
	defer d.Stop()

	d.Trigger()
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), overlaps.Load())
}

func TestRootsFiltersInsertions(t *testing.T) {
	d := newDoc(t, `<div id="feed"></div><div contenteditable="true"></div><span class="highlighted-word">x</span>`)
	body := bodyOf(d)
	feed := body.FirstChild
	editable := feed.NextSibling
	marked := editable.NextSibling

	p := &html.Node{Type: html.ElementNode, Data: "p"}
	script := &html.Node{Type: html.ElementNode, Data: "script"}
	text := &html.Node{Type: html.TextNode, Data: "apple"}

	assert.Equal(t, []*html.Node{p}, Roots(Insertion{Parent: feed, Nodes: []*html.Node{p, script, text}}))
	assert.Empty(t, Roots(Insertion{Parent: editable, Nodes: []*html.Node{p}}))
	assert.Empty(t, Roots(Insertion{Parent: marked, Nodes: []*html.Node{p}}))
	assert.Empty(t, Roots(Insertion{Parent: nil, Nodes: []*html.Node{p}}))
}

func TestInsertionCarriesRoots(t *testing.T) {
	d := newDoc(t, `<div id="feed"></div>`)
	feed := bodyOf(d).FirstChild

	var got []Insertion
	unsubscribe := d.Subscribe(func(ev Insertion) { got = append(got, ev) })
	defer unsubscribe()

	p := &html.Node{Type: html.ElementNode, Data: "p"}
	script := &html.Node{Type: html.ElementNode, Data: "script"}
	require.NoError(t, d.AppendChild(feed, p, script))

	require.Len(t, got, 1)
	assert.Equal(t, []*html.Node{p, script}, got[0].Nodes)
	assert.Equal(t, []*html.Node{p}, got[0].Roots)
}

func TestParseFragmentBareContext(t *testing.T) {
	tests := []struct {
		name   string
		parent *html.Node
	}{
		{name: "no atom", parent: &html.Node{Type: html.ElementNode, Data: "section"}},
		{name: "upper case", parent: &html.Node{Type: html.ElementNode, Data: "DIV"}},
		{name: "unknown element", parent: &html.Node{Type: html.ElementNode, Data: "x-feed"}},
		{name: "nil", parent: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := ParseFragment(`<p>apple</p>`, tt.parent)
			require.NoError(t, err)
			require.Len(t, nodes, 1)
			assert.Equal(t, "p", nodes[0].Data)
			if tt.parent != nil {
				assert.Zero(t, tt.parent.DataAtom)
			}
		})
	}
}

func TestSessionDeliverRunsFullPass(t *testing.T) {
	d := newDoc(t, `<p>an apple</p>`)
	var log passLog
	s := NewSession(d, nil, Options{Window: time.Hour, OnPass: log.record})
	s.Start()
	defer s.Close()

	s.Deliver(words())
	require.True(t, s.Flush())

	scopes, spans := log.snapshot()
	assert.Equal(t, []highlight.Scope{highlight.ScopeFull}, scopes)
	assert.Equal(t, []int{1}, spans)
	assert.Contains(t, d.String(), `<span class="highlighted-word highlight-level-2" title="a fruit">apple</span>`)
}

func TestSessionEmptyDeliveryKeepsHighlights(t *testing.T) {
	d := newDoc(t, `<p>an apple</p>`)
	var log passLog
	s := NewSession(d, nil, Options{Window: time.Hour, OnPass: log.record})
	defer s.Close()

	s.Deliver(words())
	s.Flush()
	before := d.String()

	s.Deliver(highlight.WordList{})
	s.Deliver(nil)
	assert.False(t, s.Flush())
	assert.Equal(t, before, d.String())
	assert.Len(t, s.Words(), 1)
}

func TestSessionScopedPassPerInsertedSubtree(t *testing.T) {
	d := newDoc(t, `<p id="old">old apple</p><div id="feed"></div>`)
	var log passLog
	s := NewSession(d, nil, Options{Window: time.Hour, OnPass: log.record})
	s.Start()
	defer s.Close()

	s.Deliver(words())
	s.Flush()
	body := bodyOf(d)
	old := body.FirstChild
	oldSpan := old.FirstChild.NextSibling
	require.True(t, highlight.IsMarked(oldSpan))

	feed := old.NextSibling
	a, err := ParseFragment(`<article>apple one</article>`, feed)
	require.NoError(t, err)
	b, err := ParseFragment(`<article>apple two <em>apple</em></article>`, feed)
	require.NoError(t, err)
	require.NoError(t, d.AppendChild(feed, a...))
	require.NoError(t, d.AppendChild(feed, b...))

	require.True(t, s.Flush())
	scopes, spans := log.snapshot()
	assert.Equal(t, []highlight.Scope{highlight.ScopeFull, highlight.ScopeSubtree, highlight.ScopeSubtree}, scopes)
	assert.Equal(t, []int{1, 1, 2}, spans)

	// Earlier highlights are untouched by scoped passes.
	assert.Same(t, oldSpan, old.FirstChild.NextSibling)
	assert.Equal(t, 4, strings.Count(d.String(), `class="highlighted-word`))
}

func TestSessionDropsNestedAndDetachedRoots(t *testing.T) {
	d := newDoc(t, `<div id="feed"></div>`)
	var log passLog
	s := NewSession(d, nil, Options{Window: time.Hour, OnPass: log.record})
	s.Start()
	defer s.Close()
	s.Deliver(words())
	s.Flush()

	feed := bodyOf(d).FirstChild
	outer := &html.Node{Type: html.ElementNode, Data: "section"}
	require.NoError(t, d.AppendChild(feed, outer))
	inner, err := ParseFragment(`<p>apple</p>`, outer)
	require.NoError(t, err)
	require.NoError(t, d.AppendChild(outer, inner...))

	gone := &html.Node{Type: html.ElementNode, Data: "aside"}
	require.NoError(t, d.AppendChild(feed, gone))
	d.Do(func(*html.Node) { feed.RemoveChild(gone) })

	require.True(t, s.Flush())
	scopes, spans := log.snapshot()
	assert.Equal(t, []highlight.Scope{highlight.ScopeFull, highlight.ScopeSubtree}, scopes)
	assert.Equal(t, []int{0, 1}, spans)
}

func TestSessionFullPassSubsumesScopedRoots(t *testing.T) {
	d := newDoc(t, `<div id="feed"></div>`)
	var log passLog
	s := NewSession(d, nil, Options{Window: time.Hour, OnPass: log.record})
	s.Start()
	defer s.Close()

	feed := bodyOf(d).FirstChild
	nodes, err := ParseFragment(`<p>apple</p>`, feed)
	require.NoError(t, err)
	require.NoError(t, d.AppendChild(feed, nodes...))
	s.Deliver(words())

	require.True(t, s.Flush())
	scopes, spans := log.snapshot()
	assert.Equal(t, []highlight.Scope{highlight.ScopeFull}, scopes)
	assert.Equal(t, []int{1}, spans)
}

func TestSessionDebouncesWithTimer(t *testing.T) {
	d := newDoc(t, `<div id="feed"></div>`)
	var log passLog
	s := NewSession(d, nil, Options{Window: 20 * time.Millisecond, OnPass: log.record})
	s.Start()
	defer s.Close()
	s.Deliver(words())
	assert.Eventually(t, func() bool { sc, _ := log.snapshot(); return len(sc) == 1 }, time.Second, 5*time.Millisecond)

	feed := bodyOf(d).FirstChild
	for i := 0; i < 5; i++ {
		nodes, err := ParseFragment(`<p>apple</p>`, feed)
		require.NoError(t, err)
		require.NoError(t, d.AppendChild(feed, nodes...))
	}
	assert.Eventually(t, func() bool { sc, _ := log.snapshot(); return len(sc) == 6 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 5, strings.Count(d.String(), `class="highlighted-word`))
}

func TestDocumentInsertRejectsDetachedParent(t *testing.T) {
	d := newDoc(t, `<p>x</p>`)
	stray := &html.Node{Type: html.ElementNode, Data: "div"}
	assert.Error(t, d.AppendChild(stray, &html.Node{Type: html.ElementNode, Data: "p"}))
	assert.Error(t, d.AppendChild(nil))

	var events int
	cancel := d.Subscribe(func(Insertion) { events++ })
	require.NoError(t, d.AppendChild(bodyOf(d), &html.Node{Type: html.ElementNode, Data: "p"}))
	cancel()
	require.NoError(t, d.AppendChild(bodyOf(d), &html.Node{Type: html.ElementNode, Data: "p"}))
	assert.Equal(t, 1, events)
}
