package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseBody(t *testing.T, fragment string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><head></head><body>" + fragment + "</body></html>"))
	require.NoError(t, err)
	return ContentRoot(doc)
}

func inner(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

func fruitWords() WordList {
	return WordList{
		"w1": {ID: "w1", Word: "apple", Level: 2, Definition: "a fruit"},
		"w2": {ID: "w2", Word: "green apple", Level: 3, Definition: "unripe fruit"},
	}
}

func TestCompileNoOp(t *testing.T) {
	tests := []struct {
		name  string
		words []TrackedWord
	}{
		{name: "nil", words: nil},
		{name: "empty text", words: []TrackedWord{{ID: "1", Word: ""}}},
		{name: "whitespace only", words: []TrackedWord{{ID: "1", Word: "   "}}},
		{name: "underscores only", words: []TrackedWord{{ID: "1", Word: "___"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Compile(tt.words)
			assert.False(t, ok)
			assert.Nil(t, p)
		})
	}
}

func TestCompileOrdersLongestFirst(t *testing.T) {
	p, ok := Compile([]TrackedWord{
		{ID: "1", Word: "New"},
		{ID: "2", Word: "New_York"},
		{ID: "3", Word: "York"},
		{ID: "4", Word: "Newt"},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"New York", "Newt", "York", "New"}, p.Texts())
}

func TestSegmentsScenario(t *testing.T) {
	p, ok := Compile(fruitWords().Ordered())
	require.True(t, ok)

	segs := p.Segments("I ate a green apple today.", false)
	require.Len(t, segs, 3)
	assert.Equal(t, "I ate a ", segs[0].Text)
	assert.Nil(t, segs[0].Word)
	assert.Equal(t, "green apple", segs[1].Text)
	require.NotNil(t, segs[1].Word)
	assert.Equal(t, Level(3), segs[1].Word.Level)
	assert.Equal(t, "unripe fruit", segs[1].Word.Definition)
	assert.Equal(t, " today.", segs[2].Text)
	assert.Nil(t, segs[2].Word)
}

func TestSegmentsLongestMatchPreference(t *testing.T) {
	p, ok := Compile([]TrackedWord{{ID: "a", Word: "New"}, {ID: "b", Word: "New York"}})
	require.True(t, ok)

	segs := p.Segments("New York City", false)
	require.Len(t, segs, 2)
	assert.Equal(t, "New York", segs[0].Text)
	require.NotNil(t, segs[0].Word)
	assert.Equal(t, "b", segs[0].Word.ID)
	assert.Equal(t, " City", segs[1].Text)
	assert.Nil(t, segs[1].Word)
}

func TestSegmentsPreserveLiteralText(t *testing.T) {
	p, ok := Compile([]TrackedWord{
		{ID: "1", Word: "cat"},
		{ID: "2", Word: "category"},
		{ID: "3", Word: "c++"},
		{ID: "4", Word: "ice_cream"},
		{ID: "5", Word: "日本語"},
	})
	require.True(t, ok)

	inputs := []string{
		"The CAT sat in a Category of cats.",
		"I write C++ and eat ice cream.",
		"日本語を勉強する。",
		"catcatcat",
		"nothing to see",
		"",
	}
	for _, in := range inputs {
		for _, hug := range []bool{false, true} {
			segs := p.Segments(in, hug)
			if segs == nil {
				continue
			}
			var b strings.Builder
			for _, s := range segs {
				b.WriteString(s.Text)
			}
			assert.Equal(t, in, b.String(), "input %q hug=%v", in, hug)
		}
	}
}

func TestSegmentsNonOverlapping(t *testing.T) {
	p, ok := Compile([]TrackedWord{{ID: "1", Word: "aa"}, {ID: "2", Word: "a"}})
	require.True(t, ok)

	segs := p.Segments("aaaaa", false)
	var got []string
	for _, s := range segs {
		require.NotNil(t, s.Word)
		got = append(got, s.Text)
	}
	assert.Equal(t, []string{"aa", "aa", "a"}, got)
}

func TestSegmentsKeepsSourceCasing(t *testing.T) {
	p, ok := Compile([]TrackedWord{{ID: "1", Word: "apple"}})
	require.True(t, ok)

	segs := p.Segments("APPLE and Apple", false)
	require.Len(t, segs, 3)
	assert.Equal(t, "APPLE", segs[0].Text)
	assert.Equal(t, "Apple", segs[2].Text)
}

func TestSegmentsEscapesMetacharacters(t *testing.T) {
	p, ok := Compile([]TrackedWord{{ID: "1", Word: "a.b"}, {ID: "2", Word: "(x)"}})
	require.True(t, ok)

	assert.Nil(t, p.Segments("axb", false))
	segs := p.Segments("see a.b and (x)", false)
	assert.True(t, HasSpans(segs))
	assert.Equal(t, "a.b", segs[1].Text)
	assert.Equal(t, "(x)", segs[3].Text)
}

func TestSegmentsHugWhitespace(t *testing.T) {
	p, ok := Compile([]TrackedWord{{ID: "1", Word: "_apple_"}})
	require.True(t, ok)

	plain := p.Segments("an apple a day", false)
	require.Len(t, plain, 3)
	assert.Equal(t, " apple ", plain[1].Text)

	hugged := p.Segments("an apple a day", true)
	require.Len(t, hugged, 3)
	assert.Equal(t, "an ", hugged[0].Text)
	assert.Equal(t, "apple", hugged[1].Text)
	assert.Equal(t, " a day", hugged[2].Text)
}

func TestIndexLastWriteWins(t *testing.T) {
	words := WordList{
		"a": {Word: "Apple", Level: 2},
		"b": {Word: "apple", Level: 4},
	}
	p, ok := Compile(words.Ordered())
	require.True(t, ok)

	segs := p.Segments("apple", false)
	require.Len(t, segs, 1)
	assert.Equal(t, "b", segs[0].Word.ID)
	assert.Equal(t, Level(4), segs[0].Word.Level)
}

func TestSegmentsUnicodeCaseFolding(t *testing.T) {
	tests := []struct {
		name string
		word string
		text string
	}{
		{name: "dotted capital I", word: "İstanbul", text: "İstanbul"},
		{name: "final sigma", word: "ΟΔΟΣ", text: "οδος"},
		{name: "long s", word: "sun", text: "ſun"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Compile([]TrackedWord{{ID: "1", Word: tt.word, Level: 2}})
			require.True(t, ok)

			segs := p.Segments(tt.text, false)
			require.Len(t, segs, 1)
			require.NotNil(t, segs[0].Word)
			assert.Equal(t, tt.text, segs[0].Text)
			assert.Equal(t, "1", segs[0].Word.ID)

			body := parseBody(t, "<p>"+tt.text+"</p>")
			res := New().Pass(body, WordList{"1": {Word: tt.word, Level: 2}}, ScopeFull)
			assert.Equal(t, 1, res.Spans)
		})
	}
}

func TestFoldKey(t *testing.T) {
	assert.Equal(t, FoldKey("ΟΔΟΣ"), FoldKey("οδος"))
	assert.Equal(t, FoldKey("sun"), FoldKey("ſun"))
	assert.Equal(t, FoldKey("Kelvin"), FoldKey("\u212Aelvin"))
	assert.NotEqual(t, FoldKey("apple"), FoldKey("apples"))
}

func TestLeavesExclusions(t *testing.T) {
	body := parseBody(t, `<p>apple</p>`+
		`<script>var apple = 1;</script>`+
		`<style>.apple{}</style>`+
		`<textarea>apple</textarea>`+
		`<div contenteditable="true">apple <b>apple</b> <i contenteditable="false">apple</i></div>`+
		`<span class="highlighted-word highlight-level-1">apple</span>`)

	var texts []string
	for leaf := range Leaves(body) {
		texts = append(texts, leaf.Data+"@"+leaf.Parent.Data)
	}
	assert.Equal(t, []string{"apple@p", "apple@i"}, texts)
}

func TestLeavesIsRestartable(t *testing.T) {
	body := parseBody(t, `<p>one</p><p>two <em>three</em></p>`)
	seq := Leaves(body)

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	assert.Equal(t, 3, first)
	assert.Equal(t, first, second)
}

func TestPassScenarioMarkup(t *testing.T) {
	body := parseBody(t, `<p>I ate a green apple today.</p>`)
	res := New().Pass(body, fruitWords(), ScopeFull)

	assert.Equal(t, 1, res.Spans)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, map[string]int{"w2": 1}, res.Counts)
	assert.Equal(t,
		`<p>I ate a <span class="highlighted-word highlight-level-3" title="unripe fruit">green apple</span> today.</p>`,
		inner(body))
}

func TestPassIsIdempotent(t *testing.T) {
	body := parseBody(t, `<h1>Apples</h1><p>An apple, a green apple and <a href="#">APPLE pie</a>.</p>`)
	h := New()

	first := h.Pass(body, fruitWords(), ScopeFull)
	require.Equal(t, 4, first.Spans)
	after := inner(body)

	second := h.Pass(body, fruitWords(), ScopeFull)
	assert.Equal(t, 0, second.Spans)
	assert.Equal(t, 0, second.Replaced)
	assert.Equal(t, after, inner(body))
}

func TestPassDenylistedContent(t *testing.T) {
	src := `<script>apple()</script><style>.apple{}</style><noscript>apple</noscript>` +
		`<textarea>apple</textarea><div contenteditable>apple</div>`
	body := parseBody(t, src)
	before := inner(body)

	res := New().Pass(body, fruitWords(), ScopeFull)
	assert.Equal(t, 0, res.Spans)
	assert.Equal(t, before, inner(body))
}

func TestPassEmptyWordList(t *testing.T) {
	body := parseBody(t, `<p>apple green apple</p>`)
	before := inner(body)

	for _, words := range []WordList{nil, {}, {"x": {Word: "  "}}} {
		res := New().Pass(body, words, ScopeFull)
		assert.Equal(t, 0, res.Spans)
		assert.Equal(t, 0, res.Replaced)
	}
	assert.Equal(t, before, inner(body))
}

func TestPassLeavesUnmatchedNodesUntouched(t *testing.T) {
	body := parseBody(t, `<p>pear</p><p>apple</p>`)
	pear := body.FirstChild.FirstChild
	require.Equal(t, "pear", pear.Data)

	New().Pass(body, fruitWords(), ScopeFull)
	assert.Same(t, pear, body.FirstChild.FirstChild)
	assert.Same(t, body.FirstChild, pear.Parent)
}

func TestPassDefaultsLevelAndTitle(t *testing.T) {
	body := parseBody(t, `<p>kiwi</p>`)
	New().Pass(body, WordList{"k": {Word: "kiwi", Level: 9}}, ScopeFull)
	assert.Equal(t, `<p><span class="highlighted-word highlight-level-1" title="">kiwi</span></p>`, inner(body))
}

func TestSpliceSkipsDetachedLeaf(t *testing.T) {
	p, ok := Compile([]TrackedWord{{ID: "1", Word: "apple"}})
	require.True(t, ok)

	leaf := &html.Node{Type: html.TextNode, Data: "apple"}
	spans, replaced := Splice(leaf, p, false)
	assert.Equal(t, 0, spans)
	assert.False(t, replaced)
}

func TestDecodeWordList(t *testing.T) {
	data := []byte(`{
		"1": {"word": "ice_cream", "level": "3", "definition": "frozen"},
		"2": {"word": "", "level": 2},
		"3": {"level": 4},
		"4": "not an object",
		"5": {"word": "kiwi", "level": "hard"}
	}`)
	wl, err := DecodeWordList(data)
	require.NoError(t, err)
	require.Len(t, wl, 2)

	assert.Equal(t, Level(3), wl["1"].Level)
	assert.Equal(t, "ice cream", wl["1"].Text())
	assert.Equal(t, "1", wl["1"].ID)
	assert.Equal(t, Level(0), wl["5"].Level)
	assert.Equal(t, "highlight-level-1", LevelClass(wl["5"].Level))

	_, err = DecodeWordList([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestSelectRoot(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><nav>apple</nav><main><p>apple</p></main></body></html>`))
	require.NoError(t, err)

	root, err := SelectRoot(doc, "main, article")
	require.NoError(t, err)
	assert.Equal(t, "main", root.Data)

	root, err = SelectRoot(doc, "section")
	require.NoError(t, err)
	assert.Equal(t, "body", root.Data)

	_, err = SelectRoot(doc, "[[")
	assert.Error(t, err)
}
