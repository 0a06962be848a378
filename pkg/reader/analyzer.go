package reader

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token is a single analyzed unit of Japanese text.
type Token struct {
	Surface  string // as written, e.g. "行っ"
	BaseForm string // dictionary form, e.g. "行く"
	Reading  string // katakana reading
	// PrimaryPOS is the first part-of-speech feature.
	PrimaryPOS string
}

// Sentence is a sentence and its tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer segments Japanese text with the IPA dictionary.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens with readings and base forms.
func (a *Analyzer) Analyze(text string) []Token {
	var result []Token
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: 0 POS, 6 base form, 7 reading.
		features := token.Features()
		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:    token.Surface,
			BaseForm:   base,
			Reading:    reading,
			PrimaryPOS: primaryPOS,
		})
	}
	return result
}

// AnalyzeDocument splits the text into sentences and tokenizes each sentence.
func (a *Analyzer) AnalyzeDocument(text string) []Sentence {
	var result []Sentence
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		result = append(result, Sentence{Text: s, Tokens: a.Analyze(s)})
	}
	return result
}

// Segment returns the base form of every content token. Punctuation and
// symbols are dropped.
func (a *Analyzer) Segment(text string) []string {
	var out []string
	for _, tok := range a.Analyze(text) {
		if tok.PrimaryPOS == "記号" {
			continue
		}
		out = append(out, tok.BaseForm)
	}
	return out
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		// 。！？ and newlines end a sentence.
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
