package dictionary

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/japaniel/lexilight/pkg/db"
	_ "github.com/mattn/go-sqlite3"
)

const testDict = `
{
  "words": [
    {
      "id": "1",
      "kanji": [{"text": "犬", "common": true}],
      "kana": [{"text": "いぬ", "common": true}],
      "sense": [{"gloss": [{"text": "dog"}, {"text": "hound"}], "partOfSpeech": ["n"]}]
    },
    {
      "id": "2",
      "kanji": [{"text": "走る", "common": true}],
      "kana": [{"text": "はしる", "common": true}],
      "sense": [{"gloss": [{"text": "to run"}], "partOfSpeech": ["v5r"]}]
    },
    {
      "id": "3",
      "kanji": [{"text": "猫", "common": true}],
      "kana": [{"text": "ねこ", "common": true}],
      "sense": [{"gloss": [{"text": "cat"}], "partOfSpeech": ["n"]}]
    },
    {
      "id": "4",
      "kanji": [],
      "kana": [{"text": "テスト", "common": true}],
      "sense": [
        {"gloss": [{"text": "test"}], "partOfSpeech": ["n", "vs"]},
        {"gloss": [{"text": "Prüfung", "lang": "ger"}], "partOfSpeech": ["n"]}
      ]
    }
  ]
}
`

func writeDict(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jmdict.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func loadTestEntries(t *testing.T) []JMdictEntry {
	t.Helper()
	entries, err := LoadJMdictSimplified(writeDict(t, testDict))
	if err != nil {
		t.Fatalf("load dict: %v", err)
	}
	return entries
}

func TestLoadJMdictSimplified(t *testing.T) {
	entries := loadTestEntries(t)
	if len(entries) != 4 {
		t.Errorf("expected 4 entries, got %d", len(entries))
	}

	// Bare array form.
	bare, err := LoadJMdictSimplified(writeDict(t, `[{"id":"9","kana":[{"text":"あ"}]}]`))
	if err != nil {
		t.Fatalf("load bare array: %v", err)
	}
	if len(bare) != 1 || bare[0].Id != "9" {
		t.Errorf("unexpected entries %+v", bare)
	}

	if _, err := LoadJMdictSimplified(writeDict(t, `not json`)); err == nil {
		t.Errorf("expected parse error")
	}
}

func TestFillDefinitions(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	conn.SetMaxOpenConns(1)
	if err := db.InitDB(conn); err != nil {
		t.Fatalf("init db: %v", err)
	}

	words := []db.Word{
		{Word: "犬", Language: "ja"},
		{Word: "走る", Language: "ja"},
		{Word: "未知", Language: "ja"}, // No entry
		{Word: "猫", Language: "ja", Definition: "my own note"},
		{Word: "テスト", Language: "ja"},
	}
	ids := map[string]string{}
	for _, w := range words {
		created, err := db.CreateWord(conn, w)
		if err != nil {
			t.Fatalf("create word %s: %v", w.Word, err)
		}
		ids[w.Word] = created.ID
	}

	importer := NewImporter(conn, loadTestEntries(t))
	count, err := importer.FillDefinitions("ja")
	if err != nil {
		t.Fatalf("fill definitions: %v", err)
	}
	// 猫 already has a definition and 未知 is not in the dictionary.
	if count != 3 {
		t.Errorf("expected 3 updates, got %d", count)
	}

	checks := map[string]string{
		"犬":   "いぬ: dog, hound (n)",
		"テスト": "てすと: test (n, vs)",
		"猫":   "my own note",
		"未知":  "",
	}
	for word, want := range checks {
		got, err := db.GetWord(conn, ids[word])
		if err != nil {
			t.Fatalf("get %s: %v", word, err)
		}
		if got.Definition != want {
			t.Errorf("definition for %s: got %q, want %q", word, got.Definition, want)
		}
	}

	// A second run has nothing left to fill.
	count, err = importer.FillDefinitions("")
	if err != nil {
		t.Fatalf("second fill: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 updates on second run, got %d", count)
	}
}

func TestLookupWithReading(t *testing.T) {
	importer := NewImporter(nil, loadTestEntries(t))
	if importer.Len() == 0 {
		t.Fatalf("expected indexed spellings")
	}

	got, _ := importer.Lookup("犬", "犬", "イヌ")
	if len(got) != 1 || got[0].Id != "1" {
		t.Fatalf("expected entry 1, got %+v", got)
	}
	got, _ = importer.Lookup("犬", "犬", "ネコ")
	if got != nil {
		t.Fatalf("expected no match for wrong reading, got %+v", got)
	}
	if def := importer.Define("  走る "); !strings.Contains(def, "to run") {
		t.Fatalf("expected trimmed lookup to find 走る, got %q", def)
	}
}

func TestSummarize(t *testing.T) {
	entries := []JMdictEntry{{
		Id:   "1",
		Kana: []JMdictElement{{Text: "ハシル"}},
		Sense: []JMdictSense{
			{PartOfSpeech: []string{"v5r"}, Gloss: []JMdictGloss{{Text: "to run"}}},
			{PartOfSpeech: []string{"v5r"}, Gloss: []JMdictGloss{{Text: "to travel"}}},
			{PartOfSpeech: []string{"vi"}, Gloss: []JMdictGloss{{Text: "to flee"}}},
		},
	}}
	if got := Summarize(entries, 2); got != "はしる: to run; to travel (v5r)" {
		t.Errorf("unexpected summary %q", got)
	}
	if got := Summarize(nil, 2); got != "" {
		t.Errorf("expected empty summary, got %q", got)
	}
}

func TestToHiragana(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"ア", "あ"},
		{"イ", "い"},
		{"カ", "か"},
		{"ガ", "が"},
		{"パ", "ぱ"},
		{"ン", "ん"},
		{"ー", "ー"},
		{"abc", "abc"},
		{"あいう", "あいう"},
	}
	for _, tt := range tests {
		if got := ToHiragana(tt.in); got != tt.out {
			t.Errorf("ToHiragana(%q) = %q; want %q", tt.in, got, tt.out)
		}
	}
}
