package story

import (
	"github.com/japaniel/lexilight/pkg/db"
)

// Segmenters picks a segmenter by language code. Languages without an entry
// split on whitespace.
type Segmenters map[string]Segmenter

// For returns the segmenter registered for language.
func (m Segmenters) For(language string) Segmenter {
	if seg, ok := m[language]; ok && seg != nil {
		return seg
	}
	return WhitespaceSegmenter{}
}

// Distribute loads the tracked words for language and computes the
// distribution of content against them.
func Distribute(conn db.DBExecutor, content, language string, segs Segmenters) (Distribution, error) {
	words, err := db.LoadWordList(conn, language)
	if err != nil {
		return nil, err
	}
	return ComputeDistribution(content, words, segs.For(language)), nil
}

// Save computes the distribution for s and creates or updates it. A story
// with an ID is updated; one without is created.
func Save(conn db.DBExecutor, s db.Story, segs Segmenters) (db.Story, error) {
	dist, err := Distribute(conn, s.Content, s.Language, segs)
	if err != nil {
		return db.Story{}, err
	}
	s.Distribution = dist.JSON()
	if s.ID == "" {
		return db.CreateStory(conn, s)
	}
	return db.UpdateStory(conn, s)
}
