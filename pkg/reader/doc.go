// Package reader acquires pages for highlighting: it fetches HTML, strips
// ruby annotations, extracts the readable article, segments Japanese text and
// renders highlighted trees as markdown.
package reader
