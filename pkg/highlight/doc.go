// Package highlight finds tracked vocabulary in an HTML tree and wraps each
// occurrence in a span carrying the word's level class and definition.
//
// A pass compiles the current word list into one case-insensitive,
// longest-first alternation, collects the eligible text nodes under a root and
// replaces each node that contains matches with literal text and spans. Spans
// carry MarkerClass, and text inside them is never eligible, so running a pass
// twice over the same tree changes nothing the second time.
package highlight
