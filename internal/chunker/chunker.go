// Package chunker splits extracted document text into retrieval units.
package chunker

import (
	"regexp"
	"strings"
)

// paragraphBreak matches a blank line, including lines holding only whitespace.
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Chunk splits text on blank-line boundaries and returns the trimmed,
// non-empty paragraphs in document order.
func Chunk(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	for _, span := range paragraphBreak.Split(text, -1) {
		if s := strings.TrimSpace(span); s != "" {
			chunks = append(chunks, s)
		}
	}
	return chunks
}

// ChunkSpans chunks every span an extractor produced, preserving order.
func ChunkSpans(spans []string) []string {
	return Chunk(strings.Join(spans, "\n\n"))
}
