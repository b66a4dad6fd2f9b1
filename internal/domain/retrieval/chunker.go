// Package retrieval holds the ranking core: chunking, cosine scoring,
// year-aware context selection and prompt composition. Everything here is
// pure and works on snapshots handed in by the usecases.
package retrieval

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxChunkLength is used when a Chunker is built with a non-positive limit.
	DefaultMaxChunkLength = 4000

	sentenceSeparator = ". "
)

// Chunker splits extracted text into sentence-aligned segments.
type Chunker struct {
	maxLength int
}

// NewChunker returns a Chunker that closes a chunk once appending the next
// sentence would reach maxLength characters.
func NewChunker(maxLength int) *Chunker {
	if maxLength <= 0 {
		maxLength = DefaultMaxChunkLength
	}
	return &Chunker{maxLength: maxLength}
}

// MaxLength returns the configured limit.
func (c *Chunker) MaxLength() int {
	return c.maxLength
}

// Split splits text on ". " and greedily packs the fragments into chunks.
// Each chunk ends with a period. A fragment longer than the limit is
// emitted whole; the limit is advisory.
func (c *Chunker) Split(text string) []string {
	var (
		chunks  []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String()+".")
			current.Reset()
		}
	}

	for _, sentence := range strings.Split(text, sentenceSeparator) {
		if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(sentence) < c.maxLength {
			if current.Len() > 0 {
				current.WriteString(sentenceSeparator)
			}
			current.WriteString(sentence)
			continue
		}
		flush()
		current.WriteString(sentence)
	}
	flush()

	return chunks
}
