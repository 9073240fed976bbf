// Package chunker splits document text into overlapping windows sized for
// embedding and retrieval.
package chunker

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultBoundaryTolerance = 100
)

// Chunker splits text into chunks of at most Size runes with Overlap runes
// shared between adjacent chunks. Cuts prefer the whitespace boundary nearest
// the size cutoff; if none exists within Tolerance runes, the cut is hard.
type Chunker struct {
	Size      int
	Overlap   int
	Tolerance int
}

func New(size, overlap, tolerance int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 4
	}
	if tolerance < 0 || tolerance >= size {
		tolerance = DefaultBoundaryTolerance
		if tolerance >= size {
			tolerance = size / 10
		}
	}
	return &Chunker{Size: size, Overlap: overlap, Tolerance: tolerance}
}

// Split returns the chunks of text in order. Empty input yields no chunks.
// All-whitespace windows, which long whitespace runs inside a document can
// produce, are dropped so every returned chunk carries embeddable text.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	if len(runes) <= c.Size {
		return []string{string(runes)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.Size
		if end >= len(runes) {
			if chunk := string(runes[start:]); strings.TrimSpace(chunk) != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := c.boundaryBefore(runes, end)
		if chunk := string(runes[start:cut]); strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - c.Overlap
		if next <= start {
			// overlap would stall progress; advance past the cut instead
			next = cut
		}
		start = next
	}
	return chunks
}

// boundaryBefore finds the whitespace boundary nearest to end, scanning back
// at most Tolerance runes. Returns end when no boundary exists in the window.
func (c *Chunker) boundaryBefore(runes []rune, end int) int {
	limit := end - c.Tolerance
	if limit < 1 {
		limit = 1
	}
	for i := end; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
