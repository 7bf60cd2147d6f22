package chunker

import (
	"strings"
	"unicode"
)

// Chunker splits extracted text into overlapping, bounded-size segments.
// Cuts back off to the nearest sentence or whitespace boundary so no chunk
// severs a word, and each chunk after the first starts overlapSize runes
// before the previous cut so adjacent chunks share a context window.
type Chunker struct {
	maxChunkSize int
	overlapSize  int
}

func New(maxChunkSize, overlapSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1200
	}
	if overlapSize < 0 {
		overlapSize = 0
	}
	if overlapSize >= maxChunkSize {
		overlapSize = maxChunkSize / 4
	}
	return &Chunker{maxChunkSize: maxChunkSize, overlapSize: overlapSize}
}

// Chunk returns the ordered chunk texts for text. Empty input produces no
// chunks; input shorter than the chunk size produces exactly one.
func (c *Chunker) Chunk(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= c.maxChunkSize {
		return []string{trimmed}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.maxChunkSize
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}
		cut := c.findCut(runes, start, end)
		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		next := cut - c.overlapSize
		if next <= start {
			// Overlap would stall the scan; advance past the cut instead.
			next = cut
		}
		start = next
	}
	return chunks
}

// findCut backs off from the hard limit to the nearest sentence end, then
// any whitespace, so the cut lands between words. The backoff window is
// bounded to avoid collapsing chunks on boundary-free text.
func (c *Chunker) findCut(runes []rune, start, limit int) int {
	minCut := start + c.maxChunkSize/2
	for i := limit - 1; i > minCut; i-- {
		if isSentenceEnd(runes[i]) {
			return i + 1
		}
	}
	for i := limit - 1; i > minCut; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return limit
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '\n', '。', '！', '？':
		return true
	}
	return false
}
