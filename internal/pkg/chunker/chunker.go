// Package chunker splits extracted document text into overlapping word windows.
package chunker

import "strings"

const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

type Chunker struct {
	size    int
	overlap int
}

// New returns a chunker producing windows of size words, each starting
// overlap words before the previous one ended. Non-positive size falls back
// to DefaultSize; an overlap that would stall the window is clamped.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split emits a window at every step until the start passes the last word,
// so the final window can consist of overlap words only.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(words); start += c.size - c.overlap {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		if chunk := strings.Join(words[start:end], " "); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
