// Package chunker splits document text into bounded word-count chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/thechalk/chalkbot/internal/models"
)

// Chunker splits text into chunks of at most maxWords whitespace-separated
// words. Chunking never splits mid-word, and joining the chunks with single
// spaces reproduces the document's word sequence.
type Chunker struct {
	maxWords int
}

// New creates a chunker. maxWords must be >= 1.
func New(maxWords int) (*Chunker, error) {
	if maxWords < 1 {
		return nil, fmt.Errorf("%w: chunk size must be >= 1, got %d", models.ErrInvalidConfiguration, maxWords)
	}
	return &Chunker{maxWords: maxWords}, nil
}

// MaxWords returns the configured chunk size in words.
func (c *Chunker) MaxWords() int {
	return c.maxWords
}

// Chunk splits text into chunks. Empty or whitespace-only text yields nil.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(words)+c.maxWords-1)/c.maxWords)
	for i := 0; i < len(words); i += c.maxWords {
		end := i + c.maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// Normalize trims text and collapses runs of whitespace to single spaces.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
