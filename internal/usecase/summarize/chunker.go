// Package summarize splits normalized text into sentence-bounded chunks and
// dispatches them to the selected summarization backend.
package summarize

import (
	"errors"
	"fmt"
	"strings"

	"nepsum/internal/utils/text"
)

// Default chunk bounds and sentence delimiter for Nepali text.
const (
	DefaultMinWords  = 100
	DefaultMaxWords  = 150
	DefaultDelimiter = "।"
)

// SealReason records why a chunk was closed.
type SealReason int

const (
	// SealDelimiter: the buffer reached minWords..maxWords on a delimiter-terminated word.
	SealDelimiter SealReason = iota
	// SealSplit: the buffer overflowed and was cut after its last delimiter-terminated word.
	SealSplit
	// SealOversized: the buffer overflowed without any delimiter and was sealed whole.
	SealOversized
	// SealRemainder: end of input.
	SealRemainder
)

func (r SealReason) String() string {
	switch r {
	case SealDelimiter:
		return "delimiter"
	case SealSplit:
		return "split"
	case SealOversized:
		return "oversized"
	case SealRemainder:
		return "remainder"
	default:
		return fmt.Sprintf("SealReason(%d)", int(r))
	}
}

// Chunk is a contiguous run of words from the input.
type Chunk struct {
	Index     int
	Text      string
	WordCount int
	Reason    SealReason
}

// Chunker splits text into word-bounded chunks that end on a sentence
// delimiter whenever the text allows it. A Chunker is immutable and safe for
// concurrent use.
type Chunker struct {
	minWords  int
	maxWords  int
	delimiter string
}

// NewChunker validates 0 < minWords <= maxWords and a non-empty delimiter.
func NewChunker(minWords, maxWords int, delimiter string) (*Chunker, error) {
	if minWords <= 0 {
		return nil, fmt.Errorf("chunker: minWords must be positive, got %d", minWords)
	}
	if maxWords < minWords {
		return nil, fmt.Errorf("chunker: maxWords (%d) must not be less than minWords (%d)", maxWords, minWords)
	}
	if delimiter == "" {
		return nil, errors.New("chunker: delimiter must not be empty")
	}
	return &Chunker{minWords: minWords, maxWords: maxWords, delimiter: delimiter}, nil
}

// Split greedily accumulates whitespace-separated words.
//
// A word that ends with the delimiter closes the buffer once the buffer holds
// minWords..maxWords words. When the buffer grows past maxWords, it is cut
// after the last delimiter-terminated word among its first maxWords words and
// the rest carries over; with no such word the whole buffer is sealed as one
// oversized chunk of maxWords+1 words. A delimiter on word maxWords+1 does
// not close an oversized chunk early. Whatever is left at the end becomes the
// last chunk.
//
// Joining the words of all chunks in order yields text.Words(s) exactly.
// Empty input yields no chunks.
func (c *Chunker) Split(s string) []Chunk {
	words := text.Words(s)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	seal := func(ws []string, reason SealReason) {
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      strings.Join(ws, " "),
			WordCount: len(ws),
			Reason:    reason,
		})
	}

	buf := make([]string, 0, c.maxWords+1)
	for _, w := range words {
		buf = append(buf, w)
		n := len(buf)

		if n >= c.minWords && n <= c.maxWords && strings.HasSuffix(w, c.delimiter) {
			seal(buf, SealDelimiter)
			buf = buf[:0]
			continue
		}

		if n > c.maxWords {
			cut := c.lastSentenceEnd(buf[:c.maxWords])
			if cut < 0 {
				seal(buf, SealOversized)
				buf = buf[:0]
				continue
			}
			seal(buf[:cut+1], SealSplit)
			rest := copy(buf, buf[cut+1:])
			buf = buf[:rest]
		}
	}
	if len(buf) > 0 {
		seal(buf, SealRemainder)
	}
	return chunks
}

// lastSentenceEnd returns the index of the last word ending with the
// delimiter, or -1.
func (c *Chunker) lastSentenceEnd(ws []string) int {
	for i := len(ws) - 1; i >= 0; i-- {
		if strings.HasSuffix(ws[i], c.delimiter) {
			return i
		}
	}
	return -1
}
