package course

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunker splits lesson text into overlapping, sentence-aligned chunks.
// maxSize bounds the chunk length in characters; overlap is the approximate
// number of trailing characters re-included at the start of the next chunk.
//
// A Chunker is immutable and safe for concurrent use.
type Chunker struct {
	maxSize int
	overlap int
}

// NewChunker validates the size parameters. overlap must be strictly less
// than maxSize or consecutive chunks could never make forward progress.
func NewChunker(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, errors.New("chunker: max size must be positive")
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, %d)", overlap, maxSize)
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}, nil
}

// Split returns a lazy, restartable sequence of chunk texts. Sentences are
// packed greedily until the next sentence would exceed maxSize; each new
// chunk re-includes the trailing sentences of the previous one totalling at
// most overlap characters. A single sentence longer than maxSize is kept
// whole as its own chunk, so that chunk may exceed the nominal maximum.
//
// The output is fully deterministic for identical input and parameters.
func (c *Chunker) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		sentences := splitSentences(text)
		if len(sentences) == 0 {
			return
		}

		i := 0
		for i < len(sentences) {
			// Greedy packing: stop before the sentence that would overflow.
			size := 0
			j := i
			for j < len(sentences) {
				add := len(sentences[j])
				if size > 0 {
					add++ // joining space
				}
				if size+add > c.maxSize && j > i {
					break
				}
				size += add
				j++
				if size > c.maxSize {
					break // single-sentence overrun, kept whole
				}
			}

			if !yield(strings.Join(sentences[i:j], " ")) {
				return
			}
			if j >= len(sentences) {
				return
			}

			// Walk back from the chunk end collecting the overlap window.
			k := j
			run := 0
			for k > i {
				l := len(sentences[k-1])
				if run > 0 {
					l++
				}
				if run+l > c.overlap {
					break
				}
				run += l
				k--
			}
			if k <= i {
				k = i + 1
			}
			i = k
		}
	}
}

// ChunkCourse builds the retrieval chunks for an entire course. Every chunk
// text is prefixed with its course and lesson identity so the embedding
// carries topical context, and Index increases monotonically across all
// lessons for stable ordering.
func (c *Chunker) ChunkCourse(crs *Course) []Chunk {
	var chunks []Chunk
	for _, lesson := range crs.Lessons {
		for text := range c.Split(lesson.Content) {
			chunks = append(chunks, Chunk{
				Text:         fmt.Sprintf("Course %s Lesson %d content: %s", crs.Title, lesson.Number, text),
				CourseTitle:  crs.Title,
				LessonNumber: lesson.Number,
				Index:        len(chunks),
			})
		}
	}
	return chunks
}

// abbreviations that end with a period but do not terminate a sentence.
// Compared lowercase, without the final period.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "vs": {}, "etc": {}, "e.g": {}, "i.e": {}, "fig": {}, "no": {},
	"al": {}, "approx": {}, "dept": {}, "est": {},
}

// splitSentences segments text on terminal punctuation followed by
// whitespace and an upper-case or numeric continuation, skipping common
// abbreviations and single-letter initials. Whitespace is normalized first
// so chunk boundaries do not depend on the document's line wrapping.
func splitSentences(text string) []string {
	norm := strings.Join(strings.Fields(text), " ")
	if norm == "" {
		return nil
	}

	var out []string
	start := 0
	for i := 0; i < len(norm); i++ {
		ch := norm[i]
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}

		// Absorb runs of punctuation and trailing closers: ." !) ?'
		end := i + 1
		for end < len(norm) && strings.ContainsRune(`.!?"')]`, rune(norm[end])) {
			end++
		}
		if end >= len(norm) {
			break // end of text, remainder flushed below
		}
		if norm[end] != ' ' {
			i = end - 1
			continue
		}

		next, _ := utf8.DecodeRuneInString(norm[end+1:])
		if !unicode.IsUpper(next) && !unicode.IsDigit(next) && !strings.ContainsRune(`"'(`, next) {
			i = end - 1
			continue
		}

		if ch == '.' && isAbbreviation(norm[start:i]) {
			i = end - 1
			continue
		}

		out = append(out, norm[start:end])
		start = end + 1
		i = end
	}
	if start < len(norm) {
		out = append(out, norm[start:])
	}
	return out
}

// isAbbreviation reports whether the word ending at the period is a known
// abbreviation or a single-letter initial ("J. Smith").
func isAbbreviation(before string) bool {
	idx := strings.LastIndexByte(before, ' ')
	word := strings.ToLower(before[idx+1:])
	word = strings.TrimRight(word, ".")
	if _, ok := abbreviations[word]; ok {
		return true
	}
	return len(word) == 1
}
