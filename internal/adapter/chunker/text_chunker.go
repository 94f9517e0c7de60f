package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
)

// Policy selects how chunk boundaries are chosen.
type Policy string

const (
	// PolicySentence accumulates whole sentences up to the size limit.
	// Whitespace separating sentences at chunk boundaries is dropped.
	PolicySentence Policy = "sentence"

	// PolicyParagraph accumulates whole paragraphs (blank-line
	// separated) up to the size limit. Whitespace separating paragraphs
	// at chunk boundaries is dropped.
	PolicyParagraph Policy = "paragraph"

	// PolicyHard cuts at the size limit on rune boundaries with no
	// boundary adjustment. With zero overlap, concatenating the chunks
	// reproduces the input exactly.
	PolicyHard Policy = "hard"
)

// TextChunker splits document text into bounded passages. Sizes and
// overlap are measured in bytes of UTF-8 text. Chunking is fully
// deterministic: the same document and configuration always yield the
// same chunks with the same IDs.
type TextChunker struct {
	maxSize int
	overlap int
	policy  Policy
}

// New creates a TextChunker. Overlap must be smaller than maxSize so
// every pass makes progress.
func New(maxSize, overlap int, policy Policy) (*TextChunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max_chunk_size must be positive, got %d", domain.ErrInvalidInput, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, max_chunk_size), got %d", domain.ErrInvalidInput, overlap)
	}
	switch policy {
	case PolicySentence, PolicyParagraph, PolicyHard:
	default:
		return nil, fmt.Errorf("%w: unknown boundary policy %q", domain.ErrInvalidInput, policy)
	}
	return &TextChunker{maxSize: maxSize, overlap: overlap, policy: policy}, nil
}

// span is a half-open byte range into the document text.
type span struct {
	start int
	end   int
}

// Chunk splits the document into ordered chunks. Spans are strictly
// increasing in ordinal order and a unit larger than the size limit is
// emitted whole as its own oversized chunk. Empty or whitespace-only
// input yields zero chunks.
func (c *TextChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	text := doc.Text
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var spans []span
	if c.policy == PolicyHard {
		spans = c.hardSpans(text)
	} else {
		units := splitUnits(text, c.policy)
		spans = c.accumulate(text, units)
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:      chunkID(doc.ID, i, s.start, s.end),
			DocID:   doc.ID,
			Ordinal: i,
			Start:   s.start,
			End:     s.end,
			Text:    text[s.start:s.end],
		})
	}
	return chunks, nil
}

// accumulate groups consecutive units into chunks. The size bound
// applies to the chunk's full extent (including whitespace between
// units inside the chunk), so len(chunk.Text) <= maxSize holds for
// every chunk except a single oversized unit.
func (c *TextChunker) accumulate(text string, units []span) []span {
	var spans []span

	start := 0
	for start < len(units) {
		// Always take at least one unit, even if it alone exceeds the
		// size limit: oversized units are emitted whole, never dropped
		// or truncated.
		end := start + 1
		for end < len(units) {
			if units[end].end-units[start].start > c.maxSize {
				break
			}
			end++
		}

		spans = append(spans, span{units[start].start, units[end-1].end})

		if end >= len(units) {
			break
		}

		// Re-include trailing units totalling at least the configured
		// overlap, without ever reprocessing the whole pass.
		back := 0
		chars := 0
		for i := end - 1; i > start && chars < c.overlap; i-- {
			chars += units[i].end - units[i].start
			back++
		}
		newStart := end - back
		if newStart <= start {
			newStart = start + 1
		}
		start = newStart
	}

	return spans
}

// hardSpans cuts the text at the size limit, backing up to the nearest
// rune boundary so multi-byte characters are never split.
func (c *TextChunker) hardSpans(text string) []span {
	var spans []span
	n := len(text)

	start := 0
	for start < n {
		end := start + c.maxSize
		if end > n {
			end = n
		}
		for end < n && end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			// A single rune wider than the limit; emit it whole.
			_, size := utf8.DecodeRuneInString(text[start:])
			end = start + size
		}

		spans = append(spans, span{start, end})

		if end >= n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		for next < n && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}

	return spans
}

// splitUnits slices the text into boundary units for the given policy.
// Units exclude the whitespace that separates them; text inside a unit
// is untouched.
func splitUnits(text string, policy Policy) []span {
	if policy == PolicyParagraph {
		return paragraphUnits(text)
	}
	return sentenceUnits(text)
}

// sentenceUnits splits on sentence terminators (., !, ?) followed by
// whitespace or end of input. Runs of terminators stay with their
// sentence.
func sentenceUnits(text string) []span {
	var units []span
	n := len(text)

	i := 0
	for i < n {
		for i < n && isSpace(text[i]) {
			i++
		}
		if i >= n {
			break
		}
		start := i

		end := n
		for j := i; j < n; j++ {
			ch := text[j]
			if ch != '.' && ch != '!' && ch != '?' {
				continue
			}
			k := j + 1
			for k < n && (text[k] == '.' || text[k] == '!' || text[k] == '?') {
				k++
			}
			if k >= n || isSpace(text[k]) {
				end = k
				break
			}
			j = k - 1
		}

		units = append(units, span{start, end})
		i = end
	}

	return units
}

// paragraphUnits splits on blank lines. A paragraph spans from the
// first non-space byte of its first line to the last non-space byte of
// its last line; newlines inside a paragraph are preserved.
func paragraphUnits(text string) []span {
	var units []span
	n := len(text)

	paraStart := -1
	paraEnd := 0
	flush := func() {
		if paraStart >= 0 {
			units = append(units, span{paraStart, paraEnd})
			paraStart = -1
		}
	}

	lineStart := 0
	for lineStart < n {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		next := n
		if lineEnd < 0 {
			lineEnd = n
		} else {
			lineEnd += lineStart
			next = lineEnd + 1
		}

		line := text[lineStart:lineEnd]
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			s := lineStart + (len(line) - len(strings.TrimLeft(line, " \t\r")))
			e := lineStart + len(strings.TrimRight(line, " \t\r"))
			if paraStart < 0 {
				paraStart = s
			}
			paraEnd = e
		}

		lineStart = next
	}
	flush()

	return units
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// chunkID derives a stable identifier from the chunk's coordinates, so
// re-ingesting an unchanged document upserts the same IDs.
func chunkID(docID string, ordinal, start, end int) string {
	data := fmt.Sprintf("%s:%d:%d-%d", docID, ordinal, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
