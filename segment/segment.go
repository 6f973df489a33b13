package segment

import "strings"

const (
	// DefaultChunkSize is the default maximum chunk length in characters.
	DefaultChunkSize = 600
	// DefaultOverlap is the default number of trailing characters carried
	// into the next chunk.
	DefaultOverlap = 100
)

// Piece is one emitted chunk of normalized text. Content is always exactly
// Normalized(input)[Start:End], so consecutive pieces can be stitched back
// together from their offsets.
type Piece struct {
	Content string
	Start   int
	End     int
}

// Segmenter splits normalized text into overlapping, ordered pieces.
type Segmenter struct {
	chunkSize int
	overlap   int
}

// New creates a Segmenter. Non-positive chunkSize falls back to
// DefaultChunkSize; negative overlap is treated as zero, and overlap is
// capped below chunkSize so a seed can never fill a whole chunk.
func New(chunkSize, overlap int) *Segmenter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Segmenter{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// ChunkSize returns the configured maximum chunk length.
func (s *Segmenter) ChunkSize() int {
	return s.chunkSize
}

// Overlap returns the configured overlap length.
func (s *Segmenter) Overlap() int {
	return s.overlap
}

// Normalize collapses line-ending variants and repeated whitespace into
// single spaces and trims the result. Nil-equivalent and blank inputs yield
// the empty string.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split segments text into sentence-packed pieces of at most chunkSize
// characters. Sentences are packed greedily; when a sentence would overflow
// the running chunk, the chunk is emitted and the next one is seeded with up
// to overlap trailing characters of it, moved forward to a word boundary so
// words are never split. A single sentence longer than chunkSize is
// force-split at the character level with no overlap. Empty input yields nil.
func (s *Segmenter) Split(text string) []Piece {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}

	var pieces []Piece
	cs, ce := -1, -1 // span of the chunk being built; cs < 0 means empty

	emit := func() {
		if cs >= 0 && ce > cs {
			pieces = append(pieces, Piece{Content: norm[cs:ce], Start: cs, End: ce})
		}
	}

	for _, span := range sentenceSpans(norm) {
		ss, se := span[0], span[1]

		if se-ss > s.chunkSize {
			// Oversized sentence: flush whatever is pending, then cut the
			// sentence into chunkSize slices. No overlap inside the forced
			// split, and the next chunk starts fresh after it.
			emit()
			cs, ce = -1, -1
			for p := ss; p < se; p += s.chunkSize {
				q := p + s.chunkSize
				if q > se {
					q = se
				}
				pieces = append(pieces, Piece{Content: norm[p:q], Start: p, End: q})
			}
			continue
		}

		if cs < 0 {
			cs, ce = ss, se
			continue
		}

		if se-cs <= s.chunkSize {
			ce = se
			continue
		}

		emit()
		ns := seedStart(norm, ce, s.overlap)
		if ns >= ce || se-ns > s.chunkSize {
			// No usable seed, or seed plus sentence would overflow.
			ns = ss
		}
		cs, ce = ns, se
	}
	emit()

	return pieces
}

// sentenceSpans returns the [start, end) spans of sentence-terminator
// delimited units within norm. A trailing unit without a terminator is kept.
func sentenceSpans(norm string) [][2]int {
	var spans [][2]int
	start := 0
	i := 0
	for i < len(norm) {
		if isTerminator(norm[i]) {
			for i+1 < len(norm) && isTerminator(norm[i+1]) {
				i++
			}
			spans = append(spans, [2]int{start, i + 1})
			i++
			if i < len(norm) && norm[i] == ' ' {
				i++
			}
			start = i
			continue
		}
		i++
	}
	if start < len(norm) {
		spans = append(spans, [2]int{start, len(norm)})
	}
	return spans
}

// seedStart returns the start offset of the overlap seed for the chunk that
// ends at end. The raw position end-overlap is moved forward past a partial
// word so the seed begins after a space. Returns end when the tail holds no
// word boundary.
func seedStart(norm string, end, overlap int) int {
	p := end - overlap
	if p < 0 {
		p = 0
	}
	if p == 0 || norm[p-1] == ' ' {
		return p
	}
	for p < end && norm[p] != ' ' {
		p++
	}
	if p < end {
		p++ // skip the boundary space itself
	}
	return p
}

func isTerminator(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}
