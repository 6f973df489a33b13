package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seventyCharSentence is exactly 70 characters including the terminator.
const seventyCharSentence = "lorem lorem lorem lorem lorem lorem lorem lorem lorem lorem lorem end."

// reconstruct stitches pieces back together using their offsets, skipping
// the overlap shared with the preceding piece.
func reconstruct(t *testing.T, norm string, pieces []Piece) string {
	t.Helper()
	require.NotEmpty(t, pieces)
	require.Equal(t, 0, pieces[0].Start)

	out := pieces[0].Content
	prevEnd := pieces[0].End
	for _, p := range pieces[1:] {
		// A gap of at most one character (the sentence separator space) may
		// sit between unseeded consecutive pieces; copying from prevEnd
		// keeps it in the reconstruction.
		require.LessOrEqual(t, p.Start, prevEnd+1, "pieces must not leave unseen gaps")
		require.Greater(t, p.End, prevEnd)
		out += norm[prevEnd:p.End]
		prevEnd = p.End
	}
	return out
}

func TestNormalize(t *testing.T) {
	t.Run("collapses line endings and whitespace", func(t *testing.T) {
		in := "First line.\r\nSecond\tline.\n\n  Third   line. "
		assert.Equal(t, "First line. Second line. Third line.", Normalize(in))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", Normalize(""))
		assert.Equal(t, "", Normalize("   \n\t "))
	})
}

func TestNew_Defaults(t *testing.T) {
	s := New(0, -1)
	assert.Equal(t, DefaultChunkSize, s.ChunkSize())
	assert.Equal(t, 0, s.Overlap())

	s = New(100, 200)
	assert.Equal(t, 50, s.Overlap(), "overlap is capped below chunk size")
}

func TestSplit_EmptyInput(t *testing.T) {
	s := New(600, 100)
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("  \n \r\n "))
}

func TestSplit_SingleShortSentence(t *testing.T) {
	s := New(600, 100)
	pieces := s.Split("Markets rose today.")
	require.Len(t, pieces, 1)
	assert.Equal(t, "Markets rose today.", pieces[0].Content)
	assert.Equal(t, 0, pieces[0].Start)
}

func TestSplit_FourteenHundredCharArticle(t *testing.T) {
	// 20 sentences of 70 chars, ~1,400 characters after normalization.
	text := strings.TrimSpace(strings.Repeat(seventyCharSentence+" ", 20))
	require.Len(t, text, 20*70+19)

	s := New(600, 100)
	pieces := s.Split(text)
	require.Len(t, pieces, 3)

	for _, p := range pieces {
		assert.LessOrEqual(t, len(p.Content), 900)
		assert.Equal(t, text[p.Start:p.End], p.Content)
	}
}

func TestSplit_OverlapBounded(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat(seventyCharSentence+" ", 30))
	s := New(600, 100)
	pieces := s.Split(text)
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		shared := pieces[i-1].End - pieces[i].Start
		assert.LessOrEqual(t, shared, 100, "overlap region must not exceed the configured overlap")
		if shared > 0 {
			// Seeds begin on a word boundary.
			assert.NotEqual(t, byte(' '), text[pieces[i].Start])
			if pieces[i].Start > 0 {
				assert.Equal(t, byte(' '), text[pieces[i].Start-1])
			}
		}
	}
}

func TestSplit_Reconstruction(t *testing.T) {
	raw := "The port reopened on Monday.\nShipments resumed within hours!  Backlogs\r\nremain heavy across the region. " +
		strings.Repeat(seventyCharSentence+" ", 12) +
		"A final remark without terminator"
	norm := Normalize(raw)

	s := New(200, 40)
	pieces := s.Split(raw)
	assert.Equal(t, norm, reconstruct(t, norm, pieces))
}

func TestSplit_ForcedSplitOfOversizedSentence(t *testing.T) {
	long := strings.Repeat("x", 2000) // no terminators, one giant unit
	s := New(600, 100)
	pieces := s.Split(long)
	require.Len(t, pieces, 4)

	assert.Len(t, pieces[0].Content, 600)
	assert.Len(t, pieces[1].Content, 600)
	assert.Len(t, pieces[2].Content, 600)
	assert.Len(t, pieces[3].Content, 200)

	// No overlap inside the forced split.
	for i := 1; i < len(pieces); i++ {
		assert.Equal(t, pieces[i-1].End, pieces[i].Start)
	}

	assert.Equal(t, long, reconstruct(t, long, pieces))
}

func TestSplit_ForcedSplitBetweenNormalSentences(t *testing.T) {
	raw := "A short opener. " + strings.Repeat("y", 800) + ". And a short closer."
	norm := Normalize(raw)

	s := New(300, 50)
	pieces := s.Split(raw)
	require.GreaterOrEqual(t, len(pieces), 4)
	assert.Equal(t, norm, reconstruct(t, norm, pieces))
}
