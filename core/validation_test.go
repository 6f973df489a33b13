package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *Document {
	return &Document{
		Id:      IDFromContent("daily_summary|2026-08-01"),
		Title:   "Morning Briefing",
		Content: "Some content.",
		DocDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DocType: DocTypeDailySummary,
	}
}

func TestValidateDocument(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		require.NoError(t, ValidateDocument(validDocument()))
	})

	t.Run("nil document", func(t *testing.T) {
		err := ValidateDocument(nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("empty title", func(t *testing.T) {
		doc := validDocument()
		doc.Title = ""
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrInvalidDocument)
		assert.ErrorIs(t, err, ErrEmptyTitle)
	})

	t.Run("invalid doc type", func(t *testing.T) {
		doc := validDocument()
		doc.DocType = DocType(99)
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrInvalidDocType)
	})

	t.Run("zero date", func(t *testing.T) {
		doc := validDocument()
		doc.DocDate = time.Time{}
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrInvalidDocDate)
	})
}

func TestValidateChunk(t *testing.T) {
	valid := func() *Chunk {
		return &Chunk{
			Id:         ChunkID(7, 1),
			DocumentId: 7,
			ChunkNo:    1,
			Content:    "Some chunk text.",
		}
	}

	t.Run("valid chunk", func(t *testing.T) {
		require.NoError(t, ValidateChunk(valid()))
	})

	t.Run("nil chunk", func(t *testing.T) {
		assert.ErrorIs(t, ValidateChunk(nil), ErrInvalidChunk)
	})

	t.Run("empty content", func(t *testing.T) {
		chunk := valid()
		chunk.Content = ""
		assert.ErrorIs(t, ValidateChunk(chunk), ErrEmptyContent)
	})

	t.Run("zero chunk number", func(t *testing.T) {
		chunk := valid()
		chunk.ChunkNo = 0
		assert.ErrorIs(t, ValidateChunk(chunk), ErrInvalidChunkNo)
	})

	t.Run("missing document id", func(t *testing.T) {
		chunk := valid()
		chunk.DocumentId = 0
		assert.ErrorIs(t, ValidateChunk(chunk), ErrInvalidChunk)
	})
}

func TestValidateBundle(t *testing.T) {
	t.Run("valid bundle", func(t *testing.T) {
		bundle := &Bundle{
			Title:    "Briefing",
			Sections: []Section{{Region: "europe", Text: "Markets rose."}},
		}
		require.NoError(t, ValidateBundle(bundle))
	})

	t.Run("nil bundle", func(t *testing.T) {
		assert.ErrorIs(t, ValidateBundle(nil), ErrInvalidBundle)
	})

	t.Run("empty title", func(t *testing.T) {
		bundle := &Bundle{Sections: []Section{{Text: "x"}}}
		assert.ErrorIs(t, ValidateBundle(bundle), ErrEmptyTitle)
	})

	t.Run("all sections blank", func(t *testing.T) {
		bundle := &Bundle{Title: "Briefing", Sections: []Section{{Text: ""}}}
		assert.ErrorIs(t, ValidateBundle(bundle), ErrEmptyContent)
	})
}
