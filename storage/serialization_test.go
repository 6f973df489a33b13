package storage

import (
	"testing"
	"time"

	"github.com/poiesic/chronicle/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalDocument(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &core.Document{
		Title:      "Andean mining roundup",
		Content:    "Copper output climbed again.",
		DocDate:    now,
		DocType:    core.DocTypeDailySummary,
		Source:     "daily-run",
		Metadata:   map[string]string{"expected_chunks": "3"},
		InsertedAt: now,
		UpdatedAt:  now,
	}
	doc.Id = core.IDFromContent(doc.Key())

	decoded, err := UnmarshalDocument(MarshalDocument(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestUnmarshalCorruptDataFails(t *testing.T) {
	corrupt := []byte{0xff}

	_, err := UnmarshalID(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalDocument(corrupt)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalChunk(corrupt)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
