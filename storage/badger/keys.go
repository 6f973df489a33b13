package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/chronicle/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix = "docrec"
	documentDatePrefix   = "docrecd"
	chunkRecordPrefix    = "chkrec"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentRecordPrefix, id))
}

// makeDocumentDateKey generates a composite key for the date index.
// Format: prefix:docDate:id
func makeDocumentDateKey(docDate time.Time, id core.ID) []byte {
	prefix := documentDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for date + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docDate.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDocumentDateKey generates a partial key for date range queries.
// Format: prefix:docDate
func makePartialDocumentDateKey(docDate time.Time) []byte {
	prefix := documentDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for date
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docDate.UnixMicro()))
	return buf
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:documentID:chunkNo
func makeChunkKey(documentID core.ID, chunkNo int) []byte {
	prefix := chunkRecordPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for documentID + 8 bytes for chunkNo
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so chunks sort by document, then chunk number
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkNo))
	return buf
}

// makePartialChunkKey generates a partial key for scanning a document's chunks.
// Format: prefix:documentID
func makePartialChunkKey(documentID core.ID) []byte {
	prefix := chunkRecordPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for documentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}
