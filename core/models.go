package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that identical identity
// keys always map to the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocType identifies the kind of content a Document holds.
type DocType int

const (
	// DocTypeDailySummary is a single day's published summary.
	DocTypeDailySummary DocType = iota + 1
	// DocTypeArticle is one standalone article.
	DocTypeArticle
	// DocTypeFullCorpus is a batch of articles archived as one unit.
	DocTypeFullCorpus
)

// String returns the persisted name of the document type.
func (dt DocType) String() string {
	switch dt {
	case DocTypeDailySummary:
		return "daily_summary"
	case DocTypeArticle:
		return "article"
	case DocTypeFullCorpus:
		return "full_corpus"
	default:
		return "unknown"
	}
}

// DocumentKey returns the identity key used for upserts.
// Daily summaries and full corpora are keyed by (type, date) so each day has
// exactly one row per type. Articles are keyed by title so multiple distinct
// articles can share a date.
func DocumentKey(docType DocType, docDate time.Time, title string) string {
	if docType == DocTypeArticle {
		return "article|" + title
	}
	return docType.String() + "|" + docDate.UTC().Format("2006-01-02")
}

// Document represents one archived content unit: a daily summary, an article,
// or a batched corpus. Its ID is derived from the identity key, so archiving
// the same key twice updates the same row.
type Document struct {
	Id         ID
	Title      string
	Content    string
	DocDate    time.Time // Publication date of the content
	DocType    DocType
	Source     string
	Category   string
	Region     string
	URL        string
	Tokens     int               // Token count of Content (advisory)
	Metadata   map[string]string // Optional metadata (e.g., "expected_chunks")
	InsertedAt time.Time         // When the document was first archived
	UpdatedAt  time.Time         // When the document was last re-archived
}

// Key returns the document's identity key.
func (d *Document) Key() string {
	return DocumentKey(d.DocType, d.DocDate, d.Title)
}

// Chunk is a bounded span of a document's text plus its embedding; the atomic
// unit of retrieval. Chunks are replaced wholesale whenever their document is
// re-archived.
type Chunk struct {
	Id         ID
	DocumentId ID
	ChunkNo    int // 1..N, contiguous within a document
	Content    string
	Embedding  []float32
	Region     string
	Category   string
	Source     string
	URL        string
	DocDate    time.Time // Denormalized from the document for date filtering
}

// ChunkID generates the deterministic ID for a chunk position within a document.
func ChunkID(documentID ID, chunkNo int) ID {
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(documentID))
	binary.LittleEndian.PutUint32(buf[8:], uint32(chunkNo))
	return IDFromContent(string(buf[:]))
}

// Section is one region- or category-scoped span of text inside a Bundle.
// Chunks produced from a section inherit its region, category, source and
// URL; blank Source/URL fall back to the bundle-level values.
type Section struct {
	Region   string
	Category string
	Source   string
	URL      string
	Text     string
}

// Bundle is the archival input produced by upstream content generators.
type Bundle struct {
	Title    string
	Sections []Section
	Source   string
	URL      string
	Metadata map[string]string
}

// Text returns the bundle's full text with sections separated by blank lines.
func (b *Bundle) Text() string {
	var out string
	for i, s := range b.Sections {
		if i > 0 {
			out += "\n\n"
		}
		out += s.Text
	}
	return out
}

// SearchResult represents a chunk match from vector similarity search.
type SearchResult struct {
	Chunk      *Chunk
	Similarity float32
}

// TrendingTopic is a heuristic frequency signal over recent chunks.
// Dimension is either "category" or "region".
type TrendingTopic struct {
	Dimension  string
	Value      string
	Count      int
	TrendScore float64
}
