package store

// Chunk is an immutable unit of retrievable document text with provenance.
// Chunks are never mutated after creation; re-ingesting a document replaces
// its whole chunk set.
type Chunk struct {
	ChunkID        string // "{doc_id}:{ordinal}"
	DocID          string
	DocName        string // Display name as uploaded
	Page           int    // 1-based physical or pseudo page
	ParagraphStart int    // 1-based paragraph index within the page
	ParagraphEnd   int    // 1-based, >= ParagraphStart
	Ordinal        int    // 0-based position within the document
	Text           string // Whitespace-normalized, non-empty
}

// DocumentInfo summarizes an ingested document.
type DocumentInfo struct {
	DocID   string `json:"doc_id"`
	DocName string `json:"doc_name"`
	Pages   int    `json:"pages"`
	Chunks  int    `json:"chunks"`
}
