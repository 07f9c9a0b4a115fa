package domain

// SearchFilter scopes vector-store queries. SessionID is mandatory for
// retrieval: a query must never return chunks tagged with another session.
type SearchFilter struct {
	SessionID string
}

// RetrievedChunk is one unit of retrievable text returned by the vector store.
// For fusion purposes its identity is the text content.
type RetrievedChunk struct {
	DocumentID string  `json:"document_id,omitempty"`
	SessionID  string  `json:"session_id,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// RankedList is the ordered result of a single retrieval query; rank is the
// 0-indexed position.
type RankedList []RetrievedChunk
