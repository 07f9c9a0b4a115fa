package ports

import (
	"context"
	"io"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

// DocumentRepository persists and reads document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
}

// ObjectStorage stores source documents between upload and processing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into retrievable chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunks and performs similarity search. Search results
// are filtered exactly by the session id in the filter.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) (domain.RankedList, error)
}

// QueryExpander produces alternative phrasings of a question to widen
// retrieval coverage.
type QueryExpander interface {
	Expand(ctx context.Context, question string, n int) ([]string, error)
}

// QuestionRouter picks the workflow entry strategy for a question.
type QuestionRouter interface {
	Route(ctx context.Context, question string, history []domain.Message) (domain.Route, error)
}

// RelevanceGrader classifies one document as relevant to a question. The
// contract is inclusion-biased: any plausible topical overlap counts.
type RelevanceGrader interface {
	GradeRelevance(ctx context.Context, question, document string) (bool, error)
}

// GroundingGrader classifies whether a generation is supported by documents.
type GroundingGrader interface {
	GradeGrounding(ctx context.Context, documents []string, generation string) (domain.GroundingVerdict, error)
}

// AnswerGenerator produces the final answer text from history plus context.
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, documents []string, history []domain.Message) (string, error)
}

// WebSearcher queries the external search provider. It never returns an
// error: failures and malformed payloads are folded into the outcome.
type WebSearcher interface {
	Search(ctx context.Context, query string) domain.SearchOutcome
}

// SessionStore persists conversation history keyed by session id. Sessions
// are created implicitly on first use.
type SessionStore interface {
	History(ctx context.Context, sessionID string) ([]domain.Message, error)
	AppendMessage(ctx context.Context, msg domain.Message) error
}
