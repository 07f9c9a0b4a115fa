package ports

import (
	"context"
	"io"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, sessionID, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// ChatService runs the adaptive workflow for one question within a session.
type ChatService interface {
	Chat(ctx context.Context, sessionID, question string) (*domain.ChatResult, error)
}
