package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
	"github.com/dmmikh/adaptive-rag-agent/internal/core/ports"
)

// Extractor pulls plain text out of stored documents. PDFs get a dedicated
// parser; anything else must already be valid UTF-8 text.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if isPDF(doc, raw) {
		return extractPDF(raw)
	}
	return extractPlaintext(doc, raw)
}

func isPDF(doc *domain.Document, raw []byte) bool {
	if doc.MimeType == "application/pdf" {
		return true
	}
	if strings.HasSuffix(strings.ToLower(doc.Filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(raw, []byte("%PDF-"))
}

func extractPDF(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	body, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractPlaintext(doc *domain.Document, raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("unsupported binary format: %s", doc.Filename)
	}
	return strings.TrimSpace(string(raw)), nil
}
