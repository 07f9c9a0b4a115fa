package extractor

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

type storageStub struct {
	content string
}

func (s *storageStub) Save(context.Context, string, io.Reader) error { return nil }
func (s *storageStub) Remove(context.Context, string) error         { return nil }
func (s *storageStub) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func TestExtractPlaintext(t *testing.T) {
	e := New(&storageStub{content: "  hello text  "})
	doc := &domain.Document{Filename: "a.txt", MimeType: "text/plain", StoragePath: "a.txt"}

	text, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "hello text" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractRejectsBinaryNonPDF(t *testing.T) {
	e := New(&storageStub{content: string([]byte{0xff, 0xfe, 0x00, 0x01})})
	doc := &domain.Document{Filename: "a.bin", MimeType: "application/octet-stream", StoragePath: "a.bin"}

	if _, err := e.Extract(context.Background(), doc); err == nil {
		t.Fatalf("expected error for binary content")
	}
}

func TestExtractCorruptPDFFails(t *testing.T) {
	e := New(&storageStub{content: "%PDF-1.7 not really a pdf"})
	doc := &domain.Document{Filename: "a.pdf", MimeType: "application/pdf", StoragePath: "a.pdf"}

	if _, err := e.Extract(context.Background(), doc); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}

func TestIsPDFDetection(t *testing.T) {
	if !isPDF(&domain.Document{MimeType: "application/pdf"}, nil) {
		t.Fatalf("mime type should mark pdf")
	}
	if !isPDF(&domain.Document{Filename: "Report.PDF"}, nil) {
		t.Fatalf("extension should mark pdf")
	}
	if !isPDF(&domain.Document{}, []byte("%PDF-1.4")) {
		t.Fatalf("magic bytes should mark pdf")
	}
	if isPDF(&domain.Document{Filename: "a.txt"}, []byte("plain")) {
		t.Fatalf("plain text misdetected as pdf")
	}
}
