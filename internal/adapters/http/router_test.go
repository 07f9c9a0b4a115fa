package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

type ingestStub struct {
	doc *domain.Document
	err error
}

func (s *ingestStub) Upload(_ context.Context, sessionID, filename, mimeType string, _ io.Reader) (*domain.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	doc := *s.doc
	doc.SessionID = sessionID
	doc.Filename = filename
	doc.MimeType = mimeType
	return &doc, nil
}

type chatStub struct {
	result  *domain.ChatResult
	err     error
	session string
}

func (s *chatStub) Chat(_ context.Context, sessionID, question string) (*domain.ChatResult, error) {
	s.session = sessionID
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type docRepoStub struct {
	doc *domain.Document
	err error
}

func (s *docRepoStub) Create(context.Context, *domain.Document) error { return nil }
func (s *docRepoStub) GetByID(context.Context, string) (*domain.Document, error) {
	return s.doc, s.err
}
func (s *docRepoStub) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func newTestRouter(chat *chatStub, cfg Config) *Router {
	return NewRouter(
		&ingestStub{doc: &domain.Document{ID: "doc-1", Status: domain.StatusUploaded}},
		chat,
		&docRepoStub{doc: &domain.Document{ID: "doc-1", SessionID: "s1", Status: domain.StatusReady}},
		nil,
		cfg,
	)
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestRouter(&chatStub{}, Config{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "running" {
		t.Fatalf("unexpected health body %v", body)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestChatReturnsWorkflowResult(t *testing.T) {
	chat := &chatStub{result: &domain.ChatResult{
		Answer:             "the answer",
		Source:             domain.RouteVectorstore,
		HallucinationGrade: domain.VerdictGrounded,
	}}
	handler := newTestRouter(chat, Config{}).Handler()

	res := postForm(t, handler, "/api/chat", url.Values{
		"question":   {"what does the document say?"},
		"session_id": {"s1"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if chat.session != "s1" {
		t.Fatalf("expected session forwarded, got %q", chat.session)
	}

	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["answer"] != "the answer" || body["source"] != "vectorstore" || body["hallucination_grade"] != "grounded" {
		t.Fatalf("unexpected chat body %v", body)
	}
}

func TestChatRequiresQuestionAndSession(t *testing.T) {
	handler := newTestRouter(&chatStub{}, Config{}).Handler()

	res := postForm(t, handler, "/api/chat", url.Values{"session_id": {"s1"}})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("missing question: expected 400, got %d", res.Code)
	}

	res = postForm(t, handler, "/api/chat", url.Values{"question": {"q"}})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("missing session: expected 400, got %d", res.Code)
	}
}

func TestChatMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("bad")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrTemporary, "chat", errors.New("down")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		handler := newTestRouter(&chatStub{err: tc.err}, Config{}).Handler()
		res := postForm(t, handler, "/api/chat", url.Values{
			"question":   {"q"},
			"session_id": {"s1"},
		})
		if res.Code != tc.want {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.want, res.Code)
		}
	}
}

func TestUploadAcceptsMultipart(t *testing.T) {
	handler := newTestRouter(&chatStub{}, Config{}).Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte("%PDF-1.4 fake"))
	_ = mw.WriteField("session_id", "s1")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["document_id"] != "doc-1" || body["session_id"] != "s1" {
		t.Fatalf("unexpected upload body %v", body)
	}
}

func TestUploadRequiresSessionField(t *testing.T) {
	handler := newTestRouter(&chatStub{}, Config{}).Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "notes.pdf")
	_, _ = fw.Write([]byte("data"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetDocumentByID(t *testing.T) {
	handler := newTestRouter(&chatStub{}, Config{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/documents/doc-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var doc domain.Document
	if err := json.Unmarshal(res.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if doc.ID != "doc-1" || doc.Status != domain.StatusReady {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestChatRateLimitReturns429(t *testing.T) {
	chat := &chatStub{result: &domain.ChatResult{Answer: "ok", Source: domain.RouteGenerate, HallucinationGrade: domain.VerdictGrounded}}
	handler := newTestRouter(chat, Config{
		ChatRateLimitRPS:   0.001,
		ChatRateLimitBurst: 1,
	}).Handler()

	form := url.Values{"question": {"q"}, "session_id": {"s1"}}
	res1 := postForm(t, handler, "/api/chat", form)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := postForm(t, handler, "/api/chat", form)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}
