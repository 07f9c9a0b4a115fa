package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/ports"
	"github.com/dmmikh/adaptive-rag-agent/internal/observability/metrics"
)

const serviceVersion = "1.0.0"

type Config struct {
	ServiceName        string
	MaxUploadBytes     int64
	ChatRateLimitRPS   float64
	ChatRateLimitBurst int
	MaxConcurrentChats int
	BackpressureWait   time.Duration
}

type Router struct {
	ingestUC ports.DocumentIngestor
	chatUC   ports.ChatService
	repo     ports.DocumentRepository
	metrics  *metrics.HTTPServerMetrics
	cfg      Config
}

func NewRouter(
	ingestUC ports.DocumentIngestor,
	chatUC ports.ChatService,
	repo ports.DocumentRepository,
	m *metrics.HTTPServerMetrics,
	cfg Config,
) *Router {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.BackpressureWait <= 0 {
		cfg.BackpressureWait = 100 * time.Millisecond
	}
	return &Router{
		ingestUC: ingestUC,
		chatUC:   chatUC,
		repo:     repo,
		metrics:  m,
		cfg:      cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	chat := http.Handler(http.HandlerFunc(rt.chat))
	if rt.cfg.ChatRateLimitRPS > 0 {
		chat = rateLimitMiddleware(chat, rt.cfg.ChatRateLimitRPS, rt.cfg.ChatRateLimitBurst)
	}
	if rt.cfg.MaxConcurrentChats > 0 {
		chat = backpressureMiddleware(chat, rt.cfg.MaxConcurrentChats, rt.cfg.BackpressureWait)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.health)
	mux.HandleFunc("/api/upload", rt.uploadDocument)
	mux.Handle("/api/chat", chat)
	mux.HandleFunc("/api/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"service": "adaptive-rag-agent",
		"version": serviceVersion,
	})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form field 'session_id' is required"})
		return
	}

	doc, err := rt.ingestUC.Upload(
		r.Context(),
		sessionID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":      "accepted",
		"document_id": doc.ID,
		"session_id":  doc.SessionID,
	})
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	question := strings.TrimSpace(r.FormValue("question"))
	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form field 'question' is required"})
		return
	}
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form field 'session_id' is required"})
		return
	}

	start := time.Now()
	result, err := rt.chatUC.Chat(r.Context(), sessionID, question)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordWorkflowRun(
			rt.cfg.ServiceName,
			string(result.Source),
			string(result.HallucinationGrade),
			result.LoopSteps,
			time.Since(start),
		)
	}

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
