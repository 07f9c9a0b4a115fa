package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
	"github.com/dmmikh/adaptive-rag-agent/internal/infrastructure/resilience"
)

// Client queries the Tavily search API. Search never returns an error: the
// workflow treats search as best effort and every failure mode maps to a
// tagged outcome.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, apiKey string, maxResults int, exec *resilience.Executor) *Client {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		exec:       exec,
	}
}

func (c *Client) Search(ctx context.Context, query string) domain.SearchOutcome {
	var raw []byte
	err := c.exec.Execute(ctx, "web_search", func(ctx context.Context) error {
		body, err := c.search(ctx, query)
		if err != nil {
			return err
		}
		raw = body
		return nil
	}, classifySearchError)
	if err != nil {
		slog.Warn("web_search_failed", "error", err)
		return domain.SearchOutcome{Kind: domain.SearchFailure}
	}

	outcome := parseResponse(raw)
	if outcome.Kind == domain.SearchMalformed {
		slog.Warn("web_search_malformed_response", "bytes", len(raw))
	}
	return outcome
}

func (c *Client) search(ctx context.Context, query string) ([]byte, error) {
	payload := map[string]any{
		"api_key":     c.apiKey,
		"query":       query,
		"max_results": c.maxResults,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &statusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return raw, nil
}

type statusError struct {
	StatusCode int
	Status     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tavily search status: %s", e.Status)
}

func classifySearchError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
