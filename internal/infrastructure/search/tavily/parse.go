package tavily

import (
	"encoding/json"
	"strings"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

// parseResponse never fails the caller. Any shape surprise in the provider
// payload degrades to a Malformed outcome so the workflow can substitute a
// placeholder document and keep moving.
func parseResponse(raw []byte) domain.SearchOutcome {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.SearchOutcome{Kind: domain.SearchMalformed}
	}

	resultsAny, ok := payload["results"]
	if !ok {
		return domain.SearchOutcome{Kind: domain.SearchMalformed}
	}
	items, ok := resultsAny.([]any)
	if !ok {
		return domain.SearchOutcome{Kind: domain.SearchMalformed}
	}

	texts := make([]string, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		content, ok := entry["content"].(string)
		if !ok {
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		texts = append(texts, content)
	}

	if len(texts) == 0 {
		return domain.SearchOutcome{Kind: domain.SearchMalformed}
	}
	return domain.SearchOutcome{Kind: domain.SearchSuccess, Texts: texts}
}
