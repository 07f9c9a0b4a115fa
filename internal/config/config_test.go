package config

import "testing"

func TestLoadWorkflowDefaults(t *testing.T) {
	t.Setenv("WORKFLOW_MAX_RETRIES", "")
	t.Setenv("WORKFLOW_STEP_TIMEOUT_SECONDS", "")
	t.Setenv("RAG_FUSION_RRF_K", "")
	t.Setenv("RAG_FUSION_TOP_N", "")
	t.Setenv("SESSION_STORE", "")

	cfg := Load()
	if cfg.WorkflowMaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", cfg.WorkflowMaxRetries)
	}
	if cfg.WorkflowStepTimeoutSeconds != 60 {
		t.Fatalf("expected default step timeout 60s, got %d", cfg.WorkflowStepTimeoutSeconds)
	}
	if cfg.RAGFusionRRFK != 60 {
		t.Fatalf("expected default fusion rrf k 60, got %d", cfg.RAGFusionRRFK)
	}
	if cfg.RAGFusionTopN != 5 {
		t.Fatalf("expected default fusion top n 5, got %d", cfg.RAGFusionTopN)
	}
	if cfg.SessionStore != "memory" {
		t.Fatalf("expected default session store memory, got %q", cfg.SessionStore)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("WORKFLOW_MAX_RETRIES", "5")
	t.Setenv("SESSION_STORE", "postgres")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CHUNK_SIZE", "800")

	cfg := Load()
	if cfg.WorkflowMaxRetries != 5 {
		t.Fatalf("expected max retries override, got %d", cfg.WorkflowMaxRetries)
	}
	if cfg.SessionStore != "postgres" {
		t.Fatalf("expected postgres session store, got %q", cfg.SessionStore)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.ChunkSize != 800 {
		t.Fatalf("expected chunk size override, got %d", cfg.ChunkSize)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RAG_TOP_K", "not-a-number")
	t.Setenv("API_RATE_LIMIT_RPS", "nope")

	cfg := Load()
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected fallback top k 5, got %d", cfg.RAGTopK)
	}
	if cfg.APIRateLimitRPS != 5 {
		t.Fatalf("expected fallback rps 5, got %v", cfg.APIRateLimitRPS)
	}
}
