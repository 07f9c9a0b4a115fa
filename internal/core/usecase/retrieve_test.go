package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

type expanderFake struct {
	variants []string
	err      error
}

func (f *expanderFake) Expand(context.Context, string, int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.variants, nil
}

type embedderFake struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type vectorFake struct {
	mu       sync.Mutex
	filters  []domain.SearchFilter
	byQuery  map[string]domain.RankedList
	searched int
	err      error
}

func (f *vectorFake) IndexChunks(context.Context, *domain.Document, []string, [][]float32) error {
	return nil
}

func (f *vectorFake) Search(_ context.Context, _ []float32, _ int, filter domain.SearchFilter) (domain.RankedList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	f.searched++
	if f.err != nil {
		return nil, f.err
	}
	return domain.RankedList{{Text: "chunk", SessionID: filter.SessionID}}, nil
}

func TestRetrieveQueriesOriginalPlusVariants(t *testing.T) {
	embedder := &embedderFake{}
	vector := &vectorFake{}
	rc := NewRetrievalCoordinator(
		&expanderFake{variants: []string{"v1", "v2", "v3"}},
		embedder, vector, 5, 60, 5,
	)

	if _, err := rc.Retrieve(context.Background(), "q", "s1"); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if vector.searched != 4 {
		t.Fatalf("expected 4 searches (original + 3 variants), got %d", vector.searched)
	}
	for _, filter := range vector.filters {
		if filter.SessionID != "s1" {
			t.Fatalf("expected session filter s1, got %q", filter.SessionID)
		}
	}
}

func TestRetrieveExpansionFailureKeepsOriginalQuestion(t *testing.T) {
	embedder := &embedderFake{}
	vector := &vectorFake{}
	rc := NewRetrievalCoordinator(
		&expanderFake{err: errors.New("expansion down")},
		embedder, vector, 5, 60, 5,
	)

	chunks, err := rc.Retrieve(context.Background(), "original question", "s1")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if vector.searched != 1 {
		t.Fatalf("expected single search on expansion failure, got %d", vector.searched)
	}
	if len(embedder.queries) != 1 || embedder.queries[0] != "original question" {
		t.Fatalf("expected original question embedded, got %v", embedder.queries)
	}
	if len(chunks) == 0 {
		t.Fatalf("expected chunks from the original query")
	}
}

func TestRetrieveDropsEmptyAndDuplicateVariants(t *testing.T) {
	vector := &vectorFake{}
	rc := NewRetrievalCoordinator(
		&expanderFake{variants: []string{"", "q", "fresh variant"}},
		&embedderFake{}, vector, 5, 60, 5,
	)

	if _, err := rc.Retrieve(context.Background(), "q", "s1"); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if vector.searched != 2 {
		t.Fatalf("expected 2 searches (original + one usable variant), got %d", vector.searched)
	}
}

func TestRetrieveSearchErrorPropagates(t *testing.T) {
	rc := NewRetrievalCoordinator(
		&expanderFake{variants: []string{"v1", "v2", "v3"}},
		&embedderFake{}, &vectorFake{err: errors.New("store down")}, 5, 60, 5,
	)
	if _, err := rc.Retrieve(context.Background(), "q", "s1"); err == nil {
		t.Fatalf("expected error from vector store")
	}
}
