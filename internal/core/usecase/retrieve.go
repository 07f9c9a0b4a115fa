package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
	"github.com/dmmikh/adaptive-rag-agent/internal/core/ports"
)

const expansionVariants = 3

// RetrievalCoordinator expands one question into several query variants,
// searches the vector store per variant scoped to the session, and fuses the
// ranked lists into one consensus top-N.
type RetrievalCoordinator struct {
	expander ports.QueryExpander
	embedder ports.Embedder
	vectorDB ports.VectorStore

	topK       int
	fusionK    int
	fusionTopN int
}

func NewRetrievalCoordinator(
	expander ports.QueryExpander,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	topK, fusionK, fusionTopN int,
) *RetrievalCoordinator {
	if topK <= 0 {
		topK = 5
	}
	if fusionK <= 0 {
		fusionK = defaultFusionK
	}
	if fusionTopN <= 0 {
		fusionTopN = defaultFusionTopN
	}
	return &RetrievalCoordinator{
		expander:   expander,
		embedder:   embedder,
		vectorDB:   vectorDB,
		topK:       topK,
		fusionK:    fusionK,
		fusionTopN: fusionTopN,
	}
}

func (rc *RetrievalCoordinator) Retrieve(ctx context.Context, question, sessionID string) ([]domain.RetrievedChunk, error) {
	queries := rc.buildQueries(ctx, question)

	// Per-query searches are independent and run concurrently, but the
	// results are indexed by query position: fusion tie-breaking depends on
	// encounter order, so lists must arrive in query-list order.
	lists := make([]domain.RankedList, len(queries))
	errs := make([]error, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			lists[i], errs[i] = rc.searchOne(ctx, query, sessionID)
		}(i, query)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("retrieve query %d: %w", i, err)
		}
	}

	return fuseRankedLists(lists, rc.fusionK, rc.fusionTopN), nil
}

// buildQueries returns the original question followed by expansion variants.
// Expansion failure never drops the original question: the coordinator logs
// and proceeds with whatever variants were produced.
func (rc *RetrievalCoordinator) buildQueries(ctx context.Context, question string) []string {
	queries := []string{question}

	variants, err := rc.expander.Expand(ctx, question, expansionVariants)
	if err != nil {
		slog.Warn("query_expansion_failed", "error", err)
		return queries
	}
	for _, v := range variants {
		if v == "" || v == question {
			continue
		}
		queries = append(queries, v)
	}
	return queries
}

func (rc *RetrievalCoordinator) searchOne(ctx context.Context, query, sessionID string) (domain.RankedList, error) {
	vector, err := rc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	list, err := rc.vectorDB.Search(ctx, vector, rc.topK, domain.SearchFilter{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}
	return list, nil
}
