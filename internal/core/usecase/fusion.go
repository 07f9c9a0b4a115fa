package usecase

import (
	"sort"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

const (
	defaultFusionK    = 60
	defaultFusionTopN = 5
)

type fusedCandidate struct {
	chunk domain.RetrievedChunk
	score float64
	order int
}

// fuseRankedLists merges ranked lists into one consensus ranking via
// reciprocal rank fusion: each appearance at 0-indexed rank r contributes
// 1/(r+k). Chunks are deduplicated by text content, keeping the first-seen
// instance. Ties resolve by encounter order, so identical input always yields
// identical output.
func fuseRankedLists(lists []domain.RankedList, rrfK, topN int) []domain.RetrievedChunk {
	if rrfK <= 0 {
		rrfK = defaultFusionK
	}
	if topN <= 0 {
		topN = defaultFusionTopN
	}

	acc := make(map[string]*fusedCandidate)
	order := 0
	for _, list := range lists {
		for rank, chunk := range list {
			candidate, ok := acc[chunk.Text]
			if !ok {
				candidate = &fusedCandidate{chunk: chunk, order: order}
				acc[chunk.Text] = candidate
				order++
			}
			candidate.score += 1.0 / float64(rank+rrfK)
		}
	}

	out := make([]*fusedCandidate, 0, len(acc))
	for _, c := range acc {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})

	if len(out) > topN {
		out = out[:topN]
	}
	fused := make([]domain.RetrievedChunk, 0, len(out))
	for _, c := range out {
		chunk := c.chunk
		chunk.Score = c.score
		fused = append(fused, chunk)
	}
	return fused
}
