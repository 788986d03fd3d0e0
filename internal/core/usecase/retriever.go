package usecase

import (
	"context"
	"math"
	"sort"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

// retrieveKeyword walks the keyword fallback chain: full-text rank first,
// pattern matching second. Failures are logged and never surface to the
// caller; an exhausted chain yields an empty list tagged "none".
func (uc *SearchUseCase) retrieveKeyword(ctx context.Context, text string, scope domain.SearchScope, limit int) ([]domain.ChunkHit, domain.SearchPath) {
	hits, err := uc.chunks.KeywordSearch(ctx, text, scope, limit)
	if err == nil {
		return hits, domain.SearchPathPrimary
	}
	uc.logger.Warn("keyword search degraded to pattern match", "error", err)

	hits, err = uc.chunks.KeywordPattern(ctx, text, scope, limit)
	if err == nil {
		return hits, domain.SearchPathSecondary
	}
	uc.logger.Warn("keyword pattern match failed", "error", err)
	return nil, domain.SearchPathNone
}

// retrieveVector walks the vector fallback chain: store-side nearest
// neighbour, then client-side cosine over a fetched candidate set, then the
// raw candidates unscored. Callers must not assume ordering on the tertiary
// path.
func (uc *SearchUseCase) retrieveVector(ctx context.Context, text string, scope domain.SearchScope, limit int) ([]domain.ChunkHit, domain.SearchPath) {
	vector, err := uc.embedder.EmbedQuery(ctx, text)
	if err != nil || len(vector) == 0 {
		uc.logger.Warn("query embedding unavailable, skipping vector retrieval", "error", err)
		return nil, domain.SearchPathNone
	}

	hits, err := uc.chunks.VectorSearch(ctx, vector, scope, limit)
	if err == nil {
		return hits, domain.SearchPathPrimary
	}
	uc.logger.Warn("vector search degraded to local similarity", "error", err)

	candidates, err := uc.chunks.FetchCandidates(ctx, scope, limit)
	if err != nil {
		uc.logger.Warn("candidate fetch failed", "error", err)
		return nil, domain.SearchPathNone
	}

	scored, ok := scoreByCosine(candidates, vector)
	if !ok {
		return candidates, domain.SearchPathTertiary
	}
	return scored, domain.SearchPathSecondary
}

// scoreByCosine computes cosine similarity locally for candidates carrying
// embeddings. Returns false when no candidate can be scored.
func scoreByCosine(candidates []domain.ChunkHit, query []float32) ([]domain.ChunkHit, bool) {
	scored := make([]domain.ChunkHit, 0, len(candidates))
	for _, candidate := range candidates {
		if len(candidate.Embedding) == 0 {
			continue
		}
		candidate.Score = cosineSimilarity(query, candidate.Embedding)
		scored = append(scored, candidate)
	}
	if len(scored) == 0 {
		return nil, false
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored, true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
