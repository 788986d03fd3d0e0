package ports

import (
	"context"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

// Embedder builds a query vector. Implementations must degrade to a
// deterministic fallback vector of the same dimension when the provider
// is unavailable, so the pipeline can proceed with well-typed scores.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore is the document store's chunk-level search surface.
type ChunkStore interface {
	// KeywordSearch runs the store's full-text rank query.
	KeywordSearch(ctx context.Context, text string, scope domain.SearchScope, limit int) ([]domain.ChunkHit, error)
	// KeywordPattern is the degraded pattern-match variant of KeywordSearch.
	KeywordPattern(ctx context.Context, text string, scope domain.SearchScope, limit int) ([]domain.ChunkHit, error)
	// VectorSearch runs the store's nearest-neighbour query with similarity attached.
	VectorSearch(ctx context.Context, vector []float32, scope domain.SearchScope, limit int) ([]domain.ChunkHit, error)
	// FetchCandidates returns a bounded candidate set, embeddings included,
	// for client-side similarity when VectorSearch is unavailable.
	FetchCandidates(ctx context.Context, scope domain.SearchScope, limit int) ([]domain.ChunkHit, error)
}

// DocumentCatalog reads document-level metadata.
type DocumentCatalog interface {
	GetDocuments(ctx context.Context, ids []string) (map[string]domain.DocumentInfo, error)
	ListRecent(ctx context.Context, tags []string, limit int) ([]domain.DocumentInfo, error)
}

// RerankCandidate is a document reduced to a short textual representation.
type RerankCandidate struct {
	ID   string
	Text string
}

// RerankScore carries the reranker's new score for one candidate.
type RerankScore struct {
	ID    string
	Score float64
}

// Reranker reorders candidates against the query with a cross-encoder.
// Callers must treat any error as a signal to keep the existing order.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate, topN int) ([]RerankScore, error)
}

// QueryPlanner generates alternate phrasings of a search goal.
type QueryPlanner interface {
	GenerateQueries(ctx context.Context, goal string, used []string) ([]string, domain.TokenUsage, error)
}

// SufficiencyJudge decides whether accumulated evidence answers the goal.
type SufficiencyJudge interface {
	EvaluateSufficiency(ctx context.Context, goal string, docs []domain.DocumentResult) (domain.Evaluation, domain.TokenUsage, error)
}

// WebSearcher queries an external web search provider.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.WebHit, error)
}
