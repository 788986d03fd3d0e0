package ports

import (
	"context"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

// SearchService runs one pass of the retrieval pipeline.
type SearchService interface {
	Search(ctx context.Context, query domain.Query) (*domain.SearchResult, error)
}

// AgenticSearchService runs the iterative search controller.
type AgenticSearchService interface {
	Search(ctx context.Context, req domain.AgenticRequest) (*domain.AgenticResult, error)
}
