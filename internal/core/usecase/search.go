package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
	"github.com/guilhermexp/kortix-sub000/internal/core/ports"
)

// SearchConfig holds the pipeline tunables. The chunk cap, thresholds and
// fallback score are heuristics surfaced as configuration rather than
// hard-coded contracts.
type SearchConfig struct {
	DefaultLimit        int
	FanoutFactor        int
	RRFK                int
	KeywordWeight       float64
	MaxChunksPerDoc     int
	RecencyEnabled      bool
	RecencyWeight       float64
	RecencyHalfLifeDays float64
	FallbackScore       float64
	RerankEnabled       bool
	RerankTopN          int
	RerankMaxChars      int
}

func (c SearchConfig) normalize() SearchConfig {
	out := c
	if out.DefaultLimit <= 0 {
		out.DefaultLimit = 10
	}
	if out.FanoutFactor <= 0 {
		out.FanoutFactor = 8
	}
	if out.RRFK <= 0 {
		out.RRFK = 60
	}
	if out.KeywordWeight <= 0 || out.KeywordWeight > 1 {
		out.KeywordWeight = 0.5
	}
	if out.MaxChunksPerDoc <= 0 {
		out.MaxChunksPerDoc = 3
	}
	if out.RecencyWeight < 0 || out.RecencyWeight > 1 {
		out.RecencyWeight = 0.3
	}
	if out.RecencyHalfLifeDays <= 0 {
		out.RecencyHalfLifeDays = 30
	}
	if out.FallbackScore <= 0 {
		out.FallbackScore = 0.1
	}
	if out.RerankTopN <= 0 {
		out.RerankTopN = 20
	}
	if out.RerankMaxChars <= 0 {
		out.RerankMaxChars = 512
	}
	return out
}

// SearchUseCase runs the one-shot retrieval pipeline: keyword and vector
// retrieval, rank fusion, scope and threshold filtering, aggregation to
// document level, optional recency blending and reranking, and the broad
// recency fallback when everything else comes back empty.
type SearchUseCase struct {
	embedder ports.Embedder
	chunks   ports.ChunkStore
	catalog  ports.DocumentCatalog
	reranker ports.Reranker
	cfg      SearchConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewSearchUseCase(
	embedder ports.Embedder,
	chunks ports.ChunkStore,
	catalog ports.DocumentCatalog,
	reranker ports.Reranker,
	cfg SearchConfig,
	logger *slog.Logger,
) *SearchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchUseCase{
		embedder: embedder,
		chunks:   chunks,
		catalog:  catalog,
		reranker: reranker,
		cfg:      cfg.normalize(),
		logger:   logger,
		now:      time.Now,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, query domain.Query) (*domain.SearchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	start := uc.now()

	limit := query.Limit
	if limit <= 0 {
		limit = uc.cfg.DefaultLimit
	}
	scope := query.Scope()
	fanout := limit * uc.cfg.FanoutFactor

	var (
		keywordHits []domain.ChunkHit
		vectorHits  []domain.ChunkHit
		keywordPath domain.SearchPath
		vectorPath  domain.SearchPath
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		keywordHits, keywordPath = uc.retrieveKeyword(groupCtx, query.Text, scope, fanout)
		return nil
	})
	group.Go(func() error {
		vectorHits, vectorPath = uc.retrieveVector(groupCtx, query.Text, scope, fanout)
		return nil
	})
	_ = group.Wait()

	fused := fuseRankedLists(keywordHits, vectorHits, uc.cfg.KeywordWeight, uc.cfg.RRFK)
	fused = normalizeScores(fused)
	fused = filterChunks(fused, query)

	maxChunks := uc.cfg.MaxChunksPerDoc
	if query.OnlyMatchingChunks {
		maxChunks = 1
	}
	docs := aggregateChunks(fused, maxChunks)
	docs = filterDocuments(docs, query.DocumentThreshold)
	uc.hydrate(ctx, docs, query)

	if uc.cfg.RecencyEnabled {
		blendRecency(docs, uc.cfg.RecencyWeight, uc.cfg.RecencyHalfLifeDays, uc.now())
	}
	docs = trimResults(docs, limit)
	docs = uc.rerankDocuments(ctx, query.Text, docs)

	fallback := false
	if len(docs) == 0 && !query.DisableFallback {
		docs = uc.broadFallback(ctx, query, limit)
		fallback = len(docs) > 0
	}

	return &domain.SearchResult{
		Results:     docs,
		Total:       len(docs),
		TimingMs:    uc.now().Sub(start).Milliseconds(),
		KeywordPath: keywordPath,
		VectorPath:  vectorPath,
		Fallback:    fallback,
	}, nil
}

// hydrate fills document-level metadata from the catalog. Failures leave
// the aggregated results usable and are only logged.
func (uc *SearchUseCase) hydrate(ctx context.Context, docs []domain.DocumentResult, query domain.Query) {
	if len(docs) == 0 {
		return
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.DocumentID)
	}
	infos, err := uc.catalog.GetDocuments(ctx, ids)
	if err != nil {
		uc.logger.Warn("document hydration failed", "error", err)
		return
	}

	for i := range docs {
		info, ok := infos[docs[i].DocumentID]
		if !ok {
			docs[i].Title = "Untitled"
			continue
		}
		docs[i].Title = info.Title
		if docs[i].Title == "" {
			docs[i].Title = "Untitled"
		}
		docs[i].Type = info.Type
		docs[i].CreatedAt = info.CreatedAt
		docs[i].UpdatedAt = info.UpdatedAt
		if query.IncludeSummary {
			docs[i].Summary = info.Summary
		}
		if query.IncludeFullDocs {
			docs[i].Content = info.Content
		}
	}
}

// rerankDocuments sends the head of the result list through the
// cross-encoder. The component never raises: provider errors keep the
// fusion ordering as-is.
func (uc *SearchUseCase) rerankDocuments(ctx context.Context, query string, docs []domain.DocumentResult) []domain.DocumentResult {
	if uc.reranker == nil || !uc.cfg.RerankEnabled || len(docs) == 0 {
		return docs
	}

	topN := uc.cfg.RerankTopN
	if topN > len(docs) {
		topN = len(docs)
	}
	candidates := make([]ports.RerankCandidate, 0, topN)
	for _, doc := range docs[:topN] {
		candidates = append(candidates, ports.RerankCandidate{
			ID:   doc.DocumentID,
			Text: renderRerankText(doc, uc.cfg.RerankMaxChars),
		})
	}

	scores, err := uc.reranker.Rerank(ctx, query, candidates, topN)
	if err != nil {
		uc.logger.Warn("rerank failed, keeping fusion order", "error", err)
		return docs
	}
	if len(scores) == 0 {
		return docs
	}

	byID := make(map[string]domain.DocumentResult, topN)
	for _, doc := range docs[:topN] {
		byID[doc.DocumentID] = doc
	}

	head := make([]domain.DocumentResult, 0, topN)
	seen := make(map[string]struct{}, topN)
	for _, score := range scores {
		doc, ok := byID[score.ID]
		if !ok {
			continue
		}
		doc.Score = clampUnit(score.Score)
		head = append(head, doc)
		seen[doc.DocumentID] = struct{}{}
	}
	// Candidates the provider dropped keep their place after the scored head.
	for _, doc := range docs[:topN] {
		if _, ok := seen[doc.DocumentID]; !ok {
			head = append(head, doc)
		}
	}

	out := make([]domain.DocumentResult, 0, len(docs))
	out = append(out, head...)
	out = append(out, docs[topN:]...)
	return out
}

// broadFallback returns the most recent documents in scope at a fixed low
// confidence score, so broad queries still return something useful.
func (uc *SearchUseCase) broadFallback(ctx context.Context, query domain.Query, limit int) []domain.DocumentResult {
	infos, err := uc.catalog.ListRecent(ctx, query.ContainerTags, limit)
	if err != nil {
		uc.logger.Warn("broad fallback listing failed", "error", err)
		return nil
	}

	out := make([]domain.DocumentResult, 0, len(infos))
	for _, info := range infos {
		title := info.Title
		if title == "" {
			title = "Untitled"
		}
		doc := domain.DocumentResult{
			DocumentID: info.ID,
			Title:      title,
			Type:       info.Type,
			Score:      uc.cfg.FallbackScore,
			Chunks:     []domain.ChunkExcerpt{},
			CreatedAt:  info.CreatedAt,
			UpdatedAt:  info.UpdatedAt,
		}
		if query.IncludeSummary {
			doc.Summary = info.Summary
		}
		if query.IncludeFullDocs {
			doc.Content = info.Content
		}
		out = append(out, doc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func renderRerankText(doc domain.DocumentResult, maxChars int) string {
	parts := make([]string, 0, 3)
	if doc.Title != "" {
		parts = append(parts, doc.Title)
	}
	if doc.Summary != "" {
		parts = append(parts, doc.Summary)
	}
	if len(doc.Chunks) > 0 {
		parts = append(parts, doc.Chunks[0].Content)
	}
	text := strings.Join(parts, "\n")
	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars]
	}
	return text
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
