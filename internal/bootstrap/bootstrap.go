package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guilhermexp/kortix-sub000/internal/config"
	"github.com/guilhermexp/kortix-sub000/internal/core/ports"
	"github.com/guilhermexp/kortix-sub000/internal/core/usecase"
	"github.com/guilhermexp/kortix-sub000/internal/infrastructure/llm/ollama"
	"github.com/guilhermexp/kortix-sub000/internal/infrastructure/rerank/jina"
	"github.com/guilhermexp/kortix-sub000/internal/infrastructure/resilience"
	"github.com/guilhermexp/kortix-sub000/internal/infrastructure/store/postgres"
	"github.com/guilhermexp/kortix-sub000/internal/infrastructure/tokens"
	"github.com/guilhermexp/kortix-sub000/internal/infrastructure/websearch/tavily"
)

type App struct {
	Config config.Config

	SearchSvc  ports.SearchService
	AgenticSvc ports.AgenticSearchService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db, cfg.EmbeddingDim); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chunks := postgres.NewChunkRepository(db)
	catalog := postgres.NewDocumentCatalog(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	estimator := tokens.NewEstimator(cfg.TokenEncoding)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor, estimator)
	embedder := ollama.NewEmbedder(ollamaClient, cfg.EmbeddingDim)
	planner := ollama.NewPlanner(ollamaClient, cfg.AgenticMaxQueries)
	judge := ollama.NewJudge(ollamaClient)

	var reranker ports.Reranker
	if cfg.RerankEnabled && cfg.RerankAPIKey != "" {
		reranker = jina.New(cfg.RerankBaseURL, cfg.RerankAPIKey, cfg.RerankModel, executor)
	}

	var webSearcher ports.WebSearcher
	if cfg.WebSearchEnabled && cfg.WebSearchAPIKey != "" {
		webSearcher = tavily.New(cfg.WebSearchBaseURL, cfg.WebSearchAPIKey, cfg.WebSearchRateLimit)
	}

	searchUC := usecase.NewSearchUseCase(embedder, chunks, catalog, reranker, usecase.SearchConfig{
		DefaultLimit:        cfg.SearchDefaultLimit,
		FanoutFactor:        cfg.SearchFanoutFactor,
		RRFK:                cfg.SearchRRFK,
		KeywordWeight:       cfg.SearchKeywordWeight,
		MaxChunksPerDoc:     cfg.SearchMaxChunksPerDoc,
		RecencyEnabled:      cfg.RecencyEnabled,
		RecencyWeight:       cfg.RecencyWeight,
		RecencyHalfLifeDays: cfg.RecencyHalfLifeDays,
		FallbackScore:       cfg.SearchFallbackScore,
		RerankEnabled:       reranker != nil,
		RerankTopN:          cfg.RerankTopN,
		RerankMaxChars:      cfg.RerankMaxChars,
	}, logger)

	agenticUC := usecase.NewAgenticUseCase(searchUC, planner, judge, webSearcher, usecase.AgenticConfig{
		MaxEvals:        cfg.AgenticMaxEvals,
		TokenBudget:     cfg.AgenticTokenBudget,
		MaxQueries:      cfg.AgenticMaxQueries,
		EvalSampleSize:  cfg.AgenticEvalSampleSize,
		WebEnabled:      webSearcher != nil,
		WebResultsLimit: cfg.WebSearchResultsLimit,
		WebQueriesLimit: cfg.WebSearchQueriesLimit,
	}, logger)

	return &App{
		Config:     cfg,
		SearchSvc:  searchUC,
		AgenticSvc: agenticUC,

		closeFn: func() {
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
