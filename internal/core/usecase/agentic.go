package usecase

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
	"github.com/guilhermexp/kortix-sub000/internal/core/ports"
)

// AgenticConfig bounds the iterative controller. The token budget is an
// approximate governor: rounds stop once reported usage reaches it, but a
// round in flight is never cut short.
type AgenticConfig struct {
	MaxEvals        int
	TokenBudget     int
	MaxQueries      int
	EvalSampleSize  int
	WebEnabled      bool
	WebResultsLimit int
	WebQueriesLimit int
	WebDefaultScore float64
}

func (c AgenticConfig) normalize() AgenticConfig {
	out := c
	if out.MaxEvals <= 0 {
		out.MaxEvals = 3
	}
	if out.TokenBudget <= 0 {
		out.TokenBudget = 8000
	}
	if out.MaxQueries <= 0 || out.MaxQueries > 5 {
		out.MaxQueries = 5
	}
	if out.EvalSampleSize <= 0 {
		out.EvalSampleSize = 10
	}
	if out.WebResultsLimit <= 0 {
		out.WebResultsLimit = 5
	}
	if out.WebQueriesLimit <= 0 {
		out.WebQueriesLimit = 3
	}
	if out.WebDefaultScore <= 0 || out.WebDefaultScore > 1 {
		out.WebDefaultScore = 0.5
	}
	return out
}

// AgenticUseCase orchestrates multiple rounds of the one-shot pipeline:
// planning alternate queries, fanning them out concurrently, merging with
// max-score-wins, judging sufficiency, and optionally escalating to web
// search once the loop ends.
type AgenticUseCase struct {
	searcher ports.SearchService
	planner  ports.QueryPlanner
	judge    ports.SufficiencyJudge
	web      ports.WebSearcher
	cfg      AgenticConfig
	logger   *slog.Logger
}

func NewAgenticUseCase(
	searcher ports.SearchService,
	planner ports.QueryPlanner,
	judge ports.SufficiencyJudge,
	web ports.WebSearcher,
	cfg AgenticConfig,
	logger *slog.Logger,
) *AgenticUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgenticUseCase{
		searcher: searcher,
		planner:  planner,
		judge:    judge,
		web:      web,
		cfg:      cfg.normalize(),
		logger:   logger,
	}
}

func (uc *AgenticUseCase) Search(ctx context.Context, req domain.AgenticRequest) (*domain.AgenticResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	maxEvals := req.MaxEvals
	if maxEvals <= 0 {
		maxEvals = uc.cfg.MaxEvals
	}
	tokenBudget := req.TokenBudget
	if tokenBudget <= 0 {
		tokenBudget = uc.cfg.TokenBudget
	}

	sess := newAgenticSession()

	for round := 0; round < maxEvals; round++ {
		candidates := make([]string, 0, uc.cfg.MaxQueries+1)
		if round == 0 {
			sess.markUsed(req.Query)
			candidates = append(candidates, req.Query)
		}

		// planning
		generated, usage, err := uc.planner.GenerateQueries(ctx, req.Query, sess.usedQueries())
		sess.addTokens(usage)
		planningFailed := err != nil || len(generated) == 0
		if planningFailed {
			if err != nil {
				uc.logger.Warn("query generation failed, stopping rounds", "round", round, "error", err)
			}
			// Round zero still runs the original query so the caller is
			// not left empty-handed; later rounds have nothing new to try.
			if len(candidates) == 0 {
				break
			}
		} else {
			for _, query := range generated {
				if len(candidates) >= uc.cfg.MaxQueries+1 {
					break
				}
				if sess.markUsed(query) {
					candidates = append(candidates, query)
				}
			}
		}
		if len(candidates) == 0 {
			break
		}

		// searching: fan out all candidate queries, await all branches,
		// then merge sequentially. A branch failure degrades that branch
		// to an empty result set.
		branches := uc.runBranches(ctx, candidates, req)
		for _, docs := range branches {
			sess.merge(docs)
		}

		if planningFailed {
			break
		}
		// early-stop guard: a later round that still accumulated nothing
		// is an unproductive signal.
		if round > 0 && len(sess.docs) == 0 {
			break
		}

		// evaluating
		verdict, usage, err := uc.judge.EvaluateSufficiency(ctx, req.Query, sess.rankedDocuments(uc.cfg.EvalSampleSize))
		sess.addTokens(usage)
		if err != nil {
			uc.logger.Warn("sufficiency evaluation failed, stopping rounds", "round", round, "error", err)
			break
		}
		sess.verdict = verdict

		if verdict.CanAnswer || sess.tokens >= tokenBudget {
			break
		}
	}

	var webResults []domain.DocumentResult
	webEnabled := req.EnableWebSearch && uc.cfg.WebEnabled && uc.web != nil
	if webEnabled && (!sess.verdict.CanAnswer || len(sess.docs) == 0) {
		webResults = uc.escalateWeb(ctx, req, sess)
	}

	return &domain.AgenticResult{
		Results:     sess.rankedDocuments(req.Limit),
		Evaluation:  sess.verdict,
		Queries:     sess.usedQueries(),
		TotalTokens: sess.tokens,
		WebResults:  webResults,
	}, nil
}

// runBranches executes all candidate queries concurrently through the
// one-shot pipeline and returns per-branch results in input order. The
// broad fallback stays disabled so empty rounds remain observable.
func (uc *AgenticUseCase) runBranches(ctx context.Context, candidates []string, req domain.AgenticRequest) [][]domain.DocumentResult {
	results := make([][]domain.DocumentResult, len(candidates))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		group.Go(func() error {
			res, err := uc.searcher.Search(groupCtx, domain.Query{
				Text:            candidate,
				Limit:           req.Limit,
				ContainerTags:   req.ContainerTags,
				IncludeSummary:  true,
				DisableFallback: true,
			})
			if err != nil {
				uc.logger.Warn("search branch failed", "query", candidate, "error", err)
				return nil
			}
			results[i] = res.Results
			return nil
		})
	}
	_ = group.Wait()
	return results
}

// escalateWeb issues a bounded number of web queries (the original goal
// plus previously issued ones) and converts hits into document results
// with a synthetic "web:" id prefix, deduplicated by id.
func (uc *AgenticUseCase) escalateWeb(ctx context.Context, req domain.AgenticRequest, sess *agenticSession) []domain.DocumentResult {
	queries := sess.usedQueries()
	if len(queries) == 0 {
		queries = []string{req.Query}
	}

	webQueriesLimit := req.WebQueriesLimit
	if webQueriesLimit <= 0 {
		webQueriesLimit = uc.cfg.WebQueriesLimit
	}
	if len(queries) > webQueriesLimit {
		queries = queries[:webQueriesLimit]
	}
	webResultsLimit := req.WebResultsLimit
	if webResultsLimit <= 0 {
		webResultsLimit = uc.cfg.WebResultsLimit
	}

	seen := make(map[string]struct{})
	out := make([]domain.DocumentResult, 0, webResultsLimit)
	for _, query := range queries {
		hits, err := uc.web.Search(ctx, query, webResultsLimit)
		if err != nil {
			uc.logger.Warn("web search query failed", "query", query, "error", err)
			continue
		}
		for _, hit := range hits {
			id := "web:" + hit.URL
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			score := hit.Score
			if score <= 0 {
				score = uc.cfg.WebDefaultScore
			}
			out = append(out, domain.DocumentResult{
				DocumentID: id,
				Title:      hit.Title,
				Type:       "web",
				Summary:    hit.Content,
				Score:      clampUnit(score),
				Chunks:     []domain.ChunkExcerpt{},
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > webResultsLimit {
		out = out[:webResultsLimit]
	}
	return out
}
