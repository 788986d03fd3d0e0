package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
	"github.com/guilhermexp/kortix-sub000/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
	estimator  TokenEstimator
}

// TokenEstimator approximates usage when the provider omits eval counts.
type TokenEstimator interface {
	Count(text string) int
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor, estimator TokenEstimator) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
		estimator:  estimator,
	}
}

// Embedder builds query vectors. When the provider fails it degrades to a
// deterministic hash-derived vector of the configured dimension, so the
// retrieval pipeline keeps well-typed scores instead of aborting.
type Embedder struct {
	client *Client
	dim    int
}

func NewEmbedder(client *Client, dim int) *Embedder {
	if dim <= 0 {
		dim = 768
	}
	return &Embedder{client: client, dim: dim}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.execute(ctx, "embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil || len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
		return fallbackVector(text, e.dim), nil
	}
	return response.Embeddings[0], nil
}

// fallbackVector derives a unit vector from hashes of the input text. It
// carries no semantics, but identical queries map to identical vectors.
func fallbackVector(text string, dim int) []float32 {
	out := make([]float32, dim)
	var norm float64
	for i := range out {
		h := fnv.New64a()
		_, _ = h.Write([]byte(text))
		_, _ = h.Write([]byte{byte(i), byte(i >> 8)})
		v := float64(int64(h.Sum64()%2001)-1000) / 1000.0
		out[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}

// Planner generates alternate phrasings of a search goal.
type Planner struct {
	client     *Client
	maxQueries int
}

func NewPlanner(client *Client, maxQueries int) *Planner {
	if maxQueries <= 0 || maxQueries > 5 {
		maxQueries = 3
	}
	return &Planner{client: client, maxQueries: maxQueries}
}

func (p *Planner) GenerateQueries(ctx context.Context, goal string, used []string) ([]string, domain.TokenUsage, error) {
	raw, usage, err := p.client.generateJSON(ctx, "plan", buildPlannerPrompt(goal, used, p.maxQueries))
	if err != nil {
		return nil, usage, err
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return nil, usage, fmt.Errorf("parse planner json: %w", err)
	}

	out := make([]string, 0, p.maxQueries)
	for _, query := range parsed.Queries {
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}
		out = append(out, query)
		if len(out) == p.maxQueries {
			break
		}
	}
	return out, usage, nil
}

// Judge decides whether accumulated evidence answers the goal.
type Judge struct {
	client *Client
}

func NewJudge(client *Client) *Judge {
	return &Judge{client: client}
}

func (j *Judge) EvaluateSufficiency(ctx context.Context, goal string, docs []domain.DocumentResult) (domain.Evaluation, domain.TokenUsage, error) {
	raw, usage, err := j.client.generateJSON(ctx, "judge", buildJudgePrompt(goal, docs))
	if err != nil {
		return domain.Evaluation{}, usage, err
	}

	var parsed struct {
		CanAnswer bool   `json:"can_answer"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return domain.Evaluation{}, usage, fmt.Errorf("parse judge json: %w", err)
	}
	return domain.Evaluation{CanAnswer: parsed.CanAnswer, Reasoning: parsed.Reasoning}, usage, nil
}

func (c *Client) generateJSON(ctx context.Context, operation, prompt string) (string, domain.TokenUsage, error) {
	request := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	err := c.execute(ctx, operation, func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", request, &response, operation)
	})
	if err != nil {
		return "", domain.TokenUsage{}, wrapTemporaryIfNeeded(operation, err)
	}

	usage := domain.TokenUsage{Prompt: response.PromptEvalCount, Completion: response.EvalCount}
	if usage.Total() == 0 && c.estimator != nil {
		usage.Prompt = c.estimator.Count(prompt)
		usage.Completion = c.estimator.Count(response.Response)
	}
	return strings.TrimSpace(response.Response), usage, nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, "ollama_"+operation, fn, classifyOllamaError)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
