package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guilhermexp/kortix-sub000/internal/core/ports"
	"github.com/guilhermexp/kortix-sub000/internal/infrastructure/resilience"
)

const defaultModel = "jina-reranker-v2-base-multilingual"

// Client calls the Jina rerank API. It implements the cross-encoder port;
// callers treat any error as a signal to keep the fusion ordering.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, model string, executor *resilience.Executor) *Client {
	if baseURL == "" {
		baseURL = "https://api.jina.ai"
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (c *Client) Rerank(ctx context.Context, query string, candidates []ports.RerankCandidate, topN int) ([]ports.RerankScore, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	documents := make([]string, len(candidates))
	for i, candidate := range candidates {
		documents[i] = candidate.Text
	}
	payload, err := json.Marshal(rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     c.model,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	var parsed rerankResponse
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rerank", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create rerank request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("jina rerank request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return fmt.Errorf("jina rerank status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode rerank response: %w", err)
		}
		return nil
	}
	if c.executor != nil {
		err = c.executor.Execute(ctx, "jina_rerank", call, nil)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	scores := make([]ports.RerankScore, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		if result.Index < 0 || result.Index >= len(candidates) {
			continue
		}
		scores = append(scores, ports.RerankScore{
			ID:    candidates[result.Index].ID,
			Score: result.RelevanceScore,
		})
	}
	return scores, nil
}
