package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

// Client calls the Tavily search API. A client-side rate limiter keeps
// burst escalations within the provider's request quota.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(baseURL, apiKey string, requestsPerSecond float64) *Client {
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.WebHit, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("web search rate limit: %w", err)
	}

	payload, err := json.Marshal(searchRequest{APIKey: c.apiKey, Query: query, MaxResults: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal web search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create web search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrProviderUnavailable, "web search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("web search status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode web search response: %w", err)
	}

	hits := make([]domain.WebHit, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		if result.URL == "" {
			continue
		}
		hits = append(hits, domain.WebHit{
			URL:     result.URL,
			Title:   result.Title,
			Content: result.Content,
			Score:   result.Score,
		})
	}
	return hits, nil
}
