package domain

import (
	"fmt"
	"strings"
	"time"
)

// SearchPath tags which retrieval tier produced a result set. Diagnostics only.
type SearchPath string

const (
	SearchPathPrimary   SearchPath = "primary"
	SearchPathSecondary SearchPath = "secondary"
	SearchPathTertiary  SearchPath = "tertiary"
	SearchPathNone      SearchPath = "none"
)

// Query is a one-shot search request.
type Query struct {
	Text               string
	Limit              int
	ContainerTags      []string
	ScopedDocumentIDs  []string
	DocumentID         string
	ChunkThreshold     float64
	DocumentThreshold  float64
	IncludeSummary     bool
	IncludeFullDocs    bool
	OnlyMatchingChunks bool

	// DisableFallback suppresses the broad recency fallback. Set by the
	// agentic controller so unproductive rounds stay observable as empty.
	DisableFallback bool
}

func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return WrapError(ErrInvalidInput, "validate query", fmt.Errorf("query text is required"))
	}
	if q.Limit < 0 {
		return WrapError(ErrInvalidInput, "validate query", fmt.Errorf("limit must not be negative"))
	}
	if q.ChunkThreshold < 0 || q.ChunkThreshold > 1 {
		return WrapError(ErrInvalidInput, "validate query", fmt.Errorf("chunk threshold must be in [0,1]"))
	}
	if q.DocumentThreshold < 0 || q.DocumentThreshold > 1 {
		return WrapError(ErrInvalidInput, "validate query", fmt.Errorf("document threshold must be in [0,1]"))
	}
	return nil
}

// Scope returns the scope constraints of the query.
func (q Query) Scope() SearchScope {
	return SearchScope{
		ContainerTags: q.ContainerTags,
		DocumentIDs:   q.ScopedDocumentIDs,
		DocumentID:    q.DocumentID,
	}
}

// SearchScope restricts retrieval to a subset of the corpus.
type SearchScope struct {
	ContainerTags []string
	DocumentIDs   []string
	DocumentID    string
}

func (s SearchScope) IsEmpty() bool {
	return len(s.ContainerTags) == 0 && len(s.DocumentIDs) == 0 && s.DocumentID == ""
}

// ChunkHit is a chunk-level retrieval hit before aggregation.
type ChunkHit struct {
	ChunkID    string
	DocumentID string
	Content    string
	Tags       []string
	Metadata   map[string]string
	Score      float64
	Embedding  []float32
}

// Key identifies a hit across independently ranked lists.
func (c ChunkHit) Key() string {
	if c.ChunkID != "" {
		return c.ChunkID
	}
	return c.DocumentID + "|" + c.Content
}

// ChunkExcerpt is a scored chunk kept on an aggregated document.
type ChunkExcerpt struct {
	ChunkID string  `json:"chunkId,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// DocumentResult is a document-level search result.
type DocumentResult struct {
	DocumentID string         `json:"documentId"`
	Title      string         `json:"title"`
	Type       string         `json:"type,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Content    string         `json:"content,omitempty"`
	Score      float64        `json:"score"`
	Chunks     []ChunkExcerpt `json:"chunks"`
	CreatedAt  time.Time      `json:"createdAt,omitempty"`
	UpdatedAt  time.Time      `json:"updatedAt,omitempty"`
}

// DocumentInfo is a catalog record used for hydration and the broad fallback.
type DocumentInfo struct {
	ID        string
	Title     string
	Type      string
	Summary   string
	Content   string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchResult is the outcome of one pass through the retrieval pipeline.
type SearchResult struct {
	Results  []DocumentResult `json:"results"`
	Total    int              `json:"total"`
	TimingMs int64            `json:"timingMs"`

	KeywordPath SearchPath `json:"keywordPath,omitempty"`
	VectorPath  SearchPath `json:"vectorPath,omitempty"`
	Fallback    bool       `json:"fallback,omitempty"`
}

// Evaluation is a sufficiency verdict from the judge.
type Evaluation struct {
	CanAnswer bool   `json:"canAnswer"`
	Reasoning string `json:"reasoning,omitempty"`
}

// TokenUsage is per-call language model usage as reported by a provider.
type TokenUsage struct {
	Prompt     int
	Completion int
}

func (u TokenUsage) Total() int {
	return u.Prompt + u.Completion
}

// AgenticRequest drives the iterative search controller.
type AgenticRequest struct {
	Query           string
	MaxEvals        int
	TokenBudget     int
	Limit           int
	ContainerTags   []string
	EnableWebSearch bool
	WebResultsLimit int
	WebQueriesLimit int
}

func (r AgenticRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return WrapError(ErrInvalidInput, "validate agentic request", fmt.Errorf("query text is required"))
	}
	if r.MaxEvals < 0 {
		return WrapError(ErrInvalidInput, "validate agentic request", fmt.Errorf("maxEvals must not be negative"))
	}
	if r.TokenBudget < 0 {
		return WrapError(ErrInvalidInput, "validate agentic request", fmt.Errorf("tokenBudget must not be negative"))
	}
	if r.Limit < 0 {
		return WrapError(ErrInvalidInput, "validate agentic request", fmt.Errorf("limit must not be negative"))
	}
	if r.WebResultsLimit < 0 || r.WebQueriesLimit < 0 {
		return WrapError(ErrInvalidInput, "validate agentic request", fmt.Errorf("web limits must not be negative"))
	}
	return nil
}

// AgenticResult is the final outcome of an agentic search.
type AgenticResult struct {
	Results     []DocumentResult `json:"results"`
	Evaluation  Evaluation       `json:"evaluation"`
	Queries     []string         `json:"queries"`
	TotalTokens int              `json:"totalTokens"`
	WebResults  []DocumentResult `json:"webResults"`
}

// WebHit is a raw result from the web search provider.
type WebHit struct {
	URL     string
	Title   string
	Content string
	Score   float64
}
