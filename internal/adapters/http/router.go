package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
	"github.com/guilhermexp/kortix-sub000/internal/core/ports"
	"github.com/guilhermexp/kortix-sub000/internal/observability/metrics"
)

const serviceName = "search-api"

type Router struct {
	searchSvc  ports.SearchService
	agenticSvc ports.AgenticSearchService
	metrics    *metrics.HTTPServerMetrics
}

func NewRouter(
	searchSvc ports.SearchService,
	agenticSvc ports.AgenticSearchService,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		searchSvc:  searchSvc,
		agenticSvc: agenticSvc,
		metrics:    serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/search/agentic", rt.agenticSearch)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Q                  string   `json:"q"`
	Limit              int      `json:"limit"`
	ContainerTags      []string `json:"containerTags"`
	ScopedDocumentIDs  []string `json:"scopedDocumentIds"`
	DocumentID         string   `json:"documentId"`
	ChunkThreshold     float64  `json:"chunkThreshold"`
	DocumentThreshold  float64  `json:"documentThreshold"`
	IncludeSummary     bool     `json:"includeSummary"`
	IncludeFullDocs    bool     `json:"includeFullDocs"`
	OnlyMatchingChunks bool     `json:"onlyMatchingChunks"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Q) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	start := time.Now()
	result, err := rt.searchSvc.Search(r.Context(), domain.Query{
		Text:               req.Q,
		Limit:              req.Limit,
		ContainerTags:      req.ContainerTags,
		ScopedDocumentIDs:  req.ScopedDocumentIDs,
		DocumentID:         req.DocumentID,
		ChunkThreshold:     req.ChunkThreshold,
		DocumentThreshold:  req.DocumentThreshold,
		IncludeSummary:     req.IncludeSummary,
		IncludeFullDocs:    req.IncludeFullDocs,
		OnlyMatchingChunks: req.OnlyMatchingChunks,
	})
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(serviceName, "search", result.Total, result.Fallback, time.Since(start))
		rt.metrics.RecordRetrievalPath(serviceName, "keyword", string(result.KeywordPath))
		rt.metrics.RecordRetrievalPath(serviceName, "vector", string(result.VectorPath))
	}
	writeJSON(w, http.StatusOK, result)
}

type agenticSearchRequest struct {
	Q               string   `json:"q"`
	MaxEvals        int      `json:"maxEvals"`
	TokenBudget     int      `json:"tokenBudget"`
	Limit           int      `json:"limit"`
	ContainerTags   []string `json:"containerTags"`
	EnableWebSearch bool     `json:"enableWebSearch"`
	WebResultsLimit int      `json:"webResultsLimit"`
	WebQueriesLimit int      `json:"webQueriesLimit"`
}

func (rt *Router) agenticSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.agenticSvc == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "agentic search is not configured"})
		return
	}

	var req agenticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Q) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	start := time.Now()
	result, err := rt.agenticSvc.Search(r.Context(), domain.AgenticRequest{
		Query:           req.Q,
		MaxEvals:        req.MaxEvals,
		TokenBudget:     req.TokenBudget,
		Limit:           req.Limit,
		ContainerTags:   req.ContainerTags,
		EnableWebSearch: req.EnableWebSearch,
		WebResultsLimit: req.WebResultsLimit,
		WebQueriesLimit: req.WebQueriesLimit,
	})
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(serviceName, "agentic", len(result.Results), false, time.Since(start))
		rt.metrics.RecordAgenticRun(serviceName, len(result.Queries), len(result.WebResults))
		rt.metrics.RecordTokenUsage(serviceName, "agentic", result.TotalTokens)
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
