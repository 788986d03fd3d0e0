package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

type searchServiceStub struct {
	gotQuery domain.Query
	result   *domain.SearchResult
	err      error
}

func (s *searchServiceStub) Search(_ context.Context, query domain.Query) (*domain.SearchResult, error) {
	s.gotQuery = query
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type agenticServiceStub struct {
	result *domain.AgenticResult
	err    error
}

func (s *agenticServiceStub) Search(context.Context, domain.AgenticRequest) (*domain.AgenticResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestSearchEndpointSuccess(t *testing.T) {
	svc := &searchServiceStub{result: &domain.SearchResult{
		Results: []domain.DocumentResult{{
			DocumentID: "doc-1",
			Title:      "First",
			Score:      0.8,
			Chunks:     []domain.ChunkExcerpt{{Content: "snippet", Score: 0.8}},
		}},
		Total:       1,
		KeywordPath: domain.SearchPathPrimary,
		VectorPath:  domain.SearchPathSecondary,
	}}
	handler := NewRouter(svc, nil, nil).Handler()

	body := `{"q":"project notes","limit":5,"containerTags":["work"],"chunkThreshold":0.2,"includeSummary":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.gotQuery.Text != "project notes" || svc.gotQuery.Limit != 5 || !svc.gotQuery.IncludeSummary {
		t.Fatalf("query not mapped from request: %+v", svc.gotQuery)
	}
	if svc.gotQuery.ChunkThreshold != 0.2 || len(svc.gotQuery.ContainerTags) != 1 {
		t.Fatalf("scope not mapped from request: %+v", svc.gotQuery)
	}
	if svc.gotQuery.DisableFallback {
		t.Fatalf("fallback toggle must not be reachable over HTTP")
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["total"] != float64(1) || payload["keywordPath"] != "primary" {
		t.Fatalf("unexpected response payload: %v", payload)
	}
	results, _ := payload["results"].([]any)
	first, _ := results[0].(map[string]any)
	if first["documentId"] != "doc-1" {
		t.Fatalf("expected camelCase documentId, got %v", first)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id header must be set")
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	handler := NewRouter(&searchServiceStub{}, nil, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"q":"  "}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank query: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{broken`))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid json: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method: status = %d", rec.Code)
	}
}

func TestSearchEndpointMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "validate query", errors.New("bad threshold")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrTemporary, "embed", errors.New("circuit open")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		handler := NewRouter(&searchServiceStub{err: tc.err}, nil, nil).Handler()
		req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"q":"x"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("error %v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
	}
}

func TestAgenticEndpointSuccess(t *testing.T) {
	agentic := &agenticServiceStub{result: &domain.AgenticResult{
		Results:     []domain.DocumentResult{{DocumentID: "doc-1", Title: "First", Score: 0.9, Chunks: []domain.ChunkExcerpt{}}},
		Evaluation:  domain.Evaluation{CanAnswer: true, Reasoning: "covered"},
		Queries:     []string{"goal", "alt"},
		TotalTokens: 240,
	}}
	handler := NewRouter(&searchServiceStub{}, agentic, nil).Handler()

	body := `{"q":"goal","maxEvals":2,"enableWebSearch":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search/agentic", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["totalTokens"] != float64(240) {
		t.Fatalf("expected totalTokens in payload, got %v", payload)
	}
	evaluation, _ := payload["evaluation"].(map[string]any)
	if evaluation["canAnswer"] != true {
		t.Fatalf("expected camelCase canAnswer, got %v", payload)
	}
}

func TestAgenticEndpointNotConfigured(t *testing.T) {
	handler := NewRouter(&searchServiceStub{}, nil, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/search/agentic", strings.NewReader(`{"q":"goal"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := NewRouter(&searchServiceStub{}, nil, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
