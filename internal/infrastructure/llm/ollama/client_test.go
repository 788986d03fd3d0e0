package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

func TestEmbedQueryReturnsProviderVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", nil, nil), 3)
	vector, err := embedder.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestEmbedQueryFallsBackDeterministically(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusNotFound)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", nil, nil), 8)
	first, err := embedder.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	second, err := embedder.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(first) != 8 {
		t.Fatalf("expected configured dimension, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("fallback vector must be deterministic, got %v vs %v", first, second)
		}
	}
	other, _ := embedder.EmbedQuery(context.Background(), "different text")
	same := true
	for i := range first {
		if first[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("distinct inputs must not collide")
	}
}

func TestPlannerParsesQueriesAndUsage(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		if payload["format"] != "json" {
			t.Fatalf("expected json format request, got %v", payload["format"])
		}
		_, _ = w.Write([]byte(`{"response":"{\"queries\":[\"project deadlines\",\"  \",\"meeting notes june\"]}","prompt_eval_count":120,"eval_count":30}`))
	}))
	defer server.Close()

	planner := NewPlanner(New(server.URL, "gen", "embed", nil, nil), 3)
	queries, usage, err := planner.GenerateQueries(context.Background(), "what are my deadlines?", []string{"deadlines"})
	if err != nil {
		t.Fatalf("GenerateQueries() error = %v", err)
	}
	if len(queries) != 2 || queries[0] != "project deadlines" {
		t.Fatalf("unexpected queries: %v", queries)
	}
	if usage.Total() != 150 {
		t.Fatalf("expected reported usage 150, got %d", usage.Total())
	}
	if !strings.Contains(capturedPrompt, "deadlines") || !strings.Contains(capturedPrompt, "Already issued") {
		t.Fatalf("prompt must carry goal and issued queries: %s", capturedPrompt)
	}
}

type fixedEstimator struct{ perText int }

func (f fixedEstimator) Count(string) int { return f.perText }

func TestGenerateFallsBackToEstimatedUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"{\"queries\":[\"a\"]}"}`))
	}))
	defer server.Close()

	planner := NewPlanner(New(server.URL, "gen", "embed", nil, fixedEstimator{perText: 40}), 3)
	_, usage, err := planner.GenerateQueries(context.Background(), "goal", nil)
	if err != nil {
		t.Fatalf("GenerateQueries() error = %v", err)
	}
	if usage.Total() != 80 {
		t.Fatalf("expected estimated usage 80, got %d", usage.Total())
	}
}

func TestJudgeParsesVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"{\"can_answer\":true,\"reasoning\":\"summary covers it\"}","prompt_eval_count":80,"eval_count":12}`))
	}))
	defer server.Close()

	judge := NewJudge(New(server.URL, "gen", "embed", nil, nil))
	verdict, usage, err := judge.EvaluateSufficiency(context.Background(), "question?", []domain.DocumentResult{
		{Title: "Notes", Summary: "the answer", Score: 0.9},
	})
	if err != nil {
		t.Fatalf("EvaluateSufficiency() error = %v", err)
	}
	if !verdict.CanAnswer || verdict.Reasoning == "" {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
	if usage.Total() != 92 {
		t.Fatalf("expected usage 92, got %d", usage.Total())
	}
}

func TestGenerateIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusConflict)
	}))
	defer server.Close()

	judge := NewJudge(New(server.URL, "gen", "embed", nil, nil))
	_, _, err := judge.EvaluateSufficiency(context.Background(), "q", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
