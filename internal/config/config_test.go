package config

import "testing"

func TestLoadIncludesSearchDefaults(t *testing.T) {
	t.Setenv("SEARCH_RRF_K", "")
	t.Setenv("SEARCH_KEYWORD_WEIGHT", "")
	t.Setenv("SEARCH_MAX_CHUNKS_PER_DOC", "")
	t.Setenv("SEARCH_FALLBACK_SCORE", "")
	t.Setenv("AGENTIC_MAX_EVALS", "")

	cfg := Load()
	if cfg.SearchRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.SearchRRFK)
	}
	if cfg.SearchKeywordWeight != 0.5 {
		t.Fatalf("expected default keyword weight 0.5, got %v", cfg.SearchKeywordWeight)
	}
	if cfg.SearchMaxChunksPerDoc != 3 {
		t.Fatalf("expected default chunk cap 3, got %d", cfg.SearchMaxChunksPerDoc)
	}
	if cfg.SearchFallbackScore != 0.1 {
		t.Fatalf("expected default fallback score 0.1, got %v", cfg.SearchFallbackScore)
	}
	if cfg.AgenticMaxEvals != 3 {
		t.Fatalf("expected default max evals 3, got %d", cfg.AgenticMaxEvals)
	}
	if cfg.RerankEnabled || cfg.WebSearchEnabled || cfg.RecencyEnabled {
		t.Fatalf("optional stages must default to disabled")
	}
}

func TestLoadParsesSearchOverrides(t *testing.T) {
	t.Setenv("SEARCH_RRF_K", "75")
	t.Setenv("SEARCH_KEYWORD_WEIGHT", "0.7")
	t.Setenv("RECENCY_ENABLED", "true")
	t.Setenv("AGENTIC_TOKEN_BUDGET", "4000")
	t.Setenv("WEB_SEARCH_RATE_LIMIT", "2.5")

	cfg := Load()
	if cfg.SearchRRFK != 75 {
		t.Fatalf("expected rrf k 75, got %d", cfg.SearchRRFK)
	}
	if cfg.SearchKeywordWeight != 0.7 {
		t.Fatalf("expected keyword weight 0.7, got %v", cfg.SearchKeywordWeight)
	}
	if !cfg.RecencyEnabled {
		t.Fatalf("expected recency enabled")
	}
	if cfg.AgenticTokenBudget != 4000 {
		t.Fatalf("expected token budget 4000, got %d", cfg.AgenticTokenBudget)
	}
	if cfg.WebSearchRateLimit != 2.5 {
		t.Fatalf("expected web rate limit 2.5, got %v", cfg.WebSearchRateLimit)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SEARCH_RRF_K", "not-a-number")
	t.Setenv("SEARCH_KEYWORD_WEIGHT", "also bad")

	cfg := Load()
	if cfg.SearchRRFK != 60 || cfg.SearchKeywordWeight != 0.5 {
		t.Fatalf("malformed values must fall back to defaults, got %d / %v", cfg.SearchRRFK, cfg.SearchKeywordWeight)
	}
}
