package usecase

import (
	"math"
	"testing"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

func hitIDs(hits []domain.ChunkHit) []string {
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ChunkID)
	}
	return ids
}

func TestFuseRankedListsWeightedRRF(t *testing.T) {
	list1 := []domain.ChunkHit{
		{ChunkID: "A", DocumentID: "doc-a"},
		{ChunkID: "B", DocumentID: "doc-b"},
		{ChunkID: "C", DocumentID: "doc-c"},
	}
	list2 := []domain.ChunkHit{
		{ChunkID: "B", DocumentID: "doc-b"},
		{ChunkID: "D", DocumentID: "doc-d"},
	}

	fused := fuseRankedLists(list1, list2, 0.5, 60)
	if len(fused) != 4 {
		t.Fatalf("expected 4 fused hits, got %d", len(fused))
	}

	got := hitIDs(fused)
	want := []string{"B", "A", "D", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	wantB := 0.5/61.0 + 0.5/62.0
	if math.Abs(fused[0].Score-wantB) > 1e-12 {
		t.Fatalf("expected B score %v, got %v", wantB, fused[0].Score)
	}
	wantA := 0.5 / 61.0
	if math.Abs(fused[1].Score-wantA) > 1e-12 {
		t.Fatalf("expected A score %v, got %v", wantA, fused[1].Score)
	}
}

func TestFuseRankedListsTiesKeepFirstSeenOrder(t *testing.T) {
	list1 := []domain.ChunkHit{{ChunkID: "X"}}
	list2 := []domain.ChunkHit{{ChunkID: "Y"}}

	// Equal weights at equal ranks tie exactly; X was accumulated first.
	fused := fuseRankedLists(list1, list2, 0.5, 60)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused hits, got %d", len(fused))
	}
	if fused[0].ChunkID != "X" || fused[1].ChunkID != "Y" {
		t.Fatalf("expected tie order [X Y], got %v", hitIDs(fused))
	}
}

func TestFuseRankedListsDeduplicatesByKey(t *testing.T) {
	list1 := []domain.ChunkHit{{DocumentID: "doc-1", Content: "same text"}}
	list2 := []domain.ChunkHit{{DocumentID: "doc-1", Content: "same text", Tags: []string{"notes"}}}

	fused := fuseRankedLists(list1, list2, 0.5, 60)
	if len(fused) != 1 {
		t.Fatalf("expected dedupe to 1 hit, got %d", len(fused))
	}
	if len(fused[0].Tags) != 1 || fused[0].Tags[0] != "notes" {
		t.Fatalf("expected merged hit to keep richer tags, got %v", fused[0].Tags)
	}
}

func TestNormalizeScoresMinMax(t *testing.T) {
	hits := []domain.ChunkHit{
		{ChunkID: "hi", Score: 0.03},
		{ChunkID: "mid", Score: 0.02},
		{ChunkID: "lo", Score: 0.01},
	}

	norm := normalizeScores(hits)
	if norm[0].Score != 1 {
		t.Fatalf("expected max to normalize to 1, got %v", norm[0].Score)
	}
	if norm[2].Score != 0 {
		t.Fatalf("expected min to normalize to 0, got %v", norm[2].Score)
	}
	if math.Abs(norm[1].Score-0.5) > 1e-12 {
		t.Fatalf("expected midpoint 0.5, got %v", norm[1].Score)
	}
	if hits[0].Score != 0.03 {
		t.Fatalf("input slice must not be mutated, got %v", hits[0].Score)
	}
}

func TestNormalizeScoresDegenerateRange(t *testing.T) {
	hits := []domain.ChunkHit{
		{ChunkID: "a", Score: 0.02},
		{ChunkID: "b", Score: 0.02},
	}

	norm := normalizeScores(hits)
	for _, hit := range norm {
		if hit.Score != 1 {
			t.Fatalf("expected identical positive scores to map to 1, got %v", hit.Score)
		}
	}

	if out := normalizeScores(nil); len(out) != 0 {
		t.Fatalf("expected empty input to stay empty, got %d", len(out))
	}
}
