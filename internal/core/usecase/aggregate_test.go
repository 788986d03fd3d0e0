package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

func TestAggregateChunksGroupsAndCaps(t *testing.T) {
	hits := []domain.ChunkHit{
		{ChunkID: "a1", DocumentID: "doc-a", Score: 0.4},
		{ChunkID: "b1", DocumentID: "doc-b", Score: 0.9},
		{ChunkID: "a2", DocumentID: "doc-a", Score: 0.8},
		{ChunkID: "a3", DocumentID: "doc-a", Score: 0.6},
		{ChunkID: "a4", DocumentID: "doc-a", Score: 0.5},
	}

	docs := aggregateChunks(hits, 3)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].DocumentID != "doc-b" || docs[0].Score != 0.9 {
		t.Fatalf("expected doc-b first with max chunk score, got %+v", docs[0])
	}
	if docs[1].Score != 0.8 {
		t.Fatalf("document score must be the max chunk score, got %v", docs[1].Score)
	}
	if len(docs[1].Chunks) != 3 {
		t.Fatalf("expected 3 excerpts kept, got %d", len(docs[1].Chunks))
	}
	if docs[1].Chunks[0].ChunkID != "a2" || docs[1].Chunks[2].ChunkID != "a4" {
		t.Fatalf("excerpts must be sorted by descending score, got %+v", docs[1].Chunks)
	}
}

func TestAggregateChunksSingleExcerptMode(t *testing.T) {
	hits := []domain.ChunkHit{
		{ChunkID: "a1", DocumentID: "doc-a", Score: 0.4},
		{ChunkID: "a2", DocumentID: "doc-a", Score: 0.8},
	}

	docs := aggregateChunks(hits, 1)
	if len(docs) != 1 || len(docs[0].Chunks) != 1 {
		t.Fatalf("expected one document with one excerpt, got %+v", docs)
	}
	if docs[0].Chunks[0].ChunkID != "a2" {
		t.Fatalf("expected the best chunk kept, got %s", docs[0].Chunks[0].ChunkID)
	}
}

func TestAggregateChunksSkipsOrphans(t *testing.T) {
	hits := []domain.ChunkHit{
		{ChunkID: "orphan", Score: 0.9},
		{ChunkID: "a1", DocumentID: "doc-a", Score: 0.4},
	}

	docs := aggregateChunks(hits, 3)
	if len(docs) != 1 || docs[0].DocumentID != "doc-a" {
		t.Fatalf("hits without a parent document must be dropped, got %+v", docs)
	}
}

func TestBlendRecencyDisabledKeepsOrder(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	docs := []domain.DocumentResult{
		{DocumentID: "old", Score: 0.9, CreatedAt: now.AddDate(0, -6, 0)},
		{DocumentID: "new", Score: 0.5, CreatedAt: now.AddDate(0, 0, -1)},
	}

	blendRecency(docs, 0, 30, now)
	if docs[0].DocumentID != "old" || docs[0].Score != 0.9 {
		t.Fatalf("zero recency weight must not change scores, got %+v", docs)
	}
}

func TestBlendRecencyBoostsFreshDocuments(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	docs := []domain.DocumentResult{
		{DocumentID: "old", Score: 0.6, CreatedAt: now.AddDate(-1, 0, 0)},
		{DocumentID: "new", Score: 0.55, CreatedAt: now},
	}

	blendRecency(docs, 0.4, 30, now)
	if docs[0].DocumentID != "new" {
		t.Fatalf("expected fresh document promoted, got %+v", docs)
	}

	// alpha*semantic + (1-alpha)*decay with zero age decays to exactly 1.
	want := 0.6*0.55 + 0.4*1.0
	if math.Abs(docs[0].Score-want) > 1e-12 {
		t.Fatalf("expected blended score %v, got %v", want, docs[0].Score)
	}
}

func TestBlendRecencySkipsUnknownAge(t *testing.T) {
	now := time.Now()
	docs := []domain.DocumentResult{
		{DocumentID: "dated", Score: 0.2, CreatedAt: now},
		{DocumentID: "undated", Score: 0.3},
	}

	blendRecency(docs, 0.5, 30, now)
	for _, doc := range docs {
		if doc.DocumentID == "undated" && doc.Score != 0.3 {
			t.Fatalf("documents without a creation time keep their score, got %v", doc.Score)
		}
	}
}
