package usecase

import (
	"math"
	"sort"
	"time"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

// aggregateChunks groups chunk hits by parent document. The document score
// is the maximum chunk score observed; up to maxChunksPerDoc of the highest
// scoring chunks are kept as excerpts, sorted by descending score.
func aggregateChunks(hits []domain.ChunkHit, maxChunksPerDoc int) []domain.DocumentResult {
	if maxChunksPerDoc <= 0 {
		maxChunksPerDoc = 1
	}

	grouped := make(map[string][]domain.ChunkHit, len(hits))
	order := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.DocumentID == "" {
			continue
		}
		if _, seen := grouped[hit.DocumentID]; !seen {
			order = append(order, hit.DocumentID)
		}
		grouped[hit.DocumentID] = append(grouped[hit.DocumentID], hit)
	}

	out := make([]domain.DocumentResult, 0, len(grouped))
	for _, docID := range order {
		chunks := grouped[docID]
		sort.SliceStable(chunks, func(i, j int) bool {
			return chunks[i].Score > chunks[j].Score
		})

		keep := chunks
		if len(keep) > maxChunksPerDoc {
			keep = keep[:maxChunksPerDoc]
		}
		excerpts := make([]domain.ChunkExcerpt, 0, len(keep))
		for _, chunk := range keep {
			excerpts = append(excerpts, domain.ChunkExcerpt{
				ChunkID: chunk.ChunkID,
				Content: chunk.Content,
				Score:   chunk.Score,
			})
		}

		out = append(out, domain.DocumentResult{
			DocumentID: docID,
			Score:      chunks[0].Score,
			Chunks:     excerpts,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// blendRecency recomputes each document score as a weighted blend of the
// semantic score and an exponential time-decay score. Documents without a
// known creation time keep their semantic score.
func blendRecency(docs []domain.DocumentResult, recencyWeight, halfLifeDays float64, now time.Time) {
	if recencyWeight <= 0 || halfLifeDays <= 0 {
		return
	}
	alpha := 1 - recencyWeight

	for i := range docs {
		if docs[i].CreatedAt.IsZero() {
			continue
		}
		ageDays := now.Sub(docs[i].CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		recencyScore := math.Exp(-ageDays / halfLifeDays)
		docs[i].Score = alpha*docs[i].Score + (1-alpha)*recencyScore
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
}
