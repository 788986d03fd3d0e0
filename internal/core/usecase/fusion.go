package usecase

import (
	"sort"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

type fusedCandidate struct {
	hit   domain.ChunkHit
	score float64
}

// fuseRankedLists merges two independently ranked lists with weighted
// Reciprocal Rank Fusion. list1 contributes weight/(k+rank+1) per hit,
// list2 contributes (1-weight)/(k+rank+1). Fused scores are unnormalized
// sums used only for relative ordering; ties keep first-seen order.
func fuseRankedLists(list1, list2 []domain.ChunkHit, weight float64, rrfK int) []domain.ChunkHit {
	if rrfK <= 0 {
		rrfK = 60
	}
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}

	acc := make(map[string]fusedCandidate, len(list1)+len(list2))
	order := make([]string, 0, len(list1)+len(list2))
	addList := func(hits []domain.ChunkHit, w float64) {
		for rank, hit := range hits {
			key := hit.Key()
			candidate, seen := acc[key]
			if !seen {
				order = append(order, key)
			}
			candidate.hit = preferRicherHit(candidate.hit, hit)
			candidate.score += w / float64(rrfK+rank+1)
			acc[key] = candidate
		}
	}

	addList(list1, weight)
	addList(list2, 1-weight)

	out := make([]domain.ChunkHit, 0, len(acc))
	for _, key := range order {
		candidate := acc[key]
		hit := candidate.hit
		hit.Score = candidate.score
		out = append(out, hit)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// normalizeScores rescales fused scores into [0,1] so threshold filters
// compare against a defined range. A degenerate range maps positives to 1.
func normalizeScores(hits []domain.ChunkHit) []domain.ChunkHit {
	if len(hits) == 0 {
		return hits
	}

	minScore := hits[0].Score
	maxScore := hits[0].Score
	for _, hit := range hits[1:] {
		if hit.Score < minScore {
			minScore = hit.Score
		}
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}

	rangeScore := maxScore - minScore
	out := make([]domain.ChunkHit, len(hits))
	copy(out, hits)
	for i := range out {
		if rangeScore <= 0 {
			if out[i].Score > 0 {
				out[i].Score = 1
			} else {
				out[i].Score = 0
			}
			continue
		}
		out[i].Score = (out[i].Score - minScore) / rangeScore
	}
	return out
}

func trimResults(docs []domain.DocumentResult, limit int) []domain.DocumentResult {
	if limit <= 0 || len(docs) <= limit {
		return docs
	}
	return docs[:limit]
}

func preferRicherHit(current, candidate domain.ChunkHit) domain.ChunkHit {
	if current.ChunkID == "" && current.DocumentID == "" && current.Content == "" {
		return candidate
	}
	if current.Content == "" && candidate.Content != "" {
		current.Content = candidate.Content
	}
	if current.DocumentID == "" && candidate.DocumentID != "" {
		current.DocumentID = candidate.DocumentID
	}
	if len(current.Tags) == 0 && len(candidate.Tags) > 0 {
		current.Tags = candidate.Tags
	}
	if len(current.Embedding) == 0 && len(candidate.Embedding) > 0 {
		current.Embedding = candidate.Embedding
	}
	if current.Metadata == nil && candidate.Metadata != nil {
		current.Metadata = candidate.Metadata
	}
	return current
}
