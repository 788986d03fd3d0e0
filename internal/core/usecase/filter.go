package usecase

import "github.com/guilhermexp/kortix-sub000/internal/core/domain"

// filterChunks applies scope constraints and the chunk-level threshold after
// fusion. Threshold comparisons are inclusive: score == threshold passes.
func filterChunks(hits []domain.ChunkHit, query domain.Query) []domain.ChunkHit {
	scopedIDs := make(map[string]struct{}, len(query.ScopedDocumentIDs))
	for _, id := range query.ScopedDocumentIDs {
		scopedIDs[id] = struct{}{}
	}

	out := make([]domain.ChunkHit, 0, len(hits))
	for _, hit := range hits {
		if len(query.ContainerTags) > 0 && !tagsIntersect(hit.Tags, query.ContainerTags) {
			continue
		}
		if len(scopedIDs) > 0 {
			if _, ok := scopedIDs[hit.DocumentID]; !ok {
				continue
			}
		}
		if query.DocumentID != "" && hit.DocumentID != query.DocumentID {
			continue
		}
		if hit.Score < query.ChunkThreshold {
			continue
		}
		out = append(out, hit)
	}
	return out
}

// filterDocuments drops documents whose best chunk score fell below the
// document-level threshold. Inclusive comparison, same as chunk filtering.
func filterDocuments(docs []domain.DocumentResult, threshold float64) []domain.DocumentResult {
	if threshold <= 0 {
		return docs
	}
	out := make([]domain.DocumentResult, 0, len(docs))
	for _, doc := range docs {
		if doc.Score >= threshold {
			out = append(out, doc)
		}
	}
	return out
}

func tagsIntersect(tags, scope []string) bool {
	if len(tags) == 0 {
		return false
	}
	scoped := make(map[string]struct{}, len(scope))
	for _, tag := range scope {
		scoped[tag] = struct{}{}
	}
	for _, tag := range tags {
		if _, ok := scoped[tag]; ok {
			return true
		}
	}
	return false
}
